package pipeline

import "time"

// DefaultSmoothing is the weight of the newest sample in the fps average.
const DefaultSmoothing = 0.1

// FPSMeter is an exponential moving average of frames per second computed from
// iteration latency. The first sample seeds the average.
type FPSMeter struct {
	alpha float64
	value float64
}

// NewFPSMeter creates a meter with the given smoothing factor in (0,1].
func NewFPSMeter(alpha float64) *FPSMeter {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultSmoothing
	}
	return &FPSMeter{alpha: alpha}
}

// Observe adds one iteration latency and returns the updated average.
func (m *FPSMeter) Observe(latency time.Duration) float64 {
	if latency <= 0 {
		return m.value
	}
	instant := float64(time.Second) / float64(latency)
	if m.value == 0 {
		m.value = instant
	} else {
		m.value = m.alpha*instant + (1-m.alpha)*m.value
	}
	return m.value
}

// Value returns the current average.
func (m *FPSMeter) Value() float64 {
	return m.value
}

// Reset clears the average.
func (m *FPSMeter) Reset() {
	m.value = 0
}
