package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"trackserver/internal/config"
	"trackserver/internal/logger"
	"trackserver/internal/model"
	"trackserver/internal/service/source"
)

// ErrReconnectExhausted is returned when the source could not be recovered.
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

// DefaultMaxReconnectAttempts is the number of consecutive source failures tolerated.
const DefaultMaxReconnectAttempts = 3

// Detector finds and tracks objects in a frame.
type Detector interface {
	DetectAndTrack(frame model.Frame, confThreshold, iouThreshold float64) []model.Detection
	Trails() map[int][]image.Point
}

// Recorder deduplicates and persists detections.
type Recorder interface {
	Record(ctx context.Context, detection model.Detection, frame model.Frame) bool
	Len() int
}

// Renderer draws detections and encodes the result.
type Renderer interface {
	Render(frame model.Frame, detections []model.Detection, trails map[int][]image.Point, fps float64) ([]byte, error)
}

// Snapshot is the latest published state. It is never mutated after publication.
type Snapshot struct {
	Status model.StreamStatus
	JPEG   []byte
}

// Options configure a Driver.
type Options struct {
	ConfidenceThreshold  float64
	IOUThreshold         float64
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	SessionID            string
	Clock                clock.Clock

	// OnStateChange is called from the driver goroutine when the state changes.
	OnStateChange func(status model.StreamStatus)
	// OnPublish is called from the driver goroutine with every annotated frame.
	OnPublish func(jpeg []byte)
}

// OptionsFromConfig builds driver options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ConfidenceThreshold:  cfg.ConfidenceThreshold,
		IOUThreshold:         cfg.IOUThreshold,
		MaxReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:       cfg.ReconnectDelay,
	}
}

// Driver runs the capture, detect, record, annotate loop for one stream session.
type Driver struct {
	opener   source.Opener
	detector Detector
	recorder Recorder
	renderer Renderer
	opts     Options
	clock    clock.Clock
	logger   logger.Interface

	snapshot atomic.Pointer[Snapshot]

	// owned by the Run goroutine
	status model.StreamStatus
	jpeg   []byte
	fps    *FPSMeter
}

// New creates a stopped driver.
func New(opener source.Opener, detector Detector, recorder Recorder, renderer Renderer, opts Options, log logger.Interface) *Driver {
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	d := &Driver{
		opener:   opener,
		detector: detector,
		recorder: recorder,
		renderer: renderer,
		opts:     opts,
		clock:    opts.Clock,
		logger:   log,
		fps:      NewFPSMeter(DefaultSmoothing),
		status: model.StreamStatus{
			State:     model.StateStopped,
			SessionID: opts.SessionID,
		},
	}
	d.publish()
	return d
}

// Snapshot returns the latest published status and frame without blocking.
func (d *Driver) Snapshot() *Snapshot {
	return d.snapshot.Load()
}

// Status returns the latest published status.
func (d *Driver) Status() model.StreamStatus {
	return d.snapshot.Load().Status
}

// Run drives the stream until it ends, reconnection is exhausted or ctx is cancelled.
// End of stream and cancellation return nil. The source is closed on every exit path.
func (d *Driver) Run(ctx context.Context, descriptor string) (err error) {
	var src source.Source
	defer func() {
		if src != nil {
			if cerr := src.Close(); cerr != nil {
				d.logger.Warning("Failed to close source %s: %v", descriptor, cerr)
			}
		}
	}()

	d.status.Source = descriptor
	d.fps.Reset()
	d.publish()
	d.logger.Info("Opening stream: %s", descriptor)

	failures := 0
	fail := func(cause error) bool {
		failures++
		if failures >= d.opts.MaxReconnectAttempts {
			err = fmt.Errorf("%w: %s after %d attempts: %v", ErrReconnectExhausted, descriptor, failures, cause)
			d.stop(err)
			return false
		}
		d.logger.Warning("Source %s unavailable (attempt %d/%d): %v", descriptor, failures, d.opts.MaxReconnectAttempts, cause)
		d.setState(model.StateReconnecting, cause)
		if !d.wait(ctx) {
			d.stop(nil)
			return false
		}
		return true
	}

	for {
		if ctx.Err() != nil {
			d.stop(nil)
			return nil
		}

		start := d.clock.Now()

		if src == nil {
			opened, openErr := d.opener.Open(ctx, descriptor)
			if openErr != nil {
				if ctx.Err() != nil {
					d.stop(nil)
					return nil
				}
				if !fail(openErr) {
					return err
				}
				continue
			}
			src = opened
			if d.status.State == model.StateStopped {
				d.setState(model.StateRunning, nil)
				d.logger.Info("Stream started: %s", descriptor)
			}
		}

		frame, readErr := src.Next()
		if readErr != nil {
			if errors.Is(readErr, source.ErrEndOfStream) {
				d.logger.Info("Stream %s ended", descriptor)
				d.stop(nil)
				return nil
			}
			if cerr := src.Close(); cerr != nil {
				d.logger.Warning("Failed to close source %s: %v", descriptor, cerr)
			}
			src = nil
			if !fail(readErr) {
				return err
			}
			continue
		}

		failures = 0
		d.process(ctx, frame, start)
		frame.Close()
	}
}

// process handles one frame. Failures are logged and never end the loop.
func (d *Driver) process(ctx context.Context, frame model.Frame, start time.Time) {
	detections := d.detector.DetectAndTrack(frame, d.opts.ConfidenceThreshold, d.opts.IOUThreshold)

	for _, detection := range detections {
		d.recorder.Record(ctx, detection, frame)
	}

	jpeg, err := d.renderer.Render(frame, detections, d.detector.Trails(), d.fps.Value())
	if err != nil {
		d.logger.Error("Failed to render frame: %v", err)
	} else {
		d.jpeg = jpeg
	}

	d.status.FPS = d.fps.Observe(d.clock.Since(start))
	d.status.Frames++
	d.status.ObjectsRecorded = d.recorder.Len()

	if d.status.State != model.StateRunning {
		d.setState(model.StateRunning, nil)
	} else {
		d.publish()
	}

	if err == nil && d.opts.OnPublish != nil {
		d.opts.OnPublish(jpeg)
	}
}

func (d *Driver) wait(ctx context.Context) bool {
	if d.opts.ReconnectDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := d.clock.Timer(d.opts.ReconnectDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (d *Driver) stop(cause error) {
	d.status.FPS = 0
	d.setState(model.StateStopped, cause)
	if cause != nil {
		d.logger.Error("Stream %s stopped: %v", d.status.Source, cause)
	} else {
		d.logger.Info("Stream %s stopped", d.status.Source)
	}
}

func (d *Driver) setState(state model.StreamState, cause error) {
	changed := d.status.State != state
	d.status.State = state
	d.status.Active = state.Active()
	if cause != nil {
		d.status.LastError = cause.Error()
	} else if state == model.StateRunning {
		d.status.LastError = ""
	}
	d.publish()

	if changed && d.opts.OnStateChange != nil {
		d.opts.OnStateChange(d.status)
	}
}

func (d *Driver) publish() {
	d.snapshot.Store(&Snapshot{Status: d.status, JPEG: d.jpeg})
}
