package model

import "time"

// StreamState is the pipeline driver state.
type StreamState string

const (
	StateStopped      StreamState = "stopped"
	StateRunning      StreamState = "running"
	StateReconnecting StreamState = "reconnecting"
)

// Active reports whether the state counts as an active stream.
func (s StreamState) Active() bool {
	return s == StateRunning || s == StateReconnecting
}

// StreamStatus is the snapshot exposed to the boundary layer.
type StreamStatus struct {
	Active          bool        `json:"stream_active"`
	FPS             float64     `json:"fps"`
	Source          string      `json:"source"`
	State           StreamState `json:"state"`
	SessionID       string      `json:"session_id,omitempty"`
	Frames          uint64      `json:"frames"`
	ObjectsRecorded int         `json:"objects_recorded"`
	LastError       string      `json:"last_error,omitempty"`
}

// Sighting describes a newly recorded object, as forwarded to sinks.
type Sighting struct {
	ID          int64     `json:"id,omitempty"`
	SessionID   string    `json:"session_id"`
	ClassID     int       `json:"class_id"`
	ClassLabel  string    `json:"class"`
	TrackID     int       `json:"track_id"`
	Confidence  float64   `json:"confidence"`
	BBox        BBox      `json:"bbox"`
	FrameWidth  int       `json:"frame_width"`
	FrameHeight int       `json:"frame_height"`
	ImagePath   string    `json:"image_path,omitempty"`
	LabelPath   string    `json:"label_path,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
