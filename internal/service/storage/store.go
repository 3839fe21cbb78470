package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"trackserver/internal/config"
	"trackserver/internal/logger"
	"trackserver/internal/model"
	"trackserver/internal/service/annotate"
)

// ErrPersistenceWrite wraps failures writing detection images or labels.
var ErrPersistenceWrite = errors.New("persistence write failed")

// Encoder turns a frame into image file bytes.
type Encoder func(frame model.Frame) ([]byte, error)

// EncodeJPEG encodes the frame's pixels as JPEG.
func EncodeJPEG(frame model.Frame) ([]byte, error) {
	if frame.Mat == nil || frame.Mat.Empty() {
		return nil, fmt.Errorf("frame has no pixels")
	}
	return annotate.EncodeJPEG(*frame.Mat)
}

// Options configure a Store.
type Options struct {
	Root    string
	Enabled bool
	Encoder Encoder
	Sink    Sink
	Clock   clock.Clock
}

// OptionsFromConfig builds store options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:    cfg.StoragePath,
		Enabled: cfg.SaveDetections,
	}
}

// Store deduplicates detections by identity key and persists the first sighting
// of each object as an image and a YOLO label.
type Store struct {
	root    string
	enabled bool
	encode  Encoder
	sink    Sink
	clock   clock.Clock
	logger  logger.Interface

	mu        sync.Mutex
	seen      map[model.IdentityKey]struct{}
	sessionID string
}

// NewStore creates an empty store.
func NewStore(opts Options, log logger.Interface) *Store {
	if opts.Encoder == nil {
		opts.Encoder = EncodeJPEG
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Store{
		root:    opts.Root,
		enabled: opts.Enabled,
		encode:  opts.Encoder,
		sink:    opts.Sink,
		clock:   opts.Clock,
		logger:  log,
		seen:    make(map[model.IdentityKey]struct{}),
	}
}

// Record persists the detection if its identity key has not been seen and
// reports whether it was new. Write and sink failures are logged; the key
// stays recorded either way.
func (s *Store) Record(ctx context.Context, detection model.Detection, frame model.Frame) bool {
	key := detection.Key()

	s.mu.Lock()
	if _, ok := s.seen[key]; ok {
		s.mu.Unlock()
		return false
	}
	s.seen[key] = struct{}{}
	sessionID := s.sessionID
	s.mu.Unlock()

	ts := detection.Timestamp
	if ts.IsZero() {
		ts = s.clock.Now()
	}

	sighting := model.Sighting{
		SessionID:   sessionID,
		ClassID:     detection.ClassID,
		ClassLabel:  detection.ClassLabel,
		TrackID:     detection.TrackID,
		Confidence:  detection.Confidence,
		BBox:        detection.BBox.Clamp(frame.Width, frame.Height),
		FrameWidth:  frame.Width,
		FrameHeight: frame.Height,
		Timestamp:   ts,
	}

	if s.enabled {
		imagePath, labelPath, err := s.write(detection, frame, BaseName(key, ts))
		switch {
		case errors.Is(err, os.ErrExist):
			s.logger.Warning("Not overwriting existing sample for %s: %v", key, err)
		case err != nil:
			s.logger.Error("Failed to persist %s: %v", key, err)
		}
		sighting.ImagePath = imagePath
		sighting.LabelPath = labelPath
	}

	s.logger.Info("New object %s (confidence %.2f)", key, detection.Confidence)

	if s.sink != nil {
		if err := s.sink.RecordSighting(ctx, sighting); err != nil {
			s.logger.Warning("Sink failed for %s: %v", key, err)
		}
	}
	return true
}

// write stores the raw frame and its label. Paths are returned for files that were written.
func (s *Store) write(detection model.Detection, frame model.Frame, base string) (string, string, error) {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return "", "", fmt.Errorf("%w: creating directory %s: %v", ErrPersistenceWrite, s.root, err)
	}

	var imagePath, labelPath string

	data, err := s.encode(frame)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}
	path := filepath.Join(s.root, base+".jpg")
	if err := writeNew(path, data); err != nil {
		return "", "", fmt.Errorf("%w: saving image %s: %w", ErrPersistenceWrite, path, err)
	}
	imagePath = path

	label, err := NewLabel(detection.ClassID, detection.BBox, frame.Width, frame.Height)
	if err != nil {
		return imagePath, "", fmt.Errorf("%w: %v", ErrPersistenceWrite, err)
	}
	path = filepath.Join(s.root, base+".txt")
	if err := writeNew(path, []byte(label.String()+"\n")); err != nil {
		return imagePath, "", fmt.Errorf("%w: saving label %s: %w", ErrPersistenceWrite, path, err)
	}
	labelPath = path

	return imagePath, labelPath, nil
}

// writeNew creates path and writes data to it. An existing file is left
// untouched and the error wraps os.ErrExist.
func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return multierr.Append(err, f.Close())
}

// Seen reports whether the key has been recorded.
func (s *Store) Seen(key model.IdentityKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

// Len returns the number of recorded objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Reset forgets every recorded key. Files on disk are kept.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[model.IdentityKey]struct{})
}

// SetSession tags subsequent sightings with a session id.
func (s *Store) SetSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = id
}

// Root returns the storage directory.
func (s *Store) Root() string {
	return s.root
}
