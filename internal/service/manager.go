package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/hybridgroup/mjpeg"
	"go.uber.org/atomic"

	"trackserver/internal/logger"
	"trackserver/internal/model"
	"trackserver/internal/service/annotate"
	"trackserver/internal/service/pipeline"
	"trackserver/internal/service/source"
	"trackserver/internal/service/storage"
	"trackserver/internal/service/websocket"
)

const (
	blankWidth  = 640
	blankHeight = 480
)

var (
	// ErrStreamActive is returned for operations that require a stopped stream.
	ErrStreamActive = errors.New("stream is active")
	// ErrManagerClosed is returned by Start after Close.
	ErrManagerClosed = errors.New("manager is closed")
)

// Detector is the detector/tracker owned by a Manager.
type Detector interface {
	pipeline.Detector
	Reset()
	Close() error
}

// Deps are the components a Manager drives. Hub and Stream are optional.
type Deps struct {
	Opener        source.Opener
	Detector      Detector
	Store         *storage.Store
	Renderer      pipeline.Renderer
	Hub           *websocket.HubService
	Stream        *mjpeg.Stream
	Options       pipeline.Options
	DefaultSource string
}

// Manager starts and stops stream sessions and exposes their latest state.
// Each Manager owns its own store and tracker.
type Manager struct {
	deps   Deps
	logger logger.Interface

	driver atomic.Pointer[pipeline.Driver]

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool

	blankOnce sync.Once
	blank     []byte
}

// NewManager creates a stopped manager.
func NewManager(deps Deps, log logger.Interface) *Manager {
	return &Manager{deps: deps, logger: log}
}

// Start begins a new session on descriptor, or on the default source when it is empty.
// A running session is stopped first. Identities restart with every session.
// The new session id is returned.
func (m *Manager) Start(descriptor string) (string, error) {
	if descriptor == "" {
		descriptor = m.deps.DefaultSource
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrManagerClosed
	}
	m.stopLocked()

	sessionID := uuid.NewString()
	m.deps.Store.Reset()
	m.deps.Store.SetSession(sessionID)
	m.deps.Detector.Reset()

	opts := m.deps.Options
	opts.SessionID = sessionID
	opts.OnStateChange = m.onStateChange
	if m.deps.Stream != nil {
		opts.OnPublish = m.deps.Stream.UpdateJPEG
	}

	log := m.logger.With(map[string]interface{}{"session": sessionID})
	driver := pipeline.New(m.deps.Opener, m.deps.Detector, m.deps.Store, m.deps.Renderer, opts, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := driver.Run(ctx, descriptor); err != nil {
			log.Error("Stream %s ended with error: %v", descriptor, err)
		}
	}()

	m.driver.Store(driver)
	m.cancel = cancel
	m.done = done
	return sessionID, nil
}

// Stop ends the current session and waits for the driver to exit. It reports
// whether a session was running and is a no-op otherwise.
func (m *Manager) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked()
}

func (m *Manager) stopLocked() bool {
	if m.cancel == nil {
		return false
	}
	wasRunning := !isClosed(m.done)
	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil
	return wasRunning
}

// Running reports whether a driver goroutine is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done != nil && !isClosed(m.done)
}

// Status returns the latest published status without blocking on the driver.
func (m *Manager) Status() model.StreamStatus {
	driver := m.driver.Load()
	if driver == nil {
		return model.StreamStatus{State: model.StateStopped, Source: m.deps.DefaultSource}
	}
	return driver.Status()
}

// LatestJPEG returns the most recent annotated frame, or a blank frame when none
// has been produced yet.
func (m *Manager) LatestJPEG() []byte {
	if driver := m.driver.Load(); driver != nil {
		if snap := driver.Snapshot(); snap != nil && len(snap.JPEG) > 0 {
			return snap.JPEG
		}
	}
	return m.blankJPEG()
}

// Reset clears the seen-objects set and the tracker. Only allowed while stopped.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done != nil && !isClosed(m.done) {
		return ErrStreamActive
	}
	m.deps.Store.Reset()
	m.deps.Detector.Reset()
	m.logger.Info("Seen objects cleared")
	return nil
}

// DefaultSource is the source used when Start is given none.
func (m *Manager) DefaultSource() string {
	return m.deps.DefaultSource
}

// Close stops the stream and releases the detector. Further Starts fail.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.stopLocked()
	return m.deps.Detector.Close()
}

func (m *Manager) onStateChange(status model.StreamStatus) {
	m.logger.Info("Stream state: %s", status.State)
	if m.deps.Hub == nil {
		return
	}
	if err := m.deps.Hub.Publish(websocket.EventStatus, status); err != nil {
		m.logger.Error("Failed to publish status: %v", err)
	}
}

func (m *Manager) blankJPEG() []byte {
	m.blankOnce.Do(func() {
		blank, err := annotate.BlankJPEG(blankWidth, blankHeight)
		if err != nil {
			m.logger.Error("Failed to encode blank frame: %v", err)
			return
		}
		m.blank = blank
	})
	return m.blank
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
