package source

import (
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"gocv.io/x/gocv"

	"trackserver/internal/model"
)

// Capture is an open gocv capture handle. It is owned by a single goroutine;
// Close may be called from any goroutine and more than once.
type Capture struct {
	descriptor string
	capture    *gocv.VideoCapture
	finite     bool
	clock      clock.Clock

	mu     sync.Mutex
	closed bool
}

// Next reads one frame. The returned frame owns a fresh Mat the caller must Close.
func (c *Capture) Next() (model.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return model.Frame{}, fmt.Errorf("%w: %q is closed", ErrSourceUnavailable, c.descriptor)
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if c.finite {
			return model.Frame{}, ErrEndOfStream
		}
		return model.Frame{}, fmt.Errorf("%w: failed to read frame from %q", ErrSourceUnavailable, c.descriptor)
	}

	return model.NewFrame(&mat, c.clock.Now()), nil
}

// Close releases the capture device.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.capture.Close()
}
