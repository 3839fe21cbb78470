package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"gocv.io/x/gocv"

	"trackserver/internal/model"
)

var (
	// ErrSourceUnavailable means the device or stream could not be opened or read. Recoverable.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrEndOfStream means a finite source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
)

// Source produces sequential frames from one open capture handle.
type Source interface {
	Next() (model.Frame, error)
	Close() error
}

// Opener opens a Source for a descriptor.
type Opener interface {
	Open(ctx context.Context, descriptor string) (Source, error)
}

// Options are applied to a capture after it is opened. Zero values leave the driver defaults.
type Options struct {
	Width       int
	Height      int
	FPS         int
	ReadTimeout time.Duration
}

// DeviceOpener opens local devices, stream URIs and files through gocv, and
// "udp://host:port" descriptors as JPEG-over-UDP receivers.
type DeviceOpener struct {
	options Options
	clock   clock.Clock
}

// NewOpener creates an opener that applies the given capture options.
func NewOpener(options Options, clk clock.Clock) *DeviceOpener {
	if clk == nil {
		clk = clock.New()
	}
	return &DeviceOpener{options: options, clock: clk}
}

// Open opens a device index (e.g. "0"), a stream URI or a file path.
func (o *DeviceOpener) Open(ctx context.Context, descriptor string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.HasPrefix(descriptor, udpScheme) {
		return o.openUDP(ctx, descriptor)
	}
	return o.openCapture(descriptor)
}

func (o *DeviceOpener) openCapture(descriptor string) (Source, error) {
	device, finite := ParseDescriptor(descriptor)
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrSourceUnavailable, descriptor, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %q is not opened", ErrSourceUnavailable, descriptor)
	}

	if o.options.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(o.options.Width))
	}
	if o.options.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(o.options.Height))
	}
	if o.options.FPS > 0 {
		capture.Set(gocv.VideoCaptureFPS, float64(o.options.FPS))
	}

	return &Capture{
		descriptor: descriptor,
		capture:    capture,
		finite:     finite,
		clock:      o.clock,
	}, nil
}

// ParseDescriptor converts a descriptor to the value gocv expects. Decimal strings select a
// local device; existing files are finite sources.
func ParseDescriptor(descriptor string) (device interface{}, finite bool) {
	d := strings.TrimSpace(descriptor)
	if id, err := strconv.Atoi(d); err == nil && id >= 0 {
		return id, false
	}
	if strings.Contains(d, "://") {
		return d, false
	}
	if info, err := os.Stat(d); err == nil && !info.IsDir() {
		return d, true
	}
	return d, false
}

