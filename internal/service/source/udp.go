package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"gocv.io/x/gocv"

	"trackserver/internal/model"
)

const (
	udpScheme         = "udp://"
	udpPacketSize     = 65507
	defaultUDPTimeout = 5 * time.Second
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// Assembler rebuilds JPEG frames from datagrams. A datagram starting with the
// JPEG header starts a new frame; one ending with the footer completes it.
type Assembler struct {
	buf bytes.Buffer
}

// Push adds a datagram and returns a complete frame when one is available.
func (a *Assembler) Push(data []byte) ([]byte, bool) {
	if bytes.HasPrefix(data, jpegHeader) {
		a.buf.Reset()
	} else if a.buf.Len() == 0 {
		// mid-frame datagram with no start seen
		return nil, false
	}
	a.buf.Write(data)

	if !bytes.HasSuffix(data, jpegFooter) {
		return nil, false
	}
	frame := make([]byte, a.buf.Len())
	copy(frame, a.buf.Bytes())
	a.buf.Reset()
	return frame, true
}

func (o *DeviceOpener) openUDP(ctx context.Context, descriptor string) (Source, error) {
	address := strings.TrimPrefix(descriptor, udpScheme)
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve UDP address %q: %v", ErrSourceUnavailable, address, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen on %q: %v", ErrSourceUnavailable, address, err)
	}

	timeout := o.options.ReadTimeout
	if timeout <= 0 {
		timeout = defaultUDPTimeout
	}
	return &UDPSource{
		descriptor: descriptor,
		conn:       conn,
		timeout:    timeout,
		clock:      o.clock,
		packet:     make([]byte, udpPacketSize),
	}, nil
}

// UDPSource receives JPEG frames sent as UDP datagrams by network cameras.
type UDPSource struct {
	descriptor string
	conn       *net.UDPConn
	timeout    time.Duration
	clock      clock.Clock
	packet     []byte
	assembler  Assembler

	closeOnce sync.Once
	closeErr  error
}

// Addr returns the local listening address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Next blocks until a full frame is received. No complete frame within the
// read timeout is reported as ErrSourceUnavailable.
func (s *UDPSource) Next() (model.Frame, error) {
	deadline := time.Now().Add(s.timeout)
	for {
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return model.Frame{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		n, _, err := s.conn.ReadFromUDP(s.packet)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return model.Frame{}, fmt.Errorf("%w: no frame from %s within %s", ErrSourceUnavailable, s.descriptor, s.timeout)
			}
			return model.Frame{}, fmt.Errorf("%w: error reading UDP packet: %v", ErrSourceUnavailable, err)
		}

		data, ok := s.assembler.Push(s.packet[:n])
		if !ok {
			continue
		}

		mat, err := gocv.IMDecode(data, gocv.IMReadColor)
		if err != nil || mat.Empty() {
			mat.Close()
			continue
		}
		return model.NewFrame(&mat, s.clock.Now()), nil
	}
}

// Close stops listening.
func (s *UDPSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
