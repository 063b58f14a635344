package ledstrip

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

var ErrWriteFailed = errors.New("failed to write to LED controller")

// DefaultBaudRate matches the strip controller firmware.
const DefaultBaudRate = 115200

// PortOptions describes the serial connection to the strip controller. The
// controller always frames at 8N1; only the speed varies between boards.
type PortOptions struct {
	BaudRate int `json:"baud_rate"`
}

// SerialMode returns the 8N1 mode at the configured speed, defaulting to
// DefaultBaudRate.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	baud := o.BaudRate
	switch {
	case baud == 0:
		baud = DefaultBaudRate
	case baud < 0:
		return nil, fmt.Errorf("invalid baud rate %d", baud)
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}, nil
}

// SerialStrip talks a line protocol to a microcontroller driving the LEDs:
//
//	P<index>,<r>,<g>,<b>,<brightness>\n   stage one pixel
//	S\n                                   latch staged pixels
type SerialStrip struct {
	mu   sync.Mutex
	port io.WriteCloser
}

// OpenSerialStrip opens the controller's serial port.
func OpenSerialStrip(path string, opts PortOptions) (*SerialStrip, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return NewSerialStrip(port), nil
}

// NewSerialStrip wraps an already open port.
func NewSerialStrip(port io.WriteCloser) *SerialStrip {
	return &SerialStrip{port: port}
}

func (s *SerialStrip) SetPixel(index, r, g, b int, brightness float64) error {
	return s.send(fmt.Sprintf("P%d,%d,%d,%d,%.2f\n", index, clampByte(r), clampByte(g), clampByte(b), brightness))
}

func (s *SerialStrip) Show() error {
	return s.send("S\n")
}

func (s *SerialStrip) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}

func (s *SerialStrip) send(command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

func clampByte(v int) int {
	return min(max(v, 0), 255)
}
