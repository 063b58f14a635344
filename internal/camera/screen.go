package camera

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/vova616/screenshot"
)

// ScreenSource captures the display, or a region of it.
type ScreenSource struct {
	rect image.Rectangle
	open atomic.Bool
}

// OpenScreen checks that the display can be captured. A zero rect means the
// whole screen.
func OpenScreen(rect image.Rectangle) (*ScreenSource, error) {
	if rect.Empty() {
		r, err := screenshot.ScreenRect()
		if err != nil {
			return nil, fmt.Errorf("open screen capture: %w", err)
		}
		rect = r
	}
	s := &ScreenSource{rect: rect}
	s.open.Store(true)
	return s, nil
}

func (s *ScreenSource) IsOpen() bool { return s.open.Load() }

func (s *ScreenSource) Read() (image.Image, error) {
	if !s.open.Load() {
		return nil, ErrClosed
	}
	img, err := screenshot.CaptureRect(s.rect)
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	return img, nil
}

func (s *ScreenSource) Close() error {
	s.open.Store(false)
	return nil
}
