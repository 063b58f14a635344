// Package camera provides frame sources for the tracking loop.
package camera

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("camera closed")

// Source produces frames. Read blocks until a frame is available, paced by
// the device where there is one.
type Source interface {
	IsOpen() bool
	Read() (image.Image, error)
	Close() error
}

// Open builds a Source from a --camera spec:
//
//	synthetic[:WxH]   two orbiting discs in the target colour
//	dir:PATH          image files in PATH, cycled in name order
//	screen            the primary display
//	screen:X,Y,W,H    a region of the display
func Open(spec string, bgr [3]uint8) (Source, error) {
	kind, arg, _ := strings.Cut(spec, ":")
	switch kind {
	case "synthetic":
		w, h := 640, 480
		if arg != "" {
			var err error
			if w, h, err = parseSize(arg); err != nil {
				return nil, fmt.Errorf("camera %q: %w", spec, err)
			}
		}
		return NewSynthetic(SyntheticConfig{Width: w, Height: h, BGR: bgr}), nil
	case "dir":
		if arg == "" {
			return nil, fmt.Errorf("camera %q: missing directory", spec)
		}
		return OpenDir(arg)
	case "screen":
		var rect image.Rectangle
		if arg != "" {
			var err error
			if rect, err = parseRect(arg); err != nil {
				return nil, fmt.Errorf("camera %q: %w", spec, err)
			}
		}
		return OpenScreen(rect)
	default:
		return nil, fmt.Errorf("unknown camera %q", spec)
	}
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: expected WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("size %q: invalid width", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("size %q: invalid height", s)
	}
	return w, h, nil
}

func parseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("region %q: expected X,Y,W,H", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("region %q: empty", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}
