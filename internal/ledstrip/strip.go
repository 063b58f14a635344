// Package ledstrip drives the alignment indicator LEDs. The strip is an
// optional capability: on hosts without an attached controller the
// DisabledStrip no-op is used and callers never branch on hardware.
package ledstrip

import (
	"os"

	"github.com/banshee-data/colortrack/internal/alignment"
	"github.com/banshee-data/colortrack/internal/monitoring"
)

// Strip is an addressable RGB LED strip. SetPixel stages a colour; Show
// latches all staged pixels at once.
type Strip interface {
	SetPixel(index, r, g, b int, brightness float64) error
	Show() error
	Close() error
}

// Indicator layout: pixels [0,4) show the x axis, [4,8) the y axis.
const (
	PixelsPerAxis = 4
	Brightness    = 0.05
)

// SetIndicators lights the x and y groups with the feedback colours.
func SetIndicators(s Strip, x, y alignment.Feedback) error {
	xc, yc := x.RGBA(), y.RGBA()
	return setGroups(s, [3]int{int(xc.R), int(xc.G), int(xc.B)}, [3]int{int(yc.R), int(yc.G), int(yc.B)})
}

// Clear turns every indicator pixel off.
func Clear(s Strip) error {
	return setGroups(s, [3]int{}, [3]int{})
}

func setGroups(s Strip, x, y [3]int) error {
	for i := 0; i < PixelsPerAxis; i++ {
		if err := s.SetPixel(i, x[0], x[1], x[2], Brightness); err != nil {
			return err
		}
	}
	for i := PixelsPerAxis; i < 2*PixelsPerAxis; i++ {
		if err := s.SetPixel(i, y[0], y[1], y[2], Brightness); err != nil {
			return err
		}
	}
	return s.Show()
}

// DisabledStrip is the no-op Strip used when no LED hardware is present or
// LEDs are turned off.
type DisabledStrip struct{}

func (DisabledStrip) SetPixel(int, int, int, int, float64) error { return nil }
func (DisabledStrip) Show() error                                { return nil }
func (DisabledStrip) Close() error                               { return nil }

// opener is replaced in tests.
var opener = func(path string, opts PortOptions) (Strip, error) {
	return OpenSerialStrip(path, opts)
}

// Probe selects the strip implementation at startup: the serial strip when
// LEDs are enabled and the controller's device node exists, otherwise the
// disabled strip. Open failures degrade to the disabled strip with a log line
// because the indicators are advisory.
func Probe(enabled bool, path string, opts PortOptions) Strip {
	if !enabled {
		return DisabledStrip{}
	}
	if _, err := os.Stat(path); err != nil {
		monitoring.Logf("[LED] no controller at %s, indicators disabled", path)
		return DisabledStrip{}
	}
	s, err := opener(path, opts)
	if err != nil {
		monitoring.Logf("[LED] failed to open %s: %v, indicators disabled", path, err)
		return DisabledStrip{}
	}
	monitoring.Logf("[LED] using controller at %s", path)
	return s
}
