// Package alignment classifies a tracked position against the tolerance band
// around the frame centre and maps the result to indicator colours.
package alignment

import "image/color"

// Unknown is the sentinel axis value meaning "no target this frame".
const Unknown = -1

// State is the per-axis alignment classification.
type State int

const (
	StateUnknown State = iota
	StateCentered
	StateOff
)

func (s State) String() string {
	switch s {
	case StateCentered:
		return "centered"
	case StateOff:
		return "off"
	default:
		return "unknown"
	}
}

// Classify returns StateUnknown for the sentinel value regardless of
// tolerance, StateCentered when value lies in [center-tolerance,
// center+tolerance] and StateOff otherwise.
func Classify(value, center, tolerance int) State {
	if value == Unknown {
		return StateUnknown
	}
	if center-tolerance <= value && value <= center+tolerance {
		return StateCentered
	}
	return StateOff
}

// Window is the tolerance band for one frame geometry.
type Window struct {
	Width     int
	Height    int
	MiddleInc int // half-width of the band, applied on both axes
}

// NewWindow derives the band from the frame width: half of middlePercent of
// half the frame width. The same increment is used vertically.
func NewWindow(width, height, middlePercent int) Window {
	midX := width / 2
	pct := (float64(middlePercent) / 100.0) / 2
	return Window{
		Width:     width,
		Height:    height,
		MiddleInc: int(float64(midX) * pct),
	}
}

func (w Window) CenterX() int { return w.Width / 2 }
func (w Window) CenterY() int { return w.Height / 2 }

// ClassifyX classifies x against the horizontal centre.
func (w Window) ClassifyX(x int) State {
	return Classify(x, w.CenterX(), w.MiddleInc)
}

// ClassifyY classifies y against the vertical centre.
func (w Window) ClassifyY(y int) State {
	return Classify(y, w.CenterY(), w.MiddleInc)
}

// XBounds returns the left and right guide-line columns.
func (w Window) XBounds() (int, int) {
	return w.CenterX() - w.MiddleInc, w.CenterX() + w.MiddleInc
}

// YBounds returns the top and bottom guide-line rows.
func (w Window) YBounds() (int, int) {
	return w.CenterY() - w.MiddleInc, w.CenterY() + w.MiddleInc
}

// Feedback is the indicator colour class for one axis.
type Feedback int

const (
	FeedbackError Feedback = iota
	FeedbackOK
	FeedbackWarn
)

func (f Feedback) String() string {
	switch f {
	case FeedbackOK:
		return "ok"
	case FeedbackWarn:
		return "warn"
	default:
		return "error"
	}
}

// FeedbackFor maps Centered to ok, Off to warn and Unknown to error.
func FeedbackFor(s State) Feedback {
	switch s {
	case StateCentered:
		return FeedbackOK
	case StateOff:
		return FeedbackWarn
	default:
		return FeedbackError
	}
}

// RGBA returns the drawing colour: green for ok, blue for warn, red for error.
func (f Feedback) RGBA() color.RGBA {
	switch f {
	case FeedbackOK:
		return color.RGBA{G: 255, A: 255}
	case FeedbackWarn:
		return color.RGBA{B: 255, A: 255}
	default:
		return color.RGBA{R: 255, A: 255}
	}
}
