package mailbox

import "fmt"

// Location is the unit of data published by the tracking loop and streamed
// to feed clients. X and Y are pixel coordinates of the target, or -1 when
// no target was found in the frame.
type Location struct {
	X         int
	Y         int
	Width     int
	Height    int
	MiddleInc int
}

// Unknown returns the startup sentinel record.
func Unknown() Location {
	return Location{X: -1, Y: -1}
}

// IsUnknown reports whether the record carries the sentinel position.
func (l Location) IsUnknown() bool {
	return l.X == -1 && l.Y == -1
}

// SamePosition reports whether both records carry the same (x, y) pair.
func (l Location) SamePosition(other Location) bool {
	return l.X == other.X && l.Y == other.Y
}

func (l Location) String() string {
	return fmt.Sprintf("(%d, %d) frame=%dx%d inc=%d", l.X, l.Y, l.Width, l.Height, l.MiddleInc)
}

// Axis selects one half of a record.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// Axis returns the position, frame extent and band half-width for one axis:
// {x, width, inc} for AxisX and {y, height, inc} for AxisY.
func (l Location) Axis(a Axis) (pos, size, middleInc int) {
	if a == AxisY {
		return l.Y, l.Height, l.MiddleInc
	}
	return l.X, l.Width, l.MiddleInc
}
