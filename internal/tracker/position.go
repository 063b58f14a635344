package tracker

import (
	"image"

	"github.com/banshee-data/colortrack/internal/alignment"
	"github.com/banshee-data/colortrack/internal/vision"
)

// Mode selects how blobs become a target position.
type Mode int

const (
	// Dual tracks the midpoint between the two largest blobs.
	Dual Mode = iota
	// Single tracks the centroid of the largest blob.
	Single
)

func (m Mode) String() string {
	if m == Single {
		return "single"
	}
	return "dual"
}

// BlobCount is how many blobs the mode asks the segmenter for.
func (m Mode) BlobCount() int {
	if m == Single {
		return 1
	}
	return 2
}

// Unknown is the sentinel target position.
var Unknown = image.Pt(alignment.Unknown, alignment.Unknown)

// TargetPosition reduces ranked blobs to the tracked point. Dual mode needs
// two blobs and returns their midpoint; with fewer it returns Unknown rather
// than guessing from one marker.
func TargetPosition(blobs []vision.Blob, mode Mode) image.Point {
	if mode == Single {
		if len(blobs) == 0 {
			return Unknown
		}
		return blobs[0].Centroid()
	}
	if len(blobs) < 2 {
		return Unknown
	}
	a, b := blobs[0].Centroid(), blobs[1].Centroid()
	return image.Pt(midpoint(a.X, b.X), midpoint(a.Y, b.Y))
}

func midpoint(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d/2 + min(a, b)
}
