package vision

import (
	"image"

	"github.com/disintegration/imaging"
)

// Normalize resizes img to width (height follows the aspect ratio) and
// applies the configured flips. flipX mirrors top-to-bottom and flipY mirrors
// left-to-right, matching the camera mount conventions of the command line.
func Normalize(img image.Image, width int, flipX, flipY bool) *image.NRGBA {
	var out *image.NRGBA
	if img.Bounds().Dx() == width {
		out = imaging.Clone(img)
	} else {
		out = imaging.Resize(img, width, 0, imaging.Linear)
	}
	if flipX {
		out = imaging.FlipV(out)
	}
	if flipY {
		out = imaging.FlipH(out)
	}
	return out
}
