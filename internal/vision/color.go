package vision

import (
	"fmt"
	"image"
	"image/color"
)

// HSV uses the OpenCV 8-bit convention: H in [0,180), S and V in [0,255].
type HSV struct {
	H, S, V int
}

// ToHSV converts an 8-bit RGB triple.
func ToHSV(r, g, b uint8) HSV {
	rf, gf, bf := float64(r), float64(g), float64(b)
	maxC := max(rf, gf, bf)
	minC := min(rf, gf, bf)
	diff := maxC - minC

	var h, s float64
	if maxC > 0 {
		s = diff / maxC * 255
	}
	if diff > 0 {
		switch maxC {
		case rf:
			h = 60 * (gf - bf) / diff
		case gf:
			h = 120 + 60*(bf-rf)/diff
		default:
			h = 240 + 60*(rf-gf)/diff
		}
		if h < 0 {
			h += 360
		}
	}
	return HSV{H: int(h/2+0.5) % 180, S: int(s + 0.5), V: int(maxC)}
}

// ColorFinder segments pixels whose hue lies within HSVRange of the target
// colour's hue and whose saturation and value are at least 100.
type ColorFinder struct {
	target        HSV
	hsvRange      int
	minimumPixels int
}

// NewColorFinder builds a finder for a BGR target colour (channel order as
// the command line takes it).
func NewColorFinder(bgr [3]uint8, hsvRange, minimumPixels int) (*ColorFinder, error) {
	if hsvRange < 1 || hsvRange > 90 {
		return nil, fmt.Errorf("hsv range must be between 1 and 90, got %d", hsvRange)
	}
	return &ColorFinder{
		target:        ToHSV(bgr[2], bgr[1], bgr[0]),
		hsvRange:      hsvRange,
		minimumPixels: minimumPixels,
	}, nil
}

// Target returns the target colour in HSV.
func (f *ColorFinder) Target() HSV { return f.target }

func (f *ColorFinder) matches(r, g, b uint8) bool {
	hsv := ToHSV(r, g, b)
	if hsv.S < 100 || hsv.V < 100 {
		return false
	}
	d := hsv.H - f.target.H
	if d < 0 {
		d = -d
	}
	if d > 90 {
		d = 180 - d // hue is circular
	}
	return d <= f.hsvRange
}

// Mask returns the thresholded frame, row-major.
func (f *ColorFinder) Mask(img image.Image) ([]bool, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := make([]bool, w*h)

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < h; y++ {
			row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+w*4]
			for x := 0; x < w; x++ {
				p := row[x*4 : x*4+4]
				mask[y*w+x] = f.matches(p[0], p[1], p[2])
			}
		}
		return mask, w, h
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			mask[y*w+x] = f.matches(c.R, c.G, c.B)
		}
	}
	return mask, w, h
}

// TopBlobs implements Segmenter. Blob coordinates are relative to the
// image's bounds origin.
func (f *ColorFinder) TopBlobs(img image.Image, count int) ([]Blob, error) {
	if img == nil {
		return nil, fmt.Errorf("nil frame")
	}
	mask, w, h := f.Mask(img)
	return rankBlobs(components(mask, w, h, f.minimumPixels), count), nil
}
