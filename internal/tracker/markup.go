package tracker

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/colortrack/internal/alignment"
)

var (
	boxColour      = color.RGBA{B: 255, A: 255}
	contourColour  = color.RGBA{G: 255, A: 255}
	centroidColour = color.RGBA{R: 255, A: 255}
	midpointColour = color.RGBA{R: 255, G: 255, A: 255}
	captionColour  = color.RGBA{R: 255, A: 255}

	captionFont = font.Font{Typeface: plot.DefaultFont.Typeface, Variant: "Sans"}
)

const (
	// At 72 dpi one vg point is one pixel.
	markupDPI   = 72
	lineWidth   = 2
	dotRadius   = 4
	captionSize = 13
)

// Caption is the status line drawn on annotated frames.
func Caption(r Result) string {
	s := fmt.Sprintf("#%d (%d, %d) %d%%", r.Frame, r.Window.Width, r.Window.Height, r.Tolerance)
	if r.Position != Unknown {
		s += fmt.Sprintf(" Avg: (%d, %d)", r.Position.X, r.Position.Y)
	}
	return s
}

// overlay is a transparent vgimg canvas the size of the frame, addressed in
// frame pixel coordinates (origin top left).
type overlay struct {
	*vgimg.Canvas
	origin image.Point
	height float64
}

func newOverlay(bounds image.Rectangle) overlay {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(bounds.Dx()), vg.Length(bounds.Dy())),
		vgimg.UseDPI(markupDPI),
		vgimg.UseBackgroundColor(color.Transparent),
	)
	return overlay{Canvas: c, origin: bounds.Min, height: float64(bounds.Dy())}
}

// at maps a frame position to canvas space, where y grows upwards.
func (o overlay) at(x, y float64) vg.Point {
	return vg.Point{
		X: vg.Length(x - float64(o.origin.X)),
		Y: vg.Length(o.height - (y - float64(o.origin.Y))),
	}
}

// centre of pixel p.
func (o overlay) centre(p image.Point) vg.Point {
	return o.at(float64(p.X)+0.5, float64(p.Y)+0.5)
}

func (o overlay) line(c color.Color, x0, y0, x1, y1 float64) {
	var p vg.Path
	p.Move(o.at(x0, y0))
	p.Line(o.at(x1, y1))
	o.SetColor(c)
	o.SetLineWidth(lineWidth)
	o.Stroke(p)
}

func (o overlay) rect(c color.Color, r image.Rectangle) {
	x0, y0 := float64(r.Min.X)+0.5, float64(r.Min.Y)+0.5
	x1, y1 := float64(r.Max.X)-0.5, float64(r.Max.Y)-0.5
	var p vg.Path
	p.Move(o.at(x0, y0))
	p.Line(o.at(x1, y0))
	p.Line(o.at(x1, y1))
	p.Line(o.at(x0, y1))
	p.Close()
	o.SetColor(c)
	o.SetLineWidth(lineWidth)
	o.Stroke(p)
}

func (o overlay) dot(c color.Color, at image.Point) {
	centre := o.centre(at)
	var p vg.Path
	p.Move(vg.Point{X: centre.X + dotRadius, Y: centre.Y})
	p.Arc(centre, dotRadius, 0, 2*math.Pi)
	p.Close()
	o.SetColor(c)
	o.Fill(p)
}

// pixels fills one square per point, in a single path.
func (o overlay) pixels(c color.Color, pts []image.Point) {
	if len(pts) == 0 {
		return
	}
	var p vg.Path
	for _, pt := range pts {
		x, y := float64(pt.X), float64(pt.Y)
		p.Move(o.at(x, y))
		p.Line(o.at(x+1, y))
		p.Line(o.at(x+1, y+1))
		p.Line(o.at(x, y+1))
		p.Close()
	}
	o.SetColor(c)
	o.Fill(p)
}

func (o overlay) text(c color.Color, x, y float64, s string) {
	face := font.DefaultCache.Lookup(captionFont, captionSize)
	o.SetColor(c)
	o.FillString(face, o.at(x, y), s)
}

// Markup draws the iteration's findings onto img in place: blob boxes,
// contours and centroids, the target point, the tolerance guide lines in
// each axis's feedback colour, and the caption.
func Markup(img draw.Image, r Result) {
	b := img.Bounds()
	if b.Empty() {
		return
	}
	o := newOverlay(b)

	for _, blob := range r.Blobs {
		o.rect(boxColour, blob.Bounds)
		o.pixels(contourColour, blob.Contour)
		o.dot(centroidColour, blob.Centroid())
	}
	if r.Position != Unknown {
		o.dot(midpointColour, r.Position)
	}

	w := r.Window
	xc := alignment.FeedbackFor(r.X).RGBA()
	yc := alignment.FeedbackFor(r.Y).RGBA()
	left, right := w.XBounds()
	top, bottom := w.YBounds()
	for _, x := range []int{left, right} {
		o.line(xc, float64(x)+0.5, 0, float64(x)+0.5, float64(w.Height))
	}
	for _, y := range []int{top, bottom} {
		o.line(yc, 0, float64(y)+0.5, float64(w.Width), float64(y)+0.5)
	}

	o.text(captionColour, float64(b.Min.X+10), float64(b.Min.Y+20), Caption(r))

	draw.Draw(img, b, o.Image(), image.Point{}, draw.Over)
}
