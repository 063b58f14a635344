package camera

import (
	"image"
	"image/color"
	"math"
	"sync"
	"time"
)

// SyntheticConfig configures a SyntheticSource.
type SyntheticConfig struct {
	Width, Height int
	BGR           [3]uint8
	Radius        int           // disc radius, default 18
	Separation    int           // distance between disc centres, default 120
	Interval      time.Duration // pause between frames, 0 for none
}

// SyntheticSource renders two discs of the target colour rotating about a
// point that drifts around the frame centre. The midpoint of the discs is
// the drift point, so the tracker's output sweeps in and out of the
// tolerance band.
type SyntheticSource struct {
	cfg SyntheticConfig

	mu     sync.Mutex
	frame  int
	open   bool
	target color.NRGBA
	last   time.Time
}

func NewSynthetic(cfg SyntheticConfig) *SyntheticSource {
	if cfg.Radius <= 0 {
		cfg.Radius = 18
	}
	if cfg.Separation <= 0 {
		cfg.Separation = 120
	}
	return &SyntheticSource{
		cfg:    cfg,
		open:   true,
		target: color.NRGBA{R: cfg.BGR[2], G: cfg.BGR[1], B: cfg.BGR[0], A: 255},
	}
}

func (s *SyntheticSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Midpoint returns where the disc pair is centred on frame n.
func (s *SyntheticSource) Midpoint(n int) image.Point {
	cx, cy := s.cfg.Width/2, s.cfg.Height/2
	drift := float64(s.cfg.Width) / 8
	t := float64(n) * 0.02
	return image.Pt(cx+int(drift*math.Sin(t)), cy+int(drift*0.5*math.Sin(2*t)))
}

func (s *SyntheticSource) Read() (image.Image, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	n := s.frame
	s.frame++
	last := s.last
	s.mu.Unlock()

	if s.cfg.Interval > 0 && !last.IsZero() {
		if wait := s.cfg.Interval - time.Since(last); wait > 0 {
			time.Sleep(wait)
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, s.cfg.Width, s.cfg.Height))
	bg := color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = bg.R, bg.G, bg.B, bg.A
	}

	mid := s.Midpoint(n)
	angle := float64(n) * 0.05
	half := float64(s.cfg.Separation) / 2
	dx, dy := int(half*math.Cos(angle)), int(half*math.Sin(angle))
	fillDisc(img, mid.X+dx, mid.Y+dy, s.cfg.Radius, s.target)
	fillDisc(img, mid.X-dx, mid.Y-dy, s.cfg.Radius, s.target)

	s.mu.Lock()
	s.last = time.Now()
	s.mu.Unlock()
	return img, nil
}

func (s *SyntheticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

func fillDisc(img *image.NRGBA, cx, cy, r int, c color.NRGBA) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r && image.Pt(x, y).In(img.Rect) {
				img.SetNRGBA(x, y, c)
			}
		}
	}
}
