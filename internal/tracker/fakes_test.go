package tracker

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/banshee-data/colortrack/internal/input"
	"github.com/banshee-data/colortrack/internal/mailbox"
	"github.com/banshee-data/colortrack/internal/vision"
)

// fakeCamera serves blank frames of a fixed size, then reports
// closed. onRead runs before each read with the zero-based read index.
type fakeCamera struct {
	mu     sync.Mutex
	w, h   int
	frames int // -1 for unlimited
	reads  int
	closed bool
	failOn map[int]error
	onRead func(n int)
}

func newFakeCamera(w, h, frames int) *fakeCamera {
	return &fakeCamera{w: w, h: h, frames: frames, failOn: map[int]error{}}
}

func (c *fakeCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && (c.frames < 0 || c.reads < c.frames)
}

func (c *fakeCamera) Read() (image.Image, error) {
	c.mu.Lock()
	n := c.reads
	c.reads++
	hook := c.onRead
	err := c.failOn[n]
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, c.w, c.h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img, nil
}

func (c *fakeCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeCamera) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// scriptedSegmenter returns blobs with the given centroids on every call.
// panicOn makes the n-th call panic.
type scriptedSegmenter struct {
	mu        sync.Mutex
	centroids []image.Point
	calls     int
	counts    []int
	panicOn   int
}

func blobAt(p image.Point, area int) vision.Blob {
	return vision.Blob{
		Area:      area,
		CentroidX: p.X,
		CentroidY: p.Y,
		Bounds:    image.Rect(p.X-5, p.Y-5, p.X+5, p.Y+5),
		Contour:   []image.Point{{p.X - 5, p.Y}, {p.X + 5, p.Y}},
	}
}

func (s *scriptedSegmenter) set(centroids ...image.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.centroids = centroids
}

func (s *scriptedSegmenter) TopBlobs(img image.Image, count int) ([]vision.Blob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.counts = append(s.counts, count)
	if s.panicOn == s.calls {
		panic("segmenter exploded")
	}
	var blobs []vision.Blob
	for i, p := range s.centroids {
		if i == count {
			break
		}
		blobs = append(blobs, blobAt(p, 1000-i))
	}
	return blobs, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	locs []mailbox.Location
}

func (p *recordingPublisher) Publish(loc mailbox.Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locs = append(p.locs, loc)
}

func (p *recordingPublisher) published() []mailbox.Location {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]mailbox.Location(nil), p.locs...)
}

type pixel struct {
	R, G, B int
}

type recordingStrip struct {
	mu     sync.Mutex
	pixels [8]pixel
	shows  int
	err    error
}

func (s *recordingStrip) SetPixel(i, r, g, b int, brightness float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.pixels[i] = pixel{r, g, b}
	return nil
}

func (s *recordingStrip) Show() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shows++
	return nil
}

func (s *recordingStrip) Close() error { return nil }

func (s *recordingStrip) state() ([8]pixel, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pixels, s.shows
}

type fakePreview struct {
	enabled bool
	serves  []image.Point
	frame   image.Image
}

func (p *fakePreview) Enabled() bool { return p.enabled }
func (p *fakePreview) ServeFrames(w, h int) error {
	p.serves = append(p.serves, image.Pt(w, h))
	return nil
}
func (p *fakePreview) SetCurrentFrame(img image.Image) { p.frame = img }
func (p *fakePreview) Stop()                           {}

type fakeSaver struct {
	saved []image.Image
	err   error
}

func (s *fakeSaver) Save(img image.Image) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, img)
	return "snap.png", nil
}

type fakeSnapshotLog struct {
	paths []string
	locs  []mailbox.Location
}

func (l *fakeSnapshotLog) RecordSnapshot(path string, loc mailbox.Location, at time.Time) error {
	l.paths = append(l.paths, path)
	l.locs = append(l.locs, loc)
	return nil
}

// scriptedCommands releases commands on specific reads of the camera.
type scriptedCommands struct {
	mu    sync.Mutex
	queue []input.Command
}

func (c *scriptedCommands) push(cmd ...input.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, cmd...)
}

func (c *scriptedCommands) Poll() (input.Command, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return input.None, false
	}
	cmd := c.queue[0]
	c.queue = c.queue[1:]
	return cmd, true
}

var errCamera = errors.New("camera glitch")

func isColour(img image.Image, x, y int, want color.RGBA) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r>>8) == want.R && uint8(g>>8) == want.G && uint8(b>>8) == want.B
}
