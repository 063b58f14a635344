package tracker

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/colortrack/internal/alignment"
)

// Stats summarises loop activity for the status endpoint.
type Stats struct {
	State     string `json:"state"`
	Frames    uint64 `json:"frames"`
	Errors    uint64 `json:"errors"`
	Publishes uint64 `json:"publishes"`
	LastError string `json:"last_error,omitempty"`

	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	MiddleInc int    `json:"middle_inc"`
	Blobs     int    `json:"blobs"`
	XState    string `json:"x_state"`
	YState    string `json:"y_state"`

	// Frame period over the recent window, in milliseconds.
	FramePeriodMeanMs   float64 `json:"frame_period_mean_ms"`
	FramePeriodStdDevMs float64 `json:"frame_period_stddev_ms"`
	FPS                 float64 `json:"fps"`
}

type statsCollector struct {
	mu        sync.Mutex
	frames    uint64
	errors    uint64
	publishes uint64
	lastErr   string
	last      Result
	periods   []float64
	next      int
	window    int
}

func newStatsCollector(window int) *statsCollector {
	return &statsCollector{window: window, last: Result{Position: Unknown}}
}

func (c *statsCollector) recordFrame(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ms := float64(d) / float64(time.Millisecond)
	if len(c.periods) < c.window {
		c.periods = append(c.periods, ms)
	} else {
		c.periods[c.next] = ms
		c.next = (c.next + 1) % c.window
	}
}

func (c *statsCollector) recordResult(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames++
	c.last = r
}

func (c *statsCollector) recordError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors++
	c.lastErr = err.Error()
}

func (c *statsCollector) recordPublish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishes++
}

func (c *statsCollector) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Frames:    c.frames,
		Errors:    c.errors,
		Publishes: c.publishes,
		LastError: c.lastErr,
		X:         c.last.Position.X,
		Y:         c.last.Position.Y,
		Width:     c.last.Window.Width,
		Height:    c.last.Window.Height,
		MiddleInc: c.last.Window.MiddleInc,
		Blobs:     len(c.last.Blobs),
		XState:    c.last.X.String(),
		YState:    c.last.Y.String(),
	}
	if c.frames == 0 {
		s.XState, s.YState = alignment.StateUnknown.String(), alignment.StateUnknown.String()
	}
	if len(c.periods) > 0 {
		mean, std := stat.MeanStdDev(c.periods, nil)
		if len(c.periods) == 1 {
			std = 0
		}
		s.FramePeriodMeanMs = mean
		s.FramePeriodStdDevMs = std
		if mean > 0 {
			s.FPS = 1000 / mean
		}
	}
	return s
}
