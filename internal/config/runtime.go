package config

import "sync"

// Bounds for the live-adjustable tracking parameters.
const (
	MinWidth     = 200
	MaxWidth     = 4000
	MinTolerance = 2
	MaxTolerance = 98
)

// RuntimeConfig holds the tracking parameters that an operator can change
// while the loop runs. Out-of-range writes are rejected silently: the setters
// report false and leave the value unchanged.
//
// Every successful change bumps Generation so the tracking loop knows the
// geometry its last published position was computed against is stale.
type RuntimeConfig struct {
	mu sync.RWMutex

	width     int
	tolerance int

	origWidth     int
	origTolerance int

	flipX bool
	flipY bool

	generation uint64
}

// NewRuntimeConfig captures width and tolerance as both the current and the
// original values restored by Reset. Values are stored as given.
func NewRuntimeConfig(width, tolerance int, flipX, flipY bool) *RuntimeConfig {
	return &RuntimeConfig{
		width:         width,
		tolerance:     tolerance,
		origWidth:     width,
		origTolerance: tolerance,
		flipX:         flipX,
		flipY:         flipY,
	}
}

// Width returns the current frame width in pixels.
func (c *RuntimeConfig) Width() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.width
}

// Tolerance returns the current middle percent.
func (c *RuntimeConfig) Tolerance() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tolerance
}

func (c *RuntimeConfig) FlipX() bool { return c.flipX }
func (c *RuntimeConfig) FlipY() bool { return c.flipY }

// Generation increases on every successful mutation.
func (c *RuntimeConfig) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// SetWidth applies v when it lies in [MinWidth, MaxWidth].
func (c *RuntimeConfig) SetWidth(v int) bool {
	if v < MinWidth || v > MaxWidth {
		return false
	}
	c.mu.Lock()
	c.width = v
	c.generation++
	c.mu.Unlock()
	return true
}

// SetTolerance applies v when it lies in [MinTolerance, MaxTolerance].
func (c *RuntimeConfig) SetTolerance(v int) bool {
	if v < MinTolerance || v > MaxTolerance {
		return false
	}
	c.mu.Lock()
	c.tolerance = v
	c.generation++
	c.mu.Unlock()
	return true
}

// Reset restores the construction-time width and tolerance and always
// invalidates the last published position.
func (c *RuntimeConfig) Reset() {
	c.mu.Lock()
	c.width = c.origWidth
	c.tolerance = c.origTolerance
	c.generation++
	c.mu.Unlock()
}

// RuntimeSnapshot is a consistent copy of the runtime values.
type RuntimeSnapshot struct {
	Width             int    `json:"width"`
	Tolerance         int    `json:"middle_percent"`
	OriginalWidth     int    `json:"original_width"`
	OriginalTolerance int    `json:"original_middle_percent"`
	FlipX             bool   `json:"flip_x"`
	FlipY             bool   `json:"flip_y"`
	Generation        uint64 `json:"generation"`
}

// Snapshot returns all values read under a single lock.
func (c *RuntimeConfig) Snapshot() RuntimeSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return RuntimeSnapshot{
		Width:             c.width,
		Tolerance:         c.tolerance,
		OriginalWidth:     c.origWidth,
		OriginalTolerance: c.origTolerance,
		FlipX:             c.flipX,
		FlipY:             c.flipY,
		Generation:        c.generation,
	}
}
