package config

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestRuntimeConfig_SetWidth(t *testing.T) {
	c := NewRuntimeConfig(400, 15, false, false)

	tests := []struct {
		name  string
		value int
		ok    bool
		want  int
	}{
		{"below range", 150, false, 400},
		{"lower bound", 200, true, 200},
		{"in range", 1000, true, 1000},
		{"upper bound", 4000, true, 4000},
		{"above range", 4001, false, 4000},
		{"negative", -10, false, 4000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, c.SetWidth(tt.value))
			assert.Equal(t, tt.want, c.Width())
		})
	}
}

func TestRuntimeConfig_SetTolerance(t *testing.T) {
	c := NewRuntimeConfig(400, 15, false, false)

	assert.False(t, c.SetTolerance(1))
	assert.Equal(t, 15, c.Tolerance())
	assert.True(t, c.SetTolerance(2))
	assert.Equal(t, 2, c.Tolerance())
	assert.True(t, c.SetTolerance(98))
	assert.Equal(t, 98, c.Tolerance())
	assert.False(t, c.SetTolerance(99))
	assert.Equal(t, 98, c.Tolerance())
}

func TestRuntimeConfig_Generation(t *testing.T) {
	c := NewRuntimeConfig(400, 15, false, false)
	g0 := c.Generation()

	c.SetWidth(150) // rejected
	assert.Equal(t, g0, c.Generation(), "rejected write must not invalidate")

	c.SetWidth(1000)
	g1 := c.Generation()
	assert.Greater(t, g1, g0)

	c.SetTolerance(0) // rejected
	assert.Equal(t, g1, c.Generation())

	c.SetTolerance(20)
	g2 := c.Generation()
	assert.Greater(t, g2, g1)

	c.Reset()
	assert.Greater(t, c.Generation(), g2)
}

func TestRuntimeConfig_Reset(t *testing.T) {
	c := NewRuntimeConfig(640, 10, true, false)
	c.SetWidth(800)
	c.SetTolerance(30)
	c.Reset()

	want := RuntimeSnapshot{
		Width:             640,
		Tolerance:         10,
		OriginalWidth:     640,
		OriginalTolerance: 10,
		FlipX:             true,
		FlipY:             false,
		Generation:        3,
	}
	if diff := cmp.Diff(want, c.Snapshot()); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestRuntimeConfig_Concurrent(t *testing.T) {
	c := NewRuntimeConfig(400, 15, false, false)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.SetWidth(200 + i*10 + j)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(400), c.Generation())
}
