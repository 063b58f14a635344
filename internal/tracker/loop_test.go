package tracker

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/colortrack/internal/alignment"
	"github.com/banshee-data/colortrack/internal/config"
	"github.com/banshee-data/colortrack/internal/input"
	"github.com/banshee-data/colortrack/internal/mailbox"
	"github.com/banshee-data/colortrack/internal/monitoring"
	"github.com/banshee-data/colortrack/internal/timeutil"
)

type harness struct {
	cam   *fakeCamera
	seg   *scriptedSegmenter
	pub   *recordingPublisher
	rc    *config.RuntimeConfig
	clock *timeutil.MockClock
	strip *recordingStrip
	cmds  *scriptedCommands
	opts  Options
}

func newHarness(t *testing.T, frames int) *harness {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(t.Logf) })

	h := &harness{
		cam:   newFakeCamera(640, 480, frames),
		seg:   &scriptedSegmenter{},
		pub:   &recordingPublisher{},
		rc:    config.NewRuntimeConfig(640, 10, false, false),
		clock: timeutil.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		strip: &recordingStrip{},
		cmds:  &scriptedCommands{},
	}
	h.opts = Options{
		Camera:    h.cam,
		Segmenter: h.seg,
		Publisher: h.pub,
		Runtime:   h.rc,
		LEDs:      h.strip,
		Commands:  h.cmds,
		Clock:     h.clock,
	}
	return h
}

func (h *harness) run(t *testing.T) *Loop {
	t.Helper()
	loop, err := New(h.opts)
	require.NoError(t, err)
	require.NoError(t, loop.Run(context.Background()))
	return loop
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	h := newHarness(t, 0)
	h.opts.Publisher = nil
	_, err = New(h.opts)
	assert.Error(t, err)
}

func TestLoop_CenteredPairPublishedOnce(t *testing.T) {
	h := newHarness(t, 5)
	h.seg.set(image.Pt(300, 220), image.Pt(340, 260))

	loop := h.run(t)

	assert.Equal(t, []mailbox.Location{
		mailbox.Unknown(),
		{X: 320, Y: 240, Width: 640, Height: 480, MiddleInc: 16},
	}, h.pub.published())

	st := loop.Stats()
	assert.Equal(t, uint64(5), st.Frames)
	assert.Equal(t, uint64(2), st.Publishes)
	assert.Equal(t, "centered", st.XState)
	assert.Equal(t, "centered", st.YState)
	assert.Equal(t, 2, st.Blobs)
	assert.Equal(t, []int{2, 2, 2, 2, 2}, h.seg.counts, "dual mode asks for two blobs")
}

func TestLoop_SingleBlobKeepsSentinel(t *testing.T) {
	h := newHarness(t, 4)
	h.seg.set(image.Pt(100, 100))

	loop := h.run(t)

	assert.Equal(t, []mailbox.Location{mailbox.Unknown()}, h.pub.published())
	st := loop.Stats()
	assert.Equal(t, -1, st.X)
	assert.Equal(t, "unknown", st.XState)
	assert.Equal(t, "unknown", st.YState)

	// Both axes unknown: red on both groups, then cleared on exit.
	pixels, shows := h.strip.state()
	assert.Equal(t, 5, shows, "four frames plus the final clear")
	for i, p := range pixels {
		assert.Equal(t, pixel{}, p, "pixel %d cleared", i)
	}
}

func TestLoop_LostTargetRepublishesSentinel(t *testing.T) {
	h := newHarness(t, 5)
	h.seg.set(image.Pt(300, 220), image.Pt(340, 260))
	h.cam.onRead = func(n int) {
		if n == 2 {
			h.seg.set(image.Pt(300, 220))
		}
	}

	loop := h.run(t)

	assert.Equal(t, []mailbox.Location{
		mailbox.Unknown(),
		{X: 320, Y: 240, Width: 640, Height: 480, MiddleInc: 16},
		{X: -1, Y: -1, Width: 640, Height: 480, MiddleInc: 16},
	}, h.pub.published(), "a lost pair clears the position instead of keeping the last fix")
	assert.Equal(t, uint64(3), loop.Stats().Publishes)
	assert.Equal(t, "unknown", loop.Stats().XState)
}

func TestLoop_IndicatorColours(t *testing.T) {
	h := newHarness(t, 1)
	// x centred, y far off.
	h.seg.set(image.Pt(310, 10), image.Pt(330, 30))
	h.opts.Camera = &keepOpen{fakeCamera: h.cam}

	var seen [8]pixel
	h.cam.onRead = func(n int) {
		if n == 1 {
			seen, _ = h.strip.state()
			h.cam.Close()
		}
	}
	h.run(t)

	for i := 0; i < 4; i++ {
		assert.Equal(t, pixel{0, 255, 0}, seen[i], "x group green")
	}
	for i := 4; i < 8; i++ {
		assert.Equal(t, pixel{0, 0, 255}, seen[i], "y group blue")
	}
}

// keepOpen keeps a fakeCamera open until explicitly closed, regardless of
// its frame budget.
type keepOpen struct {
	*fakeCamera
}

func (k *keepOpen) IsOpen() bool { return !k.isClosed() }

func TestLoop_SingleMode(t *testing.T) {
	h := newHarness(t, 2)
	h.opts.Mode = Single
	h.seg.set(image.Pt(100, 120), image.Pt(400, 400))

	h.run(t)

	assert.Equal(t, []int{1, 1}, h.seg.counts)
	pub := h.pub.published()
	require.Len(t, pub, 2)
	assert.Equal(t, 100, pub[1].X)
	assert.Equal(t, 120, pub[1].Y)
}

func TestLoop_WidthChangeForcesRepublish(t *testing.T) {
	h := newHarness(t, 4)
	h.seg.set(image.Pt(300, 220), image.Pt(340, 260))
	h.cam.onRead = func(n int) {
		switch n {
		case 1:
			assert.False(t, h.rc.SetWidth(150), "below range")
		case 2:
			assert.True(t, h.rc.SetWidth(1000))
		}
	}

	h.run(t)

	pub := h.pub.published()
	require.Len(t, pub, 3, "sentinel, first fix, republish after width change")
	assert.Equal(t, 640, pub[1].Width)
	assert.Equal(t, 1000, pub[2].Width)
	assert.Equal(t, 750, pub[2].Height, "aspect preserved")
	assert.Equal(t, 25, pub[2].MiddleInc)
	assert.Equal(t, pub[1].X, pub[2].X, "same position, republished anyway")
}

func TestLoop_ToleranceCommandsForceRepublish(t *testing.T) {
	h := newHarness(t, 3)
	h.seg.set(image.Pt(300, 220), image.Pt(340, 260))
	h.cam.onRead = func(n int) {
		if n == 0 {
			h.cmds.push(input.ToleranceUp, input.ToleranceUp)
		}
	}

	h.run(t)

	assert.Equal(t, 12, h.rc.Tolerance())
	pub := h.pub.published()
	require.Len(t, pub, 3)
	assert.Equal(t, 16, pub[1].MiddleInc)
	assert.Equal(t, 19, pub[2].MiddleInc)
}

func TestLoop_WidthAndResetCommands(t *testing.T) {
	h := newHarness(t, 3)
	h.cam.onRead = func(n int) {
		switch n {
		case 0:
			h.cmds.push(input.WidthUp, input.WidthUp, input.ToleranceDown)
		case 1:
			assert.Equal(t, 660, h.rc.Width())
			assert.Equal(t, 9, h.rc.Tolerance())
			h.cmds.push(input.WidthDown, input.Reset)
		}
	}

	h.run(t)

	assert.Equal(t, 640, h.rc.Width())
	assert.Equal(t, 10, h.rc.Tolerance())
}

func TestLoop_QuitCommand(t *testing.T) {
	h := newHarness(t, -1)
	h.cam.onRead = func(n int) {
		if n == 2 {
			h.cmds.push(input.Quit)
		}
	}

	loop := h.run(t)

	assert.Equal(t, 3, h.cam.reads)
	assert.True(t, h.cam.isClosed())
	assert.Equal(t, Stopped, loop.State())
}

func TestLoop_ErrorsBackOffAndContinue(t *testing.T) {
	h := newHarness(t, 4)
	h.seg.set(image.Pt(300, 220), image.Pt(340, 260))
	h.cam.failOn[0] = errCamera
	h.seg.panicOn = 2 // the third read is the second segmenter call

	loop := h.run(t)

	assert.Equal(t, []time.Duration{time.Second, time.Second}, h.clock.Pauses())
	st := loop.Stats()
	assert.Equal(t, uint64(2), st.Errors)
	assert.Equal(t, uint64(2), st.Frames)
	assert.Contains(t, st.LastError, "segmenter exploded")

	pub := h.pub.published()
	require.Len(t, pub, 2)
	assert.Equal(t, 320, pub[1].X)
}

func TestLoop_LEDFailureIsTransient(t *testing.T) {
	h := newHarness(t, 2)
	h.strip.err = errCamera

	loop := h.run(t)
	assert.Equal(t, uint64(2), loop.Stats().Errors)
	assert.Len(t, h.clock.Pauses(), 2)
}

func TestLoop_ContextCancelStops(t *testing.T) {
	h := newHarness(t, -1)
	h.opts.Clock = timeutil.RealClock{}

	loop, err := New(h.opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool { return loop.Stats().Frames > 3 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, Running, loop.State())
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, Stopped, loop.State())
	assert.True(t, h.cam.isClosed())
	assert.ErrorIs(t, loop.Run(context.Background()), ErrAlreadyStarted, "stopped is terminal")
}

func TestLoop_StopDuringBackoff(t *testing.T) {
	h := newHarness(t, -1)
	h.opts.Clock = timeutil.RealClock{}
	h.opts.Backoff = time.Hour
	h.cam.failOn[0] = errCamera

	loop, err := New(h.opts)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	require.Eventually(t, func() bool { return loop.Stats().Errors == 1 }, 2*time.Second, time.Millisecond)
	loop.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not interrupt the backoff pause")
	}
}

func TestLoop_StopBeforeRun(t *testing.T) {
	h := newHarness(t, -1)
	loop, err := New(h.opts)
	require.NoError(t, err)

	loop.Stop()
	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, 0, h.cam.reads)
	assert.Equal(t, []mailbox.Location{mailbox.Unknown()}, h.pub.published())
}

func TestLoop_PreviewGetsAnnotatedFrames(t *testing.T) {
	h := newHarness(t, 2)
	h.seg.set(image.Pt(300, 220), image.Pt(340, 260))
	pv := &fakePreview{enabled: true}
	h.opts.Preview = pv

	h.run(t)

	assert.Equal(t, []image.Point{{640, 480}, {640, 480}}, pv.serves)
	require.NotNil(t, pv.frame)
	assert.True(t, isColour(pv.frame, 320, 240, midpointColour), "target marked")
	assert.True(t, isColour(pv.frame, 304, 100, alignment.FeedbackOK.RGBA()), "left guide line green")
}

func TestLoop_DisabledPreviewSkipsMarkup(t *testing.T) {
	h := newHarness(t, 1)
	h.seg.set(image.Pt(300, 220), image.Pt(340, 260))
	pv := &fakePreview{enabled: false}
	h.opts.Preview = pv

	h.run(t)
	assert.Empty(t, pv.serves)
	assert.Nil(t, pv.frame)
}

func TestLoop_SaveSnapshot(t *testing.T) {
	h := newHarness(t, 2)
	h.seg.set(image.Pt(300, 220), image.Pt(340, 260))
	saver := &fakeSaver{}
	log := &fakeSnapshotLog{}
	h.opts.Snapshots = saver
	h.opts.SnapshotDB = log
	h.cam.onRead = func(n int) {
		if n == 0 {
			h.cmds.push(input.Save)
		}
	}

	h.run(t)

	require.Len(t, saver.saved, 1)
	assert.Equal(t, []string{"snap.png"}, log.paths)
	assert.Equal(t, 320, log.locs[0].X)
}

func TestLoop_SaveWithoutSaver(t *testing.T) {
	h := newHarness(t, 1)
	h.cmds.push(input.Save)
	h.run(t) // logs and continues
}

func TestLoop_RunTwice(t *testing.T) {
	h := newHarness(t, 1)
	loop := h.run(t)
	assert.ErrorIs(t, loop.Run(context.Background()), ErrAlreadyStarted)
}
