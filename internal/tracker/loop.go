// Package tracker runs the frame loop: capture, segment, locate the target,
// classify its alignment, drive the indicators and publish changed
// positions.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/colortrack/internal/alignment"
	"github.com/banshee-data/colortrack/internal/config"
	"github.com/banshee-data/colortrack/internal/input"
	"github.com/banshee-data/colortrack/internal/ledstrip"
	"github.com/banshee-data/colortrack/internal/mailbox"
	"github.com/banshee-data/colortrack/internal/monitoring"
	"github.com/banshee-data/colortrack/internal/timeutil"
	"github.com/banshee-data/colortrack/internal/vision"
)

// ErrAlreadyStarted is returned by Run on a loop that has run before.
var ErrAlreadyStarted = errors.New("tracking loop already started")

// DefaultBackoff is the pause after a failed iteration.
const DefaultBackoff = time.Second

// State is the loop lifecycle. Stopped is terminal.
type State int32

const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Stopped {
		return "stopped"
	}
	return "running"
}

// Options wires a Loop to its collaborators. Camera, Segmenter, Publisher
// and Runtime are required; the rest may be nil.
type Options struct {
	Camera    Camera
	Segmenter Segmenter
	Publisher Publisher
	Runtime   *config.RuntimeConfig

	Mode       Mode
	LEDs       ledstrip.Strip
	Preview    Preview
	Commands   CommandSource
	Snapshots  SnapshotSaver
	SnapshotDB SnapshotLog

	// Annotate forces frame markup even without a preview.
	Annotate bool

	Clock   timeutil.Clock
	Backoff time.Duration
}

// Result describes one completed iteration.
type Result struct {
	Frame     uint64
	Blobs     []vision.Blob
	Position  image.Point
	Window    alignment.Window
	Tolerance int
	X, Y      alignment.State
	Published bool
}

// Location is the record the iteration published, or would have.
func (r Result) Location() mailbox.Location {
	return mailbox.Location{
		X:         r.Position.X,
		Y:         r.Position.Y,
		Width:     r.Window.Width,
		Height:    r.Window.Height,
		MiddleInc: r.Window.MiddleInc,
	}
}

// Loop is the tracking state machine. It runs on a single goroutine; Stop,
// State and Stats may be called from any goroutine.
type Loop struct {
	opts Options

	started atomic.Bool
	state   atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	stop   bool

	// loop goroutine only
	frame      uint64
	memo       image.Point
	memoValid  bool
	generation uint64
	lastFrame  image.Image
	lastLoc    mailbox.Location

	stats *statsCollector
}

// New validates opts and returns a loop in the Running state.
func New(opts Options) (*Loop, error) {
	if opts.Camera == nil || opts.Segmenter == nil || opts.Publisher == nil || opts.Runtime == nil {
		return nil, fmt.Errorf("tracker: camera, segmenter, publisher and runtime config are required")
	}
	if opts.LEDs == nil {
		opts.LEDs = ledstrip.DisabledStrip{}
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	return &Loop{opts: opts, stats: newStatsCollector(120)}, nil
}

func (l *Loop) State() State { return State(l.state.Load()) }

// Stop requests the loop to exit after the current iteration.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stop = true
	if l.cancel != nil {
		l.cancel()
	}
}

// Run executes the loop until ctx is cancelled, Stop is called, a Quit
// command arrives, or the camera closes. Iteration failures are logged and
// followed by the backoff pause; they never end the loop. On exit the
// indicators are cleared and the camera is released.
func (l *Loop) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	l.mu.Lock()
	l.cancel = cancel
	if l.stop {
		cancel()
	}
	l.mu.Unlock()

	defer l.shutdown()

	// Consumers learn immediately that nothing is tracked yet.
	l.publish(mailbox.Unknown())
	l.memo, l.memoValid = Unknown, true
	l.generation = l.opts.Runtime.Generation()

	monitoring.Logf("[Tracker] Started in %s mode, width=%d tolerance=%d%%",
		l.opts.Mode, l.opts.Runtime.Width(), l.opts.Runtime.Tolerance())

	for ctx.Err() == nil {
		if !l.opts.Camera.IsOpen() {
			monitoring.Logf("[Tracker] Camera closed")
			break
		}

		start := l.opts.Clock.Now()
		if _, err := l.iterate(); err != nil {
			l.stats.recordError(err)
			monitoring.Logf("[Tracker] Unexpected error in frame loop: %v", err)
			if err := l.opts.Clock.Pause(ctx, l.opts.Backoff); err != nil {
				break
			}
		} else {
			l.stats.recordFrame(l.opts.Clock.Since(start))
		}

		if l.handleCommands() {
			break
		}
	}
	return nil
}

func (l *Loop) shutdown() {
	l.state.Store(int32(Stopped))
	if err := ledstrip.Clear(l.opts.LEDs); err != nil {
		monitoring.Logf("[Tracker] Failed to clear LEDs: %v", err)
	}
	if err := l.opts.Camera.Close(); err != nil {
		monitoring.Logf("[Tracker] Failed to close camera: %v", err)
	}
	monitoring.Logf("[Tracker] Stopped after %d frames", l.frame)
}

// iterate processes one frame. Panics from collaborators are returned as
// errors.
func (l *Loop) iterate() (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	rc := l.opts.Runtime
	raw, err := l.opts.Camera.Read()
	if err != nil {
		return res, fmt.Errorf("read frame: %w", err)
	}
	img := vision.Normalize(raw, rc.Width(), rc.FlipX(), rc.FlipY())
	width, height := img.Bounds().Dx(), img.Bounds().Dy()

	blobs, err := l.opts.Segmenter.TopBlobs(img, l.opts.Mode.BlobCount())
	if err != nil {
		return res, fmt.Errorf("segment frame: %w", err)
	}

	res = Result{
		Frame:     l.frame,
		Blobs:     blobs,
		Position:  TargetPosition(blobs, l.opts.Mode),
		Tolerance: rc.Tolerance(),
	}
	res.Window = alignment.NewWindow(width, height, res.Tolerance)
	res.X = res.Window.ClassifyX(res.Position.X)
	res.Y = res.Window.ClassifyY(res.Position.Y)

	if err := ledstrip.SetIndicators(l.opts.LEDs, alignment.FeedbackFor(res.X), alignment.FeedbackFor(res.Y)); err != nil {
		return res, fmt.Errorf("set indicators: %w", err)
	}

	// A runtime change alters the window the memo was judged against.
	if g := rc.Generation(); g != l.generation {
		l.generation = g
		l.memoValid = false
	}
	if !l.memoValid || res.Position != l.memo {
		l.publish(res.Location())
		l.memo, l.memoValid = res.Position, true
		res.Published = true
	}
	l.lastLoc = res.Location()

	preview := l.opts.Preview != nil && l.opts.Preview.Enabled()
	if preview || l.opts.Annotate {
		Markup(img, res)
	}
	if preview {
		if err := l.opts.Preview.ServeFrames(width, height); err != nil {
			return res, fmt.Errorf("preview: %w", err)
		}
		l.opts.Preview.SetCurrentFrame(img)
	}
	l.lastFrame = img

	l.frame++
	l.stats.recordResult(res)
	return res, nil
}

func (l *Loop) publish(loc mailbox.Location) {
	l.opts.Publisher.Publish(loc)
	l.stats.recordPublish()
	monitoring.Debugf("[Tracker] Published %s", loc)
}

// handleCommands drains queued commands and reports whether Quit was seen.
func (l *Loop) handleCommands() bool {
	if l.opts.Commands == nil {
		return false
	}
	rc := l.opts.Runtime
	for {
		cmd, ok := l.opts.Commands.Poll()
		if !ok {
			return false
		}
		switch cmd {
		case input.WidthDown:
			rc.SetWidth(rc.Width() - 10)
			monitoring.Logf("[Tracker] Width %d", rc.Width())
		case input.WidthUp:
			rc.SetWidth(rc.Width() + 10)
			monitoring.Logf("[Tracker] Width %d", rc.Width())
		case input.ToleranceDown:
			rc.SetTolerance(rc.Tolerance() - 1)
			monitoring.Logf("[Tracker] Tolerance %d%%", rc.Tolerance())
		case input.ToleranceUp:
			rc.SetTolerance(rc.Tolerance() + 1)
			monitoring.Logf("[Tracker] Tolerance %d%%", rc.Tolerance())
		case input.Reset:
			rc.Reset()
			monitoring.Logf("[Tracker] Reset to width %d tolerance %d%%", rc.Width(), rc.Tolerance())
		case input.Save:
			l.saveSnapshot()
		case input.Quit:
			monitoring.Logf("[Tracker] Quit requested")
			return true
		}
	}
}

func (l *Loop) saveSnapshot() {
	if l.opts.Snapshots == nil {
		monitoring.Logf("[Tracker] Snapshots not configured")
		return
	}
	if l.lastFrame == nil {
		monitoring.Logf("[Tracker] No frame to save yet")
		return
	}
	path, err := l.opts.Snapshots.Save(l.lastFrame)
	if err != nil {
		monitoring.Logf("[Tracker] Failed to save snapshot: %v", err)
		return
	}
	monitoring.Logf("[Tracker] Wrote image to %s", path)
	if l.opts.SnapshotDB != nil {
		if err := l.opts.SnapshotDB.RecordSnapshot(path, l.lastLoc, l.opts.Clock.Now()); err != nil {
			monitoring.Logf("[Tracker] Failed to record snapshot: %v", err)
		}
	}
}

// Stats returns a snapshot of the loop's counters.
func (l *Loop) Stats() Stats {
	s := l.stats.snapshot()
	s.State = l.State().String()
	return s
}
