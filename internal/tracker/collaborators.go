package tracker

import (
	"image"
	"time"

	"github.com/banshee-data/colortrack/internal/input"
	"github.com/banshee-data/colortrack/internal/mailbox"
	"github.com/banshee-data/colortrack/internal/vision"
)

// Camera supplies frames. Read blocks at the device frame rate.
type Camera interface {
	IsOpen() bool
	Read() (image.Image, error)
	Close() error
}

// Segmenter finds the count largest target-coloured blobs, largest first.
// It may return fewer than count.
type Segmenter interface {
	TopBlobs(img image.Image, count int) ([]vision.Blob, error)
}

// Preview receives annotated frames for remote viewing.
type Preview interface {
	Enabled() bool
	ServeFrames(width, height int) error
	SetCurrentFrame(img image.Image)
	Stop()
}

// CommandSource yields queued user commands without blocking.
type CommandSource interface {
	Poll() (input.Command, bool)
}

// SnapshotSaver writes a frame to storage and returns where it went.
type SnapshotSaver interface {
	Save(img image.Image) (string, error)
}

// SnapshotLog records saved snapshots alongside the position at the time.
type SnapshotLog interface {
	RecordSnapshot(path string, loc mailbox.Location, at time.Time) error
}

// Publisher receives every changed location.
type Publisher interface {
	Publish(loc mailbox.Location)
}
