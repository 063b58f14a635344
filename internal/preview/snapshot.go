package preview

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// SnapshotWriter saves frames as PNG files in a directory.
type SnapshotWriter struct {
	dir string
	now func() time.Time
}

func NewSnapshotWriter(dir string) *SnapshotWriter {
	return &SnapshotWriter{dir: dir, now: time.Now}
}

// Save writes img and returns the file path. Names sort by capture time.
func (w *SnapshotWriter) Save(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("snapshot: no frame")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot dir: %w", err)
	}
	name := fmt.Sprintf("snapshot-%s-%s.png", w.now().UTC().Format("20060102T150405.000"), uuid.NewString()[:8])
	path := filepath.Join(w.dir, name)
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	return path, nil
}
