package db

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/banshee-data/colortrack/internal/mailbox"
)

// Recorder logs every location delivered to its subscription.
type Recorder struct {
	db  *DB
	sub *mailbox.Subscription
	now func() time.Time
}

func NewRecorder(db *DB, sub *mailbox.Subscription) *Recorder {
	return &Recorder{db: db, sub: sub, now: time.Now}
}

// Run records until the subscription or mailbox closes, or ctx is done.
// Insert failures are logged and skipped.
func (r *Recorder) Run(ctx context.Context) error {
	defer r.sub.Close()
	for {
		loc, err := r.sub.Next(ctx)
		if errors.Is(err, mailbox.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := r.db.RecordLocation(loc, r.now()); err != nil {
			log.Printf("[DB] failed to record location %s: %v", loc, err)
		}
	}
}
