// Package db keeps an optional SQLite log of published positions and saved
// snapshots, with live SQL inspection on the debug mux.
package db

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/colortrack/internal/mailbox"
)

// pragmas are applied to every pooled connection via the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
	"temp_store(MEMORY)",
}

type DB struct {
	*sql.DB
}

// OpenDB opens (creating if needed) the database at path and migrates it to
// the latest schema.
func OpenDB(path string) (*DB, error) {
	dsn := path + "?"
	for i, p := range pragmas {
		if i > 0 {
			dsn += "&"
		}
		dsn += "_pragma=" + p
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// LocationRecord is one logged position.
type LocationRecord struct {
	ID         int64     `json:"id"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	MiddleInc  int       `json:"middle_inc"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (r LocationRecord) Location() mailbox.Location {
	return mailbox.Location{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, MiddleInc: r.MiddleInc}
}

func (db *DB) RecordLocation(loc mailbox.Location, at time.Time) error {
	_, err := db.Exec(
		`INSERT INTO locations (x, y, width, height, middle_inc, recorded_unix) VALUES (?, ?, ?, ?, ?, ?)`,
		loc.X, loc.Y, loc.Width, loc.Height, loc.MiddleInc, toUnix(at),
	)
	return err
}

// RecentLocations returns up to limit of the newest records, oldest first.
func (db *DB) RecentLocations(limit int) ([]LocationRecord, error) {
	rows, err := db.Query(`
		SELECT location_id, x, y, width, height, middle_inc, recorded_unix FROM (
			SELECT * FROM locations ORDER BY location_id DESC LIMIT ?
		) ORDER BY location_id ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []LocationRecord
	for rows.Next() {
		var r LocationRecord
		var unix float64
		if err := rows.Scan(&r.ID, &r.X, &r.Y, &r.Width, &r.Height, &r.MiddleInc, &unix); err != nil {
			return nil, err
		}
		r.RecordedAt = fromUnix(unix)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// SnapshotRecord is a saved frame and the position at the time.
type SnapshotRecord struct {
	ID         int64     `json:"id"`
	Path       string    `json:"path"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (db *DB) RecordSnapshot(path string, loc mailbox.Location, at time.Time) error {
	_, err := db.Exec(
		`INSERT INTO snapshots (path, x, y, width, height, recorded_unix) VALUES (?, ?, ?, ?, ?, ?)`,
		path, loc.X, loc.Y, loc.Width, loc.Height, toUnix(at),
	)
	return err
}

// Snapshots returns up to limit snapshots, newest first.
func (db *DB) Snapshots(limit int) ([]SnapshotRecord, error) {
	rows, err := db.Query(
		`SELECT snapshot_id, path, x, y, width, height, recorded_unix FROM snapshots ORDER BY snapshot_id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		var r SnapshotRecord
		var unix float64
		if err := rows.Scan(&r.ID, &r.Path, &r.X, &r.Y, &r.Width, &r.Height, &unix); err != nil {
			return nil, err
		}
		r.RecordedAt = fromUnix(unix)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func toUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnix(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9/1e3))*1e3).UTC()
}
