// Package savedb catalogs written save artifacts (snapshots, deltas, world
// files) in sqlite so the server can find the latest snapshot and its delta
// chain at startup without scanning the data directory.
package savedb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	KindSnapshot = "snapshot"
	KindDelta    = "delta"
	KindWorld    = "world"
)

// Record is one catalog row. For snapshots SnapshotID is the blob's own id;
// for deltas it is the base snapshot id the delta was captured against.
type Record struct {
	SaveID     string
	Kind       string
	SnapshotID int32
	Frame      int32
	Path       string
	SHA256     string
	Chunks     int
	CreatedAt  string
}

type DB struct {
	db *sql.DB
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	schema := `
CREATE TABLE IF NOT EXISTS saves (
  save_id     TEXT PRIMARY KEY,
  kind        TEXT NOT NULL,
  snapshot_id INTEGER NOT NULL,
  frame       INTEGER NOT NULL,
  path        TEXT NOT NULL,
  sha256      TEXT NOT NULL,
  chunks      INTEGER NOT NULL,
  created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saves_kind_frame ON saves(kind, frame);
CREATE INDEX IF NOT EXISTS idx_saves_base ON saves(kind, snapshot_id, frame);
`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

// Insert records a save artifact. A missing SaveID/CreatedAt is filled in.
func (d *DB) Insert(rec Record) (Record, error) {
	if rec.SaveID == "" {
		rec.SaveID = uuid.NewString()
	}
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	_, err := d.db.Exec(
		`INSERT INTO saves (save_id, kind, snapshot_id, frame, path, sha256, chunks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SaveID, rec.Kind, rec.SnapshotID, rec.Frame, rec.Path, rec.SHA256, rec.Chunks, rec.CreatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("insert save row: %w", err)
	}
	return rec, nil
}

// LatestSnapshot returns the most recent snapshot row, if any.
func (d *DB) LatestSnapshot() (Record, bool, error) {
	row := d.db.QueryRow(
		`SELECT save_id, kind, snapshot_id, frame, path, sha256, chunks, created_at
		 FROM saves WHERE kind = ? ORDER BY frame DESC, created_at DESC LIMIT 1`,
		KindSnapshot,
	)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

// DeltaChain returns the deltas captured against a snapshot id, in capture
// order, for snapshot.Reconstruct.
func (d *DB) DeltaChain(baseSnapshotID int32) ([]Record, error) {
	rows, err := d.db.Query(
		`SELECT save_id, kind, snapshot_id, frame, path, sha256, chunks, created_at
		 FROM saves WHERE kind = ? AND snapshot_id = ? ORDER BY frame ASC, created_at ASC`,
		KindDelta, baseSnapshotID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var rec Record
	err := s.Scan(&rec.SaveID, &rec.Kind, &rec.SnapshotID, &rec.Frame,
		&rec.Path, &rec.SHA256, &rec.Chunks, &rec.CreatedAt)
	return rec, err
}
