package savedb

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLatestSnapshot(t *testing.T) {
	db := openTestDB(t)

	if _, ok, err := db.LatestSnapshot(); err != nil || ok {
		t.Fatalf("empty catalog: ok=%v err=%v", ok, err)
	}

	for _, rec := range []Record{
		{Kind: KindSnapshot, SnapshotID: 1, Frame: 100, Path: "snap-1.vsav", SHA256: "a", Chunks: 64},
		{Kind: KindSnapshot, SnapshotID: 2, Frame: 600, Path: "snap-2.vsav", SHA256: "b", Chunks: 64},
		{Kind: KindWorld, SnapshotID: 0, Frame: 900, Path: "world.vsav", SHA256: "c", Chunks: 64},
	} {
		if _, err := db.Insert(rec); err != nil {
			t.Fatalf("insert %s: %v", rec.Path, err)
		}
	}

	rec, ok, err := db.LatestSnapshot()
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	// The world row at frame 900 must not win; only snapshots count.
	if rec.SnapshotID != 2 || rec.Path != "snap-2.vsav" {
		t.Fatalf("latest = %+v, want snapshot 2", rec)
	}
	if rec.SaveID == "" || rec.CreatedAt == "" {
		t.Fatalf("insert did not fill save_id/created_at: %+v", rec)
	}
}

func TestDeltaChain(t *testing.T) {
	db := openTestDB(t)

	// Deltas for two bases, inserted out of frame order.
	for _, rec := range []Record{
		{Kind: KindDelta, SnapshotID: 2, Frame: 800, Path: "d-800.vsav", SHA256: "x", Chunks: 3},
		{Kind: KindDelta, SnapshotID: 2, Frame: 700, Path: "d-700.vsav", SHA256: "y", Chunks: 1},
		{Kind: KindDelta, SnapshotID: 1, Frame: 200, Path: "d-200.vsav", SHA256: "z", Chunks: 2},
	} {
		if _, err := db.Insert(rec); err != nil {
			t.Fatalf("insert %s: %v", rec.Path, err)
		}
	}

	chain, err := db.DeltaChain(2)
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if len(chain) != 2 || chain[0].Frame != 700 || chain[1].Frame != 800 {
		t.Fatalf("chain = %+v, want frames [700 800]", chain)
	}

	if chain, err := db.DeltaChain(99); err != nil || len(chain) != 0 {
		t.Fatalf("chain for unknown base: %v rows, err=%v", len(chain), err)
	}
}

func TestInsert_RejectsDuplicateSaveID(t *testing.T) {
	db := openTestDB(t)
	rec, err := db.Insert(Record{Kind: KindSnapshot, SnapshotID: 1, Frame: 1, Path: "p", SHA256: "s", Chunks: 64})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := db.Insert(rec); err == nil {
		t.Fatalf("duplicate save_id accepted")
	}
}
