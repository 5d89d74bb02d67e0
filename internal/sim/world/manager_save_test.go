package world

import (
	"testing"

	"voxelsiege.dev/internal/sim/stage"
)

func TestSnapshotDeltaReconstruction(t *testing.T) {
	m := newTestManager()
	m.SetVoxelProfile(Vec3i{X: 10, Z: 10}, "industrial", "defenders")

	snap := m.CreateSnapshot()

	// Mutate three voxels after the snapshot.
	muts := []Vec3i{{X: 10, Z: 10}, {X: 200, Z: 350}, {X: 509, Z: 3}}
	m.DamageImmediate(muts[0], 60, "raiders")
	m.DamageImmediate(muts[1], 95, "raiders")
	m.DamageImmediate(muts[2], 500, "raiders")

	delta, count := m.CreateDelta()
	if count != 3 {
		t.Fatalf("delta covers %d chunks, want 3", count)
	}

	// Fresh manager: snapshot then delta reproduces the mutated state.
	m2 := newTestManager()
	if err := m2.LoadSnapshot(snap); err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if m2.SnapshotID() != m.SnapshotID() {
		t.Fatalf("snapshot id = %d, want %d", m2.SnapshotID(), m.SnapshotID())
	}
	if err := m2.ApplyDelta(delta); err != nil {
		t.Fatalf("apply delta: %v", err)
	}

	for _, pos := range append(muts, Vec3i{X: 1, Z: 1}, Vec3i{X: 400, Z: 400}) {
		a, _ := m.VoxelAt(pos)
		b, _ := m2.VoxelAt(pos)
		if a.Stage != b.Stage || a.HP != b.HP || a.Flags != b.Flags {
			t.Fatalf("voxel %v mismatch: %v/%d vs %v/%d", pos, a.Stage, a.HP, b.Stage, b.HP)
		}
	}
	if v, _ := m2.VoxelAt(muts[2]); v.Stage != stage.Crater {
		t.Fatalf("mutated voxel %v stage = %v, want Crater", muts[2], v.Stage)
	}
}

func TestApplyDelta_BaseMismatchFailsClosed(t *testing.T) {
	m := newTestManager()
	snap1 := m.CreateSnapshot()

	// A second snapshot invalidates deltas captured against it for worlds
	// still on the first snapshot.
	_ = m.CreateSnapshot()
	m.DamageImmediate(Vec3i{X: 5, Z: 5}, 50, "")
	delta, _ := m.CreateDelta()

	m2 := newTestManager()
	if err := m2.LoadSnapshot(snap1); err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if err := m2.ApplyDelta(delta); err == nil {
		t.Fatalf("delta with stale base accepted")
	}
	if v, _ := m2.VoxelAt(Vec3i{X: 5, Z: 5}); v.HP != 100 {
		t.Fatalf("failed delta mutated state: hp = %d", v.HP)
	}
}

func TestCreateDelta_EmptyWhenClean(t *testing.T) {
	m := newTestManager()
	m.CreateSnapshot()
	if _, count := m.CreateDelta(); count != 0 {
		t.Fatalf("clean world produced a %d-chunk delta", count)
	}

	// Delta extraction clears dirty: a second capture is empty.
	m.DamageImmediate(Vec3i{X: 1, Z: 1}, 10, "")
	if _, count := m.CreateDelta(); count != 1 {
		t.Fatalf("first capture count = %d, want 1", count)
	}
	if _, count := m.CreateDelta(); count != 0 {
		t.Fatalf("second capture not empty")
	}
}

func TestLoadSnapshot_AllOrNothing(t *testing.T) {
	m := newTestManager()
	m.DamageImmediate(Vec3i{X: 30, Z: 30}, 60, "")
	snap := m.CreateSnapshot()

	m2 := newTestManager()
	if err := m2.LoadSnapshot(snap[:len(snap)-10]); err == nil {
		t.Fatalf("truncated snapshot accepted")
	}
	if err := m2.LoadSnapshot(nil); err == nil {
		t.Fatalf("nil snapshot accepted")
	}
	bad := make([]byte, len(snap))
	copy(bad, snap)
	le.PutUint32(bad[0:], 0xDEADBEEF)
	if err := m2.LoadSnapshot(bad); err == nil {
		t.Fatalf("bad magic accepted")
	}
	le.PutUint32(bad[0:], MagicSnapshot)
	le.PutUint32(bad[4:], 99)
	if err := m2.LoadSnapshot(bad); err == nil {
		t.Fatalf("unknown version accepted")
	}

	// Nothing was mutated by the failed loads.
	if v, _ := m2.VoxelAt(Vec3i{X: 30, Z: 30}); v.HP != 100 {
		t.Fatalf("failed load mutated state: hp = %d", v.HP)
	}

	if err := m2.LoadSnapshot(snap); err != nil {
		t.Fatalf("valid snapshot rejected: %v", err)
	}
	if v, _ := m2.VoxelAt(Vec3i{X: 30, Z: 30}); v.HP != 40 {
		t.Fatalf("hp = %d after load, want 40", v.HP)
	}
}

func TestWorldFileRoundTrip(t *testing.T) {
	m := newTestManager()
	m.DamageImmediate(Vec3i{X: 8, Z: 8}, 500, "")   // crater
	m.DamageImmediate(Vec3i{X: 470, Z: 12}, 60, "") // cracked

	blob := m.EncodeWorld()
	info, err := InspectBlob(blob)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Kind != "world" || info.ChunkCount != 64 || info.Destruction != 1 {
		t.Fatalf("info = %+v", info)
	}

	m2 := newTestManager()
	if err := m2.LoadWorld(blob); err != nil {
		t.Fatalf("load world: %v", err)
	}
	if got := m2.TotalDestruction(); got != 1 {
		t.Fatalf("destruction = %d, want 1", got)
	}
	for _, pos := range []Vec3i{{X: 8, Z: 8}, {X: 470, Z: 12}, {X: 100, Z: 100}} {
		a, _ := m.VoxelAt(pos)
		b, _ := m2.VoxelAt(pos)
		if a.Stage != b.Stage || a.HP != b.HP {
			t.Fatalf("voxel %v mismatch: %v/%d vs %v/%d", pos, a.Stage, a.HP, b.Stage, b.HP)
		}
	}
}

func TestInspectBlob_Headers(t *testing.T) {
	m := newTestManager()
	snap := m.CreateSnapshot()
	info, err := InspectBlob(snap)
	if err != nil {
		t.Fatalf("inspect snapshot: %v", err)
	}
	if info.Kind != "snapshot" || info.SnapshotID != m.SnapshotID() || info.ChunkCount != 64 {
		t.Fatalf("snapshot info = %+v", info)
	}

	m.DamageImmediate(Vec3i{X: 1, Z: 1}, 10, "")
	delta, _ := m.CreateDelta()
	info, err = InspectBlob(delta)
	if err != nil {
		t.Fatalf("inspect delta: %v", err)
	}
	if info.Kind != "delta" || info.BaseSnapshotID != m.SnapshotID() || info.ChunkCount != 1 {
		t.Fatalf("delta info = %+v", info)
	}

	if _, err := InspectBlob([]byte("not a blob at all")); err == nil {
		t.Fatalf("garbage accepted")
	}
}
