package world

import (
	"testing"

	"voxelsiege.dev/internal/sim/stage"
)

func damagedChunk(t *testing.T) *Chunk {
	t.Helper()
	c := NewChunk(5, 5, 0, 100)
	c.SetProfile(0, 0, "power_node", "")
	c.SetFlags(0, 0, FlagPowerNode, 1)
	c.Damage(0, 0, 60, 1.0, 2)   // Cracked
	c.Damage(10, 20, 95, 1.5, 3) // Rubble
	c.Damage(63, 63, 200, 2.0, 4) // Crater
	return c
}

func TestChunkCodec_RoundTrip(t *testing.T) {
	c := damagedChunk(t)
	blob := c.Encode()
	if len(blob) != chunkRecordSize {
		t.Fatalf("encoded size = %d, want %d", len(blob), chunkRecordSize)
	}

	d := NewChunk(5, 5, 0, 100)
	if err := d.Decode(blob); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if d.Version != c.Version || d.DestructionCount != c.DestructionCount ||
		d.LastModifiedFrame != c.LastModifiedFrame || d.ResourceDrops != c.ResourceDrops {
		t.Fatalf("counters mismatch: got v%d/%d/%d/%v want v%d/%d/%d/%v",
			d.Version, d.DestructionCount, d.LastModifiedFrame, d.ResourceDrops,
			c.Version, c.DestructionCount, c.LastModifiedFrame, c.ResourceDrops)
	}
	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			a, b := c.Voxel(x, z), d.Voxel(x, z)
			if a.Stage != b.Stage || a.HP != b.HP || a.Flags != b.Flags {
				t.Fatalf("voxel (%d,%d) mismatch: %v/%d/%v vs %v/%d/%v",
					x, z, a.Stage, a.HP, a.Flags, b.Stage, b.HP, b.Flags)
			}
		}
	}
	if d.Dirty() {
		t.Fatalf("decoded chunk is dirty")
	}
	if len(d.DamagedLocals()) != 3 {
		t.Fatalf("damaged set size = %d, want 3", len(d.DamagedLocals()))
	}
}

func TestChunkCodec_RejectsShortBuffer(t *testing.T) {
	c := NewChunk(1, 1, 0, 100)
	blob := c.Encode()
	if err := c.Decode(blob[:len(blob)-1]); err == nil {
		t.Fatalf("short buffer accepted")
	}
	if err := c.Decode(nil); err == nil {
		t.Fatalf("nil buffer accepted")
	}
}

func TestChunkCodec_RejectsIDMismatch(t *testing.T) {
	blob := NewChunk(1, 1, 0, 100).Encode()
	other := NewChunk(2, 2, 0, 100)
	if err := other.Decode(blob); err == nil {
		t.Fatalf("chunk id mismatch accepted")
	}
}

func TestChunkDelta_RoundTripAndIdempotence(t *testing.T) {
	c := damagedChunk(t)
	delta := c.EncodeDelta()
	if len(c.EncodeDelta()) != deltaHeaderSize {
		t.Fatalf("changed set not cleared by extraction")
	}

	apply := func(d *Chunk) {
		t.Helper()
		if err := d.ApplyDelta(delta); err != nil {
			t.Fatalf("apply delta: %v", err)
		}
	}

	d := NewChunk(5, 5, 0, 100)
	apply(d)
	for _, pos := range [][2]int{{0, 0}, {10, 20}, {63, 63}, {1, 1}} {
		a, b := c.Voxel(pos[0], pos[1]), d.Voxel(pos[0], pos[1])
		if a.Stage != b.Stage || a.HP != b.HP || a.Flags != b.Flags {
			t.Fatalf("voxel %v mismatch after delta: %v/%d vs %v/%d", pos, a.Stage, a.HP, b.Stage, b.HP)
		}
	}
	if got := len(d.DamagedLocals()); got != 3 {
		t.Fatalf("rebuilt damaged set size = %d, want 3", got)
	}

	// Applying the same delta again is a state-level no-op.
	apply(d)
	for _, pos := range [][2]int{{0, 0}, {10, 20}, {63, 63}} {
		a, b := c.Voxel(pos[0], pos[1]), d.Voxel(pos[0], pos[1])
		if a.Stage != b.Stage || a.HP != b.HP {
			t.Fatalf("voxel %v drifted on re-apply", pos)
		}
	}
}

func TestChunkDelta_Validation(t *testing.T) {
	c := damagedChunk(t)
	delta := c.EncodeDelta()

	other := NewChunk(9, 1, 1, 100)
	if err := other.ApplyDelta(delta); err == nil {
		t.Fatalf("delta for chunk 5 accepted by chunk 9")
	}

	d := NewChunk(5, 5, 0, 100)
	if err := d.ApplyDelta(delta[:len(delta)-2]); err == nil {
		t.Fatalf("truncated delta accepted")
	}
	if err := d.ApplyDelta(delta[:4]); err == nil {
		t.Fatalf("headerless delta accepted")
	}

	// Out-of-range index must fail before mutating.
	bad := make([]byte, len(delta))
	copy(bad, delta)
	le.PutUint16(bad[deltaHeaderSize:], uint16(ChunkSize*ChunkSize))
	if err := d.ApplyDelta(bad); err == nil {
		t.Fatalf("out-of-range voxel index accepted")
	}
	if v := d.Voxel(10, 20); v.HP != 100 || v.Stage != stage.Intact {
		t.Fatalf("failed delta partially applied: %+v", v)
	}
}
