package world

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"voxelsiege.dev/internal/sim/stage"
)

// Chunk binary record: 20-byte header followed by 3 bytes per voxel.
//
//	chunk_id(i32) version(i32) destruction_count(i32)
//	last_modified_frame(i32) resource_drops(f32)
//	then per voxel: stage(u8) hp(u8, 0..100 percent) flags(u8)
const (
	chunkHeaderSize = 20
	voxelRecordSize = 3
	chunkRecordSize = chunkHeaderSize + ChunkSize*ChunkSize*voxelRecordSize
)

var le = binary.LittleEndian

// ChunkIDOf peeks the chunk id of an encoded chunk or delta block; both
// formats lead with chunk_id(i32).
func ChunkIDOf(b []byte) (int32, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("block too short: %d bytes", len(b))
	}
	return int32(le.Uint32(b)), nil
}

// Encode serializes the chunk. An unloaded chunk encodes as default
// (undamaged) voxels; its identity and counters are still carried.
func (c *Chunk) Encode() []byte {
	buf := make([]byte, chunkRecordSize)
	le.PutUint32(buf[0:], uint32(c.ID))
	le.PutUint32(buf[4:], uint32(c.Version))
	le.PutUint32(buf[8:], uint32(c.DestructionCount))
	le.PutUint32(buf[12:], uint32(c.LastModifiedFrame))
	le.PutUint32(buf[16:], math.Float32bits(c.ResourceDrops))

	off := chunkHeaderSize
	for i := 0; i < ChunkSize*ChunkSize; i++ {
		st, hp, fl := stage.Intact, uint8(100), uint8(0)
		if c.voxels != nil {
			v := &c.voxels[i]
			st = v.Stage
			hp = hpByte(v.HP, v.MaxHP)
			fl = uint8(v.Flags)
		}
		buf[off] = uint8(st)
		buf[off+1] = hp
		buf[off+2] = fl
		off += voxelRecordSize
	}
	return buf
}

// Decode is the exact inverse of Encode. It replaces the chunk's voxel
// contents and counters, rebuilds the damaged/power-node lookup sets, and
// leaves the chunk clean (not dirty, no changed indices). The buffer's
// chunk id must match.
func (c *Chunk) Decode(b []byte) error {
	if len(b) < chunkRecordSize {
		return fmt.Errorf("chunk record too short: %d bytes, want %d", len(b), chunkRecordSize)
	}
	id := int32(le.Uint32(b[0:]))
	if id != c.ID {
		return fmt.Errorf("chunk id mismatch: record %d, chunk %d", id, c.ID)
	}
	c.Version = int32(le.Uint32(b[4:]))
	c.DestructionCount = int32(le.Uint32(b[8:]))
	c.LastModifiedFrame = int32(le.Uint32(b[12:]))
	c.ResourceDrops = math.Float32frombits(le.Uint32(b[16:]))

	if c.voxels == nil {
		c.Reload()
	}
	c.damaged = map[uint16]struct{}{}
	c.powerNodes = map[uint16]struct{}{}
	off := chunkHeaderSize
	for i := 0; i < ChunkSize*ChunkSize; i++ {
		v := &c.voxels[i]
		c.applyVoxelRecord(v, uint16(i), b[off], b[off+1], b[off+2])
		off += voxelRecordSize
	}
	c.dirty = false
	c.changed = map[uint16]struct{}{}
	return nil
}

// Delta block: 8-byte header then 5 bytes per changed voxel.
//
//	chunk_id(i32) changed_count(i32)
//	then per record: index(u16) stage(u8) hp(u8) flags(u8)
const (
	deltaHeaderSize = 8
	deltaRecordSize = 5
)

// EncodeDelta serializes the changed voxels since the last extraction and
// clears the changed-index set. Indices are emitted in ascending order so
// identical states produce identical blobs.
func (c *Chunk) EncodeDelta() []byte {
	idxs := make([]uint16, 0, len(c.changed))
	for i := range c.changed {
		idxs = append(idxs, i)
	}
	sort.Slice(idxs, func(a, b int) bool { return idxs[a] < idxs[b] })

	buf := make([]byte, deltaHeaderSize+len(idxs)*deltaRecordSize)
	le.PutUint32(buf[0:], uint32(c.ID))
	le.PutUint32(buf[4:], uint32(len(idxs)))
	off := deltaHeaderSize
	for _, i := range idxs {
		v := &c.voxels[i]
		le.PutUint16(buf[off:], i)
		buf[off+2] = uint8(v.Stage)
		buf[off+3] = hpByte(v.HP, v.MaxHP)
		buf[off+4] = uint8(v.Flags)
		off += deltaRecordSize
	}
	c.changed = map[uint16]struct{}{}
	return buf
}

// ApplyDelta replays a delta block onto the chunk. Validates the chunk id
// and record bounds before mutating anything; applying the same delta twice
// is a state-level no-op.
func (c *Chunk) ApplyDelta(b []byte) error {
	if len(b) < deltaHeaderSize {
		return fmt.Errorf("delta block too short: %d bytes", len(b))
	}
	id := int32(le.Uint32(b[0:]))
	if id != c.ID {
		return fmt.Errorf("delta chunk id mismatch: record %d, chunk %d", id, c.ID)
	}
	count := int(int32(le.Uint32(b[4:])))
	if count < 0 || len(b) != deltaHeaderSize+count*deltaRecordSize {
		return fmt.Errorf("delta block size mismatch: %d bytes for %d records", len(b), count)
	}
	// Validate all indices before touching state.
	for r := 0; r < count; r++ {
		off := deltaHeaderSize + r*deltaRecordSize
		if i := le.Uint16(b[off:]); int(i) >= ChunkSize*ChunkSize {
			return fmt.Errorf("delta voxel index out of range: %d", i)
		}
	}
	if c.voxels == nil {
		c.Reload()
	}
	for r := 0; r < count; r++ {
		off := deltaHeaderSize + r*deltaRecordSize
		i := le.Uint16(b[off:])
		c.applyVoxelRecord(&c.voxels[i], i, b[off+2], b[off+3], b[off+4])
	}
	return nil
}

func (c *Chunk) applyVoxelRecord(v *Voxel, i uint16, stageB, hpB, flagsB uint8) {
	v.Stage = stage.Stage(stageB)
	v.HP = hpFromByte(hpB, v.MaxHP)
	v.Flags = NodeFlag(flagsB)
	if v.HP < v.MaxHP {
		c.damaged[i] = struct{}{}
	} else {
		delete(c.damaged, i)
	}
	if v.Flags.Has(FlagPowerNode) || v.Flags.Has(FlagPowerHub) {
		c.powerNodes[i] = struct{}{}
	} else {
		delete(c.powerNodes, i)
	}
}

// hpByte stores hp as a 0..100 percent byte. Nonzero hp never rounds to
// zero: a live voxel must not decode as cratered.
func hpByte(hp, maxHP int) uint8 {
	if maxHP <= 0 || hp <= 0 {
		return 0
	}
	if hp >= maxHP {
		return 100
	}
	p := int(math.Round(float64(hp) / float64(maxHP) * 100))
	if p < 1 {
		p = 1
	}
	if p > 99 {
		p = 99
	}
	return uint8(p)
}

func hpFromByte(b uint8, maxHP int) int {
	if maxHP <= 0 {
		return 0
	}
	return int(math.Round(float64(b) / 100 * float64(maxHP)))
}
