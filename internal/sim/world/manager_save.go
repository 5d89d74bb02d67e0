package world

import "fmt"

// Blob magics for the three persisted formats. Snapshot and delta blobs are
// normally wrapped by the persistence layer (zstd + checksum) before hitting
// disk or network; the world file is the direct whole-grid save.
const (
	MagicSnapshot uint32 = 0x56534E50 // 'VSNP'
	MagicDelta    uint32 = 0x56444C54 // 'VDLT'
	MagicWorld    uint32 = 0x564F5843 // 'VOXC'

	FormatVersion uint32 = 1
)

const blobHeaderSize = 20

// CreateSnapshot serializes every chunk, in id order, into a VSNP blob:
//
//	magic(u32) version(u32) snapshot_id(i32) frame(i32) chunk_count(i32)
//	repeated{ size(u32) chunk_record }
//
// A new snapshot id is assigned, every chunk's dirty flag is cleared, and
// accumulated delta history is dropped: prior deltas no longer link to the
// live snapshot id.
func (m *Manager) CreateSnapshot() []byte {
	m.snapshotID++

	buf := make([]byte, blobHeaderSize, blobHeaderSize+len(m.chunks)*(4+chunkRecordSize))
	le.PutUint32(buf[0:], MagicSnapshot)
	le.PutUint32(buf[4:], FormatVersion)
	le.PutUint32(buf[8:], uint32(m.snapshotID))
	le.PutUint32(buf[12:], uint32(m.frame))
	le.PutUint32(buf[16:], uint32(len(m.chunks)))

	for _, ch := range m.chunks {
		block := ch.Encode()
		buf = appendBlock(buf, block)
		ch.clearDirty()
		ch.changed = map[uint16]struct{}{}
	}
	return buf
}

// LoadSnapshot replaces the full chunk grid from a VSNP blob. Validation is
// all-or-nothing: magic, version, chunk count, every block's size and id are
// checked before any chunk is mutated. On success the manager adopts the
// snapshot's id and frame.
func (m *Manager) LoadSnapshot(b []byte) error {
	blocks, snapID, frame, err := m.parseChunkBlob(b, MagicSnapshot, "snapshot")
	if err != nil {
		return err
	}
	for i, block := range blocks {
		if err := m.chunks[i].Decode(block); err != nil {
			return fmt.Errorf("snapshot chunk %d: %w", i, err)
		}
	}
	m.snapshotID = snapID
	m.frame = frame
	return nil
}

// CreateDelta emits a VDLT blob holding one delta block per dirty chunk and
// clears those chunks' dirty flags. The blob is bound to the current
// snapshot id; count reports how many chunks were included (0 means nothing
// changed since the last extraction).
func (m *Manager) CreateDelta() (blob []byte, count int) {
	var dirty []*Chunk
	for _, ch := range m.chunks {
		if ch.Dirty() {
			dirty = append(dirty, ch)
		}
	}

	buf := make([]byte, blobHeaderSize)
	le.PutUint32(buf[0:], MagicDelta)
	le.PutUint32(buf[4:], FormatVersion)
	le.PutUint32(buf[8:], uint32(m.snapshotID))
	le.PutUint32(buf[12:], uint32(m.frame))
	le.PutUint32(buf[16:], uint32(len(dirty)))

	for _, ch := range dirty {
		buf = appendBlock(buf, ch.EncodeDelta())
		ch.clearDirty()
	}
	return buf, len(dirty)
}

// ApplyDelta replays a VDLT blob. The blob's base snapshot id must match the
// live snapshot id; a mismatch fails closed with no chunk mutated. Block
// structure is validated up front so a malformed tail cannot leave the grid
// half-applied.
func (m *Manager) ApplyDelta(b []byte) error {
	if len(b) < blobHeaderSize {
		return fmt.Errorf("delta blob too short: %d bytes", len(b))
	}
	if magic := le.Uint32(b[0:]); magic != MagicDelta {
		return fmt.Errorf("bad delta magic: %#08x", magic)
	}
	if v := le.Uint32(b[4:]); v != FormatVersion {
		return fmt.Errorf("unsupported delta version: %d", v)
	}
	base := int32(le.Uint32(b[8:]))
	if base != m.snapshotID {
		return fmt.Errorf("delta base snapshot %d does not match live snapshot %d", base, m.snapshotID)
	}
	count := int(int32(le.Uint32(b[16:])))

	type deltaBlock struct {
		id    int32
		bytes []byte
	}
	blocks := make([]deltaBlock, 0, count)
	off := blobHeaderSize
	for i := 0; i < count; i++ {
		if off+4 > len(b) {
			return fmt.Errorf("delta blob truncated at block %d", i)
		}
		size := int(le.Uint32(b[off:]))
		off += 4
		if off+size > len(b) {
			return fmt.Errorf("delta block %d overruns blob", i)
		}
		block := b[off : off+size]
		off += size

		id, err := ChunkIDOf(block)
		if err != nil {
			return fmt.Errorf("delta block %d: %w", i, err)
		}
		if id < 0 || int(id) >= len(m.chunks) {
			return fmt.Errorf("delta block %d: chunk id %d out of grid", i, id)
		}
		if size < deltaHeaderSize {
			return fmt.Errorf("delta block %d too short: %d bytes", i, size)
		}
		n := int(int32(le.Uint32(block[4:])))
		if n < 0 || size != deltaHeaderSize+n*deltaRecordSize {
			return fmt.Errorf("delta block %d size mismatch: %d bytes for %d records", i, size, n)
		}
		blocks = append(blocks, deltaBlock{id: id, bytes: block})
	}
	if off != len(b) {
		return fmt.Errorf("delta blob has %d trailing bytes", len(b)-off)
	}

	for _, blk := range blocks {
		if err := m.chunks[blk.id].ApplyDelta(blk.bytes); err != nil {
			return fmt.Errorf("delta chunk %d: %w", blk.id, err)
		}
	}
	return nil
}

// EncodeWorld serializes the whole grid into the VOXC direct-save format:
//
//	magic(u32) version(u32)=1 total_chunks(u32) destruction_count(i32)
//	repeated{ size(u32) chunk_record }
//
// Unlike CreateSnapshot this does not clear dirty tracking.
func (m *Manager) EncodeWorld() []byte {
	buf := make([]byte, 16, 16+len(m.chunks)*(4+chunkRecordSize))
	le.PutUint32(buf[0:], MagicWorld)
	le.PutUint32(buf[4:], FormatVersion)
	le.PutUint32(buf[8:], uint32(len(m.chunks)))
	le.PutUint32(buf[12:], uint32(m.TotalDestruction()))
	for _, ch := range m.chunks {
		buf = appendBlock(buf, ch.Encode())
	}
	return buf
}

// LoadWorld restores the grid from a VOXC blob, all-or-nothing.
func (m *Manager) LoadWorld(b []byte) error {
	if len(b) < 16 {
		return fmt.Errorf("world blob too short: %d bytes", len(b))
	}
	if magic := le.Uint32(b[0:]); magic != MagicWorld {
		return fmt.Errorf("bad world magic: %#08x", magic)
	}
	if v := le.Uint32(b[4:]); v != FormatVersion {
		return fmt.Errorf("unsupported world version: %d", v)
	}
	count := int(le.Uint32(b[8:]))
	if count != len(m.chunks) {
		return fmt.Errorf("world chunk count %d does not match grid %d", count, len(m.chunks))
	}
	blocks, err := splitBlocks(b[16:], count)
	if err != nil {
		return err
	}
	for i, block := range blocks {
		id, err := ChunkIDOf(block)
		if err != nil || id != int32(i) {
			return fmt.Errorf("world block %d has chunk id %d", i, id)
		}
		if len(block) != chunkRecordSize {
			return fmt.Errorf("world block %d wrong size: %d bytes", i, len(block))
		}
	}
	for i, block := range blocks {
		if err := m.chunks[i].Decode(block); err != nil {
			return fmt.Errorf("world chunk %d: %w", i, err)
		}
	}
	return nil
}

// parseChunkBlob validates a VSNP-layout blob and returns the chunk blocks
// in grid order without mutating anything.
func (m *Manager) parseChunkBlob(b []byte, magic uint32, kind string) (blocks [][]byte, snapID, frame int32, err error) {
	if len(b) < blobHeaderSize {
		return nil, 0, 0, fmt.Errorf("%s blob too short: %d bytes", kind, len(b))
	}
	if got := le.Uint32(b[0:]); got != magic {
		return nil, 0, 0, fmt.Errorf("bad %s magic: %#08x", kind, got)
	}
	if v := le.Uint32(b[4:]); v != FormatVersion {
		return nil, 0, 0, fmt.Errorf("unsupported %s version: %d", kind, v)
	}
	snapID = int32(le.Uint32(b[8:]))
	frame = int32(le.Uint32(b[12:]))
	count := int(int32(le.Uint32(b[16:])))
	if count != len(m.chunks) {
		return nil, 0, 0, fmt.Errorf("%s chunk count %d does not match grid %d", kind, count, len(m.chunks))
	}
	blocks, err = splitBlocks(b[blobHeaderSize:], count)
	if err != nil {
		return nil, 0, 0, err
	}
	for i, block := range blocks {
		if len(block) != chunkRecordSize {
			return nil, 0, 0, fmt.Errorf("%s block %d wrong size: %d bytes", kind, i, len(block))
		}
		id, err := ChunkIDOf(block)
		if err != nil || id != int32(i) {
			return nil, 0, 0, fmt.Errorf("%s block %d has chunk id %d", kind, i, id)
		}
	}
	return blocks, snapID, frame, nil
}

func splitBlocks(b []byte, count int) ([][]byte, error) {
	blocks := make([][]byte, 0, count)
	off := 0
	for i := 0; i < count; i++ {
		if off+4 > len(b) {
			return nil, fmt.Errorf("blob truncated at block %d", i)
		}
		size := int(le.Uint32(b[off:]))
		off += 4
		if size < 0 || off+size > len(b) {
			return nil, fmt.Errorf("block %d overruns blob", i)
		}
		blocks = append(blocks, b[off:off+size])
		off += size
	}
	if off != len(b) {
		return nil, fmt.Errorf("blob has %d trailing bytes", len(b)-off)
	}
	return blocks, nil
}

func appendBlock(buf, block []byte) []byte {
	var size [4]byte
	le.PutUint32(size[:], uint32(len(block)))
	buf = append(buf, size[:]...)
	return append(buf, block...)
}
