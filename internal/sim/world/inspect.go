package world

import "fmt"

// BlobInfo summarizes a persisted blob's header for tooling.
type BlobInfo struct {
	Kind           string
	Version        uint32
	SnapshotID     int32 // snapshot blobs
	BaseSnapshotID int32 // delta blobs
	Frame          int32
	ChunkCount     int
	Destruction    int32 // world files
}

// InspectBlob identifies a decompressed blob by magic and parses its header.
func InspectBlob(b []byte) (BlobInfo, error) {
	if len(b) < 16 {
		return BlobInfo{}, fmt.Errorf("blob too short: %d bytes", len(b))
	}
	switch le.Uint32(b[0:]) {
	case MagicSnapshot:
		if len(b) < blobHeaderSize {
			return BlobInfo{}, fmt.Errorf("snapshot blob too short: %d bytes", len(b))
		}
		return BlobInfo{
			Kind:       "snapshot",
			Version:    le.Uint32(b[4:]),
			SnapshotID: int32(le.Uint32(b[8:])),
			Frame:      int32(le.Uint32(b[12:])),
			ChunkCount: int(int32(le.Uint32(b[16:]))),
		}, nil
	case MagicDelta:
		if len(b) < blobHeaderSize {
			return BlobInfo{}, fmt.Errorf("delta blob too short: %d bytes", len(b))
		}
		return BlobInfo{
			Kind:           "delta",
			Version:        le.Uint32(b[4:]),
			BaseSnapshotID: int32(le.Uint32(b[8:])),
			Frame:          int32(le.Uint32(b[12:])),
			ChunkCount:     int(int32(le.Uint32(b[16:]))),
		}, nil
	case MagicWorld:
		return BlobInfo{
			Kind:        "world",
			Version:     le.Uint32(b[4:]),
			ChunkCount:  int(le.Uint32(b[8:])),
			Destruction: int32(le.Uint32(b[12:])),
		}, nil
	}
	return BlobInfo{}, fmt.Errorf("unknown blob magic: %#08x", le.Uint32(b[0:]))
}
