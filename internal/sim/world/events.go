package world

import "voxelsiege.dev/internal/sim/stage"

// EventKind enumerates the world-level events aggregated by the Manager.
// Consumers (rendering, pathfinding, power grid) drain the batch returned by
// Tick once per frame; there is no hidden re-entrant signal fan-out.
type EventKind uint8

const (
	EvtVoxelDamaged EventKind = iota + 1
	EvtStageChanged
	EvtVoxelDestroyed
	EvtChunkModified
	EvtBatchComplete
)

func (k EventKind) String() string {
	switch k {
	case EvtVoxelDamaged:
		return "VOXEL_DAMAGED"
	case EvtStageChanged:
		return "STAGE_CHANGED"
	case EvtVoxelDestroyed:
		return "VOXEL_DESTROYED"
	case EvtChunkModified:
		return "CHUNK_MODIFIED"
	case EvtBatchComplete:
		return "BATCH_COMPLETE"
	}
	return "UNKNOWN"
}

// Event is one typed entry in a tick's batch. Field use depends on Kind:
// damage events carry Pos/Amount/HP, stage changes carry Old/New, chunk
// events carry ChunkID, batch completion carries Count.
type Event struct {
	Kind    EventKind
	Pos     Vec3i
	Amount  int
	HP      int
	Old     stage.Stage
	New     stage.Stage
	ChunkID int32
	Count   int
}
