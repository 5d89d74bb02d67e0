package world

import (
	"math"
	"sort"
)

// EnsureLoaded reloads an unloaded chunk on demand and records the access.
// A freshly reloaded chunk has default voxels; prior damage returns only if
// a snapshot/delta is replayed afterward. Callers that need state to survive
// an unload must persist before unloading. Returns nil for an out-of-grid id.
func (m *Manager) EnsureLoaded(id int32) *Chunk {
	if id < 0 || int(id) >= len(m.chunks) {
		return nil
	}
	ch := m.chunks[id]
	if !ch.Loaded() {
		ch.Reload()
	}
	m.access[id] = m.now
	return ch
}

func (m *Manager) ResidentChunks() int {
	n := 0
	for _, ch := range m.chunks {
		if ch.Loaded() {
			n++
		}
	}
	return n
}

// ManageMemory enforces the resident-chunk budget using the observer
// position as the locality hint. Eviction ranks loaded, non-dirty chunks by
// distance (far first) then last access (stale first), skips chunks closer
// than the unload threshold, and stops once back under budget. Dirty chunks
// are never evicted: their damage has not been persisted. Returns the number
// of chunks unloaded.
func (m *Manager) ManageMemory(observer Vec3i) int {
	resident := m.ResidentChunks()
	if resident <= m.cfg.MemoryBudget {
		return 0
	}

	type candidate struct {
		ch     *Chunk
		dist   float64
		access float64
	}
	var cands []candidate
	for _, ch := range m.chunks {
		if !ch.Loaded() || ch.Dirty() {
			continue
		}
		cx := float64(ch.WorldOffset.X + ChunkSize/2)
		cz := float64(ch.WorldOffset.Z + ChunkSize/2)
		d := math.Hypot(cx-float64(observer.X), cz-float64(observer.Z))
		if d < m.cfg.UnloadMinDistance {
			continue
		}
		cands = append(cands, candidate{ch: ch, dist: d, access: m.access[ch.ID]})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist > cands[j].dist
		}
		return cands[i].access < cands[j].access
	})

	unloaded := 0
	for _, c := range cands {
		if resident <= m.cfg.MemoryBudget {
			break
		}
		c.ch.Unload()
		delete(m.access, c.ch.ID)
		resident--
		unloaded++
	}
	return unloaded
}
