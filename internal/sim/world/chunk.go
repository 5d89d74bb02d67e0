package world

import (
	"math"

	"voxelsiege.dev/internal/sim/stage"
)

// ChunkSize is the side length of a chunk in voxels.
const ChunkSize = 64

// Chunk is a fixed 64x64 tile of voxels in row-major order (x fastest, then
// z). It is the unit of dirty tracking, delta extraction and serialization.
// Owned exclusively by the Manager; accessed only from the tick goroutine.
type Chunk struct {
	ID          int32
	CX, CZ      int
	WorldOffset Vec3i

	// voxels is nil while the chunk is unloaded. Identity and the counters
	// below survive an unload.
	voxels []Voxel

	Version           int32
	DestructionCount  int32
	LastModifiedFrame int32
	ResourceDrops     float32

	dirty   bool
	changed map[uint16]struct{}

	// Lookup sets rebuilt on delta application and maintained on mutation.
	damaged    map[uint16]struct{}
	powerNodes map[uint16]struct{}

	defaultMaxHP int
}

// MutationResult reports the outcome of one damage or repair application.
type MutationResult struct {
	Applied bool
	Amount  int // effective amount after the stage multiplier
	HP      int
	Old     stage.Stage
	New     stage.Stage
	Changed bool // stage changed
}

func NewChunk(id int32, cx, cz, defaultMaxHP int) *Chunk {
	c := &Chunk{
		ID:           id,
		CX:           cx,
		CZ:           cz,
		WorldOffset:  Vec3i{X: cx * ChunkSize, Z: cz * ChunkSize},
		changed:      map[uint16]struct{}{},
		damaged:      map[uint16]struct{}{},
		powerNodes:   map[uint16]struct{}{},
		defaultMaxHP: defaultMaxHP,
	}
	c.Reload()
	return c
}

func (c *Chunk) index(x, z int) int {
	// x fastest, then z
	return x + z*ChunkSize
}

func (c *Chunk) inBounds(x, z int) bool {
	return x >= 0 && x < ChunkSize && z >= 0 && z < ChunkSize
}

func (c *Chunk) Loaded() bool { return c.voxels != nil }

// Unload frees the voxel array but keeps identity and counters. A later
// Reload starts from default voxels; prior damage returns only if a
// snapshot or delta is replayed into the chunk.
func (c *Chunk) Unload() {
	c.voxels = nil
	c.changed = map[uint16]struct{}{}
	c.damaged = map[uint16]struct{}{}
	c.powerNodes = map[uint16]struct{}{}
}

// Reload reinitializes the voxel array to undamaged defaults.
func (c *Chunk) Reload() {
	vs := make([]Voxel, ChunkSize*ChunkSize)
	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			i := c.index(x, z)
			vs[i] = Voxel{
				Pos:   Vec3i{X: c.WorldOffset.X + x, Z: c.WorldOffset.Z + z},
				HP:    c.defaultMaxHP,
				MaxHP: c.defaultMaxHP,
				Stage: stage.Intact,
			}
		}
	}
	c.voxels = vs
	c.changed = map[uint16]struct{}{}
	c.damaged = map[uint16]struct{}{}
	c.powerNodes = map[uint16]struct{}{}
}

// Voxel returns the voxel at local coordinates, or nil when out of bounds
// or unloaded.
func (c *Chunk) Voxel(x, z int) *Voxel {
	if !c.inBounds(x, z) || c.voxels == nil {
		return nil
	}
	return &c.voxels[c.index(x, z)]
}

func (c *Chunk) Dirty() bool { return c.dirty }

func (c *Chunk) clearDirty() {
	c.dirty = false
}

func (c *Chunk) markChanged(i int, frame int32) {
	c.dirty = true
	c.Version++
	c.LastModifiedFrame = frame
	c.changed[uint16(i)] = struct{}{}
}

// Damage applies amount (scaled by the stage multiplier) to the voxel at
// local (x, z). Chunk-level bookkeeping: destruction count on entering
// Crater, resource drops on entering Rubble, dirty/changed tracking.
func (c *Chunk) Damage(x, z, amount int, now float64, frame int32) MutationResult {
	v := c.Voxel(x, z)
	if v == nil || !stage.CanTakeDamage(v.Stage) {
		return MutationResult{}
	}
	old := v.Stage
	oldHP := v.HP
	eff := int(math.Round(float64(amount) * stage.DamageMultiplier(v.Stage)))
	next, changed := v.ApplyDamage(eff, now)
	if v.HP == oldHP && !changed {
		return MutationResult{}
	}

	i := c.index(x, z)
	c.markChanged(i, frame)
	if v.HP < v.MaxHP {
		c.damaged[uint16(i)] = struct{}{}
	}
	if changed {
		switch next {
		case stage.Rubble:
			c.ResourceDrops += resourceDropFor(v.Type)
		case stage.Crater:
			c.DestructionCount++
		}
	}
	return MutationResult{Applied: true, Amount: eff, HP: v.HP, Old: old, New: next, Changed: changed}
}

// Repair applies amount of healing at local (x, z). Accepted from any stage,
// including Crater.
func (c *Chunk) Repair(x, z, amount int, now float64, frame int32) MutationResult {
	v := c.Voxel(x, z)
	if v == nil {
		return MutationResult{}
	}
	old := v.Stage
	oldHP := v.HP
	next, changed := v.ApplyRepair(amount, now)
	if v.HP == oldHP && !changed {
		return MutationResult{}
	}

	i := c.index(x, z)
	c.markChanged(i, frame)
	if v.HP >= v.MaxHP {
		delete(c.damaged, uint16(i))
	}
	return MutationResult{Applied: true, Amount: amount, HP: v.HP, Old: old, New: next, Changed: changed}
}

// SetProfile stamps type/faction onto a voxel at world init. Does not mark
// the chunk dirty: profile data is not part of the persisted voxel record.
func (c *Chunk) SetProfile(x, z int, voxelType, factionID string) {
	if v := c.Voxel(x, z); v != nil {
		v.Type = voxelType
		v.FactionID = factionID
	}
}

// SetFlags ORs role flags onto a voxel and keeps the power-node lookup set
// in sync. Flags are persisted, so the change is dirty-tracked.
func (c *Chunk) SetFlags(x, z int, flags NodeFlag, frame int32) {
	v := c.Voxel(x, z)
	if v == nil {
		return
	}
	if v.Flags&flags == flags {
		return
	}
	v.Flags |= flags
	i := c.index(x, z)
	if v.Flags.Has(FlagPowerNode) || v.Flags.Has(FlagPowerHub) {
		c.powerNodes[uint16(i)] = struct{}{}
	}
	c.markChanged(i, frame)
}

// DamagedLocals returns the local indices of voxels below Intact.
func (c *Chunk) DamagedLocals() []uint16 {
	out := make([]uint16, 0, len(c.damaged))
	for i := range c.damaged {
		out = append(out, i)
	}
	return out
}

func resourceDropFor(voxelType string) float32 {
	switch voxelType {
	case "industrial":
		return 75
	case "power_node", "power_hub":
		return 100
	case "ree_node", "resource":
		return 150
	default:
		return 50
	}
}
