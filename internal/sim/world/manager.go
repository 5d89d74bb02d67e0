package world

import (
	"math"

	"voxelsiege.dev/internal/sim/stage"
)

// NodeType names the special-node roles that can be registered on a voxel.
type NodeType uint8

const (
	NodePower NodeType = iota + 1
	NodePowerHub
	NodeStrategic
	NodeResource
	NodeIndustrial
	NodeResidential
	NodeSpawner
)

func (n NodeType) String() string {
	switch n {
	case NodePower:
		return "POWER_NODE"
	case NodePowerHub:
		return "POWER_HUB"
	case NodeStrategic:
		return "STRATEGIC"
	case NodeResource:
		return "RESOURCE"
	case NodeIndustrial:
		return "INDUSTRIAL"
	case NodeResidential:
		return "RESIDENTIAL"
	case NodeSpawner:
		return "SPAWNER"
	}
	return "UNKNOWN"
}

func (n NodeType) Flag() NodeFlag {
	switch n {
	case NodePower:
		return FlagPowerNode
	case NodePowerHub:
		return FlagPowerHub
	case NodeStrategic:
		return FlagStrategic
	case NodeResource:
		return FlagResource
	case NodeIndustrial:
		return FlagIndustrial
	case NodeResidential:
		return FlagResidential
	case NodeSpawner:
		return FlagSpawner
	}
	return 0
}

func NodeTypeFromString(s string) (NodeType, bool) {
	for _, n := range []NodeType{NodePower, NodePowerHub, NodeStrategic, NodeResource, NodeIndustrial, NodeResidential, NodeSpawner} {
		if n.String() == s {
			return n, true
		}
	}
	return 0, false
}

type CommandKind uint8

const (
	CmdDamage CommandKind = iota + 1
	CmdRepair
)

// Command is one queued damage or repair request. Source is the attacking
// faction id; empty means environmental.
type Command struct {
	Kind   CommandKind
	Pos    Vec3i
	Amount int
	Source string
}

// Manager owns the fixed chunk grid, the FIFO command queue and the
// special-node registry. It is a single-threaded authoritative store: all
// methods must be called from the tick goroutine only. Persistence and
// memory management go through Manager accessors, never at chunks directly.
type Manager struct {
	cfg Config

	chunks []*Chunk

	queue     []Command
	queueHead int

	frame      int32
	now        float64
	snapshotID int32

	attr *Attribution

	specialNodes map[NodeType]map[PosKey]struct{}

	// Last-access timestamps per chunk id, consumed by ManageMemory.
	access map[int32]float64

	events   []Event
	modified map[int32]struct{}
}

func NewManager(cfg Config) *Manager {
	cfg.applyDefaults()
	m := &Manager{
		cfg:          cfg,
		chunks:       make([]*Chunk, cfg.GridSize*cfg.GridSize),
		attr:         newAttribution(cfg.CooldownSeconds),
		specialNodes: map[NodeType]map[PosKey]struct{}{},
		access:       map[int32]float64{},
		modified:     map[int32]struct{}{},
	}
	for cz := 0; cz < cfg.GridSize; cz++ {
		for cx := 0; cx < cfg.GridSize; cx++ {
			id := int32(cz*cfg.GridSize + cx)
			m.chunks[id] = NewChunk(id, cx, cz, cfg.DefaultMaxHP)
		}
	}
	return m
}

func (m *Manager) Config() Config    { return m.cfg }
func (m *Manager) Frame() int32      { return m.frame }
func (m *Manager) Now() float64      { return m.now }
func (m *Manager) SnapshotID() int32 { return m.snapshotID }
func (m *Manager) ChunkCount() int   { return len(m.chunks) }

// WorldSize is the world side length in voxels.
func (m *Manager) WorldSize() int { return m.cfg.GridSize * ChunkSize }

// ChunkIDFor maps a world position to its chunk id. Y is ignored: the world
// is a height-field grid. Out-of-grid positions report ok=false.
func (m *Manager) ChunkIDFor(pos Vec3i) (int32, bool) {
	size := m.WorldSize()
	if pos.X < 0 || pos.X >= size || pos.Z < 0 || pos.Z >= size {
		return 0, false
	}
	cx := pos.X / ChunkSize
	cz := pos.Z / ChunkSize
	return int32(cz*m.cfg.GridSize + cx), true
}

// ChunkByID returns the chunk for a valid id, loading it if needed.
func (m *Manager) ChunkByID(id int32) (*Chunk, bool) {
	if id < 0 || int(id) >= len(m.chunks) {
		return nil, false
	}
	return m.chunks[id], true
}

// chunkFor resolves a world position to its chunk and local coordinates,
// loading the chunk on demand and recording the access.
func (m *Manager) chunkFor(pos Vec3i) (*Chunk, int, int, bool) {
	id, ok := m.ChunkIDFor(pos)
	if !ok {
		return nil, 0, 0, false
	}
	ch := m.EnsureLoaded(id)
	return ch, pos.X % ChunkSize, pos.Z % ChunkSize, true
}

// VoxelAt returns a copy of the voxel at a world position. Out-of-grid
// positions return a zero voxel and ok=false.
func (m *Manager) VoxelAt(pos Vec3i) (Voxel, bool) {
	ch, lx, lz, ok := m.chunkFor(pos)
	if !ok {
		return Voxel{}, false
	}
	v := ch.Voxel(lx, lz)
	if v == nil {
		return Voxel{}, false
	}
	return *v, true
}

// SetVoxelProfile stamps a voxel's type/faction at world init time.
func (m *Manager) SetVoxelProfile(pos Vec3i, voxelType, factionID string) {
	if ch, lx, lz, ok := m.chunkFor(pos); ok {
		ch.SetProfile(lx, lz, voxelType, factionID)
	}
}

// QueueDamage appends a damage command. Never blocks, never drops; the queue
// is drained by Tick under the per-tick budget.
func (m *Manager) QueueDamage(pos Vec3i, amount int, source string) {
	m.queue = append(m.queue, Command{Kind: CmdDamage, Pos: pos, Amount: amount, Source: source})
}

func (m *Manager) QueueRepair(pos Vec3i, amount int) {
	m.queue = append(m.queue, Command{Kind: CmdRepair, Pos: pos, Amount: amount})
}

func (m *Manager) QueueLen() int { return len(m.queue) - m.queueHead }

// DamageImmediate bypasses the queue and applies synchronously. Used by
// callers that need a definite result this tick (explosion resolution).
// The cooldown debounce still applies.
func (m *Manager) DamageImmediate(pos Vec3i, amount int, source string) MutationResult {
	return m.applyDamage(pos, amount, source)
}

func (m *Manager) RepairImmediate(pos Vec3i, amount int) MutationResult {
	return m.applyRepair(pos, amount)
}

// Tick advances simulation time, drains up to MaxUpdatesPerTick queued
// commands and returns the batch of events raised, terminated by a
// BATCH_COMPLETE entry carrying the count actually processed. Remaining
// commands stay queued; drain-not-drop is the backpressure mechanism.
func (m *Manager) Tick(dt float64) []Event {
	m.now += dt
	m.frame++
	m.events = nil
	for id := range m.modified {
		delete(m.modified, id)
	}

	// A full event batch ends the drain early, deferring the rest of the
	// budget to the next tick. The defaults size MaxEventsPerFrame so that a
	// whole budget of damage commands fits: at most 3 voxel events per
	// command plus one ChunkModified per touched chunk.
	processed := 0
	for processed < m.cfg.MaxUpdatesPerTick &&
		m.queueHead < len(m.queue) &&
		len(m.events) < m.cfg.MaxEventsPerFrame {
		cmd := m.queue[m.queueHead]
		m.queueHead++
		switch cmd.Kind {
		case CmdDamage:
			m.applyDamage(cmd.Pos, cmd.Amount, cmd.Source)
		case CmdRepair:
			m.applyRepair(cmd.Pos, cmd.Amount)
		}
		processed++
	}
	if m.queueHead == len(m.queue) {
		m.queue = m.queue[:0]
		m.queueHead = 0
	}

	if m.frame%600 == 0 {
		m.attr.prune(m.now)
	}

	m.events = append(m.events, Event{Kind: EvtBatchComplete, Count: processed})
	return m.events
}

func (m *Manager) emit(ev Event) {
	if len(m.events) >= m.cfg.MaxEventsPerFrame {
		return
	}
	m.events = append(m.events, ev)
}

func (m *Manager) emitChunkModified(id int32) {
	if _, seen := m.modified[id]; seen {
		return
	}
	m.modified[id] = struct{}{}
	m.emit(Event{Kind: EvtChunkModified, ChunkID: id})
}

func (m *Manager) applyDamage(pos Vec3i, amount int, source string) MutationResult {
	ch, lx, lz, ok := m.chunkFor(pos)
	if !ok {
		return MutationResult{}
	}
	if !m.attr.Allow(KeyFor(pos), m.now) {
		return MutationResult{}
	}
	res := ch.Damage(lx, lz, amount, m.now, m.frame)
	if !res.Applied {
		return res
	}
	m.emit(Event{Kind: EvtVoxelDamaged, Pos: pos, Amount: res.Amount, HP: res.HP})
	if res.Changed {
		m.emit(Event{Kind: EvtStageChanged, Pos: pos, Old: res.Old, New: res.New})
		if res.New == stage.Crater {
			m.emit(Event{Kind: EvtVoxelDestroyed, Pos: pos})
		}
	}
	m.emitChunkModified(ch.ID)
	m.attr.record(source, res.Amount, res.Changed && res.New == stage.Crater)
	return res
}

func (m *Manager) applyRepair(pos Vec3i, amount int) MutationResult {
	ch, lx, lz, ok := m.chunkFor(pos)
	if !ok {
		return MutationResult{}
	}
	res := ch.Repair(lx, lz, amount, m.now, m.frame)
	if !res.Applied {
		return res
	}
	if res.Changed {
		m.emit(Event{Kind: EvtStageChanged, Pos: pos, Old: res.Old, New: res.New})
	}
	m.emitChunkModified(ch.ID)
	return res
}

// RegisterSpecialNode tags a voxel with a role. Idempotent: re-registering
// the same position/type is a no-op. Returns false for out-of-grid
// positions or unknown node types.
func (m *Manager) RegisterSpecialNode(pos Vec3i, n NodeType) bool {
	flag := n.Flag()
	if flag == 0 {
		return false
	}
	ch, lx, lz, ok := m.chunkFor(pos)
	if !ok {
		return false
	}
	set := m.specialNodes[n]
	if set == nil {
		set = map[PosKey]struct{}{}
		m.specialNodes[n] = set
	}
	k := KeyFor(pos)
	if _, exists := set[k]; exists {
		return true
	}
	set[k] = struct{}{}
	ch.SetFlags(lx, lz, flag, m.frame)
	return true
}

// SpecialNodes lists registered positions for a node type.
func (m *Manager) SpecialNodes(n NodeType) []Vec3i {
	set := m.specialNodes[n]
	out := make([]Vec3i, 0, len(set))
	for k := range set {
		out = append(out, k.Pos())
	}
	return out
}

// DamagedVoxelsInRadius returns copies of all below-full-health voxels
// within radius of center. The scan covers only the chunks overlapping the
// radius, then each chunk's damaged-voxel set, never the full world.
func (m *Manager) DamagedVoxelsInRadius(center Vec3i, radius float64) []Voxel {
	if radius < 0 {
		return nil
	}
	r := int(math.Ceil(radius))
	cx0 := clampGrid((center.X-r)/ChunkSize, m.cfg.GridSize)
	cx1 := clampGrid((center.X+r)/ChunkSize, m.cfg.GridSize)
	cz0 := clampGrid((center.Z-r)/ChunkSize, m.cfg.GridSize)
	cz1 := clampGrid((center.Z+r)/ChunkSize, m.cfg.GridSize)

	var out []Voxel
	for cz := cz0; cz <= cz1; cz++ {
		for cx := cx0; cx <= cx1; cx++ {
			ch := m.chunks[cz*m.cfg.GridSize+cx]
			if !ch.Loaded() {
				continue
			}
			for _, i := range ch.DamagedLocals() {
				v := ch.Voxel(int(i)%ChunkSize, int(i)/ChunkSize)
				dx := float64(v.Pos.X - center.X)
				dz := float64(v.Pos.Z - center.Z)
				if math.Hypot(dx, dz) <= radius {
					out = append(out, *v)
				}
			}
		}
	}
	return out
}

func clampGrid(c, gridSize int) int {
	if c < 0 {
		return 0
	}
	if c >= gridSize {
		return gridSize - 1
	}
	return c
}

// FactionStatsFor returns the aggregate damage stats for one faction.
func (m *Manager) FactionStatsFor(faction string) FactionStats { return m.attr.stats(faction) }

// AllFactionStats returns a copy of every faction's aggregates.
func (m *Manager) AllFactionStats() map[string]FactionStats { return m.attr.all() }

// TotalDestruction sums destruction counts across the grid.
func (m *Manager) TotalDestruction() int32 {
	var n int32
	for _, ch := range m.chunks {
		n += ch.DestructionCount
	}
	return n
}
