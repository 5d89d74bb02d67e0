package world

// Config tunes the world grid and the per-tick work budgets.
type Config struct {
	// GridSize is the chunk grid side length; the world is
	// GridSize*ChunkSize voxels per axis.
	GridSize int

	// MaxUpdatesPerTick bounds how many queued commands one Tick drains.
	// Overflow stays queued for later ticks; nothing is dropped.
	MaxUpdatesPerTick int

	// MaxEventsPerFrame caps the event batch; draining stops early when the
	// cap is reached so a single tick cannot emit unbounded work.
	MaxEventsPerFrame int

	// CooldownSeconds debounces repeated damage on one voxel.
	CooldownSeconds float64

	DefaultMaxHP int

	// MemoryBudget is the resident-chunk ceiling enforced by ManageMemory.
	MemoryBudget int

	// UnloadMinDistance keeps chunks within this world-unit distance of the
	// observer resident even under memory pressure.
	UnloadMinDistance float64
}

func (c *Config) applyDefaults() {
	if c.GridSize <= 0 {
		c.GridSize = 8
	}
	if c.MaxUpdatesPerTick <= 0 {
		c.MaxUpdatesPerTick = 100
	}
	if c.MaxEventsPerFrame <= 0 {
		c.MaxEventsPerFrame = 512
	}
	if c.CooldownSeconds <= 0 {
		c.CooldownSeconds = 0.1
	}
	if c.DefaultMaxHP <= 0 {
		c.DefaultMaxHP = 100
	}
	if c.MemoryBudget <= 0 {
		c.MemoryBudget = 48
	}
	if c.UnloadMinDistance <= 0 {
		c.UnloadMinDistance = 2 * ChunkSize
	}
}
