package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	GridSize          int     `yaml:"grid_size"`
	MaxUpdatesPerTick int     `yaml:"max_updates_per_tick"`
	MaxEventsPerFrame int     `yaml:"max_events_per_frame"`
	CooldownSeconds   float64 `yaml:"damage_cooldown_seconds"`
	DefaultMaxHP      int     `yaml:"default_max_hp"`

	MemoryBudget      int     `yaml:"memory_budget_chunks"`
	UnloadMinDistance float64 `yaml:"unload_min_distance"`

	SnapshotEveryFrames int `yaml:"snapshot_every_frames"`
	DeltaEveryFrames    int `yaml:"delta_every_frames"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
