package world

import "voxelsiege.dev/internal/sim/stage"

// NodeFlag tags a voxel with a role independent of its destruction stage.
type NodeFlag uint8

const (
	FlagPowerNode NodeFlag = 1 << iota
	FlagPowerHub
	FlagStrategic
	FlagResource
	FlagIndustrial
	FlagResidential
	FlagSpawner
)

func (f NodeFlag) Has(bit NodeFlag) bool { return f&bit != 0 }

// Voxel is one cell of the destructible height-field. Owned by its Chunk;
// mutate only through the chunk/manager damage path.
type Voxel struct {
	Pos   Vec3i
	HP    int
	MaxHP int
	Stage stage.Stage

	LastDamageTime  float64
	StageChangeTime float64

	Flags     NodeFlag
	Type      string
	FactionID string
}

func (v *Voxel) HealthFraction() float64 {
	if v.MaxHP <= 0 {
		return 0
	}
	return float64(v.HP) / float64(v.MaxHP)
}

// ApplyDamage reduces hp and recomputes the stage. Crater is terminal under
// damage: the call is a no-op once the voxel is cratered. Returns the new
// stage and whether it changed.
func (v *Voxel) ApplyDamage(amount int, now float64) (stage.Stage, bool) {
	if !stage.CanTakeDamage(v.Stage) {
		return v.Stage, false
	}
	if amount < 0 {
		amount = 0
	}
	v.HP -= amount
	if v.HP < 0 {
		v.HP = 0
	}
	v.LastDamageTime = now
	return v.recomputeStage(now)
}

// ApplyRepair raises hp and recomputes the stage. Unlike damage, repair is
// accepted from any stage including Crater: a repair collaborator may
// resurrect a cratered voxel.
func (v *Voxel) ApplyRepair(amount int, now float64) (stage.Stage, bool) {
	if amount < 0 {
		amount = 0
	}
	v.HP += amount
	if v.HP > v.MaxHP {
		v.HP = v.MaxHP
	}
	return v.recomputeStage(now)
}

func (v *Voxel) recomputeStage(now float64) (stage.Stage, bool) {
	next := stage.FromHealthFraction(v.HealthFraction())
	if next == v.Stage {
		return v.Stage, false
	}
	v.Stage = next
	v.StageChangeTime = now
	return next, true
}
