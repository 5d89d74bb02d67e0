// Package stage maps voxel health to destruction stages and exposes the
// per-stage tuning tables (damage multiplier, disassembly time,
// traversability). Everything here is pure; the world package owns all state.
package stage

type Stage uint8

const (
	Intact Stage = iota
	Cracked
	Rubble
	Crater
)

func (s Stage) String() string {
	switch s {
	case Intact:
		return "INTACT"
	case Cracked:
		return "CRACKED"
	case Rubble:
		return "RUBBLE"
	case Crater:
		return "CRATER"
	}
	return "UNKNOWN"
}

// FromHealthFraction derives the stage from hp/maxHP. Boundaries are
// inclusive on the lower stage: exactly 0.1 is RUBBLE, exactly 0.5 is CRACKED.
func FromHealthFraction(f float64) Stage {
	switch {
	case f <= 0:
		return Crater
	case f <= 0.1:
		return Rubble
	case f <= 0.5:
		return Cracked
	default:
		return Intact
	}
}

// DamageMultiplier scales incoming damage. Rubble is more fragile; Crater
// accepts no further damage.
func DamageMultiplier(s Stage) float64 {
	switch s {
	case Rubble:
		return 1.5
	case Crater:
		return 0
	default:
		return 1.0
	}
}

// DisassemblyTime is the seconds a harvester needs to take the voxel apart.
func DisassemblyTime(s Stage) float64 {
	switch s {
	case Intact:
		return 10
	case Cracked:
		return 5
	case Rubble:
		return 2
	}
	return 0
}

func IsTraversable(s Stage) bool { return s != Crater }

// CanTakeDamage gates the damage path only. Repair is allowed from any
// stage, including Crater (see world.Voxel.ApplyRepair).
func CanTakeDamage(s Stage) bool { return s != Crater }
