package world

import (
	"testing"

	"voxelsiege.dev/internal/sim/stage"
)

func TestVoxel_DamageScenario(t *testing.T) {
	v := Voxel{HP: 100, MaxHP: 100, Stage: stage.Intact}

	// 60 damage: 40% health, Cracked.
	next, changed := v.ApplyDamage(60, 1.0)
	if v.HP != 40 {
		t.Fatalf("hp = %d, want 40", v.HP)
	}
	if !changed || next != stage.Cracked {
		t.Fatalf("stage = %v (changed=%v), want Cracked", next, changed)
	}
	if v.StageChangeTime != 1.0 {
		t.Fatalf("stage change time = %v, want 1.0", v.StageChangeTime)
	}

	// 35 more: 5% health, Rubble.
	next, changed = v.ApplyDamage(35, 2.0)
	if v.HP != 5 || !changed || next != stage.Rubble {
		t.Fatalf("hp=%d stage=%v changed=%v, want 5/Rubble/true", v.HP, next, changed)
	}

	// Finish it off.
	next, changed = v.ApplyDamage(5, 3.0)
	if v.HP != 0 || !changed || next != stage.Crater {
		t.Fatalf("hp=%d stage=%v changed=%v, want 0/Crater/true", v.HP, next, changed)
	}
}

func TestVoxel_CraterIsTerminalUnderDamage(t *testing.T) {
	v := Voxel{HP: 0, MaxHP: 100, Stage: stage.Crater}
	next, changed := v.ApplyDamage(50, 1.0)
	if changed || next != stage.Crater || v.HP != 0 {
		t.Fatalf("damage on Crater mutated state: hp=%d stage=%v changed=%v", v.HP, next, changed)
	}
	if v.LastDamageTime != 0 {
		t.Fatalf("damage on Crater recorded a hit time")
	}
}

func TestVoxel_RepairResurrectsFromCrater(t *testing.T) {
	v := Voxel{HP: 0, MaxHP: 100, Stage: stage.Crater}
	next, changed := v.ApplyRepair(30, 5.0)
	if v.HP != 30 || !changed || next != stage.Cracked {
		t.Fatalf("hp=%d stage=%v changed=%v, want 30/Cracked/true", v.HP, next, changed)
	}
}

func TestVoxel_RepairClampsAtMax(t *testing.T) {
	v := Voxel{HP: 90, MaxHP: 100, Stage: stage.Intact}
	next, changed := v.ApplyRepair(50, 1.0)
	if v.HP != 100 || changed || next != stage.Intact {
		t.Fatalf("hp=%d stage=%v changed=%v, want 100/Intact/false", v.HP, next, changed)
	}
}

func TestVoxel_StageMonotonicUnderDamage(t *testing.T) {
	v := Voxel{HP: 100, MaxHP: 100, Stage: stage.Intact}
	prev := v.Stage
	for i := 0; i < 30; i++ {
		v.ApplyDamage(7, float64(i))
		if v.Stage < prev {
			t.Fatalf("stage regressed from %v to %v under pure damage", prev, v.Stage)
		}
		prev = v.Stage
	}
	if v.Stage != stage.Crater {
		t.Fatalf("final stage = %v, want Crater", v.Stage)
	}
}

func TestPosKey_RoundTrip(t *testing.T) {
	for _, p := range []Vec3i{{0, 0, 0}, {511, 0, 511}, {1, 2, 3}, {-5, 7, -9}} {
		if got := KeyFor(p).Pos(); got != p {
			t.Fatalf("KeyFor(%v).Pos() = %v", p, got)
		}
	}
	if KeyFor(Vec3i{X: 1}) == KeyFor(Vec3i{Z: 1}) {
		t.Fatalf("axis collision in packed keys")
	}
}
