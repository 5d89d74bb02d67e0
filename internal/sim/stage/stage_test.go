package stage

import "testing"

func TestFromHealthFraction_Boundaries(t *testing.T) {
	cases := []struct {
		f    float64
		want Stage
	}{
		{-0.5, Crater},
		{0, Crater},
		{0.001, Rubble},
		{0.1, Rubble},
		{0.100001, Cracked},
		{0.4, Cracked},
		{0.5, Cracked},
		{0.500001, Intact},
		{1.0, Intact},
		{1.5, Intact},
	}
	for _, c := range cases {
		if got := FromHealthFraction(c.f); got != c.want {
			t.Fatalf("FromHealthFraction(%v) = %v, want %v", c.f, got, c.want)
		}
	}
}

func TestDamageMultiplier(t *testing.T) {
	if got := DamageMultiplier(Intact); got != 1.0 {
		t.Fatalf("Intact multiplier = %v, want 1.0", got)
	}
	if got := DamageMultiplier(Cracked); got != 1.0 {
		t.Fatalf("Cracked multiplier = %v, want 1.0", got)
	}
	if got := DamageMultiplier(Rubble); got != 1.5 {
		t.Fatalf("Rubble multiplier = %v, want 1.5", got)
	}
	if got := DamageMultiplier(Crater); got != 0 {
		t.Fatalf("Crater multiplier = %v, want 0", got)
	}
}

func TestDisassemblyTime(t *testing.T) {
	want := map[Stage]float64{Intact: 10, Cracked: 5, Rubble: 2, Crater: 0}
	for s, sec := range want {
		if got := DisassemblyTime(s); got != sec {
			t.Fatalf("DisassemblyTime(%v) = %v, want %v", s, got, sec)
		}
	}
}

func TestTraversabilityAndDamageGate(t *testing.T) {
	for _, s := range []Stage{Intact, Cracked, Rubble} {
		if !IsTraversable(s) {
			t.Fatalf("%v should be traversable", s)
		}
		if !CanTakeDamage(s) {
			t.Fatalf("%v should accept damage", s)
		}
	}
	if IsTraversable(Crater) {
		t.Fatalf("Crater should not be traversable")
	}
	if CanTakeDamage(Crater) {
		t.Fatalf("Crater should not accept damage")
	}
}
