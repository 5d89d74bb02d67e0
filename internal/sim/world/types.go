package world

type Vec3i struct {
	X, Y, Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func Manhattan(a, b Vec3i) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y) + abs(a.Z-b.Z)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// PosKey packs a world position into a single int64 so that cooldown timers,
// special-node registries and similar maps hash without string allocation.
// 21 bits per axis, sign-offset; covers far more than the 512x512 grid.
type PosKey int64

const posKeyBias = 1 << 20

func KeyFor(p Vec3i) PosKey {
	x := int64(p.X+posKeyBias) & 0x1FFFFF
	y := int64(p.Y+posKeyBias) & 0x1FFFFF
	z := int64(p.Z+posKeyBias) & 0x1FFFFF
	return PosKey(x<<42 | y<<21 | z)
}

func (k PosKey) Pos() Vec3i {
	return Vec3i{
		X: int(k>>42&0x1FFFFF) - posKeyBias,
		Y: int(k>>21&0x1FFFFF) - posKeyBias,
		Z: int(k&0x1FFFFF) - posKeyBias,
	}
}
