package world

// FactionStats aggregates the damage a faction has dealt. An empty source id
// means environmental damage and is not attributed.
type FactionStats struct {
	DamageDealt     int
	VoxelsDamaged   int
	VoxelsDestroyed int
}

// Attribution layers a per-voxel damage cooldown and per-faction stats on
// top of the manager's apply path. It is keyed by the same packed position
// keys used for chunk addressing; it mutates no voxel state itself.
type Attribution struct {
	cooldown float64
	lastHit  map[PosKey]float64
	factions map[string]*FactionStats
}

func newAttribution(cooldown float64) *Attribution {
	return &Attribution{
		cooldown: cooldown,
		lastHit:  map[PosKey]float64{},
		factions: map[string]*FactionStats{},
	}
}

// Allow reports whether a damage application at this position is accepted at
// time now, and if so starts a new cooldown window. A hit landing while a
// window is active is debounced: accepted into the queue, ignored at apply.
func (a *Attribution) Allow(k PosKey, now float64) bool {
	if t, ok := a.lastHit[k]; ok && now-t < a.cooldown {
		return false
	}
	a.lastHit[k] = now
	return true
}

func (a *Attribution) record(faction string, amount int, destroyed bool) {
	if faction == "" {
		return
	}
	s := a.factions[faction]
	if s == nil {
		s = &FactionStats{}
		a.factions[faction] = s
	}
	s.DamageDealt += amount
	s.VoxelsDamaged++
	if destroyed {
		s.VoxelsDestroyed++
	}
}

// prune drops cooldown entries whose window has long expired.
func (a *Attribution) prune(now float64) {
	for k, t := range a.lastHit {
		if now-t >= a.cooldown {
			delete(a.lastHit, k)
		}
	}
}

func (a *Attribution) stats(faction string) FactionStats {
	if s := a.factions[faction]; s != nil {
		return *s
	}
	return FactionStats{}
}

func (a *Attribution) all() map[string]FactionStats {
	out := make(map[string]FactionStats, len(a.factions))
	for id, s := range a.factions {
		out[id] = *s
	}
	return out
}
