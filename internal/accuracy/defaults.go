package accuracy

import (
	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/zone"
)

// Base fraction of combat time a weapon is expected to fire.
const (
	carelessAttackRate = 0.65
	carefulAttackRate  = 0.55

	// Careful projectiles slower than this are hard to aim up or down.
	slowProjectileSpeed = 1200.0
	outOfRangeFactor    = 0.2
)

// Defaults holds the statistics a bot assumes before it has its own data.
// It is built once per catalog and never written afterwards.
type Defaults struct {
	catalog *weapon.Catalog
	weapon  [weapon.NumWeapons]Record
	cells   [weapon.NumWeapons][zone.NumDist][zone.NumPitch]Record
}

// NewDefaults estimates one second of fire for every weapon in c, both
// overall and for each zone center.
func NewDefaults(c *weapon.Catalog) *Defaults {
	d := &Defaults{catalog: c}

	for id := weapon.None + 1; id < weapon.NumWeapons; id++ {
		p := c.Get(id)
		shots := float64(p.Shots) / p.Reload

		var direct, splash float64
		if p.Radius >= 100 {
			direct = p.Accuracy * 0.5
			splash = p.Accuracy
		} else {
			direct = p.Accuracy
		}

		directHits := shots * direct
		splashHits := shots * splash
		if shots < directHits+splashHits {
			splashHits = shots - directHits
		}
		splashDamage := splashHits * p.SplashDamage * 0.5

		careless := c.Careless(id)
		base := carefulAttackRate
		if careless {
			base = carelessAttackRate
		}

		d.weapon[id] = Create(p, shots, directHits, splashHits, splashDamage, 1, 1/base)

		maxRange := p.PerceivedMaxRange()
		for pitch := 0; pitch < zone.NumPitch; pitch++ {
			pitchRate := base
			if !careless && p.Speed > 0 && p.Speed < slowProjectileSpeed {
				high := zone.PitchCenters[pitch] <= zone.PitchCenters[zone.PitchHigh]
				weakSplash := p.Damage > 0 && p.SplashDamage/p.Damage < 0.5
				if high || weakSplash {
					pitchRate *= 0.5
				}
			}

			for dist := 0; dist < zone.NumDist; dist++ {
				rate := pitchRate
				if maxRange < zone.DistCenters[dist] {
					rate *= outOfRangeFactor
				}
				d.cells[id][dist][pitch] = Create(p, shots, directHits, splashHits, splashDamage, 1, 1/rate)
			}
		}
	}
	return d
}

// Catalog returns the weapon table the defaults were built from.
func (d *Defaults) Catalog() *weapon.Catalog {
	return d.catalog
}

// Weapon returns one second of default whole-weapon statistics.
func (d *Defaults) Weapon(id weapon.ID) Record {
	return d.weapon[id.Clamp()]
}

// Cell returns one second of default statistics at a zone center.
func (d *Defaults) Cell(id weapon.ID, c zone.Center) Record {
	return d.cells[id.Clamp()][clampDist(c.Dist)][clampPitch(c.Pitch)]
}

// ZoneAverage blends the default cells addressed by z.
func (d *Defaults) ZoneAverage(id weapon.ID, z zone.Zone) Record {
	var out Record
	for _, e := range z.Centers() {
		out = out.Tally(d.Cell(id, e.Center).Scale(e.Weight))
	}
	return out
}

func clampDist(id int) int {
	if id < 0 {
		return 0
	}
	if id >= zone.NumDist {
		return zone.NumDist - 1
	}
	return id
}

func clampPitch(id int) int {
	if id < 0 {
		return 0
	}
	if id >= zone.NumPitch {
		return zone.NumPitch - 1
	}
	return id
}
