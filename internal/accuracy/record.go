// Package accuracy keeps the statistical record of how well a bot fights
// with each weapon. Records are indexed by combat zone so a bot can tell
// that it does well with the railgun at long range but poorly up close.
package accuracy

import "github.com/OCAP2/combatbot/internal/weapon"

// DefaultTime is how many seconds of fire a record needs before it stops
// being padded with default statistics.
const DefaultTime = 8.0

// HitsDamage counts hits and the damage they dealt.
type HitsDamage struct {
	Hits   float64
	Damage float64
}

// History pairs the time actually spent on something with the time that
// could have been spent on it.
type History struct {
	Actual    float64
	Potential float64
}

// Record is a linear accumulation of attack outcomes. Records add with
// Tally and scale with Scale; every field participates in both.
type Record struct {
	Shots      float64
	Time       float64
	Direct     HitsDamage
	Splash     HitsDamage
	AttackRate History
}

// Create builds a record for shots fired with p. Direct damage comes from
// the profile; splash damage must be measured by the caller.
func Create(p *weapon.Profile, shots, directHits, splashHits, splashDamage, actualFire, potentialFire float64) Record {
	r := Record{
		Shots:      shots,
		Direct:     HitsDamage{Hits: directHits, Damage: directHits * p.Damage},
		Splash:     HitsDamage{Hits: splashHits, Damage: splashDamage},
		AttackRate: History{Actual: actualFire, Potential: potentialFire},
	}
	if p.Shots > 0 {
		r.Time = shots * p.Reload / float64(p.Shots)
	}
	return r
}

// Tally returns the elementwise sum of r and o.
func (r Record) Tally(o Record) Record {
	return Record{
		Shots:      r.Shots + o.Shots,
		Time:       r.Time + o.Time,
		Direct:     HitsDamage{r.Direct.Hits + o.Direct.Hits, r.Direct.Damage + o.Direct.Damage},
		Splash:     HitsDamage{r.Splash.Hits + o.Splash.Hits, r.Splash.Damage + o.Splash.Damage},
		AttackRate: History{r.AttackRate.Actual + o.AttackRate.Actual, r.AttackRate.Potential + o.AttackRate.Potential},
	}
}

// Scale returns r with every field multiplied by k.
func (r Record) Scale(k float64) Record {
	return Record{
		Shots:      k * r.Shots,
		Time:       k * r.Time,
		Direct:     HitsDamage{k * r.Direct.Hits, k * r.Direct.Damage},
		Splash:     HitsDamage{k * r.Splash.Hits, k * r.Splash.Damage},
		AttackRate: History{k * r.AttackRate.Actual, k * r.AttackRate.Potential},
	}
}

// Damage is the total damage dealt.
func (r Record) Damage() float64 {
	return r.Direct.Damage + r.Splash.Damage
}

// AttackRatio estimates the fraction of combat time the weapon is fired.
// It returns 0 when no fire time was ever possible.
func (r Record) AttackRatio() float64 {
	if r.AttackRate.Potential <= 0 {
		return 0
	}
	return r.AttackRate.Actual / r.AttackRate.Potential
}

// HitRate is the expected number of hits, direct or splash, per shot.
func (r Record) HitRate() float64 {
	if r.Shots <= 0 {
		return 0
	}
	return (r.Direct.Hits + r.Splash.Hits) / r.Shots
}

// DamagePerShot is the average damage one shot deals.
func (r Record) DamagePerShot() float64 {
	if r.Shots <= 0 {
		return 0
	}
	return r.Damage() / r.Shots
}
