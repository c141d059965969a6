// Package weapon holds the immutable weapon profiles the combat engine
// reasons about: fire rate, damage, splash, projectile speed, range and
// spread, plus the accuracy estimate derived from them.
package weapon

import "math"

// ID indexes the weapon table.
type ID int

const (
	None ID = iota
	Gauntlet
	Machinegun
	Shotgun
	GrenadeLauncher
	RocketLauncher
	Lightning
	Railgun
	Plasmagun
	BFG
	GrapplingHook
	NumWeapons
)

// Flags mark special firing behavior.
type Flags uint8

const (
	// FlagMelee weapons only hit at touching distance.
	FlagMelee Flags = 1 << iota
	// FlagDelay weapons detonate some time after landing.
	FlagDelay
)

const (
	// SwitchTime is how long it takes to lower one weapon and raise another.
	SwitchTime = 0.45
	// UnlimitedRange is the perceived range of weapons without a range limit.
	UnlimitedRange = 8192.0
	// DefaultCarelessReload is the reload time at or below which a weapon is
	// fired without careful aim.
	DefaultCarelessReload = 0.5

	perceivedRangeFactor = 1.05
)

// Valid reports whether id names a weapon in the table.
func (id ID) Valid() bool {
	return id >= None && id < NumWeapons
}

// Clamp maps out-of-range ids to None.
func (id ID) Clamp() ID {
	if !id.Valid() {
		return None
	}
	return id
}

// Profile is the static description of one weapon.
type Profile struct {
	ID           ID
	Name         string
	Reload       float64
	Shots        int
	Damage       float64
	SplashDamage float64
	Radius       float64
	// Speed is the projectile speed, or 0 for instant hit.
	Speed float64
	// Range is the maximum range, or 0 for unlimited.
	Range float64
	// Spread is the cone half-angle in degrees.
	Spread    float64
	Flags     Flags
	StartAmmo int
	// Accuracy is the estimated hit ratio of a skilled player.
	Accuracy float64
}

// Has reports whether every bit in f is set.
func (p *Profile) Has(f Flags) bool {
	return p.Flags&f == f
}

// Instant reports whether the weapon hits the moment it fires.
func (p *Profile) Instant() bool {
	return p.Speed <= 0
}

// PerceivedMaxRange is how far bots think the weapon reaches.
func (p *Profile) PerceivedMaxRange() float64 {
	if p.Range <= 0 {
		return UnlimitedRange
	}
	return p.Range * perceivedRangeFactor
}

// InRange reports whether a target dist units away looks reachable.
func (p *Profile) InRange(dist float64) bool {
	return dist < p.PerceivedMaxRange()
}

// Blast returns the splash damage dealt to a target dist units from the
// detonation point.
func (p *Profile) Blast(dist float64) float64 {
	if p.Radius <= 0 || p.Radius <= dist {
		return 0
	}
	return p.SplashDamage * (1 - dist/p.Radius)
}

// Careless reports whether the weapon reloads fast enough to be fired
// without careful aim.
func (p *Profile) Careless(reloadThreshold float64) bool {
	return p.Reload <= reloadThreshold
}

// DamagePerSecond is the expected damage rate of a skilled player.
func (p *Profile) DamagePerSecond() float64 {
	damage := math.Max(p.Damage, p.SplashDamage)
	return damage * p.Accuracy * float64(p.Shots) / p.Reload
}
