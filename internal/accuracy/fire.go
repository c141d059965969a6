package accuracy

import (
	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/zone"
)

// Reload rate multipliers.
const (
	NormalRate = 1.0
	HasteRate  = 1.3
)

// Frame is what the ledger observes of its bot at the start of an AI frame.
type Frame struct {
	ServerTime   float64
	ServerMillis int64
	// CommandMillis is the server time of the most recent movement command.
	CommandMillis int64
	// WeaponTime is the remaining reload in milliseconds, as the server
	// reports it. It may be negative.
	WeaponTime int
	// Weapon is the weapon the server says is equipped.
	Weapon    weapon.ID
	Attacking bool
	// Idle is set when reload time cannot be fire time: the bot is
	// switching weapons, has no enemy, is dead, or is using an item.
	Idle bool
	// HitCount is the server's running hit tally for the bot.
	HitCount int
	Haste    bool
	// Zone is the combat zone the bot aimed into last frame.
	Zone zone.Zone
}

type fireClock struct {
	analysisTime      float64
	lastReloadDelayMs int
	lastCommandMs     int64
	lastHitCount      int
	rate              float64
}

// ExtraReloadTime returns how much more reload time the weapon incurred
// than the ledger expected after the previous frame, in seconds.
func (l *Ledger) ExtraReloadTime(f Frame) float64 {
	if f.WeaponTime <= 0 {
		return 0
	}

	var estMs int64
	if l.fire.lastReloadDelayMs <= 0 {
		estMs = f.ServerMillis + int64(l.fire.lastReloadDelayMs)
	} else {
		estMs = l.fire.lastCommandMs + int64(l.fire.lastReloadDelayMs)
	}
	nextMs := f.ServerMillis + int64(f.WeaponTime)

	extra := float64(nextMs-estMs) * 0.001
	if extra <= 0 {
		return 0
	}
	return extra
}

// FireTime returns the fire time accrued since the last analysis: Actual
// is time spent reloading from shots, Potential the time that could have
// been spent that way.
func (l *Ledger) FireTime(f Frame) History {
	var h History

	h.Potential = f.ServerTime - l.fire.analysisTime
	if h.Potential < 0 {
		h.Potential = 0
	}
	h.Actual = l.ExtraReloadTime(f)
	if h.Potential < h.Actual {
		h.Potential = h.Actual
	}

	w := f.Weapon
	if !w.Valid() {
		w = weapon.None
	}

	// Melee weapons only reload when they connect, so holding the trigger
	// counts as firing.
	if h.Actual < h.Potential && f.Attacking && l.defaults.Catalog().Get(w).Has(weapon.FlagMelee) {
		h.Actual = h.Potential
	}

	l.fire.analysisTime += h.Potential

	if w == weapon.None || f.Idle {
		return History{}
	}
	return h
}

// UpdateWeapon records instant-hit fire. hits is the number of hit tally
// ticks not explained by missiles. Missile weapons record fire time only;
// their shots are recorded when the missile explodes.
func (l *Ledger) UpdateWeapon(fire History, hits int, w weapon.ID, z zone.Zone) {
	if fire.Potential <= 0 {
		return
	}

	p := l.defaults.Catalog().Get(w)
	var shots float64
	if p.Instant() {
		reload := p.Reload
		if l.fire.rate > 0 {
			reload /= l.fire.rate
		}
		fires := int(fire.Actual / reload)
		shots = float64(fires * p.Shots)
		if float64(hits) > shots {
			hits = int(shots)
		}
	} else {
		hits = 0
	}

	l.Record(Create(p, shots, float64(hits), 0, 0, fire.Actual, fire.Potential), w, z)
}

// Update processes one frame of fire data: missile outcomes first, then
// instant-hit fire with the hits missiles did not explain. It also
// remembers what reload the weapon should have at the next frame.
func (l *Ledger) Update(f Frame, missiles *MissileTracker, judge MissileJudge, friendlyFire bool) {
	fire := l.FireTime(f)

	hits := f.HitCount - l.fire.lastHitCount
	if missiles != nil && judge != nil {
		hits -= missiles.Resolve(l, judge, friendlyFire)
	}
	l.UpdateWeapon(fire, hits, f.Weapon, f.Zone)

	l.fire.lastHitCount = f.HitCount
	if f.WeaponTime <= 0 {
		l.fire.lastReloadDelayMs = f.WeaponTime
	} else {
		l.fire.lastReloadDelayMs = f.WeaponTime - int(f.CommandMillis-f.ServerMillis)
	}
	l.fire.lastCommandMs = f.CommandMillis

	// Shots made this frame reload at the rate in effect when they fired.
	if f.Haste {
		l.fire.rate = HasteRate
	} else {
		l.fire.rate = NormalRate
	}
}

// ReloadRate is the reload multiplier the ledger applies to the next frame.
func (l *Ledger) ReloadRate() float64 {
	return l.fire.rate
}
