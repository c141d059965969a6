package accuracy

import (
	"context"
	"log/slog"

	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/zone"
)

// Ledger is one bot's accuracy history. It is owned by exactly one bot
// and is not safe for concurrent use.
type Ledger struct {
	defaults *Defaults
	logger   *slog.Logger

	weapon [weapon.NumWeapons]Record
	cells  [weapon.NumWeapons][zone.NumDist][zone.NumPitch]Record

	damageDealt float64
	fire        fireClock
}

// NewLedger creates an empty ledger backed by d for padding.
func NewLedger(d *Defaults, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		defaults: d,
		logger:   logger,
		fire:     fireClock{rate: 1},
	}
}

// Defaults returns the table the ledger pads reads with.
func (l *Ledger) Defaults() *Defaults {
	return l.defaults
}

// Reset drops every recorded outcome. Fire time analysis restarts at now.
func (l *Ledger) Reset(now float64) {
	l.weapon = [weapon.NumWeapons]Record{}
	l.cells = [weapon.NumWeapons][zone.NumDist][zone.NumPitch]Record{}
	l.damageDealt = 0
	l.fire.analysisTime = now
}

// DamageDealt is the total damage recorded since the last reset.
func (l *Ledger) DamageDealt() float64 {
	return l.damageDealt
}

// Weapon returns the raw whole-weapon record, without padding.
func (l *Ledger) Weapon(id weapon.ID) Record {
	return l.weapon[id.Clamp()]
}

// Cell returns the raw record of one zone center, without padding.
func (l *Ledger) Cell(id weapon.ID, c zone.Center) Record {
	return l.cells[id.Clamp()][clampDist(c.Dist)][clampPitch(c.Pitch)]
}

// ZoneAverage blends this bot's cells addressed by z.
func (l *Ledger) ZoneAverage(id weapon.ID, z zone.Zone) Record {
	var out Record
	for _, e := range z.Centers() {
		out = out.Tally(l.Cell(id, e.Center).Scale(e.Weight))
	}
	return out
}

// Read returns the bot's record for id in z, or for the weapon as a whole
// when z is nil. Records with less than DefaultTime seconds of data are
// padded with that many seconds of default data. Weapons that cannot reach
// the zone only get the missing time, never extra hits or damage.
func (l *Ledger) Read(id weapon.ID, z *zone.Zone) Record {
	id = id.Clamp()

	var acc Record
	if z != nil {
		acc = l.ZoneAverage(id, *z)
	} else {
		acc = l.weapon[id]
	}

	deficit := DefaultTime - acc.Time
	if deficit <= 0 {
		return acc
	}

	if z != nil && !l.defaults.Catalog().Get(id).InRange(z.Dist) {
		acc.Time += deficit
		return acc
	}

	var def Record
	if z != nil {
		def = l.defaults.ZoneAverage(id, *z)
	} else {
		def = l.defaults.Weapon(id)
	}
	return acc.Tally(def.Scale(deficit))
}

// Record adds one attack outcome made with id while the target was in z.
// The outcome is split across the zone's centers by weight and also added
// to the whole-weapon total.
func (l *Ledger) Record(acc Record, id weapon.ID, z zone.Zone) {
	id = id.Clamp()

	l.damageDealt += acc.Damage()
	l.weapon[id] = l.weapon[id].Tally(acc)

	for _, e := range z.Centers() {
		d, p := clampDist(e.Center.Dist), clampPitch(e.Center.Pitch)
		l.cells[id][d][p] = l.cells[id][d][p].Tally(acc.Scale(e.Weight))
	}

	if l.logger.Enabled(context.Background(), slog.LevelDebug) && acc.Shots > 0 {
		l.logger.Debug("Accuracy recorded",
			"weapon", l.defaults.Catalog().Get(id).Name,
			"zone", z.String(),
			"shots", acc.Shots,
			"directHits", acc.Direct.Hits,
			"splashHits", acc.Splash.Hits,
			"damage", acc.Damage(),
		)
	}
}
