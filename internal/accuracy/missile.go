package accuracy

import (
	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/world"
	"github.com/OCAP2/combatbot/internal/zone"
)

// MaxMissiles is how many of its own missiles a bot tracks at once.
const MaxMissiles = 32

// MissileState is what became of a tracked missile.
type MissileState int

const (
	MissileFlying MissileState = iota
	// MissileGone means the missile vanished without exploding, for
	// example into the sky.
	MissileGone
	MissileExploded
)

// MissileOutcome describes a missile at the current frame.
type MissileOutcome struct {
	State MissileState
	// Target is the entity hit directly, or world.EntityNone.
	Target int
	Origin geom.Vec3
}

// MissileJudge answers the questions the tracker has about the world.
type MissileJudge interface {
	Outcome(missile int) MissileOutcome
	// Relation classifies an entity relative to the tracking bot.
	Relation(entity int) (enemy, team bool)
	// Blast surveys the damage a detonation at center dealt, ignoring the
	// directly hit entity.
	Blast(p *weapon.Profile, center geom.Vec3, ignore int) weapon.BlastResult
}

type trackedMissile struct {
	id     int
	weapon weapon.ID
	zone   zone.Zone
}

// MissileTracker follows a bot's fired missiles until they hit or miss.
type MissileTracker struct {
	missiles []trackedMissile
}

// NewMissileTracker creates an empty tracker.
func NewMissileTracker() *MissileTracker {
	return &MissileTracker{missiles: make([]trackedMissile, 0, MaxMissiles)}
}

// Track starts following a missile fired into z. It reports false when
// the tracker is full.
func (t *MissileTracker) Track(id int, w weapon.ID, z zone.Zone) bool {
	if len(t.missiles) >= MaxMissiles {
		return false
	}
	t.missiles = append(t.missiles, trackedMissile{id: id, weapon: w, zone: z})
	return true
}

// Len is the number of missiles in flight.
func (t *MissileTracker) Len() int {
	return len(t.missiles)
}

// Reset forgets every tracked missile.
func (t *MissileTracker) Reset() {
	t.missiles = t.missiles[:0]
}

// Resolve records every missile that hit or missed since the last call and
// returns the net hit tally ticks they explain. Teammate hits subtract, as
// the server tally does.
func (t *MissileTracker) Resolve(l *Ledger, judge MissileJudge, friendlyFire bool) int {
	catalog := l.defaults.Catalog()
	hits := 0
	kept := t.missiles[:0]

	for _, m := range t.missiles {
		p := catalog.Get(m.weapon)
		out := judge.Outcome(m.id)

		switch out.State {
		case MissileFlying:
			kept = append(kept, m)
			continue
		case MissileGone:
			l.Record(Create(p, 1, 0, 0, 0, 0, 0), m.weapon, m.zone)
			continue
		}

		enemy, team := false, false
		if out.Target != world.EntityNone {
			enemy, team = judge.Relation(out.Target)
		}
		blast := judge.Blast(p, out.Origin, out.Target)

		if enemy {
			hits++
		} else if friendlyFire && team {
			hits--
		}
		hits += blast.Enemy.Hits
		hits -= blast.Team.Hits

		// Only the most damaging hit on a single enemy counts toward the
		// record so one shot never exceeds its potential damage.
		var acc Record
		switch {
		case enemy:
			acc = Create(p, 1, 1, 0, 0, 0, 0)
		case blast.Enemy.Hits > 0:
			acc = Create(p, 1, 0, 1, blast.Enemy.Max, 0, 0)
		default:
			acc = Create(p, 1, 0, 0, 0, 0, 0)
		}
		l.Record(acc, m.weapon, m.zone)
	}

	t.missiles = kept
	return hits
}
