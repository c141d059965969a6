package bot

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/OCAP2/combatbot/internal/accuracy"
	"github.com/OCAP2/combatbot/internal/arena"
	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/queue"
	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/world"
)

const (
	// firstMissile is the entity number of the first spawned missile.
	firstMissile = 1024
	// missileLifetime is how long a missile flies before it vanishes.
	missileLifetime = 10.0
	// muzzleOffset is how far in front of the eye projectiles spawn.
	muzzleOffset = 14.0
	// killFeedSize is how many kills are kept until read.
	killFeedSize = 64
)

// Kill is one entry of the kill feed.
type Kill struct {
	Time     float64
	Attacker int
	Target   int
	Weapon   weapon.ID
}

type missile struct {
	owner    int
	weapon   weapon.ID
	launched float64
}

// Referee plays the server for the simulator: it applies bot commands to
// the arena, flies missiles, deals damage and keeps the hit tallies bots
// read back. It is safe for concurrent readers.
type Referee struct {
	arena        *arena.Arena
	catalog      *weapon.Catalog
	teamPlay     bool
	friendlyFire bool
	quadFactor   float64
	logger       *slog.Logger

	mu       sync.Mutex
	next     int
	missiles map[int]missile
	outcomes map[int]accuracy.MissileOutcome
	hits     map[int]int
	kills    *queue.Queue[Kill]
}

// NewReferee creates a referee for a.
func NewReferee(a *arena.Arena, catalog *weapon.Catalog, teamPlay, friendlyFire bool, logger *slog.Logger) *Referee {
	if logger == nil {
		logger = slog.Default()
	}
	return &Referee{
		arena:        a,
		catalog:      catalog,
		teamPlay:     teamPlay,
		friendlyFire: friendlyFire,
		quadFactor:   1,
		logger:       logger,
		next:         firstMissile,
		missiles:     make(map[int]missile),
		outcomes:     make(map[int]accuracy.MissileOutcome),
		hits:         make(map[int]int),
		kills:        queue.New[Kill](killFeedSize),
	}
}

// SetQuadFactor sets the damage multiplier of quad damage carriers.
func (r *Referee) SetQuadFactor(f float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f > 0 {
		r.quadFactor = f
	}
}

// HitCount is the running hit tally of entity.
func (r *Referee) HitCount(entity int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hits[entity]
}

// Kills returns the kills since the last call, oldest first. Only the
// most recent ones are kept.
func (r *Referee) Kills() []Kill {
	return r.kills.Drain()
}

// Outcome reports what became of a missile. Explosions are reported once.
func (r *Referee) Outcome(id int) accuracy.MissileOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if out, ok := r.outcomes[id]; ok {
		delete(r.outcomes, id)
		return out
	}
	if _, ok := r.missiles[id]; ok {
		return accuracy.MissileOutcome{State: accuracy.MissileFlying, Target: world.EntityNone}
	}
	return accuracy.MissileOutcome{State: accuracy.MissileGone, Target: world.EntityNone}
}

// Apply executes a command. When it launches a missile, the missile's
// entity number is returned.
func (r *Referee) Apply(cmd Command) (int, bool) {
	if !r.arena.Update(cmd.Bot, func(s *world.Snapshot) { s.View = cmd.Angles }) {
		return 0, false
	}
	if !cmd.Fire {
		return 0, false
	}

	shooter, _ := r.arena.Entity(cmd.Bot)
	if !shooter.Alive {
		return 0, false
	}
	p := r.catalog.Get(cmd.Weapon)
	eye := shooter.Origin
	eye[geom.Z] += shooter.ViewHeight
	dir := geom.Forward(cmd.Angles)

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.Instant() {
		reach := p.Range
		if reach <= 0 {
			reach = weapon.UnlimitedRange
		}
		tr := r.arena.Trace(eye, eye.MA(reach, dir), geom.Vec3{}, geom.Vec3{}, cmd.Bot, world.MaskShot)
		if tr.Entity >= 0 {
			r.damage(cmd.Bot, tr.Entity, cmd.Weapon, p.Damage*float64(p.Shots), p.Shots, false)
		}
		return 0, false
	}

	id := r.next
	r.next++
	now, _ := r.arena.ServerTime()
	traj := world.Trajectory{
		Type:  world.TrajectoryLinear,
		Time:  now,
		Base:  eye.MA(muzzleOffset, dir),
		Delta: dir.Scale(p.Speed),
	}
	if p.Has(weapon.FlagDelay) {
		traj.Type = world.TrajectoryGravity
	}
	r.arena.Spawn(world.Snapshot{
		ID:         id,
		Time:       now,
		Origin:     traj.Base,
		Velocity:   traj.Delta,
		Team:       shooter.Team,
		Trajectory: traj,
	})
	r.missiles[id] = missile{owner: cmd.Bot, weapon: cmd.Weapon, launched: now}
	return id, true
}

// Step advances the arena by dt and resolves every missile that hit
// something along the way.
func (r *Referee) Step(dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := make(map[int]geom.Vec3, len(r.missiles))
	for id := range r.missiles {
		if s, ok := r.arena.Entity(id); ok {
			prev[id] = s.Origin
		}
	}

	r.arena.Step(dt)
	now, _ := r.arena.ServerTime()

	ids := make([]int, 0, len(r.missiles))
	for id := range r.missiles {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		m := r.missiles[id]
		s, ok := r.arena.Entity(id)
		from, moved := prev[id]
		if !ok || !moved {
			delete(r.missiles, id)
			continue
		}

		tr := r.arena.Trace(from, s.Origin, geom.Vec3{}, geom.Vec3{}, m.owner, world.MaskShot)
		switch {
		case tr.Hit() && tr.Surface&world.SurfNoImpact != 0:
			r.remove(id)
		case tr.Hit():
			r.explode(id, m, tr)
		case now-m.launched > missileLifetime:
			r.remove(id)
		}
	}
}

func (r *Referee) remove(id int) {
	delete(r.missiles, id)
	r.arena.Remove(id)
}

func (r *Referee) explode(id int, m missile, tr world.TraceResult) {
	p := r.catalog.Get(m.weapon)
	center := tr.EndPos

	target := world.EntityNone
	if tr.Entity >= 0 {
		target = tr.Entity
		r.damage(m.owner, target, m.weapon, p.Damage, 1, false)
	}

	for _, other := range r.arena.Entities() {
		if other == target {
			continue
		}
		s, ok := r.arena.Entity(other)
		if !ok || !s.Client || !s.Alive {
			continue
		}
		if dmg := p.Blast(geom.PointBoundDistance(center, s.Origin.Add(s.Mins), s.Origin.Add(s.Maxs))); dmg > 0 {
			r.damage(m.owner, other, m.weapon, dmg, 1, true)
		}
	}

	r.outcomes[id] = accuracy.MissileOutcome{State: accuracy.MissileExploded, Target: target, Origin: center}
	r.remove(id)
}

// damage hurts target and updates the attacker's tally by hits. Teammates
// are spared without friendly fire and count against the tally with it.
// Quad multiplies the damage; a battlesuit halves it and blocks splash.
func (r *Referee) damage(attacker, target int, w weapon.ID, amount float64, hits int, splash bool) {
	victim, ok := r.arena.Entity(target)
	if !ok || !victim.Client || !victim.Alive {
		return
	}
	shooter, _ := r.arena.Entity(attacker)
	if shooter.Powerups.Has(world.PowerQuad) {
		amount *= r.quadFactor
	}
	if victim.Powerups.Has(world.PowerBattlesuit) {
		if splash {
			return
		}
		amount /= 2
	}

	switch {
	case target == attacker:
	case r.teamPlay && victim.Team == shooter.Team:
		if !r.friendlyFire {
			return
		}
		r.hits[attacker] -= hits
	default:
		r.hits[attacker] += hits
	}

	r.arena.Update(target, func(s *world.Snapshot) {
		s.Health -= int(amount + 0.5)
		if s.Health <= 0 {
			s.Alive = false
			s.Velocity = geom.Vec3{}
		}
	})
	if victim.Health-int(amount+0.5) <= 0 {
		now, _ := r.arena.ServerTime()
		if dropped := r.kills.Push(Kill{Time: now, Attacker: attacker, Target: target, Weapon: w}); dropped > 0 {
			r.logger.Debug("Kill feed full", "dropped", dropped)
		}
		r.logger.Debug("Player killed", "attacker", attacker, "target", target, "weapon", r.catalog.Get(w).Name)
	}
}
