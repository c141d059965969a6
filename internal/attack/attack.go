// Package attack decides where a bot should aim to hit a target and
// whether a shot taken along its current view would land. Targets are
// looked up lagged behind the bot's next command, led for projectile
// travel time and, when hidden, attacked through blast damage on the floor
// beneath them.
package attack

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/motion"
	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/world"
)

// Floor shots need a skilled bot and a wide blast.
const (
	floorMinSkill  = 0.5
	floorMinRadius = 75.0
	leadMinSkill   = 0.3
)

// Env is the part of the world the selector consults.
type Env interface {
	world.Tracer
	world.Snapshots
	world.Router
}

// Method records how the shot location was chosen.
type Method int

const (
	MethodNone Method = iota
	// MethodVisible aims at the visible part of the predicted target.
	MethodVisible
	// MethodFloor aims at the floor under the target for blast damage.
	MethodFloor
	// MethodHidden aims at the floor where a hidden target is expected to
	// reappear.
	MethodHidden
)

func (m Method) String() string {
	switch m {
	case MethodVisible:
		return "visible"
	case MethodFloor:
		return "floor"
	case MethodHidden:
		return "hidden"
	default:
		return "none"
	}
}

// Shooter is the bot side of an attack decision.
type Shooter struct {
	ID int
	// Now is the bot as last processed by the server and Future the bot
	// predicted to its next command.
	Now        motion.State
	Future     motion.State
	ViewHeight float64

	CommandTime  float64
	ReactTime    float64
	TeleportTime float64

	// Held is the weapon currently raised and Ammo its ammunition, with
	// -1 meaning unlimited.
	Held weapon.ID
	Ammo int

	Skill    [weapon.NumWeapons]float64
	Accuracy [weapon.NumWeapons]float64
}

// Eye is where the bot will look from when its next command runs.
func (s *Shooter) Eye() geom.Vec3 {
	return s.Future.Eye(s.ViewHeight)
}

// EyeNow is where the bot looks from right now.
func (s *Shooter) EyeNow() geom.Vec3 {
	return s.Now.Eye(s.ViewHeight)
}

// Teleported reports whether the bot teleported too recently to react.
func (s *Shooter) Teleported() bool {
	return s.TeleportTime > 0 && s.CommandTime-s.TeleportTime < s.ReactTime
}

// State is the selected attack: who is targeted, where to aim, and the
// target motion the shot was planned against.
type State struct {
	Target   int
	Weapon   weapon.ID
	Accuracy float64
	Skill    float64
	// Sighted is when the bot first saw the target, or negative if it
	// never has.
	Sighted float64

	// ShotLoc is where to aim and Reference the point the eye tracks.
	ShotLoc   geom.Vec3
	Reference geom.Vec3
	Motion    motion.State
	Method    Method
}

// NewState returns a state without a target.
func NewState() State {
	return State{Target: world.EntityNone, Sighted: -1}
}

// HasTarget reports whether a target is selected.
func (s *State) HasTarget() bool {
	return s.Target != world.EntityNone
}

// Clear drops the current target.
func (s *State) Clear() {
	*s = NewState()
}

// AddError offsets every world position of the attack by err. The
// reference point is what the eye tracks and keeps no error.
func (s *State) AddError(err geom.Vec3) {
	s.ShotLoc = s.ShotLoc.Add(err)
	s.Motion.Origin = s.Motion.Origin.Add(err)
	s.Motion.AbsMin = s.Motion.AbsMin.Add(err)
	s.Motion.AbsMax = s.Motion.AbsMax.Add(err)
}

// Selector plans attacks for bots sharing one world.
type Selector struct {
	env       Env
	predictor *motion.Predictor
	catalog   *weapon.Catalog
	settings  Settings
	logger    *slog.Logger

	selected   metric.Int64Counter
	hits       metric.Int64Counter
	mismatches metric.Int64Counter
}

// NewSelector creates a selector.
func NewSelector(env Env, predictor *motion.Predictor, catalog *weapon.Catalog, settings Settings, logger *slog.Logger) (*Selector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Selector{
		env:       env,
		predictor: predictor,
		catalog:   catalog,
		settings:  settings,
		logger:    logger,
	}

	m := meter()
	var err error
	s.selected, err = m.Int64Counter(
		"attack.targets.selected",
		metric.WithDescription("Attack targets selected, by aim method"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create selected counter: %w", err)
	}
	s.hits, err = m.Int64Counter(
		"attack.fire.decisions",
		metric.WithDescription("Fire decisions, by the hit test that passed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fire decision counter: %w", err)
	}
	s.mismatches, err = m.Int64Counter(
		"attack.fire.mismatches",
		metric.WithDescription("Fire decisions that full information would have changed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mismatch counter: %w", err)
	}
	return s, nil
}

// Settings returns the tuning the selector was created with.
func (s *Selector) Settings() Settings {
	return s.settings
}

// Select plans an attack on target with weapon w. sighted is when the bot
// first saw the target. It returns false when the target cannot be
// attacked with that weapon.
func (s *Selector) Select(ctx context.Context, sh *Shooter, target int, w weapon.ID, sighted float64) (State, bool) {
	if w <= weapon.None || w >= weapon.NumWeapons {
		return NewState(), false
	}

	st := State{
		Target:   target,
		Weapon:   w,
		Accuracy: sh.Accuracy[w],
		Skill:    sh.Skill[w],
		Sighted:  sighted,
	}
	if !s.target(sh, &st) {
		return NewState(), false
	}

	s.selected.Add(ctx, 1, metric.WithAttributes(attribute.String("method", st.Method.String())))
	return st, true
}

// target fills in the shot location of st.
func (s *Selector) target(sh *Shooter, st *State) bool {
	snap, ok := s.env.Entity(st.Target)
	if !ok {
		return false
	}
	p := s.catalog.Get(st.Weapon)

	m, lag, ok := s.predictor.Tracker().Lagged(sh.ID, sh.CommandTime, st.Target, s.settings.LagMin)
	if !ok {
		return false
	}
	st.Motion = m

	eye := sh.Eye()
	visibility, center := VisibleCenter(s.env, sh.ID, eye, snap, s.settings.FocusHeadDist, s.settings.FocusBodyDist)
	visible := visibility > 0
	if visible {
		st.Reference = center
	} else {
		st.Reference = st.Motion.Origin
	}
	st.ShotLoc = st.Reference

	if s.predict(sh, st, p, lag) {
		visible = true
	}

	if !p.InRange(eye.Dist(st.ShotLoc)) {
		return false
	}

	blast := canAimFloor(st.Skill, p)
	switch {
	case blast && s.floor(sh, st, p):
		st.Method = MethodFloor
	case visible:
		st.Method = MethodVisible
	case blast && s.hidden(sh, st, p, snap):
		st.Method = MethodHidden
	default:
		return false
	}
	return true
}

// predict moves the target motion ahead to when the shot arrives and
// reports whether the predicted origin can be seen.
func (s *Selector) predict(sh *Shooter, st *State, p *weapon.Profile, lag float64) bool {
	lead := lag
	if st.Skill >= leadMinSkill {
		lead = LeadTime(st.Motion.Origin.Sub(sh.Future.Origin), st.Motion.Velocity, p.Speed, lag)
	}

	switch st.Motion.Physics.Type {
	case motion.PhysicsGround, motion.PhysicsWater, motion.PhysicsFlight:
		// Targets that steer will probably change course before a long
		// lead runs out.
		if full := s.settings.LeadTimeFull; lead > full {
			lead = full + s.settings.LeadTimeScale*(lead-full)
		}
	}

	before := st.Motion.Origin
	st.Motion = s.predictor.Predict(st.Motion, lead)
	st.ShotLoc = st.ShotLoc.Add(st.Motion.Origin.Sub(before))

	trace := s.env.Trace(sh.Eye(), st.Motion.Origin, geom.Vec3{}, geom.Vec3{}, sh.ID, world.MaskSolid)
	return !trace.Hit() || trace.Entity == st.Target
}

func canAimFloor(skill float64, p *weapon.Profile) bool {
	return skill >= floorMinSkill && p.Radius >= floorMinRadius && !p.Has(weapon.FlagDelay)
}

// floor aims at the ground below the predicted target.
func (s *Selector) floor(sh *Shooter, st *State, p *weapon.Profile) bool {
	radius := p.Radius
	eye := sh.Eye()
	if eye[geom.Z] < st.Motion.AbsMin[geom.Z]-radius {
		return false
	}

	end := st.Motion.Origin
	end[geom.Z] -= radius
	trace := s.env.Trace(st.Motion.Origin, end, st.Motion.Mins, st.Motion.Maxs, st.Target, world.MaskSolid)
	if !trace.Hit() {
		return false
	}

	ground := trace.EndPos
	ground[geom.Z] += st.Motion.Mins[geom.Z]
	trace = s.env.Trace(eye, ground, geom.Vec3{}, geom.Vec3{}, sh.ID, world.MaskSolid)
	shot := trace.EndPos

	probe := Shot{
		Shooter:    sh.ID,
		Target:     st.Target,
		Muzzle:     eye,
		ShooterMin: sh.Now.AbsMin,
		ShooterMax: sh.Now.AbsMax,
	}
	if !probe.BlastCanDamage(s.env, radius, st.Motion.AbsMin, st.Motion.AbsMax, shot) {
		return false
	}

	st.ShotLoc = shot
	st.Reference = shot
	return true
}

// hidden aims at the floor where a hidden target should first come into
// view if it heads for the bot.
func (s *Selector) hidden(sh *Shooter, st *State, p *weapon.Profile, snap world.Snapshot) bool {
	if snap.Area == 0 {
		return false
	}
	pos, ok := s.env.PredictVisiblePosition(snap.Origin, snap.Area, sh.Now.Origin)
	if !ok {
		return false
	}

	st.Motion.Origin = pos
	st.Motion.AbsMin = pos.Add(st.Motion.Mins)
	st.Motion.AbsMax = pos.Add(st.Motion.Maxs)
	return s.floor(sh, st, p)
}

// Bounds returns the world box fire decisions test against: grown for
// weapons where a miss is cheap, shrunk toward the real box for careful
// shots.
func (s *Selector) Bounds(sh *Shooter, st *State) (geom.Vec3, geom.Vec3) {
	var scale float64
	if s.catalog.Careless(sh.Held) {
		scale = s.settings.CarelessFactor
	} else {
		scale = geom.Interpolate(s.settings.CarefulFactorMax, s.settings.CarefulFactorMin, st.Accuracy)
	}

	var mins, maxs geom.Vec3
	if scale > 1 {
		mins, maxs = Expand(st.Motion.Mins, st.Motion.Maxs, st.ShotLoc.Sub(sh.Eye()), scale, st.Motion.Physics.Type)
	} else {
		mins, maxs = Shrink(st.Motion.Mins, st.Motion.Maxs, st.ShotLoc.Sub(st.Motion.Origin), scale)
	}
	return st.Motion.Origin.Add(mins), st.Motion.Origin.Add(maxs)
}

// CheckHit reports which hit test, if any, passes for a shot fired along
// view at the box absmin..absmax.
func (s *Selector) CheckHit(sh *Shooter, st *State, view, absmin, absmax geom.Vec3) HitKind {
	p := s.catalog.Get(sh.Held)
	shot := NewShot(sh.ID, st.Target, sh.Eye(), view, p, sh.Now.AbsMin, sh.Now.AbsMax)
	return shot.Check(s.env, p, TargetBox{
		Origin:    st.Motion.Origin,
		AbsMin:    absmin,
		AbsMax:    absmax,
		ActualMin: st.Motion.AbsMin,
		ActualMax: st.Motion.AbsMax,
	})
}
