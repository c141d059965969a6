// Package aim decides what a bot looks at each frame. Candidates are
// tried in a fixed priority order and the first one that applies sets the
// bot's ideal view; attacking an enemy is only one of them.
package aim

import (
	"context"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/OCAP2/combatbot/internal/attack"
	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/motion"
	"github.com/OCAP2/combatbot/internal/selector"
	"github.com/OCAP2/combatbot/internal/view"
	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/world"
)

// sameLocation is how far an aim location may move before it counts as a
// new target.
const sameLocation = 8.0

// playerTurn is the change of view direction that marks a player as
// having changed course.
var playerTurn = math.Cos(mgl64.DegToRad(30))

// Type is the reason a bot aims where it does.
type Type int

const (
	TypeNone Type = iota
	TypeActivator
	TypeJump
	TypeEnemy
	TypeMapObject
	TypeSwim
	TypeFaceEntity
	TypeMovement
	TypeAware
	TypeStrafeJump
	TypeGoal
	TypeSearch
	TypeRepeat
)

func (t Type) String() string {
	switch t {
	case TypeActivator:
		return "activator"
	case TypeJump:
		return "jump"
	case TypeEnemy:
		return "enemy"
	case TypeMapObject:
		return "map object"
	case TypeSwim:
		return "swim"
	case TypeFaceEntity:
		return "face entity"
	case TypeMovement:
		return "movement"
	case TypeAware:
		return "aware"
	case TypeStrafeJump:
		return "strafe jump"
	case TypeGoal:
		return "goal"
	case TypeSearch:
		return "search"
	case TypeRepeat:
		return "repeat"
	default:
		return "none"
	}
}

// Flags are the movement preconditions of the current frame.
type Flags uint16

const (
	// FlagJump is set when movement plans a jump along Input.JumpDir.
	FlagJump Flags = 1 << iota
	// FlagStrafeJump is set while strafe jumping.
	FlagStrafeJump
	// FlagSwimView is set when movement wants to look along Input.MoveView
	// to swim.
	FlagSwimView
	// FlagMovementView is set when movement needs the view in Input.MoveView.
	FlagMovementView
	// FlagMovementWeapon is set when movement also needs Input.MoveWeapon.
	FlagMovementWeapon
)

// Has reports whether every bit in f is set.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

// Path is the part of a route plan aiming cares about.
type Path struct {
	// Subgoal is an entity blocking the path, or world.EntityNone.
	Subgoal int
	// Shoot is set when the subgoal is activated by shooting it.
	Shoot bool
}

// Goal is the place the bot is travelling to.
type Goal struct {
	Entity int
	// Area is the routing area of the goal, or 0 for none.
	Area   int
	Origin geom.Vec3
}

// Input is what the planning and awareness layers decided this frame.
type Input struct {
	Flags Flags

	ItemPath Path
	MainPath Path

	JumpDir          geom.Vec3
	MoveView         geom.Vec3
	MoveWeapon       weapon.ID
	StrafeJumpAngles geom.Vec3

	AimEnemy   int
	GoalEnemy  int
	FaceEntity int

	// AwareLocation is watched until AwareUntil.
	AwareLocation geom.Vec3
	AwareUntil    float64

	Goal Goal

	// Sighted maps entities to when the bot first saw them.
	Sighted map[int]float64
}

// NewInput returns an input without any targets.
func NewInput() Input {
	none := Path{Subgoal: world.EntityNone}
	return Input{
		ItemPath:   none,
		MainPath:   none,
		AimEnemy:   world.EntityNone,
		GoalEnemy:  world.EntityNone,
		FaceEntity: world.EntityNone,
		Goal:       Goal{Entity: world.EntityNone},
	}
}

// Trigger is a shootable map object that hurts players standing in a
// region, such as a crusher over a pit. The region is Mins..Maxs in x and
// y and everything below Mins.z.
type Trigger struct {
	Mins   geom.Vec3
	Maxs   geom.Vec3
	Center geom.Vec3
}

func (t Trigger) contains(p geom.Vec3) bool {
	return p[geom.X] > t.Mins[geom.X] && p[geom.X] < t.Maxs[geom.X] &&
		p[geom.Y] > t.Mins[geom.Y] && p[geom.Y] < t.Maxs[geom.Y] &&
		p[geom.Z] < t.Mins[geom.Z]
}

// Env is the part of the world aiming reads.
type Env interface {
	world.Tracer
	world.Snapshots
	world.Router
}

// State is what a bot remembers about its aim between frames.
type State struct {
	Type   Type
	Entity int
	Loc    geom.Vec3

	eyeLastAim   geom.Vec3
	speedsFixed  geom.Vec3
	enemyMoveDir geom.Vec3

	searchTarget  geom.Vec3
	searchTimeout float64
}

// NewState returns a state that has never aimed.
func NewState() *State {
	return &State{Entity: world.EntityNone}
}

// setType records the reason for aiming and reports whether it differs
// from the previous one. Entities are compared when given, otherwise
// locations are.
func (s *State) setType(t Type, ent int, loc *geom.Vec3) bool {
	if s.Type == t {
		switch {
		case ent != world.EntityNone:
			if s.Entity == ent {
				return false
			}
		case loc != nil:
			if s.Loc.DistSq(*loc) < sameLocation*sameLocation {
				return false
			}
		default:
			return false
		}
	}

	s.Type = t
	s.Entity = ent
	if loc != nil {
		s.Loc = *loc
	}
	return true
}

// Result is the outcome of one aim selection.
type Result struct {
	Type Type
	// Weapon is the weapon to raise.
	Weapon weapon.ID
	// Angles are the view angles the bot chose, selection error included.
	Angles geom.Vec3
	// Attack is the planned attack when the bot aims at a target.
	Attack attack.State
}

// Context carries everything a candidate may read or change.
type Context struct {
	Ctx     context.Context
	Env     Env
	Attack  *attack.Selector
	View    *view.State
	Memory  *State
	Shooter *attack.Shooter
	Arsenal *selector.Arsenal
	RNG     *rand.Rand

	Bot      view.Bot
	Team     world.Team
	TeamPlay bool
	Triggers []Trigger
	Input    Input

	Result Result
}

// setAngles aims along fixed angles.
func (c *Context) setAngles(t Type, angles geom.Vec3) {
	changes := view.Changes(0)
	if c.Memory.setType(t, world.EntityNone, nil) {
		changes = view.ChangeReset
	}
	angles = geom.NormalizeView(angles)
	c.Result.Angles = c.View.IdealUpdate(c.Bot, angles, geom.Vec3{}, angles, changes)
}

// setLoc aims at loc, moving at speed when given. ref is the visible
// point nearest to loc, or loc itself when nil. It returns the location
// the bot actually chose to aim at, assuming the same distance.
func (c *Context) setLoc(t Type, ent int, loc geom.Vec3, speed, ref *geom.Vec3) geom.Vec3 {
	var changes view.Changes
	switch {
	case c.Memory.setType(t, ent, &loc):
		changes = view.ChangeReset
	case c.isClient(ent):
		changes = c.playerChanged(ent)
	default:
		changes = c.locChanged(loc)
	}

	eye := c.Shooter.Eye()
	c.Memory.eyeLastAim = eye

	dir, dist := loc.Sub(eye).Normalize()
	angles := geom.NormalizeView(geom.VectorToAngles(dir))

	var speeds geom.Vec3
	if speed != nil {
		next := loc.MA(motion.ServerFrame, *speed)
		nextAngles := geom.VectorToAngles(next.Sub(eye))
		for i := geom.Pitch; i <= geom.Roll; i++ {
			speeds[i] = geom.AngleDelta(nextAngles[i], angles[i]) / motion.ServerFrame
		}
	}

	refs := angles
	if ref != nil {
		refs = geom.NormalizeView(geom.VectorToAngles(ref.Sub(eye)))
	}

	selected := c.View.IdealUpdate(c.Bot, angles, speeds, refs, changes)
	c.Result.Angles = selected
	return eye.MA(dist, geom.Forward(selected))
}

func (c *Context) isClient(ent int) bool {
	if ent == world.EntityNone {
		return false
	}
	s, ok := c.Env.Entity(ent)
	return ok && s.Client
}

// playerChanged reports a change on every axis when the player turned
// more than playerTurn since the last check.
func (c *Context) playerChanged(ent int) view.Changes {
	s, _ := c.Env.Entity(ent)
	dir := geom.Forward(s.View)
	similarity := dir.Dot(c.Memory.enemyMoveDir)
	c.Memory.enemyMoveDir = dir

	if similarity > playerTurn {
		return 0
	}
	return 1<<geom.Pitch | 1<<geom.Yaw
}

// locChanged detects changes in the angular speed of loc, ignoring the
// bot's own movement since the last aim.
func (c *Context) locChanged(loc geom.Vec3) view.Changes {
	angles := geom.NormalizeView(geom.VectorToAngles(loc.Sub(c.Memory.eyeLastAim)))

	next := c.View.IdealNext()
	var speeds geom.Vec3
	for i := geom.Pitch; i <= geom.Yaw; i++ {
		dt := c.Bot.CommandTime - next[i].Time
		if dt <= 0 {
			speeds[i] = c.Memory.speedsFixed[i]
		} else {
			speeds[i] = geom.AngleDelta(angles[i], next[i].Angle.Real) / dt
		}
	}
	old := c.Memory.speedsFixed
	c.Memory.speedsFixed = speeds

	// Speeds measured right after a reset are unreliable.
	if c.Bot.ServerTime <= c.View.IdealResetTime() {
		return 0
	}
	return view.SpeedsChanged(old, speeds)
}

// aimTarget plans an attack on ent with w and aims at the shot location.
func (c *Context) aimTarget(t Type, ent int, w weapon.ID) bool {
	if ent == world.EntityNone || c.Shooter.Teleported() {
		return false
	}

	sighted, seen := c.Input.Sighted[ent]
	if !seen {
		sighted = -1
	}
	st, ok := c.Attack.Select(c.Ctx, c.Shooter, ent, w, sighted)
	if !ok {
		return false
	}

	selected := c.setLoc(t, st.Target, st.ShotLoc, &st.Motion.Velocity, &st.Reference)
	st.AddError(selected.Sub(st.ShotLoc))
	c.Result.Attack = st
	return true
}
