// Package motion tracks how entities have moved and predicts where they
// will be. Players keep a short history of observed states; prediction
// integrates the same ground, air, water and flight physics the server
// applies to them.
package motion

import (
	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/world"
)

// PhysicsType is the movement model currently applied to an entity.
type PhysicsType int

const (
	PhysicsNone PhysicsType = iota
	PhysicsTrajectory
	PhysicsGround
	PhysicsGravity
	PhysicsWater
	PhysicsFlight
)

func (p PhysicsType) String() string {
	switch p {
	case PhysicsTrajectory:
		return "trajectory"
	case PhysicsGround:
		return "ground"
	case PhysicsGravity:
		return "gravity"
	case PhysicsWater:
		return "water"
	case PhysicsFlight:
		return "flight"
	default:
		return "none"
	}
}

// Movement timer flags carried in State.MoveFlags.
const (
	FlagTimeLand      = 32
	FlagTimeKnockback = 64
	FlagTimeWaterJump = 256
)

// Physics constants shared with the server's player movement code.
const (
	ServerFrame = 0.05

	Gravity        = 800.0
	JumpVelocity   = 270.0
	StepSize       = 18.0
	MinWalkNormal  = 0.7
	Overclip       = 1.001
	MinsZ          = -24.0
	ViewHeight     = 26.0
	CrouchHeight   = 12.0
	hardLandSpeed  = -200.0
	hardLandPause  = 0.025
	groundProbe    = 0.25
	upwardEscape   = 10.0
	waterSinkSpeed = 60.0
)

// Physics describes the ground contact and movement model of a state.
type Physics struct {
	Type PhysicsType
	// Ground is the normal of the surface under the entity, or zero when
	// nothing is under it.
	Ground    geom.Vec3
	Walking   bool
	Knockback bool
}

// State is one observed or predicted moment of an entity's motion.
type State struct {
	ID          int
	Client      bool
	Synchronous bool
	Time        float64

	Origin   geom.Vec3
	Velocity geom.Vec3
	Mins     geom.Vec3
	Maxs     geom.Vec3
	AbsMin   geom.Vec3
	AbsMax   geom.Vec3
	View     geom.Vec3

	ClipMask    world.Contents
	TeleportBit bool
	Crouch      bool
	Flight      bool
	MaxSpeed    float64
	MoveFlags   int
	MoveTime    float64

	ForwardMove float64
	RightMove   float64
	UpMove      float64

	WaterLevel int
	Physics    Physics
	Trajectory world.Trajectory
}

// FromSnapshot builds the motion state of an entity as the server last
// processed it. Cached water and ground data is not computed; call
// Refresh for that.
func FromSnapshot(s world.Snapshot) State {
	st := State{
		ID:          s.ID,
		Client:      s.Client,
		Synchronous: s.Synchronous,
		Time:        s.Time,
		Origin:      s.Origin,
		Mins:        s.Mins,
		Maxs:        s.Maxs,
		AbsMin:      s.Origin.Add(s.Mins),
		AbsMax:      s.Origin.Add(s.Maxs),
		ClipMask:    s.ClipMask,
		TeleportBit: s.TeleportBit,
		Crouch:      s.Crouch,
		Trajectory:  s.Trajectory,
	}
	if st.ClipMask == 0 {
		st.ClipMask = world.MaskPlayerSolid
	}

	if s.Client {
		st.Velocity = s.Velocity
		st.Flight = s.Flight
		st.MaxSpeed = s.MaxSpeed
		st.MoveFlags = s.MoveFlags
		if st.MoveFlags != 0 && s.MoveTime > 0 {
			st.MoveTime = st.Time + s.MoveTime
		}
		st.ForwardMove = s.ForwardMove
		st.RightMove = s.RightMove
		st.UpMove = s.UpMove
		st.View = s.View
	} else if s.Trajectory.Type != world.TrajectoryStationary {
		// Stationary entities sometimes report stale velocities.
		st.Velocity = s.Trajectory.Delta
	}

	st.Physics.Walking = s.OnGround
	return st
}

// Eye returns the eye position of the state for the given view height.
func (s State) Eye(viewHeight float64) geom.Vec3 {
	eye := s.Origin.Snap()
	eye[geom.Z] += viewHeight
	return eye
}

// knockedBack reports whether a knockback timer is still running.
func (s State) knockedBack() bool {
	return s.MoveFlags&FlagTimeKnockback != 0 && s.Time < s.MoveTime
}

// Refresh recomputes the water level and physics of s after its position
// or velocity changed. The previous walking flag is used to detect hard
// landings, so it must be seeded before the first call.
func Refresh(tr world.Tracer, s *State) {
	s.WaterLevel = waterLevel(tr, s)

	wasWalking := s.Physics.Walking
	s.Physics = physicsOf(tr, s)

	if !wasWalking && s.Physics.Walking && s.Velocity[geom.Z] < hardLandSpeed {
		s.MoveFlags |= FlagTimeLand
		s.MoveTime = s.Time + hardLandPause
	}
}

// waterLevel samples the feet, waist and head of a player: 0 is dry and
// 3 is fully submerged.
func waterLevel(tr world.Tracer, s *State) int {
	if !s.Client {
		return 0
	}

	point := s.Origin
	point[geom.Z] = s.Origin[geom.Z] + MinsZ + 1
	if tr.PointContents(point, s.ID)&world.MaskWater == 0 {
		return 0
	}

	viewHeight := ViewHeight
	if s.Crouch {
		viewHeight = CrouchHeight
	}
	aboveHead := viewHeight - MinsZ
	midBody := aboveHead / 2

	point[geom.Z] = s.Origin[geom.Z] + MinsZ + midBody
	if tr.PointContents(point, s.ID)&world.MaskWater == 0 {
		return 1
	}
	point[geom.Z] = s.Origin[geom.Z] + MinsZ + aboveHead
	if tr.PointContents(point, s.ID)&world.MaskWater == 0 {
		return 2
	}
	return 3
}

func physicsOf(tr world.Tracer, s *State) Physics {
	phys := Physics{Knockback: s.knockedBack()}

	var surface world.SurfaceFlags
	phys.Ground, surface, phys.Walking = groundContact(tr, s)
	if surface&world.SurfSlick != 0 {
		phys.Knockback = true
	}

	switch {
	case !s.Client:
		phys.Type = PhysicsTrajectory
	case s.Flight:
		phys.Type = PhysicsFlight
	case s.WaterLevel >= 2:
		phys.Type = PhysicsWater
	case phys.Walking:
		phys.Type = PhysicsGround
	default:
		phys.Type = PhysicsGravity
	}
	return phys
}

// groundContact probes just below the entity for a surface it can stand
// on.
func groundContact(tr world.Tracer, s *State) (normal geom.Vec3, surface world.SurfaceFlags, walking bool) {
	below := s.Origin
	below[geom.Z] -= groundProbe
	trace := tr.Trace(s.Origin, below, s.Mins, s.Maxs, s.ID, s.ClipMask)
	if trace.AllSolid {
		return geom.Vec3{}, 0, false
	}

	touch := trace.Hit()
	if touch {
		normal = trace.Normal
		surface = trace.Surface
	}

	if s.Velocity[geom.Z] > 0 && s.Velocity.Dot(normal) > upwardEscape {
		return normal, surface, false
	}
	return normal, surface, touch && normal[geom.Z] >= MinWalkNormal
}
