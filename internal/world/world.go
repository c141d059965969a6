// Package world declares the engine services the combat core consumes:
// collision traces, per-frame entity snapshots, the routing oracle and the
// server clock. The core never implements them itself.
package world

//go:generate go tool mockgen -destination=./mocks/world_mock.go -package=mocks . Tracer,Snapshots,Router,Clock

import "github.com/OCAP2/combatbot/internal/geom"

// Contents is a bitmask of brush and entity content flags.
type Contents uint32

const (
	ContentsSolid      Contents = 0x1
	ContentsLava       Contents = 0x8
	ContentsSlime      Contents = 0x10
	ContentsWater      Contents = 0x20
	ContentsPlayerClip Contents = 0x10000
	ContentsBody       Contents = 0x2000000
	ContentsCorpse     Contents = 0x4000000
	ContentsNoDrop     Contents = 0x80000000

	MaskSolid       = ContentsSolid
	MaskPlayerSolid = ContentsSolid | ContentsPlayerClip | ContentsBody
	MaskShot        = ContentsSolid | ContentsBody | ContentsCorpse
	MaskWater       = ContentsWater | ContentsLava | ContentsSlime
)

// SurfaceFlags describe the surface a trace stopped on.
type SurfaceFlags uint32

const (
	// SurfSlick surfaces have no ground friction.
	SurfSlick SurfaceFlags = 0x2
	// SurfNoImpact marks sky and other surfaces missiles vanish into.
	SurfNoImpact SurfaceFlags = 0x10
)

// Entity ids with special meaning in trace results.
const (
	EntityNone  = -1
	EntityWorld = -2
)

// TraceResult is the outcome of sweeping a box from start to end.
type TraceResult struct {
	Fraction   float64
	EndPos     geom.Vec3
	Normal     geom.Vec3
	Entity     int
	Surface    SurfaceFlags
	Contents   Contents
	AllSolid   bool
	StartSolid bool
}

// Hit reports whether the sweep stopped before reaching its end.
func (r TraceResult) Hit() bool {
	return r.Fraction < 1
}

// Tracer sweeps boxes through the world.
type Tracer interface {
	// Trace sweeps the box mins..maxs from start to end, ignoring the
	// entity with id ignore. A zero box traces a ray.
	Trace(start, end, mins, maxs geom.Vec3, ignore int, mask Contents) TraceResult
	// PointContents returns the contents at a point.
	PointContents(p geom.Vec3, ignore int) Contents
}

// Team identifies which side an entity fights for.
type Team int

const (
	TeamFree Team = iota
	TeamRed
	TeamBlue
	TeamSpectator
)

// TrajectoryType is how a non-player entity moves between snapshots.
type TrajectoryType int

const (
	TrajectoryStationary TrajectoryType = iota
	TrajectoryLinear
	TrajectoryGravity
)

// Trajectory is the server-side description of a missile or mover path.
type Trajectory struct {
	Type  TrajectoryType
	Time  float64
	Base  geom.Vec3
	Delta geom.Vec3
}

// Evaluate returns the trajectory position at time t.
func (tr Trajectory) Evaluate(t, gravity float64) geom.Vec3 {
	dt := t - tr.Time
	switch tr.Type {
	case TrajectoryLinear:
		return tr.Base.MA(dt, tr.Delta)
	case TrajectoryGravity:
		p := tr.Base.MA(dt, tr.Delta)
		p[geom.Z] -= 0.5 * gravity * dt * dt
		return p
	default:
		return tr.Base
	}
}

// Powerup is a set of active item effects.
type Powerup uint8

const (
	// PowerQuad multiplies the damage the carrier deals.
	PowerQuad Powerup = 1 << iota
	// PowerHaste speeds up movement and reloading.
	PowerHaste
	// PowerBattlesuit halves incoming damage and blocks splash.
	PowerBattlesuit
)

// Has reports whether every effect in f is active.
func (p Powerup) Has(f Powerup) bool { return p&f == f }

// Snapshot is what the bot can observe of one entity in the current frame.
type Snapshot struct {
	ID     int
	Client bool
	// Time is the entity's own timestamp. For players this is the time of
	// the last processed command.
	Time float64

	Origin   geom.Vec3
	Velocity geom.Vec3
	Mins     geom.Vec3
	Maxs     geom.Vec3
	View     geom.Vec3

	ViewHeight float64
	Health     int
	Powerups   Powerup
	Team       Team
	Alive      bool
	Spectator  bool
	Area       int
	ClipMask   Contents

	// TeleportBit toggles every time the entity teleports.
	TeleportBit bool
	Crouch      bool
	Flight      bool
	MaxSpeed    float64
	// OnGround is true when the server last placed the entity on a
	// ground entity.
	OnGround  bool
	MoveFlags int
	// MoveTime is how many seconds remain on the timers in MoveFlags.
	MoveTime float64

	ForwardMove float64
	RightMove   float64
	UpMove      float64

	// Synchronous entities are updated in the server frame rather than
	// from client commands.
	Synchronous bool
	Trajectory  Trajectory
}

// Snapshots gives read access to the current frame.
type Snapshots interface {
	Entity(id int) (Snapshot, bool)
	Entities() []int
}

// Router is the area-graph oracle used as a best-effort fallback.
type Router interface {
	// PredictVisiblePosition guesses where an entity in area will first
	// become visible from goal.
	PredictVisiblePosition(from geom.Vec3, area int, goal geom.Vec3) (geom.Vec3, bool)
}

// Clock reports the server time of the most recent frame.
type Clock interface {
	ServerTime() (seconds float64, millis int64)
}

// World bundles every consumed service.
type World interface {
	Tracer
	Snapshots
	Router
	Clock
}
