package attack

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/world"
)

// muzzleOffset is how far in front of the eye shots start.
const muzzleOffset = 14.0

// Blast damage is only trusted well inside the radius: the shooter must be
// outside 90% of it and the target inside 80% of it.
const (
	selfBlastShare   = 0.81
	targetBlastShare = 0.64
)

// HitKind names the hit test that authorized a shot.
type HitKind int

const (
	HitNone HitKind = iota
	HitDirect
	HitSpread
	HitBlast
)

func (k HitKind) String() string {
	switch k {
	case HitDirect:
		return "direct"
	case HitSpread:
		return "spread"
	case HitBlast:
		return "blast"
	default:
		return "none"
	}
}

// Shot is one hypothetical shot checked against a target box.
type Shot struct {
	Shooter int
	Target  int
	Muzzle  geom.Vec3
	Forward geom.Vec3
	Range   float64
	// ShooterMin and ShooterMax bound the shooter, who must stay out of
	// its own blast.
	ShooterMin geom.Vec3
	ShooterMax geom.Vec3
}

// NewShot aims a shot along view from eye.
func NewShot(shooter, target int, eye, view geom.Vec3, p *weapon.Profile, absmin, absmax geom.Vec3) Shot {
	forward := geom.Forward(view)
	return Shot{
		Shooter:    shooter,
		Target:     target,
		Muzzle:     eye.MA(muzzleOffset, forward).Snap(),
		Forward:    forward,
		Range:      p.PerceivedMaxRange(),
		ShooterMin: absmin,
		ShooterMax: absmax,
	}
}

// wall traces the shot to the first solid surface within range.
func (s Shot) wall(tr world.Tracer) world.TraceResult {
	end := s.Muzzle.MA(s.Range, s.Forward)
	return tr.Trace(s.Muzzle, end, geom.Vec3{}, geom.Vec3{}, s.Shooter, world.MaskSolid)
}

// Direct reports whether the shot ray enters the box absmin..absmax before
// it reaches a wall.
func (s Shot) Direct(tr world.Tracer, absmin, absmax geom.Vec3) bool {
	hit, enter, _ := geom.TraceBox(s.Muzzle, s.Forward, absmin, absmax)
	if hit&geom.RayTouch == 0 {
		return false
	}
	if hit&geom.RayEnter == 0 {
		return true
	}

	wall := s.wall(tr)
	return s.Muzzle.DistSq(enter) < s.Muzzle.DistSq(wall.EndPos)
}

// Spread reports whether a weapon with the given cone half-angle, in
// degrees, would land at least one pellet on a target whose box is
// absmin..absmax and whose origin is at origin.
func (s Shot) Spread(tr world.Tracer, spread float64, origin, absmin, absmax geom.Vec3) bool {
	if spread <= 0 {
		return false
	}
	weaponSpread := mgl64.DegToRad(spread)

	toTarget, dist := origin.Sub(s.Muzzle).Normalize()
	if dist <= 0 {
		return true
	}

	// Weigh each box axis by how perpendicular it is to the line of fire.
	radii := absmax.Sub(absmin).Scale(0.5)
	weights := geom.Vec3{1, 1, 1}.Sub(toTarget.Abs())
	weights, _ = weights.Normalize()
	radius := radii.Dot(weights)

	targetSpread := math.Atan2(radius, dist)
	if targetSpread >= weaponSpread {
		return false
	}
	allowed := weaponSpread - targetSpread
	if toTarget.Dot(s.Forward) < math.Cos(allowed) {
		return false
	}

	trace := tr.Trace(s.Muzzle, origin, geom.Vec3{}, geom.Vec3{}, s.Shooter, world.MaskSolid)
	return !trace.Hit() || trace.Entity == s.Target
}

// Blast reports whether a shot exploding on the first wall along the line
// of fire would splash the box absmin..absmax.
func (s Shot) Blast(tr world.Tracer, radius float64, absmin, absmax geom.Vec3) bool {
	if radius <= 0 {
		return false
	}
	wall := s.wall(tr)
	if !wall.Hit() || wall.Surface&world.SurfNoImpact != 0 {
		return false
	}
	return s.BlastCanDamage(tr, radius, absmin, absmax, wall.EndPos)
}

// BlastCanDamage reports whether an explosion at blast with the given
// radius damages the box absmin..absmax without hurting the shooter.
func (s Shot) BlastCanDamage(tr world.Tracer, radius float64, absmin, absmax, blast geom.Vec3) bool {
	r2 := radius * radius
	if geom.PointBoundDistanceSq(blast, s.ShooterMin, s.ShooterMax) < r2*selfBlastShare {
		return false
	}

	contact := geom.NearestBoundPoint(blast, absmin, absmax)
	if blast.DistSq(contact) > r2*targetBlastShare {
		return false
	}

	// Pull the start off the impact surface toward the shooter.
	start := blast.Lerp(s.Muzzle, 0.01)
	trace := tr.Trace(start, contact, geom.Vec3{}, geom.Vec3{}, s.Target, world.MaskShot)
	return !trace.Hit()
}

// TargetBox is the target as a hit test sees it.
type TargetBox struct {
	Origin geom.Vec3
	// AbsMin and AbsMax are the scaled bounds direct and spread shots are
	// judged against.
	AbsMin geom.Vec3
	AbsMax geom.Vec3
	// ActualMin and ActualMax are the unscaled bounds blasts must reach.
	ActualMin geom.Vec3
	ActualMax geom.Vec3
}

// Check runs the direct, spread and blast tests in turn and returns the
// first that passes.
func (s Shot) Check(tr world.Tracer, p *weapon.Profile, box TargetBox) HitKind {
	switch {
	case s.Direct(tr, box.AbsMin, box.AbsMax):
		return HitDirect
	case s.Spread(tr, p.Spread, box.Origin, box.AbsMin, box.AbsMax):
		return HitSpread
	case s.Blast(tr, p.Radius, box.ActualMin, box.ActualMax):
		return HitBlast
	}
	return HitNone
}
