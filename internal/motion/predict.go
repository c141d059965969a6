package motion

import (
	"math"

	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/world"
)

const (
	// maxGranularity caps the length of one physics frame.
	maxGranularity = 0.066
	// maxFrames bounds how many frames one prediction may run.
	maxFrames = 10

	maxForces = 5
	maxBumps  = 4

	// repeatedPlane is the normal similarity above which a hit plane is
	// treated as one already seen.
	repeatedPlane = 0.99
	clipAway      = 0.1
)

// Movement tuning from the server's player physics.
const (
	accelerate      = 10.0
	airAccelerate   = 1.0
	waterAccelerate = 4.0
	flyAccelerate   = 8.0

	friction       = 6.0
	waterFriction  = 1.0
	flightFriction = 3.0
	stopSpeed      = 100.0

	duckScale = 0.25
	swimScale = 0.5

	maxCommand = 127.0
)

// Predictor extrapolates entity motion by integrating server physics.
type Predictor struct {
	tracker *Tracker
	tracer  world.Tracer
	gravity float64
}

// NewPredictor creates a predictor that reads histories from tracker.
// A non-positive gravity uses the server default.
func NewPredictor(tracker *Tracker, gravity float64) *Predictor {
	if gravity <= 0 {
		gravity = Gravity
	}
	return &Predictor{
		tracker: tracker,
		tracer:  tracker.Tracer(),
		gravity: gravity,
	}
}

// Tracker returns the history source the predictor uses.
func (p *Predictor) Tracker() *Tracker {
	return p.tracker
}

// PredictAt returns the state of id at time on the entity's clock. Times
// covered by history are interpolated and later times are predicted from
// the current state.
func (p *Predictor) PredictAt(id int, time float64) (State, bool) {
	now, ok := p.tracker.Now(id)
	if !ok {
		return State{}, false
	}
	if time <= now.Time {
		return p.tracker.StateAt(id, time)
	}
	return p.Predict(now, time-now.Time), true
}

// PredictAhead returns the state of id the given number of seconds after
// its current state.
func (p *Predictor) PredictAhead(id int, seconds float64) (State, bool) {
	now, ok := p.tracker.Now(id)
	if !ok {
		return State{}, false
	}
	return p.Predict(now, seconds), true
}

// Predict advances s by seconds and returns the resulting state.
func (p *Predictor) Predict(s State, seconds float64) State {
	if seconds <= 0 {
		return s
	}
	if !s.Client {
		p.trajectory(&s, seconds)
		return s
	}

	ground := moveAxes(s.View, PhysicsGround)
	air := moveAxes(s.View, PhysicsFlight)

	granularity := p.tracker.UpdateRate(s.ID)
	if granularity > maxGranularity {
		granularity = maxGranularity
	}
	if floor := seconds / maxFrames; granularity < floor {
		granularity = floor
	}

	for seconds > 0 {
		if granularity > seconds {
			granularity = seconds
		}
		done := p.frame(&s, granularity, ground, air)
		if done < granularity {
			break
		}
		seconds -= done
	}
	return s
}

// Future predicts the bot's own state at commandTime. The previous
// prediction is reused while its time and movement commands still match.
func (p *Predictor) Future(now, previous State, commandTime float64) State {
	if math.Abs(previous.Time-commandTime) < 0.001 &&
		now.View == previous.View &&
		now.ForwardMove == previous.ForwardMove &&
		now.RightMove == previous.RightMove &&
		now.UpMove == previous.UpMove {
		return previous
	}
	return p.Predict(now, commandTime-now.Time)
}

func (p *Predictor) trajectory(s *State, seconds float64) {
	tr := s.Trajectory
	tr.Time = s.Time
	tr.Base = s.Origin
	tr.Delta = s.Velocity

	end := s.Time + seconds
	s.Origin = tr.Evaluate(end, p.gravity)
	if tr.Type == world.TrajectoryGravity {
		s.Velocity[geom.Z] = tr.Delta[geom.Z] - p.gravity*seconds
	}

	shift := s.Origin.Sub(tr.Base)
	s.AbsMin = s.AbsMin.Add(shift)
	s.AbsMax = s.AbsMax.Add(shift)
	s.Time = end
}

type axes [3]geom.Vec3

func moveAxes(view geom.Vec3, physics PhysicsType) axes {
	angles := geom.Vec3{0, view[geom.Yaw], 0}
	if physics == PhysicsWater || physics == PhysicsFlight {
		angles[geom.Pitch] = view[geom.Pitch]
	}
	f, r, u := geom.AngleVectors(angles)
	return axes{f, r, u}
}

// frame runs one physics step and returns the seconds it covered, or zero
// when the state cannot be simulated.
func (p *Predictor) frame(s *State, seconds float64, ground, air axes) float64 {
	switch s.Physics.Type {
	case PhysicsGround, PhysicsGravity, PhysicsWater, PhysicsFlight:
	default:
		return 0
	}

	if s.UpMove >= 10 && s.Physics.Type == PhysicsGround {
		s.Physics.Type = PhysicsGravity
		s.Physics.Walking = false
		s.Physics.Ground = geom.Vec3{}
		s.Velocity[geom.Z] = JumpVelocity
	}

	start := s.Origin
	applyFriction(s, seconds)

	ax := ground
	if s.Physics.Type == PhysicsFlight || s.Physics.Type == PhysicsWater {
		ax = air
	}
	dir, speed := desiredDirection(s, ax)
	applyAcceleration(s, seconds, dir, speed)
	applySlope(s)

	switch {
	case s.Physics.Type == PhysicsWater:
		p.slide(s, seconds)
	case s.Physics.Type != PhysicsGround || s.Velocity[geom.X] != 0 || s.Velocity[geom.Y] != 0:
		p.step(s, seconds)
	default:
		// Standing still on the ground never moves.
		s.Time += seconds
	}

	shift := s.Origin.Sub(start)
	s.AbsMin = s.AbsMin.Add(shift)
	s.AbsMax = s.AbsMax.Add(shift)
	s.Velocity = s.Velocity.Snap()

	Refresh(p.tracer, s)
	return seconds
}

func applyFriction(s *State, seconds float64) {
	v := s.Velocity
	if s.Physics.Walking {
		v[geom.Z] = 0
	}
	speed := v.Len()
	if speed < 1 {
		s.Velocity[geom.X] = 0
		s.Velocity[geom.Y] = 0
		return
	}

	drop := 0.0
	if s.WaterLevel <= 1 && s.Physics.Walking && !s.Physics.Knockback {
		drop += friction * math.Max(stopSpeed, speed)
	}
	if s.WaterLevel > 0 {
		drop += waterFriction * float64(s.WaterLevel) * speed
	}
	if s.Physics.Type == PhysicsFlight {
		drop += flightFriction * speed
	}

	remain := 1 - drop*seconds/speed
	if remain < 0 {
		remain = 0
	}
	s.Velocity = s.Velocity.Scale(remain)
}

// desiredDirection converts the movement commands of s into a unit
// direction and the speed the entity wants to move at.
func desiredDirection(s *State, ax axes) (geom.Vec3, float64) {
	forward, right := ax[0], ax[1]
	fm, rm, um := s.ForwardMove, s.RightMove, s.UpMove
	phys := s.Physics

	maxCmd := math.Max(math.Abs(fm), math.Max(math.Abs(rm), math.Abs(um)))
	scale := 0.0
	if maxCmd > 0 {
		scale = s.MaxSpeed * maxCmd / (maxCommand * math.Sqrt(fm*fm+rm*rm+um*um))
	}

	if phys.Type == PhysicsGravity || phys.Type == PhysicsGround {
		forward[geom.Z] = 0
		right[geom.Z] = 0
		if phys.Type == PhysicsGround {
			forward = geom.ClipVelocity(forward, phys.Ground, Overclip)
			right = geom.ClipVelocity(right, phys.Ground, Overclip)
		}
		forward, _ = forward.Normalize()
		right, _ = right.Normalize()
	}

	var dir geom.Vec3
	var speed float64
	if scale <= 0 && phys.Type == PhysicsWater {
		dir = geom.Vec3{0, 0, -1}
		speed = waterSinkSpeed
	} else {
		dir = forward.Scale(fm).Add(right.Scale(rm))
		if phys.Type == PhysicsWater || phys.Type == PhysicsFlight {
			dir[geom.Z] += um
		}
		dir, speed = dir.Scale(scale).Normalize()
	}

	if phys.Type == PhysicsWater && speed > s.MaxSpeed*swimScale {
		speed = s.MaxSpeed * swimScale
	}
	if um < 0 && phys.Type == PhysicsGround && speed > s.MaxSpeed*duckScale {
		speed = s.MaxSpeed * duckScale
	}
	if s.WaterLevel > 0 && phys.Type == PhysicsGround {
		drag := (1 - swimScale) * float64(s.WaterLevel) / 3
		if wade := s.MaxSpeed * (1 - drag); speed > wade {
			speed = wade
		}
	}
	return dir, speed
}

func applyAcceleration(s *State, seconds float64, dir geom.Vec3, speed float64) {
	var accel float64
	switch s.Physics.Type {
	case PhysicsFlight:
		accel = flyAccelerate
	case PhysicsWater:
		accel = waterAccelerate
	case PhysicsGravity:
		accel = airAccelerate
	default:
		accel = accelerate
		if s.Physics.Knockback {
			accel = airAccelerate
		}
	}

	room := speed - s.Velocity.Dot(dir)
	if room <= 0 {
		return
	}
	change := accel * speed * seconds
	if change > room {
		change = room
	}
	s.Velocity = s.Velocity.MA(change, dir)
}

// applySlope redirects velocity along the surface the entity stands on.
func applySlope(s *State) {
	ground := s.Physics.Ground
	if ground.IsZero() || s.Physics.Type == PhysicsFlight {
		return
	}
	if s.Physics.Type == PhysicsWater && s.Velocity.Dot(ground) >= 0 {
		return
	}

	speed := s.Velocity.Len()
	s.Velocity = geom.ClipVelocity(s.Velocity, ground, Overclip)
	if s.Physics.Type != PhysicsGravity {
		dir, _ := s.Velocity.Normalize()
		s.Velocity = dir.Scale(speed)
	}
}

// slide moves s for seconds, deflecting off at most a few planes. It
// returns true when nothing was in the way.
func (p *Predictor) slide(s *State, seconds float64) bool {
	if seconds <= 0 {
		return true
	}

	onGround := !s.Physics.Ground.IsZero()
	startVelocity := s.Velocity
	useGravity := s.Physics.Type == PhysicsGravity

	var finalVelocity geom.Vec3
	if useGravity {
		loss := p.gravity * seconds
		finalVelocity = s.Velocity
		finalVelocity[geom.Z] -= loss
		s.Velocity[geom.Z] -= loss * 0.5
		startVelocity[geom.Z] = finalVelocity[geom.Z]
		if onGround {
			s.Velocity = geom.ClipVelocity(s.Velocity, s.Physics.Ground, Overclip)
		}
	}

	forces := make([]geom.Vec3, 0, maxForces)
	if onGround {
		forces = append(forces, s.Physics.Ground)
	}
	dir, _ := s.Velocity.Normalize()
	forces = append(forces, dir)

	unobstructed := true
	for bumps := maxBumps; bumps > 0 && seconds > 0; bumps-- {
		end := s.Origin.MA(seconds, s.Velocity)
		trace := p.tracer.Trace(s.Origin, end, s.Mins, s.Maxs, s.ID, s.ClipMask)
		if trace.AllSolid {
			s.Velocity[geom.Z] = 0
			s.Time += seconds
			return false
		}

		if trace.Fraction > 0 {
			covered := seconds * trace.Fraction
			seconds -= covered
			s.Time += covered
			s.Origin = trace.EndPos
			if seconds <= 0 || trace.Fraction >= 1 {
				break
			}
		}

		unobstructed = false
		if len(forces) >= maxForces {
			s.Velocity = geom.Vec3{}
			s.Time += seconds
			return false
		}

		repeated := false
		for _, f := range forces {
			if trace.Normal.Dot(f) > repeatedPlane {
				repeated = true
				break
			}
		}
		if repeated {
			s.Velocity = s.Velocity.Add(trace.Normal)
			continue
		}
		forces = append(forces, trace.Normal)

		if p.deflect(s, forces, &finalVelocity, useGravity) {
			s.Velocity = geom.Vec3{}
			s.Time += seconds
			return false
		}
	}

	if seconds > 0 {
		s.Time += seconds
	}
	if useGravity {
		s.Velocity = finalVelocity
	}
	if s.Time < s.MoveTime {
		s.Velocity = startVelocity
	}
	return unobstructed
}

// deflect clips the velocity of s against the planes in forces. It
// returns true when the entity is wedged into a corner of three planes.
func (p *Predictor) deflect(s *State, forces []geom.Vec3, finalVelocity *geom.Vec3, useGravity bool) bool {
	for i, first := range forces {
		if first.Dot(s.Velocity) >= clipAway {
			continue
		}

		attempt := geom.ClipVelocity(s.Velocity, first, Overclip)
		var attemptFinal geom.Vec3
		if useGravity {
			attemptFinal = geom.ClipVelocity(*finalVelocity, first, Overclip)
		}

		for j, second := range forces {
			if i == j || second.Dot(attempt) >= clipAway {
				continue
			}

			attempt = geom.ClipVelocity(attempt, second, Overclip)
			if useGravity {
				attemptFinal = geom.ClipVelocity(attemptFinal, second, Overclip)
			}
			if attempt.Dot(first) >= 0 {
				continue
			}

			// Slide along the crease between both planes.
			crease, _ := first.Cross(second).Normalize()
			attempt = crease.Scale(crease.Dot(s.Velocity))
			if useGravity {
				attemptFinal = crease.Scale(crease.Dot(*finalVelocity))
			}

			for k, third := range forces {
				if k == i || k == j || third.Dot(attempt) >= clipAway {
					continue
				}
				return true
			}
		}

		s.Velocity = attempt
		if useGravity {
			*finalVelocity = attemptFinal
		}
		return false
	}
	return false
}

// step slides s and, if that was obstructed, retries from a stair
// height above the start.
func (p *Predictor) step(s *State, seconds float64) {
	if s.Velocity.IsZero() && s.Physics.Type == PhysicsGround {
		s.Time += seconds
		return
	}

	origin := s.Origin
	velocity := s.Velocity
	startTime := s.Time
	if p.slide(s, seconds) {
		return
	}

	// Moving up without ground to step from means a jump, not a stair.
	if s.Velocity[geom.Z] > 0 {
		down := origin
		down[geom.Z] -= StepSize
		trace := p.tracer.Trace(origin, down, s.Mins, s.Maxs, s.ID, s.ClipMask)
		if !trace.Hit() || trace.Normal[geom.Z] < MinWalkNormal {
			return
		}
	}

	up := origin
	up[geom.Z] += StepSize
	trace := p.tracer.Trace(origin, up, s.Mins, s.Maxs, s.ID, s.ClipMask)
	if trace.AllSolid {
		return
	}
	stepHeight := trace.EndPos[geom.Z] - origin[geom.Z]

	s.Origin = trace.EndPos
	s.Velocity = velocity
	s.Time = startTime
	p.slide(s, seconds)

	down := s.Origin
	down[geom.Z] -= stepHeight
	trace = p.tracer.Trace(s.Origin, down, s.Mins, s.Maxs, s.ID, s.ClipMask)
	if !trace.AllSolid {
		s.Origin = trace.EndPos
	}
	if trace.Hit() {
		s.Velocity = geom.ClipVelocity(s.Velocity, trace.Normal, Overclip)
	}
}
