// Package view simulates how a bot turns its view. The bot picks an ideal
// view with selection error, then its actual view accelerates toward that
// choice under a bounded angular acceleration. Both carry a real value and
// the bot's own belief of it, and the beliefs are slowly corrected over
// time.
package view

import (
	"math"
	"math/rand"

	"github.com/OCAP2/combatbot/internal/geom"
)

// minAccel keeps misconfigured bots able to turn at all.
const minAccel = 100.0

// Pair holds a real value and the bot's perception of it.
type Pair struct {
	Real  float64
	Error float64
}

// Axis is the state of one rotation axis.
type Axis struct {
	Angle Pair
	// Speed is in degrees per second.
	Speed Pair

	MaxErrorFactor float64
	ErrorFactor    float64
	Time           float64
}

// Reset places the axis at angle, at rest and without error.
func (a *Axis) Reset(angle, time float64) {
	*a = Axis{
		Angle: Pair{Real: angle, Error: angle},
		Time:  time,
	}
}

// perceiveCorrect draws a new error offset uniformly between zero and
// offset, keeping its sign.
func perceiveCorrect(rng *rand.Rand, offset float64) float64 {
	return rng.Float64() * offset
}

// Correct applies one round of error correction to the perceived angle and
// speed.
func (a *Axis) Correct(rng *rand.Rand) {
	offset := geom.AngleDelta(a.Angle.Error, a.Angle.Real)
	a.Angle.Error = geom.AngleNormalize180(a.Angle.Real + perceiveCorrect(rng, offset))

	offset = a.Speed.Error - a.Speed.Real
	a.Speed.Error = a.Speed.Real + perceiveCorrect(rng, offset)
}

// Flawless drops every perception error.
func (a *Axis) Flawless() {
	a.Angle.Error = a.Angle.Real
	a.Speed.Error = a.Speed.Real
}

// turnsTowards shifts the pair so that end - start lies in [-180, 180].
func turnsTowards(start, end float64) (float64, float64) {
	start = geom.AngleNormalize360(start)
	end = geom.AngleNormalize360(end)
	if end-start > 180 {
		end -= 360
	}
	if start-end > 180 {
		start -= 360
	}
	return start, end
}

// Interpolate blends the last and next states of an axis at time. The
// next state takes over linearly during the reaction seconds after the
// last state was recorded.
func Interpolate(last, next Axis, time, reaction float64) Axis {
	if reaction < 0 {
		reaction = 0
	}
	adjust := time - last.Time
	elapsed := time - next.Time

	var predictability float64
	switch {
	case adjust >= reaction:
		predictability = 1
	case adjust <= 0:
		predictability = 0
	default:
		predictability = adjust / reaction
	}
	mix := func(old, cur float64) float64 {
		return predictability*cur + (1-predictability)*old
	}

	start, end := turnsTowards(
		last.Angle.Real+adjust*last.Speed.Real,
		next.Angle.Real+elapsed*next.Speed.Real,
	)

	var out Axis
	out.Angle.Real = geom.AngleNormalize180(mix(start, end))

	lastOffset := geom.AngleDelta(last.Angle.Error, start)
	nextOffset := geom.AngleDelta(next.Angle.Error, end)
	out.Angle.Error = geom.AngleNormalize180(out.Angle.Real + mix(lastOffset, nextOffset))

	out.Speed.Real = mix(last.Speed.Real, next.Speed.Real)
	out.Speed.Error = mix(last.Speed.Error, next.Speed.Error)
	out.MaxErrorFactor = mix(last.MaxErrorFactor, next.MaxErrorFactor)
	out.ErrorFactor = mix(last.ErrorFactor, next.ErrorFactor)
	out.Time = time
	return out
}

// Change says how an axis update relates to the previous one.
type Change int

const (
	// Unchanged updates continue the motion already being tracked.
	Unchanged Change = iota
	// Changed updates follow an unexpected change of motion.
	Changed
	// Reset updates start tracking something new.
	Reset
)

// Update feeds a new observation of an interpolated axis pair. angle is
// where the axis should point at time, speed an estimate of its angular
// speed used when none can be measured, and displace the angular distance
// from angle to the nearest reference point the eye can track. now is the
// server time the previous state is cached at when the motion changes.
func Update(last, next *Axis, angle, speed, displace, time, reaction, now float64, change Change) {
	var dt float64
	if change != Reset {
		dt = math.Max(0, time-next.Time)
		if dt == 0 {
			speed = next.Speed.Real
		} else {
			speed = geom.AngleDelta(angle, next.Angle.Real) / dt
		}
	}

	if change != Unchanged {
		*last = Interpolate(*last, *next, now, reaction)

		next.Angle.Error = geom.AngleNormalize180(angle + next.ErrorFactor*displace)
		next.Speed.Error = speed * (1 + next.ErrorFactor)
	} else {
		next.Angle.Error += next.Speed.Error * dt

		limit := math.Abs(next.MaxErrorFactor * displace)
		offset := geom.AngleDelta(next.Angle.Error, next.Angle.Real)
		if offset > limit {
			next.Angle.Error = geom.AngleNormalize180(next.Angle.Real + limit)
		} else if offset < -limit {
			next.Angle.Error = geom.AngleNormalize180(next.Angle.Real - limit)
		}

		limit = math.Abs(next.MaxErrorFactor * speed)
		offset = next.Speed.Error - next.Speed.Real
		if offset > limit {
			next.Speed.Error = next.Speed.Real + limit
		} else if offset < -limit {
			next.Speed.Error = next.Speed.Real - limit
		}
	}

	next.Angle.Real = geom.AngleNormalize180(angle)
	next.Speed.Real = speed
	next.Time = time
}

// Modify turns the axis toward angle, moving at speed, as quickly as an
// acceleration of at most maxAccel degrees per second squared allows,
// and advances it to time. The bot accelerates for some time, then
// decelerates, then matches the target speed. The real motion is scaled
// by the axis error factor while the perceived motion is not.
func (a *Axis) Modify(angle, speed, time, maxAccel float64) {
	if maxAccel < minAccel {
		maxAccel = minAccel
	}
	dt := time - a.Time
	if dt == 0 {
		return
	}

	angDiff := geom.AngleDelta(angle, a.Angle.Error)
	velDiff := speed - a.Speed.Error

	pick := angDiff
	if velDiff*velDiff >= 2*math.Abs(angDiff)*maxAccel {
		pick = velDiff
	}
	accel := maxAccel
	if pick < 0 {
		accel = -maxAccel
	}

	decel := math.Sqrt(math.Max(0, velDiff*velDiff*0.5+accel*angDiff)) / maxAccel
	accelTime := velDiff/accel + decel

	var steady float64
	switch {
	case accelTime > dt:
		accelTime, decel = dt, 0
	case accelTime+decel > dt:
		decel = dt - accelTime
	default:
		steady = dt - (accelTime + decel)
	}

	diff := accelTime - decel
	coefficient := (accelTime*accelTime + decel*(accelTime+diff) + 2*steady*diff) * 0.5
	scale := 1 + a.ErrorFactor

	a.Angle.Real = geom.AngleNormalize180(a.Angle.Real + a.Speed.Real*dt + accel*coefficient*scale)
	a.Angle.Error = geom.AngleNormalize180(a.Angle.Error + a.Speed.Error*dt + accel*coefficient)

	a.Speed.Real += accel * diff * scale
	a.Speed.Error += accel * diff
	a.Time = time
}
