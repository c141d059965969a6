package attack

import (
	"math"

	"github.com/OCAP2/combatbot/internal/geom"
)

// LeadTime estimates when a projectile fired at speed after lag seconds
// meets a target at offset p moving with constant velocity v. It solves
// |p + t*v| = speed*(t - lag) for the earliest t >= lag, falls back to the
// linear solution when the quadratic term vanishes, and finally to the
// travel time to the target's current position. The result is never
// below lag.
func LeadTime(p, v geom.Vec3, speed, lag float64) float64 {
	if lag < 0 {
		lag = 0
	}
	if speed <= 0 {
		return lag
	}

	s2 := speed * speed
	a := v.Dot(v) - s2
	b := 2 * (p.Dot(v) + s2*lag)
	c := p.Dot(p) - s2*lag*lag

	switch {
	case a != 0:
		if disc := b*b - 4*a*c; disc >= 0 {
			root := math.Sqrt(disc)
			t0 := (-b - root) / (2 * a)
			t1 := (-b + root) / (2 * a)
			if t1 < t0 {
				t0, t1 = t1, t0
			}
			if t0 >= lag {
				return t0
			}
			if t1 >= lag {
				return t1
			}
		}
	case b != 0:
		if t := -c / b; t >= lag {
			return t
		}
	}

	if t := p.Len() / speed; t > lag {
		return t
	}
	return lag
}
