package attack

import (
	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/motion"
)

// Expand scales the entity-relative box mins..maxs by scale on every axis
// except the one most colinear with offset, the direction from the shooter
// to the shot. The vertical axis only grows for targets that steer
// vertically. Scales of 1 or less leave the box unchanged.
func Expand(mins, maxs, offset geom.Vec3, scale float64, physics motion.PhysicsType) (geom.Vec3, geom.Vec3) {
	if scale <= 1 {
		return mins, maxs
	}

	mag := offset.Abs()
	colinear := geom.Z
	switch {
	case mag[geom.X] > mag[geom.Y] && mag[geom.X] > mag[geom.Z]:
		colinear = geom.X
	case mag[geom.Y] > mag[geom.Z]:
		colinear = geom.Y
	}

	for axis := geom.X; axis <= geom.Z; axis++ {
		if axis == colinear {
			continue
		}
		if axis == geom.Z && physics != motion.PhysicsWater && physics != motion.PhysicsFlight {
			continue
		}
		mins[axis] *= scale
		maxs[axis] *= scale
	}
	return mins, maxs
}

// Shrink scales the entity-relative box mins..maxs about its center by
// scale, never moving a face past the shot location (offset, relative to
// the entity origin) by less than one unit. Scales outside [0, 1) leave
// the box unchanged.
func Shrink(mins, maxs, offset geom.Vec3, scale float64) (geom.Vec3, geom.Vec3) {
	if scale >= 1 || scale < 0 {
		return mins, maxs
	}

	for axis := geom.X; axis <= geom.Z; axis++ {
		radius := (maxs[axis] - mins[axis]) * 0.5
		center := mins[axis] + radius
		radius *= scale

		low, high := center-radius, center+radius
		if offset[axis] >= low+1 {
			mins[axis] = low
		}
		if offset[axis] <= high-1 {
			maxs[axis] = high
		}
	}
	return mins, maxs
}
