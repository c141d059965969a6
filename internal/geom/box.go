package geom

import "github.com/go-gl/mathgl/mgl64"

// RayHit describes how a ray meets an axis aligned box.
type RayHit uint8

const (
	// RayTouch is set whenever the ray reaches the box.
	RayTouch RayHit = 1 << iota
	// RayEnter is set when the ray enters the box from outside.
	RayEnter
	// RayExit is set when the ray leaves the box.
	RayExit
)

// TraceBox intersects the ray pos + t*dir (t >= 0) with the box mins..maxs
// using the slab method. A ray starting inside the box reports
// RayTouch|RayExit but never RayEnter. enter and exit are only meaningful
// when the matching bit is set.
func TraceBox(pos, dir, mins, maxs Vec3) (hit RayHit, enter, exit Vec3) {
	maxEnter, minExit := -1.0, -1.0

	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if pos[i] < mins[i] || pos[i] > maxs[i] {
				return 0, enter, exit
			}
			continue
		}

		axisEnter := (mins[i] - pos[i]) / dir[i]
		axisExit := (maxs[i] - pos[i]) / dir[i]
		if axisExit < axisEnter {
			axisEnter, axisExit = axisExit, axisEnter
		}
		if axisExit < 0 {
			return 0, enter, exit
		}

		if maxEnter < axisEnter {
			maxEnter = axisEnter
		}
		if minExit > axisExit || minExit < 0 {
			minExit = axisExit
		}
		if minExit < maxEnter {
			return 0, enter, exit
		}
	}

	hit = RayTouch
	if maxEnter >= 0 {
		hit |= RayEnter
		enter = pos.MA(maxEnter, dir)
	}
	if minExit >= 0 {
		hit |= RayExit
		exit = pos.MA(minExit, dir)
	}
	return hit, enter, exit
}

// NearestBoundPoint returns the point of the box closest to loc.
func NearestBoundPoint(loc, mins, maxs Vec3) Vec3 {
	var edge Vec3
	for i := 0; i < 3; i++ {
		edge[i] = mgl64.Clamp(loc[i], mins[i], maxs[i])
	}
	return edge
}

// PointBoundDistanceSq returns the squared distance from loc to the box.
func PointBoundDistanceSq(loc, mins, maxs Vec3) float64 {
	return loc.DistSq(NearestBoundPoint(loc, mins, maxs))
}

// PointBoundDistance returns the distance from loc to the box.
func PointBoundDistance(loc, mins, maxs Vec3) float64 {
	return loc.Dist(NearestBoundPoint(loc, mins, maxs))
}

// BoxesOverlap reports whether two boxes intersect.
func BoxesOverlap(amin, amax, bmin, bmax Vec3) bool {
	for i := 0; i < 3; i++ {
		if amax[i] < bmin[i] || amin[i] > bmax[i] {
			return false
		}
	}
	return true
}

// BoxCenter returns the center of a box.
func BoxCenter(mins, maxs Vec3) Vec3 {
	return mins.Add(maxs).Scale(0.5)
}
