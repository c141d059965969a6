package attack

import (
	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/world"
)

// scanResult is the outcome of choosing scan points on a target box.
type scanResult int

const (
	scanFail scanResult = iota
	scanPass
	scanInside
)

// side of the box an eye coordinate lies on, per axis.
const (
	sideInside = iota
	sideBelow
	sideAbove
)

// NumScans is how many points of a box are traced to judge visibility.
const NumScans = 4

// visualScans picks the points of the box mins..maxs to trace from eye.
// They are the centers of the four octants facing the eye: the near face
// when the eye is off one axis, and the two silhouette edges when it is off
// two. Corners are treated as the edge nearest to the eye.
func visualScans(eye, mins, maxs geom.Vec3) ([NumScans]geom.Vec3, scanResult) {
	var scans [NumScans]geom.Vec3
	var side [3]int

	nearest, nearestDist := 0, -1.0
	outside := 0
	for i := 0; i < 3; i++ {
		size := maxs[i] - mins[i]
		if size <= 0 {
			return scans, scanFail
		}

		var dist float64
		switch {
		case eye[i] < mins[i]:
			side[i] = sideBelow
			dist = mins[i] - eye[i]
		case eye[i] > maxs[i]:
			side[i] = sideAbove
			dist = eye[i] - maxs[i]
		}
		if side[i] != sideInside {
			outside++
		}

		dist /= size
		if nearestDist < 0 || dist < nearestDist {
			nearest, nearestDist = i, dist
		}
	}

	if outside == 3 {
		side[nearest] = sideInside
		outside--
	}
	if outside == 0 {
		return scans, scanInside
	}

	// Octant centers lie halfway between the box center and its faces.
	center := geom.BoxCenter(mins, maxs)
	bound := [2]geom.Vec3{
		center.Lerp(mins, 0.5),
		center.Lerp(maxs, 0.5),
	}
	near := func(axis int) int {
		if side[axis] == sideAbove {
			return 1
		}
		return 0
	}

	var off []int
	var in []int
	for i := 0; i < 3; i++ {
		if side[i] == sideInside {
			in = append(in, i)
		} else {
			off = append(off, i)
		}
	}

	// corners lists, per scan point, which bound each axis takes.
	var corners [NumScans][3]int
	if len(off) == 1 {
		a, b, c := off[0], in[0], in[1]
		for n, pair := range [NumScans][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
			corners[n][a] = near(a)
			corners[n][b] = pair[0]
			corners[n][c] = pair[1]
		}
	} else {
		a, b, c := off[0], off[1], in[0]
		for n := 0; n < NumScans; n++ {
			if n < 2 {
				corners[n][a], corners[n][b] = near(a), 1-near(b)
			} else {
				corners[n][a], corners[n][b] = 1-near(a), near(b)
			}
			corners[n][c] = n % 2
		}
	}

	for n := range corners {
		for axis := 0; axis < 3; axis++ {
			scans[n][axis] = bound[corners[n][axis]][axis]
		}
	}
	return scans, scanPass
}

// VisibleCenter traces the scan points of target from eye and returns the
// fraction that can be seen together with the center of the visible ones.
// Fully visible players near the shooter have the center pulled up to
// their eye level. shooter is ignored by the traces.
func VisibleCenter(tr world.Tracer, shooter int, eye geom.Vec3, target world.Snapshot, headDist, bodyDist float64) (float64, geom.Vec3) {
	mins := target.Origin.Add(target.Mins)
	maxs := target.Origin.Add(target.Maxs)

	scans, res := visualScans(eye, mins, maxs)
	switch res {
	case scanFail:
		return 0, geom.Vec3{}
	case scanInside:
		return 1, geom.BoxCenter(mins, maxs)
	}

	var center geom.Vec3
	hits := 0
	for _, scan := range scans {
		trace := tr.Trace(eye, scan, geom.Vec3{}, geom.Vec3{}, shooter, world.MaskSolid)
		if trace.Hit() && trace.Entity != target.ID {
			continue
		}
		center = center.Add(scan)
		hits++
	}
	if hits == 0 {
		return 0, geom.Vec3{}
	}
	center = center.Scale(1 / float64(hits))
	visibility := float64(hits) / NumScans

	if visibility >= 1 && target.Client && headDist < bodyDist {
		head := target.Origin
		head[geom.Z] += target.ViewHeight

		dist := eye.Dist(target.Origin)
		var headShare float64
		switch {
		case dist <= headDist:
			headShare = 1
		case dist < bodyDist:
			headShare = (bodyDist - dist) / (bodyDist - headDist)
		}
		center = center.Lerp(head, headShare)
	}
	return visibility, center
}

// Visible reports whether any scan point of target can be seen from eye.
func Visible(tr world.Tracer, shooter int, eye geom.Vec3, target world.Snapshot) bool {
	scans, res := visualScans(eye, target.Origin.Add(target.Mins), target.Origin.Add(target.Maxs))
	switch res {
	case scanFail:
		return false
	case scanInside:
		return true
	}
	for _, scan := range scans {
		trace := tr.Trace(eye, scan, geom.Vec3{}, geom.Vec3{}, shooter, world.MaskSolid)
		if !trace.Hit() || trace.Entity == target.ID {
			return true
		}
	}
	return false
}
