package aim

import (
	"math"
	"sort"

	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/world"
)

const (
	searchPoints  = 16
	searchChoices = 3
	searchRadius  = 1024.0
	// searchMinDist is how far a search target must be from the eye.
	searchMinDist = 384.0
	searchDrop    = 1024.0
	searchHeight  = 48.0

	searchMinTime = 1.0
	searchMaxTime = 1.5
)

type searchPoint struct {
	distSq float64
	point  geom.Vec3
}

// selectSearch finds a random spot around the bot worth looking at. It
// returns the squared distance of the nearest spot it considered, or
// false when nothing qualifies.
func (c *Context) selectSearch() (geom.Vec3, float64, bool) {
	eye := c.Shooter.Eye()
	id := c.Shooter.ID
	step := 2 * math.Pi / searchPoints

	var points []searchPoint
	for i := 1; i <= searchPoints; i++ {
		sin, cos := math.Sincos(step * float64(i))
		far := eye
		far[geom.X] += searchRadius * cos
		far[geom.Y] += searchRadius * sin

		tr := c.Env.Trace(eye, far, geom.Vec3{}, geom.Vec3{}, id, world.MaskSolid)
		if eye.DistSq(tr.EndPos) < searchMinDist*searchMinDist {
			continue
		}

		// Back off the wall a little and look for a floor below.
		point := tr.EndPos.Lerp(eye, 0.05)
		floor := point
		floor[geom.Z] -= searchDrop
		tr = c.Env.Trace(point, floor, geom.Vec3{}, geom.Vec3{}, id, world.MaskSolid)
		if !tr.Hit() {
			continue
		}
		ground := tr.EndPos
		ground[geom.Z]++
		if c.Env.PointContents(ground, id)&(world.ContentsNoDrop|world.ContentsLava|world.ContentsSlime) != 0 {
			continue
		}

		// Prefer a spot just above the floor when the eye can see it.
		raised := ground
		raised[geom.Z] += searchHeight
		tr = c.Env.Trace(eye, raised, geom.Vec3{}, geom.Vec3{}, id, world.MaskSolid)
		target := point
		if !tr.Hit() {
			target = raised
		}
		points = append(points, searchPoint{distSq: target.DistSq(eye), point: target})
	}

	if len(points) == 0 {
		return geom.Vec3{}, 0, false
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].distSq > points[j].distSq })
	if len(points) > searchChoices {
		points = points[:searchChoices]
	}
	choice := points[c.RNG.Intn(len(points))]
	return choice.point, points[len(points)-1].distSq, true
}

type search struct{}

func (search) Type() Type { return TypeSearch }

// TryApply looks around for enemies. The target is kept until it times
// out or something better comes into view.
func (search) TryApply(c *Context) Outcome {
	target, dist, ok := c.selectSearch()
	if !ok {
		return Continue
	}

	m := c.Memory
	renew := m.searchTimeout <= c.Bot.CommandTime
	if !renew {
		eye := c.Shooter.Eye()
		tr := c.Env.Trace(eye, m.searchTarget, geom.Vec3{}, geom.Vec3{}, c.Shooter.ID, world.MaskSolid)
		renew = eye.DistSq(tr.EndPos) < dist
	}
	if renew {
		m.searchTarget = target
		m.searchTimeout = c.Bot.CommandTime + searchMinTime + (searchMaxTime-searchMinTime)*c.RNG.Float64()
	}

	c.setLoc(TypeSearch, world.EntityNone, m.searchTarget, nil, nil)
	return Applied
}
