// Package arena is an in-memory world of axis aligned brushes and moving
// entities. It implements every engine service the combat core consumes
// and drives the headless simulator and tests.
package arena

import (
	"math"
	"slices"
	"sync"

	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/world"
)

const (
	// traceEpsilon keeps trace end points off the surface they hit.
	traceEpsilon = 1.0 / 32

	gravity       = 800.0
	minWalkNormal = 0.7
	overclip      = 1.001
	routeStep     = 32.0
)

// Player bounding box.
var (
	PlayerMins = geom.Vec3{-15, -15, -24}
	PlayerMaxs = geom.Vec3{15, 15, 32}
)

// Brush is a solid or liquid box.
type Brush struct {
	Mins     geom.Vec3
	Maxs     geom.Vec3
	Contents world.Contents
	Surface  world.SurfaceFlags
}

// Arena is safe for concurrent readers while Step runs exclusively.
type Arena struct {
	mu       sync.RWMutex
	brushes  []Brush
	entities map[int]world.Snapshot
	time     float64
}

// New creates an arena with the given brushes and no entities.
func New(brushes ...Brush) *Arena {
	a := &Arena{entities: make(map[int]world.Snapshot)}
	for _, b := range brushes {
		a.AddBrush(b)
	}
	return a
}

// AddBrush adds b. Brushes without contents are solid.
func (a *Arena) AddBrush(b Brush) {
	if b.Contents == 0 {
		b.Contents = world.ContentsSolid
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.brushes = append(a.brushes, b)
}

// Spawn adds or replaces an entity. Players without a box get the
// standard player box.
func (a *Arena) Spawn(s world.Snapshot) {
	if s.Client && s.Mins.IsZero() && s.Maxs.IsZero() {
		s.Mins, s.Maxs = PlayerMins, PlayerMaxs
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if s.Time == 0 {
		s.Time = a.time
	}
	a.entities[s.ID] = s
}

// Remove deletes an entity.
func (a *Arena) Remove(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.entities, id)
}

// Update changes an entity in place. It returns false for unknown ids.
func (a *Arena) Update(id int, fn func(*world.Snapshot)) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.entities[id]
	if !ok {
		return false
	}
	fn(&s)
	a.entities[id] = s
	return true
}

// Entity returns the snapshot of id.
func (a *Arena) Entity(id int) (world.Snapshot, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.entities[id]
	return s, ok
}

// Entities returns every entity id in ascending order.
func (a *Arena) Entities() []int {
	a.mu.RLock()
	ids := make([]int, 0, len(a.entities))
	for id := range a.entities {
		ids = append(ids, id)
	}
	a.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// ServerTime returns the time of the last step.
func (a *Arena) ServerTime() (float64, int64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.time, int64(math.Round(a.time * 1000))
}

// Trace sweeps mins..maxs from start to end against brushes matching mask
// and, when mask includes bodies, against living entities.
func (a *Arena) Trace(start, end, mins, maxs geom.Vec3, ignore int, mask world.Contents) world.TraceResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.trace(start, end, mins, maxs, ignore, mask)
}

func (a *Arena) trace(start, end, mins, maxs geom.Vec3, ignore int, mask world.Contents) world.TraceResult {
	res := world.TraceResult{Fraction: 1, Entity: world.EntityNone}
	dir := end.Sub(start)
	length := dir.Len()

	hit := func(bmin, bmax geom.Vec3, entity int, contents world.Contents, surface world.SurfaceFlags) {
		// Sweeping a box is tracing a ray against the box grown by it.
		bmin, bmax = bmin.Sub(maxs), bmax.Sub(mins)
		if length == 0 {
			if geom.BoxesOverlap(start, start, bmin, bmax) {
				res.StartSolid, res.AllSolid = true, true
				res.Fraction = 0
			}
			return
		}
		touch, enter, _ := geom.TraceBox(start, dir, bmin, bmax)
		if touch&geom.RayTouch == 0 {
			return
		}
		if touch&geom.RayEnter == 0 {
			res.StartSolid = true
			return
		}
		f := enter.Sub(start).Len() / length
		if f >= 1 || f >= res.Fraction {
			return
		}
		res.Fraction = math.Max(0, f-traceEpsilon/length)
		res.Normal = faceNormal(enter, dir, bmin, bmax)
		res.Entity = entity
		res.Contents = contents
		res.Surface = surface
	}

	for _, b := range a.brushes {
		if b.Contents&mask != 0 {
			hit(b.Mins, b.Maxs, world.EntityWorld, b.Contents, b.Surface)
		}
	}
	if mask&world.ContentsBody != 0 {
		for id, s := range a.entities {
			if id == ignore || !s.Alive || s.Spectator {
				continue
			}
			hit(s.Origin.Add(s.Mins), s.Origin.Add(s.Maxs), id, world.ContentsBody, 0)
		}
	}

	res.EndPos = start.Lerp(end, res.Fraction)
	return res
}

// faceNormal finds the face of bmin..bmax a ray along dir entered at p.
func faceNormal(p, dir, bmin, bmax geom.Vec3) geom.Vec3 {
	var n geom.Vec3
	for i := 0; i < 3; i++ {
		if dir[i] > 0 && math.Abs(p[i]-bmin[i]) < 1e-6 {
			n[i] = -1
			return n
		}
		if dir[i] < 0 && math.Abs(p[i]-bmax[i]) < 1e-6 {
			n[i] = 1
			return n
		}
	}
	return n
}

// PointContents merges the contents of every brush and body containing p.
func (a *Arena) PointContents(p geom.Vec3, ignore int) world.Contents {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var c world.Contents
	for _, b := range a.brushes {
		if geom.BoxesOverlap(p, p, b.Mins, b.Maxs) {
			c |= b.Contents
		}
	}
	for id, s := range a.entities {
		if id == ignore || !s.Alive {
			continue
		}
		if geom.BoxesOverlap(p, p, s.Origin.Add(s.Mins), s.Origin.Add(s.Maxs)) {
			c |= world.ContentsBody
		}
	}
	return c
}

// PredictVisiblePosition walks from toward goal in a straight line and
// returns the first point that can see goal. Area 0 means the entity is
// off the route graph.
func (a *Arena) PredictVisiblePosition(from geom.Vec3, area int, goal geom.Vec3) (geom.Vec3, bool) {
	if area == 0 {
		return geom.Vec3{}, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	dir, dist := goal.Sub(from).Normalize()
	for d := 0.0; d < dist; d += routeStep {
		p := from.MA(d, dir)
		if a.trace(p, goal, geom.Vec3{}, geom.Vec3{}, world.EntityNone, world.MaskSolid).Hit() {
			continue
		}
		return p, true
	}
	return geom.Vec3{}, false
}

// Step advances the arena by dt seconds. Missiles follow their
// trajectories and living players move under gravity, sliding along the
// brushes they hit.
func (a *Arena) Step(dt float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.time += dt
	for id, s := range a.entities {
		switch {
		case !s.Client:
			if s.Trajectory.Type != world.TrajectoryStationary {
				s.Origin = s.Trajectory.Evaluate(a.time, gravity)
			}
		case s.Alive && !s.Spectator:
			a.move(&s, dt)
		}
		s.Time = a.time
		a.entities[id] = s
	}
}

// move is a single step slide move: one clip against the first surface
// hit, then the remaining time is spent along it.
func (a *Arena) move(s *world.Snapshot, dt float64) {
	if !s.OnGround && !s.Flight {
		s.Velocity[geom.Z] -= gravity * dt
	}

	mask := s.ClipMask
	if mask == 0 {
		mask = world.MaskPlayerSolid
	}

	remaining := dt
	for range 2 {
		end := s.Origin.MA(remaining, s.Velocity)
		tr := a.trace(s.Origin, end, s.Mins, s.Maxs, s.ID, mask&^world.ContentsBody)
		s.Origin = tr.EndPos
		if !tr.Hit() {
			break
		}
		remaining *= 1 - tr.Fraction
		s.Velocity = geom.ClipVelocity(s.Velocity, tr.Normal, overclip)
	}

	below := s.Origin
	below[geom.Z] -= 0.25
	ground := a.trace(s.Origin, below, s.Mins, s.Maxs, s.ID, mask&^world.ContentsBody)
	s.OnGround = ground.Hit() && ground.Normal[geom.Z] >= minWalkNormal
	if s.OnGround {
		s.Velocity[geom.Z] = 0
	}
}
