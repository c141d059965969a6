package motion

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/world"
)

const traceEpsilon = 1.0 / 32

var (
	playerMins = geom.Vec3{-15, -15, -24}
	playerMaxs = geom.Vec3{15, 15, 32}
)

// halfSpace is a solid filling everything behind a plane.
type halfSpace struct {
	normal  geom.Vec3
	dist    float64
	surface world.SurfaceFlags
}

func (h halfSpace) depth(o, mins, maxs geom.Vec3) float64 {
	d := h.normal.Dot(o) - h.dist
	for i := 0; i < 3; i++ {
		d += math.Min(h.normal[i]*mins[i], h.normal[i]*maxs[i])
	}
	return d
}

// testWorld is a tiny collision world built from half spaces.
type testWorld struct {
	solids   []halfSpace
	waterTop float64
	water    bool
	snaps    map[int]world.Snapshot
}

func newTestWorld() *testWorld {
	return &testWorld{
		solids: []halfSpace{{normal: geom.Vec3{0, 0, 1}}},
		snaps:  make(map[int]world.Snapshot),
	}
}

func (w *testWorld) Trace(start, end, mins, maxs geom.Vec3, ignore int, mask world.Contents) world.TraceResult {
	res := world.TraceResult{Fraction: 1, Entity: world.EntityNone}
	for _, h := range w.solids {
		s0, s1 := h.depth(start, mins, maxs), h.depth(end, mins, maxs)
		if s0 < 0 {
			res.StartSolid = true
			if s1 < 0 {
				return world.TraceResult{AllSolid: true, StartSolid: true, EndPos: start, Entity: world.EntityWorld}
			}
			continue
		}
		if s1 >= 0 {
			continue
		}
		f := math.Max(0, (s0-traceEpsilon)/(s0-s1))
		if f < res.Fraction {
			res.Fraction = f
			res.Normal = h.normal
			res.Surface = h.surface
			res.Entity = world.EntityWorld
			res.Contents = world.ContentsSolid
		}
	}
	res.EndPos = start.Lerp(end, res.Fraction)
	return res
}

func (w *testWorld) PointContents(p geom.Vec3, ignore int) world.Contents {
	if w.water && p[geom.Z] < w.waterTop {
		return world.ContentsWater
	}
	return 0
}

func (w *testWorld) Entity(id int) (world.Snapshot, bool) {
	s, ok := w.snaps[id]
	return s, ok
}

func (w *testWorld) Entities() []int {
	ids := make([]int, 0, len(w.snaps))
	for id := range w.snaps {
		ids = append(ids, id)
	}
	return ids
}

func player(id int, time float64, origin geom.Vec3) world.Snapshot {
	return world.Snapshot{
		ID:       id,
		Client:   true,
		Time:     time,
		Origin:   origin,
		Mins:     playerMins,
		Maxs:     playerMaxs,
		MaxSpeed: 320,
		Alive:    true,
		OnGround: origin[geom.Z] <= 24,
	}
}

func (w *testWorld) observe(tr *Tracker, s world.Snapshot) {
	w.snaps[s.ID] = s
	tr.Update(s)
}

func TestRefresh_Physics(t *testing.T) {
	w := newTestWorld()

	standing := FromSnapshot(player(1, 1, geom.Vec3{0, 0, 24}))
	Refresh(w, &standing)
	assert.Equal(t, PhysicsGround, standing.Physics.Type)
	assert.True(t, standing.Physics.Walking)
	assert.Equal(t, geom.Vec3{0, 0, 1}, standing.Physics.Ground)
	assert.Zero(t, standing.WaterLevel)

	falling := FromSnapshot(player(1, 1, geom.Vec3{0, 0, 300}))
	Refresh(w, &falling)
	assert.Equal(t, PhysicsGravity, falling.Physics.Type)
	assert.True(t, falling.Physics.Ground.IsZero())

	jumping := FromSnapshot(player(1, 1, geom.Vec3{0, 0, 24}))
	jumping.Velocity = geom.Vec3{0, 0, 270}
	Refresh(w, &jumping)
	assert.Equal(t, PhysicsGravity, jumping.Physics.Type, "moving away from the ground")

	flying := FromSnapshot(player(1, 1, geom.Vec3{0, 0, 24}))
	flying.Flight = true
	Refresh(w, &flying)
	assert.Equal(t, PhysicsFlight, flying.Physics.Type)

	rocket := FromSnapshot(world.Snapshot{ID: 40, Time: 1, Origin: geom.Vec3{0, 0, 100}})
	Refresh(w, &rocket)
	assert.Equal(t, PhysicsTrajectory, rocket.Physics.Type)
}

func TestRefresh_WaterLevel(t *testing.T) {
	w := newTestWorld()
	w.water = true

	tests := []struct {
		top  float64
		want int
	}{
		{0.5, 0},
		{10, 1},
		{40, 2},
		{100, 3},
	}
	for _, tt := range tests {
		w.waterTop = tt.top
		s := FromSnapshot(player(1, 1, geom.Vec3{0, 0, 24}))
		Refresh(w, &s)
		assert.Equal(t, tt.want, s.WaterLevel, "water top %v", tt.top)
	}

	w.waterTop = 100
	s := FromSnapshot(player(1, 1, geom.Vec3{0, 0, 24}))
	Refresh(w, &s)
	assert.Equal(t, PhysicsWater, s.Physics.Type)
}

func TestRefresh_HardLandingAndSlick(t *testing.T) {
	w := newTestWorld()

	s := FromSnapshot(player(1, 2, geom.Vec3{0, 0, 24}))
	s.Physics.Walking = false
	s.Velocity = geom.Vec3{0, 0, -300}
	Refresh(w, &s)
	assert.NotZero(t, s.MoveFlags&FlagTimeLand)
	assert.InDelta(t, 2.025, s.MoveTime, 1e-9)

	w.solids[0].surface = world.SurfSlick
	ice := FromSnapshot(player(1, 2, geom.Vec3{0, 0, 24}))
	Refresh(w, &ice)
	assert.True(t, ice.Physics.Knockback)
}

func TestTracker_StateAt(t *testing.T) {
	w := newTestWorld()
	tr := NewTracker(w, nil)

	for i := 0; i < 3; i++ {
		s := player(1, 1+0.1*float64(i), geom.Vec3{100 * float64(i), 0, 24})
		s.Velocity = geom.Vec3{1000, 0, 0}
		w.observe(tr, s)
	}
	require.Equal(t, 3, tr.Len(1))

	// Repeated command times are ignored.
	w.observe(tr, player(1, 1.2, geom.Vec3{999, 0, 24}))
	assert.Equal(t, 3, tr.Len(1))

	mid, ok := tr.StateAt(1, 1.05)
	require.True(t, ok)
	assert.InDelta(t, 1.05, mid.Time, 1e-9)
	assert.InDelta(t, 50, mid.Origin[geom.X], 1e-9)

	early, _ := tr.StateAt(1, 0.2)
	assert.Equal(t, 1.0, early.Time)

	late, _ := tr.StateAt(1, 5)
	assert.InDelta(t, 200, late.Origin[geom.X], 1e-9)

	// Without history the current snapshot is used.
	w.snaps[7] = player(7, 3, geom.Vec3{5, 5, 24})
	now, ok := tr.StateAt(7, 1)
	require.True(t, ok)
	assert.Equal(t, 3.0, now.Time)

	_, ok = tr.StateAt(99, 1)
	assert.False(t, ok)
}

func TestTracker_SpectatorResets(t *testing.T) {
	w := newTestWorld()
	tr := NewTracker(w, nil)

	w.observe(tr, player(1, 1, geom.Vec3{0, 0, 24}))
	w.observe(tr, player(1, 1.1, geom.Vec3{0, 0, 24}))
	require.Equal(t, 2, tr.Len(1))

	spec := player(1, 1.2, geom.Vec3{0, 0, 24})
	spec.Team = world.TeamSpectator
	w.observe(tr, spec)
	assert.Zero(t, tr.Len(1))
}

func TestInterpolate_Rules(t *testing.T) {
	w := newTestWorld()

	a := FromSnapshot(player(1, 1, geom.Vec3{0, 0, 24}))
	a.View = geom.Vec3{0, 170, 0}
	b := FromSnapshot(player(1, 2, geom.Vec3{100, 0, 24}))
	b.View = geom.Vec3{0, -170, 0}
	b.Crouch = true

	mid := Interpolate(w, b, a, 1.5)
	assert.InDelta(t, 50, mid.Origin[geom.X], 1e-9)
	assert.InDelta(t, 180, math.Abs(mid.View[geom.Yaw]), 1e-9, "turns through 180, not through 0")
	assert.True(t, mid.Crouch, "digital values come from the newer state")

	same := Interpolate(w, a, a, 1.5)
	assert.Equal(t, a, same)

	b.TeleportBit = true
	tele := Interpolate(w, a, b, 1.5)
	assert.Equal(t, b, tele)
}

func TestTracker_UpdateRateAndLatency(t *testing.T) {
	w := newTestWorld()
	tr := NewTracker(w, nil)

	assert.Equal(t, ServerFrame, tr.UpdateRate(1), "no history")

	// The entity's clock runs twice as fast as the AI frames.
	for i := 0; i < 5; i++ {
		w.snaps[1] = player(1, 1+0.1*float64(i), geom.Vec3{0, 0, 24})
		tr.Advance(10+0.05*float64(i), 10+0.05*float64(i))
	}
	assert.InDelta(t, 0.1, tr.UpdateRate(1), 1e-9)

	assert.InDelta(t, 0.1, tr.Latency(0, tr.AITime()+0.05, 1), 1e-9)
	assert.Zero(t, tr.Latency(0, tr.AITime()-1, 1), "never negative")

	sync := player(3, 5, geom.Vec3{0, 0, 24})
	sync.Synchronous = true
	w.snaps[3] = sync
	assert.Equal(t, ServerFrame, tr.UpdateRate(3))
	assert.Equal(t, ServerFrame, tr.Latency(4, 0, 3))
	assert.Zero(t, tr.Latency(2, 0, 3))
}

func TestTracker_Lagged(t *testing.T) {
	w := newTestWorld()
	tr := NewTracker(w, nil)

	for i := 0; i < 6; i++ {
		x := 10 * float64(i)
		w.snaps[1] = player(1, 1+0.1*float64(i), geom.Vec3{x, 0, 24})
		tr.Advance(float64(i)*0.1, float64(i)*0.1)
	}

	st, lag, ok := tr.Lagged(0, tr.AITime(), 1, 0.25)
	require.True(t, ok)
	assert.InDelta(t, 0.25, lag, 1e-9)
	assert.InDelta(t, 1.25, st.Time, 1e-9)
	assert.InDelta(t, 25, st.Origin[geom.X], 1e-9)

	// Asking for more lag than the history holds returns what exists.
	st, lag, _ = tr.Lagged(0, tr.AITime(), 1, 5)
	assert.Equal(t, 1.0, st.Time)
	assert.InDelta(t, 0.5, lag, 1e-9)

	_, lag, _ = tr.Lagged(0, tr.AITime(), 1, -1)
	assert.Zero(t, lag)
}

func TestPredictor_StandingStill(t *testing.T) {
	w := newTestWorld()
	p := NewPredictor(NewTracker(w, nil), 0)
	w.snaps[1] = player(1, 1, geom.Vec3{0, 0, 24})

	st, ok := p.PredictAhead(1, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 1.5, st.Time, 1e-9)
	assert.Equal(t, geom.Vec3{0, 0, 24}, st.Origin)
}

func TestPredictor_RunningOnGround(t *testing.T) {
	w := newTestWorld()
	p := NewPredictor(NewTracker(w, nil), 0)

	s := player(1, 1, geom.Vec3{0, 0, 24})
	s.Velocity = geom.Vec3{320, 0, 0}
	s.ForwardMove = 127
	w.snaps[1] = s

	st, ok := p.PredictAt(1, 1.5)
	require.True(t, ok)
	assert.InDelta(t, 1.5, st.Time, 1e-9)
	assert.InDelta(t, 160, st.Origin[geom.X], 1e-6)
	assert.InDelta(t, 24, st.Origin[geom.Z], 1e-6)
	assert.InDelta(t, 320, st.Velocity[geom.X], 1e-6)
	assert.InDelta(t, 160-15, st.AbsMin[geom.X], 1e-6, "bounds follow the origin")
	assert.Equal(t, PhysicsGround, st.Physics.Type)
}

func TestPredictor_StopsAtWall(t *testing.T) {
	w := newTestWorld()
	w.solids = append(w.solids, halfSpace{normal: geom.Vec3{-1, 0, 0}, dist: -100})
	p := NewPredictor(NewTracker(w, nil), 0)

	s := player(1, 1, geom.Vec3{50, 0, 24})
	s.Velocity = geom.Vec3{320, 0, 0}
	s.ForwardMove = 127
	w.snaps[1] = s

	st, _ := p.PredictAhead(1, 0.5)
	assert.LessOrEqual(t, st.Origin[geom.X], 85.0)
	assert.Greater(t, st.Origin[geom.X], 80.0)
	assert.InDelta(t, 0, st.Velocity[geom.X], 1)
	assert.InDelta(t, 24, st.Origin[geom.Z], 0.1)
	assert.InDelta(t, 1.5, st.Time, 1e-6)
}

func TestPredictor_FreeFall(t *testing.T) {
	w := newTestWorld()
	p := NewPredictor(NewTracker(w, nil), 0)
	w.snaps[1] = player(1, 1, geom.Vec3{0, 0, 500})

	st, _ := p.PredictAhead(1, 0.5)
	assert.InDelta(t, 400, st.Origin[geom.Z], 1e-6)
	assert.InDelta(t, -400, st.Velocity[geom.Z], 1e-6)
	assert.Equal(t, PhysicsGravity, st.Physics.Type)
}

func TestPredictor_JumpLeavesGround(t *testing.T) {
	w := newTestWorld()
	p := NewPredictor(NewTracker(w, nil), 0)

	s := player(1, 1, geom.Vec3{0, 0, 24})
	s.UpMove = 127
	w.snaps[1] = s

	st, _ := p.PredictAhead(1, 0.1)
	assert.Greater(t, st.Origin[geom.Z], 24.0)
	assert.Greater(t, st.Velocity[geom.Z], 0.0)
}

func TestPredictor_Trajectory(t *testing.T) {
	w := newTestWorld()
	p := NewPredictor(NewTracker(w, nil), 0)

	w.snaps[40] = world.Snapshot{
		ID:     40,
		Time:   2,
		Origin: geom.Vec3{0, 0, 100},
		Mins:   geom.Vec3{-2, -2, -2},
		Maxs:   geom.Vec3{2, 2, 2},
		Trajectory: world.Trajectory{
			Type:  world.TrajectoryLinear,
			Time:  1,
			Base:  geom.Vec3{-900, 0, 100},
			Delta: geom.Vec3{900, 0, 0},
		},
	}

	st, ok := p.PredictAhead(40, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 450, st.Origin[geom.X], 1e-9)
	assert.InDelta(t, 448, st.AbsMin[geom.X], 1e-9)
	assert.InDelta(t, 2.5, st.Time, 1e-9)

	_, ok = p.PredictAhead(41, 0.5)
	assert.False(t, ok)
}

func TestPredictor_FutureReuse(t *testing.T) {
	w := newTestWorld()
	p := NewPredictor(NewTracker(w, nil), 0)

	now := FromSnapshot(player(1, 1, geom.Vec3{0, 0, 24}))
	Refresh(w, &now)

	future := p.Future(now, State{}, 1.05)
	assert.InDelta(t, 1.05, future.Time, 1e-9)

	marked := future
	marked.Origin[geom.X] = 77
	assert.Equal(t, marked, p.Future(now, marked, 1.0504), "still valid")

	now.ForwardMove = 127
	assert.NotEqual(t, marked, p.Future(now, marked, 1.05), "commands changed")

	eye := future.Eye(ViewHeight)
	assert.Equal(t, geom.Vec3{0, 0, 50}, eye)
}

func TestAuditor_ChecksPredictions(t *testing.T) {
	w := newTestWorld()
	tr := NewTracker(w, nil)
	a, err := NewAuditor(NewPredictor(tr, 0), 0.2, nil)
	require.NoError(t, err)

	w.observe(tr, player(1, 1, geom.Vec3{0, 0, 24}))
	w.observe(tr, player(2, 1, geom.Vec3{0, 0, 24}))

	assert.True(t, a.Sample(1, 0))
	assert.False(t, a.Sample(2, 0.1), "sampled too recently")
	assert.True(t, a.Sample(2, 0.5))
	assert.Equal(t, 2, a.Pending())

	assert.Empty(t, a.Check(context.Background()), "nothing has happened yet")
	assert.Equal(t, 2, a.Pending())

	w.observe(tr, player(1, 1.25, geom.Vec3{0, 0, 24}))
	w.observe(tr, player(2, 1.25, geom.Vec3{50, 0, 24}))

	found := a.Check(context.Background())
	require.Len(t, found, 1)
	assert.Equal(t, 2, found[0].ID)
	assert.InDelta(t, 40, found[0].XYError, 1e-6)
	assert.Zero(t, a.Pending())
}

func TestAuditor_Disabled(t *testing.T) {
	w := newTestWorld()
	tr := NewTracker(w, nil)
	a, err := NewAuditor(NewPredictor(tr, 0), 0, nil)
	require.NoError(t, err)

	w.snaps[1] = player(1, 1, geom.Vec3{0, 0, 24})
	assert.False(t, a.Sample(1, 0))
}
