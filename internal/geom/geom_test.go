package geom

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestAngleNormalize180(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{181, -179},
		{-181, 179},
		{540, 180},
		{-90, -90},
		{720, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, AngleNormalize180(tt.in), 1e-9, "in=%v", tt.in)
	}
}

func TestAngleDelta_Shortest(t *testing.T) {
	assert.InDelta(t, 20.0, AngleDelta(10, -10), 1e-9)
	assert.InDelta(t, -20.0, AngleDelta(170, -170), 1e-9)
	assert.InDelta(t, 20.0, AngleDelta(-170, 170), 1e-9)
}

func TestVectorToAngles_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		pitch := rapid.Float64Range(-89, 89).Draw(t, "pitch")
		yaw := rapid.Float64Range(-179, 179).Draw(t, "yaw")

		dir := Forward(Vec3{pitch, yaw, 0})
		back := NormalizeView(VectorToAngles(dir))

		if math.Abs(AngleDelta(back[Pitch], pitch)) > 1e-6 {
			t.Fatalf("pitch %v became %v", pitch, back[Pitch])
		}
		if math.Abs(AngleDelta(back[Yaw], yaw)) > 1e-6 {
			t.Fatalf("yaw %v became %v", yaw, back[Yaw])
		}
	})
}

func TestVectorToAngles_Vertical(t *testing.T) {
	up := NormalizeView(VectorToAngles(Vec3{0, 0, 1}))
	down := NormalizeView(VectorToAngles(Vec3{0, 0, -1}))

	assert.InDelta(t, -90.0, up[Pitch], 1e-9)
	assert.InDelta(t, 90.0, down[Pitch], 1e-9)
}

func TestAngleVectors_Orthonormal(t *testing.T) {
	f, r, u := AngleVectors(Vec3{30, 60, 0})

	assert.InDelta(t, 1.0, f.Len(), 1e-9)
	assert.InDelta(t, 1.0, r.Len(), 1e-9)
	assert.InDelta(t, 1.0, u.Len(), 1e-9)
	assert.InDelta(t, 0.0, f.Dot(r), 1e-9)
	assert.InDelta(t, 0.0, f.Dot(u), 1e-9)
	assert.InDelta(t, 0.0, r.Dot(u), 1e-9)
}

func TestTraceBox(t *testing.T) {
	mins := Vec3{-10, -10, -10}
	maxs := Vec3{10, 10, 10}

	t.Run("hit from outside", func(t *testing.T) {
		hit, enter, exit := TraceBox(Vec3{-100, 0, 0}, Vec3{1, 0, 0}, mins, maxs)
		assert.Equal(t, RayTouch|RayEnter|RayExit, hit)
		assert.InDelta(t, -10.0, enter[X], 1e-9)
		assert.InDelta(t, 10.0, exit[X], 1e-9)
	})

	t.Run("start inside", func(t *testing.T) {
		hit, _, _ := TraceBox(Vec3{0, 0, 0}, Vec3{0, 1, 0}, mins, maxs)
		assert.Equal(t, RayTouch|RayExit, hit)
	})

	t.Run("pointing away", func(t *testing.T) {
		hit, _, _ := TraceBox(Vec3{-100, 0, 0}, Vec3{-1, 0, 0}, mins, maxs)
		assert.Zero(t, hit)
	})

	t.Run("parallel outside slab", func(t *testing.T) {
		hit, _, _ := TraceBox(Vec3{-100, 50, 0}, Vec3{1, 0, 0}, mins, maxs)
		assert.Zero(t, hit)
	})

	t.Run("skew miss", func(t *testing.T) {
		hit, _, _ := TraceBox(Vec3{-100, 0, 0}, Vec3{1, 1, 0}, mins, maxs)
		assert.Zero(t, hit)
	})
}

func TestPointBoundDistance(t *testing.T) {
	mins := Vec3{0, 0, 0}
	maxs := Vec3{10, 10, 10}

	assert.Equal(t, 0.0, PointBoundDistanceSq(Vec3{5, 5, 5}, mins, maxs))
	assert.InDelta(t, 25.0, PointBoundDistanceSq(Vec3{15, 5, 5}, mins, maxs), 1e-9)
	assert.InDelta(t, 5.0, PointBoundDistance(Vec3{13, 14, 5}, mins, maxs), 1e-9)
}

func TestClipVelocity(t *testing.T) {
	out := ClipVelocity(Vec3{100, 0, -100}, Vec3{0, 0, 1}, 1.001)

	assert.InDelta(t, 100.0, out[X], 1e-9)
	assert.InDelta(t, 0.1, out[Z], 1e-9)
}

func TestVec3_Arithmetic(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, -5, 6}

	assert.Equal(t, Vec3{5, -3, 9}, a.Add(b))
	assert.Equal(t, Vec3{-3, 7, -3}, a.Sub(b))
	assert.Equal(t, Vec3{2, 4, 6}, a.Scale(2))
	assert.Equal(t, Vec3{9, -8, 15}, a.MA(2, b))
	assert.Equal(t, Vec3{4, -10, 18}, a.Mul(b))
	assert.InDelta(t, 12.0, a.Dot(b), 1e-9)
	assert.Equal(t, Vec3{27, 6, -13}, a.Cross(b))
	assert.InDelta(t, 14.0, a.LenSq(), 1e-9)
	assert.Equal(t, Vec3{2.5, -1.5, 4.5}, a.Lerp(b, 0.5))
	assert.True(t, a.Vec().ApproxEqual(mgl64.Vec3{1, 2, 3}))
}

func TestVec3_Normalize(t *testing.T) {
	n, l := Vec3{3, 0, 4}.Normalize()
	assert.InDelta(t, 5.0, l, 1e-9)
	assert.True(t, n.Vec().ApproxEqualThreshold(mgl64.Vec3{0.6, 0, 0.8}, 1e-12))

	zero, l := Vec3{}.Normalize()
	assert.Zero(t, l)
	assert.True(t, zero.IsZero())
}
