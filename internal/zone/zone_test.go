package zone

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/OCAP2/combatbot/internal/geom"
)

func TestCenterWeight(t *testing.T) {
	centers := DistCenters[:]

	tests := []struct {
		name   string
		value  float64
		first  int
		second int
		weight float64
	}{
		{"below range", 10, DistNear, None, 1},
		{"exact first", 192, DistNear, None, 1},
		{"between near and mid", 300, DistNear, DistMid, 0.4375},
		{"exact middle", 768, DistFar, None, 1},
		{"between far and very far", 1024, DistFar, DistVeryFar, 0.5},
		{"above range", 5000, DistVeryFar, None, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second, weight := CenterWeight(tt.value, centers)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.second, second)
			assert.InDelta(t, tt.weight, weight, 1e-9)
		})
	}
}

func TestNew_Scenario300Level(t *testing.T) {
	z := New(300, 0)

	require.Equal(t, 2, z.Num)
	assert.Equal(t, Center{Dist: DistNear, Pitch: PitchLevel}, z.Entries[0].Center)
	assert.InDelta(t, 0.4375, z.Entries[0].Weight, 1e-9)
	assert.Equal(t, Center{Dist: DistMid, Pitch: PitchLevel}, z.Entries[1].Center)
	assert.InDelta(t, 0.5625, z.Entries[1].Weight, 1e-9)
	assert.True(t, z.Valid())
}

func TestNew_FourCenters(t *testing.T) {
	z := New(576, 15)

	require.Equal(t, 4, z.Num)
	assert.Equal(t, Center{DistMid, PitchLevel}, z.Entries[0].Center)
	assert.Equal(t, Center{DistFar, PitchLevel}, z.Entries[1].Center)
	assert.Equal(t, Center{DistMid, PitchLow}, z.Entries[2].Center)
	assert.Equal(t, Center{DistFar, PitchLow}, z.Entries[3].Center)
	for _, e := range z.Centers() {
		assert.InDelta(t, 0.25, e.Weight, 1e-9)
	}
}

func TestNew_WeightsSumToOne(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dist := rapid.Float64Range(0, 4000).Draw(t, "dist")
		pitch := rapid.Float64Range(-90, 90).Draw(t, "pitch")

		z := New(dist, pitch)
		if !z.Valid() {
			t.Fatalf("invalid zone %s", z)
		}
	})
}

func TestInvert_SelfInverse(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dist := rapid.Float64Range(0, 4000).Draw(t, "dist")
		pitch := rapid.Float64Range(-90, 90).Draw(t, "pitch")

		z := New(dist, pitch)
		if z.Invert().Invert() != z {
			t.Fatalf("double inversion changed %s", z)
		}
	})
}

func TestInvert_SwapsHighAndLow(t *testing.T) {
	z := New(192, -30)
	require.Equal(t, 1, z.Num)
	assert.Equal(t, PitchHigh, z.Entries[0].Center.Pitch)

	inv := z.Invert()
	assert.Equal(t, PitchLow, inv.Entries[0].Center.Pitch)
	assert.Equal(t, 30.0, inv.Pitch)
	assert.True(t, inv.Valid())
}

func TestInvert_MatchesMirroredZone(t *testing.T) {
	z := New(500, 12).Invert()
	mirror := New(500, -12)

	weights := func(z Zone) map[Center]float64 {
		m := make(map[Center]float64)
		for _, e := range z.Centers() {
			m[e.Center] += e.Weight
		}
		return m
	}

	got, want := weights(z), weights(mirror)
	require.Len(t, got, len(want))
	for c, w := range want {
		assert.InDelta(t, w, got[c], 1e-9, "center %+v", c)
	}
}

func TestFromOffset(t *testing.T) {
	z := FromOffset(geom.Vec3{300, 0, 0})
	assert.InDelta(t, 300.0, z.Dist, 1e-9)
	assert.InDelta(t, 0.0, z.Pitch, 1e-9)

	below := FromOffset(geom.Vec3{100, 0, -100})
	assert.InDelta(t, 45.0, below.Pitch, 1e-9)
	assert.InDelta(t, math.Sqrt(20000), below.Dist, 1e-9)
}
