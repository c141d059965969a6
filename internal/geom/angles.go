package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Angle indices into a Vec3 holding view angles.
const (
	Pitch = 0
	Yaw   = 1
	Roll  = 2
)

// AngleNormalize360 maps an angle into [0, 360).
func AngleNormalize360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// AngleNormalize180 maps an angle into (-180, 180].
func AngleNormalize180(a float64) float64 {
	a = AngleNormalize360(a)
	if a > 180 {
		a -= 360
	}
	return a
}

// AngleDelta returns the shortest signed rotation from b to a.
func AngleDelta(a, b float64) float64 {
	return AngleNormalize180(a - b)
}

// VectorToAngles converts a direction into pitch and yaw angles.
// Positive pitch looks down.
func VectorToAngles(dir Vec3) Vec3 {
	var pitch, yaw float64
	if dir[0] == 0 && dir[1] == 0 {
		yaw = 0
		if dir[2] > 0 {
			pitch = 90
		} else {
			pitch = 270
		}
	} else {
		yaw = mgl64.RadToDeg(math.Atan2(dir[1], dir[0]))
		if yaw < 0 {
			yaw += 360
		}
		forward := math.Sqrt(dir[0]*dir[0] + dir[1]*dir[1])
		pitch = mgl64.RadToDeg(math.Atan2(dir[2], forward))
		if pitch < 0 {
			pitch += 360
		}
	}
	return Vec3{-pitch, yaw, 0}
}

// AngleVectors returns the forward, right and up unit vectors for a set of
// view angles.
func AngleVectors(angles Vec3) (forward, right, up Vec3) {
	sy, cy := math.Sincos(mgl64.DegToRad(angles[Yaw]))
	sp, cp := math.Sincos(mgl64.DegToRad(angles[Pitch]))
	sr, cr := math.Sincos(mgl64.DegToRad(angles[Roll]))

	forward = Vec3{cp * cy, cp * sy, -sp}
	right = Vec3{
		-sr*sp*cy + cr*sy,
		-sr*sp*sy - cr*cy,
		-sr * cp,
	}
	up = Vec3{
		cr*sp*cy + sr*sy,
		cr*sp*sy - sr*cy,
		cr * cp,
	}
	return forward, right, up
}

// Forward is AngleVectors without the right and up axes.
func Forward(angles Vec3) Vec3 {
	f, _, _ := AngleVectors(angles)
	return f
}

// NormalizeView maps pitch and yaw into (-180, 180] and clears roll.
func NormalizeView(angles Vec3) Vec3 {
	return Vec3{AngleNormalize180(angles[Pitch]), AngleNormalize180(angles[Yaw]), 0}
}
