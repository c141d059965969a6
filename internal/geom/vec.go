// Package geom holds the vector, angle and box math shared by the combat engine.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Axis indices into a Vec3.
const (
	X = 0
	Y = 1
	Z = 2
)

// Vec3 is a point or direction in game units. The arithmetic is mgl64's;
// the methods keep call sites free of conversions.
type Vec3 mgl64.Vec3

// Vec returns v as an mgl64 vector.
func (v Vec3) Vec() mgl64.Vec3 { return mgl64.Vec3(v) }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3(v.Vec().Add(o.Vec())) }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3(v.Vec().Sub(o.Vec())) }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3(v.Vec().Mul(s)) }

// MA returns v + s*d.
func (v Vec3) MA(s float64, d Vec3) Vec3 { return Vec3(v.Vec().Add(d.Vec().Mul(s))) }

// Mul multiplies componentwise.
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3(mgl64.Diag3(v.Vec()).Mul3x1(o.Vec())) }

func (v Vec3) Dot(o Vec3) float64 { return v.Vec().Dot(o.Vec()) }

func (v Vec3) Cross(o Vec3) Vec3 { return Vec3(v.Vec().Cross(o.Vec())) }

func (v Vec3) LenSq() float64 { return v.Vec().LenSqr() }

func (v Vec3) Len() float64 { return v.Vec().Len() }

// Normalize returns the unit vector and the original length.
// The zero vector normalizes to itself with length 0.
func (v Vec3) Normalize() (Vec3, float64) {
	l := v.Len()
	if l == 0 {
		return v, 0
	}
	return Vec3(v.Vec().Normalize()), l
}

// Dist returns the distance between two points.
func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Len() }

// DistSq returns the squared distance between two points.
func (v Vec3) DistSq(o Vec3) float64 { return v.Sub(o).LenSq() }

// Lerp returns v*(1-w) + o*w.
func (v Vec3) Lerp(o Vec3, w float64) Vec3 { return v.MA(w, o.Sub(v)) }

// Snap rounds every component to the nearest integer, the way the
// server stores positions and velocities on the wire.
func (v Vec3) Snap() Vec3 {
	return Vec3{math.Round(v[0]), math.Round(v[1]), math.Round(v[2])}
}

// Abs returns the componentwise absolute value.
func (v Vec3) Abs() Vec3 {
	return Vec3{math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])}
}

// IsZero reports whether every component is zero.
func (v Vec3) IsZero() bool { return v == Vec3{} }

// Interpolate blends two scalars: a at w=0, b at w=1.
func Interpolate(a, b, w float64) float64 {
	return a*(1-w) + b*w
}

// ClipVelocity removes the component of in that points into the plane
// with the given normal, scaled by overbounce.
func ClipVelocity(in, normal Vec3, overbounce float64) Vec3 {
	backoff := in.Dot(normal)
	if backoff < 0 {
		backoff *= overbounce
	} else {
		backoff /= overbounce
	}
	return in.Sub(normal.Scale(backoff))
}
