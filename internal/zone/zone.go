// Package zone discretizes a (distance, pitch) view of a target into a
// weighted blend of fixed reference centers. Zones index the accuracy
// ledgers: statistics are kept per center and read back bilinearly.
package zone

import (
	"fmt"
	"math"
	"sort"

	"github.com/OCAP2/combatbot/internal/geom"
)

// Distance center ids.
const (
	DistNear = iota
	DistMid
	DistFar
	DistVeryFar
	NumDist
)

// Pitch center ids. Positive pitch looks down, so High is the negative
// pitch center.
const (
	PitchHigh = iota
	PitchLevel
	PitchLow
	NumPitch
)

// None marks a missing second center.
const None = -1

// MaxCenters is the most centers a zone can blend.
const MaxCenters = 4

const weightTolerance = 1e-5

// DistCenters are the reference distances in game units.
var DistCenters = [NumDist]float64{192, 384, 768, 1280}

// PitchCenters are the reference pitches in degrees.
var PitchCenters = [NumPitch]float64{-30, 0, 30}

// Center addresses one cell of the (distance, pitch) grid.
type Center struct {
	Dist  int
	Pitch int
}

// Entry is one weighted center of a zone.
type Entry struct {
	Center Center
	Weight float64
}

// Zone is a bilinear blend of up to four centers.
type Zone struct {
	Dist    float64
	Pitch   float64
	Num     int
	Entries [MaxCenters]Entry
}

// CenterWeight locates value among the sorted centers. Inside the range it
// returns the bracketing ids and the weight of the first one. Outside the
// range, or on an exact center, it returns the nearest id, None and 1.
func CenterWeight(value float64, centers []float64) (first, second int, weight float64) {
	n := len(centers)
	if n == 0 {
		return None, None, 0
	}

	idx := sort.SearchFloat64s(centers, value)
	if idx > 0 && idx < n && centers[idx] != value {
		weight = (centers[idx] - value) / (centers[idx] - centers[idx-1])
		return idx - 1, idx, weight
	}

	if idx >= n {
		idx = n - 1
	}
	return idx, None, 1
}

// New builds the zone for a target at the given distance and pitch.
func New(dist, pitch float64) Zone {
	z := Zone{Dist: dist, Pitch: pitch}

	d0, d1, dw := CenterWeight(dist, DistCenters[:])
	p0, p1, pw := CenterWeight(pitch, PitchCenters[:])

	z.add(d0, p0, dw*pw)
	if d1 != None {
		z.add(d1, p0, (1-dw)*pw)
	}
	if p1 != None {
		z.add(d0, p1, dw*(1-pw))
		if d1 != None {
			z.add(d1, p1, (1-dw)*(1-pw))
		}
	}
	return z
}

// FromOffset builds the zone for a target at offset from the viewer.
func FromOffset(offset geom.Vec3) Zone {
	angles := geom.VectorToAngles(offset)
	return New(offset.Len(), geom.AngleNormalize180(angles[geom.Pitch]))
}

func (z *Zone) add(dist, pitch int, weight float64) {
	z.Entries[z.Num] = Entry{Center: Center{Dist: dist, Pitch: pitch}, Weight: weight}
	z.Num++
}

// Centers returns the populated entries.
func (z Zone) Centers() []Entry {
	return z.Entries[:z.Num]
}

// Invert returns the zone as seen from the target looking back: pitch is
// negated and the high and low centers trade places.
func (z Zone) Invert() Zone {
	inv := z
	inv.Pitch = -z.Pitch
	for i := 0; i < z.Num; i++ {
		switch z.Entries[i].Center.Pitch {
		case PitchHigh:
			inv.Entries[i].Center.Pitch = PitchLow
		case PitchLow:
			inv.Entries[i].Center.Pitch = PitchHigh
		}
	}
	return inv
}

// Valid reports whether the weights sum to one and every id is in range.
func (z Zone) Valid() bool {
	if z.Num < 1 || z.Num > MaxCenters {
		return false
	}
	total := 0.0
	for _, e := range z.Centers() {
		if e.Center.Dist < 0 || e.Center.Dist >= NumDist {
			return false
		}
		if e.Center.Pitch < 0 || e.Center.Pitch >= NumPitch {
			return false
		}
		total += e.Weight
	}
	return math.Abs(total-1) <= weightTolerance
}

// String renders the zone for debug logs.
func (z Zone) String() string {
	s := fmt.Sprintf("dist=%.0f pitch=%.1f", z.Dist, z.Pitch)
	for _, e := range z.Centers() {
		s += fmt.Sprintf(" [%s/%s %.3f]", DistName(e.Center.Dist), PitchName(e.Center.Pitch), e.Weight)
	}
	return s
}

// DistName names a distance center.
func DistName(id int) string {
	switch id {
	case DistNear:
		return "near"
	case DistMid:
		return "mid"
	case DistFar:
		return "far"
	case DistVeryFar:
		return "veryfar"
	}
	return "?"
}

// PitchName names a pitch center.
func PitchName(id int) string {
	switch id {
	case PitchHigh:
		return "high"
	case PitchLevel:
		return "level"
	case PitchLow:
		return "low"
	}
	return "?"
}
