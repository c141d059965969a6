package view

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/OCAP2/combatbot/internal/geom"
)

// correctFallback is the delay between corrections when the reaction time
// gives none.
const correctFallback = 0.1

// Axes holds the pitch and yaw axes of one view.
type Axes [2]Axis

// Reset places both axes at angles.
func (v *Axes) Reset(angles geom.Vec3, time float64) {
	for i := range v {
		v[i].Reset(angles[i], time)
	}
}

// Real returns the angles the view actually points at.
func (v Axes) Real() geom.Vec3 {
	return geom.Vec3{v[geom.Pitch].Angle.Real, v[geom.Yaw].Angle.Real, 0}
}

// Perceived returns the angles the bot believes it points at.
func (v Axes) Perceived() geom.Vec3 {
	return geom.Vec3{v[geom.Pitch].Angle.Error, v[geom.Yaw].Angle.Error, 0}
}

// Correct applies one correction round to both axes.
func (v *Axes) Correct(rng *rand.Rand) {
	for i := range v {
		v[i].Correct(rng)
	}
}

// Changes is a bit set of axes whose motion changed, indexed by
// geom.Pitch and geom.Yaw. Negative values request a reset.
type Changes int

// ChangeReset starts tracking a new view from scratch.
const ChangeReset Changes = -1

// Has reports whether axis is marked as changed.
func (c Changes) Has(axis int) bool {
	return c >= 0 && c&(1<<axis) != 0
}

func (c Changes) of(axis int) Change {
	switch {
	case c < 0:
		return Reset
	case c.Has(axis):
		return Changed
	default:
		return Unchanged
	}
}

// SpeedsChanged marks the axes whose speed changed sign or started or
// stopped moving.
func SpeedsChanged(old, cur geom.Vec3) Changes {
	var c Changes
	for i := geom.Pitch; i <= geom.Yaw; i++ {
		if (old[i] > 0) != (cur[i] > 0) || (old[i] == 0) != (cur[i] == 0) {
			c |= 1 << i
		}
	}
	return c
}

// Mode selects the debug behavior of a view.
type Mode int

const (
	ModeNormal Mode = iota
	// ModeFlawless removes every perception error but keeps the limited
	// turning speed.
	ModeFlawless
	// ModePerfect snaps the actual view onto the ideal view.
	ModePerfect
)

func (m Mode) String() string {
	switch m {
	case ModeFlawless:
		return "flawless"
	case ModePerfect:
		return "perfect"
	default:
		return "normal"
	}
}

// ErrUnknownMode is returned by ParseMode.
var ErrUnknownMode = errors.New("unknown view mode")

// ParseMode converts a name such as "perfect" to a Mode.
func ParseMode(name string) (Mode, error) {
	for _, m := range []Mode{ModeNormal, ModeFlawless, ModePerfect} {
		if strings.EqualFold(name, m.String()) {
			return m, nil
		}
	}
	return ModeNormal, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// Bot is what the view needs to know about its owner on each call.
type Bot struct {
	// ServerTime is the time of the current server frame and CommandTime
	// the time the next command will execute.
	ServerTime  float64
	CommandTime float64
	ReactTime   float64
	// Accuracy and Skill are the aim ratings for the held weapon.
	Accuracy float64
	Skill    float64
}

// State is the complete view simulation of one bot. It is not safe for
// concurrent use.
type State struct {
	settings Settings
	rng      *rand.Rand
	mode     Mode

	idealLast Axes
	idealNext Axes
	now       Axes

	idealErrorTime  float64
	actualErrorTime float64
	idealResetTime  float64
}

// New creates a view at rest facing angles.
func New(settings Settings, rng *rand.Rand, angles geom.Vec3, time float64) *State {
	s := &State{settings: settings, rng: rng}
	s.Reset(angles, time)
	return s
}

// Reset drops all motion and errors and faces angles.
func (s *State) Reset(angles geom.Vec3, time float64) {
	s.idealLast.Reset(angles, time)
	s.idealNext.Reset(angles, time)
	s.now.Reset(angles, time)
	s.idealErrorTime = time
	s.actualErrorTime = time
	s.idealResetTime = time
}

// SetMode changes the debug mode.
func (s *State) SetMode(m Mode) { s.mode = m }

// Mode returns the debug mode.
func (s *State) Mode() Mode { return s.mode }

// Now returns the actual view.
func (s *State) Now() Axes { return s.now }

// IdealNext returns the newest ideal view update.
func (s *State) IdealNext() Axes { return s.idealNext }

// IdealResetTime is the command time of the last ideal view reset.
func (s *State) IdealResetTime() float64 { return s.idealResetTime }

func (s *State) reactTime(b Bot) float64 {
	if s.mode != ModeNormal {
		return 0
	}
	return b.ReactTime
}

// IdealNow interpolates the ideal view at the bot's next command.
func (s *State) IdealNow(b Bot) Axes {
	react := s.reactTime(b)
	var ideal Axes
	for i := range ideal {
		ideal[i] = Interpolate(s.idealLast[i], s.idealNext[i], b.CommandTime, react)
	}
	return ideal
}

// IdealUpdate feeds a new view the bot wants to hold. speeds is the
// estimated angular speed of angles and refs the angles of the nearest
// visual reference point. It returns the angles the bot actually chose,
// error included.
func (s *State) IdealUpdate(b Bot, angles, speeds, refs geom.Vec3, changes Changes) geom.Vec3 {
	if changes < 0 {
		s.idealResetTime = b.CommandTime
		s.idealErrorTime = b.ServerTime
	} else {
		for i := geom.Pitch; i <= geom.Yaw; i++ {
			if b.CommandTime-s.idealLast[i].Time < s.settings.ChangeReactTime {
				changes &^= 1 << i
			}
		}
	}

	react := s.reactTime(b)
	for i := geom.Pitch; i <= geom.Yaw; i++ {
		Update(&s.idealLast[i], &s.idealNext[i],
			angles[i], speeds[i], geom.AngleDelta(angles[i], refs[i]),
			b.CommandTime, react, b.ServerTime, changes.of(i))
	}
	return s.IdealNow(b).Perceived()
}

// Update advances the actual view toward the ideal one for the next
// command.
func (s *State) Update(b Bot) {
	switch s.mode {
	case ModePerfect:
		s.makePerfect(b)
		return
	case ModeFlawless:
		s.makeFlawless(b)
	}

	s.correctIdeal(b)
	s.correctActual(b)

	accel := geom.Interpolate(s.settings.ActualAccelMin, s.settings.ActualAccelMax, b.Skill)
	ideal := s.IdealNow(b)
	for i := range s.now {
		s.now[i].Modify(ideal[i].Angle.Error, ideal[i].Speed.Error, ideal[i].Time, accel)
	}
}

// Process updates the view and returns the angles to send with the next
// command.
func (s *State) Process(b Bot) geom.Vec3 {
	s.Update(b)
	return s.now.Real()
}

// corrections returns how many corrections are due since last and moves
// last forward by that many delays.
func corrections(last *float64, now, react, factor float64) int {
	delay := react * factor
	if delay <= 0 {
		delay = correctFallback
	}
	n := int(math.Floor((now - *last) / delay))
	if n <= 0 {
		return 0
	}
	*last += float64(n) * delay
	return n
}

func (s *State) maxError(lo, hi, accuracy float64) float64 {
	if s.mode != ModeNormal {
		return 0
	}
	return math.Max(0, hi-accuracy*(hi-lo))
}

// crandom returns a uniform value in [-1, 1).
func (s *State) crandom() float64 {
	return 2*s.rng.Float64() - 1
}

func (s *State) correctIdeal(b Bot) {
	n := corrections(&s.idealErrorTime, b.ServerTime, b.ReactTime, s.settings.IdealCorrectFactor)
	if n == 0 {
		return
	}
	for range n {
		s.idealLast.Correct(s.rng)
		s.idealNext.Correct(s.rng)
	}

	limit := s.maxError(s.settings.IdealErrorMin, s.settings.IdealErrorMax, b.Accuracy)
	for i := range s.idealNext {
		factor := s.crandom() * limit
		s.idealLast[i].MaxErrorFactor, s.idealNext[i].MaxErrorFactor = limit, limit
		s.idealLast[i].ErrorFactor, s.idealNext[i].ErrorFactor = factor, factor
	}
}

func (s *State) correctActual(b Bot) {
	n := corrections(&s.actualErrorTime, b.ServerTime, b.ReactTime, s.settings.ActualCorrectFactor)
	if n == 0 {
		return
	}
	for range n {
		s.now.Correct(s.rng)
	}

	limit := s.maxError(s.settings.ActualErrorMin, s.settings.ActualErrorMax, b.Accuracy)
	for i := range s.now {
		s.now[i].MaxErrorFactor = limit
		s.now[i].ErrorFactor = s.crandom() * limit
	}
}

func (s *State) makeFlawless(b Bot) {
	for i := range s.now {
		s.idealNext[i].Flawless()
		s.now[i].Flawless()
	}
	s.idealErrorTime = b.ServerTime
	s.actualErrorTime = b.ServerTime
}

func (s *State) makePerfect(b Bot) {
	for i := range s.now {
		s.now[i].Angle.Real = s.idealNext[i].Angle.Real
		s.now[i].Speed.Real = s.idealNext[i].Speed.Real
	}
	s.makeFlawless(b)
}
