package attack

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/combatbot/internal/geom"
)

// FirePhase is where a bot stands in deciding to pull the trigger.
type FirePhase int

const (
	// FireIdle has no pending decision to shoot.
	FireIdle FirePhase = iota
	// FireLocked has decided to shoot and waits out its reaction time.
	FireLocked
	// FireWindow is between the start and stop times of a volley.
	FireWindow
)

func (p FirePhase) String() string {
	switch p {
	case FireLocked:
		return "locked"
	case FireWindow:
		return "window"
	default:
		return "idle"
	}
}

// Fire holds a bot's trigger timers. A zero time is unset.
type Fire struct {
	// Choice is whether the last evaluation wanted to shoot.
	Choice    bool
	StartTime float64
	StopTime  float64
}

// Phase reports the phase of the timers at now.
func (f *Fire) Phase(now float64) FirePhase {
	switch {
	case f.StartTime == 0:
		return FireIdle
	case f.StopTime != 0 && f.StopTime <= now:
		return FireIdle
	case now < f.StartTime:
		return FireLocked
	default:
		return FireWindow
	}
}

// Reset clears the timers.
func (f *Fire) Reset() {
	*f = Fire{}
}

// Step advances the timers to the command at now and reports whether the
// trigger is held for it. Newly chosen shots start after react seconds.
// When the choice lapses, firing stops at once, or after linger more
// seconds for weapons fired without careful aim.
func (f *Fire) Step(now, react, linger float64) bool {
	if f.StopTime != 0 && f.StopTime <= now {
		f.StartTime, f.StopTime = 0, 0
	}

	if f.Choice {
		if f.StartTime == 0 {
			f.StartTime = now + react
		}
		f.StopTime = 0
	} else if f.StopTime == 0 && f.StartTime != 0 {
		f.StopTime = now + linger
		// Quick reactions cancel a volley that has not started yet.
		if f.StopTime <= f.StartTime {
			f.StartTime, f.StopTime = 0, 0
		}
	}

	return f.Phase(now) == FireWindow
}

// FireUpdate evaluates whether a shot taken from the perceived view would
// hit and stores the answer in fire.Choice. actual is the true view; when
// diagnostics are on, decisions that the true view or the unscaled target
// box would have changed are logged and counted.
func (s *Selector) FireUpdate(ctx context.Context, sh *Shooter, st *State, fire *Fire, perceived, actual geom.Vec3) bool {
	fire.Choice = false

	if sh.Held != st.Weapon || sh.Ammo == 0 || sh.Teleported() {
		return false
	}
	if !st.HasTarget() || st.Sighted < 0 || sh.CommandTime < st.Sighted+sh.ReactTime {
		return false
	}
	if !s.catalog.Get(sh.Held).InRange(sh.EyeNow().Dist(st.ShotLoc)) {
		return false
	}

	absmin, absmax := s.Bounds(sh, st)
	kind := s.CheckHit(sh, st, perceived, absmin, absmax)
	fire.Choice = kind != HitNone
	s.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))

	if s.settings.Diagnose {
		s.diagnose(ctx, sh, st, fire.Choice, perceived, actual, absmin, absmax)
	}
	return fire.Choice
}

// diagnose compares the decision with what full information would give.
func (s *Selector) diagnose(ctx context.Context, sh *Shooter, st *State, choice bool, perceived, actual, absmin, absmax geom.Vec3) {
	// Predicted bounds are snapped along the way; compare with the exact box.
	realMin := st.Motion.Origin.Add(st.Motion.Mins)
	realMax := st.Motion.Origin.Add(st.Motion.Maxs)

	correctedView := s.CheckHit(sh, st, actual, absmin, absmax) != HitNone
	actualBounds := s.CheckHit(sh, st, perceived, realMin, realMax) != HitNone
	both := s.CheckHit(sh, st, actual, realMin, realMax) != HitNone
	if choice == correctedView && choice == actualBounds && choice == both {
		return
	}

	s.mismatches.Add(ctx, 1)
	s.logger.DebugContext(ctx, "Fire decision mismatch",
		"bot", sh.ID,
		"time", sh.CommandTime,
		"expected", choice,
		"actual_bounds", actualBounds,
		"corrected_view", correctedView,
		"outcome", both)
}

// FireWeapon advances fire to the bot's next command and reports whether
// it should shoot.
func (s *Selector) FireWeapon(sh *Shooter, fire *Fire) bool {
	var linger float64
	if s.catalog.Careless(sh.Held) {
		linger = sh.ReactTime * s.settings.ContinueFactor
	}
	return fire.Step(sh.CommandTime, sh.ReactTime, linger)
}
