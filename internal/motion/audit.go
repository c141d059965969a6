package motion

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/combatbot/internal/geom"
)

const (
	// MaxAudits is how many pending predictions the auditor holds.
	MaxAudits = 40
	// auditInterval is the minimum server time between new samples.
	auditInterval = 0.5
	// auditTolerance is the largest position or velocity error, in game
	// units, that still counts as a correct prediction.
	auditTolerance = 2.0
)

type audit struct {
	id        int
	lapse     float64
	predicted State
}

// Mismatch describes a prediction that did not match what happened.
type Mismatch struct {
	ID       int
	Time     float64
	Lapse    float64
	XYError  float64
	ZError   float64
	VelError geom.Vec3
}

func (m Mismatch) String() string {
	return fmt.Sprintf("entity %d %.3f (+%.3f) xy %.2f z %.2f vel (%.2f, %.2f, %.2f)",
		m.ID, m.Time, m.Lapse, m.XYError, m.ZError, m.VelError[0], m.VelError[1], m.VelError[2])
}

// Auditor periodically predicts players ahead and, once the predicted
// time has passed, compares the prediction with the recorded history.
type Auditor struct {
	predictor *Predictor
	horizon   float64
	logger    *slog.Logger

	pending  []audit
	lastTime float64
	started  bool

	checked    metric.Int64Counter
	mismatches metric.Int64Counter
}

// NewAuditor creates an auditor predicting horizon seconds ahead. A
// non-positive horizon disables sampling.
func NewAuditor(p *Predictor, horizon float64, logger *slog.Logger) (*Auditor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Auditor{
		predictor: p,
		horizon:   horizon,
		logger:    logger,
		pending:   make([]audit, 0, MaxAudits),
	}

	m := meter()
	var err error
	a.checked, err = m.Int64Counter(
		"motion.predictions.checked",
		metric.WithDescription("Predictions compared against recorded motion"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create checked counter: %w", err)
	}
	a.mismatches, err = m.Int64Counter(
		"motion.predictions.mismatched",
		metric.WithDescription("Predictions that missed the recorded motion"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mismatch counter: %w", err)
	}
	return a, nil
}

// Pending returns how many predictions are waiting to be checked.
func (a *Auditor) Pending() int {
	return len(a.pending)
}

// Sample predicts id ahead if enough server time has passed since the
// last sample and there is room to store it.
func (a *Auditor) Sample(id int, serverTime float64) bool {
	if a.horizon <= 0 || len(a.pending) >= MaxAudits {
		return false
	}
	if a.started && serverTime < a.lastTime+auditInterval {
		return false
	}

	now, ok := a.predictor.Tracker().Now(id)
	if !ok {
		return false
	}
	predicted := a.predictor.Predict(now, a.horizon)

	a.pending = append(a.pending, audit{id: id, lapse: predicted.Time - now.Time, predicted: predicted})
	a.lastTime = serverTime
	a.started = true
	return true
}

// Check compares every prediction whose time has been reached and returns
// the ones that missed.
func (a *Auditor) Check(ctx context.Context) []Mismatch {
	var found []Mismatch

	i := 0
	for i < len(a.pending) {
		m, done, ok := a.check(a.pending[i])
		if !done {
			i++
			continue
		}

		a.checked.Add(ctx, 1)
		if !ok {
			found = append(found, m)
			a.mismatches.Add(ctx, 1, metric.WithAttributes(attribute.String("physics", a.pending[i].predicted.Physics.Type.String())))
			a.logger.Debug("Prediction mismatch", "mismatch", m.String())
		}

		last := len(a.pending) - 1
		a.pending[i] = a.pending[last]
		a.pending = a.pending[:last]
	}
	return found
}

// check reports whether p can be judged yet and, if so, whether it was
// within tolerance.
func (a *Auditor) check(p audit) (Mismatch, bool, bool) {
	actual, ok := a.predictor.Tracker().StateAt(p.id, p.predicted.Time)
	if !ok {
		// The entity is gone; there is nothing left to compare.
		return Mismatch{}, true, true
	}
	if actual.Time+interpolationSlack < p.predicted.Time {
		return Mismatch{}, false, false
	}

	pos := p.predicted.Origin.Sub(actual.Origin)
	vel := p.predicted.Velocity.Sub(actual.Velocity)
	m := Mismatch{
		ID:       p.id,
		Time:     p.predicted.Time,
		Lapse:    p.lapse,
		XYError:  math.Hypot(pos[0], pos[1]),
		ZError:   pos[2],
		VelError: vel,
	}

	within := m.XYError <= auditTolerance && math.Abs(m.ZError) <= auditTolerance
	for _, v := range vel {
		within = within && math.Abs(v) <= auditTolerance
	}
	return m, true, within
}
