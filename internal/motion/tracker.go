package motion

import (
	"log/slog"

	"github.com/OCAP2/combatbot/internal/cache"
	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/queue"
	"github.com/OCAP2/combatbot/internal/world"
)

// HistorySize is how many past states are kept per player.
const HistorySize = 12

// interpolationSlack absorbs floating point error when matching a
// requested time against a stored timestamp.
const interpolationSlack = 1e-5

// Source is the part of the world the tracker reads from.
type Source interface {
	world.Tracer
	world.Snapshots
}

// entry is one stored state together with the server time it was
// estimated to have been processed at.
type entry struct {
	state      State
	serverTime float64
}

type history = queue.Ring[entry]

// Tracker keeps the motion history of every player it has seen.
type Tracker struct {
	source    Source
	logger    *slog.Logger
	histories *cache.EntityCache[int, *history]

	serverTime float64
	aiTime     float64
}

// NewTracker creates a tracker reading from source.
func NewTracker(source Source, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		source:    source,
		logger:    logger,
		histories: cache.NewEntityCache[int, *history](),
	}
}

// Tracer exposes the collision service the tracker refreshes states with.
func (t *Tracker) Tracer() world.Tracer {
	return t.source
}

// Reset forgets every history.
func (t *Tracker) Reset() {
	t.histories.Reset()
}

// AITime is the time of the AI frame passed to the last Advance.
func (t *Tracker) AITime() float64 {
	return t.aiTime
}

// Advance records the clocks of a new AI frame and appends the newest
// state of every player in the snapshot.
func (t *Tracker) Advance(serverTime, aiTime float64) {
	t.serverTime = serverTime
	t.aiTime = aiTime

	for _, id := range t.source.Entities() {
		s, ok := t.source.Entity(id)
		if !ok || !s.Client {
			continue
		}
		t.Update(s)
	}
}

// Update appends the state in s to its entity's history. Spectators have
// their history cleared and commands that were already seen are ignored.
func (t *Tracker) Update(s world.Snapshot) {
	if !s.Client {
		return
	}
	if s.Spectator || s.Team == world.TeamSpectator {
		if h, ok := t.histories.Get(s.ID); ok {
			h.Reset()
		}
		return
	}

	h := t.histories.GetOrCreate(s.ID, func() *history {
		return queue.NewRing[entry](HistorySize)
	})
	if newest, ok := h.Newest(); ok && s.Time <= newest.state.Time {
		return
	}

	st := FromSnapshot(s)
	Refresh(t.source, &st)

	serverTime := t.aiTime
	if s.Synchronous {
		serverTime = t.serverTime
	}
	h.Push(entry{state: st, serverTime: serverTime})
}

// Now returns the state of id as of the current snapshot.
func (t *Tracker) Now(id int) (State, bool) {
	s, ok := t.source.Entity(id)
	if !ok {
		return State{}, false
	}
	st := FromSnapshot(s)
	Refresh(t.source, &st)
	return st, true
}

// Len reports how many states are stored for id.
func (t *Tracker) Len(id int) int {
	h, ok := t.histories.Get(id)
	if !ok {
		return 0
	}
	return h.Len()
}

// StateAt returns the state of id at time, measured on the entity's own
// clock. Times before the oldest stored state return that state and times
// after the newest return the newest. Entities without history fall back
// to their current state.
func (t *Tracker) StateAt(id int, time float64) (State, bool) {
	h, ok := t.histories.Get(id)
	if !ok || h.Len() == 0 {
		return t.Now(id)
	}

	older, _ := h.Oldest()
	if time <= older.state.Time {
		return older.state, true
	}

	for i := 1; i < h.Len(); i++ {
		newer, _ := h.At(i)
		if time <= newer.state.Time+interpolationSlack {
			return Interpolate(t.source, newer.state, older.state, time), true
		}
		older = newer
	}

	newest, _ := h.Newest()
	return newest.state, true
}

// Interpolate blends two states at time. Analog values are interpolated
// and everything else is taken from the newer state. Teleports and times
// outside the pair return one of the inputs unchanged.
func Interpolate(tr world.Tracer, a, b State, time float64) State {
	var older, newer State
	switch {
	case a.Time < b.Time:
		older, newer = a, b
	case b.Time < a.Time:
		older, newer = b, a
	default:
		return a
	}

	if time <= older.Time {
		return older
	}
	if time >= newer.Time {
		return newer
	}
	if older.TeleportBit != newer.TeleportBit {
		return newer
	}

	w := (time - older.Time) / (newer.Time - older.Time)

	result := newer
	result.Time = geom.Interpolate(older.Time, newer.Time, w)
	result.Origin = older.Origin.Lerp(newer.Origin, w)
	result.Velocity = older.Velocity.Lerp(newer.Velocity, w)

	for i := geom.Pitch; i <= geom.Roll; i++ {
		nv := geom.AngleNormalize360(newer.View[i])
		ov := geom.AngleNormalize360(older.View[i])
		if nv-ov > 180 {
			nv -= 360
		}
		if ov-nv > 180 {
			ov -= 360
		}
		result.View[i] = geom.AngleNormalize180(geom.Interpolate(ov, nv, w))
	}

	result.Physics.Walking = older.Physics.Walking
	Refresh(tr, &result)
	return result
}

// UpdateRate estimates the seconds between updates of id.
func (t *Tracker) UpdateRate(id int) float64 {
	if s, ok := t.source.Entity(id); ok && s.Synchronous {
		return ServerFrame
	}

	h, ok := t.histories.Get(id)
	if !ok || h.Len() < 2 {
		return ServerFrame
	}
	oldest, _ := h.Oldest()
	newest, _ := h.Newest()
	return (newest.state.Time - oldest.state.Time) / float64(h.Len()-1)
}

// Latency estimates how far id will advance on its own clock before the
// bot's next command executes at commandTime.
func (t *Tracker) Latency(botID int, commandTime float64, id int) float64 {
	if s, ok := t.source.Entity(id); ok && s.Synchronous {
		// Entities processed before the bot get one extra frame.
		if id < botID {
			return ServerFrame
		}
		return 0
	}

	h, ok := t.histories.Get(id)
	if !ok || h.Len() == 0 {
		return 0
	}
	oldest, _ := h.Oldest()
	newest, _ := h.Newest()

	ratio := 1.0
	motionLapse := newest.state.Time - oldest.state.Time
	serverLapse := newest.serverTime - oldest.serverTime
	if motionLapse > 0 && serverLapse > 0 {
		ratio = motionLapse / serverLapse
	}

	latency := commandTime - t.aiTime
	if latency < 0 {
		latency = 0
	}
	return latency * ratio
}

// Lagged returns a state of id such that predicting it forward by the
// returned number of seconds reaches the moment the bot's next command
// executes. The returned lag matches the requested one when enough
// history exists, and is never negative.
func (t *Tracker) Lagged(botID int, commandTime float64, id int, lag float64) (State, float64, bool) {
	if lag < 0 {
		lag = 0
	}
	s, ok := t.source.Entity(id)
	if !ok {
		return State{}, 0, false
	}

	entityTime := s.Time + t.Latency(botID, commandTime, id)
	st, ok := t.StateAt(id, entityTime-lag)
	if !ok {
		return State{}, 0, false
	}

	actual := entityTime - st.Time
	if actual < 0 {
		actual = 0
	}
	return st, actual, true
}
