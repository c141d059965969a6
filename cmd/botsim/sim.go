package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/OCAP2/combatbot/internal/arena"
	"github.com/OCAP2/combatbot/internal/attack"
	"github.com/OCAP2/combatbot/internal/bot"
	"github.com/OCAP2/combatbot/internal/config"
	"github.com/OCAP2/combatbot/internal/dispatcher"
	"github.com/OCAP2/combatbot/internal/logging"
	"github.com/OCAP2/combatbot/internal/mission"
	"github.com/OCAP2/combatbot/internal/monitor"
	"github.com/OCAP2/combatbot/internal/motion"
	"github.com/OCAP2/combatbot/internal/selector"
	"github.com/OCAP2/combatbot/internal/view"
	"github.com/OCAP2/combatbot/internal/world"
)

// ErrNoBots is returned when a scenario drives no players.
var ErrNoBots = errors.New("scenario has no bots")

// Options configure a Sim.
type Options struct {
	Scenario *arena.Scenario
	Profiles map[string]bot.Profile
	Tuning   config.Tuning
	Mission  *mission.Context
	Mode     view.Mode
	Seed     int64
	// AuditHorizon is how far ahead motion predictions are audited. Zero
	// disables the audit.
	AuditHorizon float64

	Telemetry      *dispatcher.Dispatcher
	Frame          *logging.FrameContext
	Logger         *slog.Logger
	DispatchLogger dispatcher.Logger
}

// Sim runs the bots of a scenario against each other in an arena.
type Sim struct {
	arena     *arena.Arena
	tracker   *motion.Tracker
	auditor   *motion.Auditor
	referee   *bot.Referee
	mission   *mission.Context
	frame     *logging.FrameContext
	logger    *slog.Logger
	bots      []*bot.Bot
	clients   []int
	frames    int
	frameTime float64
}

// NewSim builds the arena and every bot of opts.Scenario.
func NewSim(opts Options) (*Sim, error) {
	if opts.Scenario == nil || opts.Mission == nil {
		return nil, errors.New("scenario and mission are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	frameCtx := opts.Frame
	if frameCtx == nil {
		frameCtx = &logging.FrameContext{}
	}

	a, err := opts.Scenario.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build arena: %w", err)
	}

	settings := opts.Mission.Settings()
	catalog := opts.Mission.Catalog()

	tracker := motion.NewTracker(a, logger)
	predictor := motion.NewPredictor(tracker, 0)
	auditor, err := motion.NewAuditor(predictor, opts.AuditHorizon, logger)
	if err != nil {
		return nil, err
	}
	atk, err := attack.NewSelector(a, predictor, catalog, opts.Tuning.Attack, logger)
	if err != nil {
		return nil, err
	}
	weapons, err := selector.New(catalog, logger)
	if err != nil {
		return nil, err
	}
	referee := bot.NewReferee(a, catalog, settings.GameType.TeamPlay(), settings.FriendlyFire, logger)
	referee.SetQuadFactor(settings.QuadFactor)

	s := &Sim{
		arena:     a,
		tracker:   tracker,
		auditor:   auditor,
		referee:   referee,
		mission:   opts.Mission,
		frame:     frameCtx,
		logger:    logger,
		frames:    opts.Scenario.Frames,
		frameTime: opts.Scenario.FrameTime,
	}

	deps := bot.Deps{
		World:          a,
		Predictor:      predictor,
		Attack:         atk,
		Weapons:        weapons,
		Mission:        opts.Mission,
		Scoreboard:     referee,
		Telemetry:      opts.Telemetry,
		Logger:         logger,
		DispatchLogger: opts.DispatchLogger,
	}
	botSettings := bot.DefaultSettings()
	botSettings.ReactTimeMin = opts.Tuning.ReactTimeMin
	botSettings.ReactTimeMax = opts.Tuning.ReactTimeMax
	botSettings.View = opts.Tuning.View
	botSettings.Mode = opts.Mode
	botSettings.Seed = opts.Seed

	for _, e := range opts.Scenario.Entities {
		if e.Client || e.Bot {
			s.clients = append(s.clients, e.ID)
		}
		if !e.Bot {
			continue
		}
		spec, err := bot.SpecFromEntity(e, catalog, opts.Profiles)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("entity %d: %w", e.ID, err)
		}
		b, err := bot.New(spec, botSettings, deps)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("entity %d: %w", e.ID, err)
		}
		s.bots = append(s.bots, b)
	}
	if len(s.bots) == 0 {
		return nil, ErrNoBots
	}
	return s, nil
}

// Arena is the simulated world.
func (s *Sim) Arena() *arena.Arena { return s.arena }

// Referee keeps the score.
func (s *Sim) Referee() *bot.Referee { return s.referee }

// Bots returns the simulated bots in scenario order.
func (s *Sim) Bots() []*bot.Bot { return s.bots }

// Statuses implements monitor.Roster.
func (s *Sim) Statuses() []monitor.BotStatus {
	out := make([]monitor.BotStatus, 0, len(s.bots))
	for _, b := range s.bots {
		out = append(out, b.Status())
	}
	return out
}

// Run plays frames until the match is decided, the frame budget of the
// scenario is spent or ctx is cancelled. frames overrides the scenario's
// budget when positive. It returns the number of frames played.
func (s *Sim) Run(ctx context.Context, frames int) (int, error) {
	if frames <= 0 {
		frames = s.frames
	}
	for n := range frames {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := s.Step(ctx, int64(n)); err != nil {
			return n, fmt.Errorf("frame %d: %w", n, err)
		}
		if s.Decided() {
			now, _ := s.arena.ServerTime()
			s.logger.Info("Match decided", "frame", n, "serverTime", now)
			return n + 1, nil
		}
	}
	return frames, nil
}

// Step plays one frame: every bot thinks on the same snapshot, then the
// commands are applied in scenario order and the arena moves on.
func (s *Sim) Step(ctx context.Context, number int64) error {
	now, _ := s.arena.ServerTime()
	s.frame.Set(number, now)
	s.tracker.Advance(now, now)
	s.audit(ctx, number, now)

	cmds := make([]bot.Command, len(s.bots))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range s.bots {
		g.Go(func() error {
			cmd, err := b.Think(gctx, number)
			if err != nil {
				return fmt.Errorf("bot %s: %w", b.Name(), err)
			}
			cmds[i] = cmd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, cmd := range cmds {
		if id, ok := s.referee.Apply(cmd); ok {
			s.bots[i].Launched(id, cmd.Weapon)
		}
	}
	s.referee.Step(s.frameTime)
	return nil
}

// audit predicts one player per frame, round robin, and checks the
// predictions that have come due.
func (s *Sim) audit(ctx context.Context, number int64, now float64) {
	if len(s.clients) == 0 {
		return
	}
	s.auditor.Sample(s.clients[int(number)%len(s.clients)], now)
	if missed := s.auditor.Check(ctx); len(missed) > 0 {
		s.logger.Debug("Motion predictions missed", "count", len(missed))
	}
}

// Decided reports whether at most one side has a player alive. Sides are
// teams in team play and single players otherwise.
func (s *Sim) Decided() bool {
	teamPlay := s.mission.Settings().GameType.TeamPlay()
	sides := make(map[int]bool)
	for _, id := range s.clients {
		e, ok := s.arena.Entity(id)
		if !ok || !e.Alive || e.Spectator || e.Team == world.TeamSpectator {
			continue
		}
		if teamPlay {
			sides[int(e.Team)] = true
		} else {
			sides[id] = true
		}
	}
	return len(sides) <= 1
}

// Close stops every bot.
func (s *Sim) Close() {
	for _, b := range s.bots {
		b.Close()
	}
}
