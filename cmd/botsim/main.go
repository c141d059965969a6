// Command botsim pits bots against each other in a scripted arena and
// reports what they did.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/OCAP2/combatbot/internal/arena"
	"github.com/OCAP2/combatbot/internal/bot"
	"github.com/OCAP2/combatbot/internal/config"
	"github.com/OCAP2/combatbot/internal/dispatcher"
	"github.com/OCAP2/combatbot/internal/logging"
	"github.com/OCAP2/combatbot/internal/mission"
	"github.com/OCAP2/combatbot/internal/monitor"
	intOtel "github.com/OCAP2/combatbot/internal/otel"
	"github.com/OCAP2/combatbot/internal/telemetry"
	"github.com/OCAP2/combatbot/internal/view"
	"github.com/OCAP2/combatbot/internal/weapon"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const (
	serviceName    = "combatbot"
	telemetryQueue = 1000
	shutdownWait   = 5 * time.Second
)

type cliOptions struct {
	configDir string
	scenario  string
	profiles  string
	stdout    bool
}

func main() {
	opts, fs := parseFlags(os.Args[1:])
	if err := config.BindFlags(fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintln(os.Stderr, "botsim:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (cliOptions, *pflag.FlagSet) {
	var opts cliOptions
	fs := pflag.NewFlagSet("botsim", pflag.ExitOnError)
	fs.StringVarP(&opts.configDir, "config", "c", ".", "directory holding "+config.FileName)
	fs.StringVarP(&opts.scenario, "scenario", "s", "", "scenario YAML file (required)")
	fs.StringVarP(&opts.profiles, "profiles", "p", "", "bot profile YAML file")
	fs.BoolVar(&opts.stdout, "stdout", false, "log to stdout instead of a file")
	fs.String("log-level", "info", "log level")
	fs.String("logs-dir", "./botlogs", "directory for log, metric and status files")
	fs.Int("frames", 0, "frame budget, overriding the scenario")
	fs.Int64("seed", 0, "random seed mixed into every bot")
	fs.String("mode", "normal", "view mode: normal, flawless or perfect")
	fs.String("game-type", "ffa", "game type such as ffa, team or ctf")
	_ = fs.Parse(args)
	return opts, fs
}

func run(ctx context.Context, opts cliOptions) error {
	sessionStart := time.Now()

	if err := config.Load(opts.configDir); err != nil {
		config.LoadDefaults()
		fmt.Fprintln(os.Stderr, "botsim: using default configuration:", err)
	}
	if opts.scenario == "" {
		return errors.New("--scenario is required")
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	var logFile io.Writer
	if !opts.stdout {
		f, err := logging.CreateLogFile(logsDir, serviceName, sessionStart)
		if err != nil {
			return err
		}
		defer f.Close()
		logFile = f
	}

	otelProvider, closeOTel, err := setupOTel(logsDir, sessionStart)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintln(os.Stderr, "botsim: otel shutdown:", err)
		}
		closeOTel()
	}()

	frameCtx := &logging.FrameContext{}
	slogManager := logging.NewSlogManager()
	logOpts := []logging.Option{logging.WithFrame(frameCtx)}
	if config.GetBool("graylog.enabled") {
		w, err := logging.DialGraylog(config.GetString("graylog.address"))
		if err != nil {
			return fmt.Errorf("failed to connect to graylog: %w", err)
		}
		defer w.Close()
		logOpts = append(logOpts, logging.WithGELF(w, config.GetString("graylog.level")))
	}
	slogManager.Setup(logFile, config.GetString("logLevel"), otelProvider.LoggerProvider(), logOpts...)
	logger := slogManager.Logger()
	logger.Info("Starting botsim", "version", Version, "buildDate", BuildDate, "scenario", opts.scenario)

	zl := logging.NewZerolog(orStdout(logFile), config.GetString("logLevel"))
	dispatchLogger := logging.NewDispatcherLogger(zl)
	events, err := dispatcher.New(dispatchLogger)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	var sink *dispatcher.Dispatcher
	tm := telemetry.NewManager(zl, config.GetInfluxConfig(), filepath.Join(logsDir, "telemetry.lp.gz"))
	switch err := tm.Connect(ctx); {
	case errors.Is(err, telemetry.ErrDisabled):
		logger.Debug("Telemetry disabled")
	case err != nil:
		logger.Warn("Telemetry unavailable", "error", err)
	default:
		tm.Register(events, telemetryQueue)
		sink = events
	}
	defer func() {
		events.Close()
		if err := tm.Close(); err != nil {
			logger.Warn("Failed to close telemetry", "error", err)
		}
	}()

	sim, err := buildSim(opts, Options{
		Telemetry:      sink,
		Frame:          frameCtx,
		Logger:         logger,
		DispatchLogger: dispatchLogger,
	})
	if err != nil {
		return err
	}
	defer sim.Close()

	mon := monitor.NewService(monitor.Dependencies{
		LogManager:     slogManager,
		MissionContext: sim.mission,
		Roster:         sim,
		Frame:          frameCtx,
		OutputDir:      logsDir,
		Interval:       config.GetDuration("monitor.interval"),
	})
	if err := mon.Start(); err != nil {
		logger.Warn("Status monitor not started", "error", err)
	}
	defer mon.Stop()

	played, err := sim.Run(ctx, config.GetInt("sim.frames"))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	report(logger, sim, played)

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := slogManager.Flush(flushCtx); err != nil {
		logger.Warn("Failed to flush logs", "error", err)
	}
	return nil
}

// setupOTel creates the OTel provider. Its log and metric files are closed
// by the returned function.
func setupOTel(logsDir string, sessionStart time.Time) (*intOtel.Provider, func(), error) {
	cfg := config.GetOTelConfig()
	oc := intOtel.Config{
		Enabled:         cfg.Enabled,
		ServiceName:     cfg.ServiceName,
		BatchTimeout:    cfg.BatchTimeout,
		MetricsInterval: cfg.MetricsInterval,
		Endpoint:        cfg.Endpoint,
		Insecure:        cfg.Insecure,
	}

	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	if cfg.Enabled {
		for _, suffix := range []string{".otel", ".metrics"} {
			f, err := logging.CreateLogFile(logsDir, serviceName+suffix, sessionStart)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			files = append(files, f)
		}
		oc.LogWriter, oc.MetricWriter = files[0], files[1]
	}

	p, err := intOtel.New(oc)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("failed to set up otel: %w", err)
	}
	return p, closeAll, nil
}

// buildSim reads the scenario, profiles, catalog and match settings named
// by opts and the configuration into base and builds the simulation.
func buildSim(opts cliOptions, base Options) (*Sim, error) {
	sc, err := arena.LoadScenario(opts.scenario)
	if err != nil {
		return nil, err
	}

	var profiles map[string]bot.Profile
	if opts.profiles != "" {
		if profiles, err = bot.LoadProfiles(opts.profiles); err != nil {
			return nil, err
		}
	}

	tuning, err := config.GetTuning()
	if err != nil {
		return nil, err
	}
	catalog := weapon.Default()
	if tuning.WeaponCatalog != "" {
		if catalog, err = weapon.Load(tuning.WeaponCatalog, tuning.CarelessReload, false); err != nil {
			return nil, err
		}
	}

	mode, err := view.ParseMode(config.GetString("sim.mode"))
	if err != nil {
		return nil, err
	}
	mc, err := matchContext(sc, catalog)
	if err != nil {
		return nil, err
	}

	base.Scenario = sc
	base.Profiles = profiles
	base.Tuning = tuning
	base.Mission = mc
	base.Mode = mode
	base.Seed = int64(config.GetInt("sim.seed"))
	base.AuditHorizon = config.GetFloat("sim.auditHorizon")
	return NewSim(base)
}

// matchContext starts a match on the scenario's map. Team scenarios force
// team play when the configured game type has none.
func matchContext(sc *arena.Scenario, catalog *weapon.Catalog) (*mission.Context, error) {
	gt, err := mission.ParseGameType(config.GetString("match.gameType"))
	if err != nil {
		return nil, err
	}
	if sc.TeamPlay && !gt.TeamPlay() {
		gt = mission.GameTeam
	}

	mc := mission.NewContext(catalog)
	s := mc.Settings()
	s.GameType = gt
	s.FriendlyFire = config.GetBool("match.friendlyFire")
	s.QuadFactor = config.GetFloat("match.quadFactor")
	s.MapTitle = sc.Map
	mc.Set(s)
	return mc, nil
}

func report(logger *slog.Logger, sim *Sim, played int) {
	for _, st := range sim.Statuses() {
		alive := false
		if e, ok := sim.Arena().Entity(st.Entity); ok {
			alive = e.Alive
		}
		logger.Info("Bot result",
			"name", st.Name,
			"entity", st.Entity,
			"alive", alive,
			"hits", sim.Referee().HitCount(st.Entity),
			"fired", st.Fired,
			"damageDealt", st.DamageDealt,
		)
	}
	catalog := sim.mission.Catalog()
	for _, k := range sim.Referee().Kills() {
		logger.Info("Kill",
			"time", k.Time,
			"attacker", k.Attacker,
			"target", k.Target,
			"weapon", catalog.Get(k.Weapon).Name,
		)
	}
	logger.Info("Simulation finished", "frames", played)
}

func orStdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
