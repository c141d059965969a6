// Package bot ties the combat models together into one bot. Every AI
// frame runs a fixed sequence of phases: the bot reads its own state,
// books last frame's fire into its accuracy ledger, scans for enemies,
// decides what it is aware of, picks where to aim and with what weapon,
// moves its simulated view and finally emits a command.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/combatbot/internal/accuracy"
	"github.com/OCAP2/combatbot/internal/aim"
	"github.com/OCAP2/combatbot/internal/arena"
	"github.com/OCAP2/combatbot/internal/attack"
	"github.com/OCAP2/combatbot/internal/dispatcher"
	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/logging"
	"github.com/OCAP2/combatbot/internal/mission"
	"github.com/OCAP2/combatbot/internal/monitor"
	"github.com/OCAP2/combatbot/internal/motion"
	"github.com/OCAP2/combatbot/internal/selector"
	"github.com/OCAP2/combatbot/internal/view"
	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/world"
	"github.com/OCAP2/combatbot/internal/zone"
)

var (
	// ErrUnknownEntity is returned when the bot's entity is missing from
	// the world.
	ErrUnknownEntity = errors.New("bot entity not in world")
	// ErrMissingDependency is returned by New for incomplete Deps.
	ErrMissingDependency = errors.New("missing bot dependency")
)

const (
	// awareMemory is how long a bot keeps chasing an enemy it lost sight of.
	awareMemory = 5.0
	// sampleEvery is how many frames pass between accuracy samples.
	sampleEvery = 20
)

// restZone is used for weapon choice when there is no enemy to measure.
var restZone = zone.New(zone.DistCenters[1], 0)

// Scoreboard reports what happened to the bot's shots.
type Scoreboard interface {
	// HitCount is the running hit tally of entity: enemy hits count up,
	// teammate hits count down.
	HitCount(entity int) int
	Outcome(missile int) accuracy.MissileOutcome
}

// Deps are the shared services a bot runs on.
type Deps struct {
	World      world.World
	Predictor  *motion.Predictor
	Attack     *attack.Selector
	Weapons    *selector.Selector
	Mission    *mission.Context
	Scoreboard Scoreboard
	// Telemetry receives accuracy and decision samples when set.
	Telemetry *dispatcher.Dispatcher

	Logger         *slog.Logger
	DispatchLogger dispatcher.Logger
}

// Settings are the tunables shared by every bot.
type Settings struct {
	ReactTimeMin float64
	ReactTimeMax float64
	View         view.Settings
	Mode         view.Mode
	// Seed is mixed with the entity number to seed each bot's random
	// source.
	Seed int64
	// Epoch is the wall clock time of server time zero, used to stamp
	// telemetry.
	Epoch time.Time
}

// DefaultSettings returns the stock tuning.
func DefaultSettings() Settings {
	return Settings{
		ReactTimeMin: 0.12,
		ReactTimeMax: 0.28,
		View:         view.DefaultSettings(),
	}
}

// Spec is one bot to create.
type Spec struct {
	Entity  int
	Name    string
	Profile Profile
	Arsenal selector.Arsenal
	Held    weapon.ID
}

// SpecFromEntity builds the spec of a scenario bot. The profile named
// like the entity is used when present, otherwise one is derived from the
// entity's skill.
func SpecFromEntity(e arena.EntitySpec, c *weapon.Catalog, profiles map[string]Profile) (Spec, error) {
	p, ok := profiles[e.Name]
	if !ok {
		skill := e.Skill
		if skill == 0 {
			skill = 3
		}
		p = DefaultProfile(e.Name, skill)
		if err := p.Validate(); err != nil {
			return Spec{}, err
		}
	}

	spec := Spec{Entity: e.ID, Name: e.Name, Profile: p}
	if spec.Name == "" {
		spec.Name = fmt.Sprintf("bot%d", e.ID)
	}
	for name, ammo := range e.Weapons {
		id, err := c.Lookup(name)
		if err != nil {
			return Spec{}, fmt.Errorf("bot %s: %w", spec.Name, err)
		}
		spec.Arsenal.Give(id, ammo)
	}

	switch {
	case e.Weapon != "":
		id, err := c.Lookup(e.Weapon)
		if err != nil {
			return Spec{}, fmt.Errorf("bot %s: %w", spec.Name, err)
		}
		if !spec.Arsenal.Owned[id] {
			return Spec{}, fmt.Errorf("bot %s: raises %s without owning it", spec.Name, c.Get(id).Name)
		}
		spec.Held = id
	default:
		spec.Held = spec.Arsenal.Activate(weapon.None)
	}
	return spec, nil
}

// Command is what a bot wants the server to do at its next command.
type Command struct {
	Bot    int
	Time   float64
	Angles geom.Vec3
	// Weapon is the weapon held once the command runs.
	Weapon weapon.ID
	Fire   bool
	Aim    aim.Type
	Target int
}

// Aim is the outcome of SelectAim.
type Aim struct {
	Angles    geom.Vec3
	Direction geom.Vec3
	Fire      bool
	Type      aim.Type
	Weapon    weapon.ID
	Target    int
}

type sighting struct {
	time   float64
	origin geom.Vec3
	area   int
}

// Bot is one simulated player. Think must not be called concurrently on
// the same bot; Status may be called from any goroutine.
type Bot struct {
	ID      uuid.UUID
	entity  int
	name    string
	profile Profile
	ratings Ratings
	react   float64

	deps     Deps
	settings Settings
	catalog  *weapon.Catalog
	logger   *slog.Logger

	ledger   *accuracy.Ledger
	missiles *accuracy.MissileTracker
	judge    *judge
	view     *view.State
	memory   *aim.State
	rng      *rand.Rand

	arsenal selector.Arsenal
	shooter attack.Shooter
	attack  attack.State
	fire    attack.Fire

	sighted  map[int]float64
	lastSeen map[int]sighting

	reloadUntil float64
	switchUntil float64
	lastZone    zone.Zone
	lastFire    bool
	teleportBit bool
	frame       *frame

	phases    *dispatcher.Dispatcher
	think     *dispatcher.Pipeline
	aimOnly   *dispatcher.Pipeline
	situation *dispatcher.Pipeline

	frames metric.Int64Counter
	shots  metric.Int64Counter

	statusMu sync.Mutex
	status   monitor.BotStatus
}

// New creates a bot for the entity in spec.
func New(spec Spec, settings Settings, deps Deps) (*Bot, error) {
	switch {
	case deps.World == nil:
		return nil, fmt.Errorf("%w: world", ErrMissingDependency)
	case deps.Predictor == nil:
		return nil, fmt.Errorf("%w: predictor", ErrMissingDependency)
	case deps.Attack == nil:
		return nil, fmt.Errorf("%w: attack selector", ErrMissingDependency)
	case deps.Weapons == nil:
		return nil, fmt.Errorf("%w: weapon selector", ErrMissingDependency)
	case deps.Mission == nil:
		return nil, fmt.Errorf("%w: mission", ErrMissingDependency)
	case deps.Scoreboard == nil:
		return nil, fmt.Errorf("%w: scoreboard", ErrMissingDependency)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.DispatchLogger == nil {
		deps.DispatchLogger = logging.NewDispatcherLogger(zerolog.Nop())
	}
	if settings.Epoch.IsZero() {
		settings.Epoch = time.Now()
	}

	catalog := deps.Mission.Catalog()
	ratings, err := spec.Profile.Ratings(catalog)
	if err != nil {
		return nil, err
	}

	snap, ok := deps.World.Entity(spec.Entity)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntity, spec.Entity)
	}
	serverTime, _ := deps.World.ServerTime()

	logger := deps.Logger.With("bot", spec.Name, "entity", spec.Entity)
	rng := rand.New(rand.NewSource(settings.Seed + int64(spec.Entity)))

	b := &Bot{
		ID:          uuid.New(),
		entity:      spec.Entity,
		name:        spec.Name,
		profile:     spec.Profile,
		ratings:     ratings,
		react:       spec.Profile.ReactTime(settings.ReactTimeMin, settings.ReactTimeMax),
		deps:        deps,
		settings:    settings,
		catalog:     catalog,
		logger:      logger,
		ledger:      accuracy.NewLedger(accuracy.NewDefaults(catalog), logger),
		missiles:    accuracy.NewMissileTracker(),
		view:        view.New(settings.View, rng, snap.View, serverTime),
		memory:      aim.NewState(),
		rng:         rng,
		arsenal:     spec.Arsenal,
		attack:      attack.NewState(),
		sighted:     make(map[int]float64),
		lastSeen:    make(map[int]sighting),
		lastZone:    restZone,
		teleportBit: snap.TeleportBit,
	}
	b.view.SetMode(settings.Mode)
	b.ledger.Reset(serverTime)
	b.judge = &judge{bot: b}
	b.shooter = attack.Shooter{
		ID:       spec.Entity,
		Held:     spec.Held,
		Skill:    ratings.Skill,
		Accuracy: ratings.Accuracy,
	}

	if err := b.registerPhases(); err != nil {
		return nil, err
	}

	m := meter()
	b.frames, err = m.Int64Counter(
		"bot.frames",
		metric.WithDescription("AI frames processed by bots"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create frames counter: %w", err)
	}
	b.shots, err = m.Int64Counter(
		"bot.shots",
		metric.WithDescription("Shots fired by bots"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create shots counter: %w", err)
	}

	b.status = monitor.BotStatus{
		Name:   b.name,
		Entity: b.entity,
		Skill:  b.profile.Skill,
		Weapon: catalog.Get(spec.Held).Name,
		Aim:    aim.TypeNone.String(),
		Enemy:  world.EntityNone,
	}

	logger.Info("Bot created",
		"id", b.ID.String(),
		"skill", b.profile.Skill,
		"reactTime", b.react,
		"weapon", catalog.Get(spec.Held).Name)
	return b, nil
}

// Entity is the world entity the bot controls.
func (b *Bot) Entity() int { return b.entity }

// Name is the bot's display name.
func (b *Bot) Name() string { return b.name }

// ReactTime is the bot's reaction time in seconds.
func (b *Bot) ReactTime() float64 { return b.react }

// Arsenal returns what the bot is carrying.
func (b *Bot) Arsenal() selector.Arsenal { return b.arsenal }

// Held is the weapon currently raised.
func (b *Bot) Held() weapon.ID { return b.shooter.Held }

// Close stops the phase dispatcher.
func (b *Bot) Close() {
	b.phases.Close()
}

// Think runs one AI frame and returns the command for the server.
func (b *Bot) Think(ctx context.Context, number int64) (Command, error) {
	fr := b.newFrame(ctx, number)
	out, err := b.think.Run(b.event(fr))
	if err != nil {
		return Command{}, fmt.Errorf("bot %s frame %d: %w", b.name, number, err)
	}
	b.frames.Add(ctx, 1)
	b.publish(fr)
	if number%sampleEvery == 0 {
		b.sampleAccuracy(fr)
	}
	return out.(Command), nil
}

// SelectAim decides where the bot looks this frame and whether it would
// fire, without booking fire or switching weapons.
func (b *Bot) SelectAim(ctx context.Context) (Aim, error) {
	fr := b.newFrame(ctx, b.lastFrameNumber())
	if _, err := b.aimOnly.Run(b.event(fr)); err != nil {
		return Aim{}, fmt.Errorf("bot %s: %w", b.name, err)
	}
	return Aim{
		Angles:    fr.angles,
		Direction: geom.Forward(fr.angles),
		Fire:      fr.fire,
		Type:      fr.aim.Type,
		Weapon:    fr.aim.Weapon,
		Target:    fr.aim.Attack.Target,
	}, nil
}

// SelectWeapon returns the weapon the bot would fight with right now.
func (b *Bot) SelectWeapon(ctx context.Context) (weapon.ID, error) {
	fr := b.newFrame(ctx, b.lastFrameNumber())
	if _, err := b.situation.Run(b.event(fr)); err != nil {
		return weapon.None, fmt.Errorf("bot %s: %w", b.name, err)
	}
	if fr.dead {
		return b.shooter.Held, nil
	}
	return b.chooseWeapon(fr).Weapon, nil
}

// RecordAccuracy adds an attack outcome to the bot's ledger.
func (b *Bot) RecordAccuracy(rec accuracy.Record, w weapon.ID, z zone.Zone) {
	b.ledger.Record(rec, w, z)
}

// ReadAccuracy reads the bot's padded record for w in z, or for the whole
// weapon when z is nil.
func (b *Bot) ReadAccuracy(w weapon.ID, z *zone.Zone) accuracy.Record {
	return b.ledger.Read(w, z)
}

// ResetAccuracy forgets every recorded outcome and tracked missile.
func (b *Bot) ResetAccuracy() {
	now, _ := b.deps.World.ServerTime()
	b.ledger.Reset(now)
	b.missiles.Reset()
}

// Launched tells the bot a missile it fired with w exists as entity id.
func (b *Bot) Launched(id int, w weapon.ID) {
	if !b.missiles.Track(id, w, b.lastZone) {
		b.logger.Debug("Missile tracker full", "missile", id)
	}
}

// Status reports the bot for the status monitor.
func (b *Bot) Status() monitor.BotStatus {
	b.statusMu.Lock()
	defer b.statusMu.Unlock()
	return b.status
}

func (b *Bot) lastFrameNumber() int64 {
	if b.frame == nil {
		return 0
	}
	return b.frame.number
}

func (b *Bot) event(fr *frame) dispatcher.Event {
	return dispatcher.Event{
		Bot:     b.entity,
		Frame:   fr.number,
		Time:    fr.serverTime,
		Payload: fr,
	}
}

// publish updates the reported status and sends a decision sample.
func (b *Bot) publish(fr *frame) {
	weaponName := b.catalog.Get(b.shooter.Held).Name

	b.statusMu.Lock()
	b.status.Weapon = weaponName
	b.status.Aim = fr.aim.Type.String()
	b.status.Enemy = fr.input.AimEnemy
	b.status.DamageDealt = b.ledger.DamageDealt()
	if fr.cmd.Fire {
		b.status.Fired++
	}
	b.statusMu.Unlock()

	if b.deps.Telemetry == nil || fr.aim.Type != aim.TypeEnemy {
		return
	}
	b.emit(fr, decisionSample(b.name, fr, weaponName, b.stamp(fr.serverTime)))
}

func (b *Bot) sampleAccuracy(fr *frame) {
	if b.deps.Telemetry == nil {
		return
	}
	z := b.lastZone
	b.emit(fr, accuracySample(b.name, b.catalog.Get(b.shooter.Held).Name, z, b.ledger.Read(b.shooter.Held, &z), b.stamp(fr.serverTime)))
}

func (b *Bot) emit(fr *frame, payload any) {
	e := b.event(fr)
	e.Command = telemetryCommand
	e.Payload = payload
	if _, err := b.deps.Telemetry.Dispatch(e); err != nil {
		b.logger.Debug("Telemetry sample rejected", "error", err)
	}
}

func (b *Bot) stamp(serverTime float64) time.Time {
	return b.settings.Epoch.Add(time.Duration(serverTime * float64(time.Second)))
}

func (b *Bot) countShot(ctx context.Context, w weapon.ID) {
	b.shots.Add(ctx, 1, metric.WithAttributes(attribute.String("weapon", b.catalog.Get(w).Name)))
}
