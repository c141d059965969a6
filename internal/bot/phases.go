package bot

import (
	"context"
	"fmt"
	"math"

	"github.com/OCAP2/combatbot/internal/accuracy"
	"github.com/OCAP2/combatbot/internal/aim"
	"github.com/OCAP2/combatbot/internal/attack"
	"github.com/OCAP2/combatbot/internal/dispatcher"
	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/motion"
	"github.com/OCAP2/combatbot/internal/selector"
	"github.com/OCAP2/combatbot/internal/view"
	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/world"
	"github.com/OCAP2/combatbot/internal/zone"
)

// Frame phases, in the order Think runs them.
const (
	PhaseSelf      = "self"
	PhaseAccuracy  = "accuracy"
	PhaseScan      = "scan"
	PhaseAwareness = "awareness"
	PhaseAim       = "aim"
	PhaseView      = "view"
	PhaseCommand   = "command"
)

// frame is the scratch state of one pass through the phases.
type frame struct {
	ctx          context.Context
	number       int64
	serverTime   float64
	serverMillis int64
	commandTime  float64

	self     world.Snapshot
	dead     bool
	teamPlay bool
	ff       bool
	triggers []aim.Trigger

	visible []int
	input   aim.Input
	choice  selector.Choice
	aim     aim.Result
	angles  geom.Vec3
	fire    bool
	cmd     Command
}

func (b *Bot) newFrame(ctx context.Context, number int64) *frame {
	serverTime, millis := b.deps.World.ServerTime()
	ms := b.deps.Mission.Settings()
	fr := &frame{
		ctx:          ctx,
		number:       number,
		serverTime:   serverTime,
		serverMillis: millis,
		commandTime:  serverTime + motion.ServerFrame,
		teamPlay:     ms.GameType.TeamPlay(),
		ff:           ms.FriendlyFire,
		triggers:     ms.Triggers,
		input:        aim.NewInput(),
	}
	b.frame = fr
	return fr
}

func (b *Bot) registerPhases() error {
	d, err := dispatcher.New(b.deps.DispatchLogger)
	if err != nil {
		return fmt.Errorf("failed to create phase dispatcher: %w", err)
	}

	handlers := map[string]func(*frame) (any, error){
		PhaseSelf:      b.phaseSelf,
		PhaseAccuracy:  b.phaseAccuracy,
		PhaseScan:      b.phaseScan,
		PhaseAwareness: b.phaseAwareness,
		PhaseAim:       b.phaseAim,
		PhaseView:      b.phaseView,
		PhaseCommand:   b.phaseCommand,
	}
	for name, h := range handlers {
		d.Register(name, framePhase(h), dispatcher.Logged())
	}

	b.phases = d
	if b.think, err = d.Pipeline(PhaseSelf, PhaseAccuracy, PhaseScan, PhaseAwareness, PhaseAim, PhaseView, PhaseCommand); err != nil {
		return err
	}
	if b.aimOnly, err = d.Pipeline(PhaseSelf, PhaseScan, PhaseAwareness, PhaseAim, PhaseView); err != nil {
		return err
	}
	if b.situation, err = d.Pipeline(PhaseSelf, PhaseScan, PhaseAwareness); err != nil {
		return err
	}
	return nil
}

func framePhase(h func(*frame) (any, error)) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		fr, ok := e.Payload.(*frame)
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T", e.Payload)
		}
		return h(fr)
	}
}

// phaseSelf refreshes the bot's own motion and shooter state.
func (b *Bot) phaseSelf(fr *frame) (any, error) {
	self, ok := b.deps.World.Entity(b.entity)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntity, b.entity)
	}
	fr.self = self
	fr.dead = !self.Alive || self.Spectator

	now, ok := b.deps.Predictor.Tracker().Now(b.entity)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEntity, b.entity)
	}

	sh := &b.shooter
	sh.Now = now
	sh.Future = b.deps.Predictor.Future(now, sh.Future, fr.commandTime)
	sh.ViewHeight = self.ViewHeight
	if sh.ViewHeight == 0 {
		sh.ViewHeight = motion.ViewHeight
	}
	sh.CommandTime = fr.commandTime
	sh.ReactTime = b.react
	sh.Ammo = b.arsenal.Ammo[sh.Held]

	if self.TeleportBit != b.teleportBit {
		b.teleportBit = self.TeleportBit
		sh.TeleportTime = fr.serverTime
	}

	if fr.dead {
		b.attack.Clear()
		b.fire.Reset()
		clear(b.sighted)
	}
	return nil, nil
}

// phaseAccuracy books the previous frame's fire and missile outcomes.
func (b *Bot) phaseAccuracy(fr *frame) (any, error) {
	remaining := math.Max(b.reloadUntil, b.switchUntil) - fr.serverTime
	weaponTime := int(math.Round(math.Max(0, remaining) * 1000))

	b.ledger.Update(accuracy.Frame{
		ServerTime:    fr.serverTime,
		ServerMillis:  fr.serverMillis,
		CommandMillis: fr.serverMillis,
		WeaponTime:    weaponTime,
		Weapon:        b.shooter.Held,
		Attacking:     b.lastFire,
		Idle:          fr.dead || fr.serverTime < b.switchUntil || !b.attack.HasTarget(),
		HitCount:      b.deps.Scoreboard.HitCount(b.entity),
		Haste:         fr.self.Powerups.Has(world.PowerHaste),
		Zone:          b.lastZone,
	}, b.missiles, b.judge, fr.ff)
	return nil, nil
}

// phaseScan records which enemies are visible and when they were first
// seen. Enemies that drop out of sight must be reacquired.
func (b *Bot) phaseScan(fr *frame) (any, error) {
	if fr.dead {
		return nil, nil
	}
	eye := b.shooter.EyeNow()
	for _, id := range b.deps.World.Entities() {
		s, ok := b.deps.World.Entity(id)
		if !ok || !b.isEnemy(fr, s) || !s.Alive {
			delete(b.sighted, id)
			continue
		}
		if !attack.Visible(b.deps.World, b.entity, eye, s) {
			delete(b.sighted, id)
			continue
		}
		if _, seen := b.sighted[id]; !seen {
			b.sighted[id] = fr.serverTime
		}
		b.lastSeen[id] = sighting{time: fr.serverTime, origin: s.Origin, area: s.Area}
		fr.visible = append(fr.visible, id)
	}
	return nil, nil
}

// phaseAwareness picks the enemy to aim at: the nearest visible one, or
// else the one most recently lost from sight.
func (b *Bot) phaseAwareness(fr *frame) (any, error) {
	fr.input.Sighted = b.sighted
	if fr.dead {
		return nil, nil
	}

	eye := b.shooter.EyeNow()
	best, bestDist := world.EntityNone, math.Inf(1)
	for _, id := range fr.visible {
		s, _ := b.deps.World.Entity(id)
		if d := eye.DistSq(s.Origin); d < bestDist {
			best, bestDist = id, d
		}
	}
	if best != world.EntityNone {
		fr.input.AimEnemy = best
		return nil, nil
	}

	recent, last := world.EntityNone, sighting{time: math.Inf(-1)}
	for id, seen := range b.lastSeen {
		if fr.serverTime-seen.time > awareMemory {
			delete(b.lastSeen, id)
			continue
		}
		s, ok := b.deps.World.Entity(id)
		if !ok || !s.Alive {
			delete(b.lastSeen, id)
			continue
		}
		if seen.time > last.time || (seen.time == last.time && id < recent) {
			recent, last = id, seen
		}
	}
	if recent == world.EntityNone {
		return nil, nil
	}
	fr.input.GoalEnemy = recent
	fr.input.Goal = aim.Goal{Entity: recent, Area: last.area, Origin: last.origin}
	fr.input.AwareLocation = last.origin
	fr.input.AwareUntil = last.time + awareMemory
	return nil, nil
}

// phaseAim picks a weapon and runs the aim chain.
func (b *Bot) phaseAim(fr *frame) (any, error) {
	if fr.dead {
		fr.aim = aim.Result{Type: aim.TypeNone, Weapon: b.shooter.Held, Attack: attack.NewState()}
		return nil, nil
	}

	fr.choice = b.chooseWeapon(fr)
	c := &aim.Context{
		Ctx:      fr.ctx,
		Env:      b.deps.World,
		Attack:   b.deps.Attack,
		View:     b.view,
		Memory:   b.memory,
		Shooter:  &b.shooter,
		Arsenal:  &b.arsenal,
		RNG:      b.rng,
		Bot:      b.viewBot(fr, fr.choice.Weapon),
		Team:     fr.self.Team,
		TeamPlay: fr.teamPlay,
		Triggers: fr.triggers,
		Input:    fr.input,
		Result:   aim.Result{Weapon: fr.choice.Weapon},
	}
	fr.aim = aim.DefaultChain().Select(c, b.logger)
	b.attack = fr.aim.Attack
	return nil, nil
}

// phaseView moves the view for the next command and decides whether the
// trigger is held.
func (b *Bot) phaseView(fr *frame) (any, error) {
	if fr.dead {
		fr.angles = b.view.Now().Real()
		return nil, nil
	}

	vb := b.viewBot(fr, fr.aim.Weapon)
	fr.angles = b.view.Process(vb)

	if b.attack.HasTarget() {
		b.deps.Attack.FireUpdate(fr.ctx, &b.shooter, &b.attack, &b.fire, b.view.Now().Perceived(), fr.angles)
	} else {
		b.fire.Choice = false
	}
	fr.fire = b.deps.Attack.FireWeapon(&b.shooter, &b.fire)
	return nil, nil
}

// phaseCommand switches weapons, books the shot and emits the command.
func (b *Bot) phaseCommand(fr *frame) (any, error) {
	sh := &b.shooter
	fire := fr.fire && !fr.dead

	if w := fr.aim.Weapon; !fr.dead && w != weapon.None && w != sh.Held && b.arsenal.Has(w, 1) {
		b.switchUntil = fr.commandTime + weapon.SwitchTime
		sh.Held = w
		sh.Ammo = b.arsenal.Ammo[w]
		b.fire.Reset()
		fire = false
	}

	ready := fr.commandTime >= math.Max(b.reloadUntil, b.switchUntil)
	if fire && ready && b.arsenal.Has(sh.Held, 1) {
		p := b.catalog.Get(sh.Held)
		rate := b.ledger.ReloadRate()
		if rate <= 0 {
			rate = 1
		}
		b.reloadUntil = fr.commandTime + p.Reload/rate
		if b.arsenal.Ammo[sh.Held] > 0 {
			b.arsenal.Ammo[sh.Held]--
		}
		sh.Ammo = b.arsenal.Ammo[sh.Held]
		b.countShot(fr.ctx, sh.Held)
	} else {
		fire = false
	}

	if b.attack.HasTarget() {
		b.lastZone = zone.FromOffset(b.attack.ShotLoc.Sub(sh.Eye()))
	}
	b.lastFire = fire

	fr.cmd = Command{
		Bot:    b.entity,
		Time:   fr.commandTime,
		Angles: fr.angles,
		Weapon: sh.Held,
		Fire:   fire,
		Aim:    fr.aim.Type,
		Target: b.attack.Target,
	}
	return fr.cmd, nil
}

func (b *Bot) chooseWeapon(fr *frame) selector.Choice {
	req := b.weaponRequest(fr)
	return b.deps.Weapons.Select(fr.ctx, b.ledger, &b.arsenal, req)
}

// weaponRequest describes the fight for the weapon selector: the enemy's
// zone and health and the powerups on both sides.
func (b *Bot) weaponRequest(fr *frame) selector.Request {
	enemy := fr.input.AimEnemy
	if enemy == world.EntityNone {
		enemy = fr.input.GoalEnemy
	}

	req := selector.Request{
		Held:       b.shooter.Held,
		Changing:   fr.serverTime < b.switchUntil,
		WeaponTime: math.Max(0, b.reloadUntil-fr.serverTime),
		Zone:       restZone,
		Skill:      b.profile.Skill,
		Quad:       fr.self.Powerups.Has(world.PowerQuad),
		QuadFactor: b.deps.Mission.Settings().QuadFactor,
		Haste:      fr.self.Powerups.Has(world.PowerHaste),
	}
	if s, ok := b.deps.World.Entity(enemy); ok && enemy != world.EntityNone {
		req.Zone = zone.FromOffset(s.Origin.Sub(b.shooter.EyeNow()))
		req.Target = selector.Target{
			Present:    true,
			Client:     s.Client,
			Health:     s.Health,
			Heard:      s.Health,
			Battlesuit: s.Powerups.Has(world.PowerBattlesuit),
		}
	}
	return req
}

func (b *Bot) viewBot(fr *frame, w weapon.ID) view.Bot {
	w = w.Clamp()
	return view.Bot{
		ServerTime:  fr.serverTime,
		CommandTime: fr.commandTime,
		ReactTime:   b.react,
		Accuracy:    b.ratings.Accuracy[w],
		Skill:       b.ratings.Skill[w],
	}
}

// isEnemy reports whether s is a living opponent of the bot.
func (b *Bot) isEnemy(fr *frame, s world.Snapshot) bool {
	if !s.Client || s.ID == b.entity || s.Spectator || s.Team == world.TeamSpectator {
		return false
	}
	return !fr.teamPlay || s.Team != fr.self.Team
}

func (b *Bot) isTeammate(fr *frame, s world.Snapshot) bool {
	return fr.teamPlay && s.Client && s.ID != b.entity && s.Team == fr.self.Team
}

// judge answers the ledger's questions about missiles the bot fired.
type judge struct {
	bot *Bot
}

func (j *judge) Outcome(missile int) accuracy.MissileOutcome {
	return j.bot.deps.Scoreboard.Outcome(missile)
}

func (j *judge) Relation(entity int) (enemy, team bool) {
	s, ok := j.bot.deps.World.Entity(entity)
	if !ok {
		return false, false
	}
	fr := j.bot.frame
	return j.bot.isEnemy(fr, s), j.bot.isTeammate(fr, s)
}

func (j *judge) Blast(p *weapon.Profile, center geom.Vec3, ignore int) weapon.BlastResult {
	b := j.bot
	fr := b.frame
	var targets []weapon.BlastTarget
	for _, id := range b.deps.World.Entities() {
		s, ok := b.deps.World.Entity(id)
		if !ok || !s.Client || !s.Alive {
			continue
		}
		targets = append(targets, weapon.BlastTarget{
			ID:     id,
			AbsMin: s.Origin.Add(s.Mins),
			AbsMax: s.Origin.Add(s.Maxs),
			Enemy:  b.isEnemy(fr, s),
			Team:   b.isTeammate(fr, s),
			Client: true,
			Self:   id == b.entity,
		})
	}
	return p.Survey(center, targets, ignore, fr.ff)
}
