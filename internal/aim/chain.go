package aim

import (
	"log/slog"

	"github.com/OCAP2/combatbot/internal/attack"
	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/world"
)

// goalMinDist is how close a goal may be before the bot stops looking at
// it.
const goalMinDist = 384.0

// Outcome tells the chain whether to stop.
type Outcome int

const (
	// Continue passes control to the next candidate.
	Continue Outcome = iota
	// Applied ends the selection.
	Applied
)

// Candidate is one reason to look somewhere.
type Candidate interface {
	Type() Type
	TryApply(c *Context) Outcome
}

// Chain is an ordered list of candidates. The first to apply wins.
type Chain []Candidate

// DefaultChain returns the standard priority order.
func DefaultChain() Chain {
	return Chain{
		activator{item: true},
		activator{},
		jump{},
		mapObject{},
		enemy{},
		swim{},
		faceEntity{},
		movementView{},
		aware{},
		strafeJump{},
		goal{},
		search{},
		repeat{},
	}
}

// Select runs the chain. c.Result.Weapon should hold the weapon the bot
// wants for combat; candidates may replace it.
func (ch Chain) Select(c *Context, logger *slog.Logger) Result {
	c.Result.Type = TypeRepeat
	c.Result.Attack = attack.NewState()
	c.Result.Angles = c.View.IdealNow(c.Bot).Perceived()

	for _, cand := range ch {
		if cand.TryApply(c) == Applied {
			c.Result.Type = cand.Type()
			break
		}
	}

	if logger != nil && logger.Enabled(c.Ctx, slog.LevelDebug) {
		logger.DebugContext(c.Ctx, "Aim selected",
			"type", c.Result.Type.String(),
			"weapon", int(c.Result.Weapon),
			"target", c.Result.Attack.Target,
		)
	}
	return c.Result
}

type activator struct{ item bool }

func (a activator) Type() Type { return TypeActivator }

func (a activator) TryApply(c *Context) Outcome {
	path := c.Input.MainPath
	if a.item {
		path = c.Input.ItemPath
	}
	if path.Subgoal == world.EntityNone || !path.Shoot {
		return Continue
	}
	w := c.Arsenal.Activate(c.Result.Weapon)
	if !c.aimTarget(TypeActivator, path.Subgoal, w) {
		return Continue
	}
	c.Result.Weapon = w
	return Applied
}

type jump struct{}

func (jump) Type() Type { return TypeJump }

// TryApply looks along planned jumps. Jumping works without it, but it is
// more precise.
func (jump) TryApply(c *Context) Outcome {
	if !c.Input.Flags.Has(FlagJump) {
		return Continue
	}
	c.setAngles(TypeJump, geom.VectorToAngles(c.Input.JumpDir))
	return Applied
}

type mapObject struct{}

func (mapObject) Type() Type { return TypeMapObject }

func (mapObject) TryApply(c *Context) Outcome {
	for _, t := range c.Triggers {
		if c.shootTrigger(t) {
			return Applied
		}
	}
	return Continue
}

// shootTrigger aims at t when an enemy, and no teammate, stands in its
// region and the bot does not.
func (c *Context) shootTrigger(t Trigger) bool {
	if t.contains(c.Shooter.Now.Origin) {
		return false
	}

	eye := c.Shooter.Eye()
	tr := c.Env.Trace(eye, t.Center, geom.Vec3{}, geom.Vec3{}, c.Shooter.ID, world.MaskShot)
	if tr.EndPos.DistSq(t.Center) > 48*48 {
		return false
	}
	if tr.Entity == world.EntityWorld || tr.Entity == world.EntityNone || !tr.Hit() {
		return false
	}
	object := tr.Entity

	shoot := false
	for _, id := range c.Env.Entities() {
		s, ok := c.Env.Entity(id)
		if !ok || !s.Client || !s.Alive || !t.contains(s.Origin) {
			continue
		}
		if c.TeamPlay && s.Team == c.Team {
			return false
		}
		shoot = true
	}
	if !shoot {
		return false
	}

	w := c.Arsenal.Activate(c.Result.Weapon)
	if !c.aimTarget(TypeMapObject, object, w) {
		return false
	}
	c.Result.Weapon = w
	return true
}

type enemy struct{}

func (enemy) Type() Type { return TypeEnemy }

func (enemy) TryApply(c *Context) Outcome {
	if c.aimTarget(TypeEnemy, c.Input.AimEnemy, c.Result.Weapon) {
		return Applied
	}
	if c.aimTarget(TypeEnemy, c.Input.GoalEnemy, c.Result.Weapon) {
		return Applied
	}
	return Continue
}

type swim struct{}

func (swim) Type() Type { return TypeSwim }

func (swim) TryApply(c *Context) Outcome {
	if !c.Input.Flags.Has(FlagSwimView) {
		return Continue
	}
	c.setAngles(TypeSwim, c.Input.MoveView)
	return Applied
}

type faceEntity struct{}

func (faceEntity) Type() Type { return TypeFaceEntity }

func (faceEntity) TryApply(c *Context) Outcome {
	if c.Input.FaceEntity == world.EntityNone {
		return Continue
	}
	s, ok := c.Env.Entity(c.Input.FaceEntity)
	if !ok {
		return Continue
	}
	center := geom.BoxCenter(s.Origin.Add(s.Mins), s.Origin.Add(s.Maxs))
	c.setLoc(TypeFaceEntity, s.ID, center, nil, nil)
	return Applied
}

type movementView struct{}

func (movementView) Type() Type { return TypeMovement }

func (movementView) TryApply(c *Context) Outcome {
	if !c.Input.Flags.Has(FlagMovementView) {
		return Continue
	}
	if c.Input.Flags.Has(FlagMovementWeapon) {
		c.Result.Weapon = c.Input.MoveWeapon
	}
	c.setAngles(TypeMovement, c.Input.MoveView)
	return Applied
}

type aware struct{}

func (aware) Type() Type { return TypeAware }

func (aware) TryApply(c *Context) Outcome {
	if c.Input.AwareUntil < c.Bot.CommandTime {
		return Continue
	}
	c.setLoc(TypeAware, world.EntityNone, c.Input.AwareLocation, nil, nil)
	return Applied
}

type strafeJump struct{}

func (strafeJump) Type() Type { return TypeStrafeJump }

func (strafeJump) TryApply(c *Context) Outcome {
	if !c.Input.Flags.Has(FlagStrafeJump) {
		return Continue
	}
	c.setAngles(TypeStrafeJump, c.Input.StrafeJumpAngles)
	return Applied
}

type goal struct{}

func (goal) Type() Type { return TypeGoal }

// TryApply looks toward where a distant goal comes into view along the
// route.
func (goal) TryApply(c *Context) Outcome {
	g := c.Input.Goal
	if g.Area == 0 {
		return Continue
	}
	if c.Shooter.Now.Origin.DistSq(g.Origin) < goalMinDist*goalMinDist {
		return Continue
	}
	target, ok := c.Env.PredictVisiblePosition(g.Origin, g.Area, c.Shooter.Now.Origin)
	if !ok {
		return Continue
	}
	target[geom.Z] += c.Shooter.ViewHeight
	c.setLoc(TypeGoal, g.Entity, target, nil, nil)
	return Applied
}

type repeat struct{}

func (repeat) Type() Type { return TypeRepeat }

// TryApply keeps the current ideal view.
func (repeat) TryApply(*Context) Outcome {
	return Applied
}
