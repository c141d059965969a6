package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/combatbot/internal/accuracy"
	"github.com/OCAP2/combatbot/internal/arena"
	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/world"
)

func floorBrush() arena.Brush {
	return arena.Brush{Mins: geom.Vec3{-2000, -2000, -100}, Maxs: geom.Vec3{2000, 2000, 0}}
}

func player(id int, x float64, team world.Team) world.Snapshot {
	return world.Snapshot{
		ID:         id,
		Client:     true,
		Origin:     geom.Vec3{x, 0, 24},
		Health:     100,
		Team:       team,
		Alive:      true,
		OnGround:   true,
		MaxSpeed:   320,
		ViewHeight: 26,
	}
}

func duel(targetTeam world.Team) *arena.Arena {
	a := arena.New(floorBrush())
	a.Spawn(player(1, 0, world.TeamRed))
	a.Spawn(player(2, 300, targetTeam))
	return a
}

func TestReferee_InstantHit(t *testing.T) {
	a := duel(world.TeamBlue)
	ref := NewReferee(a, weapon.Default(), true, false, nil)

	_, launched := ref.Apply(Command{Bot: 1, Weapon: weapon.Railgun, Fire: true})
	assert.False(t, launched)

	target, _ := a.Entity(2)
	assert.False(t, target.Alive)
	assert.LessOrEqual(t, target.Health, 0)
	assert.Equal(t, 1, ref.HitCount(1))

	kills := ref.Kills()
	require.Len(t, kills, 1)
	assert.Equal(t, Kill{Attacker: 1, Target: 2, Weapon: weapon.Railgun}, kills[0])
	assert.Empty(t, ref.Kills(), "the feed is drained")
}

func TestReferee_ShotgunCountsPellets(t *testing.T) {
	a := duel(world.TeamBlue)
	a.Update(2, func(s *world.Snapshot) { s.Health = 500 })
	ref := NewReferee(a, weapon.Default(), true, false, nil)

	ref.Apply(Command{Bot: 1, Weapon: weapon.Shotgun, Fire: true})

	target, _ := a.Entity(2)
	assert.Equal(t, 390, target.Health)
	assert.Equal(t, 11, ref.HitCount(1))
}

func TestReferee_Miss(t *testing.T) {
	a := duel(world.TeamBlue)
	ref := NewReferee(a, weapon.Default(), true, false, nil)

	ref.Apply(Command{Bot: 1, Weapon: weapon.Railgun, Fire: true, Angles: geom.Vec3{0, 90, 0}})

	target, _ := a.Entity(2)
	assert.Equal(t, 100, target.Health)
	assert.Zero(t, ref.HitCount(1))
}

func TestReferee_SetsViewWithoutFiring(t *testing.T) {
	a := duel(world.TeamBlue)
	ref := NewReferee(a, weapon.Default(), true, false, nil)

	_, launched := ref.Apply(Command{Bot: 1, Weapon: weapon.Railgun, Angles: geom.Vec3{10, 45, 0}})

	assert.False(t, launched)
	shooter, _ := a.Entity(1)
	assert.Equal(t, geom.Vec3{10, 45, 0}, shooter.View)
	target, _ := a.Entity(2)
	assert.Equal(t, 100, target.Health)

	_, launched = ref.Apply(Command{Bot: 99, Fire: true})
	assert.False(t, launched)
}

func TestReferee_FriendlyFire(t *testing.T) {
	t.Run("off", func(t *testing.T) {
		a := duel(world.TeamRed)
		ref := NewReferee(a, weapon.Default(), true, false, nil)
		ref.Apply(Command{Bot: 1, Weapon: weapon.Railgun, Fire: true})

		target, _ := a.Entity(2)
		assert.Equal(t, 100, target.Health)
		assert.Zero(t, ref.HitCount(1))
	})

	t.Run("on", func(t *testing.T) {
		a := duel(world.TeamRed)
		a.Update(2, func(s *world.Snapshot) { s.Health = 200 })
		ref := NewReferee(a, weapon.Default(), true, true, nil)
		ref.Apply(Command{Bot: 1, Weapon: weapon.Railgun, Fire: true})

		target, _ := a.Entity(2)
		assert.Equal(t, 100, target.Health)
		assert.Equal(t, -1, ref.HitCount(1))
	})

	t.Run("free for all", func(t *testing.T) {
		a := duel(world.TeamRed)
		ref := NewReferee(a, weapon.Default(), false, false, nil)
		ref.Apply(Command{Bot: 1, Weapon: weapon.Railgun, Fire: true})

		assert.Equal(t, 1, ref.HitCount(1))
	})
}

func TestReferee_MissileExplodes(t *testing.T) {
	a := duel(world.TeamBlue)
	ref := NewReferee(a, weapon.Default(), true, false, nil)

	id, launched := ref.Apply(Command{Bot: 1, Weapon: weapon.RocketLauncher, Fire: true})
	require.True(t, launched)
	assert.Equal(t, firstMissile, id)
	assert.Equal(t, accuracy.MissileFlying, ref.Outcome(id).State)

	var out accuracy.MissileOutcome
	for range 40 {
		ref.Step(0.05)
		if out = ref.Outcome(id); out.State != accuracy.MissileFlying {
			break
		}
	}

	assert.Equal(t, accuracy.MissileExploded, out.State)
	assert.Equal(t, 2, out.Target)
	assert.InDelta(t, 285, out.Origin[geom.X], 1)
	assert.Equal(t, 1, ref.HitCount(1))

	target, _ := a.Entity(2)
	assert.False(t, target.Alive)
	_, exists := a.Entity(id)
	assert.False(t, exists)

	// Explosions are reported once.
	assert.Equal(t, accuracy.MissileGone, ref.Outcome(id).State)
}

func TestReferee_MissileSplash(t *testing.T) {
	a := arena.New(floorBrush())
	a.Spawn(player(1, 0, world.TeamRed))
	a.Spawn(player(2, 300, world.TeamBlue))
	a.Update(2, func(s *world.Snapshot) { s.Origin = geom.Vec3{300, 40, 24} })
	ref := NewReferee(a, weapon.Default(), true, false, nil)

	// Straight down into the floor, next to the target.
	a.Update(1, func(s *world.Snapshot) { s.Origin = geom.Vec3{300, -30, 24} })
	id, launched := ref.Apply(Command{Bot: 1, Weapon: weapon.RocketLauncher, Fire: true, Angles: geom.Vec3{90, 0, 0}})
	require.True(t, launched)

	var out accuracy.MissileOutcome
	for range 10 {
		ref.Step(0.05)
		if out = ref.Outcome(id); out.State != accuracy.MissileFlying {
			break
		}
	}

	require.Equal(t, accuracy.MissileExploded, out.State)
	assert.Equal(t, world.EntityNone, out.Target)
	target, _ := a.Entity(2)
	assert.Less(t, target.Health, 100)
	assert.Equal(t, 1, ref.HitCount(1))
}

func TestReferee_MissileIntoSky(t *testing.T) {
	a := arena.New(floorBrush(), arena.Brush{
		Mins:    geom.Vec3{-2000, -2000, 500},
		Maxs:    geom.Vec3{2000, 2000, 600},
		Surface: world.SurfNoImpact,
	})
	a.Spawn(player(1, 0, world.TeamRed))
	ref := NewReferee(a, weapon.Default(), true, false, nil)

	id, launched := ref.Apply(Command{Bot: 1, Weapon: weapon.RocketLauncher, Fire: true, Angles: geom.Vec3{-90, 0, 0}})
	require.True(t, launched)

	var out accuracy.MissileOutcome
	for range 20 {
		ref.Step(0.05)
		if out = ref.Outcome(id); out.State != accuracy.MissileFlying {
			break
		}
	}
	assert.Equal(t, accuracy.MissileGone, out.State)
	assert.Zero(t, ref.HitCount(1))
}

func TestReferee_Powerups(t *testing.T) {
	tests := []struct {
		name    string
		shooter world.Powerup
		target  world.Powerup
		health  int
	}{
		{"plain", 0, 0, 93},
		{"quad", world.PowerQuad, 0, 79},
		{"battlesuit", 0, world.PowerBattlesuit, 96},
		{"quad against battlesuit", world.PowerQuad, world.PowerBattlesuit, 89},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := duel(world.TeamBlue)
			a.Update(1, func(s *world.Snapshot) { s.Powerups = tt.shooter })
			a.Update(2, func(s *world.Snapshot) { s.Powerups = tt.target })
			ref := NewReferee(a, weapon.Default(), true, false, nil)
			ref.SetQuadFactor(3)

			ref.Apply(Command{Bot: 1, Weapon: weapon.Machinegun, Fire: true})

			target, _ := a.Entity(2)
			assert.Equal(t, tt.health, target.Health)
			assert.Equal(t, 1, ref.HitCount(1))
		})
	}
}

func TestReferee_BattlesuitBlocksSplash(t *testing.T) {
	a := arena.New(floorBrush())
	a.Spawn(player(1, 0, world.TeamRed))
	a.Spawn(player(2, 300, world.TeamBlue))
	a.Update(2, func(s *world.Snapshot) {
		s.Origin = geom.Vec3{300, 40, 24}
		s.Powerups = world.PowerBattlesuit
	})
	a.Update(1, func(s *world.Snapshot) { s.Origin = geom.Vec3{300, -30, 24} })
	ref := NewReferee(a, weapon.Default(), true, false, nil)

	id, launched := ref.Apply(Command{Bot: 1, Weapon: weapon.RocketLauncher, Fire: true, Angles: geom.Vec3{90, 0, 0}})
	require.True(t, launched)
	for range 10 {
		ref.Step(0.05)
		if ref.Outcome(id).State != accuracy.MissileFlying {
			break
		}
	}

	target, _ := a.Entity(2)
	assert.Equal(t, 100, target.Health)
	assert.Zero(t, ref.HitCount(1))
}
