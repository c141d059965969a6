package selector

import "github.com/OCAP2/combatbot/internal/weapon"

// Unlimited is the ammo count of weapons that never run dry.
const Unlimited = -1

// Arsenal is what a bot is carrying.
type Arsenal struct {
	Owned [weapon.NumWeapons]bool
	// Ammo is the remaining ammo per weapon, or Unlimited.
	Ammo [weapon.NumWeapons]int
}

// Give adds a weapon with the given ammo.
func (a *Arsenal) Give(id weapon.ID, ammo int) {
	if !id.Valid() || id == weapon.None {
		return
	}
	a.Owned[id] = true
	a.Ammo[id] = ammo
}

// Has reports whether the bot owns id with at least ammo rounds.
func (a *Arsenal) Has(id weapon.ID, ammo int) bool {
	if !id.Valid() || !a.Owned[id] {
		return false
	}
	return a.Ammo[id] >= ammo || a.Ammo[id] < 0
}

// Usable lists the owned weapons that still have ammo.
func (a *Arsenal) Usable() []weapon.ID {
	var out []weapon.ID
	for id := weapon.None + 1; id < weapon.NumWeapons; id++ {
		if a.Has(id, 1) {
			out = append(out, id)
		}
	}
	return out
}

func (a *Arsenal) first(ids ...weapon.ID) weapon.ID {
	for _, id := range ids {
		if a.Has(id, 1) {
			return id
		}
	}
	return weapon.None
}

// MineDisarm picks a weapon able to destroy proximity mines, or
// weapon.None.
func (a *Arsenal) MineDisarm() weapon.ID {
	return a.first(weapon.Plasmagun, weapon.RocketLauncher, weapon.BFG)
}

// Activate picks a weapon for shooting a button, falling back to held.
func (a *Arsenal) Activate(held weapon.ID) weapon.ID {
	id := a.first(
		weapon.Machinegun,
		weapon.Shotgun,
		weapon.Plasmagun,
		weapon.Lightning,
		weapon.Railgun,
		weapon.RocketLauncher,
		weapon.BFG,
	)
	if id == weapon.None {
		return held
	}
	return id
}
