package weapon

import "github.com/OCAP2/combatbot/internal/geom"

// DamageGroup summarizes the blast damage dealt to one group of entities.
type DamageGroup struct {
	Hits  int
	Total float64
	Max   float64
}

func (g *DamageGroup) add(damage float64) {
	g.Hits++
	g.Total += damage
	if g.Max < damage {
		g.Max = damage
	}
}

// BlastResult splits blast damage between enemies, teammates and both.
type BlastResult struct {
	Enemy DamageGroup
	Team  DamageGroup
	All   DamageGroup
}

// BlastTarget is an entity near a detonation, as the surveying bot sees it.
type BlastTarget struct {
	ID     int
	AbsMin geom.Vec3
	AbsMax geom.Vec3
	Enemy  bool
	Team   bool
	Client bool
	Self   bool
}

// Survey estimates the damage a detonation of p at center deals to each
// target, skipping the entity ignore. Teammates only count when friendly
// fire is on, and never the shooter itself. Neutral entities never count.
func (p *Profile) Survey(center geom.Vec3, targets []BlastTarget, ignore int, friendlyFire bool) BlastResult {
	var out BlastResult
	if p.Radius <= 0 {
		return out
	}

	reach := geom.Vec3{p.Radius, p.Radius, p.Radius}
	mins, maxs := center.Sub(reach), center.Add(reach)

	for _, t := range targets {
		if t.ID == ignore || !geom.BoxesOverlap(mins, maxs, t.AbsMin, t.AbsMax) {
			continue
		}

		var group *DamageGroup
		switch {
		case t.Enemy:
			group = &out.Enemy
		case friendlyFire && t.Client && t.Team && !t.Self:
			group = &out.Team
		default:
			continue
		}

		damage := p.Blast(geom.PointBoundDistance(center, t.AbsMin, t.AbsMax))
		group.add(damage)
		out.All.add(damage)
	}
	return out
}
