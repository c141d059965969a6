// Package selector picks the weapon a bot fights with. Each candidate is
// scored by the damage per second the bot's own accuracy ledger says it
// can deliver to the current target in the current combat zone.
package selector

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/combatbot/internal/accuracy"
	"github.com/OCAP2/combatbot/internal/motion"
	"github.com/OCAP2/combatbot/internal/weapon"
	"github.com/OCAP2/combatbot/internal/zone"
)

// hysteresis favors the held weapon over equally good ones.
const hysteresis = 1.1

// Ledger is the accuracy history a selection is based on.
type Ledger interface {
	Read(id weapon.ID, z *zone.Zone) accuracy.Record
}

// Request describes the bot when a weapon is picked.
type Request struct {
	Held weapon.ID
	// Changing is set while the held weapon is lowered or raised.
	Changing bool
	// WeaponTime is how many seconds remain before the held weapon can
	// act again.
	WeaponTime float64
	Zone       zone.Zone
	Target     Target
	// Skill is the bot's overall skill level, 1 to 5.
	Skill float64

	// QuadFactor multiplies damage while Quad is active.
	Quad       bool
	QuadFactor float64
	Haste      bool

	// Forced overrides the choice when it names a weapon.
	Forced weapon.ID
}

// Choice is the outcome of a selection.
type Choice struct {
	Weapon weapon.ID
	// Rate is the estimated damage per second, hysteresis included.
	Rate float64
	// HeldRate is the estimate for the held weapon before hysteresis.
	HeldRate float64
}

// Selector scores weapons against a catalog.
type Selector struct {
	catalog  *weapon.Catalog
	logger   *slog.Logger
	switches metric.Int64Counter
}

// New creates a selector for the weapons in catalog.
func New(catalog *weapon.Catalog, logger *slog.Logger) (*Selector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switches, err := meter().Int64Counter(
		"selector.weapon.switches",
		metric.WithDescription("Weapon selections that replace the held weapon"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create switches counter: %w", err)
	}

	return &Selector{
		catalog:  catalog,
		logger:   logger,
		switches: switches,
	}, nil
}

// Select returns the weapon with the best expected damage rate against
// the requested target.
func (s *Selector) Select(ctx context.Context, ledger Ledger, arsenal *Arsenal, req Request) Choice {
	if req.Changing {
		return Choice{Weapon: req.Held}
	}
	if req.Forced != weapon.None && req.Forced.Valid() {
		return Choice{Weapon: req.Forced}
	}

	health := req.Target.EstimateHealth(req.Skill)
	blast := req.Target.Blast()

	damageFactor := 1.0
	if req.Quad && req.QuadFactor > 0 {
		damageFactor *= req.QuadFactor
	}
	reloadFactor := 1.0
	if req.Haste {
		reloadFactor /= accuracy.HasteRate
	}

	best := Choice{Weapon: req.Held}
	for id := weapon.None + 1; id < weapon.NumWeapons; id++ {
		if !arsenal.Owned[id] {
			continue
		}
		ammo := arsenal.Ammo[id]
		if ammo == 0 {
			continue
		}

		p := s.catalog.Get(id)
		if !p.InRange(req.Zone.Dist) {
			// Anything with ammo beats nothing.
			if best.Rate <= 0 {
				best.Weapon = id
			}
			continue
		}

		z := req.Zone
		rate, ok := damageRate(p, ledger.Read(id, &z), ammo, id != req.Held, req.WeaponTime, health, blast, damageFactor, reloadFactor)
		if !ok {
			continue
		}
		if id == req.Held {
			best.HeldRate = rate
			rate *= hysteresis
		}
		if rate < best.Rate {
			continue
		}
		best.Weapon, best.Rate = id, rate
	}

	if best.Weapon != req.Held {
		s.switches.Add(ctx, 1, metric.WithAttributes(attribute.String("weapon", s.catalog.Get(best.Weapon).Name)))
		if s.logger.Enabled(ctx, slog.LevelDebug) {
			s.logger.DebugContext(ctx, "Weapon selected",
				"weapon", s.catalog.Get(best.Weapon).Name,
				"rate", best.Rate,
				"held", s.catalog.Get(req.Held).Name,
				"heldRate", best.HeldRate,
			)
		}
	}
	return best
}

// damageRate estimates the damage per second p deals given the bot's
// record in the target zone.
func damageRate(p *weapon.Profile, acc accuracy.Record, ammo int, switching bool, weaponTime, health float64, blast bool, damageFactor, reloadFactor float64) (float64, bool) {
	if acc.Shots <= 0 || p.Shots <= 0 {
		return 0, false
	}
	attackRate := acc.AttackRatio()
	if attackRate <= 0 {
		return 0, false
	}

	// The command needs at least one server frame to be processed.
	t := math.Max(0, weaponTime) + motion.ServerFrame
	if switching {
		t += weapon.SwitchTime
	}

	hits := acc.Direct.Hits
	damage := acc.Direct.Damage
	if blast {
		hits += acc.Splash.Hits
		damage += acc.Splash.Damage
	}
	if hits <= 0 || damage <= 0 {
		return 0, false
	}

	perHit := damage * damageFactor / hits
	required := math.Ceil(health / perHit)
	hitRate := hits / acc.Shots
	shots := float64(p.Shots)

	expected := required
	if ammo > 0 {
		expected = math.Ceil(float64(ammo) * shots * hitRate)
	}

	reload := p.Reload * reloadFactor
	if required <= expected {
		fires := math.Ceil(math.Ceil(required/hitRate) / shots)
		// The last reload is never waited on.
		t += reload*fires/attackRate - reload
		expected = required
	} else {
		t += reload * float64(ammo) / attackRate
		t += weapon.SwitchTime
	}

	total := math.Min(expected*perHit, health)
	return total / t, true
}

// DamageRate is the best damage per second any of ids has dealt in z.
// Splash damage only counts when splash is set.
func DamageRate(ledger Ledger, catalog *weapon.Catalog, ids []weapon.ID, z zone.Zone, splash bool) float64 {
	var best float64
	for _, id := range ids {
		if !catalog.Get(id).InRange(z.Dist) {
			continue
		}
		acc := ledger.Read(id, &z)
		if acc.Time <= 0 {
			continue
		}
		damage := acc.Direct.Damage
		if splash {
			damage += acc.Splash.Damage
		}
		best = math.Max(best, damage/acc.Time)
	}
	return best
}
