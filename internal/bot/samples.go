package bot

import (
	"time"

	"github.com/OCAP2/combatbot/internal/accuracy"
	"github.com/OCAP2/combatbot/internal/telemetry"
	"github.com/OCAP2/combatbot/internal/zone"
)

const telemetryCommand = telemetry.CommandSample

// zoneTag names the heaviest center of z, such as "far/level".
func zoneTag(z zone.Zone) string {
	best := -1
	for i, e := range z.Centers() {
		if best < 0 || e.Weight > z.Entries[best].Weight {
			best = i
		}
	}
	if best < 0 {
		return "none"
	}
	c := z.Entries[best].Center
	return zone.DistName(c.Dist) + "/" + zone.PitchName(c.Pitch)
}

func accuracySample(bot, weaponName string, z zone.Zone, rec accuracy.Record, at time.Time) telemetry.AccuracySample {
	return telemetry.AccuracySample{
		Bot:    bot,
		Weapon: weaponName,
		Zone:   zoneTag(z),
		Record: rec,
		Time:   at,
	}
}

func decisionSample(bot string, fr *frame, weaponName string, at time.Time) telemetry.DecisionSample {
	return telemetry.DecisionSample{
		Bot:    bot,
		Aim:    fr.aim.Type.String(),
		Weapon: weaponName,
		Target: fr.aim.Attack.Target,
		Fire:   fr.cmd.Fire,
		Time:   at,
	}
}
