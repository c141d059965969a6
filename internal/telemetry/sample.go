package telemetry

import (
	"time"

	"github.com/OCAP2/combatbot/internal/accuracy"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// AccuracySample is the running accuracy of one bot with one weapon in one
// combat zone.
type AccuracySample struct {
	Bot    string
	Weapon string
	Zone   string
	Record accuracy.Record
	Time   time.Time
}

// Point converts the sample to an "accuracy" measurement.
func (s AccuracySample) Point() *influxdb2_write.Point {
	return influxdb2_write.NewPoint("accuracy",
		map[string]string{
			"bot":    s.Bot,
			"weapon": s.Weapon,
			"zone":   s.Zone,
		},
		map[string]any{
			"shots":         s.Record.Shots,
			"time":          s.Record.Time,
			"direct_hits":   s.Record.Direct.Hits,
			"direct_damage": s.Record.Direct.Damage,
			"splash_hits":   s.Record.Splash.Hits,
			"splash_damage": s.Record.Splash.Damage,
			"hit_rate":      s.Record.HitRate(),
			"attack_ratio":  s.Record.AttackRatio(),
		},
		s.Time,
	)
}

// DecisionSample is one aim decision: what the bot looked at, with which
// weapon, and whether it fired.
type DecisionSample struct {
	Bot    string
	Aim    string
	Weapon string
	Target int
	Fire   bool
	Time   time.Time
}

// Point converts the sample to a "decision" measurement.
func (s DecisionSample) Point() *influxdb2_write.Point {
	return influxdb2_write.NewPoint("decision",
		map[string]string{
			"bot":    s.Bot,
			"aim":    s.Aim,
			"weapon": s.Weapon,
		},
		map[string]any{
			"target": s.Target,
			"fire":   s.Fire,
		},
		s.Time,
	)
}
