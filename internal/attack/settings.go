package attack

// Settings are the attack tunables. The zero value is not useful; start
// from DefaultSettings.
type Settings struct {
	// LagMin is the least time the bot assumes passes before its shot is
	// processed.
	LagMin float64 `json:"lagMin" mapstructure:"lagMin"`

	CarelessFactor   float64 `json:"carelessFactor" mapstructure:"carelessFactor"`
	CarefulFactorMin float64 `json:"carefulFactorMin" mapstructure:"carefulFactorMin"`
	CarefulFactorMax float64 `json:"carefulFactorMax" mapstructure:"carefulFactorMax"`
	// ContinueFactor scales the reaction time careless weapons keep firing
	// after the shot stops lining up.
	ContinueFactor float64 `json:"continueFactor" mapstructure:"continueFactor"`

	// Lead times above LeadTimeFull are damped by LeadTimeScale for targets
	// that control their own movement.
	LeadTimeFull  float64 `json:"leadTimeFull" mapstructure:"leadTimeFull"`
	LeadTimeScale float64 `json:"leadTimeScale" mapstructure:"leadTimeScale"`

	// Fully visible players closer than FocusHeadDist are aimed at the
	// head, and beyond FocusBodyDist at the visible body center.
	FocusHeadDist float64 `json:"focusHeadDist" mapstructure:"focusHeadDist"`
	FocusBodyDist float64 `json:"focusBodyDist" mapstructure:"focusBodyDist"`

	// Diagnose re-runs fire decisions with full information and reports
	// the ones that would have changed.
	Diagnose bool `json:"diagnose" mapstructure:"diagnose"`
}

// DefaultSettings returns the stock tuning.
func DefaultSettings() Settings {
	return Settings{
		LagMin:           0.05,
		CarelessFactor:   5.0,
		CarefulFactorMin: 1.0,
		CarefulFactorMax: 2.0,
		ContinueFactor:   2.5,
		LeadTimeFull:     0.5,
		LeadTimeScale:    0.2,
		FocusHeadDist:    256,
		FocusBodyDist:    512,
	}
}
