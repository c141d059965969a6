package view

// Settings are the tunables of the view simulator.
type Settings struct {
	// Ideal error is the fraction of the reference displacement a bot may
	// misjudge when choosing where to look.
	IdealErrorMin float64 `json:"idealErrorMin" mapstructure:"idealErrorMin"`
	IdealErrorMax float64 `json:"idealErrorMax" mapstructure:"idealErrorMax"`
	// IdealCorrectFactor scales the reaction time between corrections of
	// the ideal view.
	IdealCorrectFactor float64 `json:"idealCorrectFactor" mapstructure:"idealCorrectFactor"`

	// Actual accel bounds the angular acceleration in degrees per second
	// squared, interpolated by aim skill.
	ActualAccelMin float64 `json:"actualAccelMin" mapstructure:"actualAccelMin"`
	ActualAccelMax float64 `json:"actualAccelMax" mapstructure:"actualAccelMax"`
	ActualErrorMin float64 `json:"actualErrorMin" mapstructure:"actualErrorMin"`
	ActualErrorMax float64 `json:"actualErrorMax" mapstructure:"actualErrorMax"`
	// ActualCorrectFactor scales the reaction time between corrections of
	// the actual view.
	ActualCorrectFactor float64 `json:"actualCorrectFactor" mapstructure:"actualCorrectFactor"`

	// ChangeReactTime is how soon after an update a change of motion can
	// be noticed.
	ChangeReactTime float64 `json:"changeReactTime" mapstructure:"changeReactTime"`
}

// DefaultSettings returns the stock tuning.
func DefaultSettings() Settings {
	return Settings{
		IdealErrorMin:       0,
		IdealErrorMax:       0.5,
		IdealCorrectFactor:  3,
		ActualAccelMin:      800,
		ActualAccelMax:      1500,
		ActualErrorMin:      0,
		ActualErrorMax:      1,
		ActualCorrectFactor: 1,
		ChangeReactTime:     0.2,
	}
}
