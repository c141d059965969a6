package selector

// Target is what the bot knows about the health of whatever it attacks.
type Target struct {
	// Present is false when the bot has no enemy.
	Present bool
	// Client targets are players. Other targets report exact health.
	Client bool
	// Health is the real health and Heard the estimate from pain sounds.
	Health int
	Heard  int
	// Battlesuit halves incoming damage and blocks splash.
	Battlesuit bool
}

// EstimateHealth estimates how much damage the target can still take. Bots at
// skill 1 or below assume a full health player. Skill 4 and up read the
// real value, as they do for any non-player target.
func (t Target) EstimateHealth(skill float64) float64 {
	if !t.Present || skill <= 1 {
		return 125
	}

	health := t.Heard
	if skill >= 4 || !t.Client {
		health = t.Health
	}
	if t.Battlesuit {
		health *= 2
	}
	if health <= 0 {
		health = 1
	}
	return float64(health)
}

// Blast reports whether the target takes splash damage.
func (t Target) Blast() bool {
	return !t.Present || !t.Battlesuit
}
