package bot

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/weapon"
)

// ErrBadProfile wraps every profile validation failure.
var ErrBadProfile = errors.New("invalid bot profile")

// Skill levels.
const (
	MinSkill = 1.0
	MaxSkill = 5.0
)

// Aim ratings are bounded to this range before low skill scaling.
const (
	minRating = 0.1
	maxRating = 1.0
)

// AimRating is how accurately and how skillfully a bot aims one weapon,
// both from 0 to 1.
type AimRating struct {
	Accuracy float64 `yaml:"accuracy"`
	Skill    float64 `yaml:"skill"`
}

// Profile is the personality of one bot.
type Profile struct {
	Name string `yaml:"name"`
	// Skill is the overall level, 1 to 5.
	Skill float64 `yaml:"skill"`
	// Reaction is 0 for the fastest reaction time and 1 for the slowest.
	Reaction float64 `yaml:"reaction"`
	// Aim applies to every weapon without its own entry in Weapons. A zero
	// rating is derived from Skill.
	Aim     AimRating            `yaml:"aim"`
	Weapons map[string]AimRating `yaml:"weapons"`
}

type profileFile struct {
	Bots []Profile `yaml:"bots"`
}

// Ratings are the resolved aim ratings per weapon.
type Ratings struct {
	Accuracy [weapon.NumWeapons]float64
	Skill    [weapon.NumWeapons]float64
}

// DefaultProfile is a bot with nothing but a skill level.
func DefaultProfile(name string, skill float64) Profile {
	return Profile{Name: name, Skill: skill, Reaction: 0.5}
}

// LoadProfiles reads a YAML file with a top level "bots" list.
func LoadProfiles(path string) (map[string]Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	return ParseProfiles(raw)
}

// ParseProfiles decodes and validates profiles, keyed by name.
func ParseProfiles(raw []byte) (map[string]Profile, error) {
	var f profileFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}

	out := make(map[string]Profile, len(f.Bots))
	for _, p := range f.Bots {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: profile without a name", ErrBadProfile)
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate profile %q", ErrBadProfile, p.Name)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out[p.Name] = p
	}
	return out, nil
}

// Validate checks the ranges of every value.
func (p Profile) Validate() error {
	if p.Skill < MinSkill || p.Skill > MaxSkill {
		return fmt.Errorf("%w: %s: skill %.2f outside %.0f to %.0f", ErrBadProfile, p.Name, p.Skill, MinSkill, MaxSkill)
	}
	if p.Reaction < 0 || p.Reaction > 1 {
		return fmt.Errorf("%w: %s: reaction %.2f outside 0 to 1", ErrBadProfile, p.Name, p.Reaction)
	}
	return nil
}

// ReactTime maps the reaction characteristic onto [lo, hi] seconds.
func (p Profile) ReactTime(lo, hi float64) float64 {
	return geom.Interpolate(lo, hi, mgl64.Clamp(p.Reaction, 0, 1))
}

// DefaultRating is the aim rating of a typical bot at skill. Skill 3 and
// up sit mid range of what bots at that level are given; lower levels
// are scaled down from skill 3 by Ratings.
func DefaultRating(skill float64) AimRating {
	var r float64
	switch {
	case skill >= 5:
		r = 0.875
	case skill >= 4:
		r = 0.65
	default:
		r = 0.425
	}
	return AimRating{Accuracy: r, Skill: r}
}

// Ratings resolves the aim rating of every weapon. Weapon names are
// looked up in c, aliases included.
func (p Profile) Ratings(c *weapon.Catalog) (Ratings, error) {
	base := p.Aim
	if base.Accuracy == 0 && base.Skill == 0 {
		base = DefaultRating(p.Skill)
	}

	per := make(map[weapon.ID]AimRating, len(p.Weapons))
	for name, r := range p.Weapons {
		id, err := c.Lookup(name)
		if err != nil {
			return Ratings{}, fmt.Errorf("%w: %s: %w", ErrBadProfile, p.Name, err)
		}
		per[id] = r
	}

	// Skill 1 to 3 bots share characteristics, so the lowest levels are
	// scaled down explicitly.
	scale := 1.0
	switch {
	case p.Skill <= 1:
		scale = 0.3
	case p.Skill <= 2:
		scale = 0.6
	}

	var out Ratings
	for id := weapon.None; id < weapon.NumWeapons; id++ {
		r, ok := per[id]
		if !ok {
			r = base
		}
		out.Accuracy[id] = mgl64.Clamp(r.Accuracy, minRating, maxRating) * scale
		out.Skill[id] = mgl64.Clamp(r.Skill, minRating, maxRating) * scale
	}
	return out, nil
}
