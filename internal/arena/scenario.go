package arena

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/OCAP2/combatbot/internal/geom"
	"github.com/OCAP2/combatbot/internal/world"
)

// ErrBadScenario wraps every scenario validation failure.
var ErrBadScenario = errors.New("invalid scenario")

// Scenario is a YAML description of an arena and who is in it.
type Scenario struct {
	Name      string       `yaml:"name"`
	Map       string       `yaml:"map"`
	Frames    int          `yaml:"frames"`
	FrameTime float64      `yaml:"frame_time"`
	TeamPlay  bool         `yaml:"team_play"`
	Brushes   []BrushSpec  `yaml:"brushes"`
	Entities  []EntitySpec `yaml:"entities"`
}

// BrushSpec is the YAML form of a Brush.
type BrushSpec struct {
	Mins     []float64 `yaml:"mins"`
	Maxs     []float64 `yaml:"maxs"`
	Contents []string  `yaml:"contents"`
	Surface  []string  `yaml:"surface"`
}

// EntitySpec is one player or object. Bots are players driven by the
// simulator.
type EntitySpec struct {
	ID       int       `yaml:"id"`
	Name     string    `yaml:"name"`
	Client   bool      `yaml:"client"`
	Bot      bool      `yaml:"bot"`
	Origin   []float64 `yaml:"origin"`
	Velocity []float64 `yaml:"velocity"`
	View     []float64 `yaml:"view"`
	Team     string    `yaml:"team"`
	Health   int       `yaml:"health"`
	Area     int       `yaml:"area"`
	Powerups []string  `yaml:"powerups"`

	// Skill is the bot skill level, 1 to 5.
	Skill float64 `yaml:"skill"`
	// Weapons maps weapon names to ammo, -1 for unlimited.
	Weapons map[string]int `yaml:"weapons"`
	// Weapon is the weapon raised at spawn.
	Weapon string `yaml:"weapon"`
}

var contentNames = map[string]world.Contents{
	"solid":      world.ContentsSolid,
	"lava":       world.ContentsLava,
	"slime":      world.ContentsSlime,
	"water":      world.ContentsWater,
	"playerclip": world.ContentsPlayerClip,
	"nodrop":     world.ContentsNoDrop,
}

var surfaceNames = map[string]world.SurfaceFlags{
	"slick":    world.SurfSlick,
	"noimpact": world.SurfNoImpact,
}

var powerupNames = map[string]world.Powerup{
	"quad":       world.PowerQuad,
	"haste":      world.PowerHaste,
	"battlesuit": world.PowerBattlesuit,
}

var teamNames = map[string]world.Team{
	"":          world.TeamFree,
	"free":      world.TeamFree,
	"red":       world.TeamRed,
	"blue":      world.TeamBlue,
	"spectator": world.TeamSpectator,
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(raw)
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(raw []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if sc.Frames <= 0 {
		sc.Frames = 200
	}
	if sc.FrameTime <= 0 {
		sc.FrameTime = 0.05
	}

	seen := make(map[int]bool, len(sc.Entities))
	for i, e := range sc.Entities {
		if seen[e.ID] {
			return nil, fmt.Errorf("%w: duplicate entity id %d", ErrBadScenario, e.ID)
		}
		seen[e.ID] = true
		if _, ok := teamNames[strings.ToLower(e.Team)]; !ok {
			return nil, fmt.Errorf("%w: entity %d has unknown team %q", ErrBadScenario, e.ID, e.Team)
		}
		for _, name := range e.Powerups {
			if _, ok := powerupNames[strings.ToLower(name)]; !ok {
				return nil, fmt.Errorf("%w: entity %d has unknown powerup %q", ErrBadScenario, e.ID, name)
			}
		}
		if e.Bot {
			sc.Entities[i].Client = true
		}
	}
	return &sc, nil
}

func vec(v []float64, field string) (geom.Vec3, error) {
	var out geom.Vec3
	switch len(v) {
	case 0:
		return out, nil
	case 3:
		copy(out[:], v)
		return out, nil
	default:
		return out, fmt.Errorf("%w: %s needs 3 components, got %d", ErrBadScenario, field, len(v))
	}
}

// Build creates the arena the scenario describes.
func (sc *Scenario) Build() (*Arena, error) {
	a := New()
	for i, spec := range sc.Brushes {
		b, err := spec.brush()
		if err != nil {
			return nil, fmt.Errorf("brush %d: %w", i, err)
		}
		a.AddBrush(b)
	}
	for _, spec := range sc.Entities {
		s, err := spec.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", spec.ID, err)
		}
		a.Spawn(s)
	}
	return a, nil
}

func (b BrushSpec) brush() (Brush, error) {
	mins, err := vec(b.Mins, "mins")
	if err != nil {
		return Brush{}, err
	}
	maxs, err := vec(b.Maxs, "maxs")
	if err != nil {
		return Brush{}, err
	}
	out := Brush{Mins: mins, Maxs: maxs}
	for _, name := range b.Contents {
		c, ok := contentNames[strings.ToLower(name)]
		if !ok {
			return Brush{}, fmt.Errorf("%w: unknown contents %q", ErrBadScenario, name)
		}
		out.Contents |= c
	}
	for _, name := range b.Surface {
		f, ok := surfaceNames[strings.ToLower(name)]
		if !ok {
			return Brush{}, fmt.Errorf("%w: unknown surface %q", ErrBadScenario, name)
		}
		out.Surface |= f
	}
	return out, nil
}

// Snapshot converts the spec into the entity's first snapshot.
func (e EntitySpec) Snapshot() (world.Snapshot, error) {
	origin, err := vec(e.Origin, "origin")
	if err != nil {
		return world.Snapshot{}, err
	}
	velocity, err := vec(e.Velocity, "velocity")
	if err != nil {
		return world.Snapshot{}, err
	}
	view, err := vec(e.View, "view")
	if err != nil {
		return world.Snapshot{}, err
	}

	health := e.Health
	if health == 0 {
		health = 100
	}
	s := world.Snapshot{
		ID:         e.ID,
		Client:     e.Client || e.Bot,
		Origin:     origin,
		Velocity:   velocity,
		View:       view,
		Health:     health,
		Team:       teamNames[strings.ToLower(e.Team)],
		Alive:      health > 0,
		Area:       e.Area,
		MaxSpeed:   320,
		ViewHeight: 26,
	}
	for _, name := range e.Powerups {
		p, ok := powerupNames[strings.ToLower(name)]
		if !ok {
			return world.Snapshot{}, fmt.Errorf("%w: unknown powerup %q", ErrBadScenario, name)
		}
		s.Powerups |= p
	}
	if !s.Client {
		s.Mins, s.Maxs = geom.Vec3{-8, -8, -8}, geom.Vec3{8, 8, 8}
	}
	return s, nil
}
