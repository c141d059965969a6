package weapon

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/OCAP2/combatbot/internal/geom"
)

//go:embed catalog.yaml
var defaultCatalog []byte

//go:embed catalog.schema.json
var catalogSchema []byte

const schemaURL = "catalog.schema.json"

// ErrUnknownWeapon is returned when a name matches no weapon or alias.
var ErrUnknownWeapon = errors.New("unknown weapon")

// Player bounding box used to estimate how large an enemy looks.
var (
	PlayerMins = geom.Vec3{-15, -15, -24}
	PlayerMaxs = geom.Vec3{15, 15, 32}
)

// Reference distances the accuracy estimate is computed at.
const (
	estimateNear = 384.0
	estimateFar  = 768.0
)

type catalogFile struct {
	Weapons []catalogEntry `yaml:"weapons"`
}

type catalogEntry struct {
	ID            int      `yaml:"id"`
	Name          string   `yaml:"name"`
	Aliases       []string `yaml:"aliases,omitempty"`
	Reload        float64  `yaml:"reload"`
	Shots         int      `yaml:"shots"`
	Damage        float64  `yaml:"damage,omitempty"`
	TeamDamage    *float64 `yaml:"team_damage,omitempty"`
	SplashDamage  float64  `yaml:"splash_damage,omitempty"`
	Radius        float64  `yaml:"radius,omitempty"`
	Speed         float64  `yaml:"speed,omitempty"`
	Range         float64  `yaml:"range,omitempty"`
	Spread        float64  `yaml:"spread,omitempty"`
	Flags         []string `yaml:"flags,omitempty"`
	StartAmmo     int      `yaml:"start_ammo,omitempty"`
	TeamStartAmmo *int     `yaml:"team_start_ammo,omitempty"`
}

// Catalog is the immutable weapon table. It is built once and shared
// read-only by every bot.
type Catalog struct {
	profiles       [NumWeapons]Profile
	aliases        map[string]ID
	typicalDPS     float64
	carelessReload float64

	entries []catalogEntry
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the built-in catalog for free-for-all play.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultCatalog, DefaultCarelessReload, false)
		if err != nil {
			panic(fmt.Sprintf("embedded weapon catalog: %v", err))
		}
		defaultCat = c
	})
	return defaultCat
}

// Load reads a catalog file from disk.
func Load(path string, carelessReload float64, teamPlay bool) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw, carelessReload, teamPlay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes, validates and finalizes a YAML catalog.
func Parse(raw []byte, carelessReload float64, teamPlay bool) (*Catalog, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}
	var doc catalogFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("weapon catalog: %w", err)
	}

	c := &Catalog{
		aliases:        make(map[string]ID),
		carelessReload: carelessReload,
		entries:        doc.Weapons,
	}
	for i := range c.profiles {
		c.profiles[i] = Profile{ID: ID(i), Name: "Unknown", Reload: 0.05, Shots: 1}
	}

	for _, e := range doc.Weapons {
		id := ID(e.ID)
		if !id.Valid() {
			return nil, fmt.Errorf("weapon catalog: id %d out of range", e.ID)
		}

		p := Profile{
			ID:           id,
			Name:         e.Name,
			Reload:       e.Reload,
			Shots:        e.Shots,
			Damage:       e.Damage,
			SplashDamage: e.SplashDamage,
			Radius:       e.Radius,
			Speed:        e.Speed,
			Range:        e.Range,
			Spread:       e.Spread,
			StartAmmo:    e.StartAmmo,
		}
		for _, f := range e.Flags {
			switch f {
			case "melee":
				p.Flags |= FlagMelee
			case "delay":
				p.Flags |= FlagDelay
			}
		}
		if teamPlay {
			if e.TeamDamage != nil {
				p.Damage = *e.TeamDamage
			}
			if e.TeamStartAmmo != nil {
				p.StartAmmo = *e.TeamStartAmmo
			}
		}
		c.profiles[id] = p

		c.aliases[strings.ToLower(e.Name)] = id
		c.aliases[strings.ToLower(strings.ReplaceAll(e.Name, " ", ""))] = id
		for _, a := range e.Aliases {
			c.aliases[strings.ToLower(a)] = id
		}
	}

	c.finalize()
	return c, nil
}

func validate(raw []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(catalogSchema)); err != nil {
		return fmt.Errorf("weapon catalog schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("weapon catalog schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("weapon catalog: %w", err)
	}

	// The validator expects values shaped like encoding/json output.
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("weapon catalog: %w", err)
	}
	var v any
	if err := json.Unmarshal(js, &v); err != nil {
		return fmt.Errorf("weapon catalog: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("weapon catalog: %w", err)
	}
	return nil
}

// finalize derives the accuracy estimate of every weapon and the typical
// damage rate across all of them.
func (c *Catalog) finalize() {
	minWidth := -1.0
	for i := 0; i < 3; i++ {
		width := PlayerMaxs[i] - PlayerMins[i]
		if minWidth < 0 || width < minWidth {
			minWidth = width
		}
	}
	enemyAngle := 2 * mgl64.RadToDeg(math.Atan2(minWidth/2, (estimateNear+estimateFar)/2))

	var rates []float64
	c.profiles[None].Accuracy = 0.5
	for id := None + 1; id < NumWeapons; id++ {
		p := &c.profiles[id]

		acc := 0.95
		if p.Radius < 100 {
			acc *= 0.8 + 0.2*(p.Radius/100)
		}
		if p.Speed > 0 && p.Speed < 2500 {
			acc *= 0.5 + 0.5*(p.Speed/2500)
		}
		if p.Range > 0 && p.Range < estimateFar {
			acc *= p.Range / estimateFar
		}
		if p.Spread > enemyAngle {
			acc *= enemyAngle / p.Spread
		}
		if p.Careless(c.carelessReload) {
			acc *= 0.4
		}
		p.Accuracy = acc

		if dps := p.DamagePerSecond(); dps > 0 {
			rates = append(rates, dps)
		}
	}

	sort.Float64s(rates)
	if len(rates) > 0 {
		c.typicalDPS = rates[len(rates)/2]
	}
}

// Get returns the profile for id. Unknown ids resolve to None.
func (c *Catalog) Get(id ID) *Profile {
	return &c.profiles[id.Clamp()]
}

// All returns every profile in id order, None included.
func (c *Catalog) All() []Profile {
	out := make([]Profile, len(c.profiles))
	copy(out, c.profiles[:])
	return out
}

// Lookup resolves a weapon name, alias or numeric id.
func (c *Catalog) Lookup(name string) (ID, error) {
	if id, ok := c.aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return id, nil
	}
	if n, err := strconv.Atoi(name); err == nil && ID(n).Valid() {
		return ID(n), nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownWeapon, name)
}

// Careless reports whether id is fired without careful aim. Invalid ids
// count as careless.
func (c *Catalog) Careless(id ID) bool {
	if !id.Valid() {
		return true
	}
	return c.profiles[id].Careless(c.carelessReload)
}

// CarelessReload is the reload threshold of this catalog.
func (c *Catalog) CarelessReload() float64 {
	return c.carelessReload
}

// TypicalDPS is the median damage per second over all damaging weapons.
func (c *Catalog) TypicalDPS() float64 {
	return c.typicalDPS
}

// ForGameType rebuilds the catalog with the machinegun adjustments the
// server applies in team play.
func (c *Catalog) ForGameType(teamPlay bool) *Catalog {
	out := &Catalog{
		profiles:       c.profiles,
		aliases:        c.aliases,
		carelessReload: c.carelessReload,
		entries:        c.entries,
	}
	for _, e := range c.entries {
		id := ID(e.ID)
		if !id.Valid() {
			continue
		}
		p := &out.profiles[id]
		p.Damage = e.Damage
		p.StartAmmo = e.StartAmmo
		if teamPlay {
			if e.TeamDamage != nil {
				p.Damage = *e.TeamDamage
			}
			if e.TeamStartAmmo != nil {
				p.StartAmmo = *e.TeamStartAmmo
			}
		}
	}
	out.finalize()
	return out
}
