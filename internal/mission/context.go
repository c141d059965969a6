// Package mission holds the settings of the match the bots are playing.
package mission

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/OCAP2/combatbot/internal/aim"
	"github.com/OCAP2/combatbot/internal/weapon"
)

// ErrUnknownGameType is returned for game type names that do not exist.
var ErrUnknownGameType = errors.New("unknown game type")

// GameType is the rule set of the match.
type GameType int

const (
	GameFFA GameType = iota
	GameTournament
	GameSinglePlayer
	GameTeam
	GameCTF
)

var gameTypeNames = map[string]GameType{
	"ffa":          GameFFA,
	"tournament":   GameTournament,
	"singleplayer": GameSinglePlayer,
	"team":         GameTeam,
	"ctf":          GameCTF,
}

func (g GameType) String() string {
	for name, gt := range gameTypeNames {
		if gt == g {
			return name
		}
	}
	return "unknown"
}

// TeamPlay reports whether players are split into teams.
func (g GameType) TeamPlay() bool {
	return g >= GameTeam
}

// ParseGameType converts a name such as "ctf" to a game type.
func ParseGameType(name string) (GameType, error) {
	g, ok := gameTypeNames[strings.ToLower(name)]
	if !ok {
		return GameFFA, fmt.Errorf("%w: %q", ErrUnknownGameType, name)
	}
	return g, nil
}

// Settings describe the current match.
type Settings struct {
	GameType     GameType
	FriendlyFire bool
	MapTitle     string
	// QuadFactor is the damage multiplier of the quad damage powerup.
	QuadFactor float64
	// Triggers are the shootable map objects of the current map.
	Triggers []aim.Trigger
}

// DefaultSettings returns a free for all match on an unnamed map.
func DefaultSettings() Settings {
	return Settings{
		GameType:   GameFFA,
		MapTitle:   "No map loaded",
		QuadFactor: 3,
	}
}

// Context holds the current match settings
type Context struct {
	mu       sync.RWMutex
	settings Settings
	catalog  *weapon.Catalog
	base     *weapon.Catalog
}

// NewContext creates a new Context with default settings and base as the
// weapon catalog.
func NewContext(base *weapon.Catalog) *Context {
	mc := &Context{base: base}
	mc.Set(DefaultSettings())
	return mc
}

// Settings returns the current match settings
func (mc *Context) Settings() Settings {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.settings
}

// Catalog returns the weapon catalog adjusted for the game type.
func (mc *Context) Catalog() *weapon.Catalog {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.catalog
}

// Set starts a new match.
func (mc *Context) Set(s Settings) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if s.QuadFactor <= 0 {
		s.QuadFactor = 1
	}
	mc.settings = s
	mc.catalog = mc.base.ForGameType(s.GameType.TeamPlay())
}
