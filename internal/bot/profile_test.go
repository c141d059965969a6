package bot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/OCAP2/combatbot/internal/weapon"
)

const profilesYAML = `
bots:
  - name: sarge
    skill: 4
    reaction: 0.25
    weapons:
      rail: {accuracy: 0.9, skill: 0.8}
  - name: grunt
    skill: 2
    reaction: 1
    aim: {accuracy: 0.5, skill: 0.5}
`

func TestParseProfiles(t *testing.T) {
	profiles, err := ParseProfiles([]byte(profilesYAML))
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	sarge := profiles["sarge"]
	assert.Equal(t, 4.0, sarge.Skill)
	assert.Equal(t, 0.25, sarge.Reaction)
	assert.Equal(t, AimRating{Accuracy: 0.9, Skill: 0.8}, sarge.Weapons["rail"])

	assert.Equal(t, AimRating{Accuracy: 0.5, Skill: 0.5}, profiles["grunt"].Aim)
}

func TestParseProfiles_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no name", "bots:\n  - skill: 3\n"},
		{"skill too high", "bots:\n  - name: a\n    skill: 6\n"},
		{"skill too low", "bots:\n  - name: a\n    skill: 0.5\n"},
		{"reaction out of range", "bots:\n  - name: a\n    skill: 3\n    reaction: 2\n"},
		{"duplicate", "bots:\n  - name: a\n    skill: 3\n  - name: a\n    skill: 4\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrBadProfile)
		})
	}

	_, err := ParseProfiles([]byte("bots: ["))
	assert.Error(t, err)
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bots.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profilesYAML), 0o644))

	profiles, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Contains(t, profiles, "sarge")

	_, err = LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProfile_ReactTime(t *testing.T) {
	assert.InDelta(t, 0.12, Profile{Reaction: 0}.ReactTime(0.12, 0.28), 1e-9)
	assert.InDelta(t, 0.28, Profile{Reaction: 1}.ReactTime(0.12, 0.28), 1e-9)
	assert.InDelta(t, 0.20, Profile{Reaction: 0.5}.ReactTime(0.12, 0.28), 1e-9)
}

func TestProfile_Ratings(t *testing.T) {
	c := weapon.Default()

	t.Run("defaults follow skill", func(t *testing.T) {
		r, err := DefaultProfile("a", 5).Ratings(c)
		require.NoError(t, err)
		assert.InDelta(t, 0.875, r.Accuracy[weapon.Railgun], 1e-9)

		r, err = DefaultProfile("b", 3).Ratings(c)
		require.NoError(t, err)
		assert.InDelta(t, 0.425, r.Skill[weapon.Shotgun], 1e-9)
	})

	t.Run("weapon override by alias", func(t *testing.T) {
		p := Profile{Name: "a", Skill: 4, Weapons: map[string]AimRating{"rail": {Accuracy: 0.9, Skill: 0.8}}}
		r, err := p.Ratings(c)
		require.NoError(t, err)
		assert.InDelta(t, 0.9, r.Accuracy[weapon.Railgun], 1e-9)
		assert.InDelta(t, 0.8, r.Skill[weapon.Railgun], 1e-9)
		assert.InDelta(t, 0.65, r.Accuracy[weapon.Machinegun], 1e-9)
	})

	t.Run("bounded", func(t *testing.T) {
		p := Profile{Name: "a", Skill: 5, Aim: AimRating{Accuracy: 3, Skill: 0.01}}
		r, err := p.Ratings(c)
		require.NoError(t, err)
		assert.InDelta(t, 1, r.Accuracy[weapon.Plasmagun], 1e-9)
		assert.InDelta(t, 0.1, r.Skill[weapon.Plasmagun], 1e-9)
	})

	t.Run("low skill scaled", func(t *testing.T) {
		r, err := Profile{Name: "a", Skill: 1, Aim: AimRating{Accuracy: 1, Skill: 1}}.Ratings(c)
		require.NoError(t, err)
		assert.InDelta(t, 0.3, r.Accuracy[weapon.Railgun], 1e-9)

		r, err = Profile{Name: "b", Skill: 2, Aim: AimRating{Accuracy: 1, Skill: 1}}.Ratings(c)
		require.NoError(t, err)
		assert.InDelta(t, 0.6, r.Skill[weapon.Railgun], 1e-9)
	})

	t.Run("unknown weapon", func(t *testing.T) {
		p := Profile{Name: "a", Skill: 3, Weapons: map[string]AimRating{"slingshot": {Accuracy: 1}}}
		_, err := p.Ratings(c)
		assert.ErrorIs(t, err, ErrBadProfile)
		assert.ErrorIs(t, err, weapon.ErrUnknownWeapon)
	})
}

func TestProfile_RatingsBounded(t *testing.T) {
	c := weapon.Default()
	rapid.Check(t, func(t *rapid.T) {
		p := Profile{
			Name:  "p",
			Skill: rapid.Float64Range(MinSkill, MaxSkill).Draw(t, "skill"),
			Aim: AimRating{
				Accuracy: rapid.Float64Range(-1, 2).Draw(t, "accuracy"),
				Skill:    rapid.Float64Range(-1, 2).Draw(t, "aimSkill"),
			},
		}
		r, err := p.Ratings(c)
		if err != nil {
			t.Fatalf("ratings: %v", err)
		}
		for id := weapon.None; id < weapon.NumWeapons; id++ {
			for _, v := range []float64{r.Accuracy[id], r.Skill[id]} {
				if v < 0.1*0.3-1e-12 || v > 1+1e-12 {
					t.Fatalf("rating %v of %d out of bounds", v, id)
				}
			}
		}
	})
}
