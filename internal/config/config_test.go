package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/combatbot/internal/attack"
	"github.com/OCAP2/combatbot/internal/view"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"influx": { "host": "10.0.0.1", "port": "8087" },
		"tuning": { "reactTimeMin": 0.1, "attack": { "lagMin": 0.1 } }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("influx.host"))
	assert.Equal(t, "8087", viper.GetString("influx.port"))
	assert.Equal(t, 0.1, viper.GetFloat64("tuning.reactTimeMin"))
	assert.Equal(t, 0.1, viper.GetFloat64("tuning.attack.lagMin"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./botlogs", viper.GetString("logsDir"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "bot_accuracy", viper.GetString("influx.bucket"))
	assert.Equal(t, "ffa", viper.GetString("match.gameType"))
	assert.Equal(t, 3.0, viper.GetFloat64("match.quadFactor"))
	assert.Equal(t, 10*time.Second, viper.GetDuration("monitor.interval"))
	assert.Equal(t, 0.12, viper.GetFloat64("tuning.reactTimeMin"))
	assert.Equal(t, 0.28, viper.GetFloat64("tuning.reactTimeMax"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetTuning_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	LoadDefaults()

	tuning, err := GetTuning()
	require.NoError(t, err)

	assert.Equal(t, attack.DefaultSettings(), tuning.Attack)
	assert.Equal(t, view.DefaultSettings(), tuning.View)
	assert.Equal(t, 0.5, tuning.CarelessReload)
	assert.Empty(t, tuning.WeaponCatalog)
}

func TestGetTuning_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"tuning": {
			"reactTimeMax": 0.4,
			"attack": { "diagnose": true, "focusHeadDist": 128 },
			"view": { "actualAccelMax": 2000 }
		}
	}`)))

	tuning, err := GetTuning()
	require.NoError(t, err)

	assert.Equal(t, 0.4, tuning.ReactTimeMax)
	assert.True(t, tuning.Attack.Diagnose)
	assert.Equal(t, 128.0, tuning.Attack.FocusHeadDist)
	assert.Equal(t, 512.0, tuning.Attack.FocusBodyDist)
	assert.Equal(t, 2000.0, tuning.View.ActualAccelMax)
	assert.Equal(t, 800.0, tuning.View.ActualAccelMin)
}

func TestGetTuning_InvertedReaction(t *testing.T) {
	t.Cleanup(viper.Reset)
	LoadDefaults()
	viper.Set("tuning.reactTimeMax", 0.05)

	_, err := GetTuning()
	assert.Error(t, err)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	LoadDefaults()

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "combatbot", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
	assert.Equal(t, 30*time.Second, cfg.MetricsInterval)
}

func TestGetInfluxConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"influx": { "enabled": true, "protocol": "https", "org": "arena" }
	}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "https", ic.Protocol)
	assert.Equal(t, "arena", ic.Org)
	assert.Equal(t, "localhost", ic.Host)
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)
	viper.Set("testFloat", 1.5)
	viper.Set("testDuration", "2s")

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, true, GetBool("testBool"))
	assert.Equal(t, 1.5, GetFloat("testFloat"))
	assert.Equal(t, 2*time.Second, GetDuration("testDuration"))
}

func TestBindFlags(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{ "sim": { "seed": 7, "mode": "flawless" } }`)))

	fs := pflag.NewFlagSet("botsim", pflag.ContinueOnError)
	fs.Int64("seed", 0, "")
	fs.String("mode", "normal", "")
	fs.Int("frames", 0, "")
	require.NoError(t, fs.Parse([]string{"--frames", "250"}))
	require.NoError(t, BindFlags(fs))

	assert.Equal(t, 250, viper.GetInt("sim.frames"), "set flag wins")
	assert.Equal(t, 7, viper.GetInt("sim.seed"), "unset flag keeps the file value")
	assert.Equal(t, "flawless", viper.GetString("sim.mode"))
	assert.Equal(t, 1.0, viper.GetFloat64("sim.auditHorizon"))
}
