package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/OCAP2/combatbot/internal/attack"
	"github.com/OCAP2/combatbot/internal/view"
	"github.com/OCAP2/combatbot/internal/weapon"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "combatbot.cfg.json"

// Tuning holds every decision tunable shared by the bots.
type Tuning struct {
	// Reaction times are interpolated between these bounds by each bot's
	// reaction characteristic.
	ReactTimeMin float64 `json:"reactTimeMin" mapstructure:"reactTimeMin"`
	ReactTimeMax float64 `json:"reactTimeMax" mapstructure:"reactTimeMax"`
	// CarelessReload is the reload time below which weapons are fired
	// without careful aim.
	CarelessReload float64 `json:"carelessReload" mapstructure:"carelessReload"`
	// WeaponCatalog optionally replaces the built-in weapon table.
	WeaponCatalog string `json:"weaponCatalog" mapstructure:"weaponCatalog"`

	Attack attack.Settings `json:"attack" mapstructure:"attack"`
	View   view.Settings   `json:"view" mapstructure:"view"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
	// MetricsInterval is how often metrics are written to the log file.
	MetricsInterval time.Duration `json:"metricsInterval" mapstructure:"metricsInterval"`
}

// InfluxConfig holds accuracy telemetry settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./botlogs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
	viper.SetDefault("graylog.level", "info")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "combatbot")
	viper.SetDefault("influx.bucket", "bot_accuracy")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "combatbot")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.metricsInterval", "30s")

	viper.SetDefault("monitor.interval", "10s")

	viper.SetDefault("match.gameType", "ffa")
	viper.SetDefault("match.friendlyFire", false)
	viper.SetDefault("match.quadFactor", 3.0)

	viper.SetDefault("sim.frames", 0)
	viper.SetDefault("sim.seed", 0)
	viper.SetDefault("sim.mode", "normal")
	viper.SetDefault("sim.auditHorizon", 1.0)

	viper.SetDefault("tuning.reactTimeMin", 0.12)
	viper.SetDefault("tuning.reactTimeMax", 0.28)
	viper.SetDefault("tuning.carelessReload", weapon.DefaultCarelessReload)
	viper.SetDefault("tuning.weaponCatalog", "")

	a := attack.DefaultSettings()
	viper.SetDefault("tuning.attack.lagMin", a.LagMin)
	viper.SetDefault("tuning.attack.carelessFactor", a.CarelessFactor)
	viper.SetDefault("tuning.attack.carefulFactorMin", a.CarefulFactorMin)
	viper.SetDefault("tuning.attack.carefulFactorMax", a.CarefulFactorMax)
	viper.SetDefault("tuning.attack.continueFactor", a.ContinueFactor)
	viper.SetDefault("tuning.attack.leadTimeFull", a.LeadTimeFull)
	viper.SetDefault("tuning.attack.leadTimeScale", a.LeadTimeScale)
	viper.SetDefault("tuning.attack.focusHeadDist", a.FocusHeadDist)
	viper.SetDefault("tuning.attack.focusBodyDist", a.FocusBodyDist)
	viper.SetDefault("tuning.attack.diagnose", a.Diagnose)

	v := view.DefaultSettings()
	viper.SetDefault("tuning.view.idealErrorMin", v.IdealErrorMin)
	viper.SetDefault("tuning.view.idealErrorMax", v.IdealErrorMax)
	viper.SetDefault("tuning.view.idealCorrectFactor", v.IdealCorrectFactor)
	viper.SetDefault("tuning.view.actualAccelMin", v.ActualAccelMin)
	viper.SetDefault("tuning.view.actualAccelMax", v.ActualAccelMax)
	viper.SetDefault("tuning.view.actualErrorMin", v.ActualErrorMin)
	viper.SetDefault("tuning.view.actualErrorMax", v.ActualErrorMax)
	viper.SetDefault("tuning.view.actualCorrectFactor", v.ActualCorrectFactor)
	viper.SetDefault("tuning.view.changeReactTime", v.ChangeReactTime)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// LoadDefaults sets the default values without reading a file.
func LoadDefaults() {
	setDefaults()
}

// flagKeys maps command line flags to the keys they override.
var flagKeys = map[string]string{
	"log-level": "logLevel",
	"logs-dir":  "logsDir",
	"frames":    "sim.frames",
	"seed":      "sim.seed",
	"mode":      "sim.mode",
	"game-type": "match.gameType",
}

// BindFlags lets the flags in fs override configuration values. Only flags
// that were set on the command line take precedence over the file.
func BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// GetTuning decodes the tuning section.
func GetTuning() (Tuning, error) {
	// Unmarshal merges nested defaults key by key; UnmarshalKey would
	// drop the defaults of a partially overridden section.
	var all struct {
		Tuning Tuning `mapstructure:"tuning"`
	}
	if err := viper.Unmarshal(&all); err != nil {
		return Tuning{}, fmt.Errorf("failed to decode tuning: %w", err)
	}
	t := all.Tuning
	if t.ReactTimeMax < t.ReactTimeMin {
		return Tuning{}, fmt.Errorf("tuning: reactTimeMax %v is below reactTimeMin %v", t.ReactTimeMax, t.ReactTimeMin)
	}
	return t, nil
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:         viper.GetBool("otel.enabled"),
		ServiceName:     viper.GetString("otel.serviceName"),
		BatchTimeout:    viper.GetDuration("otel.batchTimeout"),
		Endpoint:        viper.GetString("otel.endpoint"),
		Insecure:        viper.GetBool("otel.insecure"),
		MetricsInterval: viper.GetDuration("otel.metricsInterval"),
	}
}

// GetInfluxConfig returns the accuracy telemetry settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
