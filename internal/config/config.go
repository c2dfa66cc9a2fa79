// Package config loads roadsim settings. Defaults are overridden by a yaml
// file, which is overridden by RW_ environment variables. A .env file only
// fills variables the environment does not already set.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root of all settings.
type Config struct {
	Sim      SimConfig      `mapstructure:"sim"`
	World    WorldConfig    `mapstructure:"world"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
	Database DatabaseConfig `mapstructure:"database"`
	Journal  JournalConfig  `mapstructure:"journal"`
	API      APIConfig      `mapstructure:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SimConfig drives the tick engine and the network tunables.
type SimConfig struct {
	// Wall-clock time between ticks at speed 1.
	TickInterval time.Duration `mapstructure:"tick_interval" validate:"gt=0"`
	// Tick rate multiplier.
	Speed int `mapstructure:"speed" validate:"min=1,max=100"`
	// Walk progress per tick.
	WorkerSpeed float64 `mapstructure:"worker_speed" validate:"gt=0,lte=1"`
	// Workers a congested road may grow to.
	MaxWorkersPerRoad int `mapstructure:"max_workers_per_road" validate:"min=1"`
	// Waiting items per worker before another is spawned.
	SpawnCongestion float64 `mapstructure:"spawn_congestion" validate:"min=0"`
	// Ticks between stats reports.
	ReportInterval uint64 `mapstructure:"report_interval" validate:"min=1"`
	// Disables automatic staffing; scenario workers only.
	ManualStaffing bool `mapstructure:"manual_staffing"`
}

// WorldConfig shapes the generated grid.
type WorldConfig struct {
	Radius    int     `mapstructure:"radius" validate:"min=1,max=256"`
	Seed      int64   `mapstructure:"seed"`
	Roughness float64 `mapstructure:"roughness" validate:"gte=0,lte=1"`
	MaxHeight float64 `mapstructure:"max_height" validate:"gte=0"`
}

type ScenarioConfig struct {
	Path string `mapstructure:"path"`
}

type DatabaseConfig struct {
	// SQLite file for traffic stats. Empty disables the stats store.
	Path string `mapstructure:"path"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir" validate:"required_if=Enabled true"`
}

type APIConfig struct {
	// 0 disables the HTTP server.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
	// Path searches allowed per client per minute.
	PathRatePerMinute int `mapstructure:"path_rate_per_minute" validate:"min=1"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// LoadConfig reads configuration from configPath, or from config.yaml in the
// working directory or ./configs when configPath is empty. A missing file is
// not an error.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	setDefaults(v)
	v.SetEnvPrefix("RW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// bindEnv registers every key so AutomaticEnv can see variables for keys
// that have no file value.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"sim.tick_interval", "sim.speed", "sim.worker_speed",
		"sim.max_workers_per_road", "sim.spawn_congestion",
		"sim.report_interval", "sim.manual_staffing",
		"world.radius", "world.seed", "world.roughness", "world.max_height",
		"scenario.path", "database.path",
		"journal.enabled", "journal.dir",
		"api.port", "api.path_rate_per_minute",
		"logging.level", "logging.format",
	} {
		_ = v.BindEnv(key)
	}
}
