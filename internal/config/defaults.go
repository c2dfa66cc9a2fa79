package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/talgya/roadworks/internal/world"
)

// setDefaults registers a default for every key. Defaults sit below the file
// and the environment, so an explicit 0 survives Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("sim.tick_interval", 100*time.Millisecond)
	v.SetDefault("sim.speed", 1)
	v.SetDefault("sim.worker_speed", 0.25)
	v.SetDefault("sim.max_workers_per_road", 3)
	v.SetDefault("sim.spawn_congestion", 4.0)
	v.SetDefault("sim.report_interval", 600)
	v.SetDefault("sim.manual_staffing", false)

	gen := world.DefaultGenConfig()
	v.SetDefault("world.radius", gen.Radius)
	v.SetDefault("world.seed", gen.Seed)
	v.SetDefault("world.roughness", gen.Roughness)
	v.SetDefault("world.max_height", gen.MaxHeight)

	v.SetDefault("scenario.path", "")
	v.SetDefault("database.path", "")

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.dir", "journal")

	v.SetDefault("api.port", 0)
	v.SetDefault("api.path_rate_per_minute", 60)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Default returns a configuration holding only the defaults.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("decode config defaults: %v", err))
	}
	return &cfg
}
