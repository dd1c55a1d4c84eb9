// Package config loads the coordinator's tunables from a TOML file,
// following the same BurntSushi/toml convention the rest of the
// example pack uses for static configuration rather than flags.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the full set of tunables a coordinator process reads at
// startup.
type Config struct {
	Pool    PoolConfig    `toml:"pool"`
	Metrics MetricsConfig `toml:"metrics"`
}

// PoolConfig controls the WorkerEngine pool.
type PoolConfig struct {
	// Size is the number of WorkerEngines to start.
	Size int `toml:"size"`
	// ChannelCapacity is the per-engine inbox/cache-inbox buffer size.
	ChannelCapacity int `toml:"channel_capacity"`
}

// MetricsConfig controls the Prometheus metrics sink.
type MetricsConfig struct {
	// Enabled turns metrics collection on or off.
	Enabled bool `toml:"enabled"`
	// Namespace prefixes every collector name.
	Namespace string `toml:"namespace"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Pool: PoolConfig{
			Size:            4,
			ChannelCapacity: 8,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "parallelevm",
		},
	}
}

// Load decodes path into a Config seeded with Default's values, so a
// partial file only overrides what it mentions.
func Load(path string) (Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
