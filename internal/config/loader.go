package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zenixls2/bookaggregator/internal/venues"
)

// ConfigLoader reads and validates the YAML configuration file, the same
// shape as the teacher's internal/config/loader.go.
type ConfigLoader struct {
	Registry venues.Registry
}

// NewConfigLoader returns a loader validating against the default venue
// registry.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{Registry: venues.Default}
}

var validLogLevels = map[string]bool{
	"Error": true, "Warning": true, "Info": true, "Debug": true,
}

// LoadConfig reads filename, applies field defaults, and validates every
// configured venue exists in the registry — an unknown venue is a fatal
// config error per spec.md §7.
func (cl *ConfigLoader) LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "Info"
	}
	if !validLogLevels[cfg.LogLevel] {
		return nil, fmt.Errorf("invalid log_level %q: must be one of Error, Warning, Info, Debug", cfg.LogLevel)
	}
	if cfg.ServerPort == 0 {
		cfg.ServerPort = 50051
	}
	if cfg.RedisPublish.Enabled && cfg.RedisPublish.Channel == "" {
		cfg.RedisPublish.Channel = DefaultRedisChannel
	}

	if len(cfg.ExchangePairMap) == 0 {
		return nil, fmt.Errorf("exchange_pair_map must configure at least one venue")
	}
	for venue := range cfg.ExchangePairMap {
		if _, err := cl.Registry.Lookup(venue); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	return &cfg, nil
}
