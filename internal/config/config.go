// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration. Defaults match the documented
// subsystem constants so an empty environment produces a playable server.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	TickRate  int    `env:"TICK_RATE" envDefault:"15"`
	PropCount int    `env:"PROP_COUNT" envDefault:"24"`

	MaxActiveCamouflages int           `env:"CAMO_MAX_ACTIVE" envDefault:"1"`
	CacheTTL             time.Duration `env:"CAMO_CACHE_TTL" envDefault:"30s"`
	MaxCacheSize         int           `env:"CAMO_CACHE_SIZE" envDefault:"50"`
	MaintenanceInterval  time.Duration `env:"CAMO_MAINTENANCE_INTERVAL" envDefault:"5s"`
	FadeOut              time.Duration `env:"CAMO_FADE_OUT" envDefault:"500ms"`
	FadeIn               time.Duration `env:"CAMO_FADE_IN" envDefault:"500ms"`

	LogSinks       []string `env:"LOG_SINKS" envDefault:"console" envSeparator:","`
	LogJSONPath    string   `env:"LOG_JSON_PATH" envDefault:"events.ndjson"`
	EventStorePath string   `env:"EVENT_STORE_PATH" envDefault:"events.db"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.TickRate <= 0 {
		return Config{}, fmt.Errorf("TICK_RATE must be positive, got %d", cfg.TickRate)
	}
	return cfg, nil
}

// HasSink reports whether a named logging sink is enabled.
func (c Config) HasSink(name string) bool {
	for _, sink := range c.LogSinks {
		if sink == name {
			return true
		}
	}
	return false
}
