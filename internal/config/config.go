// Package config loads settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DBPath   string `env:"TRACKTIVITY_DB_PATH"`
	User     string `env:"TRACKTIVITY_USER" envDefault:"main_user"`
	LogFile  string `env:"TRACKTIVITY_LOG_FILE"`
	LogLevel string `env:"TRACKTIVITY_LOG_LEVEL" envDefault:"info"`

	RecapMaxItems     int           `env:"TRACKTIVITY_RECAP_MAX_ITEMS" envDefault:"0"`
	RecapPlaceholders bool          `env:"TRACKTIVITY_RECAP_PLACEHOLDERS" envDefault:"false"`
	RedisAddr         string        `env:"TRACKTIVITY_REDIS_ADDR"`
	RecapCacheTTL     time.Duration `env:"TRACKTIVITY_RECAP_CACHE_TTL" envDefault:"168h"`

	MetricsFile string `env:"TRACKTIVITY_METRICS_FILE"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads dotenvFiles (missing files are skipped; existing variables win)
// and then parses the environment.
func Load(dotenvFiles ...string) (Config, error) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.RecapMaxItems < 0 {
		return Config{}, fmt.Errorf("TRACKTIVITY_RECAP_MAX_ITEMS must be >= 0, got %d", cfg.RecapMaxItems)
	}
	return cfg, nil
}
