// Package config reads cronkeep settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const DefaultEnvFile = ".env"

type Config struct {
	CrontabBin     string        `env:"CRONKEEP_CRONTAB_BIN, default=crontab"`
	AtBin          string        `env:"CRONKEEP_AT_BIN, default=at"`
	WhoamiBin      string        `env:"CRONKEEP_WHOAMI_BIN, default=whoami"`
	Shell          string        `env:"CRONKEEP_SHELL, default=/bin/sh"`
	CommandTimeout time.Duration `env:"CRONKEEP_COMMAND_TIMEOUT, default=10s"`
	SpoolDir       string        `env:"CRONKEEP_SPOOL_DIR, default=/var/spool/cron/crontabs"`
	MetricsListen  string        `env:"CRONKEEP_METRICS_LISTEN"`
	SentryDSN      string        `env:"SENTRY_DSN"`
}

// LoadEnvFile exports the variables of a .env file that are not already
// set. A missing file is only an error when it was asked for explicitly.
func LoadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func NewConfigFromEnv(ctx context.Context) (*Config, error) {
	return newConfig(ctx, envconfig.OsLookuper())
}

func newConfig(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}

	if cfg.CommandTimeout <= 0 {
		return nil, fmt.Errorf("CRONKEEP_COMMAND_TIMEOUT must be positive, got %v", cfg.CommandTimeout)
	}

	return &cfg, nil
}
