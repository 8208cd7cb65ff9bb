// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        uint          `env:"CHESSBOARD_PORT"         envDefault:"8080"`
	UCIPath     string        `env:"CHESSBOARD_UCI_PATH"`
	UCIDepth    int           `env:"CHESSBOARD_UCI_DEPTH"    envDefault:"8"`
	UCIMoveTime time.Duration `env:"CHESSBOARD_UCI_MOVETIME" envDefault:"0s"`
	LogLevel    slog.Level    `env:"CHESSBOARD_LOG_LEVEL"    envDefault:"INFO"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Port == 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}
