// Package config reads process settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/DoyleJ11/draft-bot/internal/command"
	"github.com/DoyleJ11/draft-bot/internal/engine"
	"github.com/DoyleJ11/draft-bot/internal/export"
)

type Config struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Dev      bool   `env:"DEV"`

	CommandPrefix string        `env:"COMMAND_PREFIX" envDefault:"!"`
	RoundPolicy   string        `env:"ROUND_POLICY" envDefault:"snake"`
	TimerFallback string        `env:"TIMER_FALLBACK" envDefault:"skip"`
	TimerMin      time.Duration `env:"TIMER_MIN" envDefault:"5s"`
	TimerMax      time.Duration `env:"TIMER_MAX" envDefault:"10m"`
	MaxRounds     int           `env:"MAX_ROUNDS" envDefault:"50"`

	NATSURL     string `env:"NATS_URL"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"draft.events"`

	ExportDir    string `env:"EXPORT_DIR"`
	ExportFormat string `env:"EXPORT_FORMAT" envDefault:"json"`
	DatabaseURL  string `env:"DATABASE_URL"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

const Prefix = "DRAFT_"

// Load reads the given .env files (missing files are skipped), then parses
// DRAFT_* variables. Variables already set in the environment win over the
// files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return Parse(env.Options{Prefix: Prefix})
}

// Parse reads the configuration using opts, which tests use to inject an
// environment map.
func Parse(opts env.Options) (Config, error) {
	if opts.Prefix == "" {
		opts.Prefix = Prefix
	}
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.CommandPrefix == "" {
		return errors.New("command prefix must not be empty")
	}
	if _, ok := engine.ParsePolicy(c.RoundPolicy); !ok {
		return fmt.Errorf("unknown round policy %q", c.RoundPolicy)
	}
	if _, ok := engine.ParseFallback(c.TimerFallback); !ok {
		return fmt.Errorf("unknown timer fallback %q", c.TimerFallback)
	}
	if c.TimerMin <= 0 || c.TimerMax < c.TimerMin {
		return fmt.Errorf("timer bounds %s..%s are invalid", c.TimerMin, c.TimerMax)
	}
	if c.MaxRounds < 1 {
		return fmt.Errorf("max rounds must be positive, got %d", c.MaxRounds)
	}
	if _, err := export.ParseFormat(c.ExportFormat); err != nil {
		return err
	}
	return nil
}

// Settings are the per-session defaults new drafts start with.
func (c Config) Settings() engine.Settings {
	policy, _ := engine.ParsePolicy(c.RoundPolicy)
	fallback, _ := engine.ParseFallback(c.TimerFallback)
	return engine.Settings{Policy: policy, Fallback: fallback}
}

func (c Config) Bounds() command.Bounds {
	return command.Bounds{MinTimer: c.TimerMin, MaxTimer: c.TimerMax, MaxRounds: c.MaxRounds}
}
