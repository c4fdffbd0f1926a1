// Package config loads CLI defaults from NAETT_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/adamwoolhether/naett/internal/validate"
)

const prefix = "naett"

// Config holds the CLI's configuration.
type Config struct {
	TimeoutMS     int           `envconfig:"TIMEOUT_MS" default:"5000" name:"NAETT_TIMEOUT_MS" validate:"gte=0"`
	UserAgent     string        `envconfig:"USER_AGENT" default:"Naett/1.0" name:"NAETT_USER_AGENT" validate:"omitempty,printascii"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info" name:"NAETT_LOG_LEVEL" validate:"loglevel"`
	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"100ms" name:"NAETT_POLL_INTERVAL" validate:"gt=0"`
	MaxConcurrent int           `envconfig:"MAX_CONCURRENT" default:"0" name:"NAETT_MAX_CONCURRENT" validate:"gte=0"`
	MaxRedirects  int           `envconfig:"MAX_REDIRECTS" default:"10" name:"NAETT_MAX_REDIRECTS" validate:"gte=0"`
	RPS           int           `envconfig:"RPS" default:"0" name:"NAETT_RPS" validate:"gte=0"`
	Burst         int           `envconfig:"BURST" default:"1" name:"NAETT_BURST" validate:"required_unless=RPS 0,gte=0"`
	RigAddr       string        `envconfig:"RIG_ADDR" default:":4711" name:"NAETT_RIG_ADDR" validate:"required"`
}

func init() {
	err := validate.Register("loglevel", func(fl validator.FieldLevel) bool {
		var l slog.Level
		return l.UnmarshalText([]byte(fl.Field().String())) == nil
	}, "must be a slog level such as debug, info, warn or error")
	if err != nil {
		panic(err)
	}
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := validate.Check(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no variables are set.
func Default() *Config {
	return &Config{
		TimeoutMS:    5000,
		UserAgent:    "Naett/1.0",
		LogLevel:     "info",
		PollInterval: 100 * time.Millisecond,
		MaxRedirects: 10,
		Burst:        1,
		RigAddr:      ":4711",
	}
}

// Timeout returns TimeoutMS as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parsing log level: %w", err)
	}
	return l, nil
}
