// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads nvimrpc settings from YAML.
//
// Values come from DefaultConfig, then the YAML file, then environment
// overrides, and are validated last.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/nvimrpc/services/nvim/api"
	"github.com/AleutianAI/nvimrpc/services/nvim/embed"
	"github.com/AleutianAI/nvimrpc/services/nvim/session"
	"github.com/AleutianAI/nvimrpc/services/nvim/telemetry"
)

// Environment overrides.
const (
	EnvNvim     = "NVIMRPC_NVIM"
	EnvLogLevel = "NVIMRPC_LOG_LEVEL"
)

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// Config is the complete nvimrpc configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	Nvim      embed.Config     `yaml:"nvim"`
	UI        UIConfig         `yaml:"ui"`
	Session   SessionConfig    `yaml:"session"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Debug     DebugConfig      `yaml:"debug"`
}

// UIConfig describes the attached UI.
type UIConfig struct {
	Width   int           `yaml:"width" validate:"gte=1,lte=10000"`
	Height  int           `yaml:"height" validate:"gte=1,lte=10000"`
	Options api.UIOptions `yaml:"options"`
}

// SessionConfig tunes the read loop.
type SessionConfig struct {
	// DecodePolicy is "skip" or "halt".
	DecodePolicy string `yaml:"decode_policy" validate:"oneof=skip halt"`

	// UnhandledLogRate is the number of unhandled-message log lines per
	// second. Zero disables throttling.
	UnhandledLogRate float64 `yaml:"unhandled_log_rate" validate:"gte=0"`

	// UnhandledLogBurst is the burst allowance for those lines.
	UnhandledLogBurst int `yaml:"unhandled_log_burst" validate:"gte=1"`
}

// DebugConfig controls the optional debug HTTP server.
type DebugConfig struct {
	// Listen is host:port for /metrics and /healthz. Empty disables it.
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Nvim:     embed.DefaultConfig(),
		UI: UIConfig{
			Width:   80,
			Height:  24,
			Options: api.DefaultUIOptions(),
		},
		Session: SessionConfig{
			DecodePolicy:      session.PolicySkip.String(),
			UnhandledLogRate:  float64(session.DefaultLogRate),
			UnhandledLogBurst: session.DefaultLogBurst,
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's config directory: %w", err)
	}
	return filepath.Join(dir, "nvimrpc", "config.yaml"), nil
}

// Load reads the configuration.
//
// Description:
//
//	Starts from DefaultConfig and overlays the YAML file at path, so keys
//	the file omits keep their defaults. An empty path means DefaultPath;
//	a missing file there is not an error. Environment overrides are
//	applied and the result is validated.
//
// Inputs:
//
//	path - YAML file, or "" for the default location
//
// Outputs:
//
//	Config - The effective configuration
//	error  - Read, parse or validation failure (ErrInvalidConfig)
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	optional := false
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path, optional = p, true
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case optional && errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WriteDefault writes DefaultConfig to path, creating parent directories.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvNvim); ok && v != "" {
		c.Nvim.Command = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
}

// Validate checks every field constraint.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// SlogLevel returns LogLevel as a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Policy returns the session decode policy.
func (s SessionConfig) Policy() session.Policy {
	p, err := session.ParsePolicy(s.DecodePolicy)
	if err != nil {
		return session.PolicySkip
	}
	return p
}

// LogRate returns the unhandled log rate as a limiter rate.
func (s SessionConfig) LogRate() rate.Limit {
	return rate.Limit(s.UnhandledLogRate)
}
