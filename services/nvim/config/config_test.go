// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nvimrpc/services/nvim/session"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "nvim", cfg.Nvim.Command)
	assert.Equal(t, []string{"--embed"}, cfg.Nvim.Args)
	assert.Equal(t, 80, cfg.UI.Width)
	assert.True(t, cfg.UI.Options.RGB)
	assert.True(t, cfg.UI.Options.ExtLinegrid)
	assert.Equal(t, session.PolicySkip, cfg.Session.Policy())
	assert.Empty(t, cfg.Debug.Listen)
}

func TestLoad_OverlaysFile(t *testing.T) {
	t.Setenv(EnvNvim, "")
	t.Setenv(EnvLogLevel, "")

	path := writeFile(t, `
log_level: debug
nvim:
  command: /opt/nvim/bin/nvim
  args: ["--embed", "--clean"]
  shutdown_timeout: 2s
ui:
  width: 120
  options:
    ext_popupmenu: true
session:
  decode_policy: halt
debug:
  listen: 127.0.0.1:9464
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "/opt/nvim/bin/nvim", cfg.Nvim.Command)
	assert.Equal(t, []string{"--embed", "--clean"}, cfg.Nvim.Args)
	assert.Equal(t, 2*time.Second, cfg.Nvim.ShutdownTimeout)
	assert.Equal(t, 120, cfg.UI.Width)
	assert.Equal(t, 24, cfg.UI.Height, "omitted keys keep defaults")
	assert.True(t, cfg.UI.Options.ExtPopupmenu)
	assert.Equal(t, session.PolicyHalt, cfg.Session.Policy())
	assert.Equal(t, "127.0.0.1:9464", cfg.Debug.Listen)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvNvim, "/usr/local/bin/nvim")
	t.Setenv(EnvLogLevel, "WARN")

	cfg, err := Load(writeFile(t, "log_level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/nvim", cfg.Nvim.Command)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvNvim, "")
	t.Setenv(EnvLogLevel, "")

	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", "log_level: loud\n"},
		{"zero width", "ui:\n  width: 0\n"},
		{"bad policy", "session:\n  decode_policy: explode\n"},
		{"empty command", "nvim:\n  command: \"\"\n"},
		{"bad listen", "debug:\n  listen: not a host\n"},
		{"bad exporter", "telemetry:\n  trace_exporter: zipkin\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "ui: [unclosed\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_DefaultPathMissingIsFine(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv(EnvNvim, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Nvim.Command, cfg.Nvim.Command)
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	t.Setenv(EnvNvim, "")
	t.Setenv(EnvLogLevel, "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)

	want := DefaultConfig()
	assert.Equal(t, want.Nvim.Args, cfg.Nvim.Args)
	assert.Equal(t, want.Nvim.ShutdownTimeout, cfg.Nvim.ShutdownTimeout)
	assert.Equal(t, want.UI, cfg.UI)
	assert.Equal(t, want.Session, cfg.Session)
}

func TestSlogLevel_Fallback(t *testing.T) {
	cfg := Config{LogLevel: "chatty"}
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
