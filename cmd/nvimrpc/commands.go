// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/nvimrpc/services/nvim/config"
	"github.com/AleutianAI/nvimrpc/services/nvim/telemetry"
)

// app holds the state shared by all subcommands.
type app struct {
	configPath string
	nvimCmd    string
	logLevel   string
	debugAddr  string

	cfg      config.Config
	logger   *slog.Logger
	shutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "nvimrpc",
		Short:         "Drive an embedded Neovim over msgpack-rpc",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&a.nvimCmd, "nvim", "", "Editor executable (overrides config)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&a.debugAddr, "debug-listen", "", "Serve /metrics and /healthz on host:port")

	rootCmd.AddCommand(
		newAttachCmd(a),
		newEvalCmd(a),
		newVersionCmd(a),
	)
	return rootCmd
}

// setup loads the configuration, applies flag overrides and starts
// telemetry.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.nvimCmd != "" {
		cfg.Nvim.Command = a.nvimCmd
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.debugAddr != "" {
		cfg.Debug.Listen = a.debugAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Telemetry.ServiceVersion = version

	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.SlogLevel())
	slog.SetDefault(a.logger)

	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.shutdown = shutdown
	return nil
}

func (a *app) teardown() error {
	if a.shutdown == nil {
		return nil
	}
	return a.shutdown(context.Background())
}

// newLogger returns a text handler for terminals and a JSON handler
// otherwise.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
