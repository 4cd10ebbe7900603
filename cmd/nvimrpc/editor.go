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
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/nvimrpc/services/nvim/api"
	"github.com/AleutianAI/nvimrpc/services/nvim/config"
	"github.com/AleutianAI/nvimrpc/services/nvim/embed"
	"github.com/AleutianAI/nvimrpc/services/nvim/rpc"
	"github.com/AleutianAI/nvimrpc/services/nvim/session"
)

// errEditorExited ends the run group when the editor closes the stream.
var errEditorExited = errors.New("editor exited")

// editor ties one connection to its client, session and API wrapper.
type editor struct {
	nvim    *api.Nvim
	session *session.Session
	health  func() error
	debug   string
	logger  *slog.Logger
}

// newEditor builds an editor over an established transport. closer ends
// the transport; health reports whether the editor is still usable.
func newEditor(r io.Reader, w io.Writer, closer io.Closer, cfg config.Config, logger *slog.Logger, ui session.UI) *editor {
	client := rpc.NewClient(w, rpc.WithLogger(logger))

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithCloser(closer),
		session.WithDecodePolicy(cfg.Session.Policy()),
		session.WithUnhandled(session.NewLogSink(logger, cfg.Session.LogRate(), cfg.Session.UnhandledLogBurst)),
	}
	if ui != nil {
		opts = append(opts, session.WithUI(ui))
	}

	return &editor{
		nvim:    api.New(client),
		session: session.New(client, rpc.NewReader(r), opts...),
		health:  func() error { return nil },
		debug:   cfg.Debug.Listen,
		logger:  logger,
	}
}

// startEditor spawns the configured editor and connects to it.
func startEditor(ctx context.Context, cfg config.Config, logger *slog.Logger, ui session.UI) (*editor, error) {
	proc := embed.New(cfg.Nvim, logger)
	if err := proc.Start(ctx); err != nil {
		return nil, fmt.Errorf("start editor: %w", err)
	}

	e := newEditor(proc.Stdout(), proc.Stdin(), proc, cfg, logger, ui)
	e.health = func() error {
		if s := proc.State(); s != embed.StateRunning {
			return fmt.Errorf("editor %s", s)
		}
		return nil
	}
	return e, nil
}

// run serves the connection while fn drives the editor.
//
// Description:
//
//	The session, fn and the optional debug server run in one errgroup.
//	When fn returns, the group is cancelled and the transport closed. An
//	editor that closes the stream cancels fn's context.
//
// Outputs:
//
//	error - fn's error, or the error that ended the session.
func (e *editor) run(ctx context.Context, fn func(ctx context.Context, nv *api.Nvim) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := e.session.Run(gctx)
		switch {
		case err == nil:
			return errEditorExited
		case errors.Is(err, context.Canceled):
			return nil
		default:
			return err
		}
	})

	g.Go(func() error {
		defer cancel()
		return fn(gctx, e.nvim)
	})

	if e.debug != "" {
		router := newDebugRouter("nvimrpc", e.health)
		g.Go(func() error {
			return serveDebug(gctx, e.debug, router, e.logger)
		})
	}

	err := g.Wait()
	if errors.Is(err, errEditorExited) {
		return nil
	}
	return err
}
