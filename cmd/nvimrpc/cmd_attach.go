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
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/nvimrpc/services/nvim/api"
	"github.com/AleutianAI/nvimrpc/services/nvim/uievents"
)

type attachOptions struct {
	width    int
	height   int
	exec     []string
	events   []string
	duration time.Duration
}

func newAttachCmd(a *app) *cobra.Command {
	var opts attachOptions

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach as a UI and print redraw events as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.width <= 0 {
				opts.width = a.cfg.UI.Width
			}
			if opts.height <= 0 {
				opts.height = a.cfg.UI.Height
			}

			dumper := newEventDumper(cmd.OutOrStdout(), opts.events)
			e, err := startEditor(cmd.Context(), a.cfg, a.logger, dumper)
			if err != nil {
				return err
			}
			return e.run(cmd.Context(), attachFunc(a.cfg.UI.Options, opts))
		},
	}

	cmd.Flags().IntVar(&opts.width, "width", 0, "Grid width (default from config)")
	cmd.Flags().IntVar(&opts.height, "height", 0, "Grid height (default from config)")
	cmd.Flags().StringArrayVar(&opts.exec, "exec", nil, "Ex command to run after attaching (repeatable)")
	cmd.Flags().StringSliceVar(&opts.events, "events", nil, "Only print these event names")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "Detach after this long (0 waits for interrupt)")
	return cmd
}

// attachFunc attaches, runs the startup commands and then waits.
func attachFunc(uiOpts api.UIOptions, opts attachOptions) func(context.Context, *api.Nvim) error {
	return func(ctx context.Context, nv *api.Nvim) error {
		if err := nv.SetClientInfo(ctx, clientInfo()); err != nil {
			return fmt.Errorf("set client info: %w", err)
		}

		cr, err := nv.UIAttach(ctx, opts.width, opts.height, uiOpts)
		if err != nil {
			return err
		}
		if _, err := cr.Wait(ctx); err != nil {
			return fmt.Errorf("ui attach: %w", err)
		}

		for _, c := range opts.exec {
			if err := nv.Command(ctx, c); err != nil {
				return fmt.Errorf("exec %q: %w", c, err)
			}
		}

		if opts.duration > 0 {
			timer := time.NewTimer(opts.duration)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nv.UIDetach(ctx)
			case <-ctx.Done():
				return nil
			}
		}
		<-ctx.Done()
		return nil
	}
}

// dumpRecord is one line of attach output.
type dumpRecord struct {
	Event string         `json:"event"`
	Count int            `json:"count"`
	Data  uievents.Event `json:"data"`
}

// eventDumper is a session UI writing one JSON object per event.
type eventDumper struct {
	mu     sync.Mutex
	enc    *json.Encoder
	filter map[string]bool
}

func newEventDumper(w io.Writer, only []string) *eventDumper {
	d := &eventDumper{enc: json.NewEncoder(w)}
	if len(only) > 0 {
		d.filter = make(map[string]bool, len(only))
		for _, name := range only {
			d.filter[strings.TrimSpace(name)] = true
		}
	}
	return d
}

// HandleEvents writes events in order.
func (d *eventDumper) HandleEvents(_ context.Context, events []uievents.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ev := range events {
		if d.filter != nil && !d.filter[ev.Name()] {
			continue
		}
		if err := d.enc.Encode(dumpRecord{Event: ev.Name(), Count: ev.Len(), Data: ev}); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}
	return nil
}
