// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/AleutianAI/nvimrpc/services/nvim/uievents"
)

const instrumentationName = "nvimrpc.session"

// sessionMetrics holds the instruments of one Session.
type sessionMetrics struct {
	events       metric.Int64Counter
	decodeErrors metric.Int64Counter
	unhandled    metric.Int64Counter
}

func newSessionMetrics(m metric.Meter, logger *slog.Logger) *sessionMetrics {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}
	nm := noop.NewMeterProvider().Meter(instrumentationName)
	sm := &sessionMetrics{}

	var err error
	if sm.events, err = m.Int64Counter(
		"nvim_session_redraw_events_total",
		metric.WithDescription("Total number of decoded redraw events by name"),
	); err != nil {
		logger.Warn("session metric registration failed", slog.String("metric", "redraw_events_total"), slog.String("error", err.Error()))
		sm.events, _ = nm.Int64Counter("nvim_session_redraw_events_total")
	}

	if sm.decodeErrors, err = m.Int64Counter(
		"nvim_session_decode_errors_total",
		metric.WithDescription("Total number of redraw notifications that failed to decode"),
	); err != nil {
		logger.Warn("session metric registration failed", slog.String("metric", "decode_errors_total"), slog.String("error", err.Error()))
		sm.decodeErrors, _ = nm.Int64Counter("nvim_session_decode_errors_total")
	}

	if sm.unhandled, err = m.Int64Counter(
		"nvim_session_unhandled_total",
		metric.WithDescription("Total number of messages passed to the unhandled sink"),
	); err != nil {
		logger.Warn("session metric registration failed", slog.String("metric", "unhandled_total"), slog.String("error", err.Error()))
		sm.unhandled, _ = nm.Int64Counter("nvim_session_unhandled_total")
	}

	return sm
}

func (m *sessionMetrics) recordEvents(ctx context.Context, events []uievents.Event) {
	for _, ev := range events {
		m.events.Add(ctx, int64(ev.Len()), metric.WithAttributes(attribute.String("event", ev.Name())))
	}
}

func (m *sessionMetrics) recordDecodeError(ctx context.Context, err error) {
	kind := "field"
	if errors.Is(err, uievents.ErrUnknownEvent) {
		kind = "unknown_event"
	}
	m.decodeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *sessionMetrics) recordUnhandled(ctx context.Context, kind, method string) {
	m.unhandled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("method", method),
	))
}
