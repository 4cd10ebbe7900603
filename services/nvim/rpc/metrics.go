// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rpc

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName names the tracer and meter used by default.
const instrumentationName = "nvimrpc.rpc"

// Call outcomes recorded on the rpc_calls_total counter.
const (
	outcomeOK          = "ok"
	outcomeRemoteError = "remote_error"
	outcomeClosed      = "connection_closed"
	outcomeIO          = "io_error"
	outcomeCollision   = "id_collision"
)

// clientMetrics holds the instruments of one Client.
type clientMetrics struct {
	callLatency metric.Float64Histogram
	calls       metric.Int64Counter
	pending     metric.Int64UpDownCounter
	violations  metric.Int64Counter
	frames      metric.Int64Counter
}

// newClientMetrics creates the client's instruments on m. Instruments that
// fail to register fall back to no-ops so metrics never break a call.
func newClientMetrics(m metric.Meter, logger *slog.Logger) *clientMetrics {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}
	nm := noop.NewMeterProvider().Meter(instrumentationName)
	cm := &clientMetrics{}

	var err error
	if cm.callLatency, err = m.Float64Histogram(
		"nvim_rpc_call_duration_seconds",
		metric.WithDescription("Time from dispatch to answer of msgpack-rpc calls"),
		metric.WithUnit("s"),
	); err != nil {
		logger.Warn("rpc metric registration failed", slog.String("metric", "call_duration"), slog.String("error", err.Error()))
		cm.callLatency, _ = nm.Float64Histogram("nvim_rpc_call_duration_seconds")
	}

	if cm.calls, err = m.Int64Counter(
		"nvim_rpc_calls_total",
		metric.WithDescription("Total number of msgpack-rpc calls by outcome"),
	); err != nil {
		logger.Warn("rpc metric registration failed", slog.String("metric", "calls_total"), slog.String("error", err.Error()))
		cm.calls, _ = nm.Int64Counter("nvim_rpc_calls_total")
	}

	if cm.pending, err = m.Int64UpDownCounter(
		"nvim_rpc_pending_calls",
		metric.WithDescription("Number of calls awaiting a response"),
	); err != nil {
		logger.Warn("rpc metric registration failed", slog.String("metric", "pending_calls"), slog.String("error", err.Error()))
		cm.pending, _ = nm.Int64UpDownCounter("nvim_rpc_pending_calls")
	}

	if cm.violations, err = m.Int64Counter(
		"nvim_rpc_protocol_violations_total",
		metric.WithDescription("Responses for unknown ids and id collisions"),
	); err != nil {
		logger.Warn("rpc metric registration failed", slog.String("metric", "protocol_violations"), slog.String("error", err.Error()))
		cm.violations, _ = nm.Int64Counter("nvim_rpc_protocol_violations_total")
	}

	if cm.frames, err = m.Int64Counter(
		"nvim_rpc_frames_received_total",
		metric.WithDescription("Frames read from the editor by message type"),
	); err != nil {
		logger.Warn("rpc metric registration failed", slog.String("metric", "frames_received"), slog.String("error", err.Error()))
		cm.frames, _ = nm.Int64Counter("nvim_rpc_frames_received_total")
	}

	return cm
}

func (m *clientMetrics) recordCall(ctx context.Context, method, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	)
	m.calls.Add(ctx, 1, attrs)
	if outcome == outcomeOK || outcome == outcomeRemoteError {
		m.callLatency.Record(ctx, d.Seconds(), attrs)
	}
}

func (m *clientMetrics) recordViolation(ctx context.Context, kind string) {
	m.violations.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *clientMetrics) recordFrame(ctx context.Context, t MessageType) {
	m.frames.Add(ctx, 1, metric.WithAttributes(attribute.String("type", t.String())))
}

// startCallSpan creates a span covering one call from dispatch to answer.
func startCallSpan(ctx context.Context, tr trace.Tracer, method string) (context.Context, trace.Span) {
	return tr.Start(ctx, "nvim.rpc.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "msgpack-rpc"),
			attribute.String("rpc.method", method),
		),
	)
}
