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
	"log/slog"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/nvimrpc/services/nvim/rpc"
)

// Default LogSink throttling.
const (
	DefaultLogRate  = rate.Limit(10)
	DefaultLogBurst = 20
)

// LogSink is an UnhandledSink that logs what it receives.
//
// Description:
//
//	Log lines are rate limited; messages over the limit are counted and
//	the count is reported with the next line that gets through. Requests
//	are never answered here, so HandleRequest returns ErrUnhandledRequest.
//
// Thread Safety:
//
//	Safe for concurrent use.
type LogSink struct {
	logger     *slog.Logger
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

// NewLogSink creates a LogSink allowing limit lines per second with the
// given burst. A non-positive limit disables throttling.
func NewLogSink(logger *slog.Logger, limit rate.Limit, burst int) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &LogSink{
		logger:  logger,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// HandleNotification logs n.
func (l *LogSink) HandleNotification(ctx context.Context, n *rpc.Notification) error {
	l.log(ctx, "unhandled notification",
		slog.String("method", n.Method),
		slog.Int("params", len(n.Params)),
	)
	return nil
}

// HandleRequest logs r and reports it as unanswered.
func (l *LogSink) HandleRequest(ctx context.Context, r *rpc.Request) error {
	l.log(ctx, "unhandled request",
		slog.Uint64("id", uint64(r.ID)),
		slog.String("method", r.Method),
		slog.Int("params", len(r.Params)),
	)
	return ErrUnhandledRequest
}

// Suppressed returns the number of lines dropped since the last one logged.
func (l *LogSink) Suppressed() int64 {
	return l.suppressed.Load()
}

func (l *LogSink) log(ctx context.Context, msg string, attrs ...slog.Attr) {
	if !l.limiter.Allow() {
		l.suppressed.Add(1)
		return
	}
	if n := l.suppressed.Swap(0); n > 0 {
		attrs = append(attrs, slog.Int64("suppressed", n))
	}
	l.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}
