// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session runs the read side of an editor connection.
//
// A Session owns the rpc read loop. Redraw notifications are decoded
// into typed events and handed to a UI in stream order; every other
// notification or request goes to an UnhandledSink.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/nvimrpc/services/nvim/rpc"
	"github.com/AleutianAI/nvimrpc/services/nvim/uievents"
)

// RedrawMethod is the notification carrying UI events.
const RedrawMethod = "redraw"

// UI receives decoded redraw events.
type UI interface {
	// HandleEvents is called once per redraw notification with its events
	// in batch order. A non-nil error stops the session.
	HandleEvents(ctx context.Context, events []uievents.Event) error
}

// UIFunc adapts a function to the UI interface.
type UIFunc func(ctx context.Context, events []uievents.Event) error

// HandleEvents calls f.
func (f UIFunc) HandleEvents(ctx context.Context, events []uievents.Event) error {
	return f(ctx, events)
}

// UnhandledSink receives the messages a session does not route itself.
//
// HandleRequest returns ErrUnhandledRequest when it did not reply; the
// session then answers with an exception. Any other error stops the
// session.
type UnhandledSink interface {
	HandleNotification(ctx context.Context, n *rpc.Notification) error
	HandleRequest(ctx context.Context, r *rpc.Request) error
}

// Option configures a Session.
type Option func(*Session)

// WithUI sets the redraw receiver. Without one, decoded events are dropped.
func WithUI(ui UI) Option {
	return func(s *Session) { s.ui = ui }
}

// WithUnhandled sets the sink for non-redraw traffic. The default is a LogSink.
func WithUnhandled(sink UnhandledSink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithDecodePolicy sets the decode failure policy. The default is PolicySkip.
func WithDecodePolicy(p Policy) Option {
	return func(s *Session) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMeter sets the meter used for session instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Session) { s.meter = m }
}

// WithCloser sets the transport closer. Run closes it when its context
// is cancelled so a blocked read returns, and again when the loop ends.
func WithCloser(c io.Closer) Option {
	return func(s *Session) { s.closer = c }
}

// Session routes inbound traffic of one editor connection.
//
// Thread Safety:
//
//	Run may be called once. The Handler methods are called from the read
//	loop only.
type Session struct {
	client *rpc.Client
	reader *rpc.Reader

	ui     UI
	sink   UnhandledSink
	policy Policy
	closer io.Closer

	logger  *slog.Logger
	meter   metric.Meter
	metrics *sessionMetrics
}

var _ rpc.Handler = (*Session)(nil)

// New creates a Session reading frames from reader and answering through
// client.
func New(client *rpc.Client, reader *rpc.Reader, opts ...Option) *Session {
	s := &Session{
		client: client,
		reader: reader,
		policy: PolicySkip,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "nvim_session"))
	if s.sink == nil {
		s.sink = NewLogSink(s.logger, DefaultLogRate, DefaultLogBurst)
	}
	s.metrics = newSessionMetrics(s.meter, s.logger)
	return s
}

// Run serves the connection until it ends or ctx is cancelled.
//
// Description:
//
//	Runs the client's read loop with the session as handler. Cancelling
//	ctx closes the transport, which unblocks the read; the client then
//	fails every pending call with rpc.ErrConnectionClosed.
//
// Inputs:
//
//	ctx - Session lifetime
//
// Outputs:
//
//	error - nil when the editor closed the stream, ctx.Err() when
//	        cancelled, otherwise the error that ended the loop.
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.client.Serve(gctx, s.reader, s)
	})

	g.Go(func() error {
		<-gctx.Done()
		s.closeTransport()
		return nil
	})

	err := g.Wait()
	switch {
	case ctx.Err() != nil:
		s.logger.Info("session cancelled")
		return ctx.Err()
	case errors.Is(err, io.EOF):
		s.logger.Info("editor closed the connection")
		return nil
	default:
		s.logger.Error("session ended", slog.String("error", err.Error()))
		return err
	}
}

func (s *Session) closeTransport() {
	if s.closer == nil {
		return
	}
	if err := s.closer.Close(); err != nil {
		s.logger.Debug("closing transport", slog.String("error", err.Error()))
	}
}

// HandleNotification routes one notification.
func (s *Session) HandleNotification(ctx context.Context, n *rpc.Notification) error {
	if n.Method != RedrawMethod {
		s.metrics.recordUnhandled(ctx, "notification", n.Method)
		return s.sink.HandleNotification(ctx, n)
	}

	events, err := uievents.Decode(n.Params)
	if err != nil {
		s.metrics.recordDecodeError(ctx, err)
		if s.policy == PolicyHalt {
			return fmt.Errorf("decode redraw: %w", err)
		}
		s.logger.Error("dropping redraw notification", decodeErrorAttrs(err)...)
		return nil
	}

	s.metrics.recordEvents(ctx, events)
	if s.ui == nil {
		return nil
	}
	return s.ui.HandleEvents(ctx, events)
}

// HandleRequest passes a request to the sink and answers it with an
// exception when the sink did not.
func (s *Session) HandleRequest(ctx context.Context, r *rpc.Request) error {
	s.metrics.recordUnhandled(ctx, "request", r.Method)

	err := s.sink.HandleRequest(ctx, r)
	if !errors.Is(err, ErrUnhandledRequest) {
		return err
	}

	errValue := rpc.Array(
		rpc.Int(rpc.RemoteException),
		rpc.String("method not supported: "+r.Method),
	)
	if err := s.client.Respond(ctx, r.ID, errValue, rpc.Nil()); err != nil {
		return fmt.Errorf("respond to %s: %w", r.Method, err)
	}
	return nil
}

// decodeErrorAttrs names exactly what failed to decode.
func decodeErrorAttrs(err error) []any {
	attrs := []any{slog.String("error", err.Error())}

	var unknown *uievents.UnknownEventError
	var field *uievents.FieldError
	switch {
	case errors.As(err, &unknown):
		attrs = append(attrs,
			slog.String("event", unknown.Name),
			slog.Int("batch", unknown.Batch),
		)
	case errors.As(err, &field):
		attrs = append(attrs,
			slog.String("event", field.Event),
			slog.Int("batch", field.Batch),
			slog.Int("occurrence", field.Occurrence),
			slog.String("field", field.Field),
		)
	}
	return attrs
}
