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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Sentinel errors for the client lifecycle.
var (
	// ErrNotAnswered indicates Result was called before the call completed.
	ErrNotAnswered = errors.New("call not answered yet")

	// ErrAlreadyServing indicates Serve was called while another read loop runs.
	ErrAlreadyServing = errors.New("client read loop already running")
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler receives the inbound frames that are not responses.
//
// Serve calls the handler from its own goroutine, one frame at a time, in
// stream order. Returning an error stops the read loop.
type Handler interface {
	HandleNotification(ctx context.Context, n *Notification) error
	HandleRequest(ctx context.Context, r *Request) error
}

// =============================================================================
// CALL RESPONSE
// =============================================================================

// CallResponse is the two-stage handle returned for every call.
//
// Description:
//
//	Stage one (Dispatched) completes once the request has been registered
//	and written, or failed to be. Stage two (Done) completes when the
//	editor's answer arrives or the connection ends. A failed dispatch
//	completes both stages with the same error.
//
// Thread Safety:
//
//	Safe for concurrent use. Any number of goroutines may wait on it.
type CallResponse struct {
	method string
	id     uint32

	dispatched  chan struct{}
	dispatchErr error

	done   chan struct{}
	result Value
	err    error

	ctx   context.Context
	span  trace.Span
	start time.Time
}

func newCallResponse(method string) *CallResponse {
	return &CallResponse{
		method:     method,
		dispatched: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Method returns the called method name.
func (cr *CallResponse) Method() string { return cr.method }

// ID returns the request id. It is only meaningful after Dispatched is
// closed without an error.
func (cr *CallResponse) ID() uint32 {
	<-cr.dispatched
	return cr.id
}

// Dispatched is closed when stage one completes.
func (cr *CallResponse) Dispatched() <-chan struct{} { return cr.dispatched }

// DispatchErr returns the stage one error. It blocks until Dispatched is closed.
func (cr *CallResponse) DispatchErr() error {
	<-cr.dispatched
	return cr.dispatchErr
}

// Done is closed when stage two completes.
func (cr *CallResponse) Done() <-chan struct{} { return cr.done }

// Result returns the answer without blocking. Before Done is closed it
// returns ErrNotAnswered. A remote failure is returned as *RemoteError.
func (cr *CallResponse) Result() (Value, error) {
	select {
	case <-cr.done:
		return cr.result, cr.err
	default:
		return Value{}, ErrNotAnswered
	}
}

// Wait blocks until the call is answered or ctx is done.
//
// Description:
//
//	Waits for stage one, then stage two. Giving up through ctx leaves the
//	call registered so a late answer is absorbed by this handle.
//
// Outputs:
//
//	Value - The result on success
//	error - Dispatch error, *RemoteError, ErrConnectionClosed, or ctx.Err()
func (cr *CallResponse) Wait(ctx context.Context) (Value, error) {
	select {
	case <-cr.dispatched:
	case <-ctx.Done():
		return Value{}, ctx.Err()
	}
	if cr.dispatchErr != nil {
		return Value{}, cr.dispatchErr
	}
	select {
	case <-cr.done:
		return cr.result, cr.err
	case <-ctx.Done():
		return Value{}, ctx.Err()
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer used for call spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithMeter sets the meter the client's instruments are created on.
func WithMeter(m metric.Meter) Option {
	return func(c *Client) { c.meter = m }
}

// WithFirstID sets the first request id. Ids wrap around at math.MaxUint32.
func WithFirstID(id uint32) Option {
	return func(c *Client) { c.nextID = id }
}

// Client correlates msgpack-rpc calls with their responses.
//
// Description:
//
//	Client owns the write half of the transport and the table of pending
//	calls. One goroutine runs Serve to drain the read half; any number of
//	goroutines may Call, Go or Notify concurrently.
//
// Thread Safety:
//
//	Safe for concurrent use. pendingMu guards id allocation, the pending
//	table and the closed flag. writeMu guards frame writes. Results are
//	delivered through per-call channels outside both locks.
type Client struct {
	writeMu sync.Mutex
	w       *Writer

	pendingMu sync.Mutex
	pending   map[uint32]*CallResponse
	nextID    uint32
	closed    bool
	closeErr  error

	serving atomic.Bool

	instance string
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter
	metrics  *clientMetrics
}

// NewClient creates a client that writes frames to w.
//
// Inputs:
//
//	w    - Write half of the transport (e.g. the editor's stdin)
//	opts - Optional configuration
//
// Outputs:
//
//	*Client - The client; run Serve to process inbound frames
func NewClient(w io.Writer, opts ...Option) *Client {
	c := &Client{
		w:        NewWriter(w),
		pending:  make(map[uint32]*CallResponse),
		instance: uuid.NewString(),
		logger:   slog.Default(),
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("rpc_client", c.instance))
	c.metrics = newClientMetrics(c.meter, c.logger)
	return c
}

// Instance returns the unique id attached to this client's log records.
func (c *Client) Instance() string { return c.instance }

// Call registers and writes a request, then returns its handle.
//
// Description:
//
//	Stage one completes before Call returns. The returned error equals
//	the handle's DispatchErr: ErrConnectionClosed after the read loop
//	ended, ErrIDCollision if the next id is still pending, or ErrCallIO
//	if the frame could not be written.
//
// Inputs:
//
//	ctx    - Parent context for the call span; a done ctx fails the call
//	method - Remote method name
//	params - Positional arguments
//
// Outputs:
//
//	*CallResponse - The handle; never nil
//	error         - The dispatch error, if any
func (c *Client) Call(ctx context.Context, method string, params ...Value) (*CallResponse, error) {
	cr := newCallResponse(method)
	if err := ctx.Err(); err != nil {
		cr.failDispatch(err)
		return cr, err
	}
	c.dispatch(ctx, cr, params)
	return cr, cr.dispatchErr
}

// Go dispatches a call on a new goroutine and returns its handle at once.
func (c *Client) Go(method string, params ...Value) *CallResponse {
	cr := newCallResponse(method)
	go c.dispatch(context.Background(), cr, params)
	return cr
}

// Request calls method and waits for its result.
func (c *Client) Request(ctx context.Context, method string, params ...Value) (Value, error) {
	cr, err := c.Call(ctx, method, params...)
	if err != nil {
		return Value{}, err
	}
	return cr.Wait(ctx)
}

func (c *Client) dispatch(ctx context.Context, cr *CallResponse, params []Value) {
	c.pendingMu.Lock()
	if c.closed {
		cause := c.closeErr
		c.pendingMu.Unlock()
		c.metrics.recordCall(ctx, cr.method, outcomeClosed, 0)
		cr.failDispatch(closedError(cause))
		return
	}
	id := c.nextID
	c.nextID++
	if _, busy := c.pending[id]; busy {
		c.pendingMu.Unlock()
		c.metrics.recordViolation(ctx, "id_collision")
		c.metrics.recordCall(ctx, cr.method, outcomeCollision, 0)
		c.logger.Error("request id collision",
			slog.Uint64("id", uint64(id)),
			slog.String("method", cr.method),
		)
		cr.failDispatch(fmt.Errorf("%w: id %d", ErrIDCollision, id))
		return
	}
	cr.id = id
	cr.start = time.Now()
	cr.ctx, cr.span = startCallSpan(ctx, c.tracer, cr.method)
	cr.span.SetAttributes(attribute.Int64("rpc.msgpack.id", int64(id)))
	c.pending[id] = cr
	c.pendingMu.Unlock()
	c.metrics.pending.Add(ctx, 1)

	err := c.write(&Request{ID: id, Method: cr.method, Params: params})
	if err != nil {
		c.pendingMu.Lock()
		owned := c.pending[id] == cr
		if owned {
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()
		err = fmt.Errorf("%w: %s: %w", ErrCallIO, cr.method, err)
		c.logger.Warn("request write failed",
			slog.String("method", cr.method),
			slog.String("error", err.Error()),
		)
		if owned {
			c.metrics.pending.Add(ctx, -1)
			c.metrics.recordCall(ctx, cr.method, outcomeIO, 0)
			cr.failDispatch(err)
			return
		}
		// The read loop already settled stage two; report the write failure
		// on stage one only.
		cr.dispatchErr = err
	}
	close(cr.dispatched)
}

// Notify writes a notification frame.
func (c *Client) Notify(ctx context.Context, method string, params ...Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.closedErr(); err != nil {
		return err
	}
	if err := c.write(&Notification{Method: method, Params: params}); err != nil {
		return fmt.Errorf("notify %s: %w", method, err)
	}
	return nil
}

// Respond answers a request initiated by the editor. errValue must be
// Nil for a successful answer.
func (c *Client) Respond(ctx context.Context, id uint32, errValue, result Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.closedErr(); err != nil {
		return err
	}
	if err := c.write(&Response{ID: id, Error: errValue, Result: result}); err != nil {
		return fmt.Errorf("respond to %d: %w", id, err)
	}
	return nil
}

func (c *Client) write(m Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.w.Write(m)
}

func (c *Client) closedErr() error {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.closed {
		return closedError(c.closeErr)
	}
	return nil
}

// HandleResponse settles the pending call that resp answers.
//
// Description:
//
//	Removes the call from the pending table and completes it with the
//	result, or with a *RemoteError when the response carries an error.
//	Each id is settled at most once; a second response for the same id
//	fails with ErrUnknownID.
//
// Outputs:
//
//	error - Wraps ErrUnknownID if no call with resp.ID is pending
func (c *Client) HandleResponse(resp *Response) error {
	c.pendingMu.Lock()
	cr, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.pendingMu.Unlock()

	if !ok {
		c.metrics.recordViolation(context.Background(), "unknown_id")
		return fmt.Errorf("%w: %d", ErrUnknownID, resp.ID)
	}
	c.metrics.pending.Add(cr.ctx, -1)
	if resp.Failed() {
		c.metrics.recordCall(cr.ctx, cr.method, outcomeRemoteError, time.Since(cr.start))
		cr.finish(Value{}, NewRemoteError(resp.Error))
		return nil
	}
	c.metrics.recordCall(cr.ctx, cr.method, outcomeOK, time.Since(cr.start))
	cr.finish(resp.Result, nil)
	return nil
}

// Pending returns the number of calls awaiting an answer.
func (c *Client) Pending() int {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return len(c.pending)
}

// Serve runs the read loop until the stream fails, h returns an error or
// ctx is done.
//
// Description:
//
//	Reads frames in stream order. Responses settle pending calls; an
//	unmatched response is logged as a protocol violation and the loop
//	continues. Notifications and requests go to h. When Serve returns,
//	the client is closed and every pending call fails with
//	ErrConnectionClosed wrapping the cause.
//
//	ctx is checked between frames only. A Read blocked on the transport
//	returns when the transport is closed.
//
// Inputs:
//
//	ctx - Cancels the loop between frames
//	r   - Read half of the transport; owned by Serve for its duration
//	h   - Receives notifications and requests; nil drops them
//
// Outputs:
//
//	error - The error that ended the loop (ErrIO wraps io.EOF on a clean close)
func (c *Client) Serve(ctx context.Context, r *Reader, h Handler) (err error) {
	if !c.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}
	defer c.serving.Store(false)
	defer func() { c.shutdown(err) }()

	c.logger.Debug("rpc read loop started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := r.Read()
		if err != nil {
			return err
		}
		c.metrics.recordFrame(ctx, msg.Type())

		switch m := msg.(type) {
		case *Response:
			if err := c.HandleResponse(m); err != nil {
				c.logger.Error("protocol violation",
					slog.Uint64("id", uint64(m.ID)),
					slog.String("error", err.Error()),
				)
			}
		case *Notification:
			if h == nil {
				c.logger.Debug("dropping notification", slog.String("method", m.Method))
				continue
			}
			if err := h.HandleNotification(ctx, m); err != nil {
				return fmt.Errorf("handle notification %s: %w", m.Method, err)
			}
		case *Request:
			if h == nil {
				c.logger.Debug("dropping request", slog.String("method", m.Method))
				continue
			}
			if err := h.HandleRequest(ctx, m); err != nil {
				return fmt.Errorf("handle request %s: %w", m.Method, err)
			}
		}
	}
}

// Close marks the client closed and fails every pending call with
// ErrConnectionClosed. It does not close the transport. Safe to call
// more than once.
func (c *Client) Close() error {
	c.shutdown(nil)
	return nil
}

func (c *Client) shutdown(cause error) {
	c.pendingMu.Lock()
	if c.closed {
		c.pendingMu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = cause
	calls := c.pending
	c.pending = make(map[uint32]*CallResponse)
	c.pendingMu.Unlock()

	attrs := []any{slog.Int("pending", len(calls))}
	if cause != nil {
		attrs = append(attrs, slog.String("cause", cause.Error()))
	}
	c.logger.Info("rpc connection closed", attrs...)

	err := closedError(cause)
	for _, cr := range calls {
		c.metrics.pending.Add(cr.ctx, -1)
		c.metrics.recordCall(cr.ctx, cr.method, outcomeClosed, time.Since(cr.start))
		cr.finish(Value{}, err)
	}
}

func closedError(cause error) error {
	if cause == nil {
		return ErrConnectionClosed
	}
	return fmt.Errorf("%w: %w", ErrConnectionClosed, cause)
}

// finish completes stage two. Callers must have removed cr from the
// pending table, which guarantees a single call.
func (cr *CallResponse) finish(v Value, err error) {
	cr.result = v
	cr.err = err
	if cr.span != nil {
		if err != nil {
			cr.span.RecordError(err)
			cr.span.SetStatus(codes.Error, err.Error())
		}
		cr.span.End()
	}
	close(cr.done)
}

// failDispatch completes both stages with err.
func (cr *CallResponse) failDispatch(err error) {
	cr.dispatchErr = err
	cr.finish(Value{}, err)
	close(cr.dispatched)
}
