// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package nvimtest provides an in-process fake editor for tests.
//
// A Server speaks msgpack-rpc over in-memory pipes. Requests are answered
// by registered handlers; unknown methods get the editor's "Invalid
// method" error. Clients connect through Conn.
package nvimtest

import (
	"errors"
	"io"
	"sync"

	"github.com/AleutianAI/nvimrpc/services/nvim/rpc"
)

// HandlerFunc answers one request. A non-nil error is sent back as an
// editor exception carrying err.Error().
type HandlerFunc func(params []rpc.Value) (rpc.Value, error)

// Server is a fake editor.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Server struct {
	mu            sync.Mutex
	handlers      map[string]HandlerFunc
	requests      []*rpc.Request
	notifications []*rpc.Notification
	responses     []*rpc.Response

	outMu sync.Mutex
	out   *rpc.Writer

	c2sR *io.PipeReader
	c2sW *io.PipeWriter
	s2cR *io.PipeReader
	s2cW *io.PipeWriter

	done chan struct{}
	err  error
}

// NewServer starts a fake editor.
func NewServer() *Server {
	s := &Server{
		handlers: make(map[string]HandlerFunc),
		done:     make(chan struct{}),
	}
	s.c2sR, s.c2sW = io.Pipe()
	s.s2cR, s.s2cW = io.Pipe()
	s.out = rpc.NewWriter(s.s2cW)
	go s.loop()
	return s
}

// Handle registers fn for method, replacing any earlier handler.
func (s *Server) Handle(method string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = fn
}

// Conn returns the client's end of the connection. Closing it closes
// both directions.
func (s *Server) Conn() io.ReadWriteCloser {
	return conn{s: s}
}

// Notify sends a notification to the client. It blocks until the client
// reads the frame.
func (s *Server) Notify(method string, params ...rpc.Value) error {
	return s.send(&rpc.Notification{Method: method, Params: params})
}

// Request sends a server-initiated request with the given id.
func (s *Server) Request(id uint32, method string, params ...rpc.Value) error {
	return s.send(&rpc.Request{ID: id, Method: method, Params: params})
}

// SendResponse writes an arbitrary response frame, e.g. for an id the
// client never used.
func (s *Server) SendResponse(resp *rpc.Response) error {
	return s.send(resp)
}

func (s *Server) send(m rpc.Message) error {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	return s.out.Write(m)
}

// Requests returns the requests received so far.
func (s *Server) Requests() []*rpc.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*rpc.Request(nil), s.requests...)
}

// Notifications returns the notifications received so far.
func (s *Server) Notifications() []*rpc.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*rpc.Notification(nil), s.notifications...)
}

// Responses returns the responses the client sent to server-initiated
// requests so far.
func (s *Server) Responses() []*rpc.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*rpc.Response(nil), s.responses...)
}

// Close disconnects the client. Pending client reads see io.EOF.
func (s *Server) Close() error {
	s.s2cW.Close()
	s.c2sR.Close()
	<-s.done
	return nil
}

// Err returns the error that stopped the server's read loop, if any.
func (s *Server) Err() error {
	<-s.done
	if errors.Is(s.err, io.EOF) || errors.Is(s.err, io.ErrClosedPipe) {
		return nil
	}
	return s.err
}

func (s *Server) loop() {
	defer close(s.done)
	in := rpc.NewReader(s.c2sR)
	for {
		msg, err := in.Read()
		if err != nil {
			s.err = err
			return
		}
		switch m := msg.(type) {
		case *rpc.Request:
			s.mu.Lock()
			s.requests = append(s.requests, m)
			fn := s.handlers[m.Method]
			s.mu.Unlock()
			go s.answer(m, fn)
		case *rpc.Notification:
			s.mu.Lock()
			s.notifications = append(s.notifications, m)
			s.mu.Unlock()
		case *rpc.Response:
			s.mu.Lock()
			s.responses = append(s.responses, m)
			s.mu.Unlock()
		}
	}
}

func (s *Server) answer(req *rpc.Request, fn HandlerFunc) {
	resp := &rpc.Response{ID: req.ID}
	if fn == nil {
		resp.Error = rpc.Array(rpc.Int(rpc.RemoteException), rpc.String("Invalid method: "+req.Method))
	} else if result, err := fn(req.Params); err != nil {
		resp.Error = rpc.Array(rpc.Int(rpc.RemoteException), rpc.String(err.Error()))
	} else {
		resp.Result = result
	}
	// The client may be gone; nothing to report to.
	_ = s.send(resp)
}

type conn struct{ s *Server }

func (c conn) Read(p []byte) (int, error)  { return c.s.s2cR.Read(p) }
func (c conn) Write(p []byte) (int, error) { return c.s.c2sW.Write(p) }

func (c conn) Close() error {
	c.s.s2cR.Close()
	c.s.c2sW.Close()
	return nil
}
