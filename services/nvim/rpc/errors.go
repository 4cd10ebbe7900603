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
	"errors"
	"fmt"
)

// Sentinel errors for the codec.
var (
	// ErrMalformed indicates a frame whose shape or field types do not match its tag.
	ErrMalformed = errors.New("malformed msgpack-rpc frame")

	// ErrUnknownType indicates a frame whose type tag is not 0, 1 or 2.
	ErrUnknownType = errors.New("unknown msgpack-rpc message type")

	// ErrIO indicates the underlying stream failed or was closed.
	ErrIO = errors.New("msgpack-rpc stream failure")

	// ErrUnsupportedType indicates a Go value with no msgpack representation.
	ErrUnsupportedType = errors.New("unsupported value type")

	// ErrNotHandle indicates an ext value that does not carry the requested handle.
	ErrNotHandle = errors.New("value is not an editor handle")
)

// Sentinel errors for call correlation.
var (
	// ErrUnknownID indicates a response for an id with no outstanding call.
	ErrUnknownID = errors.New("response for unknown request id")

	// ErrIDCollision indicates the next request id is still held by a pending call.
	ErrIDCollision = errors.New("request id collides with a pending call")

	// ErrCallIO indicates the request frame could not be written.
	ErrCallIO = errors.New("failed to write request")

	// ErrConnectionClosed indicates the connection ended before the call was answered.
	ErrConnectionClosed = errors.New("connection closed")
)

// Editor error kinds reported in the first element of a response error.
const (
	RemoteException  int64 = 0
	RemoteValidation int64 = 1
)

// RemoteError is an error value reported by the editor in a Response.
//
// The editor sends errors as a two element array [type, message]. Values
// of any other shape are kept in Raw with Type set to -1.
type RemoteError struct {
	// Type is the editor error kind (RemoteException or RemoteValidation).
	Type int64

	// Message is the error text.
	Message string

	// Raw is the error value as received.
	Raw Value
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("nvim error: %s", e.Raw)
	}
	return fmt.Sprintf("nvim error %d: %s", e.Type, e.Message)
}

// IsValidation returns true if the editor rejected the call's arguments.
func (e *RemoteError) IsValidation() bool {
	return e.Type == RemoteValidation
}

// IsException returns true if the call raised an editor exception.
func (e *RemoteError) IsException() bool {
	return e.Type == RemoteException
}

// NewRemoteError interprets a Response error value.
func NewRemoteError(v Value) *RemoteError {
	e := &RemoteError{Type: -1, Raw: v}
	items, ok := v.AsArray()
	if !ok || len(items) < 2 {
		if s, ok := v.AsString(); ok {
			e.Message = s
		}
		return e
	}
	if t, ok := items[0].AsInt(); ok {
		e.Type = t
	}
	if s, ok := items[1].AsString(); ok {
		e.Message = s
	}
	return e
}
