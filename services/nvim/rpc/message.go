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

// =============================================================================
// MSGPACK-RPC MESSAGE TYPES
// =============================================================================

// MessageType is the discriminant in the first element of every frame.
type MessageType int

const (
	TypeRequest      MessageType = 0
	TypeResponse     MessageType = 1
	TypeNotification MessageType = 2
)

// String returns the human-readable name of the message type.
func (t MessageType) String() string {
	switch t {
	case TypeRequest:
		return "request"
	case TypeResponse:
		return "response"
	case TypeNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Message is one msgpack-rpc frame: *Request, *Response or *Notification.
type Message interface {
	// Type returns the frame's type tag.
	Type() MessageType

	isMessage()
}

// Request is a call expecting a Response with the same ID.
//
// Wire shape: [0, id, method, params].
type Request struct {
	ID     uint32
	Method string
	Params []Value
}

// Response answers the Request with the same ID.
//
// Wire shape: [1, id, error, result]. The call failed iff Error is not Nil.
type Response struct {
	ID     uint32
	Error  Value
	Result Value
}

// Notification is a one-way message; no response is expected or possible.
//
// Wire shape: [2, method, params].
type Notification struct {
	Method string
	Params []Value
}

// Type implements Message.
func (*Request) Type() MessageType { return TypeRequest }

// Type implements Message.
func (*Response) Type() MessageType { return TypeResponse }

// Type implements Message.
func (*Notification) Type() MessageType { return TypeNotification }

func (*Request) isMessage()      {}
func (*Response) isMessage()     {}
func (*Notification) isMessage() {}

// Failed reports whether the response carries an error value.
func (r *Response) Failed() bool { return !r.Error.IsNil() }
