// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package uievents

import (
	"errors"
	"fmt"
)

// Sentinel errors for redraw decoding.
var (
	// ErrUnknownEvent indicates a batch whose event name is not recognised.
	ErrUnknownEvent = errors.New("unknown redraw event")

	// ErrMalformedBatch indicates a batch that is not [name, occurrence...].
	ErrMalformedBatch = errors.New("malformed redraw batch")

	// ErrMissingField indicates an occurrence with fewer fields than the event requires.
	ErrMissingField = errors.New("missing field")

	// ErrFieldType indicates a field whose value has the wrong type.
	ErrFieldType = errors.New("wrong field type")

	// ErrOutOfRange indicates a numeric field outside its valid range.
	ErrOutOfRange = errors.New("field out of range")
)

// UnknownEventError reports a redraw batch with an unrecognised event name.
type UnknownEventError struct {
	// Name is the event name as received.
	Name string

	// Batch is the index of the batch within the notification params.
	Batch int
}

// Error implements the error interface.
func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown redraw event %q in batch %d", e.Name, e.Batch)
}

// Is reports whether target is ErrUnknownEvent.
func (e *UnknownEventError) Is(target error) bool {
	return target == ErrUnknownEvent
}

// FieldError reports exactly which part of a redraw notification failed
// to decode.
type FieldError struct {
	// Event is the event name, empty if the batch name itself was unreadable.
	Event string

	// Batch is the index of the batch within the notification params.
	Batch int

	// Occurrence is the index of the occurrence within the batch, or -1
	// when the batch as a whole is malformed.
	Occurrence int

	// Field names the offending field, e.g. "cells[3].repeat".
	Field string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Occurrence < 0 {
		if e.Event == "" {
			return fmt.Sprintf("redraw batch %d: %v", e.Batch, e.Err)
		}
		return fmt.Sprintf("redraw %s batch %d: %v", e.Event, e.Batch, e.Err)
	}
	if e.Field == "" {
		return fmt.Sprintf("redraw %s batch %d occurrence %d: %v", e.Event, e.Batch, e.Occurrence, e.Err)
	}
	return fmt.Sprintf("redraw %s batch %d occurrence %d field %s: %v", e.Event, e.Batch, e.Occurrence, e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FieldError) Unwrap() error { return e.Err }
