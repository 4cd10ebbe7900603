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
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Extension type tags the editor uses for its object handles.
const (
	ExtBuffer  int8 = 0
	ExtWindow  int8 = 1
	ExtTabpage int8 = 2
)

// Buffer is an editor buffer handle.
type Buffer int64

// Window is an editor window handle.
type Window int64

// Tabpage is an editor tabpage handle.
type Tabpage int64

// Value encodes the handle as an ext value.
func (b Buffer) Value() Value { return handleValue(ExtBuffer, int64(b)) }

// Value encodes the handle as an ext value.
func (w Window) Value() Value { return handleValue(ExtWindow, int64(w)) }

// Value encodes the handle as an ext value.
func (t Tabpage) Value() Value { return handleValue(ExtTabpage, int64(t)) }

// BufferFrom extracts a Buffer handle from an ext value.
func BufferFrom(v Value) (Buffer, error) {
	n, err := handleFrom(v, ExtBuffer)
	return Buffer(n), err
}

// WindowFrom extracts a Window handle from an ext value.
func WindowFrom(v Value) (Window, error) {
	n, err := handleFrom(v, ExtWindow)
	return Window(n), err
}

// TabpageFrom extracts a Tabpage handle from an ext value.
func TabpageFrom(v Value) (Tabpage, error) {
	n, err := handleFrom(v, ExtTabpage)
	return Tabpage(n), err
}

func handleValue(tag int8, n int64) Value {
	var buf bytes.Buffer
	// Writes into a bytes.Buffer cannot fail.
	_ = msgpack.NewEncoder(&buf).EncodeInt(n)
	return Ext(tag, buf.Bytes())
}

func handleFrom(v Value, want int8) (int64, error) {
	tag, data, ok := v.AsExt()
	if !ok {
		return 0, fmt.Errorf("%w: got %s", ErrNotHandle, v.Kind())
	}
	if tag != want {
		return 0, fmt.Errorf("%w: ext type %d, want %d", ErrNotHandle, tag, want)
	}
	return decodeHandle(data)
}

func decodeHandle(data []byte) (int64, error) {
	n, err := msgpack.NewDecoder(bytes.NewReader(data)).DecodeInt64()
	if err != nil {
		return 0, fmt.Errorf("%w: handle payload: %v", ErrNotHandle, err)
	}
	return n, nil
}

// handleFromExt maps a known ext value to its handle type.
func handleFromExt(tag int8, data []byte) (any, error) {
	n, err := decodeHandle(data)
	if err != nil {
		return nil, err
	}
	switch tag {
	case ExtBuffer:
		return Buffer(n), nil
	case ExtWindow:
		return Window(n), nil
	case ExtTabpage:
		return Tabpage(n), nil
	}
	return nil, fmt.Errorf("%w: ext type %d", ErrNotHandle, tag)
}
