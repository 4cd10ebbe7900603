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
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errWriter fails every write.
type errWriter struct{ err error }

func (w errWriter) Write([]byte) (int, error) { return 0, w.err }

// countingWriter records how many Write calls reached it.
type countingWriter struct {
	bytes.Buffer
	writes int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.Buffer.Write(p)
}

func assertMessageEqual(t *testing.T, want, got Message) {
	t.Helper()
	require.IsType(t, want, got)
	switch w := want.(type) {
	case *Request:
		g := got.(*Request)
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Method, g.Method)
		assert.True(t, Array(w.Params...).Equal(Array(g.Params...)), "params: got %s, want %s", Array(g.Params...), Array(w.Params...))
	case *Response:
		g := got.(*Response)
		assert.Equal(t, w.ID, g.ID)
		assert.True(t, w.Error.Equal(g.Error), "error: got %s, want %s", g.Error, w.Error)
		assert.True(t, w.Result.Equal(g.Result), "result: got %s, want %s", g.Result, w.Result)
	case *Notification:
		g := got.(*Notification)
		assert.Equal(t, w.Method, g.Method)
		assert.True(t, Array(w.Params...).Equal(Array(g.Params...)), "params: got %s, want %s", Array(g.Params...), Array(w.Params...))
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	everyKind := []Value{
		Nil(),
		Bool(false),
		Bool(true),
		Int(0),
		Int(-1),
		Int(-129),
		Int(200),
		Int(math.MaxInt64),
		Int(math.MinInt64),
		Uint(math.MaxUint64),
		Float(3.25),
		Float(math.Inf(-1)),
		String(""),
		String("héllo"),
		Binary(nil),
		Binary(bytes.Repeat([]byte{0xab}, 300)),
		Array(),
		Array(Int(1), Array(String("nested"))),
		Map(),
		Map(KV("rgb", Bool(true)), MapEntry{Key: Int(3), Value: Nil()}),
		Buffer(1).Value(),
		Window(1000).Value(),
		Ext(42, []byte{1, 2, 3}),
	}

	tests := []struct {
		name string
		msg  Message
	}{
		{"request", &Request{ID: 7, Method: "nvim_ui_attach", Params: []Value{Int(80), Int(30), Map(KV("rgb", Bool(true)))}}},
		{"request without params", &Request{ID: 0, Method: "nvim_get_api_info"}},
		{"request with max id", &Request{ID: math.MaxUint32, Method: "m", Params: everyKind}},
		{"response with result", &Response{ID: 1, Result: String("ok")}},
		{"response with error", &Response{ID: 2, Error: Array(Int(0), String("boom"))}},
		{"response with neither", &Response{ID: 3}},
		{"notification", &Notification{Method: "redraw", Params: []Value{Array(String("flush"), Array())}}},
		{"notification carrying every kind", &Notification{Method: "all", Params: everyKind}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewWriter(&buf).Write(tt.msg))

			got, err := NewReader(&buf).Read()
			require.NoError(t, err)
			assertMessageEqual(t, tt.msg, got)
		})
	}
}

func TestCodec_WireShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).Write(&Notification{Method: "a"}))
	// fixarray(3), 2, fixstr "a", fixarray(0)
	assert.Equal(t, []byte{0x93, 0x02, 0xa1, 'a', 0x90}, buf.Bytes())

	buf.Reset()
	require.NoError(t, NewWriter(&buf).Write(&Request{ID: 1, Method: "m"}))
	assert.Equal(t, []byte{0x94, 0x00, 0x01, 0xa1, 'm', 0x90}, buf.Bytes())

	buf.Reset()
	require.NoError(t, NewWriter(&buf).Write(&Response{ID: 1, Result: Int(5)}))
	assert.Equal(t, []byte{0x94, 0x01, 0x01, 0xc0, 0x05}, buf.Bytes())
}

func TestCodec_StreamOrder(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	msgs := []Message{
		&Notification{Method: "first"},
		&Response{ID: 9, Result: Int(1)},
		&Request{ID: 4, Method: "third"},
	}
	for _, m := range msgs {
		require.NoError(t, w.Write(m))
	}

	r := NewReader(&buf)
	for _, want := range msgs {
		got, err := r.Read()
		require.NoError(t, err)
		assertMessageEqual(t, want, got)
	}

	_, err := r.Read()
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_Errors(t *testing.T) {
	frame := func(v Value) []byte {
		b, err := Marshal(v)
		require.NoError(t, err)
		return b
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not an array", frame(Int(5)), ErrMalformed},
		{"empty array", frame(Array()), ErrMalformed},
		{"tag not an integer", frame(Array(String("0"), Int(1), String("m"), Array())), ErrMalformed},
		{"unknown type tag", frame(Array(Int(3), Int(1), Nil(), Nil())), ErrUnknownType},
		{"request arity", frame(Array(Int(0), Int(1), String("m"))), ErrMalformed},
		{"response arity", frame(Array(Int(1), Int(1), Nil(), Nil(), Nil())), ErrMalformed},
		{"notification arity", frame(Array(Int(2), String("m"))), ErrMalformed},
		{"negative id", frame(Array(Int(0), Int(-1), String("m"), Array())), ErrMalformed},
		{"id wider than 32 bits", frame(Array(Int(1), Int(1<<33), Nil(), Nil())), ErrMalformed},
		{"method not a string", frame(Array(Int(0), Int(1), Int(7), Array())), ErrMalformed},
		{"params not an array", frame(Array(Int(2), String("m"), Nil())), ErrMalformed},
		{"reserved code", []byte{0xc1}, ErrMalformed},
		{"truncated frame", []byte{0x93, 0x02, 0xa1}, ErrIO},
		{"empty stream", nil, ErrIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(bytes.NewReader(tt.data)).Read()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReader_DepthLimit(t *testing.T) {
	data := append(bytes.Repeat([]byte{0x91}, maxValueDepth+10), 0xc0)
	_, err := Unmarshal(data)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestWriter_Errors(t *testing.T) {
	t.Run("stream failure", func(t *testing.T) {
		boom := errors.New("broken pipe")
		err := NewWriter(errWriter{err: boom}).Write(&Notification{Method: "x"})
		assert.ErrorIs(t, err, ErrIO)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nil message", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewWriter(&buf).Write((*Request)(nil))
		assert.ErrorIs(t, err, ErrUnknownType)
		assert.Zero(t, buf.Len(), "nothing must reach the stream")
	})

	t.Run("value nested too deep", func(t *testing.T) {
		v := Nil()
		for i := 0; i < maxValueDepth+5; i++ {
			v = Array(v)
		}
		var buf bytes.Buffer
		w := NewWriter(&buf)
		big := String(strings.Repeat("x", 5000))
		err := w.Write(&Notification{Method: "deep", Params: []Value{big, v}})
		assert.ErrorIs(t, err, ErrMalformed)
		assert.Zero(t, buf.Len(), "failed frame must not reach the stream")

		require.NoError(t, w.Write(&Notification{Method: "next"}))
		got, err := NewReader(&buf).Read()
		require.NoError(t, err)
		assert.Equal(t, "next", got.(*Notification).Method, "partial frame must be discarded")
	})
}

func TestWriter_LargeFrameSingleWrite(t *testing.T) {
	var sink countingWriter
	w := NewWriter(&sink)
	params := []Value{String(strings.Repeat("a", 20000)), Binary(bytes.Repeat([]byte{7}, 9000))}
	require.NoError(t, w.Write(&Request{ID: 3, Method: "nvim_buf_set_lines", Params: params}))
	require.NoError(t, w.Write(&Notification{Method: "after"}))
	assert.Equal(t, 2, sink.writes)

	r := NewReader(&sink.Buffer)
	got, err := r.Read()
	require.NoError(t, err)
	assertMessageEqual(t, &Request{ID: 3, Method: "nvim_buf_set_lines", Params: params}, got)
	got, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, "after", got.(*Notification).Method)
}

func TestReader_PayloadLimit(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"str32", []byte{0xdb, 0xff, 0xff, 0xff, 0xff}},
		{"bin32", []byte{0xc6, 0xff, 0xff, 0xff, 0xff}},
		{"ext32", []byte{0xc9, 0xff, 0xff, 0xff, 0xff, 0x05}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestUnmarshal_TrailingBytes(t *testing.T) {
	_, err := Unmarshal([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrMalformed)

	v, err := Unmarshal([]byte{0x01})
	require.NoError(t, err)
	assert.True(t, v.Equal(Int(1)))
}
