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
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_IntegerNormalization(t *testing.T) {
	t.Run("uint within int64 range is Int", func(t *testing.T) {
		v := Uint(42)
		assert.Equal(t, KindInt, v.Kind())
		assert.True(t, v.Equal(Int(42)))
	})

	t.Run("uint above int64 range stays Uint", func(t *testing.T) {
		v := Uint(math.MaxUint64)
		assert.Equal(t, KindUint, v.Kind())
		_, ok := v.AsInt()
		assert.False(t, ok)
		u, ok := v.AsUint()
		require.True(t, ok)
		assert.Equal(t, uint64(math.MaxUint64), u)
	})

	t.Run("negative int is not a uint", func(t *testing.T) {
		_, ok := Int(-1).AsUint()
		assert.False(t, ok)
	})
}

func TestValue_Accessors(t *testing.T) {
	s, ok := Binary([]byte("abc")).AsString()
	require.True(t, ok, "binary must be readable as string")
	assert.Equal(t, "abc", s)

	f, ok := Int(3).AsFloat()
	require.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = String("x").AsArray()
	assert.False(t, ok)

	b, ok := Bool(true).AsBool()
	require.True(t, ok)
	assert.True(t, b)

	assert.True(t, Value{}.IsNil())
	assert.True(t, Array().Equal(Array()), "empty arrays compare equal")
	assert.False(t, Array().Equal(Nil()))
}

func TestValue_Lookup(t *testing.T) {
	m := Map(
		KV("rgb", Bool(true)),
		MapEntry{Key: Int(1), Value: String("int key")},
		KV("ext_linegrid", Bool(false)),
	)

	v, ok := m.Lookup("ext_linegrid")
	require.True(t, ok)
	assert.True(t, v.Equal(Bool(false)))

	_, ok = m.Lookup("missing")
	assert.False(t, ok)
}

func TestValueOf(t *testing.T) {
	t.Run("scalars", func(t *testing.T) {
		tests := []struct {
			name string
			in   any
			want Value
		}{
			{"nil", nil, Nil()},
			{"bool", true, Bool(true)},
			{"int", 7, Int(7)},
			{"int8", int8(-3), Int(-3)},
			{"uint32", uint32(9), Int(9)},
			{"float32", float32(0.5), Float(0.5)},
			{"string", "hi", String("hi")},
			{"bytes", []byte{1, 2}, Binary([]byte{1, 2})},
			{"value", Int(5), Int(5)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := ValueOf(tt.in)
				require.NoError(t, err)
				assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
			})
		}
	})

	t.Run("go maps are encoded with sorted keys", func(t *testing.T) {
		got, err := ValueOf(map[string]any{"width": 80, "height": 24, "rgb": true})
		require.NoError(t, err)
		want := Map(KV("height", Int(24)), KV("rgb", Bool(true)), KV("width", Int(80)))
		assert.True(t, want.Equal(got), "got %s", got)
	})

	t.Run("nested slices", func(t *testing.T) {
		got, err := ValueOf([]any{"a", []any{1, nil}, Window(3)})
		require.NoError(t, err)
		want := Array(String("a"), Array(Int(1), Nil()), Window(3).Value())
		assert.True(t, want.Equal(got), "got %s", got)
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := ValueOf([]any{struct{}{}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})
}

func TestValue_String(t *testing.T) {
	v := Array(Int(1), String("a"), Map(KV("k", Bool(true))), Nil())
	assert.Equal(t, `[1, "a", {"k": true}, nil]`, v.String())
}

func TestValue_Interface(t *testing.T) {
	v := Array(Int(-2), String("s"), Map(KV("a", Float(1.5))), Tabpage(4).Value())
	got := v.Interface()
	assert.Equal(t, []any{int64(-2), "s", map[string]any{"a": 1.5}, Tabpage(4)}, got)
}

func TestValue_MarshalJSON(t *testing.T) {
	v := Array(Int(1), Map(KV("k", Ext(5, []byte{1}))), Buffer(3).Value(), Nil())
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `[1, {"k": {"ext": 5, "data": "AQ=="}}, 3, null]`, string(data))

	data, err = json.Marshal(Map(MapEntry{Key: Int(1), Value: String("x")}))
	require.NoError(t, err)
	assert.JSONEq(t, `[[1, "x"]]`, string(data))
}

func TestHandles(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		b, err := BufferFrom(Buffer(12).Value())
		require.NoError(t, err)
		assert.Equal(t, Buffer(12), b)

		w, err := WindowFrom(Window(1000).Value())
		require.NoError(t, err)
		assert.Equal(t, Window(1000), w)

		tp, err := TabpageFrom(Tabpage(2).Value())
		require.NoError(t, err)
		assert.Equal(t, Tabpage(2), tp)
	})

	t.Run("ext tag mismatch", func(t *testing.T) {
		_, err := WindowFrom(Buffer(1).Value())
		assert.ErrorIs(t, err, ErrNotHandle)
	})

	t.Run("not an ext", func(t *testing.T) {
		_, err := BufferFrom(Int(1))
		assert.ErrorIs(t, err, ErrNotHandle)
	})

	t.Run("handle encodes as ext with msgpack int payload", func(t *testing.T) {
		tag, data, ok := Window(1).Value().AsExt()
		require.True(t, ok)
		assert.Equal(t, ExtWindow, tag)
		assert.Equal(t, []byte{0x01}, data)
	})
}

func TestRemoteError(t *testing.T) {
	t.Run("type and message pair", func(t *testing.T) {
		e := NewRemoteError(Array(Int(RemoteValidation), String("Invalid buffer id: 99")))
		assert.True(t, e.IsValidation())
		assert.False(t, e.IsException())
		assert.Equal(t, "Invalid buffer id: 99", e.Message)
		assert.Equal(t, "nvim error 1: Invalid buffer id: 99", e.Error())
	})

	t.Run("unexpected shape keeps raw value", func(t *testing.T) {
		e := NewRemoteError(Map(KV("oops", Int(1))))
		assert.Equal(t, int64(-1), e.Type)
		assert.Contains(t, e.Error(), "oops")
	})
}
