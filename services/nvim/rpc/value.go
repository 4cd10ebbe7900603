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
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// =============================================================================
// VALUE MODEL
// =============================================================================

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBinary
	KindArray
	KindMap
	KindExt
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindExt:
		return "ext"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a dynamically tagged msgpack value.
//
// Description:
//
//	Value is the payload type of every message field. The zero Value is
//	Nil. Integers that fit in an int64 are always held as KindInt; KindUint
//	is reserved for values above math.MaxInt64 so that every Value has
//	exactly one encoding. Maps keep their wire order.
//
// Thread Safety:
//
//	Values are immutable once constructed and safe to share between
//	goroutines. Slices returned by accessors must not be modified.
type Value struct {
	kind  Kind
	bits  uint64
	str   string
	bytes []byte
	items []Value
	pairs []MapEntry
	ext   int8
}

// MapEntry is one key/value pair of a Map value.
type MapEntry struct {
	Key   Value
	Value Value
}

// KV builds a MapEntry with a string key.
func KV(key string, v Value) MapEntry {
	return MapEntry{Key: String(key), Value: v}
}

// Nil returns the nil value.
func Nil() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.bits = 1
	}
	return v
}

// Int wraps a signed integer.
func Int(i int64) Value { return Value{kind: KindInt, bits: uint64(i)} }

// Uint wraps an unsigned integer. Values that fit in an int64 are stored
// as KindInt.
func Uint(u uint64) Value {
	if u <= math.MaxInt64 {
		return Int(int64(u))
	}
	return Value{kind: KindUint, bits: u}
}

// Float wraps a floating point number.
func Float(f float64) Value { return Value{kind: KindFloat, bits: math.Float64bits(f)} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Binary wraps a byte slice. The slice is not copied.
func Binary(b []byte) Value {
	if len(b) == 0 {
		b = nil
	}
	return Value{kind: KindBinary, bytes: b}
}

// Array builds an array value from its elements.
func Array(items ...Value) Value {
	if len(items) == 0 {
		items = nil
	}
	return Value{kind: KindArray, items: items}
}

// Map builds a map value; entries keep the given order.
func Map(entries ...MapEntry) Value {
	if len(entries) == 0 {
		entries = nil
	}
	return Value{kind: KindMap, pairs: entries}
}

// Ext builds an extension value with the given type tag and raw payload.
func Ext(tag int8, data []byte) Value {
	if len(data) == 0 {
		data = nil
	}
	return Value{kind: KindExt, ext: tag, bytes: data}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is Nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.bits == 1, true
}

// AsInt returns v as an int64. Uint values above math.MaxInt64 do not fit
// and report false.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return int64(v.bits), true
}

// AsUint returns v as a uint64. Negative integers report false.
func (v Value) AsUint() (uint64, bool) {
	switch v.kind {
	case KindUint:
		return v.bits, true
	case KindInt:
		if int64(v.bits) < 0 {
			return 0, false
		}
		return v.bits, true
	}
	return 0, false
}

// AsFloat returns v as a float64. Integer values are converted.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return math.Float64frombits(v.bits), true
	case KindInt:
		return float64(int64(v.bits)), true
	case KindUint:
		return float64(v.bits), true
	}
	return 0, false
}

// AsString returns v as a string. Binary values are accepted because
// older editors send strings as raw bytes.
func (v Value) AsString() (string, bool) {
	switch v.kind {
	case KindString:
		return v.str, true
	case KindBinary:
		return string(v.bytes), true
	}
	return "", false
}

// AsBytes returns the bytes of a Binary or String value.
func (v Value) AsBytes() ([]byte, bool) {
	switch v.kind {
	case KindBinary:
		return v.bytes, true
	case KindString:
		return []byte(v.str), true
	}
	return nil, false
}

// AsArray returns the elements of an Array value.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.items, true
}

// AsMap returns the entries of a Map value in wire order.
func (v Value) AsMap() ([]MapEntry, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.pairs, true
}

// AsExt returns the type tag and payload of an Ext value.
func (v Value) AsExt() (int8, []byte, bool) {
	if v.kind != KindExt {
		return 0, nil, false
	}
	return v.ext, v.bytes, true
}

// Lookup finds the first entry of a Map value whose key is the string key.
func (v Value) Lookup(key string) (Value, bool) {
	for _, e := range v.pairs {
		if k, ok := e.Key.AsString(); ok && k == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Equal reports whether v and o hold the same variant and contents.
// Floats compare by bit pattern, so NaN equals an identical NaN.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool, KindInt, KindUint, KindFloat:
		return v.bits == o.bits
	case KindString:
		return v.str == o.str
	case KindBinary:
		return bytes.Equal(v.bytes, o.bytes)
	case KindExt:
		return v.ext == o.ext && bytes.Equal(v.bytes, o.bytes)
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.pairs) != len(o.pairs) {
			return false
		}
		for i := range v.pairs {
			if !v.pairs[i].Key.Equal(o.pairs[i].Key) || !v.pairs[i].Value.Equal(o.pairs[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts v into plain Go values: nil, bool, int64, uint64,
// float64, string, []byte, []any and map[string]any. Maps with a
// non-string key become [][2]any. Known extensions become handles.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.bits == 1
	case KindInt:
		return int64(v.bits)
	case KindUint:
		return v.bits
	case KindFloat:
		return math.Float64frombits(v.bits)
	case KindString:
		return v.str
	case KindBinary:
		return v.bytes
	case KindArray:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Interface()
		}
		return out
	case KindMap:
		m := make(map[string]any, len(v.pairs))
		for _, e := range v.pairs {
			k, ok := e.Key.AsString()
			if !ok {
				pairs := make([][2]any, len(v.pairs))
				for i, p := range v.pairs {
					pairs[i] = [2]any{p.Key.Interface(), p.Value.Interface()}
				}
				return pairs
			}
			m[k] = e.Value.Interface()
		}
		return m
	case KindExt:
		if h, err := handleFromExt(v.ext, v.bytes); err == nil {
			return h
		}
		return v
	}
	return nil
}

// MarshalJSON renders v in its Interface form. Extension values that are
// not handles become {"ext": type, "data": base64}.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.jsonValue())
}

func (v Value) jsonValue() any {
	switch v.kind {
	case KindArray:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.jsonValue()
		}
		return out
	case KindMap:
		m := make(map[string]any, len(v.pairs))
		for _, e := range v.pairs {
			k, ok := e.Key.AsString()
			if !ok {
				pairs := make([][2]any, len(v.pairs))
				for i, p := range v.pairs {
					pairs[i] = [2]any{p.Key.jsonValue(), p.Value.jsonValue()}
				}
				return pairs
			}
			m[k] = e.Value.jsonValue()
		}
		return m
	case KindExt:
		if h, err := handleFromExt(v.ext, v.bytes); err == nil {
			return h
		}
		return map[string]any{"ext": v.ext, "data": v.bytes}
	}
	return v.Interface()
}

// String renders v in a compact debugging notation.
func (v Value) String() string {
	var sb strings.Builder
	v.format(&sb)
	return sb.String()
}

func (v Value) format(sb *strings.Builder) {
	switch v.kind {
	case KindNil:
		sb.WriteString("nil")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.bits == 1))
	case KindInt:
		sb.WriteString(strconv.FormatInt(int64(v.bits), 10))
	case KindUint:
		sb.WriteString(strconv.FormatUint(v.bits, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64))
	case KindString:
		sb.WriteString(strconv.Quote(v.str))
	case KindBinary:
		fmt.Fprintf(sb, "bin(%x)", v.bytes)
	case KindExt:
		fmt.Fprintf(sb, "ext(%d, %x)", v.ext, v.bytes)
	case KindArray:
		sb.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			it.format(sb)
		}
		sb.WriteByte(']')
	case KindMap:
		sb.WriteByte('{')
		for i, e := range v.pairs {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.Key.format(sb)
			sb.WriteString(": ")
			e.Value.format(sb)
		}
		sb.WriteByte('}')
	}
}

// =============================================================================
// CONVERSION FROM GO VALUES
// =============================================================================

// ValueOf converts a Go value into a Value.
//
// Description:
//
//	Accepts nil, Value, bool, every integer and float width, string,
//	[]byte, []Value, []any, []string, map[string]any, map[string]Value,
//	[]MapEntry and the Buffer/Window/Tabpage handles. Maps built from Go
//	maps are encoded with their keys sorted so output is deterministic.
//
// Outputs:
//
//	Value - The converted value
//	error - Non-nil if v (or a nested element) has an unsupported type
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Nil(), nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Uint(uint64(x)), nil
	case uint8:
		return Uint(uint64(x)), nil
	case uint16:
		return Uint(uint64(x)), nil
	case uint32:
		return Uint(uint64(x)), nil
	case uint64:
		return Uint(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return String(x), nil
	case []byte:
		return Binary(x), nil
	case Buffer:
		return x.Value(), nil
	case Window:
		return x.Value(), nil
	case Tabpage:
		return x.Value(), nil
	case []Value:
		return Array(x...), nil
	case []MapEntry:
		return Map(x...), nil
	case []string:
		items := make([]Value, len(x))
		for i, s := range x {
			items[i] = String(s)
		}
		return Array(items...), nil
	case []any:
		items := make([]Value, len(x))
		for i, it := range x {
			iv, err := ValueOf(it)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = iv
		}
		return Array(items...), nil
	case map[string]Value:
		entries := make([]MapEntry, 0, len(x))
		for _, k := range sortedKeys(x) {
			entries = append(entries, KV(k, x[k]))
		}
		return Map(entries...), nil
	case map[string]any:
		entries := make([]MapEntry, 0, len(x))
		for _, k := range sortedKeys(x) {
			ev, err := ValueOf(x[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			entries = append(entries, KV(k, ev))
		}
		return Map(entries...), nil
	}
	return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
}

// MustValueOf is ValueOf for literals known to be convertible. It panics
// on unsupported types.
func MustValueOf(v any) Value {
	out, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
