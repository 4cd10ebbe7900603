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
	"fmt"
	"strconv"

	"github.com/AleutianAI/nvimrpc/services/nvim/rpc"
)

// fields reads the positional fields of one occurrence. The first failure
// is kept in err; later reads are no-ops returning zero values, so a record
// literal can be built in one expression and checked once.
type fields struct {
	event string
	batch int
	occ   int
	vals  []rpc.Value
	err   error
}

func (f *fields) fail(field string, err error) {
	if f.err == nil {
		f.err = &FieldError{Event: f.event, Batch: f.batch, Occurrence: f.occ, Field: field, Err: err}
	}
}

// has reports whether optional field i is present.
func (f *fields) has(i int) bool {
	return f.err == nil && i < len(f.vals)
}

func (f *fields) get(i int, name string) (rpc.Value, bool) {
	if f.err != nil {
		return rpc.Value{}, false
	}
	if i >= len(f.vals) {
		f.fail(name, fmt.Errorf("%w: need at least %d fields, got %d", ErrMissingField, i+1, len(f.vals)))
		return rpc.Value{}, false
	}
	return f.vals[i], true
}

func (f *fields) value(i int, name string) rpc.Value {
	v, _ := f.get(i, name)
	return v
}

func (f *fields) int(i int, name string) int64 {
	v, ok := f.get(i, name)
	if !ok {
		return 0
	}
	n, err := asInt(v)
	if err != nil {
		f.fail(name, err)
	}
	return n
}

func (f *fields) optInt(i int, name string, def int64) int64 {
	if !f.has(i) {
		return def
	}
	return f.int(i, name)
}

func (f *fields) float(i int, name string) float64 {
	v, ok := f.get(i, name)
	if !ok {
		return 0
	}
	n, err := asFloat(v)
	if err != nil {
		f.fail(name, err)
	}
	return n
}

func (f *fields) str(i int, name string) string {
	v, ok := f.get(i, name)
	if !ok {
		return ""
	}
	s, err := asString(v)
	if err != nil {
		f.fail(name, err)
	}
	return s
}

func (f *fields) bool(i int, name string) bool {
	v, ok := f.get(i, name)
	if !ok {
		return false
	}
	b, err := asBool(v)
	if err != nil {
		f.fail(name, err)
	}
	return b
}

func (f *fields) optBool(i int, name string) bool {
	if !f.has(i) {
		return false
	}
	return f.bool(i, name)
}

func (f *fields) color(i int, name string) Color {
	v, ok := f.get(i, name)
	if !ok {
		return NoColor
	}
	c, err := colorOf(v)
	if err != nil {
		f.fail(name, err)
	}
	return c
}

func (f *fields) array(i int, name string) []rpc.Value {
	v, ok := f.get(i, name)
	if !ok {
		return nil
	}
	items, err := asArray(v)
	if err != nil {
		f.fail(name, err)
	}
	return items
}

func (f *fields) mapping(i int, name string) []rpc.MapEntry {
	v, ok := f.get(i, name)
	if !ok {
		return nil
	}
	entries, err := asMap(v)
	if err != nil {
		f.fail(name, err)
	}
	return entries
}

// window accepts a Window ext handle, or a plain integer from editors
// that predate handles in multigrid events.
func (f *fields) window(i int, name string) rpc.Window {
	v, ok := f.get(i, name)
	if !ok {
		return 0
	}
	if n, ok := v.AsInt(); ok {
		return rpc.Window(n)
	}
	w, err := rpc.WindowFrom(v)
	if err != nil {
		f.fail(name, fmt.Errorf("%w: %w", ErrFieldType, err))
	}
	return w
}

func (f *fields) optTabpage(i int, name string) rpc.Tabpage {
	if !f.has(i) {
		return 0
	}
	t, err := rpc.TabpageFrom(f.vals[i])
	if err != nil {
		f.fail(name, fmt.Errorf("%w: %w", ErrFieldType, err))
	}
	return t
}

func (f *fields) optBuffer(i int, name string) rpc.Buffer {
	if !f.has(i) {
		return 0
	}
	b, err := rpc.BufferFrom(f.vals[i])
	if err != nil {
		f.fail(name, fmt.Errorf("%w: %w", ErrFieldType, err))
	}
	return b
}

// chunks decodes message content: [[attr_id, text, hl_id?], ...].
func (f *fields) chunks(i int, name string) []MsgChunk {
	items := f.array(i, name)
	if f.err != nil {
		return nil
	}
	out, field, err := decodeChunks(items)
	if err != nil {
		f.fail(name+field, err)
		return nil
	}
	return out
}

func decodeChunks(items []rpc.Value) ([]MsgChunk, string, error) {
	if len(items) == 0 {
		return nil, "", nil
	}
	out := make([]MsgChunk, 0, len(items))
	for j, it := range items {
		idx := "[" + strconv.Itoa(j) + "]"
		parts, err := asArray(it)
		if err != nil {
			return nil, idx, err
		}
		if len(parts) < 2 {
			return nil, idx, fmt.Errorf("%w: chunk has %d fields, want [attr_id, text]", ErrMissingField, len(parts))
		}
		var c MsgChunk
		if c.AttrID, err = asInt(parts[0]); err != nil {
			return nil, idx + ".attr_id", err
		}
		if c.Text, err = asString(parts[1]); err != nil {
			return nil, idx + ".text", err
		}
		if len(parts) > 2 {
			if c.HlID, err = asInt(parts[2]); err != nil {
				return nil, idx + ".hl_id", err
			}
		}
		out = append(out, c)
	}
	return out, "", nil
}

// cells decodes grid_line cells: [[text, hl_id?, repeat?], ...]. A missing
// hl_id repeats the previous cell's; the first cell defaults to 0.
func (f *fields) cells(i int, name string) []GridCell {
	items := f.array(i, name)
	if f.err != nil {
		return nil
	}
	out := make([]GridCell, 0, len(items))
	var hl int64
	for j, it := range items {
		idx := name + "[" + strconv.Itoa(j) + "]"
		parts, err := asArray(it)
		if err != nil {
			f.fail(idx, err)
			return nil
		}
		if len(parts) == 0 {
			f.fail(idx, fmt.Errorf("%w: empty cell", ErrMissingField))
			return nil
		}
		text, err := asString(parts[0])
		if err != nil {
			f.fail(idx+".text", err)
			return nil
		}
		if len(parts) > 1 {
			if hl, err = asInt(parts[1]); err != nil {
				f.fail(idx+".hl_id", err)
				return nil
			}
		}
		repeat := int64(1)
		if len(parts) > 2 {
			if repeat, err = asInt(parts[2]); err != nil {
				f.fail(idx+".repeat", err)
				return nil
			}
			if repeat < 0 {
				f.fail(idx+".repeat", fmt.Errorf("%w: %d", ErrOutOfRange, repeat))
				return nil
			}
		}
		out = append(out, GridCell{Text: text, HlID: hl, Repeat: repeat})
	}
	return out
}

// =============================================================================
// VALUE CONVERSION
// =============================================================================

func typeError(want string, v rpc.Value) error {
	return fmt.Errorf("%w: want %s, got %s", ErrFieldType, want, v.Kind())
}

func asInt(v rpc.Value) (int64, error) {
	if n, ok := v.AsInt(); ok {
		return n, nil
	}
	return 0, typeError("int", v)
}

func asFloat(v rpc.Value) (float64, error) {
	if n, ok := v.AsFloat(); ok {
		return n, nil
	}
	return 0, typeError("float", v)
}

func asString(v rpc.Value) (string, error) {
	if s, ok := v.AsString(); ok {
		return s, nil
	}
	return "", typeError("string", v)
}

func asBool(v rpc.Value) (bool, error) {
	if b, ok := v.AsBool(); ok {
		return b, nil
	}
	return false, typeError("bool", v)
}

func asArray(v rpc.Value) ([]rpc.Value, error) {
	if items, ok := v.AsArray(); ok {
		return items, nil
	}
	return nil, typeError("array", v)
}

func asMap(v rpc.Value) ([]rpc.MapEntry, error) {
	if entries, ok := v.AsMap(); ok {
		return entries, nil
	}
	return nil, typeError("map", v)
}
