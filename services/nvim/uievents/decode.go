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

// Decode converts the params of a "redraw" notification into events.
//
// Description:
//
//	params is a list of batches, each [name, occurrence...]. Every batch
//	becomes exactly one Event, in batch order; two batches with the same
//	name stay two Events. Occurrences must carry at least the fields their
//	event requires. Extra trailing fields are ignored and optional
//	trailing fields take their defaults, so newer editors stay readable.
//
//	Decode is pure; it never touches UI state.
//
// Inputs:
//
//	params - Notification params of a "redraw" notification
//
// Outputs:
//
//	[]Event - One event per batch
//	error   - *UnknownEventError (errors.Is ErrUnknownEvent) or *FieldError
//	          naming the batch, occurrence and field. No events are
//	          returned with an error.
func Decode(params []rpc.Value) ([]Event, error) {
	events := make([]Event, 0, len(params))
	for b, p := range params {
		batch, ok := p.AsArray()
		if !ok {
			return nil, &FieldError{Batch: b, Occurrence: -1, Err: fmt.Errorf("%w: batch is %s, want array", ErrMalformedBatch, p.Kind())}
		}
		if len(batch) == 0 {
			return nil, &FieldError{Batch: b, Occurrence: -1, Err: fmt.Errorf("%w: empty batch", ErrMalformedBatch)}
		}
		name, ok := batch[0].AsString()
		if !ok {
			return nil, &FieldError{Batch: b, Occurrence: -1, Err: fmt.Errorf("%w: event name is %s", ErrMalformedBatch, batch[0].Kind())}
		}
		ev, err := decodeEvent(name, b, batch[1:])
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// decodeBatch decodes every occurrence of one batch with decode.
func decodeBatch[T any](name string, batch int, occs []rpc.Value, decode func(f *fields) T) ([]T, error) {
	out := make([]T, 0, len(occs))
	for i, occ := range occs {
		vals, ok := occ.AsArray()
		if !ok {
			return nil, &FieldError{Event: name, Batch: batch, Occurrence: i, Err: typeError("array", occ)}
		}
		f := &fields{event: name, batch: batch, occ: i, vals: vals}
		rec := decode(f)
		if f.err != nil {
			return nil, f.err
		}
		out = append(out, rec)
	}
	return out, nil
}

// count checks the occurrences of an event without arguments.
func count(name string, batch int, occs []rpc.Value) (int, error) {
	for i, occ := range occs {
		if _, ok := occ.AsArray(); !ok {
			return 0, &FieldError{Event: name, Batch: batch, Occurrence: i, Err: typeError("array", occ)}
		}
	}
	return len(occs), nil
}

func decodeEvent(name string, batch int, occs []rpc.Value) (Event, error) {
	switch name {
	// Global events.
	case NameModeInfoSet:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) ModeInfoSet {
			return ModeInfoSet{CursorStyleEnabled: f.bool(0, "cursor_style_enabled"), Modes: f.modeInfos(1, "mode_info")}
		})
		return ModeInfoSetEvent(recs), err
	case NameUpdateMenu:
		n, err := count(name, batch, occs)
		return UpdateMenuEvent{Count: n}, err
	case NameBusyStart:
		n, err := count(name, batch, occs)
		return BusyStartEvent{Count: n}, err
	case NameBusyStop:
		n, err := count(name, batch, occs)
		return BusyStopEvent{Count: n}, err
	case NameMouseOn:
		n, err := count(name, batch, occs)
		return MouseOnEvent{Count: n}, err
	case NameMouseOff:
		n, err := count(name, batch, occs)
		return MouseOffEvent{Count: n}, err
	case NameModeChange:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) ModeChange {
			return ModeChange{Mode: f.str(0, "mode"), ModeIdx: f.int(1, "mode_idx")}
		})
		return ModeChangeEvent(recs), err
	case NameBell:
		n, err := count(name, batch, occs)
		return BellEvent{Count: n}, err
	case NameVisualBell:
		n, err := count(name, batch, occs)
		return VisualBellEvent{Count: n}, err
	case NameFlush:
		n, err := count(name, batch, occs)
		return FlushEvent{Count: n}, err
	case NameSuspend:
		n, err := count(name, batch, occs)
		return SuspendEvent{Count: n}, err
	case NameSetTitle:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) SetTitle {
			return SetTitle{Title: f.str(0, "title")}
		})
		return SetTitleEvent(recs), err
	case NameSetIcon:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) SetIcon {
			return SetIcon{Icon: f.str(0, "icon")}
		})
		return SetIconEvent(recs), err
	case NameScreenshot:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) Screenshot {
			return Screenshot{Path: f.str(0, "path")}
		})
		return ScreenshotEvent(recs), err
	case NameOptionSet:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) OptionSet {
			return OptionSet{Name: f.str(0, "name"), Value: f.value(1, "value")}
		})
		return OptionSetEvent(recs), err
	case NameChdir:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) Chdir {
			return Chdir{Path: f.str(0, "path")}
		})
		return ChdirEvent(recs), err

	// Grid events.
	case NameGridResize:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) GridResize {
			return GridResize{Grid: f.int(0, "grid"), Width: f.int(1, "width"), Height: f.int(2, "height")}
		})
		return GridResizeEvent(recs), err
	case NameDefaultColorsSet:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) DefaultColorsSet {
			return DefaultColorsSet{
				RGBFg:   f.color(0, "rgb_fg"),
				RGBBg:   f.color(1, "rgb_bg"),
				RGBSp:   f.color(2, "rgb_sp"),
				CtermFg: f.int(3, "cterm_fg"),
				CtermBg: f.int(4, "cterm_bg"),
			}
		})
		return DefaultColorsSetEvent(recs), err
	case NameHlAttrDefine:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) HlAttrDefine {
			return HlAttrDefine{
				ID:        f.int(0, "id"),
				RGBAttr:   f.hlAttrs(1, "rgb_attr"),
				CtermAttr: f.hlAttrs(2, "cterm_attr"),
				Info:      f.hlInfo(3, "info"),
			}
		})
		return HlAttrDefineEvent(recs), err
	case NameHlGroupSet:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) HlGroupSet {
			return HlGroupSet{Name: f.str(0, "name"), HlID: f.int(1, "hl_id")}
		})
		return HlGroupSetEvent(recs), err
	case NameGridLine:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) GridLine {
			return GridLine{
				Grid:     f.int(0, "grid"),
				Row:      f.int(1, "row"),
				ColStart: f.int(2, "col_start"),
				Cells:    f.cells(3, "cells"),
				Wrap:     f.optBool(4, "wrap"),
			}
		})
		return GridLineEvent(recs), err
	case NameGridClear:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) GridClear {
			return GridClear{Grid: f.int(0, "grid")}
		})
		return GridClearEvent(recs), err
	case NameGridDestroy:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) GridDestroy {
			return GridDestroy{Grid: f.int(0, "grid")}
		})
		return GridDestroyEvent(recs), err
	case NameGridCursorGoto:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) GridCursorGoto {
			return GridCursorGoto{Grid: f.int(0, "grid"), Row: f.int(1, "row"), Col: f.int(2, "col")}
		})
		return GridCursorGotoEvent(recs), err
	case NameGridScroll:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) GridScroll {
			return GridScroll{
				Grid:  f.int(0, "grid"),
				Top:   f.int(1, "top"),
				Bot:   f.int(2, "bot"),
				Left:  f.int(3, "left"),
				Right: f.int(4, "right"),
				Rows:  f.int(5, "rows"),
				Cols:  f.int(6, "cols"),
			}
		})
		return GridScrollEvent(recs), err

	// Multigrid events.
	case NameWinPos:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) WinPos {
			return WinPos{
				Grid:     f.int(0, "grid"),
				Win:      f.window(1, "win"),
				StartRow: f.int(2, "start_row"),
				StartCol: f.int(3, "start_col"),
				Width:    f.int(4, "width"),
				Height:   f.int(5, "height"),
			}
		})
		return WinPosEvent(recs), err
	case NameWinFloatPos:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) WinFloatPos {
			return WinFloatPos{
				Grid:         f.int(0, "grid"),
				Win:          f.window(1, "win"),
				Anchor:       f.str(2, "anchor"),
				AnchorGrid:   f.int(3, "anchor_grid"),
				AnchorRow:    f.float(4, "anchor_row"),
				AnchorCol:    f.float(5, "anchor_col"),
				MouseEnabled: f.optBool(6, "mouse_enabled"),
				ZIndex:       f.optInt(7, "zindex", 0),
				CompIndex:    f.optInt(8, "compindex", 0),
			}
		})
		return WinFloatPosEvent(recs), err
	case NameWinExternalPos:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) WinExternalPos {
			return WinExternalPos{Grid: f.int(0, "grid"), Win: f.window(1, "win")}
		})
		return WinExternalPosEvent(recs), err
	case NameWinHide:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) WinHide {
			return WinHide{Grid: f.int(0, "grid")}
		})
		return WinHideEvent(recs), err
	case NameWinClose:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) WinClose {
			return WinClose{Grid: f.int(0, "grid")}
		})
		return WinCloseEvent(recs), err
	case NameMsgSetPos:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) MsgSetPos {
			return MsgSetPos{
				Grid:      f.int(0, "grid"),
				Row:       f.int(1, "row"),
				Scrolled:  f.bool(2, "scrolled"),
				SepChar:   f.str(3, "sep_char"),
				ZIndex:    f.optInt(4, "zindex", 0),
				CompIndex: f.optInt(5, "compindex", 0),
			}
		})
		return MsgSetPosEvent(recs), err
	case NameWinViewport:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) WinViewport {
			return WinViewport{
				Grid:        f.int(0, "grid"),
				Win:         f.window(1, "win"),
				Topline:     f.int(2, "topline"),
				Botline:     f.int(3, "botline"),
				Curline:     f.int(4, "curline"),
				Curcol:      f.int(5, "curcol"),
				LineCount:   f.optInt(6, "line_count", 0),
				ScrollDelta: f.optInt(7, "scroll_delta", 0),
			}
		})
		return WinViewportEvent(recs), err
	case NameWinViewportMargins:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) WinViewportMargins {
			return WinViewportMargins{
				Grid:   f.int(0, "grid"),
				Win:    f.window(1, "win"),
				Top:    f.int(2, "top"),
				Bottom: f.int(3, "bottom"),
				Left:   f.int(4, "left"),
				Right:  f.int(5, "right"),
			}
		})
		return WinViewportMarginsEvent(recs), err
	case NameWinExtmark:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) WinExtmark {
			return WinExtmark{
				Grid:   f.int(0, "grid"),
				Win:    f.window(1, "win"),
				NsID:   f.int(2, "ns_id"),
				MarkID: f.int(3, "mark_id"),
				Row:    f.int(4, "row"),
				Col:    f.int(5, "col"),
			}
		})
		return WinExtmarkEvent(recs), err

	// Popupmenu events.
	case NamePopupmenuShow:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) PopupmenuShow {
			return PopupmenuShow{
				Items:    f.pumItems(0, "items"),
				Selected: f.int(1, "selected"),
				Row:      f.int(2, "row"),
				Col:      f.int(3, "col"),
				Grid:     f.int(4, "grid"),
			}
		})
		return PopupmenuShowEvent(recs), err
	case NamePopupmenuSelect:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) PopupmenuSelect {
			return PopupmenuSelect{Selected: f.int(0, "selected")}
		})
		return PopupmenuSelectEvent(recs), err
	case NamePopupmenuHide:
		n, err := count(name, batch, occs)
		return PopupmenuHideEvent{Count: n}, err

	// Tabline events.
	case NameTablineUpdate:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) TablineUpdate {
			return TablineUpdate{
				Curtab:  f.tabpage(0, "curtab"),
				Tabs:    f.tabs(1, "tabs"),
				Curbuf:  f.optBuffer(2, "curbuf"),
				Buffers: f.buffers(3, "buffers"),
			}
		})
		return TablineUpdateEvent(recs), err

	// Cmdline events.
	case NameCmdlineShow:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) CmdlineShow {
			return CmdlineShow{
				Content: f.chunks(0, "content"),
				Pos:     f.int(1, "pos"),
				Firstc:  f.str(2, "firstc"),
				Prompt:  f.str(3, "prompt"),
				Indent:  f.int(4, "indent"),
				Level:   f.int(5, "level"),
				HlID:    f.optInt(6, "hl_id", 0),
			}
		})
		return CmdlineShowEvent(recs), err
	case NameCmdlinePos:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) CmdlinePos {
			return CmdlinePos{Pos: f.int(0, "pos"), Level: f.int(1, "level")}
		})
		return CmdlinePosEvent(recs), err
	case NameCmdlineSpecialChar:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) CmdlineSpecialChar {
			return CmdlineSpecialChar{C: f.str(0, "c"), Shift: f.bool(1, "shift"), Level: f.int(2, "level")}
		})
		return CmdlineSpecialCharEvent(recs), err
	case NameCmdlineHide:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) CmdlineHide {
			return CmdlineHide{Level: f.int(0, "level"), Abort: f.optBool(1, "abort")}
		})
		return CmdlineHideEvent(recs), err
	case NameCmdlineBlockShow:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) CmdlineBlockShow {
			return CmdlineBlockShow{Lines: f.chunkLines(0, "lines")}
		})
		return CmdlineBlockShowEvent(recs), err
	case NameCmdlineBlockAppend:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) CmdlineBlockAppend {
			return CmdlineBlockAppend{Line: f.chunks(0, "line")}
		})
		return CmdlineBlockAppendEvent(recs), err
	case NameCmdlineBlockHide:
		n, err := count(name, batch, occs)
		return CmdlineBlockHideEvent{Count: n}, err

	// Message events.
	case NameMsgShow:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) MsgShow {
			return MsgShow{
				Kind:        f.str(0, "kind"),
				Content:     f.chunks(1, "content"),
				ReplaceLast: f.bool(2, "replace_last"),
				History:     f.optBool(3, "history"),
				Append:      f.optBool(4, "append"),
			}
		})
		return MsgShowEvent(recs), err
	case NameMsgClear:
		n, err := count(name, batch, occs)
		return MsgClearEvent{Count: n}, err
	case NameMsgShowmode:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) MsgShowmode {
			return MsgShowmode{Content: f.chunks(0, "content")}
		})
		return MsgShowmodeEvent(recs), err
	case NameMsgShowcmd:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) MsgShowcmd {
			return MsgShowcmd{Content: f.chunks(0, "content")}
		})
		return MsgShowcmdEvent(recs), err
	case NameMsgRuler:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) MsgRuler {
			return MsgRuler{Content: f.chunks(0, "content")}
		})
		return MsgRulerEvent(recs), err
	case NameMsgHistoryShow:
		recs, err := decodeBatch(name, batch, occs, func(f *fields) MsgHistoryShow {
			return MsgHistoryShow{Entries: f.historyEntries(0, "entries")}
		})
		return MsgHistoryShowEvent(recs), err
	case NameMsgHistoryClear:
		n, err := count(name, batch, occs)
		return MsgHistoryClearEvent{Count: n}, err
	}
	return nil, &UnknownEventError{Name: name, Batch: batch}
}

// =============================================================================
// COMPOSITE FIELDS
// =============================================================================

func (f *fields) hlAttrs(i int, name string) HlAttrs {
	entries := f.mapping(i, name)
	var a HlAttrs
	if f.err != nil {
		return a
	}
	for _, e := range entries {
		key, ok := e.Key.AsString()
		if !ok {
			continue
		}
		var err error
		switch key {
		case "foreground":
			a.Foreground, err = colorOf(e.Value)
		case "background":
			a.Background, err = colorOf(e.Value)
		case "special":
			a.Special, err = colorOf(e.Value)
		case "reverse":
			a.Reverse, err = asBool(e.Value)
		case "italic":
			a.Italic, err = asBool(e.Value)
		case "bold":
			a.Bold, err = asBool(e.Value)
		case "strikethrough":
			a.Strikethrough, err = asBool(e.Value)
		case "underline":
			a.Underline, err = asBool(e.Value)
		case "undercurl":
			a.Undercurl, err = asBool(e.Value)
		case "underdouble":
			a.Underdouble, err = asBool(e.Value)
		case "underdotted":
			a.Underdotted, err = asBool(e.Value)
		case "underdashed":
			a.Underdashed, err = asBool(e.Value)
		case "altfont":
			a.Altfont, err = asBool(e.Value)
		case "standout":
			a.Standout, err = asBool(e.Value)
		case "nocombine":
			a.Nocombine, err = asBool(e.Value)
		case "blend":
			a.Blend, err = asInt(e.Value)
		case "url":
			a.URL, err = asString(e.Value)
		}
		if err != nil {
			f.fail(name+"."+key, err)
			return a
		}
	}
	return a
}

func colorOf(v rpc.Value) (Color, error) {
	n, err := asInt(v)
	if err != nil {
		return NoColor, err
	}
	return ColorFromInt(n)
}

func (f *fields) hlInfo(i int, name string) []HlInfo {
	items := f.array(i, name)
	if f.err != nil || len(items) == 0 {
		return nil
	}
	out := make([]HlInfo, 0, len(items))
	for j, it := range items {
		field := name + "[" + strconv.Itoa(j) + "]"
		entries, err := asMap(it)
		if err != nil {
			f.fail(field, err)
			return nil
		}
		var info HlInfo
		for _, e := range entries {
			key, _ := e.Key.AsString()
			switch key {
			case "kind":
				info.Kind, err = asString(e.Value)
			case "ui_name":
				info.UIName, err = asString(e.Value)
			case "hi_name":
				info.HiName, err = asString(e.Value)
			case "id":
				info.ID, err = asInt(e.Value)
			}
			if err != nil {
				f.fail(field+"."+key, err)
				return nil
			}
		}
		out = append(out, info)
	}
	return out
}

func (f *fields) modeInfos(i int, name string) []ModeInfo {
	items := f.array(i, name)
	if f.err != nil || len(items) == 0 {
		return nil
	}
	out := make([]ModeInfo, 0, len(items))
	for j, it := range items {
		field := name + "[" + strconv.Itoa(j) + "]"
		entries, err := asMap(it)
		if err != nil {
			f.fail(field, err)
			return nil
		}
		var m ModeInfo
		for _, e := range entries {
			key, _ := e.Key.AsString()
			switch key {
			case "name":
				m.Name, err = asString(e.Value)
			case "short_name":
				m.ShortName, err = asString(e.Value)
			case "cursor_shape":
				m.CursorShape, err = asString(e.Value)
			case "cell_percentage":
				m.CellPercentage, err = asInt(e.Value)
			case "blinkwait":
				m.BlinkWait, err = asInt(e.Value)
			case "blinkon":
				m.BlinkOn, err = asInt(e.Value)
			case "blinkoff":
				m.BlinkOff, err = asInt(e.Value)
			case "attr_id":
				m.AttrID, err = asInt(e.Value)
			case "attr_id_lm":
				m.AttrIDLM, err = asInt(e.Value)
			case "mouse_shape":
				m.MouseShape, err = asInt(e.Value)
			}
			if err != nil {
				f.fail(field+"."+key, err)
				return nil
			}
		}
		out = append(out, m)
	}
	return out
}

func (f *fields) pumItems(i int, name string) []PopupmenuItem {
	items := f.array(i, name)
	if f.err != nil || len(items) == 0 {
		return nil
	}
	out := make([]PopupmenuItem, 0, len(items))
	for j, it := range items {
		field := name + "[" + strconv.Itoa(j) + "]"
		parts, err := asArray(it)
		if err != nil {
			f.fail(field, err)
			return nil
		}
		if len(parts) < 4 {
			f.fail(field, fmt.Errorf("%w: item has %d fields, want [word, kind, menu, info]", ErrMissingField, len(parts)))
			return nil
		}
		var item PopupmenuItem
		for k, dst := range []*string{&item.Word, &item.Kind, &item.Menu, &item.Info} {
			if *dst, err = asString(parts[k]); err != nil {
				f.fail(field+"["+strconv.Itoa(k)+"]", err)
				return nil
			}
		}
		out = append(out, item)
	}
	return out
}

func (f *fields) tabpage(i int, name string) rpc.Tabpage {
	if _, ok := f.get(i, name); !ok {
		return 0
	}
	return f.optTabpage(i, name)
}

func (f *fields) tabs(i int, name string) []TabInfo {
	items := f.array(i, name)
	if f.err != nil || len(items) == 0 {
		return nil
	}
	out := make([]TabInfo, 0, len(items))
	for j, it := range items {
		field := name + "[" + strconv.Itoa(j) + "]"
		entries, err := asMap(it)
		if err != nil {
			f.fail(field, err)
			return nil
		}
		var tab TabInfo
		for _, e := range entries {
			key, _ := e.Key.AsString()
			switch key {
			case "tab":
				tab.Tab, err = rpc.TabpageFrom(e.Value)
				if err != nil {
					err = fmt.Errorf("%w: %w", ErrFieldType, err)
				}
			case "name":
				tab.Name, err = asString(e.Value)
			}
			if err != nil {
				f.fail(field+"."+key, err)
				return nil
			}
		}
		out = append(out, tab)
	}
	return out
}

func (f *fields) buffers(i int, name string) []BufferInfo {
	if !f.has(i) {
		return nil
	}
	items := f.array(i, name)
	if f.err != nil || len(items) == 0 {
		return nil
	}
	out := make([]BufferInfo, 0, len(items))
	for j, it := range items {
		field := name + "[" + strconv.Itoa(j) + "]"
		entries, err := asMap(it)
		if err != nil {
			f.fail(field, err)
			return nil
		}
		var buf BufferInfo
		for _, e := range entries {
			key, _ := e.Key.AsString()
			switch key {
			case "buffer":
				buf.Buffer, err = rpc.BufferFrom(e.Value)
				if err != nil {
					err = fmt.Errorf("%w: %w", ErrFieldType, err)
				}
			case "name":
				buf.Name, err = asString(e.Value)
			}
			if err != nil {
				f.fail(field+"."+key, err)
				return nil
			}
		}
		out = append(out, buf)
	}
	return out
}

func (f *fields) chunkLines(i int, name string) [][]MsgChunk {
	items := f.array(i, name)
	if f.err != nil || len(items) == 0 {
		return nil
	}
	out := make([][]MsgChunk, 0, len(items))
	for j, it := range items {
		field := name + "[" + strconv.Itoa(j) + "]"
		line, err := asArray(it)
		if err != nil {
			f.fail(field, err)
			return nil
		}
		chunks, sub, err := decodeChunks(line)
		if err != nil {
			f.fail(field+sub, err)
			return nil
		}
		out = append(out, chunks)
	}
	return out
}

// historyEntries decodes [[kind, content, append?], ...].
func (f *fields) historyEntries(i int, name string) []MsgHistoryEntry {
	items := f.array(i, name)
	if f.err != nil || len(items) == 0 {
		return nil
	}
	out := make([]MsgHistoryEntry, 0, len(items))
	for j, it := range items {
		field := name + "[" + strconv.Itoa(j) + "]"
		parts, err := asArray(it)
		if err != nil {
			f.fail(field, err)
			return nil
		}
		if len(parts) < 2 {
			f.fail(field, fmt.Errorf("%w: entry has %d fields, want [kind, content]", ErrMissingField, len(parts)))
			return nil
		}
		var entry MsgHistoryEntry
		if entry.Kind, err = asString(parts[0]); err != nil {
			f.fail(field+".kind", err)
			return nil
		}
		content, err := asArray(parts[1])
		if err != nil {
			f.fail(field+".content", err)
			return nil
		}
		var sub string
		if entry.Content, sub, err = decodeChunks(content); err != nil {
			f.fail(field+".content"+sub, err)
			return nil
		}
		if len(parts) > 2 {
			if entry.Append, err = asBool(parts[2]); err != nil {
				f.fail(field+".append", err)
				return nil
			}
		}
		out = append(out, entry)
	}
	return out
}
