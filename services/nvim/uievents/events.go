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

import "github.com/AleutianAI/nvimrpc/services/nvim/rpc"

// Event is one decoded redraw batch.
//
// Every concrete type is either a slice of per-occurrence records (for
// events with arguments) or a struct with a Count of occurrences (for
// events without arguments). The set of implementations is closed.
type Event interface {
	// Name returns the wire name of the event, e.g. "grid_line".
	Name() string

	// Len returns the number of occurrences in the batch.
	Len() int

	isEvent()
}

// =============================================================================
// SHARED RECORDS
// =============================================================================

// MsgChunk is one highlighted piece of message or cmdline text.
type MsgChunk struct {
	AttrID int64
	Text   string
	// HlID is the highlight group id, sent by newer editors only.
	HlID int64
}

// HlAttrs is a highlight attribute set as sent in hl_attr_define.
//
// For cterm attributes the colors hold palette indices rather than RGB
// values.
type HlAttrs struct {
	Foreground    Color
	Background    Color
	Special       Color
	Reverse       bool
	Italic        bool
	Bold          bool
	Strikethrough bool
	Underline     bool
	Undercurl     bool
	Underdouble   bool
	Underdotted   bool
	Underdashed   bool
	Altfont       bool
	Standout      bool
	Nocombine     bool
	Blend         int64
	URL           string
}

// HlInfo describes where a highlight came from (ext_hlstate).
type HlInfo struct {
	Kind   string
	UIName string
	HiName string
	ID     int64
}

// ModeInfo is one entry of mode_info_set.
type ModeInfo struct {
	Name           string
	ShortName      string
	CursorShape    string
	CellPercentage int64
	BlinkWait      int64
	BlinkOn        int64
	BlinkOff       int64
	AttrID         int64
	AttrIDLM       int64
	MouseShape     int64
}

// GridCell is one run of identical cells in a grid_line.
type GridCell struct {
	Text string
	// HlID is inherited from the previous cell when the editor omits it.
	HlID int64
	// Repeat is how many times Text repeats; 1 when omitted.
	Repeat int64
}

// PopupmenuItem is one completion candidate.
type PopupmenuItem struct {
	Word string
	Kind string
	Menu string
	Info string
}

// TabInfo is one tab of tabline_update.
type TabInfo struct {
	Tab  rpc.Tabpage
	Name string
}

// BufferInfo is one buffer of tabline_update.
type BufferInfo struct {
	Buffer rpc.Buffer
	Name   string
}

// MsgHistoryEntry is one message of msg_history_show.
type MsgHistoryEntry struct {
	Kind    string
	Content []MsgChunk
	Append  bool
}

// =============================================================================
// GLOBAL EVENTS
// =============================================================================

// ModeInfoSet announces the cursor style of every mode.
type ModeInfoSet struct {
	CursorStyleEnabled bool
	Modes              []ModeInfo
}

// ModeChange switches the current mode.
type ModeChange struct {
	Mode string
	// ModeIdx indexes ModeInfoSet.Modes.
	ModeIdx int64
}

// SetTitle sets the window title.
type SetTitle struct{ Title string }

// SetIcon sets the icon title.
type SetIcon struct{ Icon string }

// Screenshot requests a screenshot at Path.
type Screenshot struct{ Path string }

// OptionSet reports a UI-related option value.
type OptionSet struct {
	Name  string
	Value rpc.Value
}

// Chdir reports a new working directory.
type Chdir struct{ Path string }

type (
	ModeInfoSetEvent []ModeInfoSet
	ModeChangeEvent  []ModeChange
	SetTitleEvent    []SetTitle
	SetIconEvent     []SetIcon
	ScreenshotEvent  []Screenshot
	OptionSetEvent   []OptionSet
	ChdirEvent       []Chdir
)

// Events without arguments carry only how many times they occurred.
type (
	UpdateMenuEvent       struct{ Count int }
	BusyStartEvent        struct{ Count int }
	BusyStopEvent         struct{ Count int }
	MouseOnEvent          struct{ Count int }
	MouseOffEvent         struct{ Count int }
	BellEvent             struct{ Count int }
	VisualBellEvent       struct{ Count int }
	FlushEvent            struct{ Count int }
	SuspendEvent          struct{ Count int }
	PopupmenuHideEvent    struct{ Count int }
	CmdlineBlockHideEvent struct{ Count int }
	MsgClearEvent         struct{ Count int }
	MsgHistoryClearEvent  struct{ Count int }
)

// =============================================================================
// GRID EVENTS
// =============================================================================

// GridResize resizes (or creates) a grid.
type GridResize struct {
	Grid   int64
	Width  int64
	Height int64
}

// DefaultColorsSet sets the default colors. Unset colors are NoColor.
type DefaultColorsSet struct {
	RGBFg   Color
	RGBBg   Color
	RGBSp   Color
	CtermFg int64
	CtermBg int64
}

// HlAttrDefine defines highlight ID.
type HlAttrDefine struct {
	ID        int64
	RGBAttr   HlAttrs
	CtermAttr HlAttrs
	Info      []HlInfo
}

// HlGroupSet maps a builtin highlight group name to an id.
type HlGroupSet struct {
	Name string
	HlID int64
}

// GridLine redraws a contiguous part of a row.
type GridLine struct {
	Grid     int64
	Row      int64
	ColStart int64
	Cells    []GridCell
	// Wrap marks a line that continues on the next row.
	Wrap bool
}

// Width returns the number of columns the line covers.
func (l GridLine) Width() int64 {
	var n int64
	for _, c := range l.Cells {
		n += c.Repeat
	}
	return n
}

// GridClear clears a grid.
type GridClear struct{ Grid int64 }

// GridDestroy releases a grid.
type GridDestroy struct{ Grid int64 }

// GridCursorGoto moves the cursor.
type GridCursorGoto struct {
	Grid int64
	Row  int64
	Col  int64
}

// GridScroll scrolls the region [Top, Bot) x [Left, Right) by Rows.
type GridScroll struct {
	Grid  int64
	Top   int64
	Bot   int64
	Left  int64
	Right int64
	Rows  int64
	// Cols is reserved by the protocol and always zero.
	Cols int64
}

type (
	GridResizeEvent       []GridResize
	DefaultColorsSetEvent []DefaultColorsSet
	HlAttrDefineEvent     []HlAttrDefine
	HlGroupSetEvent       []HlGroupSet
	GridLineEvent         []GridLine
	GridClearEvent        []GridClear
	GridDestroyEvent      []GridDestroy
	GridCursorGotoEvent   []GridCursorGoto
	GridScrollEvent       []GridScroll
)

// =============================================================================
// MULTIGRID EVENTS
// =============================================================================

// WinPos places a window's grid on the screen.
type WinPos struct {
	Grid     int64
	Win      rpc.Window
	StartRow int64
	StartCol int64
	Width    int64
	Height   int64
}

// WinFloatPos places a floating window relative to another grid.
type WinFloatPos struct {
	Grid         int64
	Win          rpc.Window
	Anchor       string
	AnchorGrid   int64
	AnchorRow    float64
	AnchorCol    float64
	MouseEnabled bool
	ZIndex       int64
	CompIndex    int64
}

// WinExternalPos shows a window in an external top-level window.
type WinExternalPos struct {
	Grid int64
	Win  rpc.Window
}

// WinHide hides a window's grid.
type WinHide struct{ Grid int64 }

// WinClose closes a window's grid.
type WinClose struct{ Grid int64 }

// MsgSetPos places the message grid.
type MsgSetPos struct {
	Grid      int64
	Row       int64
	Scrolled  bool
	SepChar   string
	ZIndex    int64
	CompIndex int64
}

// WinViewport reports the visible range of a window.
type WinViewport struct {
	Grid        int64
	Win         rpc.Window
	Topline     int64
	Botline     int64
	Curline     int64
	Curcol      int64
	LineCount   int64
	ScrollDelta int64
}

// WinViewportMargins reports the fixed margins of a window.
type WinViewportMargins struct {
	Grid   int64
	Win    rpc.Window
	Top    int64
	Bottom int64
	Left   int64
	Right  int64
}

// WinExtmark reports an extmark position with ui_watched set.
type WinExtmark struct {
	Grid   int64
	Win    rpc.Window
	NsID   int64
	MarkID int64
	Row    int64
	Col    int64
}

type (
	WinPosEvent             []WinPos
	WinFloatPosEvent        []WinFloatPos
	WinExternalPosEvent     []WinExternalPos
	WinHideEvent            []WinHide
	WinCloseEvent           []WinClose
	MsgSetPosEvent          []MsgSetPos
	WinViewportEvent        []WinViewport
	WinViewportMarginsEvent []WinViewportMargins
	WinExtmarkEvent         []WinExtmark
)

// =============================================================================
// POPUPMENU, TABLINE, CMDLINE AND MESSAGE EVENTS
// =============================================================================

// PopupmenuShow shows the completion menu. Grid is -1 for the cmdline.
type PopupmenuShow struct {
	Items    []PopupmenuItem
	Selected int64
	Row      int64
	Col      int64
	Grid     int64
}

// PopupmenuSelect selects an item; -1 means none.
type PopupmenuSelect struct{ Selected int64 }

// TablineUpdate replaces the tabline contents.
type TablineUpdate struct {
	Curtab  rpc.Tabpage
	Tabs    []TabInfo
	Curbuf  rpc.Buffer
	Buffers []BufferInfo
}

// CmdlineShow shows or updates the command line.
type CmdlineShow struct {
	Content []MsgChunk
	Pos     int64
	Firstc  string
	Prompt  string
	Indent  int64
	Level   int64
	HlID    int64
}

// CmdlinePos moves the cmdline cursor.
type CmdlinePos struct {
	Pos   int64
	Level int64
}

// CmdlineSpecialChar shows a pending special character (after ctrl-v etc).
type CmdlineSpecialChar struct {
	C     string
	Shift bool
	Level int64
}

// CmdlineHide hides the command line.
type CmdlineHide struct {
	Level int64
	Abort bool
}

// CmdlineBlockShow shows a block of previous cmdline lines.
type CmdlineBlockShow struct{ Lines [][]MsgChunk }

// CmdlineBlockAppend appends a line to the cmdline block.
type CmdlineBlockAppend struct{ Line []MsgChunk }

// MsgShow displays a message.
type MsgShow struct {
	Kind        string
	Content     []MsgChunk
	ReplaceLast bool
	History     bool
	Append      bool
}

// MsgShowmode shows the mode message ("-- INSERT --").
type MsgShowmode struct{ Content []MsgChunk }

// MsgShowcmd shows the partial command.
type MsgShowcmd struct{ Content []MsgChunk }

// MsgRuler shows the ruler.
type MsgRuler struct{ Content []MsgChunk }

// MsgHistoryShow shows the message history.
type MsgHistoryShow struct{ Entries []MsgHistoryEntry }

type (
	PopupmenuShowEvent      []PopupmenuShow
	PopupmenuSelectEvent    []PopupmenuSelect
	TablineUpdateEvent      []TablineUpdate
	CmdlineShowEvent        []CmdlineShow
	CmdlinePosEvent         []CmdlinePos
	CmdlineSpecialCharEvent []CmdlineSpecialChar
	CmdlineHideEvent        []CmdlineHide
	CmdlineBlockShowEvent   []CmdlineBlockShow
	CmdlineBlockAppendEvent []CmdlineBlockAppend
	MsgShowEvent            []MsgShow
	MsgShowmodeEvent        []MsgShowmode
	MsgShowcmdEvent         []MsgShowcmd
	MsgRulerEvent           []MsgRuler
	MsgHistoryShowEvent     []MsgHistoryShow
)
