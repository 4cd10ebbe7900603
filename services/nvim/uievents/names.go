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

// Wire names of every redraw event this package decodes.
const (
	NameModeInfoSet        = "mode_info_set"
	NameUpdateMenu         = "update_menu"
	NameBusyStart          = "busy_start"
	NameBusyStop           = "busy_stop"
	NameMouseOn            = "mouse_on"
	NameMouseOff           = "mouse_off"
	NameModeChange         = "mode_change"
	NameBell               = "bell"
	NameVisualBell         = "visual_bell"
	NameFlush              = "flush"
	NameSuspend            = "suspend"
	NameSetTitle           = "set_title"
	NameSetIcon            = "set_icon"
	NameScreenshot         = "screenshot"
	NameOptionSet          = "option_set"
	NameChdir              = "chdir"
	NameGridResize         = "grid_resize"
	NameDefaultColorsSet   = "default_colors_set"
	NameHlAttrDefine       = "hl_attr_define"
	NameHlGroupSet         = "hl_group_set"
	NameGridLine           = "grid_line"
	NameGridClear          = "grid_clear"
	NameGridDestroy        = "grid_destroy"
	NameGridCursorGoto     = "grid_cursor_goto"
	NameGridScroll         = "grid_scroll"
	NameWinPos             = "win_pos"
	NameWinFloatPos        = "win_float_pos"
	NameWinExternalPos     = "win_external_pos"
	NameWinHide            = "win_hide"
	NameWinClose           = "win_close"
	NameMsgSetPos          = "msg_set_pos"
	NameWinViewport        = "win_viewport"
	NameWinViewportMargins = "win_viewport_margins"
	NameWinExtmark         = "win_extmark"
	NamePopupmenuShow      = "popupmenu_show"
	NamePopupmenuSelect    = "popupmenu_select"
	NamePopupmenuHide      = "popupmenu_hide"
	NameTablineUpdate      = "tabline_update"
	NameCmdlineShow        = "cmdline_show"
	NameCmdlinePos         = "cmdline_pos"
	NameCmdlineSpecialChar = "cmdline_special_char"
	NameCmdlineHide        = "cmdline_hide"
	NameCmdlineBlockShow   = "cmdline_block_show"
	NameCmdlineBlockAppend = "cmdline_block_append"
	NameCmdlineBlockHide   = "cmdline_block_hide"
	NameMsgShow            = "msg_show"
	NameMsgClear           = "msg_clear"
	NameMsgShowmode        = "msg_showmode"
	NameMsgShowcmd         = "msg_showcmd"
	NameMsgRuler           = "msg_ruler"
	NameMsgHistoryShow     = "msg_history_show"
	NameMsgHistoryClear    = "msg_history_clear"
)

// EventNames lists every supported event name in protocol order.
var EventNames = []string{
	NameModeInfoSet,
	NameUpdateMenu,
	NameBusyStart,
	NameBusyStop,
	NameMouseOn,
	NameMouseOff,
	NameModeChange,
	NameBell,
	NameVisualBell,
	NameFlush,
	NameSuspend,
	NameSetTitle,
	NameSetIcon,
	NameScreenshot,
	NameOptionSet,
	NameChdir,
	NameGridResize,
	NameDefaultColorsSet,
	NameHlAttrDefine,
	NameHlGroupSet,
	NameGridLine,
	NameGridClear,
	NameGridDestroy,
	NameGridCursorGoto,
	NameGridScroll,
	NameWinPos,
	NameWinFloatPos,
	NameWinExternalPos,
	NameWinHide,
	NameWinClose,
	NameMsgSetPos,
	NameWinViewport,
	NameWinViewportMargins,
	NameWinExtmark,
	NamePopupmenuShow,
	NamePopupmenuSelect,
	NamePopupmenuHide,
	NameTablineUpdate,
	NameCmdlineShow,
	NameCmdlinePos,
	NameCmdlineSpecialChar,
	NameCmdlineHide,
	NameCmdlineBlockShow,
	NameCmdlineBlockAppend,
	NameCmdlineBlockHide,
	NameMsgShow,
	NameMsgClear,
	NameMsgShowmode,
	NameMsgShowcmd,
	NameMsgRuler,
	NameMsgHistoryShow,
	NameMsgHistoryClear,
}

func (ModeInfoSetEvent) Name() string { return NameModeInfoSet }
func (e ModeInfoSetEvent) Len() int { return len(e) }
func (ModeInfoSetEvent) isEvent() {}

func (UpdateMenuEvent) Name() string { return NameUpdateMenu }
func (e UpdateMenuEvent) Len() int { return e.Count }
func (UpdateMenuEvent) isEvent() {}

func (BusyStartEvent) Name() string { return NameBusyStart }
func (e BusyStartEvent) Len() int { return e.Count }
func (BusyStartEvent) isEvent() {}

func (BusyStopEvent) Name() string { return NameBusyStop }
func (e BusyStopEvent) Len() int { return e.Count }
func (BusyStopEvent) isEvent() {}

func (MouseOnEvent) Name() string { return NameMouseOn }
func (e MouseOnEvent) Len() int { return e.Count }
func (MouseOnEvent) isEvent() {}

func (MouseOffEvent) Name() string { return NameMouseOff }
func (e MouseOffEvent) Len() int { return e.Count }
func (MouseOffEvent) isEvent() {}

func (ModeChangeEvent) Name() string { return NameModeChange }
func (e ModeChangeEvent) Len() int { return len(e) }
func (ModeChangeEvent) isEvent() {}

func (BellEvent) Name() string { return NameBell }
func (e BellEvent) Len() int { return e.Count }
func (BellEvent) isEvent() {}

func (VisualBellEvent) Name() string { return NameVisualBell }
func (e VisualBellEvent) Len() int { return e.Count }
func (VisualBellEvent) isEvent() {}

func (FlushEvent) Name() string { return NameFlush }
func (e FlushEvent) Len() int { return e.Count }
func (FlushEvent) isEvent() {}

func (SuspendEvent) Name() string { return NameSuspend }
func (e SuspendEvent) Len() int { return e.Count }
func (SuspendEvent) isEvent() {}

func (SetTitleEvent) Name() string { return NameSetTitle }
func (e SetTitleEvent) Len() int { return len(e) }
func (SetTitleEvent) isEvent() {}

func (SetIconEvent) Name() string { return NameSetIcon }
func (e SetIconEvent) Len() int { return len(e) }
func (SetIconEvent) isEvent() {}

func (ScreenshotEvent) Name() string { return NameScreenshot }
func (e ScreenshotEvent) Len() int { return len(e) }
func (ScreenshotEvent) isEvent() {}

func (OptionSetEvent) Name() string { return NameOptionSet }
func (e OptionSetEvent) Len() int { return len(e) }
func (OptionSetEvent) isEvent() {}

func (ChdirEvent) Name() string { return NameChdir }
func (e ChdirEvent) Len() int { return len(e) }
func (ChdirEvent) isEvent() {}

func (GridResizeEvent) Name() string { return NameGridResize }
func (e GridResizeEvent) Len() int { return len(e) }
func (GridResizeEvent) isEvent() {}

func (DefaultColorsSetEvent) Name() string { return NameDefaultColorsSet }
func (e DefaultColorsSetEvent) Len() int { return len(e) }
func (DefaultColorsSetEvent) isEvent() {}

func (HlAttrDefineEvent) Name() string { return NameHlAttrDefine }
func (e HlAttrDefineEvent) Len() int { return len(e) }
func (HlAttrDefineEvent) isEvent() {}

func (HlGroupSetEvent) Name() string { return NameHlGroupSet }
func (e HlGroupSetEvent) Len() int { return len(e) }
func (HlGroupSetEvent) isEvent() {}

func (GridLineEvent) Name() string { return NameGridLine }
func (e GridLineEvent) Len() int { return len(e) }
func (GridLineEvent) isEvent() {}

func (GridClearEvent) Name() string { return NameGridClear }
func (e GridClearEvent) Len() int { return len(e) }
func (GridClearEvent) isEvent() {}

func (GridDestroyEvent) Name() string { return NameGridDestroy }
func (e GridDestroyEvent) Len() int { return len(e) }
func (GridDestroyEvent) isEvent() {}

func (GridCursorGotoEvent) Name() string { return NameGridCursorGoto }
func (e GridCursorGotoEvent) Len() int { return len(e) }
func (GridCursorGotoEvent) isEvent() {}

func (GridScrollEvent) Name() string { return NameGridScroll }
func (e GridScrollEvent) Len() int { return len(e) }
func (GridScrollEvent) isEvent() {}

func (WinPosEvent) Name() string { return NameWinPos }
func (e WinPosEvent) Len() int { return len(e) }
func (WinPosEvent) isEvent() {}

func (WinFloatPosEvent) Name() string { return NameWinFloatPos }
func (e WinFloatPosEvent) Len() int { return len(e) }
func (WinFloatPosEvent) isEvent() {}

func (WinExternalPosEvent) Name() string { return NameWinExternalPos }
func (e WinExternalPosEvent) Len() int { return len(e) }
func (WinExternalPosEvent) isEvent() {}

func (WinHideEvent) Name() string { return NameWinHide }
func (e WinHideEvent) Len() int { return len(e) }
func (WinHideEvent) isEvent() {}

func (WinCloseEvent) Name() string { return NameWinClose }
func (e WinCloseEvent) Len() int { return len(e) }
func (WinCloseEvent) isEvent() {}

func (MsgSetPosEvent) Name() string { return NameMsgSetPos }
func (e MsgSetPosEvent) Len() int { return len(e) }
func (MsgSetPosEvent) isEvent() {}

func (WinViewportEvent) Name() string { return NameWinViewport }
func (e WinViewportEvent) Len() int { return len(e) }
func (WinViewportEvent) isEvent() {}

func (WinViewportMarginsEvent) Name() string { return NameWinViewportMargins }
func (e WinViewportMarginsEvent) Len() int { return len(e) }
func (WinViewportMarginsEvent) isEvent() {}

func (WinExtmarkEvent) Name() string { return NameWinExtmark }
func (e WinExtmarkEvent) Len() int { return len(e) }
func (WinExtmarkEvent) isEvent() {}

func (PopupmenuShowEvent) Name() string { return NamePopupmenuShow }
func (e PopupmenuShowEvent) Len() int { return len(e) }
func (PopupmenuShowEvent) isEvent() {}

func (PopupmenuSelectEvent) Name() string { return NamePopupmenuSelect }
func (e PopupmenuSelectEvent) Len() int { return len(e) }
func (PopupmenuSelectEvent) isEvent() {}

func (PopupmenuHideEvent) Name() string { return NamePopupmenuHide }
func (e PopupmenuHideEvent) Len() int { return e.Count }
func (PopupmenuHideEvent) isEvent() {}

func (TablineUpdateEvent) Name() string { return NameTablineUpdate }
func (e TablineUpdateEvent) Len() int { return len(e) }
func (TablineUpdateEvent) isEvent() {}

func (CmdlineShowEvent) Name() string { return NameCmdlineShow }
func (e CmdlineShowEvent) Len() int { return len(e) }
func (CmdlineShowEvent) isEvent() {}

func (CmdlinePosEvent) Name() string { return NameCmdlinePos }
func (e CmdlinePosEvent) Len() int { return len(e) }
func (CmdlinePosEvent) isEvent() {}

func (CmdlineSpecialCharEvent) Name() string { return NameCmdlineSpecialChar }
func (e CmdlineSpecialCharEvent) Len() int { return len(e) }
func (CmdlineSpecialCharEvent) isEvent() {}

func (CmdlineHideEvent) Name() string { return NameCmdlineHide }
func (e CmdlineHideEvent) Len() int { return len(e) }
func (CmdlineHideEvent) isEvent() {}

func (CmdlineBlockShowEvent) Name() string { return NameCmdlineBlockShow }
func (e CmdlineBlockShowEvent) Len() int { return len(e) }
func (CmdlineBlockShowEvent) isEvent() {}

func (CmdlineBlockAppendEvent) Name() string { return NameCmdlineBlockAppend }
func (e CmdlineBlockAppendEvent) Len() int { return len(e) }
func (CmdlineBlockAppendEvent) isEvent() {}

func (CmdlineBlockHideEvent) Name() string { return NameCmdlineBlockHide }
func (e CmdlineBlockHideEvent) Len() int { return e.Count }
func (CmdlineBlockHideEvent) isEvent() {}

func (MsgShowEvent) Name() string { return NameMsgShow }
func (e MsgShowEvent) Len() int { return len(e) }
func (MsgShowEvent) isEvent() {}

func (MsgClearEvent) Name() string { return NameMsgClear }
func (e MsgClearEvent) Len() int { return e.Count }
func (MsgClearEvent) isEvent() {}

func (MsgShowmodeEvent) Name() string { return NameMsgShowmode }
func (e MsgShowmodeEvent) Len() int { return len(e) }
func (MsgShowmodeEvent) isEvent() {}

func (MsgShowcmdEvent) Name() string { return NameMsgShowcmd }
func (e MsgShowcmdEvent) Len() int { return len(e) }
func (MsgShowcmdEvent) isEvent() {}

func (MsgRulerEvent) Name() string { return NameMsgRuler }
func (e MsgRulerEvent) Len() int { return len(e) }
func (MsgRulerEvent) isEvent() {}

func (MsgHistoryShowEvent) Name() string { return NameMsgHistoryShow }
func (e MsgHistoryShowEvent) Len() int { return len(e) }
func (MsgHistoryShowEvent) isEvent() {}

func (MsgHistoryClearEvent) Name() string { return NameMsgHistoryClear }
func (e MsgHistoryClearEvent) Len() int { return e.Count }
func (MsgHistoryClearEvent) isEvent() {}
