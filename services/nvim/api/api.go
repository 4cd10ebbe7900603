// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package api provides typed wrappers for the editor methods a UI client
// needs, built on the generic call mechanism of package rpc.
package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/AleutianAI/nvimrpc/services/nvim/rpc"
)

// Sentinel errors for API results.
var (
	// ErrUnexpectedResult indicates a result whose shape does not match the method.
	ErrUnexpectedResult = errors.New("unexpected result shape")

	// ErrVersionTooOld indicates the editor is older than required.
	ErrVersionTooOld = errors.New("editor version too old")

	// ErrInvalidVersion indicates a version string that is not major.minor.patch.
	ErrInvalidVersion = errors.New("invalid version")
)

// =============================================================================
// UI OPTIONS
// =============================================================================

// UIOptions selects the UI protocol extensions passed to nvim_ui_attach.
type UIOptions struct {
	RGB           bool `yaml:"rgb"`
	ExtLinegrid   bool `yaml:"ext_linegrid"`
	ExtMultigrid  bool `yaml:"ext_multigrid"`
	ExtPopupmenu  bool `yaml:"ext_popupmenu"`
	ExtTabline    bool `yaml:"ext_tabline"`
	ExtCmdline    bool `yaml:"ext_cmdline"`
	ExtMessages   bool `yaml:"ext_messages"`
	ExtHlstate    bool `yaml:"ext_hlstate"`
	ExtTermcolors bool `yaml:"ext_termcolors"`
}

// DefaultUIOptions returns rgb colors with the line-based grid protocol.
func DefaultUIOptions() UIOptions {
	return UIOptions{RGB: true, ExtLinegrid: true}
}

// Value encodes the options as an ordered map. rgb is always sent; the
// ext_* keys only when enabled, since older editors reject unknown keys.
func (o UIOptions) Value() rpc.Value {
	entries := []rpc.MapEntry{rpc.KV("rgb", rpc.Bool(o.RGB))}
	for _, ext := range []struct {
		key string
		on  bool
	}{
		{"ext_linegrid", o.ExtLinegrid},
		{"ext_multigrid", o.ExtMultigrid},
		{"ext_popupmenu", o.ExtPopupmenu},
		{"ext_tabline", o.ExtTabline},
		{"ext_cmdline", o.ExtCmdline},
		{"ext_messages", o.ExtMessages},
		{"ext_hlstate", o.ExtHlstate},
		{"ext_termcolors", o.ExtTermcolors},
	} {
		if ext.on {
			entries = append(entries, rpc.KV(ext.key, rpc.Bool(true)))
		}
	}
	return rpc.Map(entries...)
}

// =============================================================================
// API
// =============================================================================

// Nvim wraps a Client with typed editor methods.
//
// Thread Safety:
//
//	Safe for concurrent use.
type Nvim struct {
	client *rpc.Client
}

// New creates the API wrapper.
func New(client *rpc.Client) *Nvim {
	return &Nvim{client: client}
}

// Client returns the underlying client.
func (n *Nvim) Client() *rpc.Client { return n.client }

// UIAttach registers this client as a UI of size width x height.
//
// Description:
//
//	Returns the two-stage handle without waiting for the answer: the
//	editor starts sending redraw notifications right after attaching, and
//	the read loop must already be running to receive the response.
func (n *Nvim) UIAttach(ctx context.Context, width, height int, opts UIOptions) (*rpc.CallResponse, error) {
	return n.client.Call(ctx, "nvim_ui_attach", rpc.Int(int64(width)), rpc.Int(int64(height)), opts.Value())
}

// UITryResize asks the editor to resize the UI.
func (n *Nvim) UITryResize(ctx context.Context, width, height int) error {
	_, err := n.client.Request(ctx, "nvim_ui_try_resize", rpc.Int(int64(width)), rpc.Int(int64(height)))
	return err
}

// UIDetach deregisters this client as a UI.
func (n *Nvim) UIDetach(ctx context.Context) error {
	_, err := n.client.Request(ctx, "nvim_ui_detach")
	return err
}

// UIPumSetBounds tells the editor where the popupmenu was drawn, in grid cells.
func (n *Nvim) UIPumSetBounds(ctx context.Context, width, height, row, col float64) error {
	_, err := n.client.Request(ctx, "nvim_ui_pum_set_bounds",
		rpc.Float(width), rpc.Float(height), rpc.Float(row), rpc.Float(col))
	return err
}

// Input queues raw key input and returns the number of bytes consumed.
func (n *Nvim) Input(ctx context.Context, keys string) (int, error) {
	v, err := n.client.Request(ctx, "nvim_input", rpc.String(keys))
	if err != nil {
		return 0, err
	}
	written, ok := v.AsInt()
	if !ok {
		return 0, fmt.Errorf("%w: nvim_input returned %s", ErrUnexpectedResult, v.Kind())
	}
	return int(written), nil
}

// InputMouse sends a mouse event. button is "left", "right", "middle",
// "wheel" or "move"; action is "press", "drag", "release" (or a wheel
// direction); modifier is a key modifier string such as "C" or "".
func (n *Nvim) InputMouse(ctx context.Context, button, action, modifier string, grid, row, col int) error {
	_, err := n.client.Request(ctx, "nvim_input_mouse",
		rpc.String(button), rpc.String(action), rpc.String(modifier),
		rpc.Int(int64(grid)), rpc.Int(int64(row)), rpc.Int(int64(col)))
	return err
}

// Command runs an Ex command.
func (n *Nvim) Command(ctx context.Context, cmd string) error {
	_, err := n.client.Request(ctx, "nvim_command", rpc.String(cmd))
	return err
}

// Eval evaluates a Vimscript expression.
func (n *Nvim) Eval(ctx context.Context, expr string) (rpc.Value, error) {
	return n.client.Request(ctx, "nvim_eval", rpc.String(expr))
}

// ClientInfo identifies this client to the editor (nvim_set_client_info).
type ClientInfo struct {
	Name       string
	Version    Version
	Type       string
	Attributes map[string]string
}

// SetClientInfo announces the client's identity.
func (n *Nvim) SetClientInfo(ctx context.Context, info ClientInfo) error {
	version := rpc.Map(
		rpc.KV("major", rpc.Int(info.Version.Major)),
		rpc.KV("minor", rpc.Int(info.Version.Minor)),
		rpc.KV("patch", rpc.Int(info.Version.Patch)),
	)
	attrs := make(map[string]any, len(info.Attributes))
	for k, v := range info.Attributes {
		attrs[k] = v
	}
	attrValue, err := rpc.ValueOf(attrs)
	if err != nil {
		return err
	}
	typ := info.Type
	if typ == "" {
		typ = "ui"
	}
	_, err = n.client.Request(ctx, "nvim_set_client_info",
		rpc.String(info.Name), version, rpc.String(typ), rpc.Map(), attrValue)
	return err
}

// =============================================================================
// API INFO
// =============================================================================

// Version is an editor version.
type Version struct {
	Major      int64
	Minor      int64
	Patch      int64
	APILevel   int64
	Prerelease bool
}

// String formats the version as major.minor.patch.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Semver formats the version for golang.org/x/mod/semver.
func (v Version) Semver() string {
	s := "v" + v.String()
	if v.Prerelease {
		s += "-dev"
	}
	return s
}

// APIInfo is the parsed result of nvim_get_api_info.
type APIInfo struct {
	ChannelID int64
	Version   Version
	Functions []string
	UIEvents  []string
	// Raw is the metadata map as received.
	Raw rpc.Value
}

// HasFunction reports whether the editor exposes the named API function.
func (a *APIInfo) HasFunction(name string) bool {
	for _, f := range a.Functions {
		if f == name {
			return true
		}
	}
	return false
}

// GetAPIInfo fetches and parses the channel id and API metadata.
func (n *Nvim) GetAPIInfo(ctx context.Context) (*APIInfo, error) {
	v, err := n.client.Request(ctx, "nvim_get_api_info")
	if err != nil {
		return nil, err
	}
	return ParseAPIInfo(v)
}

// ParseAPIInfo parses a nvim_get_api_info result: [channel_id, metadata].
func ParseAPIInfo(v rpc.Value) (*APIInfo, error) {
	items, ok := v.AsArray()
	if !ok || len(items) < 2 {
		return nil, fmt.Errorf("%w: api info is %s", ErrUnexpectedResult, v)
	}
	channel, ok := items[0].AsInt()
	if !ok {
		return nil, fmt.Errorf("%w: channel id is %s", ErrUnexpectedResult, items[0].Kind())
	}
	if _, ok := items[1].AsMap(); !ok {
		return nil, fmt.Errorf("%w: metadata is %s", ErrUnexpectedResult, items[1].Kind())
	}
	info := &APIInfo{ChannelID: channel, Raw: items[1]}

	if ver, ok := items[1].Lookup("version"); ok {
		info.Version.Major = intField(ver, "major")
		info.Version.Minor = intField(ver, "minor")
		info.Version.Patch = intField(ver, "patch")
		info.Version.APILevel = intField(ver, "api_level")
		if pre, ok := ver.Lookup("prerelease"); ok {
			info.Version.Prerelease, _ = pre.AsBool()
		}
	}
	info.Functions = names(items[1], "functions")
	info.UIEvents = names(items[1], "ui_events")
	return info, nil
}

func intField(m rpc.Value, key string) int64 {
	v, ok := m.Lookup(key)
	if !ok {
		return 0
	}
	n, _ := v.AsInt()
	return n
}

// names collects the "name" key of every map in the list under key.
func names(meta rpc.Value, key string) []string {
	list, ok := meta.Lookup(key)
	if !ok {
		return nil
	}
	items, _ := list.AsArray()
	out := make([]string, 0, len(items))
	for _, it := range items {
		if nv, ok := it.Lookup("name"); ok {
			if s, ok := nv.AsString(); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// CheckMinVersion returns ErrVersionTooOld if info's editor is older than
// min ("0.9.0" or "v0.9.0"). A prerelease counts as older than its release.
func CheckMinVersion(info *APIInfo, min string) error {
	want := min
	if !strings.HasPrefix(want, "v") {
		want = "v" + want
	}
	if !semver.IsValid(want) {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, min)
	}
	have := info.Version.Semver()
	if semver.Compare(have, want) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrVersionTooOld, have, want)
	}
	return nil
}
