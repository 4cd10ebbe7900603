// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nvimrpc/services/nvim/nvimtest"
	"github.com/AleutianAI/nvimrpc/services/nvim/rpc"
)

// connect starts a client against a fake editor and runs its read loop.
func connect(t *testing.T) (*Nvim, *nvimtest.Server) {
	t.Helper()
	srv := nvimtest.NewServer()
	conn := srv.Conn()
	client := rpc.NewClient(conn)

	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = client.Serve(context.Background(), rpc.NewReader(conn), nil)
	}()
	t.Cleanup(func() {
		srv.Close()
		<-served
	})
	return New(client), srv
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func sampleAPIInfo(major, minor, patch int64, prerelease bool) rpc.Value {
	return rpc.Array(rpc.Int(3), rpc.Map(
		rpc.KV("version", rpc.Map(
			rpc.KV("major", rpc.Int(major)),
			rpc.KV("minor", rpc.Int(minor)),
			rpc.KV("patch", rpc.Int(patch)),
			rpc.KV("api_level", rpc.Int(12)),
			rpc.KV("prerelease", rpc.Bool(prerelease)),
		)),
		rpc.KV("functions", rpc.Array(
			rpc.Map(rpc.KV("name", rpc.String("nvim_ui_attach"))),
			rpc.Map(rpc.KV("name", rpc.String("nvim_input"))),
		)),
		rpc.KV("ui_events", rpc.Array(rpc.Map(rpc.KV("name", rpc.String("grid_line"))))),
	))
}

func TestUIOptions_Value(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		v := DefaultUIOptions().Value()
		want := rpc.Map(rpc.KV("rgb", rpc.Bool(true)), rpc.KV("ext_linegrid", rpc.Bool(true)))
		assert.True(t, want.Equal(v), "got %s", v)
	})

	t.Run("rgb is always sent", func(t *testing.T) {
		v := UIOptions{ExtMultigrid: true}.Value()
		want := rpc.Map(rpc.KV("rgb", rpc.Bool(false)), rpc.KV("ext_multigrid", rpc.Bool(true)))
		assert.True(t, want.Equal(v), "got %s", v)
	})
}

func TestNvim_UIAttach(t *testing.T) {
	nv, srv := connect(t)
	srv.Handle("nvim_ui_attach", func([]rpc.Value) (rpc.Value, error) { return rpc.Nil(), nil })
	ctx := testCtx(t)

	cr, err := nv.UIAttach(ctx, 80, 30, DefaultUIOptions())
	require.NoError(t, err)
	_, err = cr.Wait(ctx)
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "nvim_ui_attach", reqs[0].Method)
	require.Len(t, reqs[0].Params, 3)
	assert.True(t, reqs[0].Params[0].Equal(rpc.Int(80)))
	assert.True(t, reqs[0].Params[1].Equal(rpc.Int(30)))
	assert.True(t, reqs[0].Params[2].Equal(DefaultUIOptions().Value()))
}

func TestNvim_Calls(t *testing.T) {
	nv, srv := connect(t)
	ctx := testCtx(t)

	srv.Handle("nvim_input", func(p []rpc.Value) (rpc.Value, error) {
		s, _ := p[0].AsString()
		return rpc.Int(int64(len(s))), nil
	})
	srv.Handle("nvim_eval", func([]rpc.Value) (rpc.Value, error) { return rpc.Int(2), nil })
	srv.Handle("nvim_command", func(p []rpc.Value) (rpc.Value, error) {
		return rpc.Nil(), errors.New("Vim:E492: Not an editor command: bogus")
	})
	for _, m := range []string{"nvim_ui_try_resize", "nvim_ui_detach", "nvim_ui_pum_set_bounds", "nvim_input_mouse", "nvim_set_client_info"} {
		srv.Handle(m, func([]rpc.Value) (rpc.Value, error) { return rpc.Nil(), nil })
	}

	n, err := nv.Input(ctx, "<Esc>:wq<CR>")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	v, err := nv.Eval(ctx, "1 + 1")
	require.NoError(t, err)
	assert.True(t, v.Equal(rpc.Int(2)))

	err = nv.Command(ctx, "bogus")
	var remote *rpc.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Message, "E492")

	require.NoError(t, nv.UITryResize(ctx, 100, 40))
	require.NoError(t, nv.UIPumSetBounds(ctx, 20, 5, 3, 7))
	require.NoError(t, nv.InputMouse(ctx, "left", "press", "", 1, 2, 3))
	require.NoError(t, nv.SetClientInfo(ctx, ClientInfo{Name: "nvimrpc", Version: Version{Minor: 1}, Attributes: map[string]string{"website": "example.org"}}))
	require.NoError(t, nv.UIDetach(ctx))

	var setInfo *rpc.Request
	for _, r := range srv.Requests() {
		if r.Method == "nvim_set_client_info" {
			setInfo = r
		}
	}
	require.NotNil(t, setInfo)
	require.Len(t, setInfo.Params, 5)
	assert.True(t, setInfo.Params[2].Equal(rpc.String("ui")), "type defaults to ui")

	t.Run("unknown method", func(t *testing.T) {
		_, err := nv.Client().Request(ctx, "nvim_does_not_exist")
		var remote *rpc.RemoteError
		require.ErrorAs(t, err, &remote)
		assert.True(t, remote.IsException())
	})
}

func TestNvim_GetAPIInfo(t *testing.T) {
	nv, srv := connect(t)
	srv.Handle("nvim_get_api_info", func([]rpc.Value) (rpc.Value, error) {
		return sampleAPIInfo(0, 10, 2, false), nil
	})

	info, err := nv.GetAPIInfo(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.ChannelID)
	assert.Equal(t, "0.10.2", info.Version.String())
	assert.Equal(t, int64(12), info.Version.APILevel)
	assert.Equal(t, []string{"nvim_ui_attach", "nvim_input"}, info.Functions)
	assert.Equal(t, []string{"grid_line"}, info.UIEvents)
	assert.True(t, info.HasFunction("nvim_input"))
	assert.False(t, info.HasFunction("nvim_exec_lua"))
}

func TestParseAPIInfo_Errors(t *testing.T) {
	for name, v := range map[string]rpc.Value{
		"not an array":     rpc.Int(1),
		"short array":      rpc.Array(rpc.Int(1)),
		"channel not int":  rpc.Array(rpc.String("1"), rpc.Map()),
		"metadata not map": rpc.Array(rpc.Int(1), rpc.Array()),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAPIInfo(v)
			assert.ErrorIs(t, err, ErrUnexpectedResult)
		})
	}
}

func TestCheckMinVersion(t *testing.T) {
	tests := []struct {
		name    string
		info    rpc.Value
		min     string
		wantErr error
	}{
		{"newer", sampleAPIInfo(0, 10, 2, false), "0.9.0", nil},
		{"equal with v prefix", sampleAPIInfo(0, 9, 0, false), "v0.9.0", nil},
		{"older", sampleAPIInfo(0, 8, 3, false), "0.9.0", ErrVersionTooOld},
		{"prerelease of required version", sampleAPIInfo(0, 11, 0, true), "0.11.0", ErrVersionTooOld},
		{"invalid minimum", sampleAPIInfo(0, 10, 0, false), "latest", ErrInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseAPIInfo(tt.info)
			require.NoError(t, err)
			err = CheckMinVersion(info, tt.min)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
