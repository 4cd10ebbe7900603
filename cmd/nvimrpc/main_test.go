// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/nvimrpc/services/nvim/api"
	"github.com/AleutianAI/nvimrpc/services/nvim/config"
	"github.com/AleutianAI/nvimrpc/services/nvim/nvimtest"
	"github.com/AleutianAI/nvimrpc/services/nvim/rpc"
	"github.com/AleutianAI/nvimrpc/services/nvim/session"
	"github.com/AleutianAI/nvimrpc/services/nvim/uievents"
)

// syncBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testEditor(t *testing.T, ui session.UI) (*editor, *nvimtest.Server) {
	t.Helper()
	srv := nvimtest.NewServer()
	conn := srv.Conn()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := newEditor(conn, conn, conn, config.DefaultConfig(), logger, ui)
	t.Cleanup(func() { srv.Close() })
	return e, srv
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func nilHandler([]rpc.Value) (rpc.Value, error) { return rpc.Nil(), nil }

func hasRequest(srv *nvimtest.Server, method string) bool {
	for _, r := range srv.Requests() {
		if r.Method == method {
			return true
		}
	}
	return false
}

func TestEventDumper(t *testing.T) {
	var buf bytes.Buffer
	d := newEventDumper(&buf, nil)

	events := []uievents.Event{
		uievents.GridLineEvent{{Grid: 1, Row: 2, Cells: []uievents.GridCell{{Text: "x", Repeat: 3}}}},
		uievents.FlushEvent{Count: 1},
	}
	require.NoError(t, d.HandleEvents(context.Background(), events))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"event":"grid_line"`)
	assert.Contains(t, lines[0], `"Text":"x"`)
	assert.Contains(t, lines[1], `"event":"flush"`)
}

func TestEventDumper_Filter(t *testing.T) {
	var buf bytes.Buffer
	d := newEventDumper(&buf, []string{"flush"})

	require.NoError(t, d.HandleEvents(context.Background(), []uievents.Event{
		uievents.BellEvent{Count: 1},
		uievents.FlushEvent{Count: 1},
	}))

	assert.NotContains(t, buf.String(), "bell")
	assert.Contains(t, buf.String(), `"event":"flush"`)
}

func TestEditorRun_Eval(t *testing.T) {
	e, srv := testEditor(t, nil)
	srv.Handle("nvim_eval", func(params []rpc.Value) (rpc.Value, error) {
		return rpc.Int(3), nil
	})

	var out bytes.Buffer
	require.NoError(t, e.run(testCtx(t), evalFunc("1 + 2", &out)))
	assert.Equal(t, "3\n", out.String())
}

func TestEditorRun_EvalRemoteError(t *testing.T) {
	e, _ := testEditor(t, nil)

	err := e.run(testCtx(t), evalFunc("1 +", io.Discard))
	var rerr *rpc.RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Message, "nvim_eval")
}

func TestEditorRun_Attach(t *testing.T) {
	var out syncBuffer
	e, srv := testEditor(t, newEventDumper(&out, nil))
	srv.Handle("nvim_set_client_info", nilHandler)
	srv.Handle("nvim_ui_attach", nilHandler)
	srv.Handle("nvim_command", nilHandler)

	ctx, cancel := context.WithCancel(testCtx(t))
	done := make(chan error, 1)
	go func() {
		done <- e.run(ctx, attachFunc(api.DefaultUIOptions(), attachOptions{width: 40, height: 10, exec: []string{"set number"}}))
	}()

	require.Eventually(t, func() bool { return hasRequest(srv, "nvim_command") }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Notify(session.RedrawMethod, rpc.Array(rpc.String("flush"), rpc.Array())))
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"event":"flush"`)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("attach did not stop")
	}

	var attach *rpc.Request
	for _, r := range srv.Requests() {
		if r.Method == "nvim_ui_attach" {
			attach = r
		}
	}
	require.NotNil(t, attach)
	require.Len(t, attach.Params, 3)
	assert.True(t, rpc.Int(40).Equal(attach.Params[0]))
	assert.True(t, rpc.Int(10).Equal(attach.Params[1]))
}

func TestEditorRun_EditorExit(t *testing.T) {
	e, srv := testEditor(t, nil)

	done := make(chan error, 1)
	go func() {
		done <- e.run(testCtx(t), func(ctx context.Context, _ *api.Nvim) error {
			<-ctx.Done()
			return nil
		})
	}()

	require.NoError(t, srv.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not notice the editor exit")
	}
}

func TestEditorVersionFunc(t *testing.T) {
	info := rpc.Array(rpc.Int(1), rpc.Map(
		rpc.KV("version", rpc.Map(
			rpc.KV("major", rpc.Int(0)),
			rpc.KV("minor", rpc.Int(10)),
			rpc.KV("patch", rpc.Int(2)),
			rpc.KV("api_level", rpc.Int(12)),
		)),
	))

	t.Run("new enough", func(t *testing.T) {
		e, srv := testEditor(t, nil)
		srv.Handle("nvim_get_api_info", func([]rpc.Value) (rpc.Value, error) { return info, nil })

		var out bytes.Buffer
		require.NoError(t, e.run(testCtx(t), editorVersionFunc(&out, "0.9.0")))
		assert.Equal(t, "nvim 0.10.2 (api level 12, channel 1)\n", out.String())
	})

	t.Run("too old", func(t *testing.T) {
		e, srv := testEditor(t, nil)
		srv.Handle("nvim_get_api_info", func([]rpc.Value) (rpc.Value, error) { return info, nil })

		err := e.run(testCtx(t), editorVersionFunc(io.Discard, "0.11.0"))
		assert.ErrorIs(t, err, api.ErrVersionTooOld)
	})
}

func TestDebugRouter(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		router := newDebugRouter("test", func() error { return nil })
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ok"`)
	})

	t.Run("unhealthy", func(t *testing.T) {
		router := newDebugRouter("test", func() error { return assert.AnError })
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestServeDebug_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveDebug(ctx, "127.0.0.1:0", http.NotFoundHandler(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("debug server did not stop")
	}
}

func TestNewLogger_JSONWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, slog.LevelInfo).Info("hello", slog.String("k", "v"))
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestRootCmd_Version(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_METRICS_EXPORTER", "")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "nvimrpc dev\n", out.String())
}

func TestRootCmd_InvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--log-level", "loud", "version"})

	assert.ErrorIs(t, cmd.Execute(), config.ErrInvalidConfig)
}
