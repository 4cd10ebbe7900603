// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package embed

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireCommand(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available: %v", name, err)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "nvim", cfg.Command)
	assert.Equal(t, []string{"--embed"}, cfg.Args)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestStart_NotInstalled(t *testing.T) {
	_, err := Start(context.Background(), Config{Command: "nvimrpc-no-such-binary"})
	require.ErrorIs(t, err, ErrNotInstalled)
}

func TestStart_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(Config{Command: "cat"}, nil)
	err := p.Start(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateStopped, p.State())
}

func TestProcess_EchoAndClose(t *testing.T) {
	requireCommand(t, "cat")

	p, err := Start(context.Background(), Config{Command: "cat"})
	require.NoError(t, err)
	assert.Equal(t, StateRunning, p.State())
	assert.NotZero(t, p.Pid())

	_, err = io.WriteString(p.Stdin(), "hello\n")
	require.NoError(t, err)

	line, err := bufio.NewReader(p.Stdout()).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line)

	require.NoError(t, p.Close())
	assert.Equal(t, StateStopped, p.State())
	assert.NoError(t, p.ExitErr())

	select {
	case <-p.Exited():
	default:
		t.Fatal("Exited not closed after Close")
	}

	// Idempotent.
	require.NoError(t, p.Close())
}

func TestProcess_StdoutDrainsAfterExit(t *testing.T) {
	requireCommand(t, "cat")

	p, err := Start(context.Background(), Config{Command: "cat"})
	require.NoError(t, err)

	_, err = io.WriteString(p.Stdin(), "tail")
	require.NoError(t, err)
	require.NoError(t, p.Stdin().Close())

	<-p.Exited()

	data, err := io.ReadAll(p.Stdout())
	require.NoError(t, err)
	assert.Equal(t, "tail", string(data))
	require.NoError(t, p.Close())
}

func TestProcess_AlreadyStarted(t *testing.T) {
	requireCommand(t, "cat")

	p := New(Config{Command: "cat"}, nil)
	require.NoError(t, p.Start(context.Background()))
	defer p.Close()

	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)
}

func TestProcess_KillAfterTimeout(t *testing.T) {
	requireCommand(t, "sleep")

	p, err := Start(context.Background(), Config{
		Command:         "sleep",
		Args:            []string{"30"},
		ShutdownTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, p.Close())
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, StateStopped, p.State())
	assert.Error(t, p.ExitErr())
}

func TestProcess_CloseNotStarted(t *testing.T) {
	p := New(DefaultConfig(), nil)
	assert.ErrorIs(t, p.Close(), ErrNotRunning)
	assert.Nil(t, p.Stdout())
}

func TestProcess_CloseBeforeStartStaysClosable(t *testing.T) {
	requireCommand(t, "cat")

	p := New(Config{Command: "cat"}, nil)
	require.ErrorIs(t, p.Close(), ErrNotRunning)

	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Close())
	assert.Equal(t, StateStopped, p.State())

	select {
	case <-p.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("child not stopped by Close after Start")
	}
	require.NoError(t, p.Close())
}

func TestProcess_StoppedAfterExitingOnItsOwn(t *testing.T) {
	requireCommand(t, "true")

	p, err := Start(context.Background(), Config{Command: "true"})
	require.NoError(t, err)

	select {
	case <-p.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("child did not exit")
	}
	assert.Equal(t, StateStopped, p.State())
	assert.NoError(t, p.ExitErr())

	require.NoError(t, p.Close())
	assert.Equal(t, StateStopped, p.State())
}
