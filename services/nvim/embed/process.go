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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// State represents the lifecycle state of an embedded editor process.
type State int

const (
	// StateIdle means Start has not been called.
	StateIdle State = iota

	// StateStarting means the process is being spawned.
	StateStarting

	// StateRunning means the process is running and its pipes are usable.
	StateRunning

	// StateStopping means Close is in progress.
	StateStopping

	// StateStopped means the process has exited, on its own or via Close.
	StateStopped
)

var stateNames = []string{"idle", "starting", "running", "stopping", "stopped"}

// String returns the string representation of the state.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// DefaultShutdownTimeout bounds how long Close waits for a graceful exit.
const DefaultShutdownTimeout = 5 * time.Second

// Config describes how to spawn the editor.
type Config struct {
	// Command is the executable name or path.
	Command string `yaml:"command" validate:"required"`

	// Args are passed to Command. The editor must be told to speak
	// msgpack-RPC over stdio, "--embed" for nvim.
	Args []string `yaml:"args"`

	// Dir is the working directory. Empty means the current directory.
	Dir string `yaml:"dir"`

	// Env is appended to the current environment.
	Env []string `yaml:"env"`

	// ShutdownTimeout bounds the graceful exit in Close. Zero means
	// DefaultShutdownTimeout.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`

	// Stderr receives the editor's stderr. Nil discards it.
	Stderr io.Writer `yaml:"-"`
}

// DefaultConfig returns a Config that runs "nvim --embed".
func DefaultConfig() Config {
	return Config{
		Command:         "nvim",
		Args:            []string{"--embed"},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Process manages an embedded editor subprocess.
//
// Description:
//
//	Process owns the child's stdin and stdout. The caller builds an
//	rpc.Client on Stdin and an rpc.Reader on Stdout; Close ends the child.
//
// Thread Safety:
//
//	Process is safe for concurrent use.
type Process struct {
	cfg    Config
	logger *slog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File

	state   State
	started bool
	stateMu sync.RWMutex

	exited  chan struct{}
	exitErr error

	closeMu  sync.Mutex
	closed   bool
	closeErr error
}

// New creates a Process for cfg. The process is not started.
func New(cfg Config, logger *slog.Logger) *Process {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &Process{
		cfg:    cfg,
		logger: logger.With(slog.String("command", cfg.Command)),
		state:  StateIdle,
		exited: make(chan struct{}),
	}
}

// Start creates and starts a Process for cfg.
//
// Description:
//
//	Convenience wrapper around New followed by Process.Start, logging to
//	slog.Default().
//
// Inputs:
//
//	ctx - Checked before spawning. The process outlives it.
//	cfg - Spawn configuration.
//
// Outputs:
//
//	*Process - The running process.
//	error - ErrNotInstalled or a spawn failure.
func Start(ctx context.Context, cfg Config) (*Process, error) {
	p := New(cfg, nil)
	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Start spawns the editor.
//
// Description:
//
//	Looks up the command, wires stdin and stdout pipes and starts the
//	child. Stdout is a plain os.Pipe so reaping the child never closes it
//	under a reader that has not drained it yet.
//
// Inputs:
//
//	ctx - Checked before spawning. Cancelling it later does not stop the
//	      process; use Close.
//
// Outputs:
//
//	error - ErrAlreadyStarted if not idle, ErrNotInstalled if the command
//	        is not found, or a wrapped exec error.
//
// Thread Safety:
//
//	Safe for concurrent use. Only one call succeeds.
func (p *Process) Start(ctx context.Context) error {
	p.stateMu.Lock()
	if p.state != StateIdle {
		p.stateMu.Unlock()
		return ErrAlreadyStarted
	}
	p.state = StateStarting
	p.stateMu.Unlock()

	if err := ctx.Err(); err != nil {
		p.setState(StateStopped)
		return err
	}

	path, err := exec.LookPath(p.cfg.Command)
	if err != nil {
		p.setState(StateStopped)
		recordSpawn(ctx, false)
		p.logger.Warn("editor binary not found", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %s", ErrNotInstalled, p.cfg.Command)
	}

	cmd := exec.Command(path, p.cfg.Args...)
	cmd.Dir = p.cfg.Dir
	if len(p.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), p.cfg.Env...)
	}
	cmd.Stderr = p.cfg.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		p.setState(StateStopped)
		recordSpawn(ctx, false)
		return fmt.Errorf("creating stdin pipe: %w", err)
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdin.Close()
		p.setState(StateStopped)
		recordSpawn(ctx, false)
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW

	p.logger.Info("starting embedded editor",
		slog.String("path", path),
		slog.Any("args", p.cfg.Args),
	)

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutR.Close()
		stdoutW.Close()
		p.setState(StateStopped)
		recordSpawn(ctx, false)
		return fmt.Errorf("starting editor: %w", err)
	}
	// The child holds its own copy of the write end.
	stdoutW.Close()

	p.cmd = cmd
	p.stdin = stdin
	p.stdout = stdoutR
	recordSpawn(ctx, true)

	p.stateMu.Lock()
	p.state = StateRunning
	p.started = true
	p.stateMu.Unlock()

	go p.wait()

	p.logger.Info("embedded editor started", slog.Int("pid", cmd.Process.Pid))
	return nil
}

// wait reaps the child and records its exit.
func (p *Process) wait() {
	err := p.cmd.Wait()
	p.exitErr = err

	p.stateMu.Lock()
	if p.state != StateStopping {
		p.state = StateStopped
	}
	p.stateMu.Unlock()

	close(p.exited)
	recordExit(context.Background())

	if err != nil {
		p.logger.Info("embedded editor exited", slog.String("error", err.Error()))
	} else {
		p.logger.Info("embedded editor exited")
	}
}

// Stdin returns the write side connected to the editor's stdin.
// Nil before Start succeeds.
func (p *Process) Stdin() io.WriteCloser {
	return p.stdin
}

// Stdout returns the read side connected to the editor's stdout.
// Nil before Start succeeds.
func (p *Process) Stdout() io.ReadCloser {
	if p.stdout == nil {
		return nil
	}
	return p.stdout
}

// Pid returns the process id, or 0 when not started.
func (p *Process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// State returns the current lifecycle state.
func (p *Process) State() State {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.state
}

// Exited is closed once the child has been reaped.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// ExitErr returns the child's exit error once Exited is closed.
func (p *Process) ExitErr() error {
	select {
	case <-p.exited:
		return p.exitErr
	default:
		return nil
	}
}

// Close stops the editor.
//
// Description:
//
//	Closes stdin, which makes nvim exit on its own. If the child has not
//	exited within ShutdownTimeout it is killed. Stdout is closed last.
//	Once a started process has been closed, later calls return the same
//	result. A Close that returns ErrNotRunning leaves the process closable.
//
// Outputs:
//
//	error - ErrNotRunning if the process has not finished starting,
//	        otherwise nil once the child is gone.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (p *Process) Close() error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return p.closeErr
	}
	err := p.shutdown()
	if errors.Is(err, ErrNotRunning) {
		return err
	}
	p.closed = true
	p.closeErr = err
	return err
}

func (p *Process) shutdown() error {
	p.stateMu.Lock()
	if !p.started {
		p.stateMu.Unlock()
		return ErrNotRunning
	}
	if p.state == StateRunning {
		p.state = StateStopping
	}
	p.stateMu.Unlock()

	p.logger.Info("stopping embedded editor")

	if err := p.stdin.Close(); err != nil {
		p.logger.Debug("closing stdin", slog.String("error", err.Error()))
	}

	timer := time.NewTimer(p.cfg.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-p.exited:
	case <-timer.C:
		p.logger.Warn("embedded editor did not exit, killing",
			slog.Duration("timeout", p.cfg.ShutdownTimeout),
		)
		if err := p.cmd.Process.Kill(); err != nil {
			p.logger.Warn("kill failed", slog.String("error", err.Error()))
		}
		<-p.exited
	}

	p.stdout.Close()
	p.setState(StateStopped)
	return nil
}

func (p *Process) setState(s State) {
	p.stateMu.Lock()
	p.state = s
	p.stateMu.Unlock()
}
