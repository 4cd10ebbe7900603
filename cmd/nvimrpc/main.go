// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command nvimrpc drives an embedded Neovim over msgpack-rpc.
//
// Usage:
//
//	nvimrpc attach --width 100 --height 30 --exec "edit README.md"
//	nvimrpc eval "1 + 2"
//	nvimrpc version --editor
//
// attach spawns "nvim --embed", attaches as a UI and prints every decoded
// redraw event as one JSON object per line until interrupted.
//
// Configuration is read from the user config directory
// (nvimrpc/config.yaml) or --config. NVIMRPC_NVIM and NVIMRPC_LOG_LEVEL
// override the editor command and log level.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
