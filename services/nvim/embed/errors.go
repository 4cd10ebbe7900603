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

import "errors"

// Sentinel errors for the embedded editor process.
var (
	// ErrNotInstalled indicates the editor binary was not found on PATH.
	ErrNotInstalled = errors.New("nvim not installed")

	// ErrAlreadyStarted indicates Start was called on a process that is not idle.
	ErrAlreadyStarted = errors.New("process already started")

	// ErrNotRunning indicates the process is not in the running state.
	ErrNotRunning = errors.New("process not running")
)
