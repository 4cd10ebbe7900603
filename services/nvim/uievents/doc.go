// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package uievents decodes Neovim "redraw" notifications into typed events.
//
// A redraw notification carries a list of batches, each an event name
// followed by one or more occurrences of that event. Decode turns every
// batch into one Event whose concrete type is fixed by the name, for
// example GridLineEvent ([]GridLine) or FlushEvent. Unknown names are an
// error, never skipped, because dropping a redraw instruction silently
// corrupts screen state.
//
// Colors use Color, which keeps the editor's "unset" sentinel (-1) as
// NoColor instead of black.
//
// Decode is a pure function and safe for concurrent use.
package uievents
