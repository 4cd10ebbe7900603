// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"sync"

	"github.com/AleutianAI/nvimrpc/services/nvim/uievents"
)

// EventRecorder is a UI that keeps every event it receives.
//
// Thread Safety:
//
//	Safe for concurrent use.
type EventRecorder struct {
	mu      sync.Mutex
	events  []uievents.Event
	changed chan struct{}
}

// NewEventRecorder creates an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{changed: make(chan struct{})}
}

// HandleEvents appends events.
func (r *EventRecorder) HandleEvents(_ context.Context, events []uievents.Event) error {
	r.mu.Lock()
	r.events = append(r.events, events...)
	close(r.changed)
	r.changed = make(chan struct{})
	r.mu.Unlock()
	return nil
}

// Events returns a copy of the events recorded so far.
func (r *EventRecorder) Events() []uievents.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uievents.Event(nil), r.events...)
}

// Reset forgets all recorded events.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// WaitFor blocks until at least n events are recorded and returns them.
func (r *EventRecorder) WaitFor(ctx context.Context, n int) ([]uievents.Event, error) {
	for {
		r.mu.Lock()
		if len(r.events) >= n {
			out := append([]uievents.Event(nil), r.events...)
			r.mu.Unlock()
			return out, nil
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// WaitForName blocks until an event named name is recorded and returns
// the first such event.
func (r *EventRecorder) WaitForName(ctx context.Context, name string) (uievents.Event, error) {
	for {
		r.mu.Lock()
		for _, ev := range r.events {
			if ev.Name() == name {
				r.mu.Unlock()
				return ev, nil
			}
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
