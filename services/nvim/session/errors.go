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
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for sessions.
var (
	// ErrUnhandledRequest is returned by an UnhandledSink that did not
	// answer a request. The session then replies with an exception so
	// the editor is not left waiting.
	ErrUnhandledRequest = errors.New("unhandled request")

	// ErrInvalidPolicy indicates an unrecognised decode policy name.
	ErrInvalidPolicy = errors.New("invalid decode policy")
)

// Policy selects what a session does with a redraw notification that
// fails to decode.
type Policy int

const (
	// PolicySkip logs the failure and drops the whole notification.
	PolicySkip Policy = iota

	// PolicyHalt stops the session with the decode error.
	PolicyHalt
)

var policyNames = []string{"skip", "halt"}

// String returns the string representation of the policy.
func (p Policy) String() string {
	if int(p) >= 0 && int(p) < len(policyNames) {
		return policyNames[p]
	}
	return "unknown"
}

// ParsePolicy parses "skip" or "halt". The empty string is PolicySkip.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return PolicySkip, nil
	case "halt":
		return PolicyHalt, nil
	default:
		return PolicySkip, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}
