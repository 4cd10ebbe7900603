// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package uievents

import "fmt"

// Color is a 24-bit RGB color or NoColor.
//
// The editor sends colors as packed integers and uses -1 for "not set".
// NoColor is distinct from black (0x000000).
type Color struct {
	rgb uint32
	set bool
}

// NoColor is the unset color; renderers fall back to their defaults.
var NoColor = Color{}

// RGB builds a color from a packed 0xRRGGBB value. Bits above 24 are dropped.
func RGB(rgb uint32) Color {
	return Color{rgb: rgb & 0xffffff, set: true}
}

// ColorFromInt converts a wire color. Negative values (the -1 sentinel)
// yield NoColor. Values wider than 24 bits are ErrOutOfRange.
func ColorFromInt(n int64) (Color, error) {
	if n < 0 {
		return NoColor, nil
	}
	if n > 0xffffff {
		return NoColor, fmt.Errorf("%w: color 0x%x", ErrOutOfRange, n)
	}
	return RGB(uint32(n)), nil
}

// IsSet reports whether c holds an actual color.
func (c Color) IsSet() bool { return c.set }

// Packed returns the 0xRRGGBB value; zero for NoColor.
func (c Color) Packed() uint32 { return c.rgb }

// Components returns the red, green and blue channels.
func (c Color) Components() (r, g, b uint8) {
	return uint8(c.rgb >> 16), uint8(c.rgb >> 8), uint8(c.rgb)
}

// Hex formats c as "#rrggbb", or "none" for NoColor.
func (c Color) Hex() string {
	if !c.set {
		return "none"
	}
	return fmt.Sprintf("#%06x", c.rgb)
}

// String implements fmt.Stringer.
func (c Color) String() string { return c.Hex() }

// MarshalText encodes the color as Hex, so JSON output reads "#rrggbb".
func (c Color) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }
