package blendengine

import (
	"fmt"
	"strconv"
)

// tint is a 24-bit RGB color assigned to one channel.
type tint struct {
	r, g, b uint8
}

// parseTint decodes a six-hex-digit string into its RGB components.
// Tints produced by blendsettings.Parse are already checked to be six
// hex digits, so on the Dispatch path this never fails; the error path
// covers settings handed to Blend directly (defence in depth, matching
// original_source/src/TileBlender.cc's std::stoi try/catch at blend time).
func parseTint(hex string) (tint, error) {
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return tint{}, fmt.Errorf("blendengine: invalid tint %q: %w", hex, err)
	}
	return tint{
		r: uint8((v >> 16) & 0xFF),
		g: uint8((v >> 8) & 0xFF),
		b: uint8(v & 0xFF),
	}, nil
}
