package geom

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an 8-bit RGBA color.
type Color struct {
	R uint8
	G uint8
	B uint8
	A uint8
}

// ParseColor parses "#rrggbb" or "#rrggbbaa". The alpha defaults to 0xff.
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return Color{}, fmt.Errorf("parse color %q: want #rrggbb or #rrggbbaa", s)
	}
	n, err := strconv.ParseUint(h, 16, 64)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	if len(h) == 6 {
		n = n<<8 | 0xff
	}
	return Color{
		R: uint8(n >> 24),
		G: uint8(n >> 16),
		B: uint8(n >> 8),
		A: uint8(n),
	}, nil
}

// Hex renders the color as "#rrggbbaa".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
