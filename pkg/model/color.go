package model

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Color is an RGBA color. It is serialized as "#rrggbbaa".
type Color struct {
	R, G, B, A uint8
}

var (
	Transparent = Color{}
	White       = Color{0xff, 0xff, 0xff, 0xff}
	Black       = Color{0x00, 0x00, 0x00, 0xff}
	Red         = Color{0xff, 0x00, 0x00, 0xff}
	Yellow      = Color{0xff, 0xff, 0x00, 0xff}
	Green       = Color{0x00, 0xff, 0x00, 0xff}
	Blue        = Color{0x00, 0x00, 0xff, 0xff}
	Orange      = Color{0xff, 0xa5, 0x00, 0xff}
)

// ParseColor accepts "rrggbb", "#rrggbb" and "#rrggbbaa"
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return Transparent, nil
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{b[0], b[1], b[2], b[3]}, nil
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(data []byte) error {
	parsed, err := ParseColor(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
