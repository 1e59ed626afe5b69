package render

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA"; the leading '#' is
// optional.
func ParseHexColor(hex string) (color.NRGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if s == "" {
		return color.NRGBA{}, eris.Wrap(ErrInvalidColor, "render: empty color string")
	}
	val, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, eris.Wrapf(ErrInvalidColor, "render: %q", hex)
	}

	switch len(s) {
	case 6:
		return color.NRGBA{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val), A: 255}, nil
	case 8:
		return color.NRGBA{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
	default:
		return color.NRGBA{}, eris.Wrapf(ErrInvalidColor, "render: %q has %d digits", hex, len(s))
	}
}

// HexColor formats c as "#rrggbb", dropping alpha.
func HexColor(c color.NRGBA) string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
