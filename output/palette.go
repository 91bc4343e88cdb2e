package output

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
)

// Palette maps values in [Min, Max] onto evenly spaced colour stops with
// linear interpolation between them.
type Palette struct {
	Min    float64
	Max    float64
	Colors []color.RGBA
}

var noDataColor = color.RGBA{0, 0, 0, 0}

func MustHexColors(hex ...string) []color.RGBA {
	colors := make([]color.RGBA, len(hex))
	for i, h := range hex {
		c, err := ParseHex(h)
		if err != nil {
			panic(err)
		}
		colors[i] = c
	}
	return colors
}

func ParseHex(h string) (color.RGBA, error) {
	if len(h) > 0 && h[0] == '#' {
		h = h[1:]
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("bad colour %q", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("bad colour %q: %w", h, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

var (
	NDVIPalette = Palette{Min: -1, Max: 1, Colors: MustHexColors("808080", "ffff00", "008000")}
	LSTPalette  = Palette{Min: 10, Max: 40, Colors: MustHexColors("0000ff", "008000", "ffff00", "ff0000")}
	// IndexPalette colours normalised indices on the 0-100 scale.
	IndexPalette = Palette{Min: 0, Max: 100, Colors: MustHexColors(
		"ffffff", "ce7e45", "df923d", "f1b555", "fcd163", "99b718", "74a901",
		"66a000", "529400", "3e8601", "207401", "056201", "004c00", "023b01",
		"012e01", "011d01", "011301",
	)}
	// ClassColors runs from class 1 (lowest composite) to class 5.
	ClassColors = MustHexColors("d7191c", "fdae61", "ffffbf", "a6d96a", "1a9641")
)

func (p Palette) ColorAt(v float64) color.RGBA {
	if math.IsNaN(v) || len(p.Colors) == 0 {
		return noDataColor
	}
	if len(p.Colors) == 1 || p.Max <= p.Min {
		return p.Colors[0]
	}
	t := (v - p.Min) / (p.Max - p.Min)
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(p.Colors)-1)
	i := int(pos)
	if i >= len(p.Colors)-1 {
		return p.Colors[len(p.Colors)-1]
	}
	f := pos - float64(i)
	a, b := p.Colors[i], p.Colors[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + f*(float64(y)-float64(x))))
	}
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

func classColor(v float64) color.RGBA {
	if math.IsNaN(v) {
		return noDataColor
	}
	c := int(v)
	if c < 1 || c > len(ClassColors) {
		return noDataColor
	}
	return ClassColors[c-1]
}
