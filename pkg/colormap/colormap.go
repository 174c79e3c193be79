// Package colormap provides color schemes and the log-rate color scale
// used for forecast visualization.
package colormap

import (
	"image/color"
	"math"
)

// Colormap maps normalized values [0, 1] to colors.
type Colormap interface {
	At(t float64) color.Color
	AtIndex(i int) color.Color
	Len() int
}

// LinearColormap is a fixed palette of discrete color stops.
type LinearColormap struct {
	colors []color.RGBA
}

// At returns the discrete palette stop for position t (0-1).
// The stop index is floor(t * (len-1)); values outside [0, 1] clamp
// to the first/last stop.
func (c LinearColormap) At(t float64) color.Color {
	if t <= 0 {
		return c.colors[0]
	}
	if t >= 1 {
		return c.colors[len(c.colors)-1]
	}
	idx := int(t * float64(len(c.colors)-1))
	return c.colors[idx]
}

// AtIndex returns color at index i (wraps around).
func (c LinearColormap) AtIndex(i int) color.Color {
	return c.colors[i%len(c.colors)]
}

// Len returns the number of palette stops.
func (c LinearColormap) Len() int {
	return len(c.colors)
}

// Scale is a two-sided range over log10(rate) space. Either bound may be
// overridden independently of the dataset's extremes.
type Scale struct {
	Min float64
	Max float64
}

// Normalize maps a log10 value into [0, 1] over the scale. A degenerate
// scale (Min == Max) maps everything to 0.5.
func (s Scale) Normalize(logRate float64) float64 {
	if s.Max == s.Min {
		return 0.5
	}
	t := (logRate - s.Min) / (s.Max - s.Min)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// RateColor maps a raw forecast rate to a palette color through the
// log10 pipeline: log -> normalize -> clamp -> discrete stop. Alpha is
// supplied by the caller (0-255).
func RateColor(cmap Colormap, rate float64, scale Scale, alpha uint8) color.RGBA {
	t := scale.Normalize(math.Log10(rate))
	c := cmap.At(t)
	r, g, b, _ := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: alpha}
}

// Viridis colormap (matplotlib viridis)
var Viridis = LinearColormap{
	colors: []color.RGBA{
		{68, 1, 84, 255},
		{72, 35, 116, 255},
		{64, 67, 135, 255},
		{52, 94, 141, 255},
		{41, 120, 142, 255},
		{32, 144, 140, 255},
		{34, 167, 132, 255},
		{68, 190, 112, 255},
		{121, 209, 81, 255},
		{189, 222, 38, 255},
		{253, 231, 37, 255},
	},
}

// Plasma colormap
var Plasma = LinearColormap{
	colors: []color.RGBA{
		{13, 8, 135, 255},
		{75, 3, 161, 255},
		{125, 3, 168, 255},
		{168, 34, 150, 255},
		{203, 70, 121, 255},
		{229, 107, 93, 255},
		{248, 148, 65, 255},
		{253, 195, 40, 255},
		{240, 249, 33, 255},
	},
}

// Inferno colormap
var Inferno = LinearColormap{
	colors: []color.RGBA{
		{0, 0, 4, 255},
		{40, 11, 84, 255},
		{101, 21, 110, 255},
		{159, 42, 99, 255},
		{212, 72, 66, 255},
		{245, 125, 21, 255},
		{250, 193, 39, 255},
		{252, 255, 164, 255},
	},
}

// Magma colormap
var Magma = LinearColormap{
	colors: []color.RGBA{
		{0, 0, 4, 255},
		{28, 16, 68, 255},
		{79, 18, 123, 255},
		{129, 37, 129, 255},
		{181, 54, 122, 255},
		{229, 80, 100, 255},
		{251, 135, 97, 255},
		{254, 194, 135, 255},
		{252, 253, 191, 255},
	},
}

// ByName returns the named colormap, or Viridis if unknown.
func ByName(name string) Colormap {
	switch name {
	case "plasma":
		return Plasma
	case "inferno":
		return Inferno
	case "magma":
		return Magma
	default:
		return Viridis
	}
}
