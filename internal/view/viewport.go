// Package view provides the viewport model and the geocoordinate-to-pixel
// projections used by the painter.
package view

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/csep-views/server/internal/geo"
)

// Projection converts between geographic coordinates and a planar space.
// Longitudes handed to Project are already antimeridian-unwrapped, so
// implementations never need to reason about the seam.
type Projection interface {
	// Project maps (lon, lat) to planar coordinates.
	Project(lon, lat float64) r2.Point
	// Unproject inverts Project.
	Unproject(p r2.Point) (lon, lat float64)
}

// WebMercator is the standard spherical Mercator projection (EPSG:3857),
// in meters.
type WebMercator struct{}

const originShift = 2.0 * math.Pi * 6378137.0 / 2.0

// Project maps (lon, lat) to Web-Mercator meters.
func (WebMercator) Project(lon, lat float64) r2.Point {
	x := lon * originShift / 180.0
	y := math.Log(math.Tan((90.0+lat)*math.Pi/360.0)) / (math.Pi / 180.0)
	y = y * originShift / 180.0
	return r2.Point{X: x, Y: y}
}

// Unproject maps Web-Mercator meters back to (lon, lat).
func (WebMercator) Unproject(p r2.Point) (lon, lat float64) {
	lon = p.X / originShift * 180.0
	lat = p.Y / originShift * 180.0
	lat = 180.0 / math.Pi * (2.0*math.Atan(math.Exp(lat*math.Pi/180.0)) - math.Pi/2.0)
	return lon, lat
}

// PlateCarree is the identity lon/lat projection, useful for tests and
// for hosts that already work in degrees.
type PlateCarree struct{}

// Project maps (lon, lat) to itself.
func (PlateCarree) Project(lon, lat float64) r2.Point {
	return r2.Point{X: lon, Y: lat}
}

// Unproject maps a planar point back to (lon, lat).
func (PlateCarree) Unproject(p r2.Point) (lon, lat float64) {
	return p.X, p.Y
}

// Viewport is the visible geographic extent bound to a pixel surface.
// It owns the bidirectional geocoordinate <-> pixel mapping at the
// current pan/zoom state.
type Viewport struct {
	BBox   geo.BBox
	Width  int
	Height int

	proj Projection

	// Planar frame of the bbox under proj, precomputed once.
	origin r2.Point
	span   r2.Point
}

// NewViewport binds a bounding box to a pixel surface through a
// projection. The bbox is unwrapped first if it crosses the antimeridian.
func NewViewport(bbox geo.BBox, width, height int, proj Projection) *Viewport {
	bbox = geo.NormalizeBBox(bbox)

	sw := proj.Project(bbox.West, bbox.South)
	ne := proj.Project(bbox.East, bbox.North)

	return &Viewport{
		BBox:   bbox,
		Width:  width,
		Height: height,
		proj:   proj,
		origin: r2.Point{X: sw.X, Y: ne.Y},
		span:   r2.Point{X: ne.X - sw.X, Y: ne.Y - sw.Y},
	}
}

// ToPixel maps an unwrapped geographic coordinate to surface pixels.
// Pixel y grows downward from the top edge.
func (v *Viewport) ToPixel(lon, lat float64) r2.Point {
	p := v.proj.Project(lon, lat)
	px := (p.X - v.origin.X) / v.span.X * float64(v.Width)
	py := (v.origin.Y - p.Y) / v.span.Y * float64(v.Height)
	return r2.Point{X: px, Y: py}
}

// FromPixel inverts ToPixel, mapping a surface pixel to (lon, lat).
func (v *Viewport) FromPixel(px r2.Point) (lon, lat float64) {
	x := v.origin.X + px.X/float64(v.Width)*v.span.X
	y := v.origin.Y - px.Y/float64(v.Height)*v.span.Y
	return v.proj.Unproject(r2.Point{X: x, Y: y})
}

// Contains reports whether a pixel rectangle intersects the surface.
// Rectangles entirely outside are culled before any drawing cost.
func (v *Viewport) Contains(rect r2.Rect) bool {
	if rect.X.Hi < 0 || rect.X.Lo > float64(v.Width) {
		return false
	}
	if rect.Y.Hi < 0 || rect.Y.Lo > float64(v.Height) {
		return false
	}
	return true
}
