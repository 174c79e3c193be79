package render

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/golang/geo/r2"

	"github.com/csep-views/server/internal/catalog"
	"github.com/csep-views/server/internal/grid"
	"github.com/csep-views/server/internal/view"
	"github.com/csep-views/server/pkg/colormap"
)

// Config contains painter tuning.
type Config struct {
	Colormap  colormap.Colormap
	CellAlpha uint8

	// Marker sizing: radius = BaseRadius + normMag^RadiusExponent * RadiusScale.
	BaseRadius     float64
	RadiusScale    float64
	RadiusExponent float64

	InputAlpha uint8 // fill opacity of pre-start (input) markers
	TestAlpha  uint8 // fill opacity of evaluation-window (test) markers
}

// DefaultConfig returns the painter defaults.
func DefaultConfig() Config {
	return Config{
		Colormap:       colormap.Viridis,
		CellAlpha:      200,
		BaseRadius:     2,
		RadiusScale:    10,
		RadiusExponent: 2,
		InputAlpha:     90,
		TestAlpha:      200,
	}
}

// Painter redraws a forecast grid and its catalog overlay on every
// viewport change and answers pointer hit-tests against the grid.
type Painter struct {
	cfg    Config
	grid   *grid.Grid
	index  *grid.Index
	events *catalog.Collection
	start  time.Time
}

// NewPainter builds a painter for one dataset. The spatial index is
// rebuilt wholesale here; datasets are never patched incrementally.
func NewPainter(cfg Config, g *grid.Grid, events *catalog.Collection, start time.Time) *Painter {
	if cfg.Colormap == nil {
		cfg.Colormap = colormap.Viridis
	}
	return &Painter{
		cfg:    cfg,
		grid:   g,
		index:  grid.NewIndex(g),
		events: events,
		start:  start,
	}
}

// Grid returns the painted grid.
func (p *Painter) Grid() *grid.Grid {
	return p.grid
}

// WithConfig returns a painter with different tuning that shares this
// painter's grid, spatial index, and events.
func (p *Painter) WithConfig(cfg Config) *Painter {
	if cfg.Colormap == nil {
		cfg.Colormap = colormap.Viridis
	}
	clone := *p
	clone.cfg = cfg
	return &clone
}

// Repaint draws all visible cells and markers for the current viewport.
// Cells whose projected rectangle lies entirely outside the surface are
// culled before any drawing. Zero cells renders only the empty-state
// placeholder.
func (p *Painter) Repaint(dst Surface, vp *view.Viewport, scale colormap.Scale) {
	dst.Clear(color.White)

	if len(p.grid.Cells) == 0 {
		dst.Label("no data", float64(vp.Width)/2, float64(vp.Height)/2, color.Gray{Y: 120})
		return
	}

	halfLon := p.grid.DLon / 2
	halfLat := p.grid.DLat / 2

	for _, c := range p.grid.Cells {
		// Projected rect from the two opposite geographic corners.
		nw := vp.ToPixel(c.Lon-halfLon, c.Lat+halfLat)
		se := vp.ToPixel(c.Lon+halfLon, c.Lat-halfLat)

		rect := r2.RectFromPoints(nw, se)
		if !vp.Contains(rect) {
			continue
		}

		// Ceil the pixel dims so adjacent cells never leave sub-pixel
		// seams at high zoom.
		w := math.Ceil(se.X - nw.X)
		h := math.Ceil(se.Y - nw.Y)

		dst.FillRect(nw.X, nw.Y, w, h, colormap.RateColor(p.cfg.Colormap, c.Rate, scale, p.cfg.CellAlpha))
	}

	p.paintMarkers(dst, vp)
}

// paintMarkers draws input-category events first so test events always
// stack on top, each category keeping its original order.
func (p *Painter) paintMarkers(dst Surface, vp *view.Viewport) {
	if p.events == nil {
		return
	}
	for _, cat := range []catalog.Category{catalog.CategoryInput, catalog.CategoryTest} {
		alpha := p.cfg.InputAlpha
		if cat == catalog.CategoryTest {
			alpha = p.cfg.TestAlpha
		}
		for _, e := range p.events.Events {
			if e.Categorize(p.start) != cat {
				continue
			}
			px := vp.ToPixel(e.Lon, e.Lat)
			r := p.markerRadius(e.Magnitude)
			rect := r2.RectFromPoints(
				r2.Point{X: px.X - r, Y: px.Y - r},
				r2.Point{X: px.X + r, Y: px.Y + r},
			)
			if !vp.Contains(rect) {
				continue
			}
			dst.FillCircle(px.X, px.Y, r, color.RGBA{R: 40, G: 40, B: 40, A: alpha})
		}
	}
}

func (p *Painter) markerRadius(mag float64) float64 {
	norm := p.events.NormalizedMagnitude(mag)
	return p.cfg.BaseRadius + math.Pow(norm, p.cfg.RadiusExponent)*p.cfg.RadiusScale
}

// Hit is a successful pointer hit on a grid cell.
type Hit struct {
	Cell    *grid.Cell
	LogRate float64
	Tooltip string
}

// HitTest converts a pointer pixel to a geocoordinate through the
// viewport's inverse projection and queries the spatial index. A miss
// (outside any cell, or half-extent verification failed) returns ok=false
// and the caller hides any tooltip.
func (p *Painter) HitTest(vp *view.Viewport, px r2.Point) (Hit, bool) {
	lon, lat := vp.FromPixel(px)
	c := p.index.Lookup(lon, lat)
	if c == nil {
		return Hit{}, false
	}
	logRate := math.Log10(c.Rate)
	return Hit{
		Cell:    c,
		LogRate: logRate,
		Tooltip: fmt.Sprintf("log10(rate): %.2f", logRate),
	}, true
}
