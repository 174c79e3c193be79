// Package grid models a uniform rectangular forecast lattice and provides
// constant-time spatial lookup of cells.
package grid

import (
	"math"
	"sort"

	"github.com/csep-views/server/internal/geo"
)

// DefaultCellSize is the fallback spacing, in degrees, for an axis whose
// step cannot be inferred from the data.
const DefaultCellSize = 0.1

// Cell is one tile of a forecast raster. Rate is strictly positive; cells
// with zero rate are dropped upstream by the loading service.
type Cell struct {
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
	Rate float64 `json:"rate"`
}

// Grid is a collection of cells on a uniform lattice together with the
// inferred step sizes along each axis.
type Grid struct {
	Cells []Cell
	DLon  float64
	DLat  float64

	// Crossing records whether the cell longitudes straddle the
	// antimeridian; when set, Cells hold unwrapped longitudes.
	Crossing bool

	// Degenerate is set when either axis fell back to DefaultCellSize.
	Degenerate bool
}

// New builds a Grid from raw cells. When the longitudes straddle the
// antimeridian every cell longitude is unwrapped before step inference so
// the lattice stays contiguous across the seam.
func New(cells []Cell) *Grid {
	lons := make([]float64, len(cells))
	for i, c := range cells {
		lons[i] = c.Lon
	}
	return NewWithCrossing(cells, geo.CrossesAntimeridian(lons))
}

// NewWithCrossing builds a Grid with the antimeridian decision already
// made. Callers that pair a grid with other coordinate sets (catalog
// events) decide crossing once over the union and pass it here, so every
// longitude of the dataset unwraps the same way.
func NewWithCrossing(cells []Cell, crossing bool) *Grid {
	normalized := make([]Cell, len(cells))
	for i, c := range cells {
		normalized[i] = Cell{
			Lon:  geo.NormalizeLon(c.Lon, crossing),
			Lat:  c.Lat,
			Rate: c.Rate,
		}
	}

	lons := make([]float64, len(normalized))
	lats := make([]float64, len(normalized))
	for i, c := range normalized {
		lons[i] = c.Lon
		lats[i] = c.Lat
	}

	dLon, okLon := inferStep(lons)
	dLat, okLat := inferStep(lats)

	return &Grid{
		Cells:      normalized,
		DLon:       dLon,
		DLat:       dLat,
		Crossing:   crossing,
		Degenerate: !okLon || !okLat,
	}
}

// LogExtremes returns the dataset's own log10(rate) extremes, the default
// color scale before any user override. The second return is false when
// the grid is empty.
func (g *Grid) LogExtremes() (vmin, vmax float64, ok bool) {
	if len(g.Cells) == 0 {
		return 0, 0, false
	}
	vmin = math.Inf(1)
	vmax = math.Inf(-1)
	for _, c := range g.Cells {
		v := math.Log10(c.Rate)
		if v < vmin {
			vmin = v
		}
		if v > vmax {
			vmax = v
		}
	}
	return vmin, vmax, true
}

// Extent returns the bounding box of the (possibly unwrapped) cell
// centers padded by half a cell on every side.
func (g *Grid) Extent() (geo.BBox, bool) {
	if len(g.Cells) == 0 {
		return geo.BBox{}, false
	}
	west, east := g.Cells[0].Lon, g.Cells[0].Lon
	south, north := g.Cells[0].Lat, g.Cells[0].Lat
	for _, c := range g.Cells[1:] {
		west = math.Min(west, c.Lon)
		east = math.Max(east, c.Lon)
		south = math.Min(south, c.Lat)
		north = math.Max(north, c.Lat)
	}
	return geo.BBox{
		West:  west - g.DLon/2,
		South: south - g.DLat/2,
		East:  east + g.DLon/2,
		North: north + g.DLat/2,
	}, true
}

// inferStep returns the minimal positive gap between consecutive sorted
// unique values, or DefaultCellSize (ok=false) when fewer than two
// distinct values exist.
func inferStep(values []float64) (float64, bool) {
	if len(values) < 2 {
		return DefaultCellSize, false
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	step := math.Inf(1)
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i] - sorted[i-1]
		if gap > 0 && gap < step {
			step = gap
		}
	}
	if math.IsInf(step, 1) {
		// All values identical along this axis.
		return DefaultCellSize, false
	}
	return step, true
}
