package grid

import "math"

// Index provides O(1) lookup of the cell under a geographic point. Cells
// are keyed by their integer lattice position relative to the grid origin.
type Index struct {
	grid   *Grid
	minLon float64
	minLat float64
	cells  map[indexKey]*Cell
}

type indexKey struct {
	latIdx int
	lonIdx int
}

// NewIndex builds the lookup structure. The index holds pointers into the
// grid's cell slice, so the grid must not be mutated while indexed.
func NewIndex(g *Grid) *Index {
	idx := &Index{
		grid:  g,
		cells: make(map[indexKey]*Cell, len(g.Cells)),
	}
	if len(g.Cells) == 0 {
		return idx
	}

	idx.minLon = g.Cells[0].Lon
	idx.minLat = g.Cells[0].Lat
	for _, c := range g.Cells[1:] {
		idx.minLon = math.Min(idx.minLon, c.Lon)
		idx.minLat = math.Min(idx.minLat, c.Lat)
	}

	for i := range g.Cells {
		c := &g.Cells[i]
		idx.cells[idx.keyFor(c.Lon, c.Lat)] = c
	}
	return idx
}

// Lookup returns the cell containing the query point, or nil. The lattice
// candidate is verified against the cell's half-extents (inclusive on both
// sides) so a rounding artifact at a boundary yields no match rather than
// a wrong neighbor.
func (idx *Index) Lookup(lon, lat float64) *Cell {
	if len(idx.cells) == 0 {
		return nil
	}

	c, ok := idx.cells[idx.keyFor(lon, lat)]
	if !ok {
		return nil
	}

	if math.Abs(lon-c.Lon) > idx.grid.DLon/2 {
		return nil
	}
	if math.Abs(lat-c.Lat) > idx.grid.DLat/2 {
		return nil
	}
	return c
}

// Len returns the number of indexed cells.
func (idx *Index) Len() int {
	return len(idx.cells)
}

func (idx *Index) keyFor(lon, lat float64) indexKey {
	return indexKey{
		latIdx: int(math.Round((lat - idx.minLat) / idx.grid.DLat)),
		lonIdx: int(math.Round((lon - idx.minLon) / idx.grid.DLon)),
	}
}
