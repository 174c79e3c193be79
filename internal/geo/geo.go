// Package geo provides antimeridian-safe longitude handling for datasets
// that straddle the 180/-180 line.
package geo

// BBox is a geographic bounding box in [west, south, east, north] order.
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Crosses reports whether the box itself straddles the antimeridian,
// which presents as west > east.
func (b BBox) Crosses() bool {
	return b.West > b.East
}

// CrossesAntimeridian reports whether a longitude set straddles the
// antimeridian. The raw spread must exceed 180 degrees (strictly; a spread
// of exactly 180 is treated as not crossing) while the spread after
// shifting negative longitudes by +360 falls below 180.
func CrossesAntimeridian(lons []float64) bool {
	if len(lons) < 2 {
		return false
	}

	rawMin, rawMax := lons[0], lons[0]
	shiftMin, shiftMax := shift(lons[0]), shift(lons[0])
	for _, lon := range lons[1:] {
		if lon < rawMin {
			rawMin = lon
		}
		if lon > rawMax {
			rawMax = lon
		}
		s := shift(lon)
		if s < shiftMin {
			shiftMin = s
		}
		if s > shiftMax {
			shiftMax = s
		}
	}

	return rawMax-rawMin > 180 && shiftMax-shiftMin < 180
}

// NormalizeLon unwraps a longitude for a crossing dataset: negative
// longitudes shift east by +360 so the dataset renders as one contiguous
// region. Without a crossing the value passes through unchanged. The same
// crossing flag must be applied to every coordinate of a dataset.
func NormalizeLon(lon float64, crossing bool) float64 {
	if crossing && lon < 0 {
		return lon + 360
	}
	return lon
}

// NormalizeBBox unwraps a crossing bounding box into a contiguous extent.
func NormalizeBBox(b BBox) BBox {
	if !b.Crosses() {
		return b
	}
	return BBox{
		West:  b.West,
		South: b.South,
		East:  NormalizeLon(b.East, true),
		North: b.North,
	}
}

func shift(lon float64) float64 {
	if lon < 0 {
		return lon + 360
	}
	return lon
}
