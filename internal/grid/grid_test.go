package grid

import (
	"math"
	"testing"
)

func TestInferStep(t *testing.T) {
	t.Parallel()

	// Step equals the minimal positive gap between consecutive sorted
	// unique values, even with duplicates and uneven spacing present.
	cells := []Cell{
		{Lon: 0, Lat: 0, Rate: 1},
		{Lon: 0.5, Lat: 0, Rate: 1},
		{Lon: 2.0, Lat: 0.25, Rate: 1},
		{Lon: 0.5, Lat: 0.25, Rate: 1},
	}
	g := New(cells)

	if g.DLon != 0.5 {
		t.Errorf("DLon = %v, want 0.5", g.DLon)
	}
	if g.DLat != 0.25 {
		t.Errorf("DLat = %v, want 0.25", g.DLat)
	}
	if g.Degenerate {
		t.Error("grid with two distinct values per axis is not degenerate")
	}
}

func TestInferStepDegenerate(t *testing.T) {
	t.Parallel()

	t.Run("collinear", func(t *testing.T) {
		// All cells on one parallel: latitude axis falls back.
		g := New([]Cell{
			{Lon: 0, Lat: 10, Rate: 1},
			{Lon: 1, Lat: 10, Rate: 1},
		})
		if g.DLon != 1 {
			t.Errorf("DLon = %v, want 1", g.DLon)
		}
		if g.DLat != DefaultCellSize {
			t.Errorf("DLat = %v, want default %v", g.DLat, DefaultCellSize)
		}
		if !g.Degenerate {
			t.Error("expected degenerate flag")
		}
	})

	t.Run("singleton", func(t *testing.T) {
		g := New([]Cell{{Lon: 5, Lat: 5, Rate: 1}})
		if g.DLon != DefaultCellSize || g.DLat != DefaultCellSize {
			t.Errorf("singleton grid steps = (%v, %v), want defaults", g.DLon, g.DLat)
		}
	})
}

func TestNewUnwrapsAntimeridian(t *testing.T) {
	t.Parallel()

	g := New([]Cell{
		{Lon: 178, Lat: -20, Rate: 1},
		{Lon: 179, Lat: -20, Rate: 2},
		{Lon: -179, Lat: -20, Rate: 3},
	})

	if !g.Crossing {
		t.Fatal("expected antimeridian crossing")
	}
	if g.Cells[2].Lon != 181 {
		t.Errorf("cell longitude = %v, want unwrapped 181", g.Cells[2].Lon)
	}
	// Step inference runs on unwrapped values: 178, 179, 181 -> 1.
	if g.DLon != 1 {
		t.Errorf("DLon = %v, want 1", g.DLon)
	}
}

func TestLogExtremes(t *testing.T) {
	t.Parallel()

	g := New([]Cell{
		{Lon: 0, Lat: 0, Rate: 0.01},
		{Lon: 1, Lat: 0, Rate: 1},
		{Lon: 0, Lat: 1, Rate: 100},
	})
	vmin, vmax, ok := g.LogExtremes()
	if !ok {
		t.Fatal("expected extremes")
	}
	if math.Abs(vmin-(-2)) > 1e-12 {
		t.Errorf("vmin = %v, want -2", vmin)
	}
	if math.Abs(vmax-2) > 1e-12 {
		t.Errorf("vmax = %v, want 2", vmax)
	}

	if _, _, ok := New(nil).LogExtremes(); ok {
		t.Error("empty grid must report no extremes")
	}
}

func TestExtent(t *testing.T) {
	t.Parallel()

	g := New([]Cell{
		{Lon: 10, Lat: 20, Rate: 1},
		{Lon: 11, Lat: 21, Rate: 1},
	})
	b, ok := g.Extent()
	if !ok {
		t.Fatal("expected extent")
	}
	if b.West != 9.5 || b.East != 11.5 || b.South != 19.5 || b.North != 21.5 {
		t.Errorf("unexpected extent: %+v", b)
	}
}
