package catalog

import (
	"testing"
	"time"
)

func TestCategorize(t *testing.T) {
	t.Parallel()

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	before := Event{Time: start.Add(-time.Hour)}
	if got := before.Categorize(start); got != CategoryInput {
		t.Errorf("event before start: %v, want input", got)
	}

	at := Event{Time: start}
	if got := at.Categorize(start); got != CategoryTest {
		t.Errorf("event at start: %v, want test", got)
	}

	after := Event{Time: start.Add(time.Hour)}
	if got := after.Categorize(start); got != CategoryTest {
		t.Errorf("event after start: %v, want test", got)
	}
}

func TestNewCollectionUnwraps(t *testing.T) {
	t.Parallel()

	c := NewCollection([]Event{
		{Lon: 178, Lat: -20, Magnitude: 5},
		{Lon: -179, Lat: -21, Magnitude: 6},
	})
	if !c.Crossing {
		t.Fatal("expected crossing")
	}
	if c.Events[1].Lon != 181 {
		t.Errorf("longitude = %v, want 181", c.Events[1].Lon)
	}
}

func TestNewCollectionWithCrossingUnwrapsOneSided(t *testing.T) {
	t.Parallel()

	// A single western-hemisphere event never trips the detector on its
	// own; a crossing decided over the whole dataset must still unwrap it.
	c := NewCollectionWithCrossing([]Event{{Lon: -179, Lat: -20, Magnitude: 5}}, true)
	if c.Events[0].Lon != 181 {
		t.Errorf("longitude = %v, want unwrapped 181", c.Events[0].Lon)
	}
	if !c.Crossing {
		t.Error("crossing flag not carried")
	}
}

func TestNormalizedMagnitude(t *testing.T) {
	t.Parallel()

	c := NewCollection([]Event{
		{Magnitude: 4},
		{Magnitude: 6},
		{Magnitude: 8},
	})
	if got := c.NormalizedMagnitude(4); got != 0 {
		t.Errorf("min magnitude normalized = %v, want 0", got)
	}
	if got := c.NormalizedMagnitude(8); got != 1 {
		t.Errorf("max magnitude normalized = %v, want 1", got)
	}
	if got := c.NormalizedMagnitude(6); got != 0.5 {
		t.Errorf("mid magnitude normalized = %v, want 0.5", got)
	}
}

func TestNormalizedMagnitudeDegenerate(t *testing.T) {
	t.Parallel()

	c := NewCollection([]Event{{Magnitude: 5}, {Magnitude: 5}})
	if got := c.NormalizedMagnitude(5); got != 0.5 {
		t.Errorf("equal-magnitude collection normalized = %v, want 0.5", got)
	}
}
