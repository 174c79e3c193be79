// Package catalog models observed seismicity used as marker overlays.
package catalog

import (
	"time"

	"github.com/csep-views/server/internal/geo"
)

// Category splits a catalog at the experiment's start time.
type Category int

const (
	// CategoryInput marks events preceding the experiment start, shown
	// beneath test events and with lower opacity.
	CategoryInput Category = iota
	// CategoryTest marks events inside the evaluation window.
	CategoryTest
)

func (c Category) String() string {
	if c == CategoryInput {
		return "input"
	}
	return "test"
}

// Event is one observed earthquake. Category is derived from the event
// time against a reference start, never stored.
type Event struct {
	Lon       float64   `json:"lon"`
	Lat       float64   `json:"lat"`
	Magnitude float64   `json:"magnitude"`
	Time      time.Time `json:"time"`
	ID        string    `json:"event_id"`
}

// Categorize derives the event's category: input if it precedes the
// reference start time, test otherwise.
func (e Event) Categorize(start time.Time) Category {
	if e.Time.Before(start) {
		return CategoryInput
	}
	return CategoryTest
}

// Collection is an ordered set of events with the antimeridian decision
// applied uniformly to every longitude.
type Collection struct {
	Events   []Event
	Crossing bool

	minMag float64
	maxMag float64
}

// NewCollection normalizes event longitudes as one dataset and computes
// the magnitude extremes used for marker sizing.
func NewCollection(events []Event) *Collection {
	lons := make([]float64, len(events))
	for i, e := range events {
		lons[i] = e.Lon
	}
	return NewCollectionWithCrossing(events, geo.CrossesAntimeridian(lons))
}

// NewCollectionWithCrossing builds a collection with the antimeridian
// decision already made. A catalog paired with a crossing grid must
// unwrap even when its own events cluster on one side of the seam, or
// markers land 360 degrees away from their cells.
func NewCollectionWithCrossing(events []Event, crossing bool) *Collection {
	normalized := make([]Event, len(events))
	for i, e := range events {
		e.Lon = geo.NormalizeLon(e.Lon, crossing)
		normalized[i] = e
	}

	c := &Collection{Events: normalized, Crossing: crossing}
	for i, e := range normalized {
		if i == 0 || e.Magnitude < c.minMag {
			c.minMag = e.Magnitude
		}
		if i == 0 || e.Magnitude > c.maxMag {
			c.maxMag = e.Magnitude
		}
	}
	return c
}

// NormalizedMagnitude maps an event magnitude into [0, 1] over the
// collection's extremes, or 0.5 when all magnitudes are equal.
func (c *Collection) NormalizedMagnitude(mag float64) float64 {
	if c.maxMag == c.minMag {
		return 0.5
	}
	t := (mag - c.minMag) / (c.maxMag - c.minMag)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
