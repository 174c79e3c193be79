// Package control implements the two-thumb range slider driving the
// color scale bounds.
package control

import "math"

// Thumb identifies which end of the range a drag moves.
type Thumb uint8

const (
	ThumbNone Thumb = iota
	ThumbMin
	ThumbMax
)

func (t Thumb) String() string {
	switch t {
	case ThumbMin:
		return "min"
	case ThumbMax:
		return "max"
	default:
		return "none"
	}
}

// Range is an accepted [min, max] pair emitted on every accepted move.
type Range struct {
	Min float64
	Max float64
}

// RangeSlider is a two-thumb control over a continuous domain with a
// fixed step. Thumbs snap to step multiples and can never cross or
// collapse: min stays at most max-step, max at least min+step.
type RangeSlider struct {
	domainMin float64
	domainMax float64
	step      float64

	minValue float64
	maxValue float64

	active Thumb
	width  float64 // control width in pixels while a drag is active

	onChange func(Range)
}

// NewRangeSlider creates a slider spanning [domainMin, domainMax] with
// both thumbs at the domain edges. onChange may be nil.
func NewRangeSlider(domainMin, domainMax, step float64, onChange func(Range)) *RangeSlider {
	return &RangeSlider{
		domainMin: domainMin,
		domainMax: domainMax,
		step:      step,
		minValue:  domainMin,
		maxValue:  domainMax,
		onChange:  onChange,
	}
}

// Values returns the current [min, max] pair.
func (s *RangeSlider) Values() Range {
	return Range{Min: s.minValue, Max: s.maxValue}
}

// Dragging reports which thumb an active drag holds, or ThumbNone.
func (s *RangeSlider) Dragging() Thumb {
	return s.active
}

// BeginDrag starts a drag on a thumb. width is the control's pixel width
// used to convert subsequent pointer positions; a non-positive width is
// ignored and no drag starts.
func (s *RangeSlider) BeginDrag(thumb Thumb, width float64) {
	if thumb == ThumbNone || width <= 0 {
		return
	}
	s.active = thumb
	s.width = width
}

// Drag handles a pointer movement at pixel offset x from the control's
// left edge. Movement is tracked even when x falls outside the control's
// bounds. The pointer position becomes a domain value snapped to the
// nearest step multiple, clamped to the domain and to one step away from
// the opposite thumb. Every accepted movement emits the updated pair.
func (s *RangeSlider) Drag(x float64) {
	if s.active == ThumbNone {
		return
	}

	pct := x / s.width
	value := s.domainMin + pct*(s.domainMax-s.domainMin)
	value = math.Round(value/s.step) * s.step
	value = clamp(value, s.domainMin, s.domainMax)

	switch s.active {
	case ThumbMin:
		value = math.Min(value, s.maxValue-s.step)
		value = math.Max(value, s.domainMin)
		s.minValue = value
	case ThumbMax:
		value = math.Max(value, s.minValue+s.step)
		value = math.Min(value, s.domainMax)
		s.maxValue = value
	}

	if s.onChange != nil {
		s.onChange(s.Values())
	}
}

// EndDrag releases the active thumb, wherever the release happens.
func (s *RangeSlider) EndDrag() {
	s.active = ThumbNone
	s.width = 0
}

// SetValues replaces both thumbs (used when the dataset changes and the
// slider resets to the new log10 extremes). Values are clamped to the
// domain and forced one step apart without leaving the domain: a pair
// collapsed at the ceiling pulls min down instead of pushing max out.
// The accepted pair is emitted like any drag movement.
func (s *RangeSlider) SetValues(min, max float64) {
	min = clamp(min, s.domainMin, s.domainMax)
	max = clamp(max, s.domainMin, s.domainMax)
	if max-min < s.step {
		max = min + s.step
		if max > s.domainMax {
			max = s.domainMax
			min = clamp(max-s.step, s.domainMin, s.domainMax)
		}
	}
	s.minValue = min
	s.maxValue = max

	if s.onChange != nil {
		s.onChange(s.Values())
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
