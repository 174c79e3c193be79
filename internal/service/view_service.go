// Package service provides business logic for the forecast view server.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang/geo/r2"

	"github.com/csep-views/server/internal/cache"
	"github.com/csep-views/server/internal/catalog"
	"github.com/csep-views/server/internal/control"
	"github.com/csep-views/server/internal/data"
	"github.com/csep-views/server/internal/geo"
	"github.com/csep-views/server/internal/grid"
	"github.com/csep-views/server/internal/observability"
	"github.com/csep-views/server/internal/render"
	"github.com/csep-views/server/internal/view"
	"github.com/csep-views/server/pkg/colormap"
)

// ErrNoSelection is returned by view operations before any model and
// time window has been selected.
var ErrNoSelection = fmt.Errorf("no model/time-window selected")

// ViewServiceConfig contains view service configuration.
type ViewServiceConfig struct {
	DatasetID string
	Loader    data.Loader
	Cache     *cache.Manager
	Metrics   *observability.Metrics
	Painter   render.Config
}

// ViewService owns the state of one dataset view: the current selection,
// its grid and catalog, the active color scale, and the range slider.
// Selections are sequenced by a generation number so a stale fetch can
// never overwrite a newer one.
type ViewService struct {
	datasetID string
	loader    data.Loader
	cache     *cache.Manager
	metrics   *observability.Metrics
	painterCf render.Config

	mu         sync.Mutex
	generation uint64
	current    *viewState
}

// viewState is the fully rebuilt per-selection state. It is replaced
// wholesale on every applied selection, never patched.
type viewState struct {
	model  string
	window string

	grid    *grid.Grid
	events  *catalog.Collection
	painter *render.Painter
	bbox    geo.BBox

	vmin, vmax float64 // dataset log10 extremes
	scale      colormap.Scale
	slider     *control.RangeSlider
}

// NewViewService creates a view service for one dataset.
func NewViewService(cfg ViewServiceConfig) *ViewService {
	return &ViewService{
		datasetID: cfg.DatasetID,
		loader:    cfg.Loader,
		cache:     cfg.Cache,
		metrics:   cfg.Metrics,
		painterCf: cfg.Painter,
	}
}

// Select resolves a model + time-window selection. The fetch may be slow;
// if a newer selection is issued before this one resolves, the result is
// discarded silently (last-request-wins) and the newer state is kept.
func (s *ViewService) Select(ctx context.Context, model, window string) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	fc, cat, err := s.fetch(ctx, model, window)
	if err != nil {
		s.metrics.Selections.WithLabelValues("error").Inc()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// A newer selection was issued while this one was in flight.
		s.metrics.Selections.WithLabelValues("stale").Inc()
		return nil
	}

	s.current = s.buildState(model, window, fc, cat)
	s.metrics.Selections.WithLabelValues("applied").Inc()
	return nil
}

// fetch loads both payloads, going through the injected dataset cache
// keyed by model + time-window.
func (s *ViewService) fetch(ctx context.Context, model, window string) (*data.ForecastPayload, *data.CatalogPayload, error) {
	key := cache.DatasetKey(s.datasetID, model, window)

	if raw, ok := s.cache.GetDataset(key); ok {
		var cached cachedSelection
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached.Forecast, &cached.Catalog, nil
		}
	}

	fc, err := s.loader.LoadForecast(ctx, model, window)
	if err != nil {
		return nil, nil, err
	}
	cat, err := s.loader.LoadCatalog(ctx, window)
	if err != nil {
		return nil, nil, err
	}

	if raw, err := json.Marshal(cachedSelection{Forecast: *fc, Catalog: *cat}); err == nil {
		s.cache.SetDataset(key, raw)
	}
	return fc, cat, nil
}

type cachedSelection struct {
	Forecast data.ForecastPayload `json:"forecast"`
	Catalog  data.CatalogPayload  `json:"catalog"`
}

// buildState rebuilds grid, index, painter, scale, and slider for a
// selection.
func (s *ViewService) buildState(model, window string, fc *data.ForecastPayload, cat *data.CatalogPayload) *viewState {
	// One antimeridian decision for the whole dataset: a catalog whose
	// events sit on one side of the seam must still unwrap with the grid.
	lons := make([]float64, 0, len(fc.Cells)+len(cat.Events))
	for _, c := range fc.Cells {
		lons = append(lons, c.Lon)
	}
	for _, e := range cat.Events {
		lons = append(lons, e.Lon)
	}
	crossing := geo.CrossesAntimeridian(lons)

	g := grid.NewWithCrossing(fc.Cells, crossing)
	if g.Degenerate {
		log.Printf("[%s] %s/%s: grid spacing not inferable, using %v degree cells",
			s.datasetID, model, window, grid.DefaultCellSize)
	}

	events := catalog.NewCollectionWithCrossing(cat.Events, crossing)
	start := s.experimentStart()

	vmin, vmax := fc.VMin, fc.VMax
	if vmin == 0 && vmax == 0 {
		// Loader did not precompute extremes; fall back to the grid's own.
		if gmin, gmax, ok := g.LogExtremes(); ok {
			vmin, vmax = gmin, gmax
		} else {
			vmin, vmax = 0, 1
		}
	}
	if vmax <= vmin {
		vmax = vmin + 1
	}

	st := &viewState{
		model:   model,
		window:  window,
		grid:    g,
		events:  events,
		painter: render.NewPainter(s.painterCf, g, events, start),
		vmin:    vmin,
		vmax:    vmax,
		scale:   colormap.Scale{Min: vmin, Max: vmax},
	}

	if bbox, ok := cat.BoundingBox(); ok {
		st.bbox = geo.NormalizeBBox(bbox)
	} else if extent, ok := g.Extent(); ok {
		st.bbox = extent
	}

	step := (vmax - vmin) / 100
	st.slider = control.NewRangeSlider(vmin, vmax, step, func(r control.Range) {
		st.scale = colormap.Scale{Min: r.Min, Max: r.Max}
	})
	st.slider.SetValues(vmin, vmax)

	return st
}

// experimentStart reads the manifest's evaluation start time; a missing
// or unparsable manifest leaves the zero time, which classifies every
// event as test.
func (s *ViewService) experimentStart() time.Time {
	m, err := s.loader.Manifest(context.Background())
	if err != nil || m.StartTime == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, m.StartTime)
	if err != nil {
		log.Printf("[%s] invalid manifest start_time %q: %v", s.datasetID, m.StartTime, err)
		return time.Time{}
	}
	return t
}

// Selection returns the current model and window, or ok=false before the
// first applied selection.
func (s *ViewService) Selection() (model, window string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", "", false
	}
	return s.current.model, s.current.window, true
}

// Extremes returns the current dataset's log10 extremes.
func (s *ViewService) Extremes() (vmin, vmax float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return 0, 0, ErrNoSelection
	}
	return s.current.vmin, s.current.vmax, nil
}

// Scale returns the active color scale.
func (s *ViewService) Scale() (colormap.Scale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return colormap.Scale{}, ErrNoSelection
	}
	return s.current.scale, nil
}

// OverrideRange moves the color scale bounds through the slider
// controller, which clamps them and enforces one-step separation. The
// accepted pair is returned.
func (s *ViewService) OverrideRange(min, max float64) (control.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return control.Range{}, ErrNoSelection
	}
	// SetValues emits through the slider's onChange, which owns the
	// active scale.
	s.current.slider.SetValues(min, max)
	s.metrics.RangeOverride.Inc()
	return s.current.slider.Values(), nil
}

// ResetRange restores the dataset's own log10 extremes.
func (s *ViewService) ResetRange() (control.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return control.Range{}, ErrNoSelection
	}
	s.current.slider.SetValues(s.current.vmin, s.current.vmax)
	return s.current.slider.Values(), nil
}

// ViewParams describe one requested viewport render.
type ViewParams struct {
	Width    int
	Height   int
	BBox     *geo.BBox // nil = dataset extent
	Colormap string
	VMin     *float64 // nil = active scale bound
	VMax     *float64
}

// RenderView paints the current dataset for a viewport and returns PNG
// bytes. Renders are cached by the full parameter set.
func (s *ViewService) RenderView(p ViewParams) ([]byte, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, ErrNoSelection
	}
	st := s.current

	scale := st.scale
	if p.VMin != nil {
		scale.Min = *p.VMin
	}
	if p.VMax != nil {
		scale.Max = *p.VMax
	}
	if scale.Max < scale.Min {
		// Overrides bypass the slider, so an inverted pair is possible
		// here; render with the bounds swapped, never reversed.
		scale.Min, scale.Max = scale.Max, scale.Min
	}
	bbox := st.bbox
	if p.BBox != nil {
		bbox = geo.NormalizeBBox(*p.BBox)
	}
	model, window := st.model, st.window
	s.mu.Unlock()

	bboxKey := fmt.Sprintf("%g,%g,%g,%g", bbox.West, bbox.South, bbox.East, bbox.North)
	key := cache.ViewKey(s.datasetID, model, window, p.Width, p.Height, bboxKey, scale.Min, scale.Max, p.Colormap)
	if png, ok := s.cache.GetView(key); ok {
		s.metrics.ViewCache.WithLabelValues("hit").Inc()
		return png, nil
	}
	s.metrics.ViewCache.WithLabelValues("miss").Inc()

	painter := st.painter
	if p.Colormap != "" {
		cfg := s.painterCf
		cfg.Colormap = colormap.ByName(p.Colormap)
		painter = painter.WithConfig(cfg)
	}

	vp := view.NewViewport(bbox, p.Width, p.Height, view.WebMercator{})
	surface := render.NewGGSurface(p.Width, p.Height)

	started := time.Now()
	painter.Repaint(surface, vp, scale)
	s.metrics.Repaints.Inc()
	s.metrics.RepaintTime.Observe(time.Since(started).Seconds())

	png, err := render.EncodePNG(surface)
	if err != nil {
		return nil, fmt.Errorf("failed to encode view: %w", err)
	}
	if err := s.cache.SetView(key, png); err != nil {
		log.Printf("[%s] view cache write failed: %v", s.datasetID, err)
	}
	return png, nil
}

// HitResult is the JSON answer to a pointer query.
type HitResult struct {
	Hit     bool     `json:"hit"`
	Tooltip string   `json:"tooltip,omitempty"`
	LogRate *float64 `json:"log_rate,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
}

// HitTest converts a pointer pixel within a rendered viewport back to a
// geocoordinate and queries the spatial index. A miss hides the tooltip.
func (s *ViewService) HitTest(p ViewParams, x, y float64) (HitResult, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return HitResult{}, ErrNoSelection
	}
	st := s.current
	bbox := st.bbox
	if p.BBox != nil {
		bbox = geo.NormalizeBBox(*p.BBox)
	}
	model, window := st.model, st.window
	s.mu.Unlock()

	vp := view.NewViewport(bbox, p.Width, p.Height, view.WebMercator{})

	// Queries repeat heavily while the pointer hovers one cell; cache by
	// the unprojected coordinate rather than the pixel.
	lon, lat := vp.FromPixel(r2.Point{X: x, Y: y})
	key := cache.QueryKey(s.datasetID, model, window, lon, lat)
	if raw, ok := s.cache.GetQuery(key); ok {
		var cached HitResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}

	hit, ok := st.painter.HitTest(vp, r2.Point{X: x, Y: y})
	res := HitResult{Hit: false}
	if ok {
		s.metrics.HitTests.WithLabelValues("hit").Inc()
		res = HitResult{
			Hit:     true,
			Tooltip: hit.Tooltip,
			LogRate: &hit.LogRate,
			Lon:     &hit.Cell.Lon,
			Lat:     &hit.Cell.Lat,
		}
	} else {
		s.metrics.HitTests.WithLabelValues("miss").Inc()
	}

	if raw, err := json.Marshal(res); err == nil {
		s.cache.SetQuery(key, raw)
	}
	return res, nil
}
