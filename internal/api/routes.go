// Package api provides HTTP handlers for the forecast view server.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/csep-views/server/internal/geo"
	"github.com/csep-views/server/internal/service"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *DatasetRegistry
	CORSOrigins []string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Global datasets endpoint (not dataset-scoped)
	r.Get("/api/datasets", datasetsHandler(cfg.Registry))

	// Dataset-scoped routes: /d/{dataset}/...
	r.Route("/d/{dataset}", func(r chi.Router) {
		r.Use(datasetMiddleware(cfg.Registry))

		r.Get("/manifest", datasetManifestHandler(cfg.Registry))
		r.Post("/select", datasetSelectHandler)
		r.Get("/view.png", datasetViewHandler)
		r.Get("/query", datasetQueryHandler)
		r.Get("/range", datasetRangeGetHandler)
		r.Put("/range", datasetRangePutHandler)
		r.Delete("/range", datasetRangeResetHandler)
	})

	return r
}

// Context key for the dataset's view service
type ctxKey string

const viewServiceKey ctxKey = "viewService"

// datasetMiddleware resolves the dataset from URL and injects the view
// service into context.
func datasetMiddleware(registry *DatasetRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			datasetID := chi.URLParam(r, "dataset")
			svc := registry.Get(datasetID)
			if svc == nil {
				http.Error(w, "dataset not found: "+datasetID, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), viewServiceKey, svc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getViewService(r *http.Request) *service.ViewService {
	if svc, ok := r.Context().Value(viewServiceKey).(*service.ViewService); ok {
		return svc
	}
	return nil
}

// datasetsHandler returns the list of available datasets.
func datasetsHandler(registry *DatasetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"default":  registry.DefaultDatasetID(),
			"datasets": registry.Datasets(),
			"title":    registry.Title(),
		}
		writeJSON(w, response)
	}
}

// datasetManifestHandler returns the experiment manifest: models, time
// windows, and the evaluation start time.
func datasetManifestHandler(registry *DatasetRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loader := registry.Loader(chi.URLParam(r, "dataset"))
		if loader == nil {
			http.Error(w, "dataset loader not found", http.StatusInternalServerError)
			return
		}
		m, err := loader.Manifest(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, m)
	}
}

// datasetSelectHandler resolves a model + time-window selection. A stale
// fetch overtaken by a newer selection is discarded by the service and
// still answers 200.
func datasetSelectHandler(w http.ResponseWriter, r *http.Request) {
	svc := getViewService(r)
	if svc == nil {
		http.Error(w, "view service not found", http.StatusInternalServerError)
		return
	}

	var req struct {
		Model  string `json:"model"`
		Window string `json:"time_window"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Model == "" || req.Window == "" {
		http.Error(w, "model and time_window are required", http.StatusBadRequest)
		return
	}

	if err := svc.Select(r.Context(), req.Model, req.Window); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	vmin, vmax, err := svc.Extremes()
	if err != nil {
		// The selection was discarded in favor of a newer one that has
		// not resolved yet; report the accepted request without bounds.
		writeJSON(w, map[string]interface{}{"accepted": true})
		return
	}
	writeJSON(w, map[string]interface{}{
		"accepted": true,
		"vmin":     vmin,
		"vmax":     vmax,
	})
}

// datasetViewHandler renders the current selection for a viewport.
func datasetViewHandler(w http.ResponseWriter, r *http.Request) {
	svc := getViewService(r)
	if svc == nil {
		http.Error(w, "view service not found", http.StatusInternalServerError)
		return
	}

	params, err := parseViewParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	png, err := svc.RenderView(params)
	if err == service.ErrNoSelection {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.Write(png)
}

// datasetQueryHandler answers a pointer hit-test with tooltip text.
func datasetQueryHandler(w http.ResponseWriter, r *http.Request) {
	svc := getViewService(r)
	if svc == nil {
		http.Error(w, "view service not found", http.StatusInternalServerError)
		return
	}

	params, err := parseViewParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if errX != nil || errY != nil {
		http.Error(w, "x and y pixel coordinates are required", http.StatusBadRequest)
		return
	}

	res, err := svc.HitTest(params, x, y)
	if err == service.ErrNoSelection {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

// datasetRangeGetHandler returns the active color range and the
// dataset's own extremes.
func datasetRangeGetHandler(w http.ResponseWriter, r *http.Request) {
	svc := getViewService(r)
	if svc == nil {
		http.Error(w, "view service not found", http.StatusInternalServerError)
		return
	}

	scale, err := svc.Scale()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	vmin, vmax, _ := svc.Extremes()
	writeJSON(w, map[string]float64{
		"min":  scale.Min,
		"max":  scale.Max,
		"vmin": vmin,
		"vmax": vmax,
	})
}

// datasetRangePutHandler overrides the color range. The controller
// clamps the bounds and keeps them one step apart; the accepted pair is
// echoed back.
func datasetRangePutHandler(w http.ResponseWriter, r *http.Request) {
	svc := getViewService(r)
	if svc == nil {
		http.Error(w, "view service not found", http.StatusInternalServerError)
		return
	}

	var req struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	accepted, err := svc.OverrideRange(req.Min, req.Max)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]float64{"min": accepted.Min, "max": accepted.Max})
}

// datasetRangeResetHandler restores the dataset's log10 extremes.
func datasetRangeResetHandler(w http.ResponseWriter, r *http.Request) {
	svc := getViewService(r)
	if svc == nil {
		http.Error(w, "view service not found", http.StatusInternalServerError)
		return
	}

	accepted, err := svc.ResetRange()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]float64{"min": accepted.Min, "max": accepted.Max})
}

// parseViewParams reads viewport query parameters: w, h, optional
// bbox=west,south,east,north, optional vmin/vmax overrides, optional cmap.
func parseViewParams(r *http.Request) (service.ViewParams, error) {
	q := r.URL.Query()

	width, err := strconv.Atoi(q.Get("w"))
	if err != nil || width <= 0 || width > 4096 {
		return service.ViewParams{}, errBadParam("w")
	}
	height, err := strconv.Atoi(q.Get("h"))
	if err != nil || height <= 0 || height > 4096 {
		return service.ViewParams{}, errBadParam("h")
	}

	p := service.ViewParams{
		Width:    width,
		Height:   height,
		Colormap: q.Get("cmap"),
	}

	if raw := q.Get("bbox"); raw != "" {
		parts := strings.Split(raw, ",")
		if len(parts) != 4 {
			return service.ViewParams{}, errBadParam("bbox")
		}
		vals := make([]float64, 4)
		for i, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return service.ViewParams{}, errBadParam("bbox")
			}
			vals[i] = v
		}
		p.BBox = &geo.BBox{West: vals[0], South: vals[1], East: vals[2], North: vals[3]}
	}

	if raw := q.Get("vmin"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return service.ViewParams{}, errBadParam("vmin")
		}
		p.VMin = &v
	}
	if raw := q.Get("vmax"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return service.ViewParams{}, errBadParam("vmax")
		}
		p.VMax = &v
	}

	return p, nil
}

type errBadParam string

func (e errBadParam) Error() string {
	return "missing or invalid query param: " + string(e)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
