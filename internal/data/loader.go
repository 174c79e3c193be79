// Package data loads already-parsed forecast and catalog payloads
// produced by the external processing pipeline. Domain file formats
// (forecast rasters, catalog archives) are parsed upstream; this package
// only consumes the resulting JSON.
package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/csep-views/server/internal/catalog"
	"github.com/csep-views/server/internal/geo"
	"github.com/csep-views/server/internal/grid"
)

// ForecastPayload is one model+time-window forecast: cells on a uniform
// lattice plus the precomputed log10 extremes.
type ForecastPayload struct {
	Cells []grid.Cell `json:"cells"`
	DH    float64     `json:"dh"`
	VMin  float64     `json:"vmin"`
	VMax  float64     `json:"vmax"`
}

// CatalogPayload is the observed seismicity for a time window.
type CatalogPayload struct {
	Events []catalog.Event `json:"events"`
	Count  int             `json:"count"`
	BBox   []float64       `json:"bbox"` // [west, south, east, north], may be nil
}

// BoundingBox converts the raw bbox array, reporting ok=false when absent.
func (p *CatalogPayload) BoundingBox() (geo.BBox, bool) {
	if len(p.BBox) != 4 {
		return geo.BBox{}, false
	}
	return geo.BBox{West: p.BBox[0], South: p.BBox[1], East: p.BBox[2], North: p.BBox[3]}, true
}

// Loader supplies parsed datasets for a model + time-window selection.
type Loader interface {
	LoadForecast(ctx context.Context, model, window string) (*ForecastPayload, error)
	LoadCatalog(ctx context.Context, window string) (*CatalogPayload, error)
	Manifest(ctx context.Context) (*Manifest, error)
}

// Manifest describes one experiment: its models, time windows, and the
// evaluation start time used to split catalogs into input and test events.
type Manifest struct {
	Name        string      `json:"name"`
	StartTime   string      `json:"start_time"` // RFC 3339
	Models      []ModelInfo `json:"models"`
	TimeWindows []string    `json:"time_windows"`
}

// ModelInfo identifies one forecast model.
type ModelInfo struct {
	Name         string `json:"name"`
	ForecastUnit string `json:"forecast_unit,omitempty"`
}

// FileLoader reads payloads from a directory tree:
//
//	<root>/manifest.json
//	<root>/forecasts/<model>/<window>.json
//	<root>/catalogs/<window>.json
type FileLoader struct {
	root string
}

// NewFileLoader creates a loader rooted at an experiment directory.
func NewFileLoader(root string) *FileLoader {
	return &FileLoader{root: root}
}

// Manifest reads the experiment manifest.
func (l *FileLoader) Manifest(ctx context.Context) (*Manifest, error) {
	var m Manifest
	if err := l.readJSON(filepath.Join(l.root, "manifest.json"), &m); err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return &m, nil
}

// LoadForecast reads one model+window forecast payload.
func (l *FileLoader) LoadForecast(ctx context.Context, model, window string) (*ForecastPayload, error) {
	var p ForecastPayload
	path := filepath.Join(l.root, "forecasts", model, window+".json")
	if err := l.readJSON(path, &p); err != nil {
		return nil, fmt.Errorf("failed to load forecast %s/%s: %w", model, window, err)
	}
	return &p, nil
}

// LoadCatalog reads the catalog payload for a time window.
func (l *FileLoader) LoadCatalog(ctx context.Context, window string) (*CatalogPayload, error) {
	var p CatalogPayload
	path := filepath.Join(l.root, "catalogs", window+".json")
	if err := l.readJSON(path, &p); err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", window, err)
	}
	return &p, nil
}

func (l *FileLoader) readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", filepath.Base(path), err)
	}
	return nil
}
