package api

import (
	"github.com/csep-views/server/internal/data"
	"github.com/csep-views/server/internal/service"
)

// DatasetInfo contains information about an experiment for the API
// response.
type DatasetInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DatasetRegistry holds view services for all configured experiments.
type DatasetRegistry struct {
	services       map[string]*service.ViewService
	loaders        map[string]data.Loader
	defaultDataset string
	datasetOrder   []string
	title          string
}

// NewDatasetRegistry creates a new dataset registry.
func NewDatasetRegistry(defaultDataset string, order []string, title string) *DatasetRegistry {
	return &DatasetRegistry{
		services:       make(map[string]*service.ViewService),
		loaders:        make(map[string]data.Loader),
		defaultDataset: defaultDataset,
		datasetOrder:   order,
		title:          title,
	}
}

// Register adds a view service and its loader for a dataset.
func (r *DatasetRegistry) Register(datasetID string, svc *service.ViewService, loader data.Loader) {
	r.services[datasetID] = svc
	r.loaders[datasetID] = loader
}

// Get returns the view service for a dataset, or nil if not found.
func (r *DatasetRegistry) Get(datasetID string) *service.ViewService {
	return r.services[datasetID]
}

// Loader returns the loader for a dataset, or nil if not found.
func (r *DatasetRegistry) Loader(datasetID string) data.Loader {
	return r.loaders[datasetID]
}

// DefaultDatasetID returns the default dataset ID.
func (r *DatasetRegistry) DefaultDatasetID() string {
	return r.defaultDataset
}

// DatasetIDs returns all dataset IDs in config order.
func (r *DatasetRegistry) DatasetIDs() []string {
	return r.datasetOrder
}

// Title returns the configured site title.
func (r *DatasetRegistry) Title() string {
	if r.title != "" {
		return r.title
	}
	return "CSEP Views"
}

// Datasets returns dataset info for all registered datasets.
func (r *DatasetRegistry) Datasets() []DatasetInfo {
	infos := make([]DatasetInfo, 0, len(r.datasetOrder))
	for _, id := range r.datasetOrder {
		infos = append(infos, DatasetInfo{ID: id, Name: id})
	}
	return infos
}
