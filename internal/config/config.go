// Package config handles configuration loading for the view server.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Data   DataConfig   `yaml:"data"`
	Cache  CacheConfig  `yaml:"cache"`
	Render RenderConfig `yaml:"render"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	Title       string   `yaml:"title"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DataConfig maps dataset IDs to experiment directories, in YAML order.
type DataConfig struct {
	DefaultDataset string
	Datasets       map[string]DatasetConfig
	datasetOrder   []string
}

// DatasetConfig locates one experiment's parsed payloads.
type DatasetConfig struct {
	Root string `yaml:"root"`
}

// UnmarshalYAML keeps the dataset declaration order so the first entry
// becomes the default.
func (d *DataConfig) UnmarshalYAML(node *yaml.Node) error {
	d.Datasets = make(map[string]DatasetConfig)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var ds DatasetConfig
		if err := node.Content[i+1].Decode(&ds); err != nil {
			// Legacy single-dataset form: data: { root: ... }
			if key == "root" {
				d.Datasets["default"] = DatasetConfig{Root: node.Content[i+1].Value}
				d.datasetOrder = append(d.datasetOrder, "default")
				continue
			}
			return err
		}
		d.Datasets[key] = ds
		d.datasetOrder = append(d.datasetOrder, key)
	}
	if len(d.datasetOrder) > 0 {
		d.DefaultDataset = d.datasetOrder[0]
	}
	return nil
}

// DatasetIDs returns dataset IDs in declaration order.
func (d *DataConfig) DatasetIDs() []string {
	return d.datasetOrder
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	ViewSizeMB     int `yaml:"view_size_mb"`
	ViewTTLMinutes int `yaml:"view_ttl_minutes"`
	QuerySize      int `yaml:"query_size"`
}

// RenderConfig contains rendering settings.
type RenderConfig struct {
	DefaultColormap string  `yaml:"default_colormap"`
	CellAlpha       int     `yaml:"cell_alpha"`
	MarkerBase      float64 `yaml:"marker_base_radius"`
	MarkerScale     float64 `yaml:"marker_radius_scale"`
	MarkerExponent  float64 `yaml:"marker_radius_exponent"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Data: DataConfig{
			DefaultDataset: "default",
			Datasets: map[string]DatasetConfig{
				"default": {Root: "./data/experiment"},
			},
			datasetOrder: []string{"default"},
		},
		Cache: CacheConfig{
			ViewSizeMB:     256,
			ViewTTLMinutes: 10,
			QuerySize:      1000,
		},
		Render: RenderConfig{
			DefaultColormap: "viridis",
			CellAlpha:       200,
			MarkerBase:      2,
			MarkerScale:     10,
			MarkerExponent:  2,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if len(cfg.Data.Datasets) == 0 {
		cfg.Data = defaults.Data
	}
	if cfg.Cache.ViewSizeMB == 0 {
		cfg.Cache.ViewSizeMB = defaults.Cache.ViewSizeMB
	}
	if cfg.Cache.ViewTTLMinutes == 0 {
		cfg.Cache.ViewTTLMinutes = defaults.Cache.ViewTTLMinutes
	}
	if cfg.Cache.QuerySize == 0 {
		cfg.Cache.QuerySize = defaults.Cache.QuerySize
	}
	if cfg.Render.DefaultColormap == "" {
		cfg.Render.DefaultColormap = defaults.Render.DefaultColormap
	}
	if cfg.Render.CellAlpha == 0 {
		cfg.Render.CellAlpha = defaults.Render.CellAlpha
	}
	if cfg.Render.MarkerBase == 0 {
		cfg.Render.MarkerBase = defaults.Render.MarkerBase
	}
	if cfg.Render.MarkerScale == 0 {
		cfg.Render.MarkerScale = defaults.Render.MarkerScale
	}
	if cfg.Render.MarkerExponent == 0 {
		cfg.Render.MarkerExponent = defaults.Render.MarkerExponent
	}
}
