// Package cache provides caching for rendered views, query results, and
// loaded datasets.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
)

// Config contains cache configuration.
type Config struct {
	ViewCacheSizeMB int
	ViewTTL         time.Duration
	QueryCacheSize  int
}

// Manager manages the view, query, and dataset caches. The dataset cache
// is the injected collaborator owning results keyed by model+time-window:
// process-lifetime, no eviction. Rendered views and query responses are
// derived data and may expire.
type Manager struct {
	viewCache  *bigcache.BigCache
	queryCache *lru.Cache[string, []byte]

	mu       sync.RWMutex
	datasets map[string][]byte // zstd-compressed payloads

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	viewCacheConfig := bigcache.Config{
		Shards:             1024,
		LifeWindow:         cfg.ViewTTL,
		CleanWindow:        cfg.ViewTTL / 2,
		MaxEntriesInWindow: 100000,
		MaxEntrySize:       512 * 1024, // full-viewport PNGs
		HardMaxCacheSize:   cfg.ViewCacheSizeMB,
		Verbose:            false,
	}

	viewCache, err := bigcache.New(context.Background(), viewCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create view cache: %w", err)
	}

	queryCache, err := lru.New[string, []byte](cfg.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Manager{
		viewCache:  viewCache,
		queryCache: queryCache,
		datasets:   make(map[string][]byte),
		encoder:    encoder,
		decoder:    decoder,
	}, nil
}

// GetView retrieves a rendered view from cache.
func (m *Manager) GetView(key string) ([]byte, bool) {
	data, err := m.viewCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetView stores a rendered view in cache.
func (m *Manager) SetView(key string, data []byte) error {
	return m.viewCache.Set(key, data)
}

// GetQuery retrieves a query result from cache.
func (m *Manager) GetQuery(key string) ([]byte, bool) {
	return m.queryCache.Get(key)
}

// SetQuery stores a query result in cache.
func (m *Manager) SetQuery(key string, data []byte) {
	m.queryCache.Add(key, data)
}

// HasDataset reports whether a dataset payload is cached.
func (m *Manager) HasDataset(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.datasets[key]
	return ok
}

// GetDataset retrieves and decompresses a dataset payload.
func (m *Manager) GetDataset(key string) ([]byte, bool) {
	m.mu.RLock()
	compressed, ok := m.datasets[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	data, err := m.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetDataset compresses and stores a dataset payload for the process
// lifetime.
func (m *Manager) SetDataset(key string, data []byte) {
	compressed := m.encoder.EncodeAll(data, nil)
	m.mu.Lock()
	m.datasets[key] = compressed
	m.mu.Unlock()
}

// DatasetKey generates the cache key for a model + time-window selection.
func DatasetKey(dataset, model, window string) string {
	return fmt.Sprintf("ds:%s:%s:%s", dataset, model, window)
}

// ViewKey generates the cache key for a rendered view. Viewport and scale
// parameters are hashed to keep keys short.
func ViewKey(dataset, model, window string, width, height int, bbox string, vmin, vmax float64, cmap string) string {
	base := fmt.Sprintf("view:%s:%s:%s", dataset, model, window)
	h := sha256.New()
	fmt.Fprintf(h, "%dx%d|%s|%g|%g|%s", width, height, bbox, vmin, vmax, cmap)
	return base + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// QueryKey generates the cache key for a hit-test query.
func QueryKey(dataset, model, window string, lon, lat float64) string {
	return fmt.Sprintf("q:%s:%s:%s:%.6f:%.6f", dataset, model, window, lon, lat)
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	nDatasets := len(m.datasets)
	m.mu.RUnlock()
	return map[string]interface{}{
		"view_cache_len":  m.viewCache.Len(),
		"view_cache_cap":  m.viewCache.Capacity(),
		"query_cache_len": m.queryCache.Len(),
		"dataset_len":     nDatasets,
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	m.encoder.Close()
	m.decoder.Close()
	return m.viewCache.Close()
}
