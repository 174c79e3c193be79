// Package main is the entry point for the forecast view server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/csep-views/server/internal/api"
	"github.com/csep-views/server/internal/cache"
	"github.com/csep-views/server/internal/config"
	"github.com/csep-views/server/internal/data"
	"github.com/csep-views/server/internal/observability"
	"github.com/csep-views/server/internal/render"
	"github.com/csep-views/server/internal/service"
	"github.com/csep-views/server/pkg/colormap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting view server on port %d", cfg.Server.Port)

	ctx := context.Background()

	// Cache manager is shared across all datasets
	cacheManager, err := cache.NewManager(cache.Config{
		ViewCacheSizeMB: cfg.Cache.ViewSizeMB,
		ViewTTL:         time.Duration(cfg.Cache.ViewTTLMinutes) * time.Minute,
		QueryCacheSize:  cfg.Cache.QuerySize,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	metrics := observability.NewMetrics()

	// Painter defaults come from the render config section
	painterCfg := render.DefaultConfig()
	painterCfg.Colormap = colormap.ByName(cfg.Render.DefaultColormap)
	painterCfg.CellAlpha = uint8(cfg.Render.CellAlpha)
	painterCfg.BaseRadius = cfg.Render.MarkerBase
	painterCfg.RadiusScale = cfg.Render.MarkerScale
	painterCfg.RadiusExponent = cfg.Render.MarkerExponent

	// Initialize dataset registry
	datasetIDs := cfg.Data.DatasetIDs()
	registry := api.NewDatasetRegistry(cfg.Data.DefaultDataset, datasetIDs, cfg.Server.Title)

	log.Printf("Initializing %d dataset(s), default: %s", len(datasetIDs), cfg.Data.DefaultDataset)

	for _, datasetID := range datasetIDs {
		ds := cfg.Data.Datasets[datasetID]

		loader := data.NewFileLoader(ds.Root)
		manifest, err := loader.Manifest(ctx)
		if err != nil {
			log.Fatalf("Failed to read manifest for dataset %q: %v", datasetID, err)
		}
		log.Printf("  [%s] Experiment %q: %d model(s), %d time window(s)",
			datasetID, manifest.Name, len(manifest.Models), len(manifest.TimeWindows))

		svc := service.NewViewService(service.ViewServiceConfig{
			DatasetID: datasetID,
			Loader:    loader,
			Cache:     cacheManager,
			Metrics:   metrics,
			Painter:   painterCfg,
		})
		registry.Register(datasetID, svc, loader)
	}

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Registry:    registry,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
