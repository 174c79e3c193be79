package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/csep-views/server/internal/cache"
	"github.com/csep-views/server/internal/catalog"
	"github.com/csep-views/server/internal/data"
	"github.com/csep-views/server/internal/grid"
	"github.com/csep-views/server/internal/observability"
	"github.com/csep-views/server/internal/render"
	"github.com/csep-views/server/internal/service"
)

type stubLoader struct{}

func (stubLoader) LoadForecast(ctx context.Context, model, window string) (*data.ForecastPayload, error) {
	return &data.ForecastPayload{
		Cells: []grid.Cell{
			{Lon: 10, Lat: 20, Rate: 1},
			{Lon: 11, Lat: 20, Rate: 10},
			{Lon: 10, Lat: 21, Rate: 100},
			{Lon: 11, Lat: 21, Rate: 1000},
		},
		DH:   1,
		VMin: 0,
		VMax: 3,
	}, nil
}

func (stubLoader) LoadCatalog(ctx context.Context, window string) (*data.CatalogPayload, error) {
	return &data.CatalogPayload{
		Events: []catalog.Event{
			{Lon: 10.5, Lat: 20.5, Magnitude: 5.5, Time: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), ID: "ev1"},
		},
		Count: 1,
		BBox:  []float64{9, 19, 12, 22},
	}, nil
}

func (stubLoader) Manifest(ctx context.Context) (*data.Manifest, error) {
	return &data.Manifest{
		Name:        "stub",
		StartTime:   "2021-01-01T00:00:00Z",
		Models:      []data.ModelInfo{{Name: "etas", ForecastUnit: "M4.95+"}},
		TimeWindows: []string{"w1"},
	}, nil
}

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cm, err := cache.NewManager(cache.Config{
		ViewCacheSizeMB: 16,
		ViewTTL:         time.Minute,
		QueryCacheSize:  32,
	})
	if err != nil {
		t.Fatalf("cache.NewManager: %v", err)
	}
	t.Cleanup(func() { cm.Close() })

	loader := stubLoader{}
	svc := service.NewViewService(service.ViewServiceConfig{
		DatasetID: "stub",
		Loader:    loader,
		Cache:     cm,
		Metrics:   observability.NewUnregisteredMetrics(),
		Painter:   render.DefaultConfig(),
	})

	registry := NewDatasetRegistry("stub", []string{"stub"}, "Test Views")
	registry.Register("stub", svc, loader)

	router := NewRouter(RouterConfig{
		Registry:    registry,
		CORSOrigins: []string{"*"},
	})

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func selectDataset(t *testing.T, ts *httptest.Server) {
	t.Helper()
	body := bytes.NewBufferString(`{"model": "etas", "time_window": "w1"}`)
	resp, err := http.Post(ts.URL+"/d/stub/select", "application/json", body)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select status %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestDatasetsEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/datasets")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Default  string        `json:"default"`
		Datasets []DatasetInfo `json:"datasets"`
		Title    string        `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Default != "stub" || len(body.Datasets) != 1 || body.Title != "Test Views" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestViewBeforeSelection(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/d/stub/view.png?w=64&h=64")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409 before selection", resp.StatusCode)
	}
}

func TestSelectAndView(t *testing.T) {
	ts := setupTestServer(t)
	selectDataset(t, ts)

	resp, err := http.Get(ts.URL + "/d/stub/view.png?w=128&h=128")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}
	png, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if len(png) == 0 || png[0] != 0x89 {
		t.Error("response is not a PNG")
	}
}

func TestQueryEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	selectDataset(t, ts)

	resp, err := http.Get(ts.URL + "/d/stub/query?w=200&h=200&x=100&y=100")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var res service.HitResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if !res.Hit {
		t.Fatalf("expected hit at view center: %+v", res)
	}
	if res.Tooltip == "" {
		t.Error("missing tooltip")
	}

	// Corner pixel misses; tooltip is omitted so the client hides it.
	resp2, err := http.Get(ts.URL + "/d/stub/query?w=200&h=200&x=1&y=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var miss service.HitResult
	if err := json.NewDecoder(resp2.Body).Decode(&miss); err != nil {
		t.Fatal(err)
	}
	if miss.Hit || miss.Tooltip != "" {
		t.Errorf("expected miss, got %+v", miss)
	}
}

func TestRangeEndpoints(t *testing.T) {
	ts := setupTestServer(t)
	selectDataset(t, ts)

	client := &http.Client{}

	// Override both bounds.
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/d/stub/range",
		bytes.NewBufferString(`{"min": 0.6, "max": 2.4}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var r map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatal(err)
	}
	if math.Abs(r["min"]-0.6) > 1e-9 || math.Abs(r["max"]-2.4) > 1e-9 {
		t.Errorf("accepted range = %v", r)
	}

	// Reset restores the dataset extremes.
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/d/stub/range", nil)
	resp2, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if err := json.NewDecoder(resp2.Body).Decode(&r); err != nil {
		t.Fatal(err)
	}
	if r["min"] != 0 || r["max"] != 3 {
		t.Errorf("reset range = %v, want dataset extremes", r)
	}
}

func TestUnknownDataset(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/d/nope/view.png?w=64&h=64")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestBadViewParams(t *testing.T) {
	ts := setupTestServer(t)
	selectDataset(t, ts)

	for _, url := range []string{
		"/d/stub/view.png",                     // missing w/h
		"/d/stub/view.png?w=0&h=64",            // non-positive
		"/d/stub/view.png?w=64&h=64&bbox=1,2",  // short bbox
		"/d/stub/view.png?w=64&h=64&vmin=oops", // non-numeric override
	} {
		resp, err := http.Get(ts.URL + url)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", url, resp.StatusCode)
		}
	}
}
