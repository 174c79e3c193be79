package cache

import (
	"bytes"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		ViewCacheSizeMB: 16,
		ViewTTL:         time.Minute,
		QueryCacheSize:  64,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestDatasetRoundTrip(t *testing.T) {
	m := newTestManager(t)

	key := DatasetKey("default", "etas", "2020-01-01_2021-01-01")
	payload := bytes.Repeat([]byte(`{"lon":10,"lat":20,"rate":0.5}`), 100)

	if m.HasDataset(key) {
		t.Fatal("unexpected hit before set")
	}
	m.SetDataset(key, payload)
	if !m.HasDataset(key) {
		t.Fatal("expected hit after set")
	}

	got, ok := m.GetDataset(key)
	if !ok {
		t.Fatal("expected dataset")
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload corrupted through compression round trip")
	}
}

func TestViewAndQueryCaches(t *testing.T) {
	m := newTestManager(t)

	m.SetView("view:a", []byte{1, 2, 3})
	if got, ok := m.GetView("view:a"); !ok || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("view cache round trip failed: %v %v", got, ok)
	}

	m.SetQuery("q:a", []byte("tooltip"))
	if got, ok := m.GetQuery("q:a"); !ok || string(got) != "tooltip" {
		t.Errorf("query cache round trip failed: %q %v", got, ok)
	}
}

func TestViewKeyStability(t *testing.T) {
	t.Parallel()

	k1 := ViewKey("d", "m", "w", 800, 600, "0,0,10,10", -4, 1, "viridis")
	k2 := ViewKey("d", "m", "w", 800, 600, "0,0,10,10", -4, 1, "viridis")
	if k1 != k2 {
		t.Fatalf("expected stable keys, got %q vs %q", k1, k2)
	}

	k3 := ViewKey("d", "m", "w", 800, 600, "0,0,10,10", -3, 1, "viridis")
	if k1 == k3 {
		t.Fatal("expected scale override to change the key")
	}
}
