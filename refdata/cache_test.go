package refdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sedirimou/gameva/httpx"
	"github.com/sedirimou/gameva/kv"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func catalogServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/categories/main-menu", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"categories":[{"id":"1","name":"Action","slug":"action"}]}`))
	})
	mux.HandleFunc("/attributes/platforms", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[{"id":"pc","name":"PC","slug":"pc"}]`))
	})
	mux.HandleFunc("/filter-options", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"success":true,"data":{"genre":["rpg","racing"]}}`))
	})
	mux.HandleFunc("/site-settings", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"currency":"EUR"}`))
	})
	return httptest.NewServer(mux)
}

func newTestCache(server *httptest.Server, storage kv.Store, clock *fakeClock) *Cache {
	return NewCache(CacheConfig{
		BaseURL: server.URL,
		Storage: storage,
		Client:  httpx.NewClient(httpx.Config{Retry: httpx.RetryConfig{MaxAttempts: 1}}),
		Now:     clock.Now,
	})
}

func TestCache_Freshness(t *testing.T) {
	var calls atomic.Int32
	server := catalogServer(t, &calls)
	defer server.Close()

	clock := newFakeClock()
	cache := newTestCache(server, kv.NewMemory(), clock)
	ctx := context.Background()

	// t=0: miss populates the entry.
	first := cache.Categories(ctx)
	if len(first) != 1 || first[0].Slug != "action" {
		t.Fatalf("Categories = %+v", first)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one fetch, got %d", calls.Load())
	}

	// t < TTL: served from cache, no network call.
	clock.Advance(23 * time.Hour)
	second := cache.Categories(ctx)
	if calls.Load() != 1 {
		t.Errorf("fresh entry should not refetch, got %d calls", calls.Load())
	}
	if len(second) != 1 || second[0].ID != first[0].ID {
		t.Errorf("cached payload differs: %+v vs %+v", second, first)
	}

	// t >= TTL: exactly one new network call.
	clock.Advance(2 * time.Hour)
	cache.Categories(ctx)
	if calls.Load() != 2 {
		t.Errorf("expired entry should refetch once, got %d calls", calls.Load())
	}
}

func TestCache_FetchFailureYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cache := newTestCache(server, kv.NewMemory(), newFakeClock())

	if got := cache.Categories(context.Background()); len(got) != 0 {
		t.Errorf("failed fetch should yield empty slice, got %+v", got)
	}
	if got := cache.FilterOptions(context.Background()); len(got) != 0 {
		t.Errorf("failed fetch should yield empty map, got %+v", got)
	}
}

func TestCache_CorruptEntryRefetches(t *testing.T) {
	var calls atomic.Int32
	server := catalogServer(t, &calls)
	defer server.Close()

	storage := kv.NewMemory()
	if err := storage.Set(KeyPrefix+"categories", []byte(`%%% not json`)); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}

	cache := newTestCache(server, storage, newFakeClock())

	got := cache.Categories(context.Background())
	if len(got) != 1 {
		t.Errorf("corrupt entry should refetch, got %+v", got)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one fetch, got %d", calls.Load())
	}
}

func TestCache_SharedAcrossInstances(t *testing.T) {
	var calls atomic.Int32
	server := catalogServer(t, &calls)
	defer server.Close()

	storage := kv.NewMemory()
	clock := newFakeClock()

	first := newTestCache(server, storage, clock)
	first.Platforms(context.Background())

	// A second instance over the same storage reuses the entry.
	second := newTestCache(server, storage, clock)
	platforms := second.Platforms(context.Background())

	if calls.Load() != 1 {
		t.Errorf("second instance should hit storage, got %d fetches", calls.Load())
	}
	if len(platforms) != 1 || platforms[0].ID != "pc" {
		t.Errorf("Platforms = %+v", platforms)
	}
}

func TestCache_PreloadAll(t *testing.T) {
	var calls atomic.Int32
	server := catalogServer(t, &calls)
	defer server.Close()

	clock := newFakeClock()
	cache := newTestCache(server, kv.NewMemory(), clock)
	ctx := context.Background()

	snap := cache.PreloadAll(ctx)
	if snap.Cached {
		t.Error("cold preload should report Cached=false")
	}
	if len(snap.Categories) != 1 || len(snap.Platforms) != 1 || len(snap.Settings) != 1 {
		t.Errorf("snapshot incomplete: %+v", snap)
	}
	if got := snap.FilterOptions["genre"]; len(got) != 2 {
		t.Errorf("FilterOptions[genre] = %v", got)
	}
	if calls.Load() != 4 {
		t.Errorf("cold preload should fetch all four collections, got %d", calls.Load())
	}

	warm := cache.PreloadAll(ctx)
	if !warm.Cached {
		t.Error("warm preload should report Cached=true")
	}
	if calls.Load() != 4 {
		t.Errorf("warm preload should not refetch, got %d calls", calls.Load())
	}

	if _, ok := cache.LastUpdated(); !ok {
		t.Error("LastUpdated should be set after a successful fetch")
	}
}

func TestCache_Invalidate(t *testing.T) {
	var calls atomic.Int32
	server := catalogServer(t, &calls)
	defer server.Close()

	storage := kv.NewMemory()
	cache := newTestCache(server, storage, newFakeClock())
	ctx := context.Background()

	cache.Categories(ctx)
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	keys, _ := storage.Keys(KeyPrefix)
	if len(keys) != 0 {
		t.Errorf("Invalidate left keys behind: %v", keys)
	}
	if _, ok := cache.LastUpdated(); ok {
		t.Error("Invalidate should remove the last-updated marker")
	}

	cache.Categories(ctx)
	if calls.Load() != 2 {
		t.Errorf("lookup after Invalidate should refetch, got %d calls", calls.Load())
	}
}

func TestCache_ConcurrentMissesCoalesce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`{"categories":[]}`))
	}))
	defer server.Close()

	cache := newTestCache(server, kv.NewMemory(), newFakeClock())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Categories(ctx)
		}()
	}

	// Give the goroutines time to pile onto the in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("8 concurrent misses should coalesce into 1 fetch, got %d", calls.Load())
	}
}
