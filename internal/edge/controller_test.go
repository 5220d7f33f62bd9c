package edge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpl-edge-go/internal/cachestore"
)

func newTestController(t *testing.T, origin string, store *cachestore.MemoryStore) *Controller {
	t.Helper()
	c := NewController(Options{
		Origin:         origin,
		Generation:     "cpl-v2",
		OfflinePath:    "/offline",
		SeedPaths:      []string{"/offline", "/icon-192x192.png", "/manifest.json"},
		BypassPrefixes: []string{"/api/", "/admin/"},
		Store:          store,
	})
	t.Cleanup(c.Close)
	return c
}

// deadOrigin returns a base URL whose connections are refused.
func deadOrigin(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestNavigationSnapshotAndReplay(t *testing.T) {
	var hits atomic.Int64
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>publications</html>"))
	}))
	defer origin.Close()

	store := cachestore.NewMemoryStore()
	c := newTestController(t, origin.URL, store)

	req := httptest.NewRequest(http.MethodGet, "/publications", nil)
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>publications</html>", rec.Body.String())
	assert.Equal(t, "network", rec.Header().Get("X-Cpl-Edge"))
	assert.Equal(t, int64(1), hits.Load())

	// The snapshot must be replayable once the origin goes away.
	c2 := newTestController(t, deadOrigin(t), store)
	rec = httptest.NewRecorder()
	c2.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>publications</html>", rec.Body.String())
	assert.Equal(t, "stale", rec.Header().Get("X-Cpl-Edge"))
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestNavigationOfflineFallback(t *testing.T) {
	store := cachestore.NewMemoryStore()
	err := store.Put(context.Background(), "cpl-v2", "/offline", cachestore.Entry{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Body:   []byte("<html>you are offline</html>"),
	})
	require.NoError(t, err)

	c := newTestController(t, deadOrigin(t), store)

	req := httptest.NewRequest(http.MethodGet, "/never-visited", nil)
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>you are offline</html>", rec.Body.String())
	assert.Equal(t, "offline", rec.Header().Get("X-Cpl-Edge"))
}

func TestNavigationNoFallbackAvailable(t *testing.T) {
	c := newTestController(t, deadOrigin(t), cachestore.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Offline", rec.Body.String())
}

func TestAssetColdMissStoresAndServes(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		w.Write([]byte("body{margin:0}"))
	}))
	defer origin.Close()

	store := cachestore.NewMemoryStore()
	c := newTestController(t, origin.URL, store)

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/styles/main.css", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "miss", rec.Header().Get("X-Cpl-Edge"))
	assert.Equal(t, 1, store.Size("cpl-v2"))
}

func TestAssetHitServedFromCacheAndRevalidated(t *testing.T) {
	var hits atomic.Int64
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("v2 content"))
	}))
	defer origin.Close()

	store := cachestore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "cpl-v2", "/app.js", cachestore.Entry{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": {"application/javascript"}},
		Body:   []byte("v1 content"),
	}))

	c := newTestController(t, origin.URL, store)

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.js", nil))

	// The stale copy is returned immediately; freshness is not awaited.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1 content", rec.Body.String())
	assert.Equal(t, "hit", rec.Header().Get("X-Cpl-Edge"))

	// After the background revalidation drains, the entry is fresh.
	c.Close()
	assert.Equal(t, int64(1), hits.Load())
	ent, ok, err := store.Get(context.Background(), "cpl-v2", "/app.js")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2 content", string(ent.Body))
}

func TestAssetMissOriginDown(t *testing.T) {
	c := newTestController(t, deadOrigin(t), cachestore.NewMemoryStore())

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/app.css", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Offline", rec.Body.String())
}

func TestAssetErrorStatusNotStored(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer origin.Close()

	store := cachestore.NewMemoryStore()
	c := newTestController(t, origin.URL, store)

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.css", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, store.Size("cpl-v2"))
}

func TestBypassNeverTouchesCache(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("live"))
	}))
	defer origin.Close()

	store := cachestore.NewMemoryStore()
	c := newTestController(t, origin.URL, store)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/notifications", nil),
		httptest.NewRequest(http.MethodPost, "/contact", nil),
		httptest.NewRequest(http.MethodGet, "/admin/panel", nil),
	} {
		rec := httptest.NewRecorder()
		c.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "bypass", rec.Header().Get("X-Cpl-Edge"))
	}
	assert.Equal(t, 0, store.Size("cpl-v2"))
}

func TestInstallAllOrNothing(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/manifest.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("seed"))
	}))
	defer origin.Close()

	store := cachestore.NewMemoryStore()
	c := newTestController(t, origin.URL, store)

	err := c.Install(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/manifest.json")
}

func TestInstallSeedsGeneration(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("seed " + r.URL.Path))
	}))
	defer origin.Close()

	store := cachestore.NewMemoryStore()
	c := newTestController(t, origin.URL, store)

	require.NoError(t, c.Install(context.Background()))
	assert.Equal(t, 3, store.Size("cpl-v2"))

	ent, ok, err := store.Get(context.Background(), "cpl-v2", "/offline")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "seed /offline", string(ent.Body))
}

func TestActivatePurgesSupersededGenerations(t *testing.T) {
	ctx := context.Background()
	store := cachestore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "cpl-v1", "/old", cachestore.Entry{Status: 200, Body: []byte("old")}))
	require.NoError(t, store.Put(ctx, "cpl-v2", "/offline", cachestore.Entry{Status: 200, Body: []byte("new")}))

	c := newTestController(t, deadOrigin(t), store)
	require.NoError(t, c.Activate(ctx))

	assert.Equal(t, 0, store.Size("cpl-v1"))
	assert.Equal(t, 1, store.Size("cpl-v2"))

	gens, err := store.Generations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cpl-v2"}, gens)
}
