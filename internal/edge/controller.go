package edge

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cpl-edge-go/internal/cachestore"
)

const originTimeout = 30 * time.Second

// Options configures a Controller. Generation is the explicit current cache
// generation name; there is no hidden global version.
type Options struct {
	Origin         string
	Generation     string
	OfflinePath    string
	SeedPaths      []string
	BypassPrefixes []string
	Store          cachestore.Store
	Client         *http.Client
	Metrics        *Metrics
	// RevalidateConcurrency bounds in-flight background revalidations.
	RevalidateConcurrency int
}

// Controller fronts the origin and applies the per-request caching policy.
// Cache failures never block the response pipeline: reads and writes that
// error are logged, counted and treated as misses.
type Controller struct {
	origin      string
	generation  string
	offlinePath string
	seeds       []string
	bypass      []string

	store   cachestore.Store
	client  *http.Client
	metrics *Metrics

	sf       singleflight.Group
	revalSem chan struct{}
	wg       sync.WaitGroup
}

func NewController(opts Options) *Controller {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: originTimeout}
	}
	conc := opts.RevalidateConcurrency
	if conc <= 0 {
		conc = 32
	}

	return &Controller{
		origin:      strings.TrimRight(opts.Origin, "/"),
		generation:  opts.Generation,
		offlinePath: opts.OfflinePath,
		seeds:       opts.SeedPaths,
		bypass:      opts.BypassPrefixes,
		store:       opts.Store,
		client:      client,
		metrics:     opts.Metrics,
		revalSem:    make(chan struct{}, conc),
	}
}

// Generation returns the current cache generation name.
func (c *Controller) Generation() string {
	return c.generation
}

// Install pre-populates the current generation with the seed set. Semantics
// are all-or-nothing: any seed that cannot be fetched and stored aborts the
// install, and the caller must not start serving.
func (c *Controller) Install(ctx context.Context) error {
	for _, path := range c.seeds {
		ent, err := c.fetchPath(ctx, path)
		if err != nil {
			return fmt.Errorf("seed %s: %w", path, err)
		}
		if ent.Status < 200 || ent.Status >= 300 {
			return fmt.Errorf("seed %s: origin returned %d", path, ent.Status)
		}
		if err := c.store.Put(ctx, c.generation, path, ent); err != nil {
			return fmt.Errorf("seed %s: %w", path, err)
		}
	}
	return nil
}

// Activate drops every cache generation whose name differs from the current
// one. Entries under the current generation are retained.
func (c *Controller) Activate(ctx context.Context) error {
	generations, err := c.store.Generations(ctx)
	if err != nil {
		return err
	}
	for _, gen := range generations {
		if gen == c.generation {
			continue
		}
		if err := c.store.DropGeneration(ctx, gen); err != nil {
			return fmt.Errorf("drop generation %s: %w", gen, err)
		}
		log.Printf("edge: dropped cache generation %s", gen)
	}
	return nil
}

// Close waits for in-flight background revalidations to finish.
func (c *Controller) Close() {
	c.wg.Wait()
}

func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.URL.RequestURI()

	switch Decide(r, c.bypass) {
	case NetworkFirst:
		c.serveNetworkFirst(w, r, key)
	case CacheFirst:
		c.serveCacheFirst(w, r, key)
	default:
		c.proxyPass(w, r)
	}
}

// serveNetworkFirst handles navigations: origin first, snapshot on response,
// cached copy on transport failure, offline page as the last resort.
func (c *Controller) serveNetworkFirst(w http.ResponseWriter, r *http.Request, key string) {
	ent, err := c.fetchRequest(r)
	if err == nil {
		c.put(r.Context(), key, ent)
		writeEntry(w, ent, "network")
		return
	}

	if cached, ok := c.get(r.Context(), key); ok {
		c.metrics.hit()
		writeEntry(w, cached, "stale")
		return
	}

	if offline, ok := c.get(r.Context(), c.offlinePath); ok {
		c.metrics.fallback()
		writeEntry(w, offline, "offline")
		return
	}

	writeOffline(w)
}

// serveCacheFirst handles static assets: serve the cached copy immediately
// and revalidate in the background without awaiting the outcome.
func (c *Controller) serveCacheFirst(w http.ResponseWriter, r *http.Request, key string) {
	if ent, ok := c.get(r.Context(), key); ok {
		c.metrics.hit()
		c.revalidateAsync(key)
		writeEntry(w, ent, "hit")
		return
	}

	c.metrics.miss()
	ent, err := c.fetchRequest(r)
	if err != nil {
		writeOffline(w)
		return
	}

	if ent.Status == http.StatusOK && cacheableAsset(r) {
		c.put(r.Context(), key, ent)
	}
	writeEntry(w, ent, "miss")
}

// proxyPass forwards the request verbatim and streams the response back.
// Nothing on this path touches the cache.
func (c *Controller) proxyPass(w http.ResponseWriter, r *http.Request) {
	req, err := http.NewRequestWithContext(r.Context(), r.Method, c.origin+r.URL.RequestURI(), r.Body)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	copyHeaders(req.Header, r.Header)

	resp, err := c.client.Do(req)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("X-Cpl-Edge", "bypass")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// revalidateAsync refreshes a cache entry without blocking the caller.
// Concurrent requests for the same key collapse into one origin fetch.
func (c *Controller) revalidateAsync(key string) {
	select {
	case c.revalSem <- struct{}{}:
	default:
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() { <-c.revalSem }()

		ctx, cancel := context.WithTimeout(context.Background(), originTimeout)
		defer cancel()

		c.metrics.revalidation()
		_, _, _ = c.sf.Do(key, func() (any, error) {
			ent, err := c.fetchPath(ctx, key)
			if err != nil {
				return nil, err
			}
			if ent.Status == http.StatusOK {
				c.put(ctx, key, ent)
			}
			return nil, nil
		})
	}()
}

func (c *Controller) fetchRequest(r *http.Request) (cachestore.Entry, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, c.origin+r.URL.RequestURI(), nil)
	if err != nil {
		return cachestore.Entry{}, err
	}
	copyHeaders(req.Header, r.Header)
	req.Header.Set("Accept-Encoding", "identity")
	return c.doFetch(req)
}

func (c *Controller) fetchPath(ctx context.Context, path string) (cachestore.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.origin+path, nil)
	if err != nil {
		return cachestore.Entry{}, err
	}
	req.Header.Set("Accept-Encoding", "identity")
	return c.doFetch(req)
}

func (c *Controller) doFetch(req *http.Request) (cachestore.Entry, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return cachestore.Entry{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cachestore.Entry{}, err
	}

	ent := cachestore.Entry{
		Status:   resp.StatusCode,
		Header:   cloneHeader(resp.Header),
		Body:     body,
		StoredAt: time.Now(),
	}
	ent.Header.Del("Content-Length")
	return ent, nil
}

// get reads from the current generation, swallowing store errors as misses.
func (c *Controller) get(ctx context.Context, key string) (cachestore.Entry, bool) {
	ent, ok, err := c.store.Get(ctx, c.generation, key)
	if err != nil {
		c.metrics.storeError()
		log.Printf("edge: cache read %s: %v", key, err)
		return cachestore.Entry{}, false
	}
	return ent, ok
}

// put writes to the current generation, swallowing store errors.
func (c *Controller) put(ctx context.Context, key string, ent cachestore.Entry) {
	if err := c.store.Put(ctx, c.generation, key, ent); err != nil {
		c.metrics.storeError()
		log.Printf("edge: cache write %s: %v", key, err)
	}
}

func writeEntry(w http.ResponseWriter, ent cachestore.Entry, marker string) {
	for k, vs := range ent.Header {
		if strings.EqualFold(k, "X-Cpl-Edge") {
			continue
		}
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("X-Cpl-Edge", marker)
	w.WriteHeader(ent.Status)
	_, _ = w.Write(ent.Body)
}

func writeOffline(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Cpl-Edge", "offline")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("Offline"))
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		if strings.EqualFold(k, "Host") {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		vv := make([]string, len(vs))
		copy(vv, vs)
		out[k] = vv
	}
	return out
}
