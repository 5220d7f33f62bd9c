// Package cachestore persists response snapshots for the offline edge,
// bucketed into named cache generations. At most one generation is current;
// superseded generations are dropped wholesale when a new version activates.
package cachestore

import (
	"context"
	"net/http"
	"time"
)

// Entry is a stored response snapshot keyed by request URL. Writes are
// last-write-wins per URL; entries carry no TTL and only disappear when
// their generation is dropped.
type Entry struct {
	Status   int
	Header   http.Header
	Body     []byte
	StoredAt time.Time
}

// Store is the generation-bucketed cache behind the edge controller.
// Implementations must treat each (generation, url) pair as an atomic key;
// no multi-key transactions are required.
type Store interface {
	Get(ctx context.Context, generation, url string) (Entry, bool, error)
	Put(ctx context.Context, generation, url string, ent Entry) error
	Generations(ctx context.Context) ([]string, error)
	DropGeneration(ctx context.Context, generation string) error
}
