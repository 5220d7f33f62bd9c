package pushclient

import (
	"encoding/json"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
)

// readStateKey is the single record holding the acknowledged-id set,
// serialized as a JSON array. No versioning, no expiry.
const readStateKey = "read_ids"

// ReadState is the client-local set of acknowledged notification ids. It is
// not synchronized across devices; it exists only to compute an unread count.
type ReadState struct {
	mu  sync.Mutex
	db  *leveldb.DB
	ids map[string]struct{}
}

func OpenReadState(path string) (*ReadState, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}

	rs := &ReadState{db: db, ids: make(map[string]struct{})}

	raw, err := db.Get([]byte(readStateKey), nil)
	if err != nil && err != errors.ErrNotFound {
		db.Close()
		return nil, err
	}
	if len(raw) > 0 {
		var ids []string
		// A corrupt record is treated as empty rather than fatal.
		if json.Unmarshal(raw, &ids) == nil {
			for _, id := range ids {
				rs.ids[id] = struct{}{}
			}
		}
	}

	return rs, nil
}

func (rs *ReadState) Close() error {
	return rs.db.Close()
}

// MarkRead records ids as acknowledged.
func (rs *ReadState) MarkRead(ids ...string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	for _, id := range ids {
		rs.ids[id] = struct{}{}
	}
	return rs.persist()
}

// Prune forgets an id, typically after its notification was deleted.
func (rs *ReadState) Prune(id string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	delete(rs.ids, id)
	return rs.persist()
}

// Clear forgets everything.
func (rs *ReadState) Clear() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.ids = make(map[string]struct{})
	return rs.persist()
}

// IsRead reports whether an id has been acknowledged.
func (rs *ReadState) IsRead(id string) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	_, ok := rs.ids[id]
	return ok
}

// Len returns the number of acknowledged ids.
func (rs *ReadState) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return len(rs.ids)
}

// persist writes the whole set under the single record. Caller holds the lock.
func (rs *ReadState) persist() error {
	ids := make([]string, 0, len(rs.ids))
	for id := range rs.ids {
		ids = append(ids, id)
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return rs.db.Put([]byte(readStateKey), raw, nil)
}
