package cachestore

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const generationsKey = "edge:generations"

// entryRecord is the gob wire form of an Entry. http.Header is a plain
// map[string][]string so it encodes directly.
type entryRecord struct {
	Status   int
	Header   map[string][]string
	Body     []byte
	StoredAt int64 // unix nanoseconds
}

// RedisStore keeps cache entries in Redis, one key per (generation, url),
// plus a set of known generation names so activation can enumerate and
// purge stale generations.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(opts *redis.Options) *RedisStore {
	return &RedisStore{client: redis.NewClient(opts)}
}

func entryKey(generation, url string) string {
	return fmt.Sprintf("edge:%s:%s", generation, url)
}

func (s *RedisStore) Get(ctx context.Context, generation, url string) (Entry, bool, error) {
	val, err := s.client.Get(ctx, entryKey(generation, url)).Bytes()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	var rec entryRecord
	if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&rec); err != nil {
		return Entry{}, false, err
	}

	return Entry{
		Status:   rec.Status,
		Header:   rec.Header,
		Body:     rec.Body,
		StoredAt: time.Unix(0, rec.StoredAt),
	}, true, nil
}

func (s *RedisStore) Put(ctx context.Context, generation, url string, ent Entry) error {
	rec := entryRecord{
		Status:   ent.Status,
		Header:   ent.Header,
		Body:     ent.Body,
		StoredAt: ent.StoredAt.UnixNano(),
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&rec); err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, entryKey(generation, url), buf.Bytes(), 0)
	pipe.SAdd(ctx, generationsKey, generation)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Generations(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, generationsKey).Result()
}

// escapeGlob backslash-escapes SCAN MATCH metacharacters so a generation
// name is matched literally, never as a pattern.
func escapeGlob(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '^', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func (s *RedisStore) DropGeneration(ctx context.Context, generation string) error {
	iter := s.client.Scan(ctx, 0, fmt.Sprintf("edge:%s:*", escapeGlob(generation)), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.SRem(ctx, generationsKey, generation)
	_, err := pipe.Exec(ctx)
	return err
}
