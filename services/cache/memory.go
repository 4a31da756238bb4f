package cachesvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core/cache"
)

type entry struct {
	data      []byte
	expiresAt time.Time // zero: never
}

// MemoryStore keeps JSON encoded values in process. Values are copied in and out, so callers never share them.
type MemoryStore struct {
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]entry
}

var _ cache.Store = (*MemoryStore)(nil)

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{clock: clock, entries: make(map[string]entry)}
}

func (s *MemoryStore) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok && !e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt) {
		delete(s.entries, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return cache.ErrCacheMiss
	}
	return errors.Wrapf(json.Unmarshal(e.data, dest), "decoding %s", key)
}

// Set stores value under key; a ttl <= 0 never expires.
func (s *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expiresAt = s.clock.Now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}
