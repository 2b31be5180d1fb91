package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mateusmacedo/togobus-bff/pkg/application"
)

type memoryEntry struct {
	payload []byte
	expires time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// InMemoryStateStore is a process-local StateStore. Values are kept JSON-encoded,
// the same representation the Redis store uses, so callers never share memory
// with what is stored.
type InMemoryStateStore[T any] struct {
	mu     sync.RWMutex
	data   map[string]memoryEntry
	ttl    time.Duration
	now    func() time.Time
	logger application.AppLogger
}

type MemoryStoreOption func(*memoryStoreConfig)

type memoryStoreConfig struct {
	ttl time.Duration
	now func() time.Time
}

// WithExpiry drops keys ttl after their last Save, matching the Redis store.
// Zero disables expiry.
func WithExpiry(ttl time.Duration) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		c.ttl = ttl
	}
}

func WithStoreClock(now func() time.Time) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func NewInMemoryStateStore[T any](logger application.AppLogger, opts ...MemoryStoreOption) *InMemoryStateStore[T] {
	cfg := memoryStoreConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &InMemoryStateStore[T]{
		data:   make(map[string]memoryEntry),
		ttl:    cfg.ttl,
		now:    cfg.now,
		logger: logger,
	}
}

func (s *InMemoryStateStore[T]) Save(ctx context.Context, key string, value T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := application.MarshalPayload(value)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	now := s.now()
	entry := memoryEntry{payload: payload}
	if s.ttl > 0 {
		entry.expires = now.Add(s.ttl)
	}

	s.mu.Lock()
	swept := s.sweep(now)
	s.data[key] = entry
	s.mu.Unlock()

	fields := map[string]interface{}{"key": key}
	if swept > 0 {
		fields["expired"] = swept
	}
	application.LogDebug(ctx, s.logger, "state saved", fields)
	return nil
}

// sweep removes expired entries. Callers hold s.mu.
func (s *InMemoryStateStore[T]) sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	removed := 0
	for key, entry := range s.data {
		if entry.expired(now) {
			delete(s.data, key)
			removed++
		}
	}
	return removed
}

func (s *InMemoryStateStore[T]) Load(ctx context.Context, key string) (T, error) {
	var value T
	if err := ctx.Err(); err != nil {
		return value, err
	}

	s.mu.RLock()
	entry, exists := s.data[key]
	s.mu.RUnlock()

	if !exists || entry.expired(s.now()) {
		return value, application.ErrStateNotFound
	}
	if err := json.Unmarshal(entry.payload, &value); err != nil {
		return value, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return value, nil
}

func (s *InMemoryStateStore[T]) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()

	application.LogDebug(ctx, s.logger, "state deleted", map[string]interface{}{"key": key})
	return nil
}

// Len reports the number of stored keys, expired ones included until swept.
func (s *InMemoryStateStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
