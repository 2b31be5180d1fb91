package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mateusmacedo/togobus-bff/pkg/application"
)

// StateStore implements application.StateStore on plain Redis string keys.
type StateStore[T any] struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

type StoreOption func(*storeConfig)

type storeConfig struct {
	ttl time.Duration
}

// WithTTL expires keys after ttl; refreshed on every Save. Zero disables expiry.
func WithTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.ttl = ttl
	}
}

func NewStateStore[T any](client redis.UniversalClient, prefix string, opts ...StoreOption) *StateStore[T] {
	cfg := storeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &StateStore[T]{
		client: client,
		prefix: prefix,
		ttl:    cfg.ttl,
	}
}

func (s *StateStore[T]) key(key string) string {
	return s.prefix + key
}

func (s *StateStore[T]) Save(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (s *StateStore[T]) Load(ctx context.Context, key string) (T, error) {
	var value T
	raw, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return value, application.ErrStateNotFound
		}
		return value, fmt.Errorf("failed to get from redis: %w", err)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return value, nil
}

func (s *StateStore[T]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}
