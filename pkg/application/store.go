package application

import (
	"context"
	"errors"
)

// ErrStateNotFound is returned by StateStore.Load for unknown keys.
var ErrStateNotFound = errors.New("state not found")

// StateStore keeps one value per key. Booking flows and auth sessions live here.
type StateStore[T any] interface {
	Save(ctx context.Context, key string, value T) error
	Load(ctx context.Context, key string) (T, error)
	Delete(ctx context.Context, key string) error
}
