package application

import "context"

// Locker serialises work per key. KeyedMutex covers one process; the Redis
// locker covers replicas sharing a store.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

var _ Locker = (*KeyedMutex)(nil)
