package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mateusmacedo/togobus-bff/pkg/application"
)

var ErrLockAcquire = errors.New("failed to acquire distributed lock")

// unlockScript deletes the lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

const (
	DefaultLockTTL      = 10 * time.Second
	DefaultLockInterval = 20 * time.Millisecond
)

// Locker implements application.Locker with SET NX PX. Callers in the same
// process queue on a local mutex first so only one of them polls Redis.
type Locker struct {
	client   redis.UniversalClient
	prefix   string
	ttl      time.Duration
	interval time.Duration
	local    *application.KeyedMutex
}

type LockerOption func(*Locker)

// WithLockTTL bounds how long a crashed holder can keep a key locked.
func WithLockTTL(ttl time.Duration) LockerOption {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithLockInterval(interval time.Duration) LockerOption {
	return func(l *Locker) {
		if interval > 0 {
			l.interval = interval
		}
	}
}

func NewLocker(client redis.UniversalClient, prefix string, opts ...LockerOption) *Locker {
	l := &Locker{
		client:   client,
		prefix:   prefix,
		ttl:      DefaultLockTTL,
		interval: DefaultLockInterval,
		local:    application.NewKeyedMutex(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locker) WithLock(ctx context.Context, key string, fn func() error) error {
	return l.local.WithLock(ctx, key, func() error {
		lockKey := l.prefix + "lock:" + key
		token := uuid.NewString()
		if err := l.acquire(ctx, lockKey, token); err != nil {
			return err
		}
		defer func() {
			// Release even when the caller's context is already done.
			_ = unlockScript.Run(context.WithoutCancel(ctx), l.client, []string{lockKey}, token).Err()
		}()
		return fn()
	})
}

func (l *Locker) acquire(ctx context.Context, lockKey, token string) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLockAcquire, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrLockAcquire, ctx.Err())
		case <-ticker.C:
		}
	}
}

var _ application.Locker = (*Locker)(nil)
