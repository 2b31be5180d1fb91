package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerialisesPerKey(t *testing.T) {
	locks := NewKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locks.WithLock(context.Background(), "flow-1", func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, locks.Len())
}

func TestKeyedMutex_ReturnsCallbackError(t *testing.T) {
	locks := NewKeyedMutex()
	err := locks.WithLock(context.Background(), "k", func() error { return ErrStateNotFound })
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestKeyedMutex_CancelledContext(t *testing.T) {
	locks := NewKeyedMutex()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := locks.WithLock(ctx, "k", func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
