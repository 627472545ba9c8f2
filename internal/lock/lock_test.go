package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "lock:inventory:1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, l.locks)
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op
	assert.Empty(t, l.locks)
}

type fakeStore struct {
	mu       sync.Mutex
	held     map[string]string
	attempts int
	failErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{held: map[string]string{}}
}

func (s *fakeStore) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failErr != nil {
		return false, s.failErr
	}
	if _, ok := s.held[key]; ok {
		return false, nil
	}
	s.held[key] = value
	return true, nil
}

func (s *fakeStore) ReleaseLock(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held[key] == value {
		delete(s.held, key)
	}
	return nil
}

func TestRedisLockAndRelease(t *testing.T) {
	store := newFakeStore()
	l := NewRedis(store, RedisConfig{RetryDelay: time.Millisecond}, logger.NewNop())

	unlock, err := l.Lock(context.Background(), "lock:inventory:7")
	require.NoError(t, err)
	assert.Contains(t, store.held, "lock:inventory:7")

	unlock()
	assert.Empty(t, store.held)
}

func TestRedisBusyAfterRetries(t *testing.T) {
	store := newFakeStore()
	store.held["k"] = "someone-else"
	l := NewRedis(store, RedisConfig{Retries: 3, RetryDelay: time.Millisecond}, logger.NewNop())

	_, err := l.Lock(context.Background(), "k")
	assert.ErrorIs(t, err, model.ErrBusy)
	assert.Equal(t, 3, store.attempts)
	assert.Equal(t, "someone-else", store.held["k"])
}

func TestRedisStoreErrorsCountAsFailedAttempts(t *testing.T) {
	store := newFakeStore()
	store.failErr = errors.New("connection refused")
	l := NewRedis(store, RedisConfig{Retries: 2, RetryDelay: time.Millisecond}, logger.NewNop())

	_, err := l.Lock(context.Background(), "k")
	assert.ErrorIs(t, err, model.ErrBusy)
	assert.Equal(t, 2, store.attempts)
}
