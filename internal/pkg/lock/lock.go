package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned when the key stays held past the wait window
var ErrLocked = errors.New("lock held by another request")

// retryInterval is how often a contended key is polled
const retryInterval = 50 * time.Millisecond

// Locker hands out short-lived exclusive locks by key
type Locker interface {
	// Acquire takes key for at most ttl. The returned func releases it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// tryFunc attempts to take a lock once and reports success
type tryFunc func(ctx context.Context) (bool, error)

// poll retries try until it succeeds, wait elapses or ctx ends
func poll(ctx context.Context, wait time.Duration, try tryFunc) error {
	deadline := time.Now().Add(wait)
	for {
		ok, err := try(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLocked
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// MemoryLocker is a process-local Locker used when Redis is disabled
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryEntry
	wait  time.Duration
	nowFn func() time.Time
}

type memoryEntry struct {
	token   string
	expires time.Time
}

// NewMemoryLocker creates a process-local locker that waits up to wait for a held key
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]memoryEntry),
		wait:  wait,
		nowFn: time.Now,
	}
}

// Acquire implements Locker
func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()

	err := poll(ctx, l.wait, func(context.Context) (bool, error) {
		l.mu.Lock()
		defer l.mu.Unlock()

		now := l.nowFn()
		if e, ok := l.held[key]; ok && now.Before(e.expires) {
			return false, nil
		}
		l.held[key] = memoryEntry{token: token, expires: now.Add(ttl)}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[key]; ok && e.token == token {
			delete(l.held, key)
		}
	}, nil
}
