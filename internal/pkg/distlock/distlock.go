// Package distlock guards the tag-apply step so only one run writes to the
// vendor account at a time.
package distlock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
	// Extend resets the TTL for long-running operations. It fails with
	// ErrLockLost once another holder owns the lock or it has expired.
	Extend(ctx context.Context) error
}

// NewLock creates a lock using the best available backend.
// If redisClient is non-nil, uses Redis (needed when several server replicas
// share one vendor account). Otherwise falls back to an in-process lock.
func NewLock(redisClient *redis.Client, key string, ttl time.Duration) DistLock {
	if redisClient != nil {
		return NewRedisLock(redisClient, key, ttl)
	}
	return NewLocalLock(key)
}

// localHolders tracks which keys are held inside this process.
var localHolders sync.Map // key -> *localHolder

type localHolder struct {
	mu   sync.Mutex
	held bool
}

// LocalLock implements DistLock for a single process. Locks with the same
// key share state even when created separately.
type LocalLock struct {
	holder *localHolder
	owned  bool
}

// NewLocalLock creates an in-process lock for key.
func NewLocalLock(key string) *LocalLock {
	h, _ := localHolders.LoadOrStore(key, &localHolder{})
	return &LocalLock{holder: h.(*localHolder)}
}

// Acquire tries to take the lock without blocking.
func (l *LocalLock) Acquire(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.holder.mu.Lock()
	defer l.holder.mu.Unlock()
	if l.holder.held {
		return false, nil
	}
	l.holder.held = true
	l.owned = true
	return true, nil
}

// Release frees the lock if this instance holds it.
func (l *LocalLock) Release(ctx context.Context) error {
	l.holder.mu.Lock()
	defer l.holder.mu.Unlock()
	if l.owned {
		l.holder.held = false
		l.owned = false
	}
	return nil
}

// Extend is a no-op: a local lock never expires.
func (l *LocalLock) Extend(ctx context.Context) error {
	return nil
}
