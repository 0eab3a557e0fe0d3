// Package lock provides the mutual exclusion taken around long-running wage run actions.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when another holder owns the key.
var ErrNotObtained = errors.New("lock not obtained")

type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

type Lock interface {
	Release(ctx context.Context) error
}

// ========== REDIS ==========

type redisLocker struct {
	client *redislock.Client
}

// NewRedisLocker shares locks across every API instance connected to the same Redis.
func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: redislock.New(client)}
}

func (l *redisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lk, err := l.client.Obtain(ctx, key, ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrNotObtained
		}
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return &redisLock{lock: lk}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

func (l *redisLock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		// expired before release
		return nil
	}
	return err
}

// ========== LOCAL ==========

type localLocker struct {
	mu   sync.Mutex
	held map[string]localEntry
	seq  uint64
}

type localEntry struct {
	token   uint64
	expires time.Time
}

// NewLocalLocker is a process-local Locker for single-instance deployments and tests.
func NewLocalLocker() Locker {
	return &localLocker{held: make(map[string]localEntry)}
}

func (l *localLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, ErrNotObtained
	}
	l.seq++
	l.held[key] = localEntry{token: l.seq, expires: now.Add(ttl)}
	return &localLock{parent: l, key: key, token: l.seq}, nil
}

type localLock struct {
	parent *localLocker
	key    string
	token  uint64
}

func (l *localLock) Release(_ context.Context) error {
	l.parent.mu.Lock()
	defer l.parent.mu.Unlock()
	if e, ok := l.parent.held[l.key]; ok && e.token == l.token {
		delete(l.parent.held, l.key)
	}
	return nil
}
