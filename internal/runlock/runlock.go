// Package runlock guards each document with a single-flight lock so
// concurrent extraction runs for the same document are rejected rather
// than raced.
package runlock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed worker can hold a document lock.
const DefaultTTL = 15 * time.Minute

// Locker acquires and releases per-document run locks. Acquire returns
// false when another run already holds the document.
type Locker interface {
	Acquire(ctx context.Context, documentID uuid.UUID) (bool, error)
	Release(ctx context.Context, documentID uuid.UUID) error
}

func lockKey(documentID uuid.UUID) string {
	return "medextract:run:" + documentID.String()
}

// RedisLocker implements Locker with SETNX, so locks are shared across
// worker processes.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) Acquire(ctx context.Context, documentID uuid.UUID) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(documentID), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	return ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, documentID uuid.UUID) error {
	if err := l.client.Del(ctx, lockKey(documentID)).Err(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

// MemoryLocker implements Locker in-process. Used by the CLI runner and
// by tests, where runs never span processes.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[uuid.UUID]struct{})}
}

func (l *MemoryLocker) Acquire(ctx context.Context, documentID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[documentID]; ok {
		return false, nil
	}
	l.held[documentID] = struct{}{}
	return true, nil
}

func (l *MemoryLocker) Release(ctx context.Context, documentID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, documentID)
	return nil
}
