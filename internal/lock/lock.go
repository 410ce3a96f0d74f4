package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotHeld is returned by Release when the lease expired or was taken over.
var ErrNotHeld = errors.New("lock not held")

// Lease is a held lock. Token identifies the holder.
type Lease struct {
	Key   string
	Token string
}

// Locker guards work that must not overlap across processes
type Locker interface {
	// Acquire returns ok=false without error when someone else holds key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (lease *Lease, ok bool, err error)
	Release(ctx context.Context, lease *Lease) error
}

// RedisLocker is a single-instance SET NX PX lock
type RedisLocker struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisLocker creates a RedisLocker; keys are namespaced with prefix.
func NewRedisLocker(client *redis.Client, prefix string, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, logger: logger}
}

// release only deletes the key if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquire implements Locker
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("lock key is required")
	}
	if ttl <= 0 {
		return nil, false, fmt.Errorf("lock ttl must be positive")
	}

	lease := &Lease{Key: l.prefix + key, Token: uuid.New().String()}
	ok, err := l.client.SetNX(ctx, lease.Key, lease.Token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", lease.Key, err)
	}
	if !ok {
		l.logger.Debug("Lock busy", zap.String("key", lease.Key))
		return nil, false, nil
	}
	return lease, true, nil
}

// Release implements Locker
func (l *RedisLocker) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	n, err := releaseScript.Run(ctx, l.client, []string{lease.Key}, lease.Token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", lease.Key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// NopLocker always grants the lock; used when Redis is disabled.
type NopLocker struct{}

// Acquire implements Locker
func (NopLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	return &Lease{Key: key}, true, nil
}

// Release implements Locker
func (NopLocker) Release(ctx context.Context, lease *Lease) error { return nil }
