package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("generation lock not acquired")
)

// Locker serializes slot generation runs per veterinarian. Two concurrent
// generation calls for the same vet must not interleave their batch inserts.
type Locker interface {
	WithVetLock(ctx context.Context, vetID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisVetLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisVetLocker creates a locker that uses a per veterinarian Redis key
func NewRedisVetLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisVetLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisVetLocker) WithVetLock(ctx context.Context, vetID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:vet-generation:%s", vetID.String())
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire generation lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisVetLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release generation lock: %w", err)
	}
	return nil
}
