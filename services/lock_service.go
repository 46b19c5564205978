package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	LockKeyPrefix     = "lock:artifact:"
	LockRetryInterval = 100 * time.Millisecond
)

// Locker serializes work on a shared artifact path.
// The returned release func must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// NoopLocker never blocks; overlapping runs race on the artifact.
type NoopLocker struct{}

func (NoopLocker) Acquire(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

// LocalLocker serializes runs inside one gateway process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes runs across every gateway replica sharing one Redis.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.SugaredLogger
}

func NewRedisLocker(addr string, ttl time.Duration, log *zap.SugaredLogger) *RedisLocker {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return NewRedisLockerWithClient(client, ttl, log)
}

func NewRedisLockerWithClient(client *redis.Client, ttl time.Duration, log *zap.SugaredLogger) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, log: log}
}

func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := LockKeyPrefix + key
	token := uuid.NewString()

	err := xray.Capture(ctx, "Redis.Lock", func(ctx1 context.Context) error {
		if seg := xray.GetSegment(ctx1); seg != nil {
			seg.AddMetadata("redis.key", lockKey)
			seg.AddMetadata("redis.operation", "SET NX")
		}

		ticker := time.NewTicker(LockRetryInterval)
		defer ticker.Stop()
		for {
			ok, err := r.client.SetNX(ctx, lockKey, token, r.ttl).Result()
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lockKey, err)
	}

	release := func() {
		// the request context may already be gone; the lock must still be freed
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client, []string{lockKey}, token).Err(); err != nil {
			r.log.Errorw("Failed to release lock, it stays held until expiry",
				"key", lockKey, "ttl", r.ttl, "error", err)
		}
	}
	return release, nil
}

// Ping checks Redis connection
func (r *RedisLocker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisLocker) Close() error {
	return r.client.Close()
}

// NewLocker creates the locker matching the configured backend
func NewLocker(backend, redisAddr string, ttl time.Duration, log *zap.SugaredLogger) (Locker, error) {
	switch backend {
	case "none":
		return NoopLocker{}, nil
	case "local":
		return NewLocalLocker(), nil
	case "redis":
		return NewRedisLocker(redisAddr, ttl, log), nil
	default:
		return nil, fmt.Errorf("unknown lock backend: %s", backend)
	}
}
