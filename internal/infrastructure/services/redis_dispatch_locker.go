package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/takutakahashi/pushnotify/internal/usecases/ports/services"
)

// releaseScript deletes the lock only while it still carries the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions configures the Redis connection used for dispatch locks
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisDispatchLocker implements DispatchLocker across processes with SET NX PX
type RedisDispatchLocker struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisDispatchLocker creates a new RedisDispatchLocker
func NewRedisDispatchLocker(client redis.UniversalClient, prefix string) *RedisDispatchLocker {
	if prefix == "" {
		prefix = "pushnotify:"
	}
	return &RedisDispatchLocker{client: client, prefix: prefix}
}

// Acquire takes key for ttl or returns services.ErrLockHeld
func (l *RedisDispatchLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (services.ReleaseFunc, error) {
	fullKey := l.prefix + key
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, services.ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
				log.Printf("[REDIS_LOCK] Failed to release %s: %v", fullKey, err)
			}
		})
	}, nil
}

var _ services.DispatchLocker = (*RedisDispatchLocker)(nil)
