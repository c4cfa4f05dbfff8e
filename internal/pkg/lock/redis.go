package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every API instance
type RedisLocker struct {
	client *redis.Client
	wait   time.Duration
}

// NewRedisLocker creates a Redis-backed locker
func NewRedisLocker(client *redis.Client, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, wait: wait}
}

// Connect opens a Redis client and verifies it with PING
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Acquire implements Locker
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()

	err := poll(ctx, l.wait, func(ctx context.Context) (bool, error) {
		return l.client.SetNX(ctx, key, token, ttl).Result()
	})
	if err != nil {
		return nil, err
	}

	return func() {
		// Released on a fresh context so a cancelled request still frees the key
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}
