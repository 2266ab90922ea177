package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/learnboard/learnboard/logger"
	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps sessions in Redis with a TTL per key. With no address
// it runs an embedded in-process Redis.
type RedisBackend struct {
	client    *redis.Client
	miniRedis *miniredis.Miniredis

	// clock of the embedded server; miniredis only expires keys when its
	// time is moved forward
	mu       sync.Mutex
	advanced time.Time
}

// NewRedisBackend connects to redisAddr, or starts an embedded Redis when
// redisAddr is empty.
func NewRedisBackend(ctx context.Context, redisAddr string) (*RedisBackend, error) {
	b := &RedisBackend{}
	if redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded Redis: %w", err)
		}
		b.miniRedis = mr
		b.advanced = time.Now()
		redisAddr = mr.Addr()
		logger.Info("Embedded Redis started on", redisAddr)
	}

	b.client = redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := b.client.Ping(ctx).Err(); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", redisAddr, err)
	}
	if b.miniRedis == nil {
		logger.Info("Connected to external Redis at", redisAddr)
	}
	return b, nil
}

func (b *RedisBackend) Load(ctx context.Context, key string) ([]byte, error) {
	b.expireEmbedded()
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (b *RedisBackend) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, data, ttl).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

// expireEmbedded moves the embedded server's clock to now, dropping the keys
// whose TTL has run out. It is a no-op against an external Redis.
func (b *RedisBackend) expireEmbedded() {
	if b.miniRedis == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	if elapsed := now.Sub(b.advanced); elapsed > 0 {
		b.miniRedis.FastForward(elapsed)
		b.advanced = now
	}
}

// Cleanup expires embedded keys and counts the remaining sessions; an
// external Redis expires keys on its own.
func (b *RedisBackend) Cleanup() int {
	b.expireEmbedded()
	ctx := context.Background()
	n := 0
	iter := b.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		logger.Warning("count sessions failed:", err)
	}
	return n
}

func (b *RedisBackend) Close() error {
	var err error
	if b.client != nil {
		err = b.client.Close()
	}
	if b.miniRedis != nil {
		b.miniRedis.Close()
	}
	return err
}
