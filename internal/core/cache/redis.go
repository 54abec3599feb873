package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"pantry-matcher/internal/infrastructure/config"
)

// Store 遠端緩存介面
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V) error
}

// RedisStore 以 Redis 共用緩存，值以 JSON 保存
type RedisStore[V any] struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisStore 創建 Redis 緩存並測試連接
func NewRedisStore[V any](ctx context.Context, cfg config.RedisConfig, ttl time.Duration) (*RedisStore[V], error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
		ReadTimeout: cfg.Timeout,
	})

	// 測試連接
	pingCtx, cancel := withTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore[V]{
		client:  client,
		prefix:  cfg.Prefix,
		ttl:     ttl,
		timeout: cfg.Timeout,
	}, nil
}

// Get 獲取緩存
func (s *RedisStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("failed to get cache: %w", err)
	}

	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal cache: %w", err)
	}
	return v, true, nil
}

// Set 設置緩存
func (s *RedisStore[V]) Set(ctx context.Context, key string, value V) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Close 關閉連接
func (s *RedisStore[V]) Close() error {
	return s.client.Close()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
