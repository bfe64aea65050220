package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrCacheDown = errors.New("cache unavailable")
)

// Cache is the subset of Redis the services rely on. Values are stored as
// JSON.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Stats() map[string]interface{}
	Health(ctx context.Context) error
	Close() error
}

type RedisCache struct {
	client  *redis.Client
	breaker *CircuitBreaker
	metrics *CacheMetrics
	prefix  string
}

type CacheConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
	Breaker      *CircuitBreakerConfig
}

func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "taskshare:",
	}
}

func NewRedisCache(config *CacheConfig) *RedisCache {
	if config == nil {
		config = DefaultCacheConfig()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	return &RedisCache{
		client:  rdb,
		breaker: NewCircuitBreaker(config.Breaker),
		metrics: NewCacheMetrics(),
		prefix:  config.KeyPrefix,
	}
}

func (r *RedisCache) key(key string) string {
	return r.prefix + key
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = r.breaker.Execute(func() error {
		return r.client.Set(ctx, r.key(key), data, expiration).Err()
	})
	if err != nil {
		r.metrics.RecordError(key)
		return fmt.Errorf("failed to set cache: %w", err)
	}

	r.metrics.RecordSet(key)
	return nil
}

func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var data string
	miss := false
	err := r.breaker.Execute(func() error {
		var getErr error
		data, getErr = r.client.Get(ctx, r.key(key)).Result()
		if errors.Is(getErr, redis.Nil) {
			miss = true
			return nil
		}
		return getErr
	})
	if err != nil {
		r.metrics.RecordError(key)
		return fmt.Errorf("failed to get from cache: %w", err)
	}
	if miss {
		r.metrics.RecordMiss(key)
		return ErrCacheMiss
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		r.metrics.RecordError(key)
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	r.metrics.RecordHit(key)
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.key(key)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.breaker.Execute(func() error {
		return r.client.Del(ctx, prefixed...).Err()
	})
	if err != nil {
		for _, key := range keys {
			r.metrics.RecordError(key)
		}
		return fmt.Errorf("failed to delete from cache: %w", err)
	}

	for _, key := range keys {
		r.metrics.RecordDelete(key)
	}
	return nil
}

func (r *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var result int64
	err := r.breaker.Execute(func() error {
		var existsErr error
		result, existsErr = r.client.Exists(ctx, r.key(key)).Result()
		return existsErr
	})
	if err != nil {
		r.metrics.RecordError(key)
		return false, err
	}

	if result > 0 {
		r.metrics.RecordHit(key)
		return true, nil
	}
	r.metrics.RecordMiss(key)
	return false, nil
}

func (r *RedisCache) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	}
	return nil
}

func (r *RedisCache) Stats() map[string]interface{} {
	poolStats := r.client.PoolStats()
	metrics := r.metrics.Snapshot()

	return map[string]interface{}{
		"hits":            metrics.Total.Hits,
		"misses":          metrics.Total.Misses,
		"errors":          metrics.Total.Errors,
		"sets":            metrics.Total.Sets,
		"deletes":         metrics.Total.Deletes,
		"hit_rate":        metrics.Total.HitRate,
		"areas":           metrics.Areas,
		"since":           metrics.StartTime,
		"circuit_breaker": r.breaker.GetStats(),
		"pool_hits":       poolStats.Hits,
		"pool_misses":     poolStats.Misses,
		"pool_timeouts":   poolStats.Timeouts,
		"pool_total":      poolStats.TotalConns,
		"pool_idle":       poolStats.IdleConns,
		"pool_stale":      poolStats.StaleConns,
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
