package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/adr-causality-server/internal/domain"
)

// cachedSuggestion is the JSON envelope stored in Redis.
type cachedSuggestion struct {
	Data     *domain.AssessmentSuggestion `json:"data"`
	CachedAt time.Time                    `json:"cached_at"`
}

// RedisCache shares suggestions between server replicas. Redis failures are
// treated as misses; repeated failures open the breaker so requests stop
// waiting on an unreachable server.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	prefix  string
	ttl     time.Duration
	logger  *logrus.Logger
}

// NewRedisCache creates a Redis-backed cache from cfg.RedisURL. It does not
// contact the server; call Ping to check connectivity.
func NewRedisCache(cfg domain.CacheConfig, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
		opts.ReadTimeout = cfg.DialTimeout
		opts.WriteTimeout = cfg.DialTimeout
	}
	opts.MaxRetries = 0

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-suggestion-cache",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker changed state")
		},
	})

	return &RedisCache{
		client:  redis.NewClient(opts),
		breaker: breaker,
		prefix:  cfg.KeyPrefix,
		ttl:     cfg.TTL,
		logger:  logger,
	}, nil
}

// Get returns a cached suggestion. Errors and corrupt entries count as misses.
func (r *RedisCache) Get(ctx context.Context, key string) (*domain.AssessmentSuggestion, bool) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		val, err := r.client.Get(ctx, r.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return val, err
	})
	if err != nil {
		r.logger.WithError(err).Debug("Redis cache lookup failed")
		return nil, false
	}
	val, _ := result.([]byte)
	if val == nil {
		return nil, false
	}

	var cached cachedSuggestion
	if err := json.Unmarshal(val, &cached); err != nil || cached.Data == nil {
		// Remove corrupted cache entry
		r.client.Del(ctx, r.prefix+key)
		return nil, false
	}
	return cached.Data, true
}

// Set stores a suggestion with the configured TTL.
func (r *RedisCache) Set(ctx context.Context, key string, suggestion *domain.AssessmentSuggestion) {
	data, err := json.Marshal(cachedSuggestion{Data: suggestion, CachedAt: time.Now().UTC()})
	if err != nil {
		r.logger.WithError(err).Warn("Failed to encode suggestion for Redis cache")
		return
	}

	_, err = r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, r.prefix+key, data, r.ttl).Err()
	})
	if err != nil {
		r.logger.WithError(err).Debug("Redis cache store failed")
	}
}

// Ping checks connectivity to the Redis server.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Available reports whether the breaker currently lets requests through.
func (r *RedisCache) Available() bool {
	return r.breaker.State() != gobreaker.StateOpen
}

// Close releases the connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) Backend() string { return "redis" }
