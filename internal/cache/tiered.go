package cache

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/adr-causality-server/internal/domain"
)

// SuggestionStore is the behaviour shared by every cache tier.
type SuggestionStore interface {
	Get(ctx context.Context, key string) (*domain.AssessmentSuggestion, bool)
	Set(ctx context.Context, key string, suggestion *domain.AssessmentSuggestion)
	Backend() string
}

// New builds the memory tier and, when cfg.RedisURL is set, fronts Redis with
// it. The returned RedisCache is nil without Redis; callers close it on shutdown.
func New(cfg domain.CacheConfig, logger *logrus.Logger) (SuggestionStore, *RedisCache, error) {
	memory := NewMemoryCache(cfg.MaxItems, cfg.TTL)
	if cfg.RedisURL == "" {
		return memory, nil, nil
	}

	shared, err := NewRedisCache(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := shared.Ping(context.Background()); err != nil {
		logger.WithError(err).Warn("Redis is not reachable, serving from the memory tier")
	}
	return NewTieredCache(memory, shared), shared, nil
}

// TieredCache checks the local memory tier before the shared Redis tier and
// back-fills memory on a shared hit.
type TieredCache struct {
	memory *MemoryCache
	shared *RedisCache
}

// NewTieredCache combines a memory and a Redis cache.
func NewTieredCache(memory *MemoryCache, shared *RedisCache) *TieredCache {
	return &TieredCache{memory: memory, shared: shared}
}

func (t *TieredCache) Get(ctx context.Context, key string) (*domain.AssessmentSuggestion, bool) {
	if s, ok := t.memory.Get(ctx, key); ok {
		return s, true
	}
	s, ok := t.shared.Get(ctx, key)
	if ok {
		t.memory.Set(ctx, key, s)
	}
	return s, ok
}

func (t *TieredCache) Set(ctx context.Context, key string, suggestion *domain.AssessmentSuggestion) {
	t.memory.Set(ctx, key, suggestion)
	t.shared.Set(ctx, key, suggestion)
}

func (t *TieredCache) Backend() string { return "memory+redis" }
