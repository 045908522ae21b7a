// Package cache provides suggestion caches for the assessment service: an
// in-process LRU, a shared Redis tier guarded by a circuit breaker, and a
// tiered combination of both.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/adr-causality-server/internal/domain"
)

// MemoryCache is a size-bounded LRU with per-entry expiry.
type MemoryCache struct {
	lru *expirable.LRU[string, *domain.AssessmentSuggestion]
}

// NewMemoryCache creates an in-memory cache holding at most maxItems suggestions.
// A non-positive ttl keeps entries until evicted by size.
func NewMemoryCache(maxItems int, ttl time.Duration) *MemoryCache {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, *domain.AssessmentSuggestion](maxItems, nil, ttl),
	}
}

// Get returns a cached suggestion.
func (m *MemoryCache) Get(_ context.Context, key string) (*domain.AssessmentSuggestion, bool) {
	return m.lru.Get(key)
}

// Set stores a suggestion, evicting the least recently used entry when full.
func (m *MemoryCache) Set(_ context.Context, key string, suggestion *domain.AssessmentSuggestion) {
	m.lru.Add(key, suggestion)
}

// Len returns the number of live entries.
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

// Purge drops all entries.
func (m *MemoryCache) Purge() {
	m.lru.Purge()
}

func (m *MemoryCache) Backend() string { return "memory" }
