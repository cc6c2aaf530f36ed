package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for missing or expired keys.
var ErrNotFound = errors.New("cache: key not found")

// Cache defines the cache operations interface
type Cache interface {
	// Basic operations
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Pattern operations
	DeleteByPattern(ctx context.Context, pattern string) error

	// Metrics
	GetMetrics() *Metrics

	// Lifecycle
	Close() error
}

// Metrics tracks cache performance
type Metrics struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Deletes uint64 `json:"deletes"`
	Size    uint64 `json:"size"`
	Keys    uint64 `json:"keys"`
}

// HitRate returns hits as a percentage of lookups.
func (m *Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0
	}
	return float64(m.Hits) / float64(total) * 100
}
