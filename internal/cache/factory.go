package cache

import (
	"fmt"

	"github.com/camdumpdb/internal/config"
)

// New creates the report cache described by cfg.
// Returns nil if caching is disabled
func New(cfg config.CacheConfig) (*ReportCache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("cache path is required when cache is enabled")
	}

	bc, err := NewBadgerCache(&BadgerConfig{
		Path:             cfg.Path,
		InMemory:         cfg.InMemory,
		MaxMemoryMB:      cfg.MaxMemoryMB,
		ValueLogMaxMB:    cfg.ValueLogMaxMB,
		CompactL0OnClose: true,
		NumGoroutines:    4,
		GCInterval:       cfg.GCInterval,
		GCDiscardRatio:   cfg.GCDiscardRatio,
	})
	if err != nil {
		return nil, err
	}

	return NewReportCache(bc, cfg.ReportTTL), nil
}
