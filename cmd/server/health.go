package main

import (
	"time"

	"github.com/camdumpdb/internal/api"
	"github.com/camdumpdb/internal/cache"
	"github.com/camdumpdb/internal/catalog"
	"github.com/camdumpdb/internal/version"
)

// serverHealthChecker implements api.HealthChecker using concrete server dependencies.
type serverHealthChecker struct {
	dumpsDir  string
	catalog   *catalog.Catalog
	cache     *cache.ReportCache
	startTime time.Time
}

func (h *serverHealthChecker) CheckHealth() *api.HealthStatus {
	now := time.Now().UTC()
	uptime := now.Sub(h.startTime)

	status := &api.HealthStatus{
		Status:    "ok",
		Time:      now,
		Uptime:    uptime.Truncate(time.Second).String(),
		UptimeSec: uptime.Seconds(),
		Version:   version.Info(),
		Dumps: api.DumpsHealth{
			Dir:    h.dumpsDir,
			Loaded: h.catalog.LoadedCount(),
		},
	}

	// An unreadable dumps directory leaves nothing to serve
	entries, err := h.catalog.List()
	if err != nil {
		status.Dumps.Error = err.Error()
		status.Status = "degraded"
	} else {
		status.Dumps.Available = len(entries)
	}

	// Cache stats (if enabled)
	if h.cache != nil {
		metrics := h.cache.Metrics()
		status.Cache = &api.CacheHealth{
			Enabled: true,
			Keys:    metrics.Keys,
			HitRate: metrics.HitRate(),
		}
	}

	return status
}
