package api

import (
	"time"

	"github.com/camdumpdb/internal/version"
)

// HealthChecker provides health check data to the API server.
type HealthChecker interface {
	CheckHealth() *HealthStatus
}

// HealthStatus is the full health check response.
type HealthStatus struct {
	Status    string            `json:"status"` // "ok" or "degraded"
	Time      time.Time         `json:"time"`
	Uptime    string            `json:"uptime"`         // human-readable
	UptimeSec float64           `json:"uptime_seconds"` // machine-readable
	Version   version.BuildInfo `json:"version"`
	Dumps     DumpsHealth       `json:"dumps"`
	Cache     *CacheHealth      `json:"cache,omitempty"`
}

// DumpsHealth reports the state of the dumps directory.
type DumpsHealth struct {
	Dir       string `json:"dir"`
	Available int    `json:"available"`
	Loaded    int    `json:"loaded"`
	Error     string `json:"error,omitempty"`
}

// CacheHealth reports BadgerDB cache status.
type CacheHealth struct {
	Enabled bool    `json:"enabled"`
	Keys    uint64  `json:"keys"`
	HitRate float64 `json:"hit_rate"`
}
