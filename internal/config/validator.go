package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/camdumpdb/internal/logging"
	"github.com/camdumpdb/internal/textenc"
)

// Validator interface for config validation
type Validator interface {
	Validate() error
}

// ValidationErrors collects multiple validation errors
type ValidationErrors struct {
	Errors []error
}

func (ve *ValidationErrors) Add(err error) {
	if err != nil {
		ve.Errors = append(ve.Errors, err)
	}
}

func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return ""
	}

	messages := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		messages[i] = fmt.Sprintf("  - %s", err.Error())
	}

	return fmt.Sprintf("configuration validation failed:\n%s",
		strings.Join(messages, "\n"))
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs.Add(c.Parser.Validate())
	errs.Add(c.Storage.Validate())

	if c.Cache.Enabled {
		errs.Add(c.Cache.Validate())
	}

	errs.Add(c.Server.Validate())
	errs.Add(validateLogging("parser_logging", &c.ParserLogging))
	errs.Add(validateLogging("server_logging", &c.ServerLogging))

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

// Validate validates parser configuration
func (c *ParserConfig) Validate() error {
	var errs ValidationErrors

	if _, err := textenc.ParseEncoding(c.Encoding); err != nil {
		errs.Add(fmt.Errorf("parser.encoding: %w", err))
	}

	if c.Indent < 0 || c.Indent > 8 {
		errs.Add(fmt.Errorf("parser.indent must be between 0-8, got %d", c.Indent))
	}

	if c.Workers < 1 {
		errs.Add(fmt.Errorf("parser.workers must be at least 1, got %d", c.Workers))
	}

	if c.BatchSize < 1 {
		errs.Add(fmt.Errorf("parser.batch_size must be at least 1, got %d", c.BatchSize))
	}

	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs.Add(fmt.Errorf("parser.extensions entry %q must start with a dot", ext))
		}
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

// Validate validates storage configuration
func (c *StorageConfig) Validate() error {
	var errs ValidationErrors

	switch c.Type {
	case StorageNone:
	case StorageDuckDB, StorageSQLite:
		if c.Path == "" {
			errs.Add(fmt.Errorf("storage.path is required for %s", c.Type))
		}
	case StorageMySQL, StoragePostgres:
		if c.DSN == "" {
			errs.Add(fmt.Errorf("storage.dsn is required for %s", c.Type))
		}
	case StorageClickHouse:
		errs.Add(c.ClickHouse.Validate())
	default:
		errs.Add(fmt.Errorf("storage.type must be one of: none, duckdb, sqlite, mysql, postgres, clickhouse, got %q", c.Type))
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

// Validate validates ClickHouse configuration
func (c *ClickHouseConfig) Validate() error {
	var errs ValidationErrors

	if c.Host == "" {
		errs.Add(fmt.Errorf("clickhouse.host is required"))
	}

	if c.Port < 1 || c.Port > 65535 {
		errs.Add(fmt.Errorf("clickhouse.port must be between 1-65535, got %d", c.Port))
	}

	if c.Database == "" {
		errs.Add(fmt.Errorf("clickhouse.database is required"))
	}

	if c.MaxOpenConns < 0 {
		errs.Add(fmt.Errorf("clickhouse.max_open_conns cannot be negative"))
	}

	if c.MaxIdleConns < 0 {
		errs.Add(fmt.Errorf("clickhouse.max_idle_conns cannot be negative"))
	}

	if c.MaxOpenConns > 0 && c.MaxIdleConns > c.MaxOpenConns {
		errs.Add(fmt.Errorf("clickhouse.max_idle_conns (%d) cannot exceed max_open_conns (%d)",
			c.MaxIdleConns, c.MaxOpenConns))
	}

	if c.DialTimeout != "" {
		if _, err := time.ParseDuration(c.DialTimeout); err != nil {
			errs.Add(fmt.Errorf("clickhouse.dial_timeout: %w", err))
		}
	}

	switch c.Compression {
	case "", "none", "lz4", "zstd", "gzip":
	default:
		errs.Add(fmt.Errorf("clickhouse.compression must be one of: none, lz4, zstd, gzip, got %q", c.Compression))
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	var errs ValidationErrors

	if c.Path == "" && !c.InMemory {
		errs.Add(fmt.Errorf("cache.path is required when cache is enabled"))
	}

	if c.MaxMemoryMB < 1 {
		errs.Add(fmt.Errorf("cache.max_memory_mb must be positive, got %d", c.MaxMemoryMB))
	}

	if c.ValueLogMaxMB < 1 {
		errs.Add(fmt.Errorf("cache.value_log_max_mb must be positive, got %d", c.ValueLogMaxMB))
	}

	if c.ReportTTL < 0 {
		errs.Add(fmt.Errorf("cache.report_ttl cannot be negative"))
	}

	if c.GCDiscardRatio < 0 || c.GCDiscardRatio > 1 {
		errs.Add(fmt.Errorf("cache.gc_discard_ratio must be between 0 and 1, got %.2f", c.GCDiscardRatio))
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

// Validate validates HTTP server configuration
func (c *ServerConfig) Validate() error {
	var errs ValidationErrors

	if c.Port < 1 || c.Port > 65535 {
		errs.Add(fmt.Errorf("server.port must be between 1-65535, got %d", c.Port))
	}

	if c.DumpsDir == "" {
		errs.Add(fmt.Errorf("server.dumps_dir is required"))
	}

	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		errs.Add(fmt.Errorf("server timeouts cannot be negative"))
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

func validateLogging(section string, c *LoggingConfig) error {
	var errs ValidationErrors

	if c.Level != "" && !logging.ValidLevel(c.Level) {
		errs.Add(fmt.Errorf("%s.level must be one of: debug, info, warn, error, got %s", section, c.Level))
	}

	if c.MaxSize < 0 {
		errs.Add(fmt.Errorf("%s.max_size cannot be negative, got %d", section, c.MaxSize))
	}

	if c.MaxBackups < 0 {
		errs.Add(fmt.Errorf("%s.max_backups cannot be negative, got %d", section, c.MaxBackups))
	}

	if c.MaxAge < 0 {
		errs.Add(fmt.Errorf("%s.max_age cannot be negative, got %d", section, c.MaxAge))
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}
