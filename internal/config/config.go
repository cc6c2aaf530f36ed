package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/camdumpdb/internal/database"
	"github.com/camdumpdb/internal/logging"
)

// Storage backends accepted by storage.type.
const (
	StorageNone       = "none"
	StorageDuckDB     = "duckdb"
	StorageSQLite     = "sqlite"
	StorageMySQL      = "mysql"
	StoragePostgres   = "postgres"
	StorageClickHouse = "clickhouse"
)

// Config represents the complete application configuration
type Config struct {
	Parser        ParserConfig  `yaml:"parser"`
	Storage       StorageConfig `yaml:"storage"`
	Cache         CacheConfig   `yaml:"cache"`
	Server        ServerConfig  `yaml:"server"`
	ParserLogging LoggingConfig `yaml:"parser_logging"`
	ServerLogging LoggingConfig `yaml:"server_logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig = logging.Config

// ParserConfig holds defaults for the parser command
type ParserConfig struct {
	Input      string   `yaml:"input"`      // dump file or directory
	Output     string   `yaml:"output"`     // JSON file, directory in batch mode, "-" for stdout
	Encoding   string   `yaml:"encoding"`   // auto, utf-8, utf-16le, utf-16be, windows-1252
	Indent     int      `yaml:"indent"`     // JSON indent width
	Workers    int      `yaml:"workers"`    // concurrent workers in batch mode
	BatchSize  int      `yaml:"batch_size"` // reports per storage insert
	Recursive  bool     `yaml:"recursive"`  // descend into subdirectories
	Extensions []string `yaml:"extensions"` // dump file extensions in batch mode
}

// StorageConfig selects where parsed reports are persisted
type StorageConfig struct {
	Type          string           `yaml:"type"`           // none, duckdb, sqlite, mysql, postgres, clickhouse
	Path          string           `yaml:"path"`           // duckdb/sqlite file
	DSN           string           `yaml:"dsn"`            // mysql/postgres data source name
	SkipProcessed bool             `yaml:"skip_processed"` // skip dumps whose content hash is already stored
	ClickHouse    ClickHouseConfig `yaml:"clickhouse"`
}

// ClickHouseConfig holds ClickHouse database connection configuration
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseSSL   bool   `yaml:"use_ssl,omitempty"`

	// Connection settings
	MaxOpenConns int    `yaml:"max_open_conns,omitempty"`
	MaxIdleConns int    `yaml:"max_idle_conns,omitempty"`
	DialTimeout  string `yaml:"dial_timeout,omitempty"`
	Compression  string `yaml:"compression,omitempty"` // none, zstd, lz4, gzip
}

// CacheConfig holds the parsed-report cache configuration
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Path           string        `yaml:"path"`
	InMemory       bool          `yaml:"in_memory"`
	MaxMemoryMB    int           `yaml:"max_memory_mb"`
	ValueLogMaxMB  int           `yaml:"value_log_max_mb"`
	ReportTTL      time.Duration `yaml:"report_ttl"`
	GCInterval     time.Duration `yaml:"gc_interval"`
	GCDiscardRatio float64       `yaml:"gc_discard_ratio"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	DumpsDir     string        `yaml:"dumps_dir"`
	Recursive    bool          `yaml:"recursive"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Default configurations

func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		Input:      "test.txt",
		Output:     "output.json",
		Encoding:   "auto",
		Indent:     2,
		Workers:    4,
		BatchSize:  50,
		Extensions: []string{".txt", ".log", ".dump", ".dumpsys"},
	}
}

func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Type:       StorageNone,
		Path:       "./camdump.duckdb",
		ClickHouse: DefaultClickHouseConfig(),
	}
}

func DefaultClickHouseConfig() ClickHouseConfig {
	return ClickHouseConfig{
		Host:         "localhost",
		Port:         9000,
		Database:     "camdump",
		Username:     "default",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		DialTimeout:  "30s",
		Compression:  "lz4",
	}
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:        false,
		Path:           "./cache/badger",
		MaxMemoryMB:    128,
		ValueLogMaxMB:  100,
		ReportTTL:      7 * 24 * time.Hour,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		DumpsDir:     "./dumps",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

func DefaultLoggingConfig() LoggingConfig {
	return *logging.DefaultConfig()
}

// Default returns a configuration with every section at its defaults.
func Default() *Config {
	return &Config{
		Parser:        DefaultParserConfig(),
		Storage:       DefaultStorageConfig(),
		Cache:         DefaultCacheConfig(),
		Server:        DefaultServerConfig(),
		ParserLogging: DefaultLoggingConfig(),
		ServerLogging: DefaultLoggingConfig(),
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return Default(), nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validate sets defaults for everything the file left out
func (c *Config) validate() error {
	p := DefaultParserConfig()
	if c.Parser.Input == "" {
		c.Parser.Input = p.Input
	}
	if c.Parser.Output == "" {
		c.Parser.Output = p.Output
	}
	if c.Parser.Encoding == "" {
		c.Parser.Encoding = p.Encoding
	}
	if c.Parser.Indent == 0 {
		c.Parser.Indent = p.Indent
	}
	if c.Parser.Workers == 0 {
		c.Parser.Workers = p.Workers
	}
	if c.Parser.BatchSize == 0 {
		c.Parser.BatchSize = p.BatchSize
	}
	if len(c.Parser.Extensions) == 0 {
		c.Parser.Extensions = p.Extensions
	}

	if c.Storage.Type == "" {
		c.Storage.Type = StorageNone
	}
	if c.Storage.Path == "" {
		switch c.Storage.Type {
		case StorageDuckDB:
			c.Storage.Path = "./camdump.duckdb"
		case StorageSQLite:
			c.Storage.Path = "./camdump.sqlite"
		}
	}

	ch := &c.Storage.ClickHouse
	if c.Storage.Type == StorageClickHouse && ch.Host == "" {
		return fmt.Errorf("clickhouse host is required")
	}
	if ch.Port == 0 {
		ch.Port = 9000
	}
	if ch.Database == "" {
		ch.Database = "camdump"
	}
	if ch.Username == "" {
		ch.Username = "default"
	}
	if ch.MaxOpenConns == 0 {
		ch.MaxOpenConns = 10
	}
	if ch.MaxIdleConns == 0 {
		ch.MaxIdleConns = 5
	}
	if ch.DialTimeout == "" {
		ch.DialTimeout = "30s"
	}
	if ch.Compression == "" {
		ch.Compression = "lz4"
	}

	if c.Cache.Enabled && c.Cache.Path == "" && !c.Cache.InMemory {
		c.Cache.Path = "./cache/badger"
	}
	if c.Cache.MaxMemoryMB == 0 {
		c.Cache.MaxMemoryMB = 128
	}
	if c.Cache.ValueLogMaxMB == 0 {
		c.Cache.ValueLogMaxMB = 100
	}
	if c.Cache.ReportTTL == 0 {
		c.Cache.ReportTTL = 7 * 24 * time.Hour
	}
	if c.Cache.GCInterval == 0 {
		c.Cache.GCInterval = 10 * time.Minute
	}
	if c.Cache.GCDiscardRatio == 0 {
		c.Cache.GCDiscardRatio = 0.5
	}

	s := DefaultServerConfig()
	if c.Server.Host == "" {
		c.Server.Host = s.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = s.Port
	}
	if c.Server.DumpsDir == "" {
		c.Server.DumpsDir = s.DumpsDir
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = s.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = s.WriteTimeout
	}

	// Helper function to set defaults for a logging config
	defaultLogging := func(cfg *LoggingConfig) {
		if cfg.Level == "" {
			cfg.Level = "info"
		}
		if !cfg.Console && cfg.File == "" {
			cfg.Console = true
		}
		if cfg.MaxSize == 0 {
			cfg.MaxSize = 100
		}
		if cfg.MaxBackups == 0 {
			cfg.MaxBackups = 3
		}
		if cfg.MaxAge == 0 {
			cfg.MaxAge = 28
		}
	}
	defaultLogging(&c.ParserLogging)
	defaultLogging(&c.ServerLogging)

	return nil
}

// CreateExampleConfig creates example configuration file
func CreateExampleConfig(dir string) error {
	if err := SaveConfig(Default(), filepath.Join(dir, "config.example.yaml")); err != nil {
		return fmt.Errorf("failed to create example config: %w", err)
	}
	return nil
}

// ToClickHouseDatabaseConfig converts ClickHouseConfig to database.ClickHouseConfig
func (c *ClickHouseConfig) ToClickHouseDatabaseConfig() (*database.ClickHouseConfig, error) {
	dialTimeout, err := time.ParseDuration(c.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	return &database.ClickHouseConfig{
		Host:         c.Host,
		Port:         c.Port,
		Database:     c.Database,
		Username:     c.Username,
		Password:     c.Password,
		UseSSL:       c.UseSSL,
		MaxOpenConns: c.MaxOpenConns,
		MaxIdleConns: c.MaxIdleConns,
		DialTimeout:  dialTimeout,
		Compression:  c.Compression,
	}, nil
}
