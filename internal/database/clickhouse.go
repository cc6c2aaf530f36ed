package database

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseDB wraps a ClickHouse connection with thread-safety
type ClickHouseDB struct {
	conn   driver.Conn
	sqlDB  *sql.DB
	mu     sync.RWMutex
	config *ClickHouseConfig
}

// ClickHouseConfig holds ClickHouse connection configuration
type ClickHouseConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	UseSSL       bool
	MaxOpenConns int
	MaxIdleConns int
	DialTimeout  time.Duration
	Compression  string
}

func compressionMethod(name string) *clickhouse.Compression {
	switch name {
	case "none":
		return &clickhouse.Compression{Method: clickhouse.CompressionNone}
	case "zstd":
		return &clickhouse.Compression{Method: clickhouse.CompressionZSTD}
	case "gzip":
		return &clickhouse.Compression{Method: clickhouse.CompressionGZIP}
	default:
		return &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
	}
}

// NewClickHouse creates a new ClickHouse connection
func NewClickHouse(config *ClickHouseConfig) (*ClickHouseDB, error) {
	// Pool sizes are applied to the sql.DB after OpenDB; the driver rejects
	// them inside Options.
	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", config.Host, config.Port)},
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		DialTimeout: config.DialTimeout,
		Compression: compressionMethod(config.Compression),
	}

	if config.UseSSL {
		options.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	sqlDB := clickhouse.OpenDB(options)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &ClickHouseDB{
		conn:   conn,
		sqlDB:  sqlDB,
		config: config,
	}, nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var err error
	if db.sqlDB != nil {
		if sqlErr := db.sqlDB.Close(); sqlErr != nil {
			err = sqlErr
		}
	}

	if db.conn != nil {
		if connErr := db.conn.Close(); connErr != nil && err == nil {
			err = connErr
		}
	}

	return err
}

// Conn returns a sql.DB connection
func (db *ClickHouseDB) Conn() *sql.DB {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.sqlDB
}

// NativeConn returns the native ClickHouse connection
func (db *ClickHouseDB) NativeConn() driver.Conn {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn
}

// CreateSchema creates the ClickHouse database schema
func (db *ClickHouseDB) CreateSchema() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	ctx := context.Background()

	tables := []string{`
	CREATE TABLE IF NOT EXISTS reports (
		id UUID,
		source_path String,
		content_hash FixedString(64),
		parsed_at DateTime64(3),
		parser_version LowCardinality(String),
		provider_name LowCardinality(String),
		device_count Int32,
		devices_parsed Int32,
		complete Bool,
		lines_read Int32,
		diagnostic_count Int32,
		report_json String
	) ENGINE = MergeTree()
	ORDER BY (content_hash, parsed_at)
	PARTITION BY toYYYYMM(parsed_at)`,
		`
	CREATE TABLE IF NOT EXISTS devices (
		report_id UUID,
		device_id String,
		is_logical Bool,
		physical_count Int32,
		field_count Int32,
		device_json String
	) ENGINE = MergeTree()
	ORDER BY (report_id, device_id)`,
		`
	CREATE TABLE IF NOT EXISTS fields (
		report_id UUID,
		device_id String,
		physical_id String,
		field_path String,
		kind LowCardinality(String),
		datatype LowCardinality(String),
		value_count Int32,
		value String,
		field_path_lower String MATERIALIZED lower(field_path)
	) ENGINE = MergeTree()
	ORDER BY (report_id, device_id, field_path)`,
	}

	for _, createSQL := range tables {
		if err := db.conn.Exec(ctx, createSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	if err := db.conn.Exec(ctx,
		"ALTER TABLE fields ADD INDEX IF NOT EXISTS idx_fields_path_lower field_path_lower TYPE bloom_filter GRANULARITY 1"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// GetVersion returns the ClickHouse version
func (db *ClickHouseDB) GetVersion() (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	ctx := context.Background()
	var version string

	row := db.conn.QueryRow(ctx, "SELECT version()")
	if err := row.Scan(&version); err != nil {
		return "", fmt.Errorf("failed to get ClickHouse version: %w", err)
	}

	return version, nil
}

// Ping tests the database connection
func (db *ClickHouseDB) Ping() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return db.conn.Ping(ctx)
}

// Ensure ClickHouseDB implements Database
var _ Database = (*ClickHouseDB)(nil)
