package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names a database/sql driver the report tables can live in.
type Dialect string

const (
	DialectDuckDB   Dialect = "duckdb"
	DialectSQLite   Dialect = "sqlite3"
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// DB wraps a database/sql connection with thread-safety
type DB struct {
	conn    *sql.DB
	dialect Dialect
	mu      sync.RWMutex
}

// New creates a new DuckDB connection
func New(path string) (*DB, error) {
	return Open(DialectDuckDB, path)
}

// Open connects to the given dialect. For duckdb and sqlite3 the target is a
// file path, for mysql and postgres it is a DSN.
func Open(dialect Dialect, target string) (*DB, error) {
	dsn, err := buildDSN(dialect, target)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", dialect, err)
	}

	// sqlite serialises writers anyway
	if dialect == DialectSQLite {
		conn.SetMaxOpenConns(1)
	}

	// Test connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect, err)
	}

	return &DB{conn: conn, dialect: dialect}, nil
}

func buildDSN(dialect Dialect, target string) (string, error) {
	switch dialect {
	case DialectDuckDB:
		if target == "" {
			return "", nil
		}
		return fmt.Sprintf("%s?memory_limit=2GB&threads=4", target), nil
	case DialectSQLite:
		return fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", target), nil
	case DialectMySQL:
		cfg, err := mysql.ParseDSN(target)
		if err != nil {
			return "", fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	case DialectPostgres:
		return target, nil
	default:
		return "", fmt.Errorf("unsupported dialect: %s", dialect)
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying sql.DB connection (thread-safe)
func (db *DB) Conn() *sql.DB {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn
}

// Dialect returns the driver the connection was opened with
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
func (db *DB) Rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// column types per dialect
type columnTypes struct {
	key, text, int, bool, time string
}

func (db *DB) types() columnTypes {
	switch db.dialect {
	case DialectMySQL:
		return columnTypes{key: "VARCHAR(255)", text: "LONGTEXT", int: "INT", bool: "BOOLEAN", time: "DATETIME(6)"}
	case DialectSQLite:
		return columnTypes{key: "TEXT", text: "TEXT", int: "INTEGER", bool: "BOOLEAN", time: "TIMESTAMP"}
	case DialectPostgres:
		return columnTypes{key: "TEXT", text: "TEXT", int: "INTEGER", bool: "BOOLEAN", time: "TIMESTAMP"}
	default:
		return columnTypes{key: "VARCHAR", text: "VARCHAR", int: "INTEGER", bool: "BOOLEAN", time: "TIMESTAMP"}
	}
}

// Migrate creates the database schema
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	t := db.types()

	tables := []string{
		fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS reports (
		id %[1]s PRIMARY KEY,
		source_path %[2]s NOT NULL,
		content_hash %[1]s NOT NULL,
		parsed_at %[5]s NOT NULL,
		parser_version %[1]s NOT NULL,
		provider_name %[1]s NOT NULL,
		device_count %[3]s NOT NULL,
		devices_parsed %[3]s NOT NULL,
		complete %[4]s NOT NULL,
		lines_read %[3]s NOT NULL,
		diagnostic_count %[3]s NOT NULL,
		report_json %[2]s NOT NULL
	)`, t.key, t.text, t.int, t.bool, t.time),
		fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS devices (
		report_id %[1]s NOT NULL,
		device_id %[1]s NOT NULL,
		is_logical %[4]s NOT NULL,
		physical_count %[3]s NOT NULL,
		field_count %[3]s NOT NULL,
		device_json %[2]s NOT NULL,
		PRIMARY KEY (report_id, device_id)
	)`, t.key, t.text, t.int, t.bool),
		fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS fields (
		report_id %[1]s NOT NULL,
		device_id %[1]s NOT NULL,
		physical_id %[1]s NOT NULL,
		field_path %[2]s NOT NULL,
		kind %[1]s NOT NULL,
		datatype %[1]s NOT NULL,
		value_count %[3]s NOT NULL,
		value %[2]s NOT NULL
	)`, t.key, t.text, t.int),
	}

	for _, createSQL := range tables {
		if _, err := db.conn.Exec(createSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX idx_reports_hash ON reports(content_hash)",
		"CREATE INDEX idx_fields_device ON fields(report_id, device_id)",
	}
	if db.dialect != DialectMySQL {
		for i, indexSQL := range indexes {
			indexes[i] = strings.Replace(indexSQL, "CREATE INDEX", "CREATE INDEX IF NOT EXISTS", 1)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.conn.Exec(indexSQL); err != nil {
			// mysql has no IF NOT EXISTS for indexes
			if db.dialect == DialectMySQL && strings.Contains(err.Error(), "Duplicate key name") {
				continue
			}
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// GetVersion returns the database server version
func (db *DB) GetVersion() (string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := "SELECT version()"
	switch db.dialect {
	case DialectSQLite:
		query = "SELECT sqlite_version()"
	case DialectMySQL:
		query = "SELECT VERSION()"
	}

	var version string
	err := db.conn.QueryRow(query).Scan(&version)
	if err != nil {
		return "", fmt.Errorf("failed to get %s version: %w", db.dialect, err)
	}

	return version, nil
}

// Ping tests the database connection
func (db *DB) Ping() error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.Ping()
}

var _ Database = (*DB)(nil)
