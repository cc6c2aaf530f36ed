package database

import (
	"database/sql"
)

// Database defines the common interface for all database backends
type Database interface {
	// Connection management
	Close() error
	Conn() *sql.DB

	GetVersion() (string, error)

	// Health check
	Ping() error
}
