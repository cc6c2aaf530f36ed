package storage

import (
	"fmt"

	"github.com/camdumpdb/internal/config"
	"github.com/camdumpdb/internal/database"
)

// Open connects the configured sink and ensures its schema. It returns nil
// when storage is disabled.
func Open(cfg config.StorageConfig) (Operations, error) {
	switch cfg.Type {
	case "", config.StorageNone:
		return nil, nil

	case config.StorageClickHouse:
		chCfg, err := cfg.ClickHouse.ToClickHouseDatabaseConfig()
		if err != nil {
			return nil, err
		}
		db, err := database.NewClickHouse(chCfg)
		if err != nil {
			return nil, err
		}
		if err := db.CreateSchema(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create clickhouse schema: %w", err)
		}
		return NewClickHouseStorage(db), nil
	}

	var dialect database.Dialect
	target := cfg.Path
	switch cfg.Type {
	case config.StorageDuckDB:
		dialect = database.DialectDuckDB
	case config.StorageSQLite:
		dialect = database.DialectSQLite
	case config.StorageMySQL:
		dialect, target = database.DialectMySQL, cfg.DSN
	case config.StoragePostgres:
		dialect, target = database.DialectPostgres, cfg.DSN
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	db, err := database.Open(dialect, target)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s schema: %w", dialect, err)
	}

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
