package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/camdumpdb/internal/database"
)

// Storage provides thread-safe report persistence over database/sql with
// prepared statements.
type Storage struct {
	db            *database.DB
	insertReport  *sql.Stmt
	insertDevice  *sql.Stmt
	insertField   *sql.Stmt
	processedStmt *sql.Stmt
	mu            sync.RWMutex
}

// New creates a new Storage instance with prepared statements
func New(db *database.DB) (*Storage, error) {
	storage := &Storage{
		db: db,
	}

	if err := storage.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return storage, nil
}

// prepareStatements prepares all SQL statements
func (s *Storage) prepareStatements() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn := s.db.Conn()
	statements := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.insertReport, `
	INSERT INTO reports (
		id, source_path, content_hash, parsed_at, parser_version,
		provider_name, device_count, devices_parsed, complete,
		lines_read, diagnostic_count, report_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&s.insertDevice, `
	INSERT INTO devices (
		report_id, device_id, is_logical, physical_count, field_count, device_json
	) VALUES (?, ?, ?, ?, ?, ?)`},
		{&s.insertField, `
	INSERT INTO fields (
		report_id, device_id, physical_id, field_path, kind, datatype, value_count, value
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`},
		{&s.processedStmt, `SELECT COUNT(*) FROM reports WHERE content_hash = ?`},
	}

	for _, st := range statements {
		stmt, err := conn.Prepare(s.db.Rebind(st.query))
		if err != nil {
			s.closeStatements()
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		*st.dst = stmt
	}

	return nil
}

func (s *Storage) closeStatements() []error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.insertReport, s.insertDevice, s.insertField, s.processedStmt} {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Close closes all prepared statements and the database
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := s.closeStatements()
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing storage: %v", errs)
	}

	return nil
}

// InsertReports stores reports with their devices and fields in one
// transaction.
func (s *Storage) InsertReports(reports []*StoredReport) error {
	if len(reports) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	reportStmt := tx.Stmt(s.insertReport)
	deviceStmt := tx.Stmt(s.insertDevice)
	fieldStmt := tx.Stmt(s.insertField)

	for _, sr := range reports {
		if sr.Report == nil {
			continue
		}

		reportJSON, err := json.Marshal(sr.Report)
		if err != nil {
			return fmt.Errorf("failed to encode report %s: %w", sr.SourcePath, err)
		}

		devices, fields, err := Flatten(sr)
		if err != nil {
			return fmt.Errorf("failed to flatten report %s: %w", sr.SourcePath, err)
		}

		r := sr.Report
		if _, err := reportStmt.Exec(
			sr.ID.String(), sr.SourcePath, sr.ContentHash, sr.ParsedAt, sr.ParserVersion,
			r.ProviderName, r.DeviceCount, len(r.Devices), r.Complete,
			sr.LinesRead, sr.DiagnosticCount, string(reportJSON),
		); err != nil {
			return fmt.Errorf("failed to insert report %s: %w", sr.SourcePath, err)
		}

		for _, d := range devices {
			if _, err := deviceStmt.Exec(d.ReportID, d.DeviceID, d.IsLogical, d.PhysicalCount, d.FieldCount, d.JSON); err != nil {
				return fmt.Errorf("failed to insert device %s: %w", d.DeviceID, err)
			}
		}

		for _, f := range fields {
			if _, err := fieldStmt.Exec(f.ReportID, f.DeviceID, f.PhysicalID, f.Path, f.Kind, f.Datatype, f.ValueCount, f.Value); err != nil {
				return fmt.Errorf("failed to insert field %s: %w", f.Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// IsReportProcessed checks whether a dump with this content hash is stored
func (s *Storage) IsReportProcessed(contentHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.processedStmt.QueryRow(contentHash).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check processed report: %w", err)
	}
	return count > 0, nil
}

// CountReports returns how many reports are stored
func (s *Storage) CountReports() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.Conn().QueryRow("SELECT COUNT(*) FROM reports").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// FieldsByPath returns every stored field row whose path matches exactly,
// across all reports.
func (s *Storage) FieldsByPath(path string) ([]FieldRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Conn().Query(s.db.Rebind(`
	SELECT report_id, device_id, physical_id, field_path, kind, datatype, value_count, value
	FROM fields WHERE field_path = ?
	ORDER BY report_id, device_id, physical_id`), path)
	if err != nil {
		return nil, fmt.Errorf("failed to query fields: %w", err)
	}
	defer rows.Close()

	var out []FieldRow
	for rows.Next() {
		var f FieldRow
		if err := rows.Scan(&f.ReportID, &f.DeviceID, &f.PhysicalID, &f.Path, &f.Kind, &f.Datatype, &f.ValueCount, &f.Value); err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

var _ Operations = (*Storage)(nil)
