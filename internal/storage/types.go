package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/camdumpdb/internal/models"
	"github.com/camdumpdb/internal/version"
)

// StoredReport is one parsed dump as it is persisted.
type StoredReport struct {
	ID              uuid.UUID      `json:"id"`
	SourcePath      string         `json:"source_path"`
	ContentHash     string         `json:"content_hash"`
	ParsedAt        time.Time      `json:"parsed_at"`
	ParserVersion   string         `json:"parser_version"`
	LinesRead       int            `json:"lines_read"`
	DiagnosticCount int            `json:"diagnostic_count"`
	Report          *models.Report `json:"report"`
}

// NewStoredReport stamps a report with a fresh id, the current time and the
// running parser version.
func NewStoredReport(sourcePath, contentHash string, report *models.Report) *StoredReport {
	return &StoredReport{
		ID:            uuid.New(),
		SourcePath:    sourcePath,
		ContentHash:   contentHash,
		ParsedAt:      time.Now().UTC(),
		ParserVersion: version.GetVersionInfo(),
		Report:        report,
	}
}

// DeviceRow is one row of the devices table.
type DeviceRow struct {
	ReportID      string
	DeviceID      string
	IsLogical     bool
	PhysicalCount int
	FieldCount    int
	JSON          string
}

// FieldRow is one row of the fields table. Nested keys are joined with '/'.
type FieldRow struct {
	ReportID   string
	DeviceID   string
	PhysicalID string
	Path       string
	Kind       string
	Datatype   string
	ValueCount int
	Value      string
}

// Operations is implemented by every report sink.
type Operations interface {
	InsertReports(reports []*StoredReport) error
	IsReportProcessed(contentHash string) (bool, error)
	CountReports() (int, error)
	Close() error
}

// BatchInsertConfig bounds how many rows go into one insert round trip.
type BatchInsertConfig struct {
	ChunkSize int
}

// DefaultBatchInsertConfig returns the default chunking.
func DefaultBatchInsertConfig() BatchInsertConfig {
	return BatchInsertConfig{ChunkSize: 1000}
}
