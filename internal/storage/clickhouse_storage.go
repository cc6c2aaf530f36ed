package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/camdumpdb/internal/database"
)

// ClickHouseStorage persists reports through ClickHouse's native batch API.
type ClickHouseStorage struct {
	db        *database.ClickHouseDB
	chunkSize int
	mu        sync.Mutex
}

// NewClickHouseStorage creates a ClickHouse report sink
func NewClickHouseStorage(db *database.ClickHouseDB) *ClickHouseStorage {
	return &ClickHouseStorage{
		db:        db,
		chunkSize: DefaultBatchInsertConfig().ChunkSize,
	}
}

// InsertReports sends reports, devices and fields as three batches.
func (cs *ClickHouseStorage) InsertReports(reports []*StoredReport) error {
	if len(reports) == 0 {
		return nil
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	ctx := context.Background()
	conn := cs.db.NativeConn()

	var devices []DeviceRow
	var fields []FieldRow

	batch, err := conn.PrepareBatch(ctx, `INSERT INTO reports (
		id, source_path, content_hash, parsed_at, parser_version,
		provider_name, device_count, devices_parsed, complete,
		lines_read, diagnostic_count, report_json
	)`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, sr := range reports {
		if sr.Report == nil {
			continue
		}
		reportJSON, err := json.Marshal(sr.Report)
		if err != nil {
			return fmt.Errorf("failed to encode report %s: %w", sr.SourcePath, err)
		}
		d, f, err := Flatten(sr)
		if err != nil {
			return fmt.Errorf("failed to flatten report %s: %w", sr.SourcePath, err)
		}
		devices = append(devices, d...)
		fields = append(fields, f...)

		r := sr.Report
		if err := batch.Append(
			sr.ID, sr.SourcePath, sr.ContentHash, sr.ParsedAt, sr.ParserVersion,
			r.ProviderName, int32(r.DeviceCount), int32(len(r.Devices)), r.Complete,
			int32(sr.LinesRead), int32(sr.DiagnosticCount), string(reportJSON),
		); err != nil {
			return fmt.Errorf("failed to append report: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send report batch: %w", err)
	}

	if err := cs.insertDevices(ctx, conn, devices); err != nil {
		return err
	}
	return cs.insertFields(ctx, conn, fields)
}

func (cs *ClickHouseStorage) insertDevices(ctx context.Context, conn driver.Conn, rows []DeviceRow) error {
	for i := 0; i < len(rows); i += cs.chunkSize {
		end := min(i+cs.chunkSize, len(rows))

		batch, err := conn.PrepareBatch(ctx, `INSERT INTO devices (
			report_id, device_id, is_logical, physical_count, field_count, device_json
		)`)
		if err != nil {
			return fmt.Errorf("failed to prepare device batch: %w", err)
		}
		for _, d := range rows[i:end] {
			if err := batch.Append(d.ReportID, d.DeviceID, d.IsLogical, int32(d.PhysicalCount), int32(d.FieldCount), d.JSON); err != nil {
				return fmt.Errorf("failed to append device: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("failed to send devices %d-%d: %w", i, end-1, err)
		}
	}
	return nil
}

func (cs *ClickHouseStorage) insertFields(ctx context.Context, conn driver.Conn, rows []FieldRow) error {
	for i := 0; i < len(rows); i += cs.chunkSize {
		end := min(i+cs.chunkSize, len(rows))

		batch, err := conn.PrepareBatch(ctx, `INSERT INTO fields (
			report_id, device_id, physical_id, field_path, kind, datatype, value_count, value
		)`)
		if err != nil {
			return fmt.Errorf("failed to prepare field batch: %w", err)
		}
		for _, f := range rows[i:end] {
			if err := batch.Append(f.ReportID, f.DeviceID, f.PhysicalID, f.Path, f.Kind, f.Datatype, int32(f.ValueCount), f.Value); err != nil {
				return fmt.Errorf("failed to append field: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("failed to send fields %d-%d: %w", i, end-1, err)
		}
	}
	return nil
}

// IsReportProcessed checks whether a dump with this content hash is stored
func (cs *ClickHouseStorage) IsReportProcessed(contentHash string) (bool, error) {
	var count uint64
	row := cs.db.NativeConn().QueryRow(context.Background(),
		"SELECT count() FROM reports WHERE content_hash = ?", contentHash)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check processed report: %w", err)
	}
	return count > 0, nil
}

// CountReports returns how many reports are stored
func (cs *ClickHouseStorage) CountReports() (int, error) {
	var count uint64
	row := cs.db.NativeConn().QueryRow(context.Background(), "SELECT count() FROM reports")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return int(count), nil
}

// Close closes the underlying connection
func (cs *ClickHouseStorage) Close() error {
	return cs.db.Close()
}

var _ Operations = (*ClickHouseStorage)(nil)
