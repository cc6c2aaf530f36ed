package logging

import (
	"log/slog"
	"time"
)

// Common field helpers for consistent structured logging

// Provider creates camera provider field
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// Device creates camera device field
func Device(id string) slog.Attr {
	return slog.String("device_id", id)
}

// Report creates report name field
func Report(name string) slog.Attr {
	return slog.String("report", name)
}

// Hash creates content hash field, shortened for readability
func Hash(hash string) slog.Attr {
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return slog.String("content_hash", hash)
}

// Duration logs duration in milliseconds
func Duration(name string, d time.Duration) slog.Attr {
	return slog.Int64(name+"_ms", d.Milliseconds())
}

// Err creates error field
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Count creates count field
func Count(name string, count int) slog.Attr {
	return slog.Int(name+"_count", count)
}

// Database creates database operation fields
func Database(operation, table string) []any {
	return []any{
		slog.String("db_operation", operation),
		slog.String("db_table", table),
	}
}

// HTTP creates HTTP request fields
func HTTP(method, path string, status int) []any {
	return []any{
		slog.String("http_method", method),
		slog.String("http_path", path),
		slog.Int("http_status", status),
	}
}

// File creates file path field
func File(path string) slog.Attr {
	return slog.String("file", path)
}

// BatchSize creates batch size field
func BatchSize(size int) slog.Attr {
	return slog.Int("batch_size", size)
}

// Worker creates worker ID field
func Worker(id int) slog.Attr {
	return slog.Int("worker_id", id)
}
