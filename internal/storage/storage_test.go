package storage

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/camdumpdb/internal/config"
	"github.com/camdumpdb/internal/models"
)

func sampleReport() *models.Report {
	r := models.NewReport("legacy/0", 2)
	r.Complete = true
	r.EnsureMetadata().Set("Number of camera devices", models.Scalar("2"))

	d0 := models.NewDevice("0")
	d0.Characteristics.Set("Resource cost", models.Scalar("100"))
	d0.Characteristics.SetSize(models.BlockSize{Size: 1024, DataCount: 10, EntryCount: 1})
	arr := models.NewTypedArray("int32", 2)
	arr.Append("4032", "3024")
	d0.Characteristics.Set("android.sensor.info.pixelArraySize", arr)
	r.AddDevice(d0)

	d1 := models.NewDevice("1")
	d1.MarkLogical()
	pc := d1.AddPhysicalCamera("2")
	nested := pc.Characteristics.OpenNested()
	nested.Set("android.lens.facing", models.NewTypedArray("byte", 1))
	r.AddDevice(d1)

	return r
}

func openSQLiteStorage(t *testing.T) Operations {
	t.Helper()
	ops, err := Open(config.StorageConfig{
		Type: config.StorageSQLite,
		Path: filepath.Join(t.TempDir(), "reports.sqlite"),
	})
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}
	if ops == nil {
		t.Fatal("Expected SQLite storage, got nil")
	}
	t.Cleanup(func() { ops.Close() })
	return ops
}

func TestFlatten(t *testing.T) {
	sr := NewStoredReport("dump.txt", "abc", sampleReport())

	devices, fields, err := Flatten(sr)
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Expected 2 device rows, got %d", len(devices))
	}

	if d := devices[0]; d.DeviceID != "0" || d.IsLogical || d.FieldCount != 3 {
		t.Errorf("Device 0 row = %+v, want id 0, not logical, 3 fields", d)
	}
	if d := devices[1]; !d.IsLogical || d.PhysicalCount != 1 || d.FieldCount != 1 {
		t.Errorf("Device 1 row = %+v, want logical with 1 physical camera and 1 field", d)
	}

	var paths []string
	for _, f := range fields {
		paths = append(paths, f.DeviceID+":"+f.PhysicalID+":"+f.Path)
	}
	wantPaths := []string{
		"0::Resource cost",
		"0::size",
		"0::android.sensor.info.pixelArraySize",
		"1:2:characteristics/android.lens.facing",
		"#metadata::Number of camera devices",
	}
	if !reflect.DeepEqual(paths, wantPaths) {
		t.Errorf("Field paths = %v, want %v", paths, wantPaths)
	}

	arr := fields[2]
	if arr.Kind != "typed_array" || arr.Datatype != "int32" || arr.ValueCount != 2 {
		t.Errorf("Typed field row = %+v", arr)
	}
	var values []string
	if err := json.Unmarshal([]byte(arr.Value), &values); err != nil {
		t.Fatalf("Typed value is not JSON: %v", err)
	}
	if !reflect.DeepEqual(values, []string{"4032", "3024"}) {
		t.Errorf("Typed values = %v, want [4032 3024]", values)
	}

	var device map[string]any
	if err := json.Unmarshal([]byte(devices[0].JSON), &device); err != nil {
		t.Fatalf("Device JSON invalid: %v", err)
	}
	if device["id"] != "0" {
		t.Errorf("Device JSON id = %v, want 0", device["id"])
	}
}

func TestFlattenNilReport(t *testing.T) {
	devices, fields, err := Flatten(&StoredReport{})
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if len(devices) != 0 || len(fields) != 0 {
		t.Errorf("Expected no rows, got %d devices and %d fields", len(devices), len(fields))
	}
}

func TestSQLiteInsertReports(t *testing.T) {
	ops := openSQLiteStorage(t)

	processed, err := ops.IsReportProcessed("hash-1")
	if err != nil {
		t.Fatalf("IsReportProcessed failed: %v", err)
	}
	if processed {
		t.Error("Expected hash-1 to be unprocessed")
	}

	sr := NewStoredReport("a.txt", "hash-1", sampleReport())
	sr.LinesRead = 42
	if err := ops.InsertReports([]*StoredReport{sr, {SourcePath: "empty.txt"}}); err != nil {
		t.Fatalf("InsertReports failed: %v", err)
	}

	count, err := ops.CountReports()
	if err != nil {
		t.Fatalf("CountReports failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 report, got %d", count)
	}

	processed, err = ops.IsReportProcessed("hash-1")
	if err != nil {
		t.Fatalf("IsReportProcessed failed: %v", err)
	}
	if !processed {
		t.Error("Expected hash-1 to be processed")
	}

	s, ok := ops.(*Storage)
	if !ok {
		t.Fatalf("Expected *Storage, got %T", ops)
	}
	rows, err := s.FieldsByPath("android.sensor.info.pixelArraySize")
	if err != nil {
		t.Fatalf("FieldsByPath failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 field row, got %d", len(rows))
	}
	if rows[0].ReportID != sr.ID.String() {
		t.Errorf("ReportID = %s, want %s", rows[0].ReportID, sr.ID)
	}
	if rows[0].Datatype != "int32" {
		t.Errorf("Datatype = %s, want int32", rows[0].Datatype)
	}
}

func TestInsertEmptyBatch(t *testing.T) {
	ops := openSQLiteStorage(t)
	if err := ops.InsertReports(nil); err != nil {
		t.Errorf("InsertReports(nil) failed: %v", err)
	}
}

func TestOpenDisabled(t *testing.T) {
	ops, err := Open(config.StorageConfig{Type: config.StorageNone})
	if err != nil {
		t.Fatalf("Open(none) failed: %v", err)
	}
	if ops != nil {
		t.Error("Expected nil storage when disabled")
	}

	if _, err := Open(config.StorageConfig{Type: "oracle"}); err == nil {
		t.Error("Expected an error for an unknown storage type")
	}
}
