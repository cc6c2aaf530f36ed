package storage

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/camdumpdb/internal/models"
)

// metadataDeviceID tags field rows that came from report-level metadata.
const metadataDeviceID = "#metadata"

// Flatten turns a stored report into device and field rows.
func Flatten(sr *StoredReport) ([]DeviceRow, []FieldRow, error) {
	if sr.Report == nil {
		return nil, nil, nil
	}

	reportID := sr.ID.String()
	var devices []DeviceRow
	var fields []FieldRow

	for _, d := range sr.Report.Devices {
		data, err := json.Marshal(d)
		if err != nil {
			return nil, nil, fmt.Errorf("device %s: %w", d.ID, err)
		}

		row := DeviceRow{
			ReportID:      reportID,
			DeviceID:      d.ID,
			IsLogical:     d.IsLogicalCamera,
			PhysicalCount: d.PhysicalCameraCount,
			JSON:          string(data),
		}

		var blockErr error
		d.Blocks(func(physicalID string, block *models.FieldMap) {
			if blockErr != nil {
				return
			}
			before := len(fields)
			fields, blockErr = appendFields(fields, reportID, d.ID, physicalID, "", block)
			row.FieldCount += len(fields) - before
		})
		if blockErr != nil {
			return nil, nil, fmt.Errorf("device %s: %w", d.ID, blockErr)
		}

		devices = append(devices, row)
	}

	if sr.Report.Metadata.Len() > 0 {
		var err error
		fields, err = appendFields(fields, reportID, metadataDeviceID, "", "", sr.Report.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("metadata: %w", err)
		}
	}

	return devices, fields, nil
}

func appendFields(rows []FieldRow, reportID, deviceID, physicalID, prefix string, block *models.FieldMap) ([]FieldRow, error) {
	var err error
	block.Range(func(name string, v models.FieldValue) bool {
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}

		row := FieldRow{
			ReportID:   reportID,
			DeviceID:   deviceID,
			PhysicalID: physicalID,
			Path:       path,
			Kind:       v.Kind().String(),
		}

		switch val := v.(type) {
		case models.Scalar:
			row.ValueCount = 1
			row.Value = string(val)
		case *models.TypedArray:
			var data []byte
			data, err = json.Marshal(val.Values)
			if err != nil {
				return false
			}
			row.Datatype = val.Datatype
			row.ValueCount = len(val.Values)
			row.Value = string(data)
		case models.BlockSize:
			row.ValueCount = val.EntryCount
			row.Value = strconv.Itoa(val.Size)
		case *models.FieldMap:
			rows, err = appendFields(rows, reportID, deviceID, physicalID, path, val)
			return err == nil
		}

		rows = append(rows, row)
		return true
	})
	return rows, err
}
