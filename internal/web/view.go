package web

import (
	"github.com/camdumpdb/internal/models"
	"github.com/camdumpdb/internal/parser"
	"github.com/camdumpdb/internal/search"
)

// fieldView is one field of a characteristics block, flattened for templates.
type fieldView struct {
	Name     string
	Kind     string
	Value    string
	Datatype string
	Count    int
	Values   []string
	Size     *models.BlockSize
	Children []fieldView
}

type blockView struct {
	PhysicalID string
	Fields     []fieldView
}

type deviceView struct {
	ID      string
	Logical bool
	Matches int
	Blocks  []blockView
}

type reportView struct {
	Title       string
	Name        string
	Hash        string
	Cached      bool
	Provider    string
	Declared    int
	Complete    bool
	LinesRead   int
	Diagnostics []parser.Diagnostic
	Metadata    []fieldView
	Devices     []deviceView

	Query     string
	Total     int
	Collapsed bool
}

func fieldsOf(m *models.FieldMap) []fieldView {
	if m == nil {
		return nil
	}
	fields := make([]fieldView, 0, m.Len())
	m.Range(func(name string, v models.FieldValue) bool {
		f := fieldView{Name: name, Kind: v.Kind().String()}
		switch val := v.(type) {
		case models.Scalar:
			f.Value = string(val)
		case *models.TypedArray:
			f.Datatype = val.Datatype
			f.Count = val.Count
			f.Values = val.Values
		case models.BlockSize:
			size := val
			f.Size = &size
		case *models.FieldMap:
			f.Children = fieldsOf(val)
		}
		fields = append(fields, f)
		return true
	})
	return fields
}

func devicesOf(r *models.Report, matches []search.DeviceMatches) []deviceView {
	counts := make(map[string]int, len(matches))
	for _, m := range matches {
		counts[m.DeviceID] = m.Count
	}

	devices := make([]deviceView, 0, len(r.Devices))
	for _, d := range r.Devices {
		dv := deviceView{ID: d.ID, Logical: d.IsLogicalCamera, Matches: counts[d.ID]}
		d.Blocks(func(physicalID string, block *models.FieldMap) {
			dv.Blocks = append(dv.Blocks, blockView{PhysicalID: physicalID, Fields: fieldsOf(block)})
		})
		devices = append(devices, dv)
	}
	return devices
}
