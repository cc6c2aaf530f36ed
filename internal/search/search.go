// Package search filters a parsed report down to the fields matching a term.
package search

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/camdumpdb/internal/models"
)

// DeviceMatches is the number of matching fields in one device.
type DeviceMatches struct {
	DeviceID string `json:"deviceId"`
	Count    int    `json:"count"`
}

// Result is a pruned copy of a report holding only matching fields.
type Result struct {
	Term     string          `json:"term"`
	Total    int             `json:"total"`
	Devices  []DeviceMatches `json:"devices"`
	Metadata int             `json:"metadataMatches,omitempty"`
	Report   *models.Report  `json:"report"`
}

type matcher struct {
	fold cases.Caser
	term string
}

func newMatcher(term string) *matcher {
	m := &matcher{fold: cases.Fold()}
	m.term = m.fold.String(term)
	return m
}

func (m *matcher) match(s string) bool {
	return strings.Contains(m.fold.String(s), m.term)
}

// Filter returns the fields of r whose name, scalar value or any typed value
// contains term, compared case-insensitively. Devices and physical cameras
// with no match are left out. The input report is not modified.
func Filter(r *models.Report, term string) *Result {
	res := &Result{Term: term, Devices: []DeviceMatches{}}
	if r == nil {
		return res
	}

	out := models.NewReport(r.ProviderName, r.DeviceCount)
	out.Complete = r.Complete
	res.Report = out

	if strings.TrimSpace(term) == "" {
		return res
	}
	m := newMatcher(term)

	for _, d := range r.Devices {
		pruned, n := m.device(d)
		if n == 0 {
			continue
		}
		out.AddDevice(pruned)
		res.Devices = append(res.Devices, DeviceMatches{DeviceID: d.ID, Count: n})
		res.Total += n
	}

	if meta, n := m.block(r.Metadata); n > 0 {
		out.Metadata = meta
		res.Metadata = n
		res.Total += n
	}

	return res
}

func (m *matcher) device(d *models.Device) (*models.Device, int) {
	pruned := &models.Device{
		ID:              d.ID,
		IsLogicalCamera: d.IsLogicalCamera,
	}
	total := 0

	if d.Characteristics != nil {
		block, n := m.block(d.Characteristics)
		if block == nil {
			block = models.NewFieldMap()
		}
		pruned.Characteristics = block
		total += n
	}

	for _, pc := range d.PhysicalCameras {
		block, n := m.block(pc.Characteristics)
		if n == 0 {
			continue
		}
		pruned.PhysicalCameras = append(pruned.PhysicalCameras, &models.PhysicalCamera{
			PhysicalCameraID: pc.PhysicalCameraID,
			Characteristics:  block,
		})
		total += n
	}
	pruned.PhysicalCameraCount = len(pruned.PhysicalCameras)

	return pruned, total
}

// block returns the matching subset of fm, or nil when nothing matched.
func (m *matcher) block(fm *models.FieldMap) (*models.FieldMap, int) {
	if fm.Len() == 0 {
		return nil, 0
	}

	out := models.NewFieldMap()
	count := 0
	fm.Range(func(name string, v models.FieldValue) bool {
		if nested, ok := v.(*models.FieldMap); ok {
			if m.match(name) {
				out.Set(name, nested)
				count += nested.Len()
				return true
			}
			if sub, n := m.block(nested); n > 0 {
				out.Set(name, sub)
				count += n
			}
			return true
		}

		if m.match(name) || m.value(v) {
			out.Set(name, v)
			count++
		}
		return true
	})

	if count == 0 {
		return nil, 0
	}
	return out, count
}

func (m *matcher) value(v models.FieldValue) bool {
	switch val := v.(type) {
	case models.Scalar:
		return m.match(string(val))
	case *models.TypedArray:
		if m.match(val.Datatype) {
			return true
		}
		for _, s := range val.Values {
			if m.match(s) {
				return true
			}
		}
	}
	return false
}
