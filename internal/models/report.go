// Package models holds the record extracted from a camera-service dump.
package models

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// Report is the top-level record for one camera provider.
type Report struct {
	ProviderName string `json:"providerName" cbor:"providerName"`
	DeviceCount  int    `json:"deviceCount" cbor:"deviceCount"`
	Complete     bool   `json:"complete" cbor:"complete"`

	// Devices in insertion order. Use AddDevice so ids stay unique.
	Devices []*Device `json:"-" cbor:"devices"`

	// Metadata receives inline pairs seen while no device is open.
	Metadata *FieldMap `json:"-" cbor:"metadata,omitempty"`

	index map[string]int
}

// NewReport creates an empty report for a provider header.
func NewReport(providerName string, deviceCount int) *Report {
	return &Report{
		ProviderName: providerName,
		DeviceCount:  deviceCount,
		Devices:      []*Device{},
	}
}

// AddDevice attaches d. A device with an id already present replaces the
// earlier entry in place and replaced is true.
func (r *Report) AddDevice(d *Device) (replaced bool) {
	r.reindex()
	if i, ok := r.index[d.ID]; ok {
		r.Devices[i] = d
		return true
	}
	r.index[d.ID] = len(r.Devices)
	r.Devices = append(r.Devices, d)
	return false
}

// Device looks up a device by id. It never writes to r, so a shared
// report may be read from several goroutines.
func (r *Report) Device(id string) *Device {
	if r.index != nil && len(r.index) == len(r.Devices) {
		if i, ok := r.index[id]; ok {
			return r.Devices[i]
		}
		return nil
	}
	for _, d := range r.Devices {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// DeviceIDs returns the device ids in insertion order.
func (r *Report) DeviceIDs() []string {
	ids := make([]string, 0, len(r.Devices))
	for _, d := range r.Devices {
		ids = append(ids, d.ID)
	}
	return ids
}

// EnsureMetadata returns the report-level metadata map, creating it on demand.
func (r *Report) EnsureMetadata() *FieldMap {
	if r.Metadata == nil {
		r.Metadata = NewFieldMap()
	}
	return r.Metadata
}

func (r *Report) reindex() {
	if r.index != nil && len(r.index) == len(r.Devices) {
		return
	}
	r.index = make(map[string]int, len(r.Devices))
	for i, d := range r.Devices {
		r.index[d.ID] = i
	}
}

// MarshalJSON renders devices as an object keyed by id, in insertion order.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeMember(&buf, "providerName", r.ProviderName, true); err != nil {
		return nil, err
	}
	if err := writeMember(&buf, "deviceCount", r.DeviceCount, false); err != nil {
		return nil, err
	}
	if err := writeMember(&buf, "complete", r.Complete, false); err != nil {
		return nil, err
	}
	buf.WriteString(`,"devices":{`)
	for i, d := range r.Devices {
		if err := writeMember(&buf, d.ID, d, i == 0); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	if r.Metadata.Len() > 0 {
		if err := writeMember(&buf, "metadata", r.Metadata, false); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, name string, v any, first bool) error {
	if !first {
		buf.WriteByte(',')
	}
	key, err := marshalNoEscape(name)
	if err != nil {
		return err
	}
	val, err := marshalNoEscape(v)
	if err != nil {
		return err
	}
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(val)
	return nil
}

// Device is one camera device of a provider. It is either plain (own
// Characteristics) or logical (PhysicalCameras, nil Characteristics).
type Device struct {
	ID                  string            `json:"id" cbor:"id"`
	IsLogicalCamera     bool              `json:"isLogicalCamera" cbor:"isLogicalCamera"`
	Characteristics     *FieldMap         `json:"characteristics,omitempty" cbor:"characteristics,omitempty"`
	PhysicalCameras     []*PhysicalCamera `json:"physicalCameras,omitempty" cbor:"physicalCameras,omitempty"`
	PhysicalCameraCount int               `json:"physicalCameraCount,omitempty" cbor:"physicalCameraCount,omitempty"`
}

// NewDevice creates a plain device with an empty characteristics block.
func NewDevice(id string) *Device {
	return &Device{
		ID:              id,
		Characteristics: NewFieldMap(),
	}
}

// MarkLogical turns the device into a logical camera and drops its own
// characteristics. It returns how many fields were discarded.
func (d *Device) MarkLogical() (discarded int) {
	if d.IsLogicalCamera {
		return 0
	}
	discarded = d.Characteristics.Len()
	d.IsLogicalCamera = true
	d.Characteristics = nil
	return discarded
}

// AddPhysicalCamera appends a physical camera and keeps the count in step.
func (d *Device) AddPhysicalCamera(id string) *PhysicalCamera {
	pc := &PhysicalCamera{
		PhysicalCameraID: id,
		Characteristics:  NewFieldMap(),
	}
	d.PhysicalCameras = append(d.PhysicalCameras, pc)
	d.PhysicalCameraCount = len(d.PhysicalCameras)
	return pc
}

// Blocks calls fn for every characteristics block the device owns: its own
// block for plain devices, one per physical camera for logical ones.
func (d *Device) Blocks(fn func(physicalID string, block *FieldMap)) {
	if d.Characteristics != nil {
		fn("", d.Characteristics)
	}
	for _, pc := range d.PhysicalCameras {
		fn(pc.PhysicalCameraID, pc.Characteristics)
	}
}

// PhysicalCamera is a sub-device of a logical camera.
type PhysicalCamera struct {
	PhysicalCameraID string    `json:"physicalCameraId" cbor:"physicalCameraId"`
	Characteristics  *FieldMap `json:"characteristics" cbor:"characteristics"`
}

// EncodeJSON writes v as indented JSON without HTML escaping.
func EncodeJSON(w io.Writer, v any, indent int) error {
	enc := newEncoder(w, indent)
	return enc.Encode(v)
}

func newEncoder(w io.Writer, indent int) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	return enc
}
