package fixtures

import (
	"github.com/camdumpdb/internal/models"
)

// ReportBuilder provides a fluent API for building test reports
type ReportBuilder struct {
	report *models.Report
	device *models.Device
	block  *models.FieldMap
}

// NewReportBuilder creates a complete, empty report for provider legacy/0
func NewReportBuilder() *ReportBuilder {
	r := models.NewReport("legacy/0", 0)
	r.Complete = true
	return &ReportBuilder{report: r}
}

// WithProvider sets the provider name
func (b *ReportBuilder) WithProvider(name string) *ReportBuilder {
	b.report.ProviderName = name
	return b
}

// Incomplete marks the report as cut short
func (b *ReportBuilder) Incomplete() *ReportBuilder {
	b.report.Complete = false
	return b
}

// WithMetadata adds a scalar pair seen outside any device
func (b *ReportBuilder) WithMetadata(name, value string) *ReportBuilder {
	b.report.EnsureMetadata().Set(name, models.Scalar(value))
	return b
}

// Device starts a plain device; following fields go to its characteristics
func (b *ReportBuilder) Device(id string) *ReportBuilder {
	b.device = models.NewDevice(id)
	b.block = b.device.Characteristics
	b.report.AddDevice(b.device)
	b.report.DeviceCount = len(b.report.Devices)
	return b
}

// Physical turns the current device logical and starts a physical camera
func (b *ReportBuilder) Physical(id string) *ReportBuilder {
	b.device.MarkLogical()
	b.block = b.device.AddPhysicalCamera(id).Characteristics
	return b
}

// Nested moves following fields into the nested characteristics map
func (b *ReportBuilder) Nested() *ReportBuilder {
	b.block = b.block.OpenNested()
	return b
}

// Scalar adds an inline field to the current block
func (b *ReportBuilder) Scalar(name, value string) *ReportBuilder {
	b.block.Set(name, models.Scalar(value))
	return b
}

// Typed adds a typed field with its decoded values to the current block
func (b *ReportBuilder) Typed(name, datatype string, values ...string) *ReportBuilder {
	arr := models.NewTypedArray(datatype, len(values))
	arr.Append(values...)
	b.block.Set(name, arr)
	return b
}

// Build returns the report
func (b *ReportBuilder) Build() *models.Report {
	return b.report
}
