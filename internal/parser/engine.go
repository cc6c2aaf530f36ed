package parser

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/camdumpdb/internal/models"
)

// State is the engine's position in the dump.
type State int

const (
	StateAwaitingProvider State = iota
	StateInProvider
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingProvider:
		return "awaiting-provider"
	case StateInProvider:
		return "in-provider"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// engine is the per-parse state machine. It is created for one input and
// discarded afterwards.
type engine struct {
	logger *slog.Logger

	state  State
	ctx    ParseContext
	report *models.Report
	line   int
	text   string
	diags  []Diagnostic
}

func newEngine(logger *slog.Logger) *engine {
	return &engine{logger: logger, state: StateAwaitingProvider}
}

// feed consumes one raw line. It returns false once no further input is
// wanted.
func (e *engine) feed(raw string) bool {
	if e.state == StateTerminated {
		return false
	}
	e.line++
	line := cleanLine(raw)
	if line == "" {
		return true
	}
	e.text = line

	if e.state == StateAwaitingProvider {
		if c, ok := providerRule.match(line); ok {
			e.startProvider(c.(providerLine))
		}
		return e.state != StateTerminated
	}

	if c, ok := classify(sectionRules, line); ok {
		e.dispatch(c)
	}
	// Target pass: every field-writing rule on the next line sees the same
	// resolved block.
	e.ctx.resolve()
	return e.state != StateTerminated
}

// dispatch is the single point where classified lines act on the context.
func (e *engine) dispatch(c classified) {
	switch l := c.(type) {
	case deviceHeaderLine:
		e.onDeviceHeader(l)
	case deviceFooterLine:
		e.onDeviceFooter()
	case characteristicsHeaderLine:
		e.onCharacteristicsHeader(l)
	case blockSizeLine:
		e.onBlockSize(l)
	case inlinePairsLine:
		e.onInlinePairs(l)
	case typedDeclLine:
		e.onTypedDecl(l)
	case typedValueLine:
		e.onTypedValues(l)
	}
}

func (e *engine) startProvider(p providerLine) {
	count, declared := p.DeviceCount, p.DeviceCount
	if count < 0 {
		// Unknown count: read devices until input runs out.
		e.diag(DiagInvalidCount, fmt.Sprintf("device count %q is not a number", p.CountText))
		count, declared = 0, math.MaxInt
	}
	e.report = models.NewReport(p.Name, count)
	e.ctx = newParseContext(declared)
	e.state = StateInProvider
	e.logger.Debug("provider found",
		slog.String("provider", p.Name),
		slog.Int("declared_devices", count),
		slog.Int("line", e.line))

	if e.ctx.done() {
		e.terminate()
	}
}

func (e *engine) onDeviceHeader(h deviceHeaderLine) {
	if h.Unnumbered {
		e.diag(DiagUnnumberedDevice, "device banner without a numeric id, skipping its fields")
		e.ctx.skipDevice()
		return
	}
	existing := e.report.Device(h.ID)
	if existing == nil && len(e.report.Devices) >= e.ctx.DeclaredDevices {
		e.diag(DiagDeviceOverflow, fmt.Sprintf("device %s exceeds declared count %d", h.ID, e.report.DeviceCount))
		e.ctx.skipDevice()
		return
	}
	if existing != nil {
		e.diag(DiagDuplicateDevice, fmt.Sprintf("device %s seen again, replacing earlier entry", h.ID))
	}
	d := models.NewDevice(h.ID)
	e.report.AddDevice(d)
	e.ctx.openDevice(d)
}

func (e *engine) onDeviceFooter() {
	e.checkBlocks(e.ctx.Device)
	if !e.ctx.closeDevice() {
		return
	}
	e.ctx.ProcessedDevices++
	if e.ctx.done() {
		e.terminate()
	}
}

func (e *engine) onCharacteristicsHeader(h characteristicsHeaderLine) {
	d := e.ctx.Device
	if d == nil {
		if !e.ctx.skipping {
			e.diag(DiagNoTarget, "characteristics header outside a device section")
		}
		return
	}

	if h.CameraID != "" {
		if !d.IsLogicalCamera {
			if n := d.MarkLogical(); n > 0 {
				e.diag(DiagDiscardedFields, fmt.Sprintf("device %s became logical, %d own fields dropped", d.ID, n))
			}
		}
		e.ctx.enterPhysical(d.AddPhysicalCamera(h.CameraID))
	} else {
		e.ctx.enterOwnBlock()
	}

	if h.Rest == "" {
		return
	}
	// Remainder pass: the text after the marker may itself be a field line.
	e.ctx.resolve()
	if c, ok := classify(fieldRules, h.Rest); ok {
		e.dispatch(c)
	}
}

func (e *engine) onBlockSize(b blockSizeLine) {
	target := e.ctx.Target
	if target == nil {
		e.noTarget("block size")
		return
	}
	target.SetSize(models.BlockSize{
		Size:       b.Size,
		DataCount:  b.DataCount,
		EntryCount: b.EntryCount,
	})
}

func (e *engine) onInlinePairs(p inlinePairsLine) {
	target := e.ctx.Target
	if target == nil {
		if e.ctx.skipping {
			return
		}
		target = e.report.EnsureMetadata()
	}
	for _, pair := range p.Pairs {
		target.Set(pair.Key, models.Scalar(pair.Value))
	}
}

func (e *engine) onTypedDecl(d typedDeclLine) {
	target := e.ctx.Target
	if target == nil {
		e.ctx.Typed = nil
		e.noTarget("typed declaration " + d.Name)
		return
	}
	if !d.CountOK {
		e.diag(DiagInvalidCount, fmt.Sprintf("%s: count %q is not a number", d.Name, d.CountText))
	}
	if !IsKnownDatatype(d.Datatype) {
		e.diag(DiagUnknownDatatype, fmt.Sprintf("%s: unknown datatype %q", d.Name, d.Datatype))
	}
	field := models.NewTypedArray(d.Datatype, d.Count)
	field.CountText = d.CountText
	target.Set(d.Name, field)
	e.ctx.Typed = field
}

func (e *engine) onTypedValues(v typedValueLine) {
	field := e.ctx.Typed
	if field == nil {
		if !e.ctx.skipping {
			e.diag(DiagOrphanValues, "value line without a typed field")
		}
		return
	}
	field.Append(DecodeValues(v.Raw, field.Datatype)...)
}

func (e *engine) noTarget(what string) {
	if e.ctx.skipping {
		return
	}
	e.diag(DiagNoTarget, what+" outside a characteristics block")
}

// checkBlocks records size and count mismatches for the blocks of d.
func (e *engine) checkBlocks(d *models.Device) {
	if d == nil {
		return
	}
	d.Blocks(func(physicalID string, block *models.FieldMap) {
		where := "device " + d.ID
		if physicalID != "" {
			where += " physical camera " + physicalID
		}
		e.checkBlock(where, block)
		if nested := block.Nested(); nested != nil {
			e.checkBlock(where+" nested block", nested)
		}
	})
}

func (e *engine) checkBlock(where string, block *models.FieldMap) {
	if declared, actual, ok := block.CheckSize(); !ok {
		e.diag(DiagSizeMismatch, fmt.Sprintf("%s: entry count %d, collected %d typed fields", where, declared, actual))
	}
	block.Range(func(name string, v models.FieldValue) bool {
		if t, ok := v.(*models.TypedArray); ok && t.CountText == "" && t.Count != len(t.Values) {
			e.diag(DiagCountMismatch, fmt.Sprintf("%s: %s declared %d values, got %d", where, name, t.Count, len(t.Values)))
		}
		return true
	})
}

func (e *engine) terminate() {
	e.state = StateTerminated
	e.report.Complete = true
	e.logger.Debug("provider complete",
		slog.String("provider", e.report.ProviderName),
		slog.Int("devices", len(e.report.Devices)),
		slog.Int("line", e.line))
}

// finish closes out a parse that ran out of input.
func (e *engine) finish() {
	if e.state != StateInProvider {
		return
	}
	e.checkBlocks(e.ctx.Device)
	msg := fmt.Sprintf("input ended after %d of %d devices", e.ctx.ProcessedDevices, e.ctx.DeclaredDevices)
	if e.ctx.DeclaredDevices == math.MaxInt {
		msg = fmt.Sprintf("input ended after %d devices, declared count unknown", e.ctx.ProcessedDevices)
	}
	e.line0Diag(DiagTruncated, msg)
}

func (e *engine) diag(kind DiagnosticKind, msg string) {
	d := Diagnostic{Line: e.line, Kind: kind, Message: msg, Text: e.text}
	e.diags = append(e.diags, d)
	e.logger.Debug("parse diagnostic",
		slog.Int("line", d.Line),
		slog.String("kind", string(kind)),
		slog.String("message", msg))
}

func (e *engine) line0Diag(kind DiagnosticKind, msg string) {
	e.diags = append(e.diags, Diagnostic{Kind: kind, Message: msg})
	e.logger.Debug("parse diagnostic",
		slog.String("kind", string(kind)),
		slog.String("message", msg))
}
