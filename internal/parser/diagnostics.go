package parser

import "fmt"

// DiagnosticKind classifies a recoverable anomaly found while parsing.
type DiagnosticKind string

const (
	DiagOrphanValues     DiagnosticKind = "orphan-values"
	DiagUnknownDatatype  DiagnosticKind = "unknown-datatype"
	DiagInvalidCount     DiagnosticKind = "invalid-count"
	DiagDeviceOverflow   DiagnosticKind = "device-overflow"
	DiagDuplicateDevice  DiagnosticKind = "duplicate-device"
	DiagUnnumberedDevice DiagnosticKind = "unnumbered-device"
	DiagDiscardedFields  DiagnosticKind = "discarded-characteristics"
	DiagNoTarget         DiagnosticKind = "no-target"
	DiagSizeMismatch     DiagnosticKind = "size-mismatch"
	DiagCountMismatch    DiagnosticKind = "count-mismatch"
	DiagTruncated        DiagnosticKind = "truncated"
)

// Diagnostic records one anomaly. Line is 1-based; zero means the
// diagnostic concerns the report as a whole.
type Diagnostic struct {
	Line    int            `json:"line"`
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
	Text    string         `json:"text,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", d.Line, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}
