package parser

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrNoProvider is reported when the input has no provider header.
	ErrNoProvider = errors.New("no camera provider header found")

	// ErrIncomplete is reported when input ends before the declared number
	// of devices has been processed.
	ErrIncomplete = errors.New("input ended before all declared devices were processed")
)

// IncompleteError carries the counts behind ErrIncomplete.
type IncompleteError struct {
	Declared  int `json:"declared"`
	Processed int `json:"processed"`
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s (%d of %d)", ErrIncomplete.Error(), e.Processed, e.Declared)
}

func (e *IncompleteError) Unwrap() error {
	return ErrIncomplete
}

// FileError represents file-level errors (opening, reading, etc.)
type FileError struct {
	Path     string    `json:"path"`
	Op       string    `json:"operation"` // "open", "read", "decode"
	Cause    error     `json:"cause,omitempty"`
	Message  string    `json:"message"`
	Occurred time.Time `json:"occurred"`
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %s error: %s", e.Op, e.Message)
}

func (e *FileError) Unwrap() error {
	return e.Cause
}

// NewFileError creates a new FileError
func NewFileError(path, op, message string, cause error) *FileError {
	return &FileError{
		Path:     path,
		Op:       op,
		Message:  message,
		Cause:    cause,
		Occurred: time.Now(),
	}
}

// ConversionError represents type conversion errors
type ConversionError struct {
	Field      string `json:"field"`
	Value      string `json:"value"`
	TargetType string `json:"target_type"`
	Cause      error  `json:"cause,omitempty"`
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s='%s' to %s", e.Field, e.Value, e.TargetType)
}

func (e *ConversionError) Unwrap() error {
	return e.Cause
}

// ParseInt wraps strconv.Atoi with a ConversionError
func ParseInt(field, value string) (int, error) {
	if value == "" {
		return 0, &ConversionError{
			Field:      field,
			Value:      value,
			TargetType: "int",
			Cause:      fmt.Errorf("empty value"),
		}
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ConversionError{
			Field:      field,
			Value:      value,
			TargetType: "int",
			Cause:      err,
		}
	}
	return result, nil
}
