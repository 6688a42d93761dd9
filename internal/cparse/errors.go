package cparse

import "fmt"

// Severity classifies a diagnostic raised while loading a translation unit.
type Severity int

const (
	// SeverityWarning is reported alongside the final output but does not
	// block traversal.
	SeverityWarning Severity = iota
	// SeverityFatal aborts processing of the translation unit; the parse
	// tree is considered unusable.
	SeverityFatal
)

// Diagnostic is a problem encountered while loading a translation unit.
type Diagnostic struct {
	Severity Severity
	File     string
	Line     uint32
	Message  string
}

// String formats the diagnostic with its location.
func (d Diagnostic) String() string {
	sev := "warning"
	if d.Severity == SeverityFatal {
		sev = "fatal"
	}
	if d.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, sev, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.File, sev, d.Message)
}

// ParseError represents a parsing error with location information.
type ParseError struct {
	Message string
	File    string
	Line    uint32
	Column  uint32
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// FileReadError is returned when a file cannot be read.
type FileReadError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileReadError) Unwrap() error {
	return e.Err
}
