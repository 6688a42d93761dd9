package gen

import (
	"errors"
	"fmt"
)

// ErrNothingGenerated is returned when tolerate mode is set and not one
// input header could be processed.
var ErrNothingGenerated = errors.New("no input headers could be processed")

// NotFoundError is returned when a required input header does not exist.
type NotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("input header not found: %s", e.Path)
}

// ParseFailedError is returned when the front end reports a fatal
// diagnostic for a header.
type ParseFailedError struct {
	File    string
	Message string
}

// Error implements the error interface.
func (e *ParseFailedError) Error() string {
	return fmt.Sprintf("parsing %s failed: %s", e.File, e.Message)
}
