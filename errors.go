package svcrelay

import (
	"errors"
	"fmt"
)

// Common errors returned by svcrelay operations
var (
	// ErrSpawn indicates the log follower process could not be started
	ErrSpawn = errors.New("failed to spawn log follower")

	// ErrNoConfigDir indicates the user config directory could not be resolved
	ErrNoConfigDir = errors.New("cannot resolve user config dir")

	// ErrInvalidUnitName indicates a name that cannot denote a unit in the
	// unit directory
	ErrInvalidUnitName = errors.New("invalid unit name")
)

// OpError represents an error from a control-plane operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Unit is the normalized unit name the operation targeted, if any
	Unit string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("%s: %v", e.Op.String(), e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op.String(), e.Unit, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// ToolError is a failure reported by an external tool that did run: it
// exited unsuccessfully and usually printed a diagnostic on stderr.
type ToolError struct {
	// Tool is the binary that reported the failure
	Tool string
	// Stderr is the trimmed diagnostic output of the tool
	Stderr string
	// Err is the underlying exit error
	Err error
}

// Error returns the tool's own diagnostic text when it printed one
func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ToolError) Unwrap() error {
	return e.Err
}

// MultiError aggregates multiple errors from bulk operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Unwrap exposes the accumulated errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
