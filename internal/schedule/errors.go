package schedule

import "fmt"

// ValidationError identifies a single bad job entry. Any ValidationError
// fails the entire load; the file is never partially applied.
type ValidationError struct {
	// List is the YAML list the entry came from ("oneTimeJobs" or "recurringJobs").
	List  string
	Index int
	Field string
	// Reason is a short human-readable explanation suitable for surfacing
	// back to whoever edited the file.
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s[%d]: %s: %s", e.List, e.Index, e.Field, e.Reason)
}

// ParseError wraps a structurally-invalid YAML file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
