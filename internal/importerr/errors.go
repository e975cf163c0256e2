// Package importerr defines the error types of the import pipeline.
//
// Row-scoped failures are accumulated and returned alongside successes;
// batch-scoped failures abort before any row is processed. Duplicate verdicts
// are control-flow values in the dedup package, never errors.
package importerr

import "fmt"

// ParseError is a row-scoped, non-fatal parsing failure. It carries the row
// number and the raw row data so the caller can surface it for review without
// aborting the batch.
type ParseError struct {
	RowNumber int
	Message   string
	RawRow    []string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: %s", e.RowNumber, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DialectError is batch-fatal: the file cannot be mapped to any known or
// generic dialect, so no rows are processed at all.
type DialectError struct {
	Dialect string
	Reason  string
}

func (e *DialectError) Error() string {
	return fmt.Sprintf("dialect %q: %s", e.Dialect, e.Reason)
}

// ValidationError is raised at rule authoring time, never during matching.
type ValidationError struct {
	Rule   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rule %q: %s", e.Rule, e.Reason)
}

// CollaboratorTimeoutError marks a persistence or AI-provider call that
// exceeded its budget. It is surfaced per affected operation without
// aborting the rest of the batch.
type CollaboratorTimeoutError struct {
	Collaborator string
	Operation    string
	Err          error
}

func (e *CollaboratorTimeoutError) Error() string {
	return fmt.Sprintf("%s: %s timed out: %v", e.Collaborator, e.Operation, e.Err)
}

func (e *CollaboratorTimeoutError) Unwrap() error {
	return e.Err
}
