// Package logging provides a logging abstraction that decouples the
// application from the underlying logging framework.
package logging

// Logger is the structured logging interface used throughout the import
// pipeline.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithError returns a new logger with an error field attached.
	WithError(err error) Logger

	// WithField returns a new logger with a single field attached.
	WithField(key string, value interface{}) Logger

	// WithFields returns a new logger with multiple fields attached.
	WithFields(fields ...Field) Logger
}

// Field is a key-value pair attached to a structured log message.
type Field struct {
	Key   string
	Value interface{}
}

// Standardized field names so log output stays consistent and filterable.
const (
	FieldBatch       = "batch_id"
	FieldBankAccount = "bank_account_id"
	FieldPharmacy    = "pharmacy_id"
	FieldFile        = "file_name"
	FieldRow         = "row"
	FieldRule        = "rule_id"
	FieldTransaction = "transaction_id"
	FieldSuggestion  = "suggestion_id"
	FieldDialect     = "dialect"
	FieldCount       = "count"
	FieldStatus      = "status"
	FieldReason      = "reason"
)
