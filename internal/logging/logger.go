// Package logging decouples the application from the concrete logging library.
package logging

// Logger is the structured logger used across aforos.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	WithError(err error) Logger
	WithField(key string, value interface{}) Logger
	WithFields(fields ...Field) Logger
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F is shorthand for Field{Key: key, Value: value}.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Common field names.
const (
	FieldFile     = "file"
	FieldRows     = "rows"
	FieldCoerced  = "coerced_cells"
	FieldCategory = "category"
	FieldTarget   = "target"
	FieldSteps    = "steps"
	FieldDuration = "duration"
	FieldAddr     = "addr"
	FieldPath     = "path"
	FieldStatus   = "status"
)

// Nop returns a Logger that discards everything.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field) {}
func (nopLogger) Warn(string, ...Field) {}
func (nopLogger) Error(string, ...Field) {}
func (n nopLogger) WithError(error) Logger { return n }
func (n nopLogger) WithField(string, interface{}) Logger { return n }
func (n nopLogger) WithFields(...Field) Logger { return n }
