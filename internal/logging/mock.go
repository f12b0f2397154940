package logging

import "sync"

// MockLogger records entries for assertions in tests. Derived loggers share
// the parent's entry list.
type MockLogger struct {
	mu      *sync.Mutex
	entries *[]LogEntry
	err     error
	fields  []Field
}

// LogEntry is one captured log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  []Field
	Error   error
}

// NewMockLogger returns an empty MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{mu: &sync.Mutex{}, entries: &[]LogEntry{}}
}

func (m *MockLogger) log(level, msg string, fields []Field) {
	all := make([]Field, 0, len(m.fields)+len(fields))
	all = append(all, m.fields...)
	all = append(all, fields...)

	m.mu.Lock()
	defer m.mu.Unlock()
	*m.entries = append(*m.entries, LogEntry{Level: level, Message: msg, Fields: all, Error: m.err})
}

func (m *MockLogger) Debug(msg string, fields ...Field) { m.log("DEBUG", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...Field)  { m.log("INFO", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...Field)  { m.log("WARN", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...Field) { m.log("ERROR", msg, fields) }

func (m *MockLogger) WithError(err error) Logger {
	return &MockLogger{mu: m.mu, entries: m.entries, err: err, fields: m.fields}
}

func (m *MockLogger) WithField(key string, value interface{}) Logger {
	return m.WithFields(Field{Key: key, Value: value})
}

func (m *MockLogger) WithFields(fields ...Field) Logger {
	merged := append(append([]Field{}, m.fields...), fields...)
	return &MockLogger{mu: m.mu, entries: m.entries, err: m.err, fields: merged}
}

// Entries returns a copy of everything logged so far.
func (m *MockLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogEntry, len(*m.entries))
	copy(out, *m.entries)
	return out
}

// HasEntry reports whether a message was logged at level.
func (m *MockLogger) HasEntry(level, msg string) bool {
	for _, e := range m.Entries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}
