package testutil

import (
	"sync"

	"github.com/glorpus-work/deskshell/internal/logger"
)

// Entry is one recorded log call.
type Entry struct {
	Level  string
	Msg    string
	Fields logger.Fields
}

// RecordingLogger keeps every log call for assertions.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []Entry
}

var _ logger.Logger = (*RecordingLogger)(nil)

func (r *RecordingLogger) record(level, msg string, fields []logger.Fields) {
	merged := logger.Fields{}
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Fields: merged})
}

func (r *RecordingLogger) Debug(msg string, fields ...logger.Fields) { r.record("debug", msg, fields) }
func (r *RecordingLogger) Info(msg string, fields ...logger.Fields)  { r.record("info", msg, fields) }
func (r *RecordingLogger) Warn(msg string, fields ...logger.Fields)  { r.record("warn", msg, fields) }
func (r *RecordingLogger) Error(msg string, fields ...logger.Fields) { r.record("error", msg, fields) }

// Entries returns a copy of the recorded calls.
func (r *RecordingLogger) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Has reports whether a call with level and msg was recorded.
func (r *RecordingLogger) Has(level, msg string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && e.Msg == msg {
			return true
		}
	}
	return false
}
