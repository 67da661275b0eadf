package logger

import (
	"context"
	"log/slog"
)

// Logger is the structured logger handed to the core packages.
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(msg string, fields ...Fields)
}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

// New wraps l. A nil l resolves to the global logger at call time.
func New(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// Default returns a Logger backed by the global CLI logger.
func Default() *SlogLogger {
	return &SlogLogger{}
}

// With returns a copy of the logger that always carries the given fields.
func (s *SlogLogger) With(fields Fields) *SlogLogger {
	return &SlogLogger{l: s.base().With(mergeFields(fields)...)}
}

// Component tags every record with the emitting component.
func (s *SlogLogger) Component(name string) *SlogLogger {
	return s.With(Fields{"component": name})
}

func (s *SlogLogger) base() *slog.Logger {
	if s.l == nil {
		return GetLogger()
	}
	return s.l
}

func (s *SlogLogger) log(level slog.Level, msg string, fields []Fields) {
	s.base().Log(context.Background(), level, msg, mergeFields(fields...)...)
}

func (s *SlogLogger) Debug(msg string, fields ...Fields) { s.log(slog.LevelDebug, msg, fields) }
func (s *SlogLogger) Info(msg string, fields ...Fields)  { s.log(slog.LevelInfo, msg, fields) }
func (s *SlogLogger) Warn(msg string, fields ...Fields)  { s.log(slog.LevelWarn, msg, fields) }
func (s *SlogLogger) Error(msg string, fields ...Fields) { s.log(slog.LevelError, msg, fields) }

type nopLogger struct{}

// Nop discards everything.
func Nop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...Fields) {}
func (nopLogger) Info(string, ...Fields)  {}
func (nopLogger) Warn(string, ...Fields)  {}
func (nopLogger) Error(string, ...Fields) {}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
