// Package logging emits line-delimited JSON records to stdout and a rotating
// log file. Every record carries ts, level and msg first, then the bound and
// per-call fields in sorted order so log lines diff cleanly.
package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"pongarena/server/internal/config"
)

type contextKey struct{}

var (
	loggerContextKey contextKey

	globalMu     sync.RWMutex
	globalLogger = newNopLogger()
)

// Level orders log verbosity.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = map[Level]string{
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
	FatalLevel: "fatal",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "info"
}

func parseLevel(raw string) (Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return InfoLevel, nil
	}
	if normalized == "warning" {
		normalized = "warn"
	}
	for level, name := range levelNames {
		if name == normalized {
			return level, nil
		}
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", raw)
}

// Field is one structured attribute on a log record.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

func Uint64(key string, value uint64) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

// Duration renders the value in Go duration syntax rather than nanoseconds.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Error attaches err under the conventional "error" key.
func Error(err error) Field { return Field{Key: "error", Value: err} }

// flushWriter is a writer whose buffered output can be forced to disk.
type flushWriter interface {
	io.Writer
	Sync() error
}

// Logger writes JSON records at or above its configured level.
type Logger struct {
	mu    sync.Mutex
	level Level
	out   flushWriter
	bound []Field
}

// New builds the process logger: rotating file sink mirrored to stdout.
func New(cfg config.LoggingConfig) (*Logger, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("logging path must be specified")
	}
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	sink, err := newRotateWriter(cfg)
	if err != nil {
		return nil, err
	}
	logger := &Logger{
		level: level,
		out:   teeWriter{sink, os.Stdout},
		bound: []Field{String("service", "pongarena")},
	}
	ReplaceGlobals(logger)
	return logger, nil
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() *Logger { return newNopLogger() }

func newNopLogger() *Logger {
	return &Logger{level: DebugLevel, out: nopWriter{}}
}

// ReplaceGlobals installs logger as the process-wide fallback.
func ReplaceGlobals(logger *Logger) {
	if logger == nil {
		return
	}
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// L returns the process-wide logger.
func L() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// With returns a child logger carrying the extra fields on every record.
func (l *Logger) With(fields ...Field) *Logger {
	if l == nil {
		return L().With(fields...)
	}
	child := &Logger{level: l.level, out: l.out}
	child.bound = append(append(child.bound, l.bound...), fields...)
	return child
}

// Sync flushes buffered output.
func (l *Logger) Sync() error {
	if l == nil || l.out == nil {
		return nil
	}
	return l.out.Sync()
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(DebugLevel, msg, fields) }

func (l *Logger) Info(msg string, fields ...Field) { l.emit(InfoLevel, msg, fields) }

func (l *Logger) Warn(msg string, fields ...Field) { l.emit(WarnLevel, msg, fields) }

func (l *Logger) Error(msg string, fields ...Field) { l.emit(ErrorLevel, msg, fields) }

// Fatal logs the record, flushes, and terminates the process.
func (l *Logger) Fatal(msg string, fields ...Field) { l.emit(FatalLevel, msg, fields) }

func (l *Logger) emit(level Level, msg string, fields []Field) {
	if l == nil {
		L().emit(level, msg, fields)
		return
	}
	if level < l.level {
		return
	}

	attrs := make(map[string]json.RawMessage, len(l.bound)+len(fields))
	for _, field := range append(append([]Field(nil), l.bound...), fields...) {
		value := field.Value
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			encoded, _ = json.Marshal(fmt.Sprint(value))
		}
		attrs[field.Key] = encoded
	}
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var line bytes.Buffer
	line.WriteString(`{"ts":`)
	stamp, _ := json.Marshal(time.Now().UTC().Format(time.RFC3339Nano))
	line.Write(stamp)
	line.WriteString(`,"level":"`)
	line.WriteString(level.String())
	line.WriteString(`","msg":`)
	encodedMsg, _ := json.Marshal(msg)
	line.Write(encodedMsg)
	for _, key := range keys {
		line.WriteByte(',')
		encodedKey, _ := json.Marshal(key)
		line.Write(encodedKey)
		line.WriteByte(':')
		line.Write(attrs[key])
	}
	line.WriteString("}\n")

	l.mu.Lock()
	_, _ = l.out.Write(line.Bytes())
	l.mu.Unlock()

	if level == FatalLevel {
		_ = l.out.Sync()
		os.Exit(1)
	}
}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// LoggerFromContext returns the context logger, or the global fallback.
func LoggerFromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return L()
	}
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok && logger != nil {
		return logger
	}
	return L()
}

// teeWriter fans writes out to every sink, failing on the first error.
type teeWriter []flushWriter

func (t teeWriter) Write(p []byte) (int, error) {
	for _, w := range t {
		if _, err := w.Write(p); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (t teeWriter) Sync() error {
	var first error
	for _, w := range t {
		if err := w.Sync(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func (nopWriter) Sync() error { return nil }
