// Package logging provides the structured logger shared by the justpaste
// commands and the HTTP server.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel maps a case-insensitive level name to a Level. Unknown names
// return an error and LevelInfo.
func ParseLevel(name string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// F creates a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Logger writes structured entries. Implementations must be safe for
// concurrent use.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, err error, fields ...Field)
	With(fields ...Field) Logger
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Debug(context.Context, string, ...Field)        {}
func (Nop) Info(context.Context, string, ...Field)         {}
func (Nop) Warn(context.Context, string, ...Field)         {}
func (Nop) Error(context.Context, string, error, ...Field) {}
func (n Nop) With(...Field) Logger                         { return n }

// TextLogger renders entries as single lines:
//
//	[2024-01-02T15:04:05Z] [INFO] request done fields=[path=/v1/apply trace_id=42]
type TextLogger struct {
	fields   []Field
	minLevel Level
	out      *log.Logger
	now      func() time.Time
}

// New creates a TextLogger writing to w. A nil writer discards output.
func New(minLevel Level, w io.Writer) *TextLogger {
	if w == nil {
		w = io.Discard
	}
	if _, ok := levelRank[minLevel]; !ok {
		minLevel = LevelInfo
	}
	return &TextLogger{
		minLevel: minLevel,
		out:      log.New(w, "", 0),
		now:      time.Now,
	}
}

func (l *TextLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, LevelDebug, msg, nil, fields)
}

func (l *TextLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, LevelInfo, msg, nil, fields)
}

func (l *TextLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.write(ctx, LevelWarn, msg, nil, fields)
}

func (l *TextLogger) Error(ctx context.Context, msg string, err error, fields ...Field) {
	l.write(ctx, LevelError, msg, err, fields)
}

// With returns a logger that adds fields to every entry.
func (l *TextLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &TextLogger{
		fields:   merged,
		minLevel: l.minLevel,
		out:      l.out,
		now:      l.now,
	}
}

func (l *TextLogger) write(ctx context.Context, level Level, msg string, err error, fields []Field) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	all := make([]Field, 0, len(l.fields)+len(fields)+1)
	all = append(all, l.fields...)
	all = append(all, fields...)
	if id := TraceID(ctx); id != "" {
		all = append(all, F("trace_id", id))
	}

	parts := []string{
		fmt.Sprintf("[%s]", l.now().UTC().Format(time.RFC3339)),
		fmt.Sprintf("[%s]", level),
	}
	if err != nil {
		parts = append(parts, fmt.Sprintf("[error=%q]", err.Error()))
	}
	parts = append(parts, msg)
	if len(all) > 0 {
		kv := make([]string, 0, len(all))
		for _, f := range all {
			kv = append(kv, fmt.Sprintf("%s=%v", f.Key, f.Value))
		}
		parts = append(parts, fmt.Sprintf("fields=[%s]", strings.Join(kv, " ")))
	}
	l.out.Println(strings.Join(parts, " "))
}

type traceIDKey struct{}

// WithTraceID stores a trace id in ctx so every entry logged with it can be
// correlated.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// TraceID returns the trace id stored in ctx, if any.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

var traceSeq atomic.Uint64

// NewTraceID returns a process-unique id for request correlation.
func NewTraceID() string {
	return fmt.Sprintf("%x-%d", time.Now().UnixNano(), traceSeq.Add(1))
}
