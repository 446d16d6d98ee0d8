package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	cblog "github.com/charmbracelet/log"

	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
)

// Options configures the charmbracelet/log adapter.
type Options struct {
	Writer       io.Writer
	Level        string
	Format       string
	TimeFormat   string
	ReportCaller bool
	Prefix       string
	Layer        string
	Component    string
	Fields       map[string]interface{}
}

// Logger implements ports.Logger on top of charmbracelet/log. Keys passed to
// With replace earlier values of the same key instead of repeating them.
type Logger struct {
	base   *cblog.Logger
	fields fieldSet
}

var formatters = map[string]cblog.Formatter{
	"":       cblog.TextFormatter,
	"text":   cblog.TextFormatter,
	"json":   cblog.JSONFormatter,
	"logfmt": cblog.LogfmtFormatter,
}

// New creates a Logger from opts. Layer defaults to "infrastructure".
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := cblog.InfoLevel
	if opts.Level != "" {
		parsed, err := cblog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	formatter, ok := formatters[strings.ToLower(strings.TrimSpace(opts.Format))]
	if !ok {
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	base := cblog.NewWithOptions(writer, cblog.Options{
		Level:           level,
		TimeFormat:      opts.TimeFormat,
		ReportTimestamp: opts.TimeFormat != "",
		ReportCaller:    opts.ReportCaller,
		Formatter:       formatter,
		Prefix:          opts.Prefix,
	})

	layer := opts.Layer
	if layer == "" {
		layer = "infrastructure"
	}

	var fields fieldSet
	fields = fields.set("layer", layer)
	if opts.Component != "" {
		fields = fields.set("component", opts.Component)
	}
	keys := make([]string, 0, len(opts.Fields))
	for k := range opts.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = fields.set(k, opts.Fields[k])
	}

	return &Logger{base: base, fields: fields}, nil
}

// Debug emits a debug log entry.
func (l *Logger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, cblog.DebugLevel, msg, fields)
}

// Info emits an info log entry.
func (l *Logger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, cblog.InfoLevel, msg, fields)
}

// Warn emits a warning log entry.
func (l *Logger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, cblog.WarnLevel, msg, fields)
}

// Error emits an error log entry.
func (l *Logger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, cblog.ErrorLevel, msg, fields)
}

// With derives a logger that always writes fields.
func (l *Logger) With(fields ...interface{}) ports.Logger {
	if l == nil {
		return &NoOpLogger{}
	}
	return &Logger{base: l.base, fields: l.fields.merge(fields)}
}

func (l *Logger) emit(ctx context.Context, level cblog.Level, msg string, fields []interface{}) {
	if l == nil || l.base == nil || l.base.GetLevel() > level {
		return
	}
	set := l.fields.merge(fields)
	if id := ports.GetCorrelationID(ctx); id != "" {
		set = set.set("correlation_id", id)
	}
	l.base.Log(level, msg, set.pairs()...)
}

type field struct {
	key   string
	value interface{}
}

// fieldSet is an ordered key/value list. It is never mutated in place, so
// derived loggers can share the backing array of their parent.
type fieldSet []field

func (s fieldSet) set(key string, value interface{}) fieldSet {
	if key == "" {
		return s
	}
	if err, ok := value.(error); ok && err != nil {
		value = err.Error()
	}
	for i, f := range s {
		if f.key == key {
			next := make(fieldSet, len(s))
			copy(next, s)
			next[i].value = value
			return next
		}
	}
	next := make(fieldSet, len(s), len(s)+1)
	copy(next, s)
	return append(next, field{key: key, value: value})
}

func (s fieldSet) merge(kv []interface{}) fieldSet {
	out := s
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = out.set(key, kv[i+1])
	}
	return out
}

func (s fieldSet) pairs() []interface{} {
	out := make([]interface{}, 0, len(s)*2)
	for _, f := range s {
		out = append(out, f.key, f.value)
	}
	return out
}

var _ ports.Logger = (*Logger)(nil)
