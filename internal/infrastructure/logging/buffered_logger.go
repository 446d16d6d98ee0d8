package logging

import (
	"context"

	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
)

// BufferedLogger holds entries logged before the real logger exists, while
// the home directory and config file are still being resolved. Fields follow
// the same rules as Logger: later keys replace earlier ones and errors are
// stored as their message.
type BufferedLogger struct {
	buffer *EventBuffer
	fields fieldSet
}

// NewBufferedLogger returns a logger that stores entries in buffer until it
// is flushed.
func NewBufferedLogger(buffer *EventBuffer) *BufferedLogger {
	return &BufferedLogger{buffer: buffer}
}

// Debug buffers a debug entry.
func (l *BufferedLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelDebug, msg, fields)
}

// Info buffers an info entry.
func (l *BufferedLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelInfo, msg, fields)
}

// Warn buffers a warning.
func (l *BufferedLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelWarn, msg, fields)
}

// Error buffers an error entry.
func (l *BufferedLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.log(ctx, levelError, msg, fields)
}

// With returns a logger sharing the buffer with fields attached.
func (l *BufferedLogger) With(fields ...interface{}) ports.Logger {
	return &BufferedLogger{buffer: l.buffer, fields: l.fields.merge(fields)}
}

func (l *BufferedLogger) log(ctx context.Context, level logLevel, msg string, kv []interface{}) {
	if l == nil || l.buffer == nil {
		return
	}
	l.buffer.add(bufferedEntry{
		ctx:    ctx,
		level:  level,
		msg:    msg,
		fields: l.fields.merge(kv).pairs(),
	})
}

var _ ports.Logger = (*BufferedLogger)(nil)
