// FILE: src/pkg/kinlog/logger.go
package kinlog

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"kinlog/src/internal/core"
	"kinlog/src/internal/event"
)

// LevelTrace sits below slog.LevelDebug
const LevelTrace = core.SlogLevelTrace

// Fields is call-site metadata. Values are rendered as strings: times with
// millisecond precision and offset, nil as an empty string.
type Fields map[string]any

// Call carries the structured parts of one log call
type Call struct {
	EventType string
	Context   string
	Metadata  Fields
	Err       error
}

// Logger emits structured events. Methods never fail or panic because of
// shipping problems.
type Logger struct {
	handler slog.Handler
}

// New wraps any slog.Handler. A *Handler is renamed to name; other
// handlers receive name as a logger_name attribute.
func New(h slog.Handler, name string) *Logger {
	if kh, ok := h.(*Handler); ok {
		return kh.Logger(name)
	}
	if name != "" {
		h = h.WithAttrs([]slog.Attr{slog.String(core.AttrLoggerName, name)})
	}
	return &Logger{handler: h}
}

func (l *Logger) KTrace(ctx context.Context, eventType, format string, args ...any) {
	l.log(ctx, LevelTrace, Call{EventType: eventType}, format, args)
}

func (l *Logger) KDebug(ctx context.Context, eventType, format string, args ...any) {
	l.log(ctx, slog.LevelDebug, Call{EventType: eventType}, format, args)
}

func (l *Logger) KInfo(ctx context.Context, eventType, format string, args ...any) {
	l.log(ctx, slog.LevelInfo, Call{EventType: eventType}, format, args)
}

func (l *Logger) KWarn(ctx context.Context, eventType, format string, args ...any) {
	l.log(ctx, slog.LevelWarn, Call{EventType: eventType}, format, args)
}

func (l *Logger) KError(ctx context.Context, eventType, format string, args ...any) {
	l.log(ctx, slog.LevelError, Call{EventType: eventType}, format, args)
}

// KErrorErr logs at ERROR with err as the exception
func (l *Logger) KErrorErr(ctx context.Context, eventType, format string, err error, args ...any) {
	l.log(ctx, slog.LevelError, Call{EventType: eventType, Err: err}, format, args)
}

// Log is the general form: any level, context string and one-shot metadata
func (l *Logger) Log(ctx context.Context, level slog.Level, call Call, format string, args ...any) {
	l.log(ctx, level, call, format, args)
}

// With returns a logger that adds fields to every event
func (l *Logger) With(fields Fields) *Logger {
	if len(fields) == 0 {
		return l
	}
	return &Logger{handler: l.handler.WithAttrs(fieldAttrs(fields))}
}

// Slog exposes the logger as a standard *slog.Logger
func (l *Logger) Slog() *slog.Logger {
	return slog.New(l.handler)
}

// Timer starts an EventTimer whose Stop logs an INFO event with took_millis
func (l *Logger) Timer(ctx context.Context, eventType, eventContext string) *EventTimer {
	return &EventTimer{
		logger:    l,
		ctx:       ctx,
		eventType: eventType,
		context:   eventContext,
		start:     time.Now(),
	}
}

func (l *Logger) log(ctx context.Context, level slog.Level, call Call, format string, args []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}

	msg, trailing := event.Format(format, args...)
	if call.Err == nil {
		call.Err = trailing
	}

	// Skip runtime.Callers, log and the exported wrapper
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.AddAttrs(fieldAttrs(call.Metadata)...)
	if call.EventType != "" {
		r.AddAttrs(slog.String(core.KeyEventType, call.EventType))
	}
	if call.Context != "" {
		r.AddAttrs(slog.String(core.KeyContext, call.Context))
	}
	if call.Err != nil {
		r.AddAttrs(slog.Any(core.AttrError, call.Err))
	}

	// Handler errors are dropped; logging never fails the caller
	_ = l.handler.Handle(ctx, r)
}

// fieldAttrs converts fields in key order so events are reproducible
func fieldAttrs(fields Fields) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	return attrs
}
