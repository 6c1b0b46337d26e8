// FILE: src/pkg/kinlog/handler.go
package kinlog

import (
	"context"
	"log/slog"

	"kinlog/src/internal/core"
	"kinlog/src/internal/event"
	"kinlog/src/internal/metadata"
	"kinlog/src/internal/shipper"
)

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithMinLevel drops records below level. The default comes from the
// shipper's min_level.
func WithMinLevel(level slog.Leveler) HandlerOption {
	return func(h *Handler) { h.minLevel = level }
}

// WithLoggerName sets logger_name for records from this handler
func WithLoggerName(name string) HandlerOption {
	return func(h *Handler) { h.loggerName = name }
}

// WithRegistry reads global defaults from r instead of the process registry
func WithRegistry(r *metadata.Registry) HandlerOption {
	return func(h *Handler) { h.registry = r }
}

// Handler is an slog.Handler that turns records into structured events and
// hands them to a Shipper. Handle never returns shipping errors.
type Handler struct {
	shipper    *shipper.Shipper
	registry   *metadata.Registry
	builder    *event.Builder
	minLevel   slog.Leveler
	loggerName string

	// Attributes from WithAttrs, already flattened under their groups
	attrs  map[string]string
	group  string
	errAtt error
}

func NewHandler(sh *shipper.Shipper, opts ...HandlerOption) *Handler {
	h := &Handler{
		shipper:    sh,
		registry:   metadata.Default(),
		minLevel:   sh.MinLevel().Slog(),
		loggerName: sh.LoggerName(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.builder = event.NewBuilder(sh.AppName(), sh.Environment(), h.registry)
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel.Level()
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	md := make(map[string]string, len(h.attrs)+r.NumAttrs())
	for k, v := range h.attrs {
		md[k] = v
	}
	errVal := h.errAtt
	r.Attrs(func(a slog.Attr) bool {
		if err := addAttr(md, h.group, a); err != nil && errVal == nil {
			errVal = err
		}
		return true
	})

	evt := h.builder.Build(ctx, event.Input{
		Time:       r.Time,
		Level:      core.FromSlog(r.Level),
		LoggerName: h.loggerName,
		Metadata:   md,
		Message:    r.Message,
		Err:        errVal,
		PC:         r.PC,
	})
	h.shipper.Ship(&evt)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := h.clone()
	for _, a := range attrs {
		if err := addAttr(c.attrs, c.group, a); err != nil && c.errAtt == nil {
			c.errAtt = err
		}
	}
	return c
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.group = joinKey(c.group, name)
	return c
}

// Logger returns a K-logger named name writing through this handler
func (h *Handler) Logger(name string) *Logger {
	c := h.clone()
	c.loggerName = name
	return &Logger{handler: c}
}

func (h *Handler) clone() *Handler {
	c := *h
	c.attrs = make(map[string]string, len(h.attrs))
	for k, v := range h.attrs {
		c.attrs[k] = v
	}
	return &c
}

// addAttr stores a top-level attribute. Reserved keys stay top level
// whatever the group so they can be promoted.
func addAttr(md map[string]string, group string, a slog.Attr) error {
	if a.Key == core.KeyEventType || a.Key == core.KeyContext {
		md[a.Key] = a.Value.Resolve().String()
		return nil
	}
	return flatten(md, group, a)
}

// flatten writes a into md under prefix. Groups nest as "group.key". Errors
// are returned; one carried under core.AttrError is not stored.
func flatten(md map[string]string, prefix string, a slog.Attr) error {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return nil
	}

	if a.Key == core.AttrError {
		if err, ok := a.Value.Any().(error); ok {
			return err
		}
		return nil
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		var found error
		sub := joinKey(prefix, a.Key)
		for _, ga := range a.Value.Group() {
			if err := flatten(md, sub, ga); err != nil && found == nil {
				found = err
			}
		}
		return found
	case slog.KindTime:
		md[joinKey(prefix, a.Key)] = metadata.FormatValue(a.Value.Time())
	case slog.KindDuration:
		md[joinKey(prefix, a.Key)] = a.Value.Duration().String()
	case slog.KindAny:
		v := a.Value.Any()
		md[joinKey(prefix, a.Key)] = metadata.FormatValue(v)
		if err, ok := v.(error); ok {
			return err
		}
	default:
		md[joinKey(prefix, a.Key)] = a.Value.String()
	}
	return nil
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}
