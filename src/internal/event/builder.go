// FILE: src/internal/event/builder.go
package event

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"kinlog/src/internal/core"
	"kinlog/src/internal/metadata"
)

// Input is one log call as seen by the builder
type Input struct {
	Time       time.Time
	Level      core.Level
	LoggerName string
	EventType  string
	Context    string
	Metadata   map[string]string // call-site one-shot metadata
	Message    string            // already formatted
	Err        error
	PC         uintptr // caller frame, 0 when unknown
}

// Builder turns log calls into structured events. It performs no I/O.
type Builder struct {
	AppName     string
	Environment string
	Registry    *metadata.Registry
	Now         func() time.Time
}

// NewBuilder creates a builder reading defaults from registry
func NewBuilder(appName, environment string, registry *metadata.Registry) *Builder {
	return &Builder{
		AppName:     appName,
		Environment: environment,
		Registry:    registry,
		Now:         time.Now,
	}
}

// Build resolves metadata as registry, then the binding scope carried by
// ctx, then the call-site map, later layers winning key by key
func (b *Builder) Build(ctx context.Context, in Input) core.StructuredEvent {
	md := make(map[string]string)
	if b.Registry != nil {
		maps.Copy(md, b.Registry.Snapshot())
	}
	maps.Copy(md, metadata.Resolve(ctx))
	maps.Copy(md, in.Metadata)

	evt := core.StructuredEvent{
		AppName:     b.AppName,
		Environment: b.Environment,
		Level:       in.Level,
		LoggerName:  in.LoggerName,
		EventType:   promote(md, core.KeyEventType, in.EventType),
		Context:     promote(md, core.KeyContext, in.Context),
		Description: in.Message,
		Metadata:    md,
	}
	if evt.LoggerName == "" {
		evt.LoggerName = core.DefaultLoggerName
	}

	if in.Level.AtLeast(core.LevelError) {
		if in.Err != nil {
			md[core.KeyException] = fmt.Sprintf("%T", in.Err)
			md[core.KeyExceptionMessage] = metadata.FormatValue(in.Err)
		}
		evt.Stacktrace = renderStack(in.Err, in.PC)
	}

	ts := in.Time
	if ts.IsZero() {
		ts = b.now()
	}
	evt.Timestamp = ts.Truncate(time.Millisecond)

	return evt
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// promote returns the top-level value for a reserved key and removes the key
// from md. An explicit non-blank value wins over a metadata copy.
func promote(md map[string]string, key, explicit string) string {
	fromMetadata := md[key]
	delete(md, key)
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	if strings.TrimSpace(fromMetadata) != "" {
		return fromMetadata
	}
	return ""
}
