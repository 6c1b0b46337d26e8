// FILE: src/internal/event/event_test.go
package event

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"kinlog/src/internal/core"
	"kinlog/src/internal/metadata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder() *Builder {
	b := NewBuilder("myApp", "test", metadata.NewRegistry())
	b.Now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 123_456_789, time.UTC) }
	return b
}

func callerPC() uintptr {
	var pcs [1]uintptr
	runtime.Callers(2, pcs[:])
	return pcs[0]
}

type stackErr struct {
	pcs []uintptr
}

func (e *stackErr) Error() string      { return "stacked" }
func (e *stackErr) Callers() []uintptr { return e.pcs }

func TestFormat(t *testing.T) {
	testCases := []struct {
		name     string
		format   string
		args     []any
		expected string
		hasErr   bool
	}{
		{name: "Single", format: "hello {}", args: []any{"world"}, expected: "hello world"},
		{name: "Multiple", format: "{} + {} = {}", args: []any{1, 2, 3}, expected: "1 + 2 = 3"},
		{name: "MissingArgs", format: "a {} b {}", args: []any{"x"}, expected: "a x b {}"},
		{name: "SurplusArgs", format: "only {}", args: []any{"x", "y"}, expected: "only x"},
		{name: "Escaped", format: `literal \{} then {}`, args: []any{"v"}, expected: "literal {} then v"},
		{name: "Nil", format: "value={}", args: []any{nil}, expected: "value=null"},
		{name: "NoArgs", format: "plain {}", expected: "plain {}"},
		{name: "TrailingError", format: "failed {}", args: []any{"op", errors.New("boom")}, expected: "failed op", hasErr: true},
		{name: "ErrorConsumed", format: "failed: {}", args: []any{errors.New("boom")}, expected: "failed: boom"},
		{name: "EscapedThenTrailingError", format: `a \{} b`, args: []any{errors.New("boom")}, expected: "a {} b", hasErr: true},
		{name: "EscapedPlaceholderNotCounted", format: `\{} {}`, args: []any{"v", errors.New("boom")}, expected: "{} v", hasErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Format(tc.format, tc.args...)
			assert.Equal(t, tc.expected, msg)
			assert.Equal(t, tc.hasErr, err != nil)
		})
	}
}

func TestBuilder_MetadataPrecedence(t *testing.T) {
	b := newTestBuilder()
	b.Registry.Add("server", "X")
	b.Registry.Add("zone", "global")

	ctx, bind := metadata.Bind(context.Background(), "server", "Y")
	bind.And("zone", "scoped")

	evt := b.Build(ctx, Input{
		Level:    core.LevelInfo,
		Metadata: map[string]string{"zone": "call"},
		Message:  "m",
	})
	assert.Equal(t, "Y", evt.Metadata["server"], "scoped binding beats global")
	assert.Equal(t, "call", evt.Metadata["zone"], "call-site beats scoped")

	require.NoError(t, bind.Close())
	evt = b.Build(ctx, Input{Level: core.LevelInfo})
	assert.Equal(t, "X", evt.Metadata["server"], "global visible after scope closes")
	assert.Equal(t, "global", evt.Metadata["zone"])
}

func TestBuilder_ReservedKeyPromotion(t *testing.T) {
	b := newTestBuilder()

	t.Run("FromOneShotMap", func(t *testing.T) {
		evt := b.Build(context.Background(), Input{
			Level: core.LevelInfo,
			Metadata: map[string]string{
				core.KeyEventType: "signup",
				core.KeyContext:   "web",
				"user":            "u1",
			},
		})
		assert.Equal(t, "signup", evt.EventType)
		assert.Equal(t, "web", evt.Context)
		assert.Equal(t, map[string]string{"user": "u1"}, evt.Metadata)
	})

	t.Run("ExplicitWins", func(t *testing.T) {
		evt := b.Build(context.Background(), Input{
			Level:     core.LevelInfo,
			EventType: "explicit",
			Metadata:  map[string]string{core.KeyEventType: "shadow"},
		})
		assert.Equal(t, "explicit", evt.EventType)
		assert.NotContains(t, evt.Metadata, core.KeyEventType)
	})

	t.Run("FromBinding", func(t *testing.T) {
		ctx, bind := metadata.Bind(context.Background(), core.KeyContext, "batch")
		defer bind.Close()
		evt := b.Build(ctx, Input{Level: core.LevelInfo})
		assert.Equal(t, "batch", evt.Context)
		assert.NotContains(t, evt.Metadata, core.KeyContext)
	})

	t.Run("BlankIsAbsent", func(t *testing.T) {
		evt := b.Build(context.Background(), Input{
			Level:     core.LevelInfo,
			EventType: "   ",
			Metadata:  map[string]string{core.KeyContext: ""},
		})
		assert.Empty(t, evt.EventType)
		assert.Empty(t, evt.Context)
		assert.Empty(t, evt.Metadata)
	})
}

func TestBuilder_Stacktrace(t *testing.T) {
	b := newTestBuilder()
	pc := callerPC()

	for _, level := range []core.Level{core.LevelTrace, core.LevelDebug, core.LevelInfo, core.LevelWarn} {
		evt := b.Build(context.Background(), Input{Level: level, PC: pc, Err: errors.New("x")})
		assert.Empty(t, evt.Stacktrace, level.String())
		assert.NotContains(t, evt.Metadata, core.KeyException, level.String())
	}

	t.Run("ErrorWithCallerFrames", func(t *testing.T) {
		evt := b.Build(context.Background(), Input{Level: core.LevelError, PC: pc})
		assert.NotEmpty(t, evt.Stacktrace)
		assert.Contains(t, evt.Stacktrace, "TestBuilder_Stacktrace")
		assert.NotContains(t, evt.Metadata, core.KeyException)
	})

	t.Run("ErrorWithException", func(t *testing.T) {
		evt := b.Build(context.Background(), Input{Level: core.LevelError, PC: pc, Err: errors.New("boom")})
		assert.Equal(t, "*errors.errorString", evt.Metadata[core.KeyException])
		assert.Equal(t, "boom", evt.Metadata[core.KeyExceptionMessage])
		assert.NotEmpty(t, evt.Stacktrace)
	})

	t.Run("ErrorCarryingStack", func(t *testing.T) {
		err := &stackErr{pcs: Capture(0)}
		evt := b.Build(context.Background(), Input{Level: core.LevelError, Err: err})
		assert.Contains(t, evt.Stacktrace, "TestBuilder_Stacktrace")
		assert.Equal(t, "*event.stackErr", evt.Metadata[core.KeyException])
	})

	t.Run("TypedNilError", func(t *testing.T) {
		var err *stackErr
		require.NotPanics(t, func() {
			evt := b.Build(context.Background(), Input{Level: core.LevelError, PC: pc, Err: err})
			assert.Equal(t, "*event.stackErr", evt.Metadata[core.KeyException])
			assert.Equal(t, "", evt.Metadata[core.KeyExceptionMessage])
			assert.Contains(t, evt.Stacktrace, "TestBuilder_Stacktrace")
		})
	})

	t.Run("ErrorWithoutFrames", func(t *testing.T) {
		evt := b.Build(context.Background(), Input{Level: core.LevelError})
		assert.Empty(t, evt.Stacktrace)
	})
}

func TestBuilder_Identity(t *testing.T) {
	b := newTestBuilder()
	evt := b.Build(context.Background(), Input{Level: core.LevelDebug, Message: "hello"})

	assert.Equal(t, "myApp", evt.AppName)
	assert.Equal(t, "test", evt.Environment)
	assert.Equal(t, core.DefaultLoggerName, evt.LoggerName)
	assert.Equal(t, "hello", evt.Description)
	assert.Equal(t, 123_000_000, evt.Timestamp.Nanosecond(), "millisecond precision")
	assert.NotNil(t, evt.Metadata)
}
