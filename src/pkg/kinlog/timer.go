// FILE: src/pkg/kinlog/timer.go
package kinlog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"kinlog/src/internal/core"
)

// EventTimer measures one operation. Only the first Stop or Close emits.
type EventTimer struct {
	logger    *Logger
	ctx       context.Context
	eventType string
	context   string
	start     time.Time
	stopped   atomic.Bool
}

// Stop logs the elapsed milliseconds under took_millis
func (t *EventTimer) Stop() {
	if !t.stopped.CompareAndSwap(false, true) {
		return
	}
	took := time.Since(t.start).Milliseconds()
	t.logger.Log(t.ctx, slog.LevelInfo, Call{
		EventType: t.eventType,
		Context:   t.context,
		Metadata:  Fields{core.KeyTookMillis: took},
	}, "")
}

// Close is Stop for use with defer and io.Closer
func (t *EventTimer) Close() error {
	t.Stop()
	return nil
}

// Stopped reports whether the timer has already emitted
func (t *EventTimer) Stopped() bool {
	return t.stopped.Load()
}
