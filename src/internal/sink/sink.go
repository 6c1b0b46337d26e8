// FILE: src/internal/sink/sink.go
package sink

import (
	"context"
	"fmt"
	"time"

	"kinlog/src/internal/config"
	"kinlog/src/internal/core"
	"kinlog/src/internal/format"
	"kinlog/src/internal/receiver"

	"github.com/lixenwraith/log"
)

const defaultBufferSize = 1000

// Sink is an output destination for records accepted by the receivers
type Sink interface {
	// Input returns the channel for sending records to this sink
	Input() chan<- receiver.Record

	// Start begins processing records
	Start(ctx context.Context) error

	// Stop writes what is queued and shuts the sink down. The caller must
	// not send on Input afterwards.
	Stop()

	GetStats() Stats
}

// Stats contains statistics about a sink
type Stats struct {
	Type           string
	TotalProcessed uint64
	TotalInvalid   uint64
	StartTime      time.Time
	LastProcessed  time.Time
	Details        map[string]any
}

// New creates the sink selected by cfg
func New(cfg *config.OutputConfig, formatter format.Formatter, logger *log.Logger) (Sink, error) {
	if cfg == nil {
		cfg = &config.OutputConfig{Type: "console", Target: "stdout"}
	}
	switch cfg.Type {
	case "", "console":
		return NewConsoleSink(cfg, formatter, logger), nil
	case "file":
		return NewFileSink(cfg, formatter, logger)
	default:
		return nil, fmt.Errorf("unknown output type: %s", cfg.Type)
	}
}

// render decodes a record payload and formats it. Payloads that are not
// events are returned verbatim with ok false.
func render(rec receiver.Record, formatter format.Formatter) (line []byte, evt *core.StructuredEvent, ok bool) {
	parsed, err := format.Parse(rec.Data)
	if err != nil {
		return withNewline(rec.Data), nil, false
	}
	out, err := formatter.Format(&parsed)
	if err != nil {
		return withNewline(rec.Data), &parsed, false
	}
	return withNewline(out), &parsed, true
}

func withNewline(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\n' {
		return b
	}
	out := make([]byte, len(b)+1)
	copy(out, b)
	out[len(b)] = '\n'
	return out
}

func bufferSize(cfg *config.OutputConfig) int64 {
	if cfg.BufferSize > 0 {
		return cfg.BufferSize
	}
	return defaultBufferSize
}
