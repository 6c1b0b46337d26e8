// FILE: src/internal/format/format.go
package format

import (
	"fmt"

	"kinlog/src/internal/core"

	"github.com/lixenwraith/log"
)

// Formatter transforms a structured event into bytes
type Formatter interface {
	// Format renders one event
	Format(evt *core.StructuredEvent) ([]byte, error)

	// Name returns the formatter type name
	Name() string
}

// Options tunes the bundled formatters. Zero values select defaults.
type Options struct {
	Pretty          bool   `toml:"pretty"`
	Template        string `toml:"template"`
	TimestampFormat string `toml:"timestamp_format"`
}

// New creates a Formatter by name: json, text or raw
func New(name string, opts Options, logger *log.Logger) (Formatter, error) {
	if name == "" {
		name = "json"
	}

	switch name {
	case "json":
		return NewJSONFormatter(opts, logger), nil
	case "text", "txt":
		return NewTextFormatter(opts, logger)
	case "raw":
		return NewRawFormatter(logger), nil
	default:
		return nil, fmt.Errorf("unknown formatter type: %s", name)
	}
}
