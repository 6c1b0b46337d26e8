// FILE: src/internal/format/json.go
package format

import (
	"encoding/json"
	"fmt"

	"kinlog/src/internal/core"

	"github.com/lixenwraith/log"
)

// JSONFormatter produces the stream wire payload. Output carries no
// trailing newline; one record is one payload.
type JSONFormatter struct {
	pretty bool
	logger *log.Logger
}

// NewJSONFormatter creates a JSON formatter
func NewJSONFormatter(opts Options, logger *log.Logger) *JSONFormatter {
	return &JSONFormatter{
		pretty: opts.Pretty,
		logger: logger,
	}
}

// Format serializes a single event with the fixed wire field names
func (f *JSONFormatter) Format(evt *core.StructuredEvent) ([]byte, error) {
	var result []byte
	var err error
	if f.pretty {
		result, err = json.MarshalIndent(evt, "", "  ")
	} else {
		result, err = json.Marshal(evt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return result, nil
}

// Name returns the formatter's type name
func (f *JSONFormatter) Name() string {
	return "json"
}

// FormatBatch serializes events into a single JSON array. Events that fail
// to serialize are logged and skipped.
func (f *JSONFormatter) FormatBatch(events []core.StructuredEvent) ([]byte, error) {
	batch := make([]json.RawMessage, 0, len(events))

	for i := range events {
		formatted, err := json.Marshal(&events[i])
		if err != nil {
			f.logger.Warn("msg", "Failed to format event in batch",
				"component", "json_formatter",
				"error", err)
			continue
		}
		batch = append(batch, formatted)
	}

	if f.pretty {
		return json.MarshalIndent(batch, "", "  ")
	}
	return json.Marshal(batch)
}

// Parse decodes a wire payload back into an event
func Parse(data []byte) (core.StructuredEvent, error) {
	var evt core.StructuredEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, fmt.Errorf("failed to parse event: %w", err)
	}
	return evt, nil
}
