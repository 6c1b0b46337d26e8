// FILE: src/internal/format/raw.go
package format

import (
	"kinlog/src/internal/core"

	"github.com/lixenwraith/log"
)

// RawFormatter outputs the event description with a newline
type RawFormatter struct {
	logger *log.Logger
}

func NewRawFormatter(logger *log.Logger) *RawFormatter {
	return &RawFormatter{logger: logger}
}

func (f *RawFormatter) Format(evt *core.StructuredEvent) ([]byte, error) {
	return append([]byte(evt.Description), '\n'), nil
}

func (f *RawFormatter) Name() string {
	return "raw"
}
