// FILE: src/internal/format/text.go
package format

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"
	"time"

	"kinlog/src/internal/core"

	"github.com/lixenwraith/log"
)

const defaultTextTemplate = "[{{.Timestamp | FmtTime}}] [{{.Level}}] {{.AppName}}/{{.Environment}} {{.LoggerName}}" +
	"{{if .EventType}} event={{.EventType}}{{end}}{{if .Context}} context={{.Context}}{{end}}" +
	" - {{.Description}}{{if .Metadata}} {{.Metadata}}{{end}}{{if .Stacktrace}}\n{{.Stacktrace}}{{end}}"

// TextFormatter renders human-readable lines using a template
type TextFormatter struct {
	timestampFormat string
	template        *template.Template
	logger          *log.Logger
}

// NewTextFormatter creates a text formatter
func NewTextFormatter(opts Options, logger *log.Logger) (*TextFormatter, error) {
	f := &TextFormatter{
		timestampFormat: opts.TimestampFormat,
		logger:          logger,
	}
	if f.timestampFormat == "" {
		f.timestampFormat = time.RFC3339
	}

	tmplText := opts.Template
	if tmplText == "" {
		tmplText = defaultTextTemplate
	}

	funcMap := template.FuncMap{
		"FmtTime": func(t time.Time) string {
			return t.Format(f.timestampFormat)
		},
		"ToUpper":   strings.ToUpper,
		"ToLower":   strings.ToLower,
		"TrimSpace": strings.TrimSpace,
	}

	tmpl, err := template.New("event").Funcs(funcMap).Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	f.template = tmpl
	return f, nil
}

// Format renders the event, falling back to a fixed layout if the
// template fails at execution time
func (f *TextFormatter) Format(evt *core.StructuredEvent) ([]byte, error) {
	data := map[string]any{
		"Timestamp":   evt.Timestamp,
		"Level":       evt.Level.String(),
		"AppName":     evt.AppName,
		"Environment": evt.Environment,
		"LoggerName":  evt.LoggerName,
		"EventType":   evt.EventType,
		"Context":     evt.Context,
		"Description": evt.Description,
		"Stacktrace":  evt.Stacktrace,
		"Metadata":    renderMetadata(evt.Metadata),
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		f.logger.Debug("msg", "Template execution failed, using fallback",
			"component", "text_formatter",
			"error", err)

		fallback := fmt.Sprintf("[%s] [%s] %s - %s\n",
			evt.Timestamp.Format(f.timestampFormat),
			evt.Level,
			evt.LoggerName,
			evt.Description)
		return []byte(fallback), nil
	}

	result := buf.Bytes()
	if len(result) == 0 || result[len(result)-1] != '\n' {
		result = append(result, '\n')
	}
	return result, nil
}

// Name returns the formatter name
func (f *TextFormatter) Name() string {
	return "text"
}

// renderMetadata prints k=v pairs in key order
func renderMetadata(md map[string]string) string {
	if len(md) == 0 {
		return ""
	}
	keys := slices.Sorted(maps.Keys(md))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + md[k]
	}
	return strings.Join(parts, " ")
}
