// FILE: src/internal/event/message.go
package event

import (
	"strings"

	"kinlog/src/internal/metadata"
)

const (
	placeholder = "{}"
	escapeChar  = '\\'
)

// Format substitutes "{}" placeholders with args in order. A backslash
// before a placeholder escapes it. Surplus args are ignored, except a
// trailing error which is returned so callers can treat it as the cause.
func Format(format string, args ...any) (string, error) {
	var trailing error
	if n := len(args); n > 0 {
		if err, ok := args[n-1].(error); ok && countPlaceholders(format) < n {
			trailing = err
			args = args[:n-1]
		}
	}
	if len(args) == 0 && !strings.Contains(format, `\{}`) {
		return format, trailing
	}

	var b strings.Builder
	b.Grow(len(format) + 16*len(args))

	next := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == escapeChar && strings.HasPrefix(format[i+1:], placeholder) {
			b.WriteString(placeholder)
			i += len(placeholder)
			continue
		}
		if c == '{' && i+1 < len(format) && format[i+1] == '}' && next < len(args) {
			b.WriteString(argString(args[next]))
			next++
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), trailing
}

// countPlaceholders counts "{}" not preceded by the escape character
func countPlaceholders(format string) int {
	n := 0
	for i := 0; i+1 < len(format); i++ {
		switch {
		case format[i] == escapeChar && strings.HasPrefix(format[i+1:], placeholder):
			i += len(placeholder)
		case format[i] == '{' && format[i+1] == '}':
			n++
			i++
		}
	}
	return n
}

func argString(v any) string {
	if v == nil {
		return "null"
	}
	return metadata.FormatValue(v)
}
