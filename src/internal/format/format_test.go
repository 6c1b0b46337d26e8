// FILE: src/internal/format/format_test.go
package format

import (
	"testing"
	"time"

	"kinlog/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func newTestEvent() *core.StructuredEvent {
	return &core.StructuredEvent{
		AppName:     "myApp",
		Environment: "test",
		Level:       core.LevelWarn,
		LoggerName:  "api",
		EventType:   "rate_limited",
		Description: "rate limit exceeded",
		Timestamp:   time.Date(2023, 10, 27, 10, 30, 0, 0, time.UTC),
		Metadata:    map[string]string{"user": "u1", "ip": "10.0.0.1"},
	}
}

func TestNewFormatter(t *testing.T) {
	logger := newTestLogger()

	testCases := []struct {
		name        string
		formatName  string
		expected    string
		expectError bool
	}{
		{name: "JSONFormatter", formatName: "json", expected: "json"},
		{name: "TextFormatter", formatName: "text", expected: "text"},
		{name: "TxtAlias", formatName: "txt", expected: "text"},
		{name: "RawFormatter", formatName: "raw", expected: "raw"},
		{name: "DefaultToJSON", formatName: "", expected: "json"},
		{name: "UnknownFormatter", formatName: "xml", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			formatter, err := New(tc.formatName, Options{}, logger)
			if tc.expectError {
				assert.Error(t, err)
				assert.Nil(t, formatter)
			} else {
				require.NoError(t, err)
				require.NotNil(t, formatter)
				assert.Equal(t, tc.expected, formatter.Name())
			}
		})
	}
}

func TestRawFormatter_Format(t *testing.T) {
	output, err := NewRawFormatter(newTestLogger()).Format(newTestEvent())
	require.NoError(t, err)
	assert.Equal(t, "rate limit exceeded\n", string(output))
}
