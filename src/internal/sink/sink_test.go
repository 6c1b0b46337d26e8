// FILE: src/internal/sink/sink_test.go
package sink

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"kinlog/src/internal/config"
	"kinlog/src/internal/core"
	"kinlog/src/internal/format"
	"kinlog/src/internal/receiver"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventRecord(t *testing.T, level core.Level, description string) receiver.Record {
	t.Helper()
	evt := &core.StructuredEvent{
		AppName:     "myApp",
		Environment: "test",
		Level:       level,
		LoggerName:  "root",
		EventType:   "evt",
		Description: description,
		Timestamp:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Metadata:    map[string]string{},
	}
	payload, err := format.NewJSONFormatter(format.Options{}, log.NewLogger()).Format(evt)
	require.NoError(t, err)
	return receiver.Record{
		Stream:         "my-stream",
		PartitionKey:   "pk",
		Data:           payload,
		ShardID:        receiver.FormatShardID(0),
		SequenceNumber: "00000000000000000001",
	}
}

func newConsole(t *testing.T, target, formatName string) (*ConsoleSink, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	logger := log.NewLogger()
	formatter, err := format.New(formatName, format.Options{}, logger)
	require.NoError(t, err)

	s := NewConsoleSink(&config.OutputConfig{Target: target}, formatter, logger)
	var stdout, stderr bytes.Buffer
	s.SetWriters(&stdout, &stderr)
	require.NoError(t, s.Start(context.Background()))
	return s, &stdout, &stderr
}

func TestConsoleSink_Text(t *testing.T) {
	s, stdout, stderr := newConsole(t, "stdout", "text")

	s.Input() <- eventRecord(t, core.LevelInfo, "order placed")
	s.Stop()

	out := stdout.String()
	assert.Contains(t, out, "order placed")
	assert.Contains(t, out, "event=evt")
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Empty(t, stderr.String())

	stats := s.GetStats()
	assert.Equal(t, uint64(1), stats.TotalProcessed)
	assert.Zero(t, stats.TotalInvalid)
}

func TestConsoleSink_Split(t *testing.T) {
	s, stdout, stderr := newConsole(t, "split", "raw")

	s.Input() <- eventRecord(t, core.LevelInfo, "fine")
	s.Input() <- eventRecord(t, core.LevelWarn, "careful")
	s.Input() <- eventRecord(t, core.LevelError, "broken")
	s.Stop()

	assert.Equal(t, "fine\n", stdout.String())
	assert.Equal(t, "careful\nbroken\n", stderr.String())
}

func TestConsoleSink_InvalidPayload(t *testing.T) {
	s, stdout, _ := newConsole(t, "stdout", "json")

	s.Input() <- receiver.Record{Data: []byte("not an event")}
	s.Stop()

	assert.Equal(t, "not an event\n", stdout.String())
	assert.Equal(t, uint64(1), s.GetStats().TotalInvalid)
}

func TestConsoleSink_StopIdempotent(t *testing.T) {
	s, _, _ := newConsole(t, "", "json")
	s.Stop()
	assert.NotPanics(t, s.Stop)
	assert.Equal(t, "stdout", s.GetStats().Details["target"])
}

func TestNew(t *testing.T) {
	logger := log.NewLogger()
	formatter := format.NewJSONFormatter(format.Options{}, logger)

	s, err := New(nil, formatter, logger)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleSink{}, s)

	_, err = New(&config.OutputConfig{Type: "kafka"}, formatter, logger)
	assert.Error(t, err)
}
