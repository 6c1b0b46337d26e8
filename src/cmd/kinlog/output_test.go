// FILE: src/cmd/kinlog/output_test.go
package main

import (
	"bytes"
	"errors"
	"testing"

	"kinlog/src/internal/shipper"

	"github.com/stretchr/testify/assert"
)

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := &console{w: &buf}

	c.listening("TCP", "127.0.0.1:4568")
	c.diagnostics([]shipper.Diagnostic{
		{Severity: shipper.SeverityError, Message: "Invalid shipper configuration", Err: errors.New("region is required")},
	})
	c.sendSummary(3, map[string]any{
		"total_shipped":  uint64(3),
		"total_acked":    uint64(2),
		"total_filtered": uint64(1),
		"total_failed":   uint64(0),
	})

	assert.Equal(t, "TCP receiver listening on 127.0.0.1:4568\n"+
		"  ERROR Invalid shipper configuration: region is required\n"+
		"Read 3 line(s): shipped 3, acknowledged 2, filtered 1, failed 0\n", buf.String())

	buf.Reset()
	c.setQuiet(true)
	c.notef("hidden %d\n", 1)
	c.listening("HTTP", ":4567")
	assert.Empty(t, buf.String())
}
