// FILE: src/cmd/kinlog/output.go
package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"kinlog/src/internal/shipper"
)

// console carries the progress lines a person running kinlog reads:
// startup problems, listen addresses and delivery summaries. Everything
// goes to stderr so stdout stays free for received records. Quiet mode
// silences all of it except fatal errors.
type console struct {
	mu    sync.Mutex
	quiet bool
	w     io.Writer
}

var ui = &console{w: os.Stderr}

func (c *console) setQuiet(quiet bool) {
	c.mu.Lock()
	c.quiet = quiet
	c.mu.Unlock()
}

func (c *console) notef(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.quiet {
		fmt.Fprintf(c.w, format, args...)
	}
}

// diagnostics lists the problems a shipper recorded, typically the
// configuration violations behind a failed Start
func (c *console) diagnostics(list []shipper.Diagnostic) {
	for _, d := range list {
		c.notef("  %s\n", d.String())
	}
}

func (c *console) listening(receiver string, addr any) {
	c.notef("%s receiver listening on %v\n", receiver, addr)
}

// sendSummary reports how the lines read by send fared after the
// shipper drained
func (c *console) sendSummary(lines int, stats map[string]any) {
	c.notef("Read %d line(s): shipped %v, acknowledged %v, filtered %v, failed %v\n",
		lines, stats["total_shipped"], stats["total_acked"], stats["total_filtered"], stats["total_failed"])
}

// fatal prints even in quiet mode and exits
func (c *console) fatal(code int, format string, args ...any) {
	c.mu.Lock()
	fmt.Fprintf(c.w, format, args...)
	c.mu.Unlock()
	os.Exit(code)
}
