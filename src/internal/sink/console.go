// FILE: src/internal/sink/console.go
package sink

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"kinlog/src/internal/config"
	"kinlog/src/internal/core"
	"kinlog/src/internal/format"
	"kinlog/src/internal/receiver"

	"github.com/lixenwraith/log"
)

// ConsoleSink writes formatted records to stdout or stderr. In split mode
// WARN and ERROR events go to stderr and everything else to stdout.
type ConsoleSink struct {
	input     chan receiver.Record
	target    string
	stdout    io.Writer
	stderr    io.Writer
	formatter format.Formatter
	logger    *log.Logger

	startTime time.Time
	stopOnce  sync.Once
	finished  chan struct{}

	// Statistics
	totalProcessed atomic.Uint64
	totalInvalid   atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

func NewConsoleSink(cfg *config.OutputConfig, formatter format.Formatter, logger *log.Logger) *ConsoleSink {
	target := cfg.Target
	if target == "" {
		target = "stdout"
	}
	s := &ConsoleSink{
		input:     make(chan receiver.Record, bufferSize(cfg)),
		target:    target,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		formatter: formatter,
		logger:    logger,
		startTime: time.Now(),
		finished:  make(chan struct{}),
	}
	s.lastProcessed.Store(time.Time{})
	return s
}

// SetWriters replaces the console streams; used by tests
func (s *ConsoleSink) SetWriters(stdout, stderr io.Writer) {
	s.stdout = stdout
	s.stderr = stderr
}

func (s *ConsoleSink) Input() chan<- receiver.Record {
	return s.input
}

func (s *ConsoleSink) Start(ctx context.Context) error {
	go s.processLoop(ctx)
	s.logger.Info("msg", "Console sink started",
		"component", "console_sink",
		"target", s.target)
	return nil
}

func (s *ConsoleSink) Stop() {
	s.stopOnce.Do(func() { close(s.input) })
	<-s.finished
	s.logger.Info("msg", "Console sink stopped",
		"component", "console_sink",
		"total_processed", s.totalProcessed.Load())
}

func (s *ConsoleSink) GetStats() Stats {
	lastProc, _ := s.lastProcessed.Load().(time.Time)
	return Stats{
		Type:           "console",
		TotalProcessed: s.totalProcessed.Load(),
		TotalInvalid:   s.totalInvalid.Load(),
		StartTime:      s.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"target":   s.target,
			"queued":   len(s.input),
			"capacity": cap(s.input),
		},
	}
}

func (s *ConsoleSink) processLoop(ctx context.Context) {
	defer close(s.finished)
	for {
		select {
		case rec, ok := <-s.input:
			if !ok {
				return
			}
			s.write(rec)
		case <-ctx.Done():
			// Drain what the receivers already handed over
			for {
				select {
				case rec, ok := <-s.input:
					if !ok {
						return
					}
					s.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (s *ConsoleSink) write(rec receiver.Record) {
	s.totalProcessed.Add(1)
	s.lastProcessed.Store(time.Now())

	line, evt, ok := render(rec, s.formatter)
	if !ok {
		s.totalInvalid.Add(1)
		s.logger.Warn("msg", "Record is not a structured event, writing payload as-is",
			"component", "console_sink",
			"shard", rec.ShardID,
			"sequence", rec.SequenceNumber)
	}

	out := s.stdout
	switch s.target {
	case "stderr":
		out = s.stderr
	case "split":
		if evt != nil && evt.Level.AtLeast(core.LevelWarn) {
			out = s.stderr
		}
	}

	if _, err := out.Write(line); err != nil {
		s.logger.Error("msg", "Failed to write record",
			"component", "console_sink",
			"error", err)
	}
}
