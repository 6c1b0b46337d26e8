// FILE: src/internal/sink/file.go
package sink

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"kinlog/src/internal/config"
	"kinlog/src/internal/format"
	"kinlog/src/internal/receiver"

	"github.com/lixenwraith/log"
)

// FileSink writes formatted records to rotating files
type FileSink struct {
	input     chan receiver.Record
	writer    *log.Logger // file writer, separate from the application logger
	formatter format.Formatter
	logger    *log.Logger
	directory string
	name      string

	startTime time.Time
	stopOnce  sync.Once
	finished  chan struct{}

	// Statistics
	totalProcessed atomic.Uint64
	totalInvalid   atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

func NewFileSink(cfg *config.OutputConfig, formatter format.Formatter, logger *log.Logger) (*FileSink, error) {
	directory := cfg.Directory
	if directory == "" {
		directory = "./"
		logger.Warn("msg", "No output directory provided, current directory will be used",
			"component", "file_sink")
	}
	name := cfg.Name
	if name == "" {
		name = "kinlog.records"
	}

	writerConfig := log.DefaultConfig()
	writerConfig.Directory = directory
	writerConfig.Name = name
	writerConfig.EnableConsole = false
	// Formatted records carry their own timestamp and level
	writerConfig.ShowTimestamp = false
	writerConfig.ShowLevel = false

	if cfg.MaxSizeMB > 0 {
		writerConfig.MaxSizeKB = cfg.MaxSizeMB * 1000
	}
	if cfg.MaxTotalSizeMB >= 0 {
		writerConfig.MaxTotalSizeKB = cfg.MaxTotalSizeMB * 1000
	}
	if cfg.RetentionHours > 0 {
		writerConfig.RetentionPeriodHrs = cfg.RetentionHours
	}

	writer := log.NewLogger()
	if err := writer.ApplyConfig(writerConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize file writer: %w", err)
	}
	if err := writer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start file writer: %w", err)
	}

	fs := &FileSink{
		input:     make(chan receiver.Record, bufferSize(cfg)),
		writer:    writer,
		formatter: formatter,
		logger:    logger,
		directory: directory,
		name:      name,
		startTime: time.Now(),
		finished:  make(chan struct{}),
	}
	fs.lastProcessed.Store(time.Time{})
	return fs, nil
}

func (fs *FileSink) Input() chan<- receiver.Record {
	return fs.input
}

func (fs *FileSink) Start(ctx context.Context) error {
	go fs.processLoop(ctx)
	fs.logger.Info("msg", "File sink started",
		"component", "file_sink",
		"directory", fs.directory,
		"name", fs.name)
	return nil
}

func (fs *FileSink) Stop() {
	fs.stopOnce.Do(func() { close(fs.input) })
	<-fs.finished

	if err := fs.writer.Shutdown(2 * time.Second); err != nil {
		fs.logger.Error("msg", "Error shutting down file writer",
			"component", "file_sink",
			"error", err)
	}
	fs.logger.Info("msg", "File sink stopped",
		"component", "file_sink",
		"total_processed", fs.totalProcessed.Load())
}

func (fs *FileSink) GetStats() Stats {
	lastProc, _ := fs.lastProcessed.Load().(time.Time)
	return Stats{
		Type:           "file",
		TotalProcessed: fs.totalProcessed.Load(),
		TotalInvalid:   fs.totalInvalid.Load(),
		StartTime:      fs.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"directory": fs.directory,
			"name":      fs.name,
		},
	}
}

func (fs *FileSink) processLoop(ctx context.Context) {
	defer close(fs.finished)
	for {
		select {
		case rec, ok := <-fs.input:
			if !ok {
				return
			}
			fs.write(rec)
		case <-ctx.Done():
			return
		}
	}
}

func (fs *FileSink) write(rec receiver.Record) {
	fs.totalProcessed.Add(1)
	fs.lastProcessed.Store(time.Now())

	line, _, ok := render(rec, fs.formatter)
	if !ok {
		fs.totalInvalid.Add(1)
	}

	// Strings keep the writer from hex-encoding bytes; it adds the newline
	fs.writer.Message(string(bytes.TrimSuffix(line, []byte{'\n'})))
}
