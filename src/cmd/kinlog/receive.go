// FILE: src/cmd/kinlog/receive.go
package main

import (
	"context"
	"flag"
	"fmt"
	"sync/atomic"

	"kinlog/src/internal/format"
	"kinlog/src/internal/receiver"
	"kinlog/src/internal/sink"
	"kinlog/src/internal/version"
)

// receiveCommand runs a local stream endpoint and writes what it accepts
type receiveCommand struct{}

func newReceiveCommand() *receiveCommand {
	return &receiveCommand{}
}

// receiveService holds the running parts of the receive command
type receiveService struct {
	ledger  *receiver.Ledger
	http    *receiver.HTTPReceiver
	tcp     *receiver.TCPReceiver
	out     sink.Sink
	dropped atomic.Uint64
}

func (c *receiveCommand) Execute(args []string) error {
	var flags runtimeFlags
	fs := flag.NewFlagSet("receive", flag.ContinueOnError)
	flags.register(fs)

	var (
		noHTTP     = fs.Bool("no-http", false, "Disable the HTTP receiver")
		noTCP      = fs.Bool("no-tcp", false, "Disable the TCP receiver")
		formatName = fs.String("format", "", "Display format: json, text, raw (overrides config)")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(&flags, fs.Args())
	if err != nil {
		return err
	}
	ui.setQuiet(flags.Quiet)
	if err := initializeLogger(cfg, flags.Quiet); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer shutdownLogger()

	rc := cfg.Receiver
	if rc == nil {
		return fmt.Errorf("no [receiver] configuration")
	}
	if *formatName != "" {
		rc.Format = *formatName
	}

	formatter, err := format.New(rc.Format, rc.Display, logger)
	if err != nil {
		return err
	}
	out, err := sink.New(rc.Output, formatter, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := &receiveService{
		ledger: receiver.NewLedger(rc.ShardCount, rc.ShardRecordsPerSecond),
		out:    out,
	}
	if err := out.Start(ctx); err != nil {
		return err
	}

	if !*noHTTP {
		svc.http, err = receiver.NewHTTPReceiver(rc, svc.ledger, svc.deliver, logger)
		if err == nil {
			err = svc.http.Start()
		}
		if err != nil {
			svc.stop()
			return fmt.Errorf("http receiver: %w", err)
		}
		ui.listening("HTTP", svc.http.Addr())
	}

	if !*noTCP {
		svc.tcp, err = receiver.NewTCPReceiver(rc, svc.ledger, svc.deliver, logger)
		if err == nil {
			err = svc.tcp.Start()
		}
		if err != nil {
			svc.stop()
			return fmt.Errorf("tcp receiver: %w", err)
		}
		ui.listening("TCP", svc.tcp.Addr())
	}

	if svc.http == nil && svc.tcp == nil {
		svc.stop()
		return fmt.Errorf("both receivers are disabled")
	}

	logger.Info("msg", "kinlog receiver started",
		"version", version.Short(),
		"shards", rc.ShardCount,
		"format", formatter.Name())

	if enableStatusReporter() {
		go statusReporter(ctx, svc)
	}

	signals := NewSignalHandler(logger, func() { logServiceStatus(svc) })
	defer signals.Stop()
	sig := signals.Wait(ctx)

	logger.Info("msg", "Shutdown signal received, stopping receivers", "signal", sig)
	svc.stop()
	cancel()
	logger.Info("msg", "Shutdown complete")
	return nil
}

// deliver hands a record to the sink without blocking the receiver
func (s *receiveService) deliver(rec receiver.Record) {
	select {
	case s.out.Input() <- rec:
	default:
		if s.dropped.Add(1) == 1 {
			logger.Warn("msg", "Output queue full, dropping records",
				"component", "receive",
				"shard", rec.ShardID)
		}
	}
}

// stop shuts the receivers before the sink so no record arrives after
// the sink input is closed
func (s *receiveService) stop() {
	if s.http != nil {
		s.http.Stop()
	}
	if s.tcp != nil {
		s.tcp.Stop()
	}
	s.out.Stop()
}

func (s *receiveService) GetStats() map[string]any {
	stats := map[string]any{
		"ledger":          s.ledger.GetStats(),
		"records_dropped": s.dropped.Load(),
	}
	if s.http != nil {
		stats["http"] = s.http.GetStats()
	}
	if s.tcp != nil {
		stats["tcp"] = s.tcp.GetStats()
	}
	outStats := s.out.GetStats()
	stats["output"] = map[string]any{
		"type":            outStats.Type,
		"total_processed": outStats.TotalProcessed,
		"total_invalid":   outStats.TotalInvalid,
		"last_processed":  outStats.LastProcessed,
	}
	return stats
}

func (c *receiveCommand) Description() string {
	return "Run a local stream endpoint and print received events"
}

func (c *receiveCommand) Help() string {
	return `Receive Command - Run a local stream endpoint

Usage:
  kinlog receive [options] [-- overrides]

Accepts records over HTTP (POST /streams/<name>/records) and over the
line-based TCP protocol. Both receivers share one shard ledger, so
sequence numbers are unique across them. Accepted events are written to
the configured output.

Options:
  --no-http             Disable the HTTP receiver
  --no-tcp              Disable the TCP receiver
  --format <name>       json, text or raw (default from config: text)
  -c, --config <path>   Config file path
  -q, --quiet           Suppress console output

Signals:
  SIGUSR1               Log receiver statistics
  SIGINT, SIGTERM       Stop

Examples:
  kinlog receive --format json
  kinlog receive -- --receiver.shard_count=4 --receiver.shard_records_per_second=100
  kinlog receive -- --receiver.output.type=file --receiver.output.directory=/var/log/kinlog
`
}
