// FILE: src/cmd/kinlog/send.go
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"kinlog/src/internal/core"
	"kinlog/src/internal/shipper"
	"kinlog/src/pkg/kinlog"

	"golang.org/x/term"
)

const maxLineSize = 1024 * 1024

// sendCommand ships each input line as one event
type sendCommand struct {
	input io.Reader
}

func newSendCommand() *sendCommand {
	return &sendCommand{input: os.Stdin}
}

func (c *sendCommand) Execute(args []string) error {
	var flags runtimeFlags
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	flags.register(fs)

	var (
		eventType  = fs.String("event-type", "cli_event", "Event type of every line; empty sends plain logs")
		eventCtx   = fs.String("context", "", "Event context")
		levelName  = fs.String("level", "info", "Event level: trace, debug, info, warn, error")
		loggerName = fs.String("logger", "kinlog.cli", "Logger name")
		metadata   = kinlog.Fields{}
	)
	fs.Func("meta", "Metadata key=value, repeatable", func(s string) error {
		k, v, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return fmt.Errorf("expected key=value, got %q", s)
		}
		metadata[k] = v
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return err
	}

	level, err := core.ParseLevel(*levelName)
	if err != nil {
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

	sh := kinlog.NewShipper(cfg, logger)
	if err := sh.Start(); err != nil {
		ui.diagnostics(sh.Status())
		return err
	}
	if *eventType == "" && sh.EventsOnly() {
		logger.Warn("msg", "No event type and events_only is on; nothing will be shipped",
			"component", "send")
	}

	klog := kinlog.NewHandler(sh).Logger(*loggerName)
	call := kinlog.Call{EventType: *eventType, Context: *eventCtx, Metadata: metadata}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if f, ok := c.input.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		ui.notef("Reading events from the terminal, one per line. Ctrl-D to finish.\n")
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.input)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	sent := 0
loop:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			// The line is an argument so braces in it are not placeholders
			klog.Log(ctx, level.Slog(), call, "{}", line)
			sent++
		case <-ctx.Done():
			logger.Info("msg", "Interrupted, flushing queued events", "component", "send")
			break loop
		}
	}

	sh.Stop()

	ui.sendSummary(sent, sh.GetStats())

	select {
	case err := <-scanErr:
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	default:
	}

	if n := sh.StatusCount(shipper.ErrSubmission); n > 0 {
		return fmt.Errorf("%d event(s) were not delivered", n)
	}
	return nil
}

func (c *sendCommand) Description() string {
	return "Ship input lines as structured events"
}

func (c *sendCommand) Help() string {
	return `Send Command - Ship input lines as structured events

Usage:
  kinlog send [options] [-- overrides]

Each non-empty line of standard input becomes one event. The command
waits for every event to be acknowledged or to fail before exiting.

Options:
  --event-type <type>   Event type (default: cli_event); empty sends plain logs
  --context <text>      Event context
  --level <level>       trace, debug, info, warn or error (default: info)
  --logger <name>       Logger name (default: kinlog.cli)
  --meta key=value      Metadata, repeatable
  -c, --config <path>   Config file path
  -q, --quiet           Suppress console output

Examples:
  echo "nightly backup done" | kinlog send --event-type backup_done --meta host=db1
  kinlog send --level warn -- --shipper.stream_name=ops --transport.type=tcp < alerts.txt
`
}
