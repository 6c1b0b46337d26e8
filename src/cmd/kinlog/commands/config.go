// FILE: src/cmd/kinlog/commands/config.go
package commands

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"kinlog/src/internal/config"
)

// ConfigCommand shows, checks or saves the effective configuration
type ConfigCommand struct {
	output io.Writer
	errOut io.Writer
	load   func(args []string) (*config.Config, error)
}

func NewConfigCommand() *ConfigCommand {
	return &ConfigCommand{
		output: os.Stdout,
		errOut: os.Stderr,
		load:   config.LoadWithCLI,
	}
}

func (c *ConfigCommand) Execute(args []string) error {
	cmd := flag.NewFlagSet("config", flag.ContinueOnError)
	cmd.SetOutput(c.errOut)

	var (
		configFile = cmd.String("c", "", "Config file path")
		saveTo     = cmd.String("save", "", "Write the effective configuration to this path")
		check      = cmd.Bool("check", false, "Also validate the shipper section")
	)
	cmd.StringVar(configFile, "config", "", "Config file path")

	if err := cmd.Parse(args); err != nil {
		return err
	}

	if *configFile != "" {
		os.Setenv("KINLOG_CONFIG_FILE", *configFile)
	}

	cfg, err := c.load(cmd.Args())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *check {
		if errs := config.ValidateShipper(cfg.Shipper); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(c.errOut, "  shipper.%s\n", e.Error())
			}
			return fmt.Errorf("shipper configuration has %d problem(s)", len(errs))
		}
	}

	if *saveTo != "" {
		if err := cfg.SaveToFile(*saveTo); err != nil {
			return err
		}
		fmt.Fprintf(c.errOut, "Configuration saved to %s\n", *saveTo)
		return nil
	}

	c.print(cfg)
	return nil
}

func (c *ConfigCommand) print(cfg *config.Config) {
	fmt.Fprintf(c.output, "Config file: %s\n\n", config.GetConfigPath())

	if s := cfg.Shipper; s != nil {
		fmt.Fprintln(c.output, "[shipper]")
		fmt.Fprintf(c.output, "  app_name    = %q\n", s.AppName)
		fmt.Fprintf(c.output, "  environment = %q\n", s.Environment)
		fmt.Fprintf(c.output, "  stream_name = %q\n", s.StreamName)
		fmt.Fprintf(c.output, "  region      = %q\n", s.Region)
		fmt.Fprintf(c.output, "  events_only = %t\n", s.IsEventsOnly())
		fmt.Fprintf(c.output, "  logger_name = %q\n", s.LoggerName)
		fmt.Fprintf(c.output, "  min_level   = %q\n", s.MinLevel)
	}

	if t := cfg.Transport; t != nil {
		fmt.Fprintln(c.output, "\n[transport]")
		fmt.Fprintf(c.output, "  type        = %q\n", t.Type)
		fmt.Fprintf(c.output, "  endpoint    = %q\n", t.Endpoint)
		fmt.Fprintf(c.output, "  address     = %q\n", t.Address)
		fmt.Fprintf(c.output, "  workers     = %d\n", t.Workers)
		fmt.Fprintf(c.output, "  buffer_size = %d\n", t.BufferSize)
		fmt.Fprintf(c.output, "  timeout_ms  = %d\n", t.TimeoutMS)
		fmt.Fprintf(c.output, "  compression = %q\n", t.Compression)
		fmt.Fprintf(c.output, "  auth        = %t\n", t.AuthEnabled())
		if t.TLS != nil {
			fmt.Fprintf(c.output, "  tls         = %t\n", t.TLS.Enabled)
		}
	}

	if len(cfg.Filters) > 0 {
		fmt.Fprintln(c.output, "\n[[filters]]")
		for _, f := range cfg.Filters {
			fmt.Fprintf(c.output, "  %s %s: %s\n", f.Type, f.Logic, strings.Join(f.Patterns, ", "))
		}
	}

	if r := cfg.Receiver; r != nil {
		fmt.Fprintln(c.output, "\n[receiver]")
		fmt.Fprintf(c.output, "  listen      = %s http:%d tcp:%d\n", r.Host, r.HTTPPort, r.TCPPort)
		fmt.Fprintf(c.output, "  shards      = %d\n", r.ShardCount)
		fmt.Fprintf(c.output, "  format      = %q\n", coalesceString(r.Format, "json"))
		fmt.Fprintf(c.output, "  auth        = %t\n", r.SigningKey != "")
	}
}

func (c *ConfigCommand) Description() string {
	return "Show, check or save the effective configuration"
}

func (c *ConfigCommand) Help() string {
	return `Config Command - Show, check or save the effective configuration

Usage:
  kinlog config [options] [-- overrides]

Options:
  -c, --config <path>   Config file path
  --check               Validate the shipper section as Start would
  --save <path>         Write the merged configuration as TOML

Examples:
  kinlog config --check -- --shipper.app_name=orders
  KINLOG_SHIPPER_REGION=eu-west-1 kinlog config --save kinlog.toml
`
}
