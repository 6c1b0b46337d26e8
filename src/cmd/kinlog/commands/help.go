// FILE: src/cmd/kinlog/commands/help.go
package commands

import (
	"fmt"
	"sort"
	"strings"
)

const generalHelpTemplate = `kinlog: structured event shipping to record streams.

Usage:
  kinlog <command> [options]

Commands:
%s

Runtime Options (send, receive):
  -c, --config <path>      Path to configuration file (default: ~/.config/kinlog.toml)
  -q, --quiet              Suppress console output
      --log-level <level>  Diagnostic log level: debug, info, warn, error
      --log-output <mode>  Diagnostic log output: file, stdout, stderr, both, none

For command-specific help:
  kinlog help <command>
  kinlog <command> --help

Configuration Sources (Precedence: CLI > Env > File > Defaults):
  - Arguments after '--' are configuration overrides, e.g. --shipper.region=eu-west-1
  - KINLOG_ environment variables override file settings, e.g. KINLOG_SHIPPER_APP_NAME
  - TOML configuration file is the primary method

Examples:
  # Run a local stream on the default ports
  kinlog receive

  # Ship each line of a file as an INFO event
  kinlog send --event-type deploy_step < steps.log

  # Write the effective configuration to a file
  kinlog config --save kinlog.toml
`

// HelpCommand handles the display of general or command-specific help messages.
type HelpCommand struct {
	router *CommandRouter
}

func NewHelpCommand(router *CommandRouter) *HelpCommand {
	return &HelpCommand{router: router}
}

func (c *HelpCommand) Execute(args []string) error {
	if len(args) > 0 && args[0] != "" {
		cmdName := args[0]

		if handler, exists := c.router.GetCommand(cmdName); exists {
			fmt.Fprint(c.router.out, handler.Help())
			return nil
		}

		return fmt.Errorf("unknown command: %s", cmdName)
	}

	fmt.Fprintf(c.router.out, generalHelpTemplate, c.formatCommandList())
	return nil
}

func (c *HelpCommand) Description() string {
	return "Display help information"
}

func (c *HelpCommand) Help() string {
	return `Help Command - Display help information

Usage:
  kinlog help              Show general help
  kinlog help <command>    Show help for a specific command
`
}

// formatCommandList creates a formatted and aligned list of all available commands.
func (c *HelpCommand) formatCommandList() string {
	commands := c.router.GetCommands()

	names := make([]string, 0, len(commands))
	maxLen := 0
	for name := range commands {
		names = append(names, name)
		if len(name) > maxLen {
			maxLen = len(name)
		}
	}
	sort.Strings(names)

	var lines []string
	for _, name := range names {
		padding := strings.Repeat(" ", maxLen-len(name)+2)
		lines = append(lines, fmt.Sprintf("  %s%s%s", name, padding, commands[name].Description()))
	}

	return strings.Join(lines, "\n")
}
