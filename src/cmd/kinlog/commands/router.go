// FILE: src/cmd/kinlog/commands/router.go
package commands

import (
	"fmt"
	"io"
	"os"
)

// Handler defines the interface required for all subcommands.
type Handler interface {
	Execute(args []string) error
	Description() string
	Help() string
}

// CommandRouter handles the routing of CLI arguments to the appropriate subcommand handler.
type CommandRouter struct {
	commands map[string]Handler
	out      io.Writer
}

// NewCommandRouter creates the router with the commands that need no
// runtime setup. Runtime commands are added with Register.
func NewCommandRouter() *CommandRouter {
	router := &CommandRouter{
		commands: make(map[string]Handler),
		out:      os.Stdout,
	}

	router.commands["config"] = NewConfigCommand()
	router.commands["keygen"] = NewKeygenCommand()
	router.commands["version"] = NewVersionCommand()
	router.commands["help"] = NewHelpCommand(router)

	return router
}

// Register adds or replaces a command
func (r *CommandRouter) Register(name string, handler Handler) {
	r.commands[name] = handler
}

// Route executes the subcommand named by args[1]. It reports false when
// args name no command.
func (r *CommandRouter) Route(args []string) (bool, error) {
	if len(args) < 2 {
		return false, nil
	}

	cmdName := args[1]

	for _, arg := range args[1:] {
		if arg == "-h" || arg == "--help" {
			if handler, exists := r.commands[cmdName]; exists && cmdName != "help" {
				fmt.Fprint(r.out, handler.Help())
				return true, nil
			}
			return true, r.commands["help"].Execute(nil)
		}
	}

	handler, exists := r.commands[cmdName]
	if !exists {
		if cmdName == "" || cmdName[0] != '-' {
			return false, fmt.Errorf("unknown command: %s\n\nRun 'kinlog help' for usage", cmdName)
		}
		return false, nil
	}

	return true, handler.Execute(args[2:])
}

// GetCommand returns a specific command handler by its name.
func (r *CommandRouter) GetCommand(name string) (Handler, bool) {
	cmd, exists := r.commands[name]
	return cmd, exists
}

// GetCommands returns a map of all registered commands.
func (r *CommandRouter) GetCommands() map[string]Handler {
	return r.commands
}

// coalesceString returns the first non-empty string from a list of arguments.
func coalesceString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
