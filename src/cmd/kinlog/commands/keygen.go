// FILE: src/cmd/kinlog/commands/keygen.go
package commands

import (
	"kinlog/src/internal/auth"
)

// KeygenCommand generates signing keys and bearer tokens
type KeygenCommand struct {
	generator *auth.GeneratorCommand
}

func NewKeygenCommand() *KeygenCommand {
	return &KeygenCommand{generator: auth.NewGeneratorCommand()}
}

func (c *KeygenCommand) Execute(args []string) error {
	return c.generator.Execute(args)
}

func (c *KeygenCommand) Description() string {
	return "Generate stream signing keys and bearer tokens"
}

func (c *KeygenCommand) Help() string {
	return `Keygen Command - Generate stream signing keys and bearer tokens

Usage:
  kinlog keygen [options]

Options:
  -l <bytes>     Signing key length in bytes (default: 32)
  -t             Mint a bearer token instead of a key; prompts for the key
  -s <subject>   Token subject (default: kinlog-cli)
  -i <issuer>    Token issuer (default: kinlog)
  -ttl <dur>     Token lifetime (default: 1h)

The key goes into [transport.auth] signing_key on producers and
[receiver] signing_key on the receiver.

Examples:
  kinlog keygen -l 48
  kinlog keygen -t -s my-app -ttl 24h
`
}
