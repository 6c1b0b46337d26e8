// FILE: src/internal/auth/generator.go
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/term"
)

const (
	minKeyLen = 32
	maxKeyLen = 512
)

// GeneratorCommand creates signing keys and test tokens
type GeneratorCommand struct {
	output io.Writer
	errOut io.Writer
	// reads a secret without echo; replaced in tests
	readSecret func(prompt string) (string, error)
}

func NewGeneratorCommand() *GeneratorCommand {
	g := &GeneratorCommand{
		output: os.Stdout,
		errOut: os.Stderr,
	}
	g.readSecret = g.promptSecret
	return g
}

func (g *GeneratorCommand) Execute(args []string) error {
	cmd := flag.NewFlagSet("keygen", flag.ContinueOnError)
	cmd.SetOutput(g.errOut)

	var (
		keyLen  = cmd.Int("l", minKeyLen, "Signing key length in bytes")
		sign    = cmd.Bool("t", false, "Mint a bearer token instead of a key")
		subject = cmd.String("s", "kinlog-cli", "Token subject")
		issuer  = cmd.String("i", "kinlog", "Token issuer")
		ttl     = cmd.Duration("ttl", time.Hour, "Token lifetime")
	)

	cmd.Usage = func() {
		fmt.Fprintln(g.errOut, "Generate stream signing keys and bearer tokens")
		fmt.Fprintln(g.errOut, "\nUsage: kinlog keygen [options]")
		fmt.Fprintln(g.errOut, "\nExamples:")
		fmt.Fprintln(g.errOut, "  # Generate a 48-byte signing key")
		fmt.Fprintln(g.errOut, "  kinlog keygen -l 48")
		fmt.Fprintln(g.errOut, "  ")
		fmt.Fprintln(g.errOut, "  # Mint a token for manual requests (prompts for the key)")
		fmt.Fprintln(g.errOut, "  kinlog keygen -t -s my-app")
		fmt.Fprintln(g.errOut, "\nOptions:")
		cmd.PrintDefaults()
	}

	if err := cmd.Parse(args); err != nil {
		return err
	}

	if *sign {
		return g.generateToken(*subject, *issuer, *ttl)
	}
	return g.generateKey(*keyLen)
}

func (g *GeneratorCommand) generateKey(length int) error {
	if length < minKeyLen {
		return fmt.Errorf("signing key must be at least %d bytes", minKeyLen)
	}
	if length > maxKeyLen {
		return fmt.Errorf("key length exceeds maximum (%d bytes)", maxKeyLen)
	}

	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate random bytes: %w", err)
	}
	key := base64.RawURLEncoding.EncodeToString(raw)

	fmt.Fprintln(g.output, "\n# TOML Configuration (add to kinlog.toml):")
	fmt.Fprintln(g.output, "[transport.auth]")
	fmt.Fprintf(g.output, "signing_key = %q\n\n", key)
	fmt.Fprintln(g.output, "[receiver]")
	fmt.Fprintf(g.output, "signing_key = %q\n", key)

	return nil
}

func (g *GeneratorCommand) generateToken(subject, issuer string, ttl time.Duration) error {
	key := os.Getenv("KINLOG_TRANSPORT_AUTH_SIGNING_KEY")
	if key == "" {
		var err error
		key, err = g.readSecret("Signing key: ")
		if err != nil {
			return err
		}
	}
	if len(key) < minKeyLen {
		return fmt.Errorf("signing key must be at least %d bytes", minKeyLen)
	}

	now := time.Now()
	token, err := Mint([]byte(key), jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(g.output, token)
	return nil
}

func (g *GeneratorCommand) promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no signing key: set KINLOG_TRANSPORT_AUTH_SIGNING_KEY or run interactively")
	}
	fmt.Fprint(g.errOut, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(g.errOut)
	if err != nil {
		return "", fmt.Errorf("failed to read signing key: %w", err)
	}
	return string(secret), nil
}
