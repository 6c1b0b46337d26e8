// FILE: src/cmd/kinlog/commands/commands_test.go
package commands

import (
	"bytes"
	"errors"
	"testing"

	"kinlog/src/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCommand struct {
	args []string
	err  error
}

func (s *stubCommand) Execute(args []string) error {
	s.args = args
	return s.err
}
func (s *stubCommand) Description() string { return "stub for tests" }
func (s *stubCommand) Help() string        { return "stub help\n" }

func newTestRouter() (*CommandRouter, *bytes.Buffer) {
	r := NewCommandRouter()
	var buf bytes.Buffer
	r.out = &buf
	return r, &buf
}

func TestRoute(t *testing.T) {
	t.Run("NoCommand", func(t *testing.T) {
		r, _ := newTestRouter()
		handled, err := r.Route([]string{"kinlog"})
		assert.False(t, handled)
		assert.NoError(t, err)
	})

	t.Run("Registered", func(t *testing.T) {
		r, _ := newTestRouter()
		stub := &stubCommand{}
		r.Register("send", stub)

		handled, err := r.Route([]string{"kinlog", "send", "--level", "warn"})
		assert.True(t, handled)
		assert.NoError(t, err)
		assert.Equal(t, []string{"--level", "warn"}, stub.args)
	})

	t.Run("CommandError", func(t *testing.T) {
		r, _ := newTestRouter()
		boom := errors.New("boom")
		r.Register("send", &stubCommand{err: boom})

		handled, err := r.Route([]string{"kinlog", "send"})
		assert.True(t, handled)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("Unknown", func(t *testing.T) {
		r, _ := newTestRouter()
		handled, err := r.Route([]string{"kinlog", "sned"})
		assert.False(t, handled)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown command: sned")
	})

	t.Run("FlagOnly", func(t *testing.T) {
		r, _ := newTestRouter()
		handled, err := r.Route([]string{"kinlog", "-q"})
		assert.False(t, handled)
		assert.NoError(t, err)
	})

	t.Run("CommandHelp", func(t *testing.T) {
		r, buf := newTestRouter()
		stub := &stubCommand{}
		r.Register("send", stub)

		handled, err := r.Route([]string{"kinlog", "send", "--help"})
		assert.True(t, handled)
		assert.NoError(t, err)
		assert.Equal(t, "stub help\n", buf.String())
		assert.Nil(t, stub.args, "command must not run")
	})

	t.Run("GeneralHelp", func(t *testing.T) {
		r, buf := newTestRouter()
		r.Register("send", &stubCommand{})

		handled, err := r.Route([]string{"kinlog", "help"})
		assert.True(t, handled)
		assert.NoError(t, err)
		out := buf.String()
		assert.Contains(t, out, "keygen")
		assert.Regexp(t, `send +stub for tests`, out)
	})
}

func TestHelpCommand_Specific(t *testing.T) {
	r, buf := newTestRouter()
	help, ok := r.GetCommand("help")
	require.True(t, ok)

	require.NoError(t, help.Execute([]string{"keygen"}))
	assert.Contains(t, buf.String(), "Keygen Command")

	assert.Error(t, help.Execute([]string{"nope"}))
}

func newTestConfigCommand(cfg *config.Config) (*ConfigCommand, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	c := &ConfigCommand{
		output: &out,
		errOut: &errOut,
		load: func(args []string) (*config.Config, error) {
			return cfg, nil
		},
	}
	return c, &out, &errOut
}

func TestConfigCommand(t *testing.T) {
	t.Run("Print", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Shipper.AppName = "orders"
		c, out, _ := newTestConfigCommand(cfg)

		require.NoError(t, c.Execute(nil))
		assert.Contains(t, out.String(), "[shipper]")
		assert.Contains(t, out.String(), `app_name    = "orders"`)
		assert.Contains(t, out.String(), "[receiver]")
	})

	t.Run("CheckFails", func(t *testing.T) {
		c, _, errOut := newTestConfigCommand(config.Defaults())

		err := c.Execute([]string{"--check"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "4 problem(s)")
		assert.Contains(t, errOut.String(), "shipper.app_name is required")
	})

	t.Run("CheckPasses", func(t *testing.T) {
		cfg := config.Defaults()
		cfg.Shipper.AppName = "orders"
		cfg.Shipper.Environment = "prod"
		cfg.Shipper.StreamName = "events"
		cfg.Shipper.Region = "eu-west-1"
		c, _, _ := newTestConfigCommand(cfg)

		assert.NoError(t, c.Execute([]string{"--check"}))
	})

	t.Run("LoadError", func(t *testing.T) {
		c, _, _ := newTestConfigCommand(nil)
		c.load = func([]string) (*config.Config, error) { return nil, errors.New("bad toml") }
		err := c.Execute(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad toml")
	})
}
