// FILE: src/cmd/kinlog/flags.go
package main

import (
	"flag"
	"fmt"
	"strings"

	"kinlog/src/internal/config"
)

// runtimeFlags are shared by the commands that load configuration and
// start a logger
type runtimeFlags struct {
	ConfigFile string
	Quiet      bool
	LogLevel   string
	LogOutput  string
}

func (f *runtimeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigFile, "config", "", "Config file path")
	fs.StringVar(&f.ConfigFile, "c", "", "Config file path (shorthand)")
	fs.BoolVar(&f.Quiet, "quiet", false, "Suppress console output")
	fs.BoolVar(&f.Quiet, "q", false, "Suppress console output (shorthand)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	fs.StringVar(&f.LogOutput, "log-output", "", "Log output: file, stdout, stderr, both, none (overrides config)")
}

func (f *runtimeFlags) validate() error {
	if f.LogOutput != "" {
		validOutputs := map[string]bool{
			"file": true, "stdout": true, "stderr": true,
			"both": true, "none": true,
		}
		if !validOutputs[f.LogOutput] {
			return fmt.Errorf("invalid log-output: %s (valid: file, stdout, stderr, both, none)", f.LogOutput)
		}
	}

	if f.LogLevel != "" {
		if _, err := config.ParseLogLevel(f.LogLevel); err != nil {
			return fmt.Errorf("invalid log-level: %s (valid: debug, info, warn, error)", f.LogLevel)
		}
	}

	return nil
}

// apply overrides the logging section with flag values
func (f *runtimeFlags) apply(cfg *config.Config) {
	if cfg.Logging == nil {
		cfg.Logging = config.DefaultLogConfig()
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(f.LogLevel)
	}
	if f.LogOutput != "" {
		cfg.Logging.Output = f.LogOutput
	}
}
