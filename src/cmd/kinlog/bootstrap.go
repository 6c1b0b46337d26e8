// FILE: src/cmd/kinlog/bootstrap.go
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"kinlog/src/internal/config"

	"github.com/lixenwraith/log"
)

var logger *log.Logger

// loadConfig layers the config file named by flags, KINLOG_ environment
// and the override arguments, then applies logging flags
func loadConfig(flags *runtimeFlags, overrides []string) (*config.Config, error) {
	if err := flags.validate(); err != nil {
		return nil, err
	}

	if flags.ConfigFile != "" {
		os.Setenv("KINLOG_CONFIG_FILE", flags.ConfigFile)
	}

	cfg, err := config.LoadWithCLI(overrides)
	if err != nil {
		if flags.ConfigFile != "" && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("config file not found: %s", flags.ConfigFile)
		}
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is nil after loading")
	}

	flags.apply(cfg)
	return cfg, nil
}

// initializeLogger starts the diagnostics logger described by cfg.Logging
func initializeLogger(cfg *config.Config, quiet bool) error {
	logger = log.NewLogger()

	section := cfg.Logging
	if section == nil {
		section = config.DefaultLogConfig()
	}
	logConfig, err := section.LoggerConfig(quiet)
	if err != nil {
		return err
	}
	if err := logger.ApplyConfig(logConfig); err != nil {
		return fmt.Errorf("failed to apply logger config: %w", err)
	}
	return logger.Start()
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			ui.notef("Logger shutdown error: %v\n", err)
		}
	}
}
