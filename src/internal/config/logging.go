// FILE: src/internal/config/logging.go
package config

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/log"
)

// LogConfig controls where kinlog writes its own diagnostics: shipper
// start failures, rejected submissions and receiver activity. Shipped
// events never pass through this logger.
type LogConfig struct {
	// "stderr", "stdout", "file", "both" or "none"
	Output string `toml:"output"`
	// "debug", "info", "warn" or "error"
	Level   string            `toml:"level"`
	File    *LogFileConfig    `toml:"file"`
	Console *LogConsoleConfig `toml:"console"`
}

type LogFileConfig struct {
	Directory      string  `toml:"directory"`
	Name           string  `toml:"name"`
	MaxSizeMB      int64   `toml:"max_size_mb"`
	MaxTotalSizeMB int64   `toml:"max_total_size_mb"`
	RetentionHours float64 `toml:"retention_hours"`
}

type LogConsoleConfig struct {
	// "stdout", "stderr" or "split" (warn and error to stderr)
	Target string `toml:"target"`
	// "txt", "json" or "raw"
	Format string `toml:"format"`
}

// DefaultLogConfig keeps diagnostics on stderr so stdout stays usable for
// the records the receive command prints
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Output: "stderr",
		Level:  "info",
		File: &LogFileConfig{
			Directory:      "./log",
			Name:           "kinlog",
			MaxSizeMB:      100,
			MaxTotalSizeMB: 1000,
			RetentionHours: 168,
		},
		Console: &LogConsoleConfig{
			Target: "stderr",
			Format: "txt",
		},
	}
}

// ParseLogLevel maps a diagnostics level name to the logger's level value
func ParseLogLevel(level string) (int64, error) {
	switch strings.ToLower(level) {
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// quietLevel is above every level the logger emits
const quietLevel = 255

// LoggerConfig translates the section into a logger configuration.
// quiet turns every output off regardless of the section.
func (c *LogConfig) LoggerConfig(quiet bool) (*log.Config, error) {
	lc := log.DefaultConfig()
	lc.Name = "kinlog"
	lc.EnableConsole = false
	lc.DisableFile = true

	if quiet {
		lc.Level = quietLevel
		return lc, nil
	}

	level, err := ParseLogLevel(c.Level)
	if err != nil {
		return nil, err
	}
	lc.Level = level

	if con := c.Console; con != nil {
		if con.Format != "" {
			lc.Format = con.Format
		}
		if con.Target != "" {
			lc.ConsoleTarget = con.Target
		}
	}

	switch c.Output {
	case "none":
	case "stdout", "stderr":
		lc.EnableConsole = true
		lc.ConsoleTarget = c.Output
	case "file":
		c.applyFile(lc)
	case "both":
		lc.EnableConsole = true
		c.applyFile(lc)
	default:
		return nil, fmt.Errorf("invalid log output mode: %s", c.Output)
	}
	return lc, nil
}

func (c *LogConfig) applyFile(lc *log.Config) {
	lc.DisableFile = false
	f := c.File
	if f == nil {
		return
	}
	if f.Directory != "" {
		lc.Directory = f.Directory
	}
	if f.Name != "" {
		lc.Name = f.Name
	}
	if f.MaxSizeMB > 0 {
		lc.MaxSizeKB = f.MaxSizeMB * 1000
	}
	if f.MaxTotalSizeMB > 0 {
		lc.MaxTotalSizeKB = f.MaxTotalSizeMB * 1000
	}
	if f.RetentionHours > 0 {
		lc.RetentionPeriodHrs = f.RetentionHours
	}
}

func validateLogConfig(cfg *LogConfig) error {
	switch cfg.Output {
	case "file", "stdout", "stderr", "both", "none":
	default:
		return fmt.Errorf("invalid log output mode: %s", cfg.Output)
	}
	if _, err := ParseLogLevel(cfg.Level); err != nil || cfg.Level != strings.ToLower(cfg.Level) {
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	if con := cfg.Console; con != nil {
		switch con.Target {
		case "stdout", "stderr", "split":
		default:
			return fmt.Errorf("invalid console target: %s", con.Target)
		}
		switch con.Format {
		case "", "txt", "json", "raw":
		default:
			return fmt.Errorf("invalid console format: %s", con.Format)
		}
	}

	if (cfg.Output == "file" || cfg.Output == "both") && cfg.File == nil {
		return fmt.Errorf("log output %s requires a [logging.file] section", cfg.Output)
	}
	return nil
}
