// FILE: src/internal/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kinlog/src/internal/core"

	lconfig "github.com/lixenwraith/config"
)

const envPrefix = "KINLOG_"

func defaults() *Config {
	return &Config{
		Logging: DefaultLogConfig(),
		Shipper: &ShipperConfig{
			EventsOnly: Bool(true),
			LoggerName: core.DefaultLoggerName,
			MinLevel:   "trace",
		},
		Transport: &TransportConfig{
			Type:        "http",
			Endpoint:    "http://localhost:4567",
			Address:     "localhost:4568",
			Workers:     core.DefaultWorkers,
			BufferSize:  core.DefaultBufferSize,
			TimeoutMS:   core.DefaultTimeoutMS,
			Compression: "none",
			Auth: &AuthConfig{
				Issuer:     "kinlog",
				TTLSeconds: 3600,
			},
		},
		Receiver: &ReceiverConfig{
			Host:        "127.0.0.1",
			HTTPPort:    4567,
			TCPPort:     4568,
			MaxBodySize: 1024 * 1024,
			ShardCount:  1,
			Format:      "text",
			Output: &OutputConfig{
				Type:           "console",
				Target:         "stdout",
				Directory:      "./records",
				Name:           "kinlog.records",
				MaxSizeMB:      100,
				MaxTotalSizeMB: 1000,
				BufferSize:     1000,
			},
		},
	}
}

// Defaults returns a fresh copy of the built-in configuration
func Defaults() *Config {
	return defaults()
}

// LoadWithCLI layers defaults, config file, KINLOG_ environment and CLI
// arguments, in increasing priority
func LoadWithCLI(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix(envPrefix).
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	// A missing file leaves defaults, environment and arguments in effect
	if err != nil && !errors.Is(err, lconfig.ErrConfigNotFound) {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, validateConfig(finalConfig)
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	return envPrefix + env
}

// GetConfigPath resolves the config file from KINLOG_CONFIG_FILE,
// KINLOG_CONFIG_DIR or ~/.config/kinlog.toml
func GetConfigPath() string {
	if configFile := os.Getenv("KINLOG_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("KINLOG_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("KINLOG_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "kinlog.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "kinlog.toml")
	}

	return "kinlog.toml"
}
