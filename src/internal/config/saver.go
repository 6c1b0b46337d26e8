// FILE: src/internal/config/saver.go
package config

import (
	"fmt"

	lconfig "github.com/lixenwraith/config"
)

// SaveToFile writes the configuration as TOML
func (c *Config) SaveToFile(path string) error {
	if path == "" {
		return fmt.Errorf("cannot save config: path is empty")
	}

	lcfg, err := lconfig.NewBuilder().
		WithFile(path).
		WithTarget(c).
		WithFileFormat("toml").
		Build()
	if err != nil {
		return fmt.Errorf("failed to create config builder: %w", err)
	}

	if err := lcfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}
