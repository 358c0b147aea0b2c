// FILE: kibanalog/src/internal/config/saver.go
package config

import (
	"fmt"

	lconfig "github.com/lixenwraith/config"
)

// SaveToFile writes the effective configuration to path as TOML.
// Every registered key is written, defaults included.
func (c *Config) SaveToFile(path string) error {
	if path == "" {
		return fmt.Errorf("write config: empty path")
	}

	snapshot := lconfig.New()
	if err := snapshot.RegisterStruct("", c); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return snapshot.Save(path)
}
