// FILE: kibanalog/src/internal/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

const envPrefix = "KIBANALOG_"

// Load reads defaults, then the TOML file, then KIBANALOG_* environment, then CLI overrides.
// A missing config file is not an error.
func Load(cliArgs []string) (*Config, error) {
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

	if err != nil {
		if !errors.Is(err, lconfig.ErrConfigNotFound) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		// Only a file the user asked for has to exist
		if os.Getenv(envPrefix+"CONFIG_FILE") != "" {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	finalConfig.fillMissing()
	return finalConfig, ValidateConfig(finalConfig)
}

// fillMissing restores defaults for sections a file left out entirely
func (c *Config) fillMissing() {
	d := defaults()
	if c.Logging == nil {
		c.Logging = d.Logging
	}
	if c.Sink == nil {
		c.Sink = d.Sink
	}
	if c.Timestamp == nil {
		c.Timestamp = d.Timestamp
	}
	if c.Ingest == nil {
		c.Ingest = d.Ingest
	}
	if c.Ingest.Stdin == nil {
		c.Ingest.Stdin = d.Ingest.Stdin
	}
	if c.Ingest.HTTP == nil {
		c.Ingest.HTTP = d.Ingest.HTTP
	}
	if c.Ingest.TCP == nil {
		c.Ingest.TCP = d.Ingest.TCP
	}
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = envPrefix + env
	return env
}

// GetConfigPath resolves the config file from KIBANALOG_CONFIG_FILE and KIBANALOG_CONFIG_DIR
func GetConfigPath() string {
	if configFile := os.Getenv(envPrefix + "CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv(envPrefix + "CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv(envPrefix + "CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "kibanalog.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "kibanalog.toml")
	}

	return "kibanalog.toml"
}
