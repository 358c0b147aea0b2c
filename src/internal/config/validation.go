// FILE: kibanalog/src/internal/config/validation.go
package config

import (
	"fmt"
	"strings"
	"time"

	"kibanalog/src/internal/core"
)

// ValidateConfig is the centralized validator for the entire configuration
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.StatusIntervalSeconds < 0 {
		return fmt.Errorf("status_interval_seconds cannot be negative")
	}

	if err := validateLogConfig(cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := validateSinkConfig(cfg.Sink); err != nil {
		return fmt.Errorf("sink config: %w", err)
	}

	if cfg.Timestamp != nil && cfg.Timestamp.Location != "" {
		switch cfg.Timestamp.Location {
		case "Local", "UTC":
		default:
			if _, err := time.LoadLocation(cfg.Timestamp.Location); err != nil {
				return fmt.Errorf("timestamp config: invalid location '%s': %w", cfg.Timestamp.Location, err)
			}
		}
	}

	if cfg.Ingest != nil {
		if err := validateIngest(cfg.Ingest); err != nil {
			return fmt.Errorf("ingest config: %w", err)
		}
	}

	return nil
}

func validateLogConfig(cfg *LogConfig) error {
	if cfg == nil {
		return fmt.Errorf("missing")
	}

	validOutputs := map[string]bool{
		"stdout": true, "stderr": true, "split": true, "none": true,
	}
	if !validOutputs[cfg.Output] {
		return fmt.Errorf("invalid log output mode: %s", cfg.Output)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	validFormats := map[string]bool{
		"txt": true, "json": true, "": true,
	}
	if !validFormats[cfg.Format] {
		return fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	return nil
}

func validateSinkConfig(cfg *SinkConfig) error {
	if cfg == nil {
		return fmt.Errorf("missing")
	}

	if _, ok := core.LevelRank(cfg.Level); !ok {
		return fmt.Errorf("invalid level: '%s'", cfg.Level)
	}

	switch cfg.ConsoleTarget {
	case "", "stdout", "stderr", "split":
	default:
		return fmt.Errorf("invalid console_target: %s", cfg.ConsoleTarget)
	}

	// Nothing else matters without a file sink
	if strings.TrimSpace(cfg.Directory) == "" {
		return nil
	}

	if strings.TrimSpace(cfg.Filename) == "" {
		return fmt.Errorf("file sink requires 'filename'")
	}
	if strings.ContainsAny(cfg.Filename, `/\`) {
		return fmt.Errorf("filename must not contain a path separator: %s", cfg.Filename)
	}

	switch cfg.Compression {
	case "", "gzip", "zstd":
	default:
		return fmt.Errorf("invalid compression: %s (valid: gzip, zstd)", cfg.Compression)
	}

	return nil
}

func validateIngest(cfg *IngestConfig) error {
	if cfg.Stdin != nil && cfg.Stdin.Enabled && cfg.Stdin.MaxLineBytes <= 0 {
		return fmt.Errorf("stdin: max_line_bytes must be positive")
	}
	if err := validateHTTPIngest(cfg.HTTP); err != nil {
		return err
	}
	return validateTCPIngest(cfg.TCP)
}

func validateHTTPIngest(h *HTTPIngestConfig) error {
	if h == nil || !h.Enabled {
		return nil
	}

	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("http: invalid port %d", h.Port)
	}
	if !strings.HasPrefix(h.Path, "/") {
		return fmt.Errorf("http: path must start with '/': %s", h.Path)
	}
	if h.MaxBodyBytes <= 0 {
		return fmt.Errorf("http: max_body_bytes must be positive")
	}
	if h.RequestsPerSecond < 0 {
		return fmt.Errorf("http: requests_per_second cannot be negative")
	}
	if h.RequestsPerSecond > 0 && h.Burst < 1 {
		return fmt.Errorf("http: burst must be at least 1 when rate limiting is enabled")
	}
	if h.ReadTimeoutMs < 0 || h.WriteTimeoutMs < 0 {
		return fmt.Errorf("http: timeouts cannot be negative")
	}

	return nil
}

func validateTCPIngest(t *TCPIngestConfig) error {
	if t == nil || !t.Enabled {
		return nil
	}

	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("tcp: invalid port %d", t.Port)
	}
	if t.MaxLineBytes <= 0 {
		return fmt.Errorf("tcp: max_line_bytes must be positive")
	}
	if t.ConnectionsPerSecond < 0 {
		return fmt.Errorf("tcp: connections_per_second cannot be negative")
	}
	if t.ConnectionsPerSecond > 0 && t.Burst < 1 {
		return fmt.Errorf("tcp: burst must be at least 1 when rate limiting is enabled")
	}

	return nil
}
