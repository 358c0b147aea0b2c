// FILE: kibanalog/src/cmd/kibanalog/bootstrap.go
package main

import (
	"fmt"

	"kibanalog/src/internal/config"
	"kibanalog/src/internal/logging"
	"kibanalog/src/internal/source"

	"github.com/lixenwraith/log"
)

// initializeLogger sets up the diagnostic logger based on configuration
func initializeLogger(cfg *config.Config, quiet bool) error {
	logger = log.NewLogger()

	overrides, err := loggerOverrides(cfg.Logging, quiet)
	if err != nil {
		return err
	}
	if err := logger.ApplyConfigString(overrides...); err != nil {
		return err
	}
	return logger.Start()
}

// loggerOverrides maps the [logging] section onto key=value logger settings
func loggerOverrides(lc *config.LogConfig, quiet bool) ([]string, error) {
	// Diagnostics never go to a file of their own
	overrides := []string{"disable_file=true"}

	if quiet {
		return append(overrides, "enable_console=false"), nil
	}

	levelValue, err := parseLogLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	overrides = append(overrides, fmt.Sprintf("level=%d", levelValue))

	switch lc.Output {
	case "none":
		overrides = append(overrides, "enable_console=false")
	case "stdout", "stderr", "split":
		overrides = append(overrides,
			"enable_console=true",
			"console_target="+lc.Output)
	default:
		return nil, fmt.Errorf("invalid log output mode: %s", lc.Output)
	}

	if lc.Format != "" {
		overrides = append(overrides, "format="+lc.Format)
	}
	return overrides, nil
}

// bootstrapHandle builds the logger handle call sites and sources emit through
func bootstrapHandle(cfg *config.Config) (*logging.Logger, error) {
	handle, err := logging.New(cfg.Sink, cfg.Timestamp, logger, logging.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger handle: %w", err)
	}

	stats := handle.Stats()
	logger.Info("msg", "Logger handle ready",
		"component", "main",
		"level", cfg.Sink.Level,
		"sinks", len(stats.Dispatch.Sinks),
		"degraded", stats.Dispatch.Degraded)
	return handle, nil
}

// createSources builds the enabled input adapters; stdin, when present, is returned separately
func createSources(cfg *config.Config) ([]source.Source, *source.StdinSource, error) {
	var sources []source.Source
	var stdin *source.StdinSource

	if cfg.Ingest.Stdin != nil && cfg.Ingest.Stdin.Enabled {
		stdin = source.NewStdinSource(cfg.Ingest.Stdin, nil, logger)
		sources = append(sources, stdin)
	}

	if cfg.Ingest.HTTP != nil && cfg.Ingest.HTTP.Enabled {
		httpSrc, err := source.NewHTTPSource(*cfg.Ingest.HTTP, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create http source: %w", err)
		}
		sources = append(sources, httpSrc)

		logger.Info("msg", "HTTP ingest endpoint configured",
			"component", "main",
			"listen", fmt.Sprintf("%s:%d", cfg.Ingest.HTTP.Host, cfg.Ingest.HTTP.Port),
			"path", cfg.Ingest.HTTP.Path,
			"requests_per_second", cfg.Ingest.HTTP.RequestsPerSecond,
			"burst", cfg.Ingest.HTTP.Burst)
	}

	if cfg.Ingest.TCP != nil && cfg.Ingest.TCP.Enabled {
		tcpSrc, err := source.NewTCPSource(*cfg.Ingest.TCP, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create tcp source: %w", err)
		}
		sources = append(sources, tcpSrc)

		logger.Info("msg", "TCP ingest listener configured",
			"component", "main",
			"listen", fmt.Sprintf("%s:%d", cfg.Ingest.TCP.Host, cfg.Ingest.TCP.Port),
			"connections_per_second", cfg.Ingest.TCP.ConnectionsPerSecond)
	}

	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("no ingest sources enabled")
	}
	return sources, stdin, nil
}
