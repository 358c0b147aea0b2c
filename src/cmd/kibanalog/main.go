// FILE: kibanalog/src/cmd/kibanalog/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kibanalog/src/internal/config"
	"kibanalog/src/internal/core"
	"kibanalog/src/internal/logging"
	"kibanalog/src/internal/version"

	"github.com/lixenwraith/log"
	"golang.org/x/sync/errgroup"
)

// Diagnostic logger of the process itself
var logger *log.Logger

// Operator-facing messages, outside the diagnostic logger
var out = userOutput{stdout: os.Stdout, stderr: os.Stderr}

// userOutput prints to the terminal; -quiet silences everything but fatal errors
type userOutput struct {
	quiet  bool
	stdout io.Writer
	stderr io.Writer
}

func (o userOutput) printf(format string, args ...any) {
	if !o.quiet {
		fmt.Fprintf(o.stdout, format, args...)
	}
}

func (o userOutput) errorf(format string, args ...any) {
	if !o.quiet {
		fmt.Fprintf(o.stderr, format, args...)
	}
}

func (o userOutput) fatalf(code int, format string, args ...any) {
	fmt.Fprintf(o.stderr, format, args...)
	os.Exit(code)
}

func main() {
	flagCfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out.quiet = flagCfg.Quiet

	if flagCfg.ShowVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if flagCfg.ConfigFile != "" {
		os.Setenv("KIBANALOG_CONFIG_FILE", flagCfg.ConfigFile)
	}

	cfg, err := config.Load(flagCfg.Overrides())
	if err != nil {
		if flagCfg.ConfigFile != "" && strings.Contains(err.Error(), "not found") {
			out.fatalf(2, "Config file not found: %s\n", flagCfg.ConfigFile)
		}
		out.fatalf(1, "Failed to load config: %v\n", err)
	}

	if flagCfg.WriteConfig != "" {
		if err := cfg.SaveToFile(flagCfg.WriteConfig); err != nil {
			out.fatalf(1, "Failed to write config: %v\n", err)
		}
		out.printf("Configuration written to %s\n", flagCfg.WriteConfig)
		os.Exit(0)
	}

	if err := initializeLogger(cfg, flagCfg.Quiet); err != nil {
		out.fatalf(1, "Failed to initialize logger: %v\n", err)
	}

	logger.Info("msg", "kibanalog starting",
		"component", "main",
		"version", version.String(),
		"config_file", config.GetConfigPath(),
		"directory", cfg.Sink.Directory)

	code := 0
	if err := run(cfg); err != nil {
		logger.Error("msg", "kibanalog failed", "component", "main", "error", err)
		out.errorf("Error: %v\n", err)
		code = 1
	}

	shutdownLogger()
	os.Exit(code)
}

// run wires sources to the logger handle and blocks until a signal or the end of stdin
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handle, err := bootstrapHandle(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := handle.Close(); err != nil {
			logger.Error("msg", "Error closing sinks", "component", "main", "error", err)
		}
	}()

	sources, stdin, err := createSources(cfg)
	if err != nil {
		return err
	}

	// Subscribe before starting so nothing is published into the void
	channels := make([]<-chan core.LogEntry, len(sources))
	for i, src := range sources {
		channels[i] = src.Subscribe()
	}
	for i, src := range sources {
		if err := src.Start(); err != nil {
			for _, started := range sources[:i] {
				started.Stop()
			}
			return err
		}
	}

	done := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)

	for _, ch := range channels {
		g.Go(func() error {
			pump(ch, handle, done)
			return nil
		})
	}

	if cfg.StatusIntervalSeconds > 0 {
		g.Go(func() error {
			statusReporter(handle, sources, time.Duration(cfg.StatusIntervalSeconds)*time.Second, done)
			return nil
		})
	}

	g.Go(func() error {
		// Stdin EOF ends the process only when it is the sole source
		var exhausted <-chan struct{}
		if stdin != nil && len(sources) == 1 {
			exhausted = stdin.Finished()
		}

		select {
		case <-gctx.Done():
			logger.Info("msg", "Shutdown signal received, starting graceful shutdown", "component", "main")
		case <-exhausted:
			logger.Info("msg", "Input exhausted, shutting down", "component", "main")
		}

		for _, src := range sources {
			src.Stop()
		}
		close(done)
		return nil
	})

	waitErr := make(chan error, 1)
	go func() { waitErr <- g.Wait() }()

	select {
	case err := <-waitErr:
		if err == nil {
			logger.Info("msg", "Shutdown complete", "component", "main")
		}
		return err
	case <-shutdownDeadline(ctx, 10*time.Second):
		logger.Error("msg", "Shutdown timeout exceeded", "component", "main")
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

// shutdownDeadline fires timeout after ctx is cancelled
func shutdownDeadline(ctx context.Context, timeout time.Duration) <-chan struct{} {
	fired := make(chan struct{})
	go func() {
		<-ctx.Done()
		time.Sleep(timeout)
		close(fired)
	}()
	return fired
}

// pump emits entries until the source closes its channel or shutdown drains what is buffered
func pump(ch <-chan core.LogEntry, handle *logging.Logger, done <-chan struct{}) {
	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return
			}
			emit(handle, entry)
		case <-done:
			for {
				select {
				case entry, ok := <-ch:
					if !ok {
						return
					}
					emit(handle, entry)
				default:
					return
				}
			}
		}
	}
}

func emit(handle *logging.Logger, entry core.LogEntry) {
	if err := handle.Emit(entry); err != nil {
		logger.Warn("msg", "Entry not delivered", "component", "main", "error", err)
	}
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			out.errorf("Logger shutdown error: %v\n", err)
		}
	}
}
