// FILE: kibanalog/src/cmd/kibanalog/flags.go
package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/lixenwraith/log"
)

// FlagConfig holds command-line options; config overrides are applied through the config loader
type FlagConfig struct {
	ConfigFile  string
	WriteConfig string
	ShowVersion bool
	Quiet       bool

	// Diagnostic logging
	LogOutput string
	LogLevel  string

	// Sink overrides
	Level         string
	Directory     string
	Filename      string
	ConsoleTarget string

	// Ingest overrides
	NoStdin  bool
	HTTPPort int64
	TCPPort  int64
}

func newFlagSet(fc *FlagConfig, errOut io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("kibanalog", flag.ContinueOnError)
	fs.SetOutput(errOut)

	// General flags
	fs.StringVar(&fc.ConfigFile, "config", "", "Config file path")
	fs.StringVar(&fc.WriteConfig, "write-config", "", "Write the effective configuration to this path and exit")
	fs.BoolVar(&fc.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&fc.Quiet, "quiet", false, "Suppress all diagnostic output")

	// Diagnostic logging flags
	fs.StringVar(&fc.LogOutput, "log-output", "", "Diagnostic output: stdout, stderr, split, none (overrides config)")
	fs.StringVar(&fc.LogLevel, "log-level", "", "Diagnostic level: debug, info, warn, error (overrides config)")

	// Sink flags
	fs.StringVar(&fc.Level, "level", "", "Most verbose entry level written: error .. silly (overrides config)")
	fs.StringVar(&fc.Directory, "dir", "", "Log file directory; enables the rotating file sink")
	fs.StringVar(&fc.Filename, "filename", "", "Log file base name")
	fs.StringVar(&fc.ConsoleTarget, "console", "", "Console target: stdout, stderr, split")

	// Ingest flags
	fs.BoolVar(&fc.NoStdin, "no-stdin", false, "Do not read entries from standard input")
	fs.Int64Var(&fc.HTTPPort, "http-port", 0, "Enable the HTTP ingest endpoint on this port")
	fs.Int64Var(&fc.TCPPort, "tcp-port", 0, "Enable the TCP line ingest listener on this port")

	fs.Usage = func() { customUsage(fs, errOut) }
	return fs
}

func customUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, "kibanalog - structured JSON log front-end for log indexing backends\n\n")
	fmt.Fprintf(w, "Usage: kibanalog [options]\n\n")
	fmt.Fprintf(w, "Options:\n")
	fs.PrintDefaults()

	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  # Format JSON lines from a program to stdout\n")
	fmt.Fprintf(w, "  app | kibanalog\n\n")
	fmt.Fprintf(w, "  # Also write rotating files\n")
	fmt.Fprintf(w, "  app | kibanalog --dir /var/log/app --filename app.log\n\n")
	fmt.Fprintf(w, "  # Accept entries over HTTP only\n")
	fmt.Fprintf(w, "  kibanalog --no-stdin --http-port 8088\n\n")
	fmt.Fprintf(w, "  # Accept JSON lines over TCP alongside stdin\n")
	fmt.Fprintf(w, "  app | kibanalog --tcp-port 8089\n\n")

	fmt.Fprintf(w, "Environment Variables:\n")
	fmt.Fprintf(w, "  KIBANALOG_CONFIG_FILE  Config file path\n")
	fmt.Fprintf(w, "  KIBANALOG_CONFIG_DIR   Config directory\n")
	fmt.Fprintf(w, "  KIBANALOG_<SECTION>_<KEY>  Any config key, e.g. KIBANALOG_SINK_DIRECTORY\n")
}

// parseFlags parses and validates args, without the program name
func parseFlags(args []string, errOut io.Writer) (*FlagConfig, error) {
	fc := &FlagConfig{}
	fs := newFlagSet(fc, errOut)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fc.LogOutput != "" {
		validOutputs := map[string]bool{
			"stdout": true, "stderr": true, "split": true, "none": true,
		}
		if !validOutputs[fc.LogOutput] {
			return nil, fmt.Errorf("invalid log-output: %s (valid: stdout, stderr, split, none)", fc.LogOutput)
		}
	}

	if fc.LogLevel != "" {
		if _, err := parseLogLevel(fc.LogLevel); err != nil {
			return nil, fmt.Errorf("invalid log-level: %s (valid: debug, info, warn, error)", fc.LogLevel)
		}
	}

	if fc.HTTPPort < 0 || fc.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid http-port: %d", fc.HTTPPort)
	}
	if fc.TCPPort < 0 || fc.TCPPort > 65535 {
		return nil, fmt.Errorf("invalid tcp-port: %d", fc.TCPPort)
	}

	return fc, nil
}

// Overrides renders set flags as config loader arguments
func (fc *FlagConfig) Overrides() []string {
	var args []string
	add := func(key, value string) {
		if value != "" {
			args = append(args, fmt.Sprintf("--%s=%s", key, value))
		}
	}

	add("logging.output", fc.LogOutput)
	add("logging.level", fc.LogLevel)
	add("sink.level", fc.Level)
	add("sink.directory", fc.Directory)
	add("sink.filename", fc.Filename)
	add("sink.console_target", fc.ConsoleTarget)
	if fc.NoStdin {
		add("ingest.stdin.enabled", "false")
	}
	if fc.HTTPPort > 0 {
		add("ingest.http.enabled", "true")
		add("ingest.http.port", fmt.Sprintf("%d", fc.HTTPPort))
	}
	if fc.TCPPort > 0 {
		add("ingest.tcp.enabled", "true")
		add("ingest.tcp.port", fmt.Sprintf("%d", fc.TCPPort))
	}
	return args
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
