// FILE: kibanalog/src/internal/sink/console.go
package sink

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"kibanalog/src/internal/core"

	"github.com/lixenwraith/log"
)

// Console targets
const (
	TargetStdout = "stdout"
	TargetStderr = "stderr"
	TargetSplit  = "split" // ERROR/WARN to stderr, everything else to stdout
)

// ConsoleConfig holds configuration for the console sink
type ConsoleConfig struct {
	Target string
	Stdout io.Writer // defaults to os.Stdout
	Stderr io.Writer // defaults to os.Stderr
}

// ConsoleSink writes records to the process streams
type ConsoleSink struct {
	mu        sync.Mutex
	config    ConsoleConfig
	closed    bool
	startTime time.Time
	logger    *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	totalBytes     atomic.Uint64
	errors         atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewConsoleSink creates a new console sink
func NewConsoleSink(config ConsoleConfig, logger *log.Logger) (*ConsoleSink, error) {
	if logger == nil {
		logger = log.NewLogger()
	}
	if config.Target == "" {
		config.Target = TargetStdout
	}
	switch config.Target {
	case TargetStdout, TargetStderr, TargetSplit:
	default:
		return nil, fmt.Errorf("invalid console target: %s", config.Target)
	}
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}
	if config.Stderr == nil {
		config.Stderr = os.Stderr
	}

	s := &ConsoleSink{
		config:    config,
		startTime: time.Now(),
		logger:    logger,
	}
	s.lastProcessed.Store(time.Time{})

	logger.Debug("msg", "Console sink created",
		"component", "console_sink",
		"target", config.Target)
	return s, nil
}

func (s *ConsoleSink) Kind() Kind {
	return KindConsole
}

func (s *ConsoleSink) Write(level string, line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &core.SinkClosedError{Sink: KindConsole.String()}
	}

	n, err := s.writerFor(level).Write(line)
	s.totalBytes.Add(uint64(n))
	if err != nil {
		s.errors.Add(1)
		return &core.SinkIOError{Sink: KindConsole.String(), Op: "write", Err: err}
	}

	s.totalProcessed.Add(1)
	s.lastProcessed.Store(time.Now())
	return nil
}

func (s *ConsoleSink) writerFor(level string) io.Writer {
	switch s.config.Target {
	case TargetStderr:
		return s.config.Stderr
	case TargetSplit:
		if level == "ERROR" || level == "WARN" || level == "WARNING" {
			return s.config.Stderr
		}
	}
	return s.config.Stdout
}

// Close stops accepting writes. The process streams themselves stay open.
func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("msg", "Console sink closed", "component", "console_sink")
	return nil
}

func (s *ConsoleSink) GetStats() SinkStats {
	lastProc, _ := s.lastProcessed.Load().(time.Time)

	return SinkStats{
		Type:           KindConsole.String(),
		TotalProcessed: s.totalProcessed.Load(),
		TotalBytes:     s.totalBytes.Load(),
		Errors:         s.errors.Load(),
		StartTime:      s.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"target": s.config.Target,
		},
	}
}
