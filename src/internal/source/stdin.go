// FILE: kibanalog/src/internal/source/stdin.go
package source

import (
	"bufio"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"kibanalog/src/internal/config"
	"kibanalog/src/internal/core"

	"github.com/lixenwraith/log"
)

const defaultMaxLineBytes = 1024 * 1024

// StdinSource reads one entry per line: a JSON entry, or plain text logged at info.
// Delivery blocks, so a slow consumer slows the reader instead of losing lines.
type StdinSource struct {
	reader       io.Reader
	maxLineBytes int
	subscribers  []chan core.LogEntry
	done         chan struct{}
	finished     chan struct{}
	stopOnce     sync.Once
	startTime    time.Time
	logger       *log.Logger

	// Statistics
	totalEntries   atomic.Uint64
	droppedEntries atomic.Uint64
	invalidEntries atomic.Uint64
	lastEntryTime  atomic.Value // time.Time
}

// NewStdinSource creates a line source over reader, os.Stdin when nil
func NewStdinSource(cfg *config.StdinIngestConfig, reader io.Reader, logger *log.Logger) *StdinSource {
	maxLine := defaultMaxLineBytes
	if cfg != nil && cfg.MaxLineBytes > 0 {
		maxLine = int(cfg.MaxLineBytes)
	}
	if reader == nil {
		reader = os.Stdin
	}
	if logger == nil {
		logger = log.NewLogger()
	}

	s := &StdinSource{
		reader:       reader,
		maxLineBytes: maxLine,
		done:         make(chan struct{}),
		finished:     make(chan struct{}),
		startTime:    time.Now(),
		logger:       logger,
	}
	s.lastEntryTime.Store(time.Time{})
	return s
}

func (s *StdinSource) Subscribe() <-chan core.LogEntry {
	ch := make(chan core.LogEntry, 64)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

func (s *StdinSource) Start() error {
	go s.readLoop()
	s.logger.Info("msg", "Stdin source started", "component", "stdin_source")
	return nil
}

// Finished is closed once the input is exhausted or the source is stopped
func (s *StdinSource) Finished() <-chan struct{} {
	return s.finished
}

func (s *StdinSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.logger.Info("msg", "Stdin source stopped", "component", "stdin_source")
	})
}

func (s *StdinSource) GetStats() SourceStats {
	lastEntry, _ := s.lastEntryTime.Load().(time.Time)

	return SourceStats{
		Type:           "stdin",
		TotalEntries:   s.totalEntries.Load(),
		DroppedEntries: s.droppedEntries.Load(),
		InvalidEntries: s.invalidEntries.Load(),
		StartTime:      s.startTime,
		LastEntryTime:  lastEntry,
		Details: map[string]any{
			"max_line_bytes": s.maxLineBytes,
		},
	}
}

// readLoop owns the subscriber channels and closes them on exit
func (s *StdinSource) readLoop() {
	defer func() {
		for _, ch := range s.subscribers {
			close(ch)
		}
		close(s.finished)
	}()

	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), s.maxLineBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		entry, err := ParseLine(line)
		if err != nil {
			s.invalidEntries.Add(1)
			s.logger.Warn("msg", "Invalid log entry on stdin",
				"component", "stdin_source",
				"error", err)
			continue
		}

		if !s.publish(entry) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.logger.Error("msg", "Scanner error reading stdin",
			"component", "stdin_source",
			"error", err)
	}
}

func (s *StdinSource) publish(entry core.LogEntry) bool {
	now := time.Now()
	if entry.Timestamp == nil {
		entry.Timestamp = now
	}
	s.totalEntries.Add(1)
	s.lastEntryTime.Store(now)

	for _, ch := range s.subscribers {
		select {
		case ch <- entry:
		case <-s.done:
			s.droppedEntries.Add(1)
			return false
		}
	}
	return true
}
