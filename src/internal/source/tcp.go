// FILE: kibanalog/src/internal/source/tcp.go
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"kibanalog/src/internal/config"
	"kibanalog/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/panjf2000/gnet/v2"
)

const (
	tcpBootTimeout     = 5 * time.Second
	tcpShutdownTimeout = 2 * time.Second
)

var errLineTooLong = errors.New("line exceeds max_line_bytes")

// TCPSource receives newline-delimited entries over plain TCP connections.
// Each line goes through ParseLine, the same as stdin.
type TCPSource struct {
	cfg         config.TCPIngestConfig
	bufferSize  int
	subscribers []chan core.LogEntry
	mu          sync.RWMutex
	engine      gnet.Engine
	booted      chan struct{}
	wg          sync.WaitGroup
	limiter     *ClientLimiter
	stopOnce    sync.Once
	logger      *log.Logger

	// Statistics
	totalEntries   atomic.Uint64
	droppedEntries atomic.Uint64
	invalidEntries atomic.Uint64
	rejectedConns  atomic.Uint64
	activeConns    atomic.Int64
	startTime      time.Time
	lastEntryTime  atomic.Value // time.Time
}

// NewTCPSource creates a TCP ingest listener; it does not listen until Start
func NewTCPSource(cfg config.TCPIngestConfig, logger *log.Logger) (*TCPSource, error) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("tcp source requires a valid port, got %d", cfg.Port)
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = defaultMaxLineBytes
	}
	if logger == nil {
		logger = log.NewLogger()
	}

	t := &TCPSource{
		cfg:        cfg,
		bufferSize: 1000,
		booted:     make(chan struct{}),
		limiter:    NewClientLimiter(cfg.ConnectionsPerSecond, int(cfg.Burst), time.Minute),
		startTime:  time.Now(),
		logger:     logger,
	}
	t.lastEntryTime.Store(time.Time{})
	return t, nil
}

func (t *TCPSource) Subscribe() <-chan core.LogEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan core.LogEntry, t.bufferSize)
	t.subscribers = append(t.subscribers, ch)
	return ch
}

// Start runs the gnet engine and returns once it has booted or failed to bind
func (t *TCPSource) Start() error {
	addr := "tcp://" + t.address()
	gnetLogger := compat.NewGnetAdapter(t.logger, compat.WithFatalHandler(func(msg string) {
		t.logger.Error("msg", "TCP engine fatal error",
			"component", "tcp_source",
			"error", msg)
	}))

	errChan := make(chan error, 1)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		err := gnet.Run(&tcpServer{source: t}, addr,
			gnet.WithLogger(gnetLogger),
			gnet.WithMulticore(true),
			gnet.WithReusePort(true),
		)
		if err != nil {
			t.logger.Error("msg", "TCP source server failed",
				"component", "tcp_source",
				"address", t.address(),
				"error", err)
		}
		errChan <- err
	}()

	select {
	case <-t.booted:
		t.logger.Info("msg", "TCP source server started",
			"component", "tcp_source",
			"address", t.address(),
			"max_line_bytes", t.cfg.MaxLineBytes)
		return nil
	case err := <-errChan:
		t.limiter.Stop()
		if err == nil {
			err = errors.New("engine exited during startup")
		}
		return fmt.Errorf("tcp source listen on %s: %w", t.address(), err)
	case <-time.After(tcpBootTimeout):
		return fmt.Errorf("tcp source on %s did not start within %s", t.address(), tcpBootTimeout)
	}
}

func (t *TCPSource) Stop() {
	t.stopOnce.Do(func() {
		t.logger.Info("msg", "Stopping TCP source", "component", "tcp_source")

		select {
		case <-t.booted:
			ctx, cancel := context.WithTimeout(context.Background(), tcpShutdownTimeout)
			if err := t.engine.Stop(ctx); err != nil {
				t.logger.Error("msg", "Error stopping TCP engine",
					"component", "tcp_source",
					"error", err)
			}
			cancel()
		default:
		}
		t.limiter.Stop()
		t.wg.Wait()

		// Event loops are gone, nothing publishes any more
		t.mu.Lock()
		for _, ch := range t.subscribers {
			close(ch)
		}
		t.subscribers = nil
		t.mu.Unlock()

		t.logger.Info("msg", "TCP source stopped",
			"component", "tcp_source",
			"total_entries", t.totalEntries.Load())
	})
}

func (t *TCPSource) GetStats() SourceStats {
	lastEntry, _ := t.lastEntryTime.Load().(time.Time)

	return SourceStats{
		Type:           "tcp",
		TotalEntries:   t.totalEntries.Load(),
		DroppedEntries: t.droppedEntries.Load(),
		InvalidEntries: t.invalidEntries.Load(),
		StartTime:      t.startTime,
		LastEntryTime:  lastEntry,
		Details: map[string]any{
			"address":              t.address(),
			"active_connections":   t.activeConns.Load(),
			"rejected_connections": t.rejectedConns.Load(),
			"rate_limit":           t.limiter.GetStats(),
		},
	}
}

func (t *TCPSource) address() string {
	return net.JoinHostPort(t.cfg.Host, strconv.FormatInt(t.cfg.Port, 10))
}

// accept applies the per-address connection limit
func (t *TCPSource) accept(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	if t.limiter.Allow(host) {
		return true
	}
	t.rejectedConns.Add(1)
	return false
}

func (t *TCPSource) handleLine(line []byte) {
	entry, err := ParseLine(line)
	if err != nil {
		t.invalidEntries.Add(1)
		t.logger.Debug("msg", "Invalid log entry",
			"component", "tcp_source",
			"error", err)
		return
	}
	t.publish(entry)
}

// publish delivers without blocking; an event loop never waits on a slow consumer
func (t *TCPSource) publish(entry core.LogEntry) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := time.Now()
	if entry.Timestamp == nil {
		entry.Timestamp = now
	}
	t.totalEntries.Add(1)
	t.lastEntryTime.Store(now)

	for _, ch := range t.subscribers {
		select {
		case ch <- entry:
		default:
			t.droppedEntries.Add(1)
			t.logger.Debug("msg", "Dropped log entry - subscriber buffer full",
				"component", "tcp_source")
		}
	}
}

// lineBuffer accumulates one connection's bytes and yields complete lines
type lineBuffer struct {
	buf     bytes.Buffer
	maxLine int
}

// feed appends data and returns the complete, non-blank lines it closes without terminators.
// Lines found before an oversized one are still returned alongside errLineTooLong.
func (b *lineBuffer) feed(data []byte) ([][]byte, error) {
	b.buf.Write(data)

	var lines [][]byte
	for {
		idx := bytes.IndexByte(b.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimRight(b.buf.Next(idx+1), "\r\n")
		if len(line) > b.maxLine {
			return lines, errLineTooLong
		}
		if len(bytes.TrimSpace(line)) > 0 {
			lines = append(lines, bytes.Clone(line))
		}
	}

	if b.buf.Len() > b.maxLine {
		return lines, errLineTooLong
	}
	return lines, nil
}

// rest drains an unterminated final line
func (b *lineBuffer) rest() []byte {
	line := bytes.TrimRight(b.buf.Bytes(), "\r\n")
	b.buf.Reset()
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}
	return bytes.Clone(line)
}

// tcpServer handles gnet events for a TCPSource
type tcpServer struct {
	gnet.BuiltinEventEngine
	source *TCPSource
}

func (s *tcpServer) OnBoot(eng gnet.Engine) gnet.Action {
	s.source.engine = eng
	close(s.source.booted)
	return gnet.None
}

func (s *tcpServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	remoteAddr := c.RemoteAddr().String()
	if !s.source.accept(remoteAddr) {
		s.source.logger.Warn("msg", "TCP connection rate limited",
			"component", "tcp_source",
			"remote_addr", remoteAddr)
		return nil, gnet.Close
	}

	c.SetContext(&lineBuffer{maxLine: int(s.source.cfg.MaxLineBytes)})
	active := s.source.activeConns.Add(1)
	s.source.logger.Debug("msg", "TCP connection opened",
		"component", "tcp_source",
		"remote_addr", remoteAddr,
		"active_connections", active)
	return nil, gnet.None
}

func (s *tcpServer) OnClose(c gnet.Conn, err error) gnet.Action {
	lb, ok := c.Context().(*lineBuffer)
	if !ok {
		// Rejected in OnOpen
		return gnet.None
	}
	if last := lb.rest(); last != nil {
		s.source.handleLine(last)
	}

	active := s.source.activeConns.Add(-1)
	s.source.logger.Debug("msg", "TCP connection closed",
		"component", "tcp_source",
		"remote_addr", c.RemoteAddr().String(),
		"active_connections", active,
		"error", err)
	return gnet.None
}

func (s *tcpServer) OnTraffic(c gnet.Conn) gnet.Action {
	lb, ok := c.Context().(*lineBuffer)
	if !ok {
		return gnet.Close
	}

	data, err := c.Next(-1)
	if err != nil {
		s.source.logger.Error("msg", "Error reading from connection",
			"component", "tcp_source",
			"error", err)
		return gnet.Close
	}

	lines, err := lb.feed(data)
	for _, line := range lines {
		s.source.handleLine(line)
	}
	if err != nil {
		s.source.invalidEntries.Add(1)
		s.source.logger.Warn("msg", "Closing connection",
			"component", "tcp_source",
			"remote_addr", c.RemoteAddr().String(),
			"error", err)
		// The oversized remainder is not an entry
		lb.buf.Reset()
		return gnet.Close
	}
	return gnet.None
}
