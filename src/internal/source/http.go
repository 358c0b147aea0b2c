// FILE: kibanalog/src/internal/source/http.go
package source

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"kibanalog/src/internal/config"
	"kibanalog/src/internal/core"

	"github.com/goccy/go-json"
	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/valyala/fasthttp"
)

// HTTPSource receives log entries via HTTP POST requests
type HTTPSource struct {
	cfg         config.HTTPIngestConfig
	bufferSize  int
	server      *fasthttp.Server
	listener    net.Listener
	subscribers []chan core.LogEntry
	mu          sync.RWMutex
	wg          sync.WaitGroup
	limiter     *ClientLimiter
	stopOnce    sync.Once
	logger      *log.Logger

	// Statistics
	totalEntries    atomic.Uint64
	droppedEntries  atomic.Uint64
	invalidRequests atomic.Uint64
	limitedRequests atomic.Uint64
	startTime       time.Time
	lastEntryTime   atomic.Value // time.Time
}

// NewHTTPSource creates an ingest endpoint; it does not listen until Start
func NewHTTPSource(cfg config.HTTPIngestConfig, logger *log.Logger) (*HTTPSource, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("http source requires a valid port, got %d", cfg.Port)
	}
	if cfg.Path == "" {
		cfg.Path = "/log"
	}

	if logger == nil {
		logger = log.NewLogger()
	}

	h := &HTTPSource{
		cfg:        cfg,
		bufferSize: 1000,
		limiter:    NewClientLimiter(cfg.RequestsPerSecond, int(cfg.Burst), time.Minute),
		startTime:  time.Now(),
		logger:     logger,
	}
	h.lastEntryTime.Store(time.Time{})
	return h, nil
}

func (h *HTTPSource) Subscribe() <-chan core.LogEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan core.LogEntry, h.bufferSize)
	h.subscribers = append(h.subscribers, ch)
	return ch
}

// Start binds the listener synchronously so address errors surface here
func (h *HTTPSource) Start() error {
	h.server = &fasthttp.Server{
		Handler:            h.requestHandler,
		Name:               "kibanalog",
		MaxRequestBodySize: int(h.cfg.MaxBodyBytes),
		ReadTimeout:        time.Duration(h.cfg.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout:       time.Duration(h.cfg.WriteTimeoutMs) * time.Millisecond,
		CloseOnShutdown:    true,
		Logger:             compat.NewFastHTTPAdapter(h.logger),
	}

	addr := net.JoinHostPort(h.cfg.Host, fmt.Sprintf("%d", h.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		h.limiter.Stop()
		return fmt.Errorf("http source listen on %s: %w", addr, err)
	}
	h.listener = ln

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.logger.Info("msg", "HTTP source server starting",
			"component", "http_source",
			"address", ln.Addr().String(),
			"path", h.cfg.Path)

		if err := h.server.Serve(ln); err != nil {
			h.logger.Error("msg", "HTTP source server failed",
				"component", "http_source",
				"address", ln.Addr().String(),
				"error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (h *HTTPSource) Addr() string {
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *HTTPSource) Stop() {
	h.stopOnce.Do(func() {
		h.logger.Info("msg", "Stopping HTTP source", "component", "http_source")

		if h.server != nil {
			if err := h.server.Shutdown(); err != nil {
				h.logger.Error("msg", "Error shutting down HTTP source server",
					"component", "http_source",
					"error", err)
			}
		}
		h.limiter.Stop()
		h.wg.Wait()

		// Handlers have returned, nothing publishes any more
		h.mu.Lock()
		for _, ch := range h.subscribers {
			close(ch)
		}
		h.subscribers = nil
		h.mu.Unlock()

		h.logger.Info("msg", "HTTP source stopped", "component", "http_source")
	})
}

func (h *HTTPSource) GetStats() SourceStats {
	lastEntry, _ := h.lastEntryTime.Load().(time.Time)

	return SourceStats{
		Type:           "http",
		TotalEntries:   h.totalEntries.Load(),
		DroppedEntries: h.droppedEntries.Load(),
		InvalidEntries: h.invalidRequests.Load(),
		StartTime:      h.startTime,
		LastEntryTime:  lastEntry,
		Details: map[string]any{
			"address":          h.Addr(),
			"path":             h.cfg.Path,
			"limited_requests": h.limitedRequests.Load(),
			"rate_limit":       h.limiter.GetStats(),
		},
	}
}

func (h *HTTPSource) requestHandler(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() || string(ctx.Path()) != h.cfg.Path {
		h.respond(ctx, fasthttp.StatusNotFound, map[string]string{
			"error": "Not Found",
			"hint":  fmt.Sprintf("POST logs to %s", h.cfg.Path),
		})
		return
	}

	if !h.limiter.Allow(ctx.RemoteIP().String()) {
		h.limitedRequests.Add(1)
		ctx.Response.Header.Set("Retry-After", "1")
		h.respond(ctx, fasthttp.StatusTooManyRequests, map[string]string{
			"error": "Rate limit exceeded",
		})
		return
	}

	entries, err := ParseBody(ctx.PostBody())
	if err != nil {
		h.invalidRequests.Add(1)
		h.respond(ctx, fasthttp.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("Invalid log format: %v", err),
		})
		return
	}

	accepted := 0
	for _, entry := range entries {
		if h.publish(entry) {
			accepted++
		}
	}

	h.respond(ctx, fasthttp.StatusAccepted, map[string]any{
		"accepted": accepted,
		"total":    len(entries),
	})
}

func (h *HTTPSource) respond(ctx *fasthttp.RequestCtx, status int, body any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(body); err != nil {
		h.logger.Debug("msg", "Failed to write response",
			"component", "http_source",
			"error", err)
	}
}

// publish delivers without blocking; a full subscriber drops the entry
func (h *HTTPSource) publish(entry core.LogEntry) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := time.Now()
	if entry.Timestamp == nil {
		entry.Timestamp = now
	}
	h.totalEntries.Add(1)
	h.lastEntryTime.Store(now)

	delivered := len(h.subscribers) > 0
	for _, ch := range h.subscribers {
		select {
		case ch <- entry:
		default:
			delivered = false
			h.droppedEntries.Add(1)
		}
	}

	if !delivered {
		h.logger.Debug("msg", "Dropped log entry - subscriber buffer full",
			"component", "http_source")
	}
	return delivered
}
