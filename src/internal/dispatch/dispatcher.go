// FILE: kibanalog/src/internal/dispatch/dispatcher.go
package dispatch

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"kibanalog/src/internal/config"
	"kibanalog/src/internal/core"
	"kibanalog/src/internal/format"
	"kibanalog/src/internal/sink"

	"github.com/lixenwraith/log"
)

// ErrorHandler receives every contained failure: format, sink IO, degraded mode.
type ErrorHandler func(error)

// Options carries collaborators that are not part of the sink configuration
type Options struct {
	// Console streams, os.Stdout and os.Stderr when nil
	Stdout io.Writer
	Stderr io.Writer

	// OnError replaces the default handler, which reports to the diagnostic logger
	OnError ErrorHandler
}

// Dispatcher fans serialized records out to a fixed list of sinks, console first.
type Dispatcher struct {
	sinks    []sink.Sink
	onError  ErrorHandler
	logger   *log.Logger
	degraded bool

	mu     sync.RWMutex
	closed bool

	startTime        time.Time
	totalDispatched  atomic.Uint64
	totalSinkErrors  atomic.Uint64
	lastDispatchTime atomic.Value // time.Time
}

// Stats summarizes the dispatcher and its sinks
type Stats struct {
	StartTime       time.Time
	TotalDispatched uint64
	SinkErrors      uint64
	LastDispatch    time.Time
	Degraded        bool
	Sinks           []sink.SinkStats
}

// New builds the sink set from cfg: console always, rotating file iff a directory is configured.
// A file sink that cannot be created is reported and skipped; the dispatcher then runs console-only.
func New(cfg *config.SinkConfig, logger *log.Logger, opts Options) (*Dispatcher, error) {
	if cfg == nil {
		cfg = config.DefaultSinkConfig()
	}
	if logger == nil {
		logger = log.NewLogger()
	}

	d := newDispatcher(logger, opts.OnError)

	console, err := sink.NewConsoleSink(sink.ConsoleConfig{
		Target: cfg.ConsoleTarget,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create console sink: %w", err)
	}
	d.sinks = append(d.sinks, console)

	if cfg.Directory != "" {
		fileSink, err := sink.NewFileSink(sink.FileConfig{
			Directory:        cfg.Directory,
			Filename:         cfg.Filename,
			MaxFileSizeBytes: cfg.MaxFileSizeBytes,
			MaxFiles:         int(cfg.MaxFiles),
			Tailable:         cfg.Tailable,
			ArchiveOnRotate:  cfg.ArchiveOnRotate,
			Compression:      cfg.Compression,
		}, logger)
		if err != nil {
			d.degraded = true
			logger.Warn("msg", "File sink unavailable, continuing with console only",
				"component", "dispatcher",
				"directory", cfg.Directory,
				"error", err)
			d.report(err)
		} else {
			d.sinks = append(d.sinks, fileSink)
		}
	}

	logger.Info("msg", "Dispatcher created",
		"component", "dispatcher",
		"sinks", len(d.sinks),
		"degraded", d.degraded)
	return d, nil
}

// NewWithSinks builds a dispatcher over an explicit sink list, in dispatch order
func NewWithSinks(sinks []sink.Sink, logger *log.Logger, onError ErrorHandler) *Dispatcher {
	d := newDispatcher(logger, onError)
	d.sinks = append(d.sinks, sinks...)
	return d
}

func newDispatcher(logger *log.Logger, onError ErrorHandler) *Dispatcher {
	if logger == nil {
		logger = log.NewLogger()
	}
	d := &Dispatcher{
		logger:    logger,
		startTime: time.Now(),
	}
	if onError == nil {
		onError = d.logError
	}
	d.onError = onError
	d.lastDispatchTime.Store(time.Time{})
	return d
}

func (d *Dispatcher) logError(err error) {
	d.logger.Error("msg", "Logging pipeline error",
		"component", "dispatcher",
		"error", err)
}

// Dispatch serializes record once and writes it to every sink in order.
// Per-sink failures go to the error handler; only a closed dispatcher returns an error.
func (d *Dispatcher) Dispatch(record core.Record) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return &core.SinkClosedError{Sink: "dispatcher"}
	}

	line := format.Encode(record)
	for _, s := range d.sinks {
		if err := d.write(s, record.Level, line); err != nil {
			d.totalSinkErrors.Add(1)
			d.report(err)
		}
	}

	d.totalDispatched.Add(1)
	d.lastDispatchTime.Store(time.Now())
	return nil
}

// write isolates one sink so a panic cannot reach the caller or the next sink
func (d *Dispatcher) write(s sink.Sink, level string, line []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.SinkIOError{Sink: s.Kind().String(), Op: "write", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return s.Write(level, line)
}

// Report hands an error to the handler, recovering from a panicking handler.
func (d *Dispatcher) Report(err error) {
	d.report(err)
}

func (d *Dispatcher) report(err error) {
	if err == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("msg", "Error handler panicked",
				"component", "dispatcher",
				"panic", r,
				"error", err)
		}
	}()
	d.onError(err)
}

// Close tears all sinks down in order. Repeated calls are no-ops.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	d.logger.Info("msg", "Dispatcher closed",
		"component", "dispatcher",
		"total_dispatched", d.totalDispatched.Load())
	return errors.Join(errs...)
}

// Sinks returns the active sinks in dispatch order
func (d *Dispatcher) Sinks() []sink.Sink {
	out := make([]sink.Sink, len(d.sinks))
	copy(out, d.sinks)
	return out
}

// Degraded reports whether a configured file sink could not be created
func (d *Dispatcher) Degraded() bool {
	return d.degraded
}

func (d *Dispatcher) GetStats() Stats {
	lastDispatch, _ := d.lastDispatchTime.Load().(time.Time)

	stats := Stats{
		StartTime:       d.startTime,
		TotalDispatched: d.totalDispatched.Load(),
		SinkErrors:      d.totalSinkErrors.Load(),
		LastDispatch:    lastDispatch,
		Degraded:        d.degraded,
	}
	for _, s := range d.sinks {
		stats.Sinks = append(stats.Sinks, s.GetStats())
	}
	return stats
}
