// FILE: kibanalog/src/internal/logging/logger.go
package logging

import (
	"sync/atomic"
	"time"

	"kibanalog/src/internal/config"
	"kibanalog/src/internal/core"
	"kibanalog/src/internal/dispatch"
	"kibanalog/src/internal/format"
	"kibanalog/src/internal/timestamp"

	"github.com/lixenwraith/log"
)

// Options carries the injectable collaborators of a Logger
type Options struct {
	// Now supplies capture timestamps, time.Now when nil
	Now func() time.Time

	// OnError receives dropped entries and sink failures
	OnError dispatch.ErrorHandler

	// Console streams, process streams when nil
	Dispatch dispatch.Options
}

// Logger is the handle call sites log through. It is built once at startup and passed explicitly.
type Logger struct {
	level      string
	now        func() time.Time
	normalizer *format.Normalizer
	dispatcher *dispatch.Dispatcher
	diag       *log.Logger

	totalAccepted atomic.Uint64
	totalFiltered atomic.Uint64
	totalDropped  atomic.Uint64
}

// Stats summarizes the handle and its sinks
type Stats struct {
	Accepted uint64
	Filtered uint64
	Dropped  uint64
	Dispatch dispatch.Stats
}

// New wires resolver, normalizer and dispatcher from configuration.
// diag receives the pipeline's own diagnostics.
func New(sinkCfg *config.SinkConfig, tsCfg *config.TimestampConfig, diag *log.Logger, opts Options) (*Logger, error) {
	if diag == nil {
		diag = log.NewLogger()
	}
	if sinkCfg == nil {
		sinkCfg = config.DefaultSinkConfig()
	}

	location := ""
	if tsCfg != nil {
		location = tsCfg.Location
	}
	resolver, err := timestamp.NewResolver(location)
	if err != nil {
		return nil, err
	}

	dispatchOpts := opts.Dispatch
	if opts.OnError != nil {
		dispatchOpts.OnError = opts.OnError
	}
	dispatcher, err := dispatch.New(sinkCfg, diag, dispatchOpts)
	if err != nil {
		return nil, err
	}

	return NewWithDispatcher(sinkCfg.Level, resolver, dispatcher, diag, opts.Now), nil
}

// NewWithDispatcher builds a handle over an existing dispatcher
func NewWithDispatcher(level string, resolver *timestamp.Resolver, dispatcher *dispatch.Dispatcher, diag *log.Logger, now func() time.Time) *Logger {
	if now == nil {
		now = time.Now
	}
	if diag == nil {
		diag = log.NewLogger()
	}
	return &Logger{
		level:      level,
		now:        now,
		normalizer: format.NewNormalizer(resolver),
		dispatcher: dispatcher,
		diag:       diag,
	}
}

// Log emits one entry. meta may carry "timestamp" and "publicMeta"; other keys are ignored.
// Entries that cannot be formatted are reported and dropped. The only returned error is
// *core.SinkClosedError after Close.
func (l *Logger) Log(level string, message any, meta map[string]any) error {
	m, err := core.MetaFromMap(meta)
	if err != nil {
		l.drop(&core.FormatError{Reason: "invalid meta", Err: err})
		return nil
	}
	return l.Emit(core.LogEntry{
		Level:   level,
		Message: message,
		Meta:    m,
	})
}

// Emit runs a prepared entry through the pipeline. A missing capture timestamp is taken from the clock.
func (l *Logger) Emit(entry core.LogEntry) error {
	if !core.LevelEnabled(l.level, entry.Level) {
		l.totalFiltered.Add(1)
		return nil
	}

	if entry.Timestamp == nil {
		entry.Timestamp = l.now()
	}

	record, err := l.normalizer.Normalize(entry)
	if err != nil {
		l.drop(err)
		return nil
	}
	entry.Meta.PublicMeta.Each(func(k string, _ any) {
		if core.IsFixedKey(k) {
			l.diag.Debug("msg", "Ignoring publicMeta field shadowing a record key",
				"component", "logger",
				"field", k)
		}
	})

	if err := l.dispatcher.Dispatch(record); err != nil {
		return err
	}
	l.totalAccepted.Add(1)
	return nil
}

func (l *Logger) drop(err error) {
	l.totalDropped.Add(1)
	l.dispatcher.Report(err)
}

func (l *Logger) Error(message any, meta map[string]any) error {
	return l.Log(core.LevelError, message, meta)
}

func (l *Logger) Warn(message any, meta map[string]any) error {
	return l.Log(core.LevelWarn, message, meta)
}

func (l *Logger) Info(message any, meta map[string]any) error {
	return l.Log(core.LevelInfo, message, meta)
}

func (l *Logger) HTTP(message any, meta map[string]any) error {
	return l.Log(core.LevelHTTP, message, meta)
}

func (l *Logger) Verbose(message any, meta map[string]any) error {
	return l.Log(core.LevelVerbose, message, meta)
}

func (l *Logger) Debug(message any, meta map[string]any) error {
	return l.Log(core.LevelDebug, message, meta)
}

func (l *Logger) Silly(message any, meta map[string]any) error {
	return l.Log(core.LevelSilly, message, meta)
}

// Stats returns entry counters and sink statistics
func (l *Logger) Stats() Stats {
	return Stats{
		Accepted: l.totalAccepted.Load(),
		Filtered: l.totalFiltered.Load(),
		Dropped:  l.totalDropped.Load(),
		Dispatch: l.dispatcher.GetStats(),
	}
}

// Close flushes and closes every sink. Later calls to Log fail with *core.SinkClosedError.
func (l *Logger) Close() error {
	return l.dispatcher.Close()
}
