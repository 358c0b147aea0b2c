// FILE: kibanalog/src/cmd/kibanalog/status.go
package main

import (
	"time"

	"kibanalog/src/internal/logging"
	"kibanalog/src/internal/source"
)

// statusReporter periodically logs pipeline counters until done is closed
func statusReporter(handle *logging.Logger, sources []source.Source, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("msg", "Panic in status reporter",
							"component", "status_reporter",
							"panic", r)
					}
				}()
				logStatus(handle, sources)
			}()
		}
	}
}

func logStatus(handle *logging.Logger, sources []source.Source) {
	stats := handle.Stats()

	logger.Debug("msg", "Status report",
		"component", "status_reporter",
		"accepted", stats.Accepted,
		"filtered", stats.Filtered,
		"dropped", stats.Dropped,
		"sink_errors", stats.Dispatch.SinkErrors,
		"degraded", stats.Dispatch.Degraded)

	for _, s := range stats.Dispatch.Sinks {
		fields := []any{
			"msg", "Sink status",
			"component", "status_reporter",
			"sink", s.Type,
			"written", s.TotalProcessed,
			"bytes", s.TotalBytes,
			"errors", s.Errors,
		}
		if s.Rotations > 0 {
			fields = append(fields, "rotations", s.Rotations)
		}
		if path, ok := s.Details["path"].(string); ok {
			fields = append(fields, "path", path)
		}
		logger.Debug(fields...)
	}

	for _, src := range sources {
		st := src.GetStats()
		logger.Debug("msg", "Source status",
			"component", "status_reporter",
			"source", st.Type,
			"entries", st.TotalEntries,
			"dropped", st.DroppedEntries,
			"invalid", st.InvalidEntries)
	}

	if stats.Dispatch.Degraded {
		logger.Warn("msg", "Running console-only, file sink unavailable",
			"component", "status_reporter")
	}
}
