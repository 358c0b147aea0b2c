// FILE: kibanalog/src/internal/sink/sink.go
package sink

import (
	"time"
)

// Kind enumerates the supported sink variants.
type Kind int

const (
	KindConsole Kind = iota
	KindRotatingFile
)

func (k Kind) String() string {
	switch k {
	case KindConsole:
		return "console"
	case KindRotatingFile:
		return "file"
	default:
		return "unknown"
	}
}

// Sink represents an output destination for serialized records
type Sink interface {
	// Kind returns the sink variant
	Kind() Kind

	// Write delivers one serialized record. level is the record's uppercase level.
	Write(level string, line []byte) error

	// Close flushes and tears the sink down; later writes fail with *core.SinkClosedError
	Close() error

	// GetStats returns sink statistics
	GetStats() SinkStats
}

// SinkStats contains statistics about a sink
type SinkStats struct {
	Type           string
	TotalProcessed uint64
	TotalBytes     uint64
	Errors         uint64
	Rotations      uint64
	StartTime      time.Time
	LastProcessed  time.Time
	Details        map[string]any
}
