// FILE: kibanalog/src/internal/source/source.go
package source

import (
	"time"

	"kibanalog/src/internal/core"
)

// Source feeds raw log entries to the logger handle
type Source interface {
	// Subscribe returns a channel of entries. Call before Start.
	Subscribe() <-chan core.LogEntry

	// Start begins reading from the source
	Start() error

	// Stop gracefully shuts down the source
	Stop()

	// GetStats returns source statistics
	GetStats() SourceStats
}

// SourceStats contains statistics about a source
type SourceStats struct {
	Type           string
	TotalEntries   uint64
	DroppedEntries uint64
	InvalidEntries uint64
	StartTime      time.Time
	LastEntryTime  time.Time
	Details        map[string]any
}
