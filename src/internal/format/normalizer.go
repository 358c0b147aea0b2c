// FILE: kibanalog/src/internal/format/normalizer.go
package format

import (
	"strings"

	"kibanalog/src/internal/core"
	"kibanalog/src/internal/timestamp"
)

// Normalizer turns raw log entries into canonical records.
type Normalizer struct {
	resolver *timestamp.Resolver
}

// NewNormalizer creates a normalizer resolving timestamps with resolver.
func NewNormalizer(resolver *timestamp.Resolver) *Normalizer {
	if resolver == nil {
		resolver = &timestamp.Resolver{}
	}
	return &Normalizer{resolver: resolver}
}

// Normalize builds the canonical record for entry. It is pure: entry is not modified
// and nothing is logged. Only an empty level is rejected; whitespace is kept as given.
func (n *Normalizer) Normalize(entry core.LogEntry) (core.Record, error) {
	if entry.Level == "" {
		return core.Record{}, &core.FormatError{Reason: "empty level"}
	}

	// Per-entry override beats the capture timestamp
	instant, err := n.resolver.Resolve(entry.Meta.Timestamp, entry.Timestamp)
	if err != nil {
		return core.Record{}, &core.FormatError{Reason: "unresolvable timestamp", Err: err}
	}

	return core.Record{
		Timestamp: timestamp.FormatISO(instant),
		Level:     strings.ToUpper(entry.Level),
		Message:   entry.Message,
		Fields:    entry.Meta.PublicMeta.Clone(),
	}, nil
}
