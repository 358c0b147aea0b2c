// FILE: kibanalog/src/internal/source/parse.go
package source

import (
	"bytes"
	"encoding/json"
	"fmt"

	"kibanalog/src/internal/core"
)

// ParseLine turns one input line into an entry. A line that is not a JSON object
// becomes an info entry with the line as its message; a JSON object must be a valid entry.
func ParseLine(line []byte) (core.LogEntry, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
		return core.ParseEntry(trimmed)
	}
	return core.LogEntry{
		Level:   core.LevelInfo,
		Message: string(line),
	}, nil
}

// ParseBody decodes a request body holding one JSON entry, a JSON array of entries,
// or newline-delimited entries.
func ParseBody(body []byte) ([]core.LogEntry, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	switch trimmed[0] {
	case '[':
		var raws []json.RawMessage
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("invalid array: %w", err)
		}
		entries := make([]core.LogEntry, 0, len(raws))
		for i, raw := range raws {
			entry, err := core.ParseEntry(raw)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			entries = append(entries, entry)
		}
		if len(entries) == 0 {
			return nil, fmt.Errorf("no log entries found")
		}
		return entries, nil

	case '{':
		// A single object, or several objects one per line
		if entry, err := core.ParseEntry(trimmed); err == nil {
			return []core.LogEntry{entry}, nil
		}
		return parseLines(trimmed)

	default:
		return nil, fmt.Errorf("body must be a JSON object or array")
	}
}

func parseLines(data []byte) ([]core.LogEntry, error) {
	var entries []core.LogEntry
	for i, line := range splitLines(data) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		entry, err := core.ParseEntry(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no log entries found")
	}
	return entries, nil
}

// splitLines splits bytes into lines, handling both \n and \r\n
func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0

	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			end := i
			if i > 0 && data[i-1] == '\r' {
				end = i - 1
			}
			lines = append(lines, data[start:end])
			start = i + 1
		}
	}

	if start < len(data) {
		lines = append(lines, data[start:])
	}

	return lines
}
