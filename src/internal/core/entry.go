// FILE: kibanalog/src/internal/core/entry.go
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LogEntry is a single log call handed to the pipeline. It is not modified once emitted.
type LogEntry struct {
	Level     string
	Timestamp any // capture time: time.Time, epoch milliseconds, or a date string
	Message   any
	Meta      Meta
}

// Meta holds the metadata keys recognised by the normalizer.
type Meta struct {
	// Timestamp overrides the capture timestamp when it resolves to a valid instant
	Timestamp any
	// PublicMeta is flattened into the top level of the canonical record
	PublicMeta Fields
	// Extra carries unrecognised meta keys, ignored by the core
	Extra map[string]any
}

// MetaFromMap splits a loose metadata mapping into the recognised keys.
func MetaFromMap(m map[string]any) (Meta, error) {
	var meta Meta
	for k, v := range m {
		switch k {
		case "timestamp":
			meta.Timestamp = v
		case "publicMeta":
			fields, err := fieldsFrom(v)
			if err != nil {
				return Meta{}, err
			}
			meta.PublicMeta = fields
		default:
			if meta.Extra == nil {
				meta.Extra = make(map[string]any)
			}
			meta.Extra[k] = v
		}
	}
	return meta, nil
}

func fieldsFrom(v any) (Fields, error) {
	switch pm := v.(type) {
	case nil:
		return Fields{}, nil
	case Fields:
		return pm.Clone(), nil
	case map[string]any:
		return FieldsFromMap(pm), nil
	default:
		return Fields{}, fmt.Errorf("publicMeta must be an object, got %T", v)
	}
}

// wireEntry is the JSON shape accepted from collaborators
type wireEntry struct {
	Level     *string         `json:"level"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
	Meta      json.RawMessage `json:"meta,omitempty"`
}

type wireMeta struct {
	Timestamp  json.RawMessage `json:"timestamp,omitempty"`
	PublicMeta json.RawMessage `json:"publicMeta,omitempty"`
}

// ParseEntry decodes one JSON log entry and validates its shape.
// publicMeta key order is preserved; numbers are kept as json.Number.
func ParseEntry(data []byte) (LogEntry, error) {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return LogEntry{}, fmt.Errorf("invalid entry: %w", err)
	}
	if w.Level == nil {
		return LogEntry{}, fmt.Errorf("missing required field: level")
	}

	entry := LogEntry{Level: *w.Level}

	var err error
	if entry.Timestamp, err = decodeAny(w.Timestamp); err != nil {
		return LogEntry{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	if entry.Message, err = decodeAny(w.Message); err != nil {
		return LogEntry{}, fmt.Errorf("invalid message: %w", err)
	}

	if isAbsent(w.Meta) {
		return entry, nil
	}
	if !isObject(w.Meta) {
		return LogEntry{}, fmt.Errorf("meta must be an object")
	}

	var wm wireMeta
	if err := json.Unmarshal(w.Meta, &wm); err != nil {
		return LogEntry{}, fmt.Errorf("invalid meta: %w", err)
	}
	if entry.Meta.Timestamp, err = decodeAny(wm.Timestamp); err != nil {
		return LogEntry{}, fmt.Errorf("invalid meta.timestamp: %w", err)
	}
	if !isAbsent(wm.PublicMeta) {
		if !isObject(wm.PublicMeta) {
			return LogEntry{}, fmt.Errorf("meta.publicMeta must be an object")
		}
		if err := json.Unmarshal(wm.PublicMeta, &entry.Meta.PublicMeta); err != nil {
			return LogEntry{}, fmt.Errorf("invalid meta.publicMeta: %w", err)
		}
	}

	var extra map[string]json.RawMessage
	if err := json.Unmarshal(w.Meta, &extra); err != nil {
		return LogEntry{}, fmt.Errorf("invalid meta: %w", err)
	}
	delete(extra, "timestamp")
	delete(extra, "publicMeta")
	for k, raw := range extra {
		v, err := decodeAny(raw)
		if err != nil {
			return LogEntry{}, fmt.Errorf("invalid meta.%s: %w", k, err)
		}
		if entry.Meta.Extra == nil {
			entry.Meta.Extra = make(map[string]any, len(extra))
		}
		entry.Meta.Extra[k] = v
	}

	return entry, nil
}

func decodeAny(raw json.RawMessage) (any, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return decodeValue(dec)
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
