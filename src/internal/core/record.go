// FILE: kibanalog/src/internal/core/record.go
package core

// Canonical record keys. They always win over publicMeta entries of the same name.
const (
	KeyTimestamp = "@timestamp"
	KeyLevel     = "level"
	KeyMessage   = "message"
)

// IsFixedKey reports whether key is one of the canonical record keys.
func IsFixedKey(key string) bool {
	return key == KeyTimestamp || key == KeyLevel || key == KeyMessage
}

// Record is the canonical, indexable form of a LogEntry.
// Fields never contains a fixed key.
type Record struct {
	Timestamp string // ISO8601, UTC, millisecond precision
	Level     string // uppercase
	Message   any
	Fields    Fields
}

// Flatten returns the record as one ordered mapping in wire order.
func (r Record) Flatten() Fields {
	var out Fields
	out.Set(KeyTimestamp, r.Timestamp)
	out.Set(KeyLevel, r.Level)
	out.Set(KeyMessage, r.Message)
	r.Fields.Each(func(k string, v any) {
		if !IsFixedKey(k) {
			out.Set(k, v)
		}
	})
	return out
}
