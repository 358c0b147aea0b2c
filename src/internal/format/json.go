// FILE: kibanalog/src/internal/format/json.go
package format

import (
	"kibanalog/src/internal/core"

	"github.com/goccy/go-json"
)

// Encode serializes record as one line of JSON, terminated by a newline.
// Keys are written in wire order: @timestamp, level, message, then publicMeta.
// Values that cannot be represented in JSON are replaced, never rejected.
func Encode(record core.Record) []byte {
	buf := make([]byte, 0, 256)
	buf = appendObject(buf, flatten(record))
	return append(buf, '\n')
}

func flatten(record core.Record) object {
	flat := record.Flatten()
	out := make(object, 0, flat.Len())
	flat.Each(func(k string, v any) {
		out = append(out, member{key: k, value: Sanitize(v)})
	})
	return out
}

func appendObject(buf []byte, o object) []byte {
	buf = append(buf, '{')
	for i, m := range o {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendValue(buf, m.key)
		buf = append(buf, ':')
		buf = appendValue(buf, m.value)
	}
	return append(buf, '}')
}

func appendValue(buf []byte, v any) []byte {
	if o, ok := v.(object); ok {
		return appendObject(buf, o)
	}
	out, err := json.Marshal(v)
	if err != nil {
		// Sanitized trees only hold plain values; this is the last line of defence
		out, _ = json.Marshal(unserializablePlaceholder)
	}
	return append(buf, out...)
}
