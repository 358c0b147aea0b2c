// FILE: kibanalog/src/internal/core/fields.go
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Field is one key/value pair of an ordered mapping.
type Field struct {
	Key   string
	Value any
}

// Fields is an insertion-ordered mapping with unique keys.
// The zero value is an empty mapping ready to use. Copies share storage, use Clone
// before mutating a mapping you do not own.
type Fields struct {
	list  []Field
	index map[string]int
}

// FieldsFromMap builds Fields from a Go map. Go maps carry no order, so keys are sorted.
func FieldsFromMap(m map[string]any) Fields {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var f Fields
	for _, k := range keys {
		f.Set(k, m[k])
	}
	return f
}

// Set inserts key or replaces its value in place.
func (f *Fields) Set(key string, value any) {
	if f.index == nil {
		f.index = make(map[string]int)
	}
	if i, ok := f.index[key]; ok {
		f.list[i].Value = value
		return
	}
	f.index[key] = len(f.list)
	f.list = append(f.list, Field{Key: key, Value: value})
}

func (f Fields) Get(key string) (any, bool) {
	i, ok := f.index[key]
	if !ok {
		return nil, false
	}
	return f.list[i].Value, true
}

func (f Fields) Len() int {
	return len(f.list)
}

// Each calls fn for every pair in insertion order.
func (f Fields) Each(fn func(key string, value any)) {
	for _, field := range f.list {
		fn(field.Key, field.Value)
	}
}

// Clone returns a shallow copy; values are shared.
func (f Fields) Clone() Fields {
	var out Fields
	for _, field := range f.list {
		out.Set(field.Key, field.Value)
	}
	return out
}

// MarshalJSON writes the pairs in insertion order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f.list {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order. Nested objects become
// Fields as well; numbers are kept as json.Number.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return err
	}
	fields, ok := v.(Fields)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*f = fields
	return nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		var obj Fields
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := make([]any, 0)
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}
