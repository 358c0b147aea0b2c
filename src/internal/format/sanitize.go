// FILE: kibanalog/src/internal/format/sanitize.go
package format

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"kibanalog/src/internal/core"
)

const (
	circularPlaceholder       = "[Circular]"
	truncatedPlaceholder      = "[Truncated]"
	unserializablePlaceholder = "[Unserializable]"
	maxSanitizeDepth          = 64
)

var (
	timeType          = reflect.TypeOf(time.Time{})
	errorType         = reflect.TypeOf((*error)(nil)).Elem()
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// member is one key/value of an object in output order
type member struct {
	key   string
	value any
}

// object is a JSON object whose members are encoded in order
type object []member

func (o object) MarshalJSON() ([]byte, error) {
	return appendObject(nil, o), nil
}

type refKey struct {
	kind reflect.Kind
	ptr  uintptr
}

type sanitizer struct {
	path map[refKey]bool
}

// Sanitize converts v into a tree of JSON-safe values. Reference cycles are replaced by
// "[Circular]", functions and channels by a type placeholder, and NaN/Inf by null.
// It never panics.
func Sanitize(v any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = unserializablePlaceholder
		}
	}()

	s := sanitizer{path: make(map[refKey]bool)}
	return s.value(reflect.ValueOf(v), 0)
}

func (s *sanitizer) value(v reflect.Value, depth int) any {
	if !v.IsValid() {
		return nil
	}
	if depth > maxSanitizeDepth {
		return truncatedPlaceholder
	}

	if special, ok := s.special(v, depth); ok {
		return special
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return finite(v.Float())
	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(v.Complex())
	case reflect.String:
		return v.String()
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return s.value(v.Elem(), depth)
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return s.enter(refKey{reflect.Pointer, v.Pointer()}, func() any {
			return s.value(v.Elem(), depth+1)
		})
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		return s.enter(refKey{reflect.Map, v.Pointer()}, func() any {
			return s.mapValue(v, depth)
		})
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(v.Bytes())
		}
		if v.Len() == 0 {
			return []any{}
		}
		return s.enter(refKey{reflect.Slice, v.Pointer()}, func() any {
			return s.listValue(v, depth)
		})
	case reflect.Array:
		return s.listValue(v, depth)
	case reflect.Struct:
		return s.structValue(v, depth)
	default:
		// func, chan, unsafe pointer
		return "[" + v.Type().String() + "]"
	}
}

// special handles types with their own JSON or text form
func (s *sanitizer) special(v reflect.Value, depth int) (any, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return nil, false
	}

	switch val := v.Interface().(type) {
	case core.Fields:
		out := make(object, 0, val.Len())
		val.Each(func(k string, item any) {
			out = append(out, member{key: k, value: s.value(reflect.ValueOf(item), depth+1)})
		})
		return out, true
	case json.Number:
		return numberValue(val), true
	case json.RawMessage:
		if json.Valid(val) {
			return val, true
		}
		return string(val), true
	case time.Time:
		return val.Format(time.RFC3339Nano), true
	}

	t := v.Type()
	switch {
	case t.Implements(errorType) && t != timeType:
		return callString(func() string { return v.Interface().(error).Error() }), true
	case t.Implements(jsonMarshalerType):
		raw, err := callMarshal(v.Interface().(json.Marshaler))
		if err != nil || !json.Valid(raw) {
			return unserializablePlaceholder, true
		}
		return json.RawMessage(raw), true
	case t.Implements(textMarshalerType):
		return callString(func() string {
			text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
			if err != nil {
				return unserializablePlaceholder
			}
			return string(text)
		}), true
	}
	return nil, false
}

func (s *sanitizer) enter(key refKey, fn func() any) any {
	if s.path[key] {
		return circularPlaceholder
	}
	s.path[key] = true
	defer delete(s.path, key)
	return fn()
}

func (s *sanitizer) mapValue(v reflect.Value, depth int) any {
	type kv struct {
		key   string
		value reflect.Value
	}
	entries := make([]kv, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		entries = append(entries, kv{key: mapKey(iter.Key()), value: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	out := make(object, 0, len(entries))
	for _, e := range entries {
		out = append(out, member{key: e.key, value: s.value(e.value, depth+1)})
	}
	return out
}

func (s *sanitizer) listValue(v reflect.Value, depth int) any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = s.value(v.Index(i), depth+1)
	}
	return out
}

func (s *sanitizer) structValue(v reflect.Value, depth int) any {
	out := make(object, 0, v.NumField())
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonTag(field)
		if skip {
			continue
		}
		fv := v.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}

		// Untagged embedded structs are flattened like encoding/json does
		if field.Anonymous && name == "" {
			inner := fv
			if inner.Kind() == reflect.Pointer {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct {
				if nested, ok := s.value(fv, depth+1).(object); ok {
					out = append(out, nested...)
					continue
				}
			}
		}

		if name == "" {
			name = field.Name
		}
		out = append(out, member{key: name, value: s.value(fv, depth+1)})
	}
	return out
}

func jsonTag(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	for _, opt := range parts[1:] {
		if opt == "omitempty" || opt == "omitzero" {
			omitEmpty = true
		}
	}
	return parts[0], omitEmpty, false
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	if k.CanInterface() {
		if tm, ok := k.Interface().(encoding.TextMarshaler); ok {
			if text, err := tm.MarshalText(); err == nil {
				return string(text)
			}
		}
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	}
	if k.CanInterface() {
		return fmt.Sprint(k.Interface())
	}
	return k.Type().String()
}

// numberValue keeps integer literals exact; integers beyond int64 are emitted as written
func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if lit := n.String(); !strings.ContainsAny(lit, ".eE") && json.Valid([]byte(lit)) {
		return json.RawMessage(lit)
	}
	if f, err := n.Float64(); err == nil {
		return finite(f)
	}
	return n.String()
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func callMarshal(m json.Marshaler) (raw []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("marshal panic: %v", r)
		}
	}()
	return m.MarshalJSON()
}

func callString(fn func() string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = unserializablePlaceholder
		}
	}()
	return fn()
}
