// FILE: kibanalog/src/internal/timestamp/resolver.go
package timestamp

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"kibanalog/src/internal/core"
)

// ISOLayout renders instants the way the indexing backend expects: UTC, millisecond precision.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// Layouts carrying their own zone or offset
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05 -0700",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.UnixDate,
	time.RubyDate,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// Date-only ISO forms denote UTC midnight, whatever the configured location
var dateOnlyLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
}

// Layouts without zone information, interpreted in the resolver's location
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05,999999999",
	"2006-01-02",
	time.ANSIC,
	"Jan 2 2006 15:04:05",
	"Jan 2, 2006 15:04:05",
	"2 Jan 2006 15:04:05",
}

// Resolver decides which of two raw timestamps is authoritative.
type Resolver struct {
	// Location applies to strings without zone information
	Location *time.Location
}

// NewResolver returns a resolver for the named zone: "", "Local", "UTC" or an IANA name.
func NewResolver(location string) (*Resolver, error) {
	loc, err := LoadLocation(location)
	if err != nil {
		return nil, err
	}
	return &Resolver{Location: loc}, nil
}

// LoadLocation maps a configured zone name to a location, defaulting to the process zone.
func LoadLocation(name string) (*time.Location, error) {
	switch strings.TrimSpace(name) {
	case "", "Local", "local":
		return time.Local, nil
	case "UTC", "utc":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timestamp location %q: %w", name, err)
	}
	return loc, nil
}

// Resolve returns candidate when it is a valid instant, otherwise fallback.
func (r *Resolver) Resolve(candidate, fallback any) (time.Time, error) {
	if t, ok := r.Parse(candidate); ok {
		return t, nil
	}
	if t, ok := r.Parse(fallback); ok {
		return t, nil
	}
	return time.Time{}, &core.TimestampError{Candidate: candidate, Fallback: fallback}
}

// Parse converts a raw timestamp to an instant. Numbers are milliseconds since the Unix epoch.
func (r *Resolver) Parse(v any) (time.Time, bool) {
	var t time.Time
	var ok bool

	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		t, ok = val, !val.IsZero()
	case *time.Time:
		if val != nil {
			t, ok = *val, !val.IsZero()
		}
	case string:
		t, ok = r.parseString(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return time.Time{}, false
		}
		t, ok = fromMillis(f)
	case float64:
		t, ok = fromMillis(val)
	case float32:
		t, ok = fromMillis(float64(val))
	case int:
		t, ok = time.UnixMilli(int64(val)), true
	case int8:
		t, ok = time.UnixMilli(int64(val)), true
	case int16:
		t, ok = time.UnixMilli(int64(val)), true
	case int32:
		t, ok = time.UnixMilli(int64(val)), true
	case int64:
		t, ok = time.UnixMilli(val), true
	case uint:
		t, ok = fromUnsigned(uint64(val))
	case uint8:
		t, ok = time.UnixMilli(int64(val)), true
	case uint16:
		t, ok = time.UnixMilli(int64(val)), true
	case uint32:
		t, ok = time.UnixMilli(int64(val)), true
	case uint64:
		t, ok = fromUnsigned(val)
	}

	if !ok || !representable(t) {
		return time.Time{}, false
	}
	return t, true
}

func (r *Resolver) location() *time.Location {
	if r == nil || r.Location == nil {
		return time.Local
	}
	return r.Location
}

func (r *Resolver) parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	for _, layout := range dateOnlyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	loc := r.location()
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func fromMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, false
	}
	// Truncate fractional milliseconds toward zero
	ms = math.Trunc(ms)
	if ms >= math.MaxInt64 || ms < math.MinInt64 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}

func fromUnsigned(ms uint64) (time.Time, bool) {
	if ms > math.MaxInt64 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}

// representable reports whether t renders as a four-digit-year ISO8601 string.
func representable(t time.Time) bool {
	y := t.UTC().Year()
	return y >= 0 && y <= 9999
}

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}
