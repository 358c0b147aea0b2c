// FILE: kibanalog/src/internal/timestamp/resolver_test.go
package timestamp

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"kibanalog/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUTCResolver() *Resolver {
	return &Resolver{Location: time.UTC}
}

func TestResolver_Parse(t *testing.T) {
	r := newUTCResolver()
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	tests := []struct {
		name  string
		input any
	}{
		{"Int64Millis", int64(1700000000000)},
		{"IntMillis", 1700000000000},
		{"Float64Millis", float64(1700000000000)},
		{"FractionalMillisTruncate", 1700000000000.9},
		{"JSONNumber", json.Number("1700000000000")},
		{"Uint64Millis", uint64(1700000000000)},
		{"RFC3339", "2023-11-14T22:13:20Z"},
		{"RFC3339Millis", "2023-11-14T22:13:20.000Z"},
		{"RFC3339Offset", "2023-11-14T23:13:20+01:00"},
		{"SpaceSeparated", "2023-11-14 22:13:20"},
		{"CommaMillis", "2023-11-14 22:13:20,000"},
		{"RFC1123", "Tue, 14 Nov 2023 22:13:20 GMT"},
		{"RFC1123Z", "Tue, 14 Nov 2023 22:13:20 +0000"},
		{"PaddedString", "  2023-11-14T22:13:20Z  "},
		{"TimeValue", want},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Parse(tt.input)
			require.True(t, ok, "Parse(%v) should be valid", tt.input)
			assert.True(t, want.Equal(got), "Parse(%v) = %v, want %v", tt.input, got, want)
		})
	}
}

func TestResolver_ParseInvalid(t *testing.T) {
	r := newUTCResolver()

	tests := []struct {
		name  string
		input any
	}{
		{"Nil", nil},
		{"EmptyString", ""},
		{"Garbage", "not a date"},
		{"NaN", math.NaN()},
		{"Inf", math.Inf(1)},
		{"ZeroTime", time.Time{}},
		{"Bool", true},
		{"Map", map[string]any{"a": 1}},
		{"BeyondYear9999", int64(253402300800000)},
		{"BadJSONNumber", json.Number("1e999")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := r.Parse(tt.input)
			assert.False(t, ok, "Parse(%v) should be invalid", tt.input)
		})
	}
}

func TestResolver_NumericZeroIsEpoch(t *testing.T) {
	got, ok := newUTCResolver().Parse(0)
	require.True(t, ok)
	assert.Equal(t, "1970-01-01T00:00:00.000Z", FormatISO(got))
}

func TestResolver_Resolve(t *testing.T) {
	r := newUTCResolver()
	capture := time.Date(2024, 1, 15, 10, 30, 45, 123000000, time.UTC)

	t.Run("CandidateWins", func(t *testing.T) {
		got, err := r.Resolve(int64(1700000000000), capture)
		require.NoError(t, err)
		assert.Equal(t, "2023-11-14T22:13:20.000Z", FormatISO(got))
	})

	t.Run("InvalidCandidateFallsThrough", func(t *testing.T) {
		for _, candidate := range []any{nil, "garbage", math.NaN(), ""} {
			got, err := r.Resolve(candidate, capture)
			require.NoError(t, err)

			alone, ok := r.Parse(capture)
			require.True(t, ok)
			assert.True(t, alone.Equal(got))
		}
	})

	t.Run("NeitherValid", func(t *testing.T) {
		_, err := r.Resolve("garbage", nil)
		require.Error(t, err)

		var tsErr *core.TimestampError
		assert.True(t, errors.As(err, &tsErr))
	})
}

func TestResolver_NaiveLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	r := &Resolver{Location: tokyo}

	got, ok := r.Parse("2024-01-15 09:00:00")
	require.True(t, ok)
	assert.Equal(t, "2024-01-15T00:00:00.000Z", FormatISO(got))

	// Explicit offsets ignore the configured location
	got, ok = r.Parse("2024-01-15T09:00:00Z")
	require.True(t, ok)
	assert.Equal(t, "2024-01-15T09:00:00.000Z", FormatISO(got))
}

func TestResolver_DateOnlyIsUTC(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	r := &Resolver{Location: newYork}

	tests := []struct {
		input string
		want  string
	}{
		{"2023-11-14", "2023-11-14T00:00:00.000Z"},
		{"2023-11", "2023-11-01T00:00:00.000Z"},
		{"2023", "2023-01-01T00:00:00.000Z"},
		// A time of day without offset still follows the location
		{"2023-11-14T00:00:00", "2023-11-14T05:00:00.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := r.Parse(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, FormatISO(got))
		})
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = LoadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = LoadLocation("Not/AZone")
	assert.Error(t, err)
}

func TestFormatISO(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 45, 123456789, time.FixedZone("X", -5*60*60))
	assert.Equal(t, "2024-01-15T15:30:45.123Z", FormatISO(ts))
}
