// FILE: kibanalog/src/internal/format/normalizer_test.go
package format

import (
	"errors"
	"testing"
	"time"

	"kibanalog/src/internal/core"
	"kibanalog/src/internal/timestamp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(&timestamp.Resolver{Location: time.UTC})
}

func TestNormalizer_Normalize(t *testing.T) {
	n := newTestNormalizer()
	capture := time.Date(2024, 1, 15, 10, 30, 45, 123000000, time.UTC)

	t.Run("Scenario", func(t *testing.T) {
		var pm core.Fields
		pm.Set("userId", 42)
		entry := core.LogEntry{
			Level:     "error",
			Timestamp: capture,
			Message:   "boom",
			Meta:      core.Meta{Timestamp: int64(1700000000000), PublicMeta: pm},
		}

		record, err := n.Normalize(entry)
		require.NoError(t, err)

		assert.Equal(t, "2023-11-14T22:13:20.000Z", record.Timestamp)
		assert.Equal(t, "ERROR", record.Level)
		assert.Equal(t, "boom", record.Message)
		assert.Equal(t, `{"@timestamp":"2023-11-14T22:13:20.000Z","level":"ERROR","message":"boom","userId":42}`+"\n",
			string(Encode(record)))
	})

	t.Run("CaptureTimestampFallback", func(t *testing.T) {
		entry := core.LogEntry{Level: "info", Timestamp: capture, Message: "m",
			Meta: core.Meta{Timestamp: "not a date"}}

		record, err := n.Normalize(entry)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-15T10:30:45.123Z", record.Timestamp)
	})

	t.Run("FixedKeysWin", func(t *testing.T) {
		var pm core.Fields
		pm.Set("level", "spoofed")
		pm.Set("@timestamp", "spoofed")
		pm.Set("message", "spoofed")
		entry := core.LogEntry{Level: "info", Timestamp: capture, Message: "m",
			Meta: core.Meta{PublicMeta: pm}}

		record, err := n.Normalize(entry)
		require.NoError(t, err)

		out := string(Encode(record))
		assert.Equal(t, `{"@timestamp":"2024-01-15T10:30:45.123Z","level":"INFO","message":"m"}`+"\n", out)
		assert.NotContains(t, out, "spoofed")
	})

	t.Run("DoesNotMutateEntry", func(t *testing.T) {
		var pm core.Fields
		pm.Set("a", 1)
		entry := core.LogEntry{Level: "info", Timestamp: capture, Meta: core.Meta{PublicMeta: pm}}

		record, err := n.Normalize(entry)
		require.NoError(t, err)
		record.Fields.Set("b", 2)

		assert.Equal(t, 1, entry.Meta.PublicMeta.Len())
	})

	t.Run("Idempotent", func(t *testing.T) {
		var pm core.Fields
		pm.Set("z", []any{1, "two"})
		pm.Set("a", map[string]any{"k": "v"})
		entry := core.LogEntry{Level: "warn", Timestamp: capture, Message: map[string]any{"x": 1},
			Meta: core.Meta{PublicMeta: pm}}

		first, err := n.Normalize(entry)
		require.NoError(t, err)
		second, err := n.Normalize(entry)
		require.NoError(t, err)

		assert.Equal(t, Encode(first), Encode(second))
	})

	t.Run("WhitespaceLevelKept", func(t *testing.T) {
		record, err := n.Normalize(core.LogEntry{Level: " warn ", Timestamp: capture})
		require.NoError(t, err)
		assert.Equal(t, " WARN ", record.Level)

		record, err = n.Normalize(core.LogEntry{Level: "   ", Timestamp: capture})
		require.NoError(t, err)
		assert.Equal(t, "   ", record.Level)
	})

	t.Run("OrdinalUppercase", func(t *testing.T) {
		record, err := n.Normalize(core.LogEntry{Level: "verbose", Timestamp: capture})
		require.NoError(t, err)
		assert.Equal(t, "VERBOSE", record.Level)
	})
}

func TestNormalizer_Errors(t *testing.T) {
	n := newTestNormalizer()

	testCases := []struct {
		name  string
		entry core.LogEntry
	}{
		{"EmptyLevel", core.LogEntry{Level: "", Timestamp: time.Now()}},
		{"NoValidTimestamp", core.LogEntry{Level: "info", Timestamp: "garbage"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Normalize(tc.entry)
			require.Error(t, err)

			var fmtErr *core.FormatError
			assert.True(t, errors.As(err, &fmtErr))
		})
	}

	t.Run("TimestampErrorWrapped", func(t *testing.T) {
		_, err := n.Normalize(core.LogEntry{Level: "info"})
		var tsErr *core.TimestampError
		assert.True(t, errors.As(err, &tsErr))
	})
}
