// FILE: kibanalog/src/internal/core/entry_test.go
package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntry(t *testing.T) {
	t.Run("FullEntry", func(t *testing.T) {
		data := `{"level":"error","message":"boom","meta":{"timestamp":1700000000000,"publicMeta":{"userId":42,"route":"/a"},"requestId":"r-1"}}`

		entry, err := ParseEntry([]byte(data))
		require.NoError(t, err)

		assert.Equal(t, "error", entry.Level)
		assert.Equal(t, "boom", entry.Message)
		assert.Equal(t, json.Number("1700000000000"), entry.Meta.Timestamp)
		assert.Equal(t, 2, entry.Meta.PublicMeta.Len())

		userID, ok := entry.Meta.PublicMeta.Get("userId")
		require.True(t, ok)
		assert.Equal(t, json.Number("42"), userID)
		assert.Equal(t, "r-1", entry.Meta.Extra["requestId"])
	})

	t.Run("PublicMetaKeepsOrder", func(t *testing.T) {
		data := `{"level":"info","meta":{"publicMeta":{"zeta":1,"alpha":2,"mid":3}}}`

		entry, err := ParseEntry([]byte(data))
		require.NoError(t, err)

		var keys []string
		entry.Meta.PublicMeta.Each(func(k string, _ any) { keys = append(keys, k) })
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)
	})

	t.Run("NoMeta", func(t *testing.T) {
		entry, err := ParseEntry([]byte(`{"level":"warn","message":{"nested":true}}`))
		require.NoError(t, err)
		assert.Equal(t, 0, entry.Meta.PublicMeta.Len())
		assert.Nil(t, entry.Meta.Timestamp)

		msg, ok := entry.Message.(Fields)
		require.True(t, ok, "object messages decode into ordered fields")
		v, _ := msg.Get("nested")
		assert.Equal(t, true, v)
	})

	testCases := []struct {
		name string
		data string
	}{
		{"NotJSON", `level=info`},
		{"MissingLevel", `{"message":"x"}`},
		{"LevelNotString", `{"level":3}`},
		{"MetaNotObject", `{"level":"info","meta":[1,2]}`},
		{"PublicMetaNotObject", `{"level":"info","meta":{"publicMeta":"nope"}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseEntry([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestMetaFromMap(t *testing.T) {
	meta, err := MetaFromMap(map[string]any{
		"timestamp":  "2024-01-15T10:30:45Z",
		"publicMeta": map[string]any{"b": 2, "a": 1},
		"other":      true,
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-01-15T10:30:45Z", meta.Timestamp)
	assert.Equal(t, 2, meta.PublicMeta.Len())
	assert.Equal(t, true, meta.Extra["other"])

	_, err = MetaFromMap(map[string]any{"publicMeta": 7})
	assert.Error(t, err)
}

func TestErrorTaxonomy(t *testing.T) {
	closed := &SinkClosedError{Sink: "file"}
	assert.True(t, errors.Is(closed, ErrSinkClosed))

	ioErr := &SinkIOError{Sink: "file", Op: "write", Err: errors.New("disk full")}
	assert.Contains(t, ioErr.Error(), "disk full")

	tsErr := &TimestampError{Candidate: "x", Fallback: nil}
	fmtErr := &FormatError{Reason: "unresolvable timestamp", Err: tsErr}

	var target *TimestampError
	assert.True(t, errors.As(fmtErr, &target))
}
