// FILE: kibanalog/src/internal/source/parse_test.go
package source

import (
	"testing"

	"kibanalog/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	t.Run("JSONEntry", func(t *testing.T) {
		entry, err := ParseLine([]byte(`{"level":"warn","message":"disk","meta":{"publicMeta":{"host":"a"}}}`))
		require.NoError(t, err)
		assert.Equal(t, "warn", entry.Level)
		assert.Equal(t, "disk", entry.Message)
		host, ok := entry.Meta.PublicMeta.Get("host")
		require.True(t, ok)
		assert.Equal(t, "a", host)
	})

	t.Run("PlainText", func(t *testing.T) {
		entry, err := ParseLine([]byte("server started on :8080"))
		require.NoError(t, err)
		assert.Equal(t, core.LevelInfo, entry.Level)
		assert.Equal(t, "server started on :8080", entry.Message)
	})

	t.Run("BraceButNotJSON", func(t *testing.T) {
		entry, err := ParseLine([]byte("{not json"))
		require.NoError(t, err)
		assert.Equal(t, "{not json", entry.Message)
	})

	t.Run("JSONWithoutLevel", func(t *testing.T) {
		_, err := ParseLine([]byte(`{"message":"x"}`))
		assert.Error(t, err)
	})
}

func TestParseBody(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		count   int
		wantErr bool
	}{
		{"SingleObject", `{"level":"info","message":"a"}`, 1, false},
		{"Array", `[{"level":"info","message":"a"},{"level":"error","message":"b"}]`, 2, false},
		{"NDJSON", "{\"level\":\"info\",\"message\":\"a\"}\n{\"level\":\"info\",\"message\":\"b\"}\r\n\n{\"level\":\"debug\"}", 3, false},
		{"Empty", "  ", 0, true},
		{"EmptyArray", `[]`, 0, true},
		{"Scalar", `42`, 0, true},
		{"ArrayWithBadEntry", `[{"level":"info"},{"message":"no level"}]`, 0, true},
		{"NDJSONWithBadLine", "{\"level\":\"info\"}\nnot json", 0, true},
		{"MetaNotObject", `{"level":"info","meta":"x"}`, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := ParseBody([]byte(tc.body))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, entries, tc.count)
		})
	}
}

func TestSplitLines(t *testing.T) {
	lines := splitLines([]byte("a\r\nb\nc"))
	require.Len(t, lines, 3)
	assert.Equal(t, "a", string(lines[0]))
	assert.Equal(t, "b", string(lines[1]))
	assert.Equal(t, "c", string(lines[2]))
}
