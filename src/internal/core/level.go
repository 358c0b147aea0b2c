// FILE: kibanalog/src/internal/core/level.go
package core

import "strings"

// Entry levels, most to least severe
const (
	LevelError   = "error"
	LevelWarn    = "warn"
	LevelInfo    = "info"
	LevelHTTP    = "http"
	LevelVerbose = "verbose"
	LevelDebug   = "debug"
	LevelSilly   = "silly"
)

var levelRanks = map[string]int{
	LevelError:   0,
	LevelWarn:    1,
	LevelInfo:    2,
	LevelHTTP:    3,
	LevelVerbose: 4,
	LevelDebug:   5,
	LevelSilly:   6,
}

// LevelRank returns the severity rank of a known level name, case-insensitive.
// Lower is more severe.
func LevelRank(level string) (int, bool) {
	rank, ok := levelRanks[strings.ToLower(strings.TrimSpace(level))]
	return rank, ok
}

// LevelEnabled reports whether an entry at level passes a threshold.
// Unknown entry levels always pass; an unknown threshold accepts everything.
func LevelEnabled(threshold, level string) bool {
	max, ok := LevelRank(threshold)
	if !ok {
		return true
	}
	rank, ok := LevelRank(level)
	if !ok {
		return true
	}
	return rank <= max
}
