// FILE: kibanalog/src/internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// ErrSinkClosed matches any *SinkClosedError with errors.Is.
var ErrSinkClosed = errors.New("sink closed")

// FormatError means an entry could not be turned into a canonical record and was dropped.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format: %s: %v", e.Reason, e.Err)
	}
	return "format: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// TimestampError means neither timestamp candidate resolved to a valid instant.
type TimestampError struct {
	Candidate any
	Fallback  any
}

func (e *TimestampError) Error() string {
	return fmt.Sprintf("no valid timestamp (candidate %v, fallback %v)", e.Candidate, e.Fallback)
}

// SinkClosedError is returned when writing to a sink after teardown.
type SinkClosedError struct {
	Sink string
}

func (e *SinkClosedError) Error() string {
	return fmt.Sprintf("%s sink: write after close", e.Sink)
}

func (e *SinkClosedError) Is(target error) bool { return target == ErrSinkClosed }

// SinkIOError wraps a filesystem or stream failure of one sink.
type SinkIOError struct {
	Sink string
	Op   string // "write", "rotate", "open", "close"
	Err  error
}

func (e *SinkIOError) Error() string {
	return fmt.Sprintf("%s sink: %s: %v", e.Sink, e.Op, e.Err)
}

func (e *SinkIOError) Unwrap() error { return e.Err }

// DirectoryCreationError means the file sink directory could not be created.
// It is never fatal; the pipeline continues console-only.
type DirectoryCreationError struct {
	Dir string
	Err error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("create log directory %s: %v", e.Dir, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error { return e.Err }
