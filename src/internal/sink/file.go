// FILE: kibanalog/src/internal/sink/file.go
package sink

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"kibanalog/src/internal/core"

	"github.com/lixenwraith/log"
)

// Phase is the lifecycle state of a file sink
type Phase int

const (
	PhaseOpen Phase = iota
	PhaseRotating
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "OPEN"
	case PhaseRotating:
		return "ROTATING"
	case PhaseClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// FileConfig holds configuration for the rotating file sink
type FileConfig struct {
	Directory        string
	Filename         string
	MaxFileSizeBytes int64
	MaxFiles         int
	Tailable         bool
	ArchiveOnRotate  bool
	Compression      string
}

// FileSink writes records to a size-bounded file with numbered history
type FileSink struct {
	mu     sync.Mutex
	policy RotationPolicy
	state  RotationState
	phase  Phase
	file   *os.File

	startTime time.Time
	logger    *log.Logger

	// Statistics
	totalProcessed atomic.Uint64
	totalBytes     atomic.Uint64
	errors         atomic.Uint64
	rotations      atomic.Uint64
	lastProcessed  atomic.Value // time.Time
}

// NewFileSink creates the directory if needed, resumes existing files, and opens the active file.
// A directory failure is returned as *core.DirectoryCreationError.
func NewFileSink(cfg FileConfig, logger *log.Logger) (*FileSink, error) {
	if logger == nil {
		logger = log.NewLogger()
	}
	if cfg.Filename == "" {
		return nil, fmt.Errorf("file sink requires a filename")
	}
	switch cfg.Compression {
	case "":
		cfg.Compression = CompressionGzip
	case CompressionGzip, CompressionZstd:
	default:
		return nil, fmt.Errorf("invalid compression: %s", cfg.Compression)
	}

	dir, err := EnsureDirectory(cfg.Directory)
	if err != nil {
		return nil, &core.DirectoryCreationError{Dir: dir, Err: err}
	}

	fs := &FileSink{
		policy: RotationPolicy{
			Dir:          dir,
			Filename:     cfg.Filename,
			MaxSizeBytes: cfg.MaxFileSizeBytes,
			MaxFiles:     cfg.MaxFiles,
			Tailable:     cfg.Tailable,
			Archive:      cfg.ArchiveOnRotate,
			Compression:  cfg.Compression,
		},
		startTime: time.Now(),
		logger:    logger,
	}
	fs.lastProcessed.Store(time.Time{})

	state, err := fs.policy.Resume()
	if err != nil {
		return nil, &core.SinkIOError{Sink: KindRotatingFile.String(), Op: "open", Err: err}
	}
	fs.state = state

	if err := fs.open(); err != nil {
		return nil, err
	}

	logger.Info("msg", "File sink opened",
		"component", "file_sink",
		"path", fs.policy.Path(fs.state.CurrentFileIndex),
		"size", fs.state.CurrentSizeBytes,
		"max_size", cfg.MaxFileSizeBytes,
		"max_files", cfg.MaxFiles,
		"tailable", cfg.Tailable,
		"archive", cfg.ArchiveOnRotate)
	return fs, nil
}

func (fs *FileSink) Kind() Kind {
	return KindRotatingFile
}

// Write runs check size, maybe rotate, write, update size as one critical section.
// A failed rotation is reported but the record is still written to a reopened file.
func (fs *FileSink) Write(_ string, line []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.phase == PhaseClosed {
		return &core.SinkClosedError{Sink: KindRotatingFile.String()}
	}

	if fs.file == nil {
		if err := fs.open(); err != nil {
			fs.errors.Add(1)
			return err
		}
	}

	var rotateErr error
	if fs.policy.ShouldRotate(fs.state, int64(len(line))) {
		if err := fs.rotate(); err != nil {
			fs.errors.Add(1)
			rotateErr = &core.SinkIOError{Sink: KindRotatingFile.String(), Op: "rotate", Err: err}
			fs.logger.Error("msg", "Rotation failed",
				"component", "file_sink",
				"path", fs.policy.Path(fs.state.CurrentFileIndex),
				"error", err)
			if fs.file == nil {
				if err := fs.open(); err != nil {
					return err
				}
			}
		}
	}

	n, err := fs.file.Write(line)
	fs.state.CurrentSizeBytes += int64(n)
	fs.totalBytes.Add(uint64(n))
	if err != nil {
		fs.errors.Add(1)
		return &core.SinkIOError{Sink: KindRotatingFile.String(), Op: "write", Err: err}
	}

	fs.totalProcessed.Add(1)
	fs.lastProcessed.Store(time.Now())
	return rotateErr
}

// rotate is called with the lock held
func (fs *FileSink) rotate() error {
	fs.phase = PhaseRotating
	defer func() {
		if fs.phase == PhaseRotating {
			fs.phase = PhaseOpen
		}
	}()

	closed := fs.policy.Path(fs.state.CurrentFileIndex)
	if err := fs.closeFile(); err != nil {
		return err
	}

	next, err := fs.policy.Rotate(fs.state.CurrentFileIndex)
	fs.state.CurrentFileIndex = next
	if err != nil {
		return err
	}

	if err := fs.open(); err != nil {
		return err
	}
	fs.rotations.Add(1)

	fs.logger.Debug("msg", "Log file rotated",
		"component", "file_sink",
		"closed", closed,
		"active", fs.policy.Path(fs.state.CurrentFileIndex))
	return nil
}

// open is called with the lock held
func (fs *FileSink) open() error {
	f, size, err := fs.policy.Open(fs.state.CurrentFileIndex)
	if err != nil {
		return &core.SinkIOError{Sink: KindRotatingFile.String(), Op: "open", Err: err}
	}
	fs.file = f
	fs.state.CurrentSizeBytes = size
	fs.phase = PhaseOpen
	return nil
}

func (fs *FileSink) closeFile() error {
	if fs.file == nil {
		return nil
	}
	f := fs.file
	fs.file = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Close flushes and closes the active file. Repeated calls are no-ops.
func (fs *FileSink) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.phase == PhaseClosed {
		return nil
	}
	fs.phase = PhaseClosed

	if err := fs.closeFile(); err != nil {
		return &core.SinkIOError{Sink: KindRotatingFile.String(), Op: "close", Err: err}
	}
	fs.logger.Debug("msg", "File sink closed",
		"component", "file_sink",
		"total_processed", fs.totalProcessed.Load())
	return nil
}

// Phase returns the current lifecycle state
func (fs *FileSink) Phase() Phase {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.phase
}

// State returns a snapshot of the rotation state
func (fs *FileSink) State() RotationState {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.state
}

// Policy returns the sink's rotation policy
func (fs *FileSink) Policy() RotationPolicy {
	return fs.policy
}

func (fs *FileSink) GetStats() SinkStats {
	lastProc, _ := fs.lastProcessed.Load().(time.Time)
	state := fs.State()

	return SinkStats{
		Type:           KindRotatingFile.String(),
		TotalProcessed: fs.totalProcessed.Load(),
		TotalBytes:     fs.totalBytes.Load(),
		Errors:         fs.errors.Load(),
		Rotations:      fs.rotations.Load(),
		StartTime:      fs.startTime,
		LastProcessed:  lastProc,
		Details: map[string]any{
			"path":          fs.policy.Path(state.CurrentFileIndex),
			"current_size":  state.CurrentSizeBytes,
			"current_index": state.CurrentFileIndex,
			"phase":         fs.Phase().String(),
		},
	}
}
