// FILE: kibanalog/src/internal/sink/file_test.go
package sink

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"kibanalog/src/internal/core"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

// line returns a newline-terminated record of exactly n bytes
func line(n int) []byte {
	return append(bytes.Repeat([]byte("x"), n-1), '\n')
}

func newTestFileSink(t *testing.T, cfg FileConfig) *FileSink {
	t.Helper()
	if cfg.Directory == "" {
		cfg.Directory = t.TempDir()
	}
	if cfg.Filename == "" {
		cfg.Filename = "app.log"
	}
	fs, err := NewFileSink(cfg, newTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })
	return fs
}

func TestNewFileSink(t *testing.T) {
	t.Run("CreatesDirectory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "logs")
		fs := newTestFileSink(t, FileConfig{Directory: dir})
		assert.DirExists(t, dir)
		assert.FileExists(t, filepath.Join(dir, "app.log"))
		assert.Equal(t, PhaseOpen, fs.Phase())
	})

	t.Run("ResumesExistingSize", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, filepath.Join(dir, "app.log"), "previous\n")
		fs := newTestFileSink(t, FileConfig{Directory: dir})
		assert.Equal(t, int64(9), fs.State().CurrentSizeBytes)

		require.NoError(t, fs.Write("INFO", []byte("next\n")))
		content, err := os.ReadFile(filepath.Join(dir, "app.log"))
		require.NoError(t, err)
		assert.Equal(t, "previous\nnext\n", string(content))
	})

	t.Run("DirectoryFailure", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "blocker")
		touch(t, blocker, "")
		fs, err := NewFileSink(FileConfig{Directory: filepath.Join(blocker, "logs"), Filename: "app.log"}, newTestLogger())
		assert.Nil(t, fs)

		var dirErr *core.DirectoryCreationError
		assert.True(t, errors.As(err, &dirErr))
	})

	t.Run("NilLogger", func(t *testing.T) {
		dir := t.TempDir()
		fs, err := NewFileSink(FileConfig{Directory: dir, Filename: "app.log", MaxFileSizeBytes: 8, MaxFiles: 2}, nil)
		require.NoError(t, err)
		defer fs.Close()

		require.NoError(t, fs.Write("INFO", []byte("0123456789\n")))
		require.NoError(t, fs.Write("INFO", []byte("0123456789\n")))
		assert.Equal(t, uint64(1), fs.GetStats().Rotations)
	})

	t.Run("MissingFilename", func(t *testing.T) {
		_, err := NewFileSink(FileConfig{Directory: t.TempDir()}, newTestLogger())
		assert.Error(t, err)
	})

	t.Run("InvalidCompression", func(t *testing.T) {
		_, err := NewFileSink(FileConfig{Directory: t.TempDir(), Filename: "a.log", Compression: "lz4"}, newTestLogger())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid compression")
	})
}

func TestFileSink_RotatesOnceWhenLimitExceeded(t *testing.T) {
	for _, tailable := range []bool{true, false} {
		name := "Sequential"
		if tailable {
			name = "Tailable"
		}
		t.Run(name, func(t *testing.T) {
			fs := newTestFileSink(t, FileConfig{MaxFileSizeBytes: 25, MaxFiles: 5, Tailable: tailable})

			require.NoError(t, fs.Write("INFO", line(10)))
			require.NoError(t, fs.Write("INFO", line(10)))
			assert.Equal(t, uint64(0), fs.GetStats().Rotations)

			require.NoError(t, fs.Write("INFO", line(10)))
			assert.Equal(t, uint64(1), fs.GetStats().Rotations)
			assert.Equal(t, int64(10), fs.State().CurrentSizeBytes)

			p := fs.Policy()
			history, err := p.Historical(fs.State())
			require.NoError(t, err)
			assert.Len(t, history, 1)
		})
	}
}

func TestFileSink_Retention(t *testing.T) {
	const maxFiles = 3

	testCases := []struct {
		name     string
		tailable bool
		archive  bool
	}{
		{"Tailable", true, false},
		{"TailableArchived", true, true},
		{"Sequential", false, false},
		{"SequentialArchived", false, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := newTestFileSink(t, FileConfig{
				MaxFileSizeBytes: 10,
				MaxFiles:         maxFiles,
				Tailable:         tc.tailable,
				ArchiveOnRotate:  tc.archive,
			})

			// First write fills the empty file, each later write rotates
			for i := 0; i < maxFiles+2; i++ {
				require.NoError(t, fs.Write("INFO", line(10)))
			}
			assert.Equal(t, uint64(maxFiles+1), fs.GetStats().Rotations)

			p := fs.Policy()
			history, err := p.Historical(fs.State())
			require.NoError(t, err)
			assert.Len(t, history, maxFiles)

			entries, err := os.ReadDir(p.Dir)
			require.NoError(t, err)
			assert.Len(t, entries, maxFiles+1, "history plus the active file")
		})
	}
}

func TestFileSink_UnlimitedRetention(t *testing.T) {
	fs := newTestFileSink(t, FileConfig{MaxFileSizeBytes: 10, Tailable: true})
	for i := 0; i < 8; i++ {
		require.NoError(t, fs.Write("INFO", line(10)))
	}

	p := fs.Policy()
	history, err := p.Historical(fs.State())
	require.NoError(t, err)
	assert.Len(t, history, 7)
}

func TestFileSink_Archive(t *testing.T) {
	t.Run("Gzip", func(t *testing.T) {
		fs := newTestFileSink(t, FileConfig{MaxFileSizeBytes: 25, MaxFiles: 2, Tailable: true, ArchiveOnRotate: true})
		require.NoError(t, fs.Write("INFO", []byte("{\"n\":1}\n")))
		require.NoError(t, fs.Write("INFO", []byte("{\"n\":2}\n")))
		require.NoError(t, fs.Write("INFO", []byte("{\"n\":3,\"pad\":\"....\"}\n")))

		p := fs.Policy()
		f, err := os.Open(p.ArchivePath(1))
		require.NoError(t, err)
		defer f.Close()

		gz, err := gzip.NewReader(f)
		require.NoError(t, err)
		content, err := io.ReadAll(gz)
		require.NoError(t, err)
		assert.Equal(t, "{\"n\":1}\n{\"n\":2}\n", string(content))
		assert.NoFileExists(t, p.Path(1))
	})

	t.Run("Zstd", func(t *testing.T) {
		fs := newTestFileSink(t, FileConfig{MaxFileSizeBytes: 10, ArchiveOnRotate: true, Compression: CompressionZstd})
		require.NoError(t, fs.Write("INFO", []byte("first\n")))
		require.NoError(t, fs.Write("INFO", []byte("second\n")))

		p := fs.Policy()
		f, err := os.Open(p.ArchivePath(0))
		require.NoError(t, err)
		defer f.Close()

		dec, err := zstd.NewReader(f)
		require.NoError(t, err)
		defer dec.Close()
		content, err := io.ReadAll(dec)
		require.NoError(t, err)
		assert.Equal(t, "first\n", string(content))
		assert.Equal(t, 1, fs.State().CurrentFileIndex)
	})
}

func TestFileSink_OversizedRecordOnEmptyFile(t *testing.T) {
	fs := newTestFileSink(t, FileConfig{MaxFileSizeBytes: 5, Tailable: true})
	require.NoError(t, fs.Write("INFO", line(20)))
	assert.Equal(t, uint64(0), fs.GetStats().Rotations)
	assert.Equal(t, int64(20), fs.State().CurrentSizeBytes)
}

func TestFileSink_Close(t *testing.T) {
	fs := newTestFileSink(t, FileConfig{})
	require.NoError(t, fs.Write("INFO", []byte("before\n")))

	require.NoError(t, fs.Close())
	assert.Equal(t, PhaseClosed, fs.Phase())
	assert.NoError(t, fs.Close(), "close is idempotent")

	err := fs.Write("INFO", []byte("after\n"))
	assert.True(t, errors.Is(err, core.ErrSinkClosed))

	var closedErr *core.SinkClosedError
	require.True(t, errors.As(err, &closedErr))
	assert.Equal(t, "file", closedErr.Sink)

	content, err := os.ReadFile(fs.Policy().Path(0))
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(content), "after"))
}

func TestFileSink_ConcurrentWrites(t *testing.T) {
	fs := newTestFileSink(t, FileConfig{MaxFileSizeBytes: 200, Tailable: true})

	const writers, perWriter = 8, 50
	done := make(chan struct{})
	for w := 0; w < writers; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < perWriter; i++ {
				_ = fs.Write("INFO", line(20))
			}
		}()
	}
	for w := 0; w < writers; w++ {
		<-done
	}

	stats := fs.GetStats()
	assert.Equal(t, uint64(writers*perWriter), stats.TotalProcessed)
	assert.Equal(t, uint64(writers*perWriter*20), stats.TotalBytes)

	// Every file holds whole records only
	entries, err := os.ReadDir(fs.Policy().Dir)
	require.NoError(t, err)
	for _, e := range entries {
		content, err := os.ReadFile(filepath.Join(fs.Policy().Dir, e.Name()))
		require.NoError(t, err)
		assert.Zero(t, len(content)%20, e.Name())
		assert.LessOrEqual(t, len(content), 200, e.Name())
	}
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func gunzipFile(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	content, err := io.ReadAll(gz)
	require.NoError(t, err)
	return string(content)
}

func TestFileSink_RotationFailure(t *testing.T) {
	t.Run("TailableKeepsHistory", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, filepath.Join(dir, "app.log.1.gz"), "one")
		touch(t, filepath.Join(dir, "app.log.2.gz"), "two")

		// A directory where the archive is staged makes compression fail
		blocker := filepath.Join(dir, "app.log"+stagingSuffix+".gz.tmp")
		require.NoError(t, os.Mkdir(blocker, 0755))

		fs := newTestFileSink(t, FileConfig{
			Directory:        dir,
			MaxFileSizeBytes: 8,
			MaxFiles:         3,
			Tailable:         true,
			ArchiveOnRotate:  true,
		})

		require.NoError(t, fs.Write("INFO", line(8)))
		for i := 0; i < 3; i++ {
			err := fs.Write("INFO", line(8))
			var ioErr *core.SinkIOError
			require.True(t, errors.As(err, &ioErr))
			assert.Equal(t, "rotate", ioErr.Op)
		}

		assert.Equal(t, []string{"app.log", "app.log.1.gz", "app.log.2.gz", filepath.Base(blocker)}, dirNames(t, dir))
		content, err := os.ReadFile(filepath.Join(dir, "app.log"))
		require.NoError(t, err)
		assert.Len(t, content, 32, "records still land in the reopened file")

		stats := fs.GetStats()
		assert.Equal(t, uint64(4), stats.TotalProcessed)
		assert.Equal(t, uint64(3), stats.Errors)
		assert.Equal(t, uint64(0), stats.Rotations)
		assert.Equal(t, PhaseOpen, fs.Phase())

		// Rotation resumes once the obstacle is gone
		require.NoError(t, os.Remove(blocker))
		require.NoError(t, fs.Write("INFO", line(8)))

		assert.Equal(t, []string{"app.log", "app.log.1.gz", "app.log.2.gz", "app.log.3.gz"}, dirNames(t, dir))
		assert.Len(t, gunzipFile(t, filepath.Join(dir, "app.log.1.gz")), 32)
		older, err := os.ReadFile(filepath.Join(dir, "app.log.2.gz"))
		require.NoError(t, err)
		assert.Equal(t, "one", string(older))
	})

	t.Run("TailablePrunesAfterFailure", func(t *testing.T) {
		dir := t.TempDir()
		for i := 1; i <= 4; i++ {
			touch(t, filepath.Join(dir, "app.log."+strconv.Itoa(i)), "old")
		}
		require.NoError(t, os.Mkdir(filepath.Join(dir, "app.log"+stagingSuffix), 0755))
		touch(t, filepath.Join(dir, "app.log"+stagingSuffix, "keep"), "")

		fs := newTestFileSink(t, FileConfig{Directory: dir, MaxFileSizeBytes: 8, MaxFiles: 2, Tailable: true})
		require.NoError(t, fs.Write("INFO", line(8)))

		err := fs.Write("INFO", line(8))
		var ioErr *core.SinkIOError
		require.True(t, errors.As(err, &ioErr))
		assert.Equal(t, "rotate", ioErr.Op)

		history, err := fs.Policy().Historical(fs.State())
		require.NoError(t, err)
		assert.Equal(t, []int{2, 1}, history)
	})

	t.Run("SequentialStaysOnIndex", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "app.log.gz.tmp")
		require.NoError(t, os.Mkdir(blocker, 0755))

		fs := newTestFileSink(t, FileConfig{Directory: dir, MaxFileSizeBytes: 8, MaxFiles: 2, ArchiveOnRotate: true})
		require.NoError(t, fs.Write("INFO", line(8)))

		err := fs.Write("INFO", line(8))
		var ioErr *core.SinkIOError
		require.True(t, errors.As(err, &ioErr))
		assert.Equal(t, "rotate", ioErr.Op)
		assert.Equal(t, 0, fs.State().CurrentFileIndex)
		assert.Equal(t, int64(16), fs.State().CurrentSizeBytes)

		require.NoError(t, os.Remove(blocker))
		require.NoError(t, fs.Write("INFO", line(8)))
		assert.Equal(t, 1, fs.State().CurrentFileIndex)
		assert.Equal(t, []string{"app.log.1", "app.log.gz"}, dirNames(t, dir))
		assert.Len(t, gunzipFile(t, filepath.Join(dir, "app.log.gz")), 16)
	})
}
