// FILE: kibanalog/src/internal/sink/rotation.go
package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Archive compression formats
const (
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

const (
	defaultFileMode = 0644
	defaultDirMode  = 0755

	// Suffix of the active file while it moves into history
	stagingSuffix = ".rotating"
)

// RotationPolicy decides when a file sink rolls over and which historical files survive.
//
// Tailable naming keeps the active file at <Filename> and shifts history to
// <Filename>.1 (newest) .. <Filename>.N. Non-tailable naming writes <Filename>,
// then <Filename>.1, <Filename>.2, ... with the active file at the highest index.
// Archived files carry the compression extension after the index.
type RotationPolicy struct {
	Dir          string
	Filename     string
	MaxSizeBytes int64 // <= 0 disables rotation
	MaxFiles     int   // historical files kept; <= 0 keeps all
	Tailable     bool
	Archive      bool
	Compression  string
}

// RotationState is the mutable part of a file sink, owned by the sink under its lock.
type RotationState struct {
	CurrentSizeBytes int64
	CurrentFileIndex int
}

// ShouldRotate reports whether writing next more bytes must first roll the file over.
// A record larger than the limit is still written to an empty file.
func (p RotationPolicy) ShouldRotate(state RotationState, next int64) bool {
	if p.MaxSizeBytes <= 0 || state.CurrentSizeBytes == 0 {
		return false
	}
	return state.CurrentSizeBytes+next > p.MaxSizeBytes
}

// Path returns the uncompressed file name for index; index 0 is the base name.
func (p RotationPolicy) Path(index int) string {
	if index == 0 {
		return filepath.Join(p.Dir, p.Filename)
	}
	return filepath.Join(p.Dir, p.Filename+"."+strconv.Itoa(index))
}

// ArchivePath returns the compressed file name for index.
func (p RotationPolicy) ArchivePath(index int) string {
	return p.Path(index) + p.Extension()
}

// Extension returns the archive file extension for the configured compression.
func (p RotationPolicy) Extension() string {
	if p.Compression == CompressionZstd {
		return ".zst"
	}
	return ".gz"
}

// Resume inspects the directory and returns the state to continue writing from.
func (p RotationPolicy) Resume() (RotationState, error) {
	state := RotationState{}

	if !p.Tailable {
		files, err := p.scan()
		if err != nil {
			return state, err
		}
		if len(files) > 0 {
			highest := files[len(files)-1]
			state.CurrentFileIndex = highest.index
			if highest.archived {
				state.CurrentFileIndex++
			}
		}
	}

	info, err := os.Stat(p.Path(state.CurrentFileIndex))
	switch {
	case err == nil:
		state.CurrentSizeBytes = info.Size()
	case !errors.Is(err, os.ErrNotExist):
		return state, err
	}
	return state, nil
}

// Open opens (appending) the active file for index and returns its current size.
func (p RotationPolicy) Open(index int) (*os.File, int64, error) {
	f, err := os.OpenFile(p.Path(index), os.O_CREATE|os.O_APPEND|os.O_WRONLY, defaultFileMode)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Rotate moves the just-closed active file at index into history, applies
// archival and retention, and returns the index of the next active file.
func (p RotationPolicy) Rotate(index int) (int, error) {
	if p.Tailable {
		return 0, p.rotateTailable()
	}
	return p.rotateSequential(index)
}

func (p RotationPolicy) rotateTailable() error {
	err := p.shiftTailable()
	if p.MaxFiles > 0 {
		if pruneErr := p.prune(func(index int) bool { return index > p.MaxFiles }); pruneErr != nil {
			return errors.Join(err, pruneErr)
		}
	}
	return err
}

// shiftTailable stages the active file first, so a failed archive leaves history where it was
func (p RotationPolicy) shiftTailable() error {
	staged, err := p.stage()
	if err != nil || staged == "" {
		return err
	}

	files, err := p.scan()
	if err != nil {
		return err
	}

	// Shift history up by one, oldest first so nothing is overwritten
	for i := len(files) - 1; i >= 0; i-- {
		f := files[i]
		if f.index == 0 {
			continue
		}
		if err := os.Rename(f.path, p.pathFor(f.index+1, f.archived)); err != nil {
			return fmt.Errorf("shift %s: %w", f.path, err)
		}
	}

	if err := os.Rename(staged, p.pathFor(1, p.Archive)); err != nil {
		return fmt.Errorf("place %s: %w", staged, err)
	}
	return nil
}

// stage moves the active file aside, compressed when archiving, and returns its new path.
// It returns "" when there is no active file.
func (p RotationPolicy) stage() (string, error) {
	active := p.Path(0)
	if _, err := os.Stat(active); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	staged := active + stagingSuffix
	if !p.Archive {
		if err := os.Rename(active, staged); err != nil {
			return "", fmt.Errorf("rename %s: %w", active, err)
		}
		return staged, nil
	}

	staged += p.Extension()
	if err := p.compress(active, staged); err != nil {
		return "", fmt.Errorf("archive %s: %w", active, err)
	}
	if err := os.Remove(active); err != nil {
		_ = os.Remove(staged)
		return "", fmt.Errorf("remove archived %s: %w", active, err)
	}
	return staged, nil
}

func (p RotationPolicy) rotateSequential(index int) (int, error) {
	if p.Archive {
		if err := p.archive(index); err != nil {
			return index, err
		}
	}

	next := index + 1
	if p.MaxFiles > 0 {
		oldestKept := next - p.MaxFiles
		if err := p.prune(func(i int) bool { return i < oldestKept }); err != nil {
			return next, err
		}
	}
	return next, nil
}

// archive compresses the closed file at index in place of the plain one
func (p RotationPolicy) archive(index int) error {
	src := p.Path(index)
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := p.compress(src, p.ArchivePath(index)); err != nil {
		return fmt.Errorf("archive %s: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove archived %s: %w", src, err)
	}
	return nil
}

func (p RotationPolicy) compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, defaultFileMode)
	if err != nil {
		return err
	}

	if err := p.encode(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (p RotationPolicy) encode(w io.Writer, r io.Reader) error {
	if p.Compression == CompressionZstd {
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := io.Copy(enc, r); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	}

	gz := gzip.NewWriter(w)
	if _, err := io.Copy(gz, r); err != nil {
		_ = gz.Close()
		return err
	}
	return gz.Close()
}

// prune deletes historical files whose index matches drop.
func (p RotationPolicy) prune(drop func(index int) bool) error {
	files, err := p.scan()
	if err != nil {
		return err
	}
	for _, f := range files {
		if !drop(f.index) {
			continue
		}
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("prune %s: %w", f.path, err)
		}
	}
	return nil
}

// Historical returns the indices of files kept besides the active one, oldest first.
func (p RotationPolicy) Historical(state RotationState) ([]int, error) {
	files, err := p.scan()
	if err != nil {
		return nil, err
	}

	var out []int
	for _, f := range files {
		if f.index == state.CurrentFileIndex && !f.archived {
			continue
		}
		out = append(out, f.index)
	}
	if p.Tailable {
		// Higher index is older
		sort.Sort(sort.Reverse(sort.IntSlice(out)))
	}
	return out, nil
}

func (p RotationPolicy) pathFor(index int, archived bool) string {
	if archived {
		return p.ArchivePath(index)
	}
	return p.Path(index)
}

type logFile struct {
	index    int
	archived bool
	path     string
}

// scan lists the sink's files ordered by index
func (p RotationPolicy) scan() ([]logFile, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		return nil, err
	}

	ext := p.Extension()
	prefix := p.Filename + "."
	var files []logFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		if name == p.Filename {
			files = append(files, logFile{index: 0, path: filepath.Join(p.Dir, name)})
			continue
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		rest := strings.TrimPrefix(name, prefix)
		archived := false
		if strings.HasSuffix(rest, ext) {
			rest = strings.TrimSuffix(rest, ext)
			archived = true
		}
		if rest == strings.TrimPrefix(ext, ".") {
			// <Filename><ext>: archived base file
			files = append(files, logFile{index: 0, archived: true, path: filepath.Join(p.Dir, name)})
			continue
		}

		index, err := strconv.Atoi(rest)
		if err != nil || index <= 0 || strconv.Itoa(index) != rest {
			continue
		}
		files = append(files, logFile{index: index, archived: archived, path: filepath.Join(p.Dir, name)})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].index != files[j].index {
			return files[i].index < files[j].index
		}
		return !files[i].archived && files[j].archived
	})
	return files, nil
}

// EnsureDirectory resolves dir to an absolute path and creates it when missing.
func EnsureDirectory(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir, err
	}
	if info, err := os.Stat(abs); err == nil {
		if !info.IsDir() {
			return abs, fmt.Errorf("%s is not a directory", abs)
		}
		return abs, nil
	}
	if err := os.MkdirAll(abs, defaultDirMode); err != nil {
		return abs, err
	}
	return abs, nil
}
