// Package histlog persists the playback history of a watched directory as
// an ordered log of relative paths.
package histlog

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrCorrupt indicates the backing store exists but cannot be parsed as a
// history log.
var ErrCorrupt = errors.New("history log is corrupt")

// Store is an ordered log of relative file paths. Mutations are durable
// before they return. Entries passed to Append and Prepend are in
// chronological selection order.
type Store interface {
	// Read returns the log in chronological order, oldest first. A store
	// that does not exist yet reads as empty.
	Read() ([]string, error)

	// Append adds entries at the chronological end of the log.
	Append(entries []string) error

	// Prepend inserts entries at the head of the log so they count as seen
	// without disturbing the tail, which is what "last played" reads.
	// Entries are stacked newest-first: after Prepend([A, B]) the log head
	// is B, A.
	Prepend(entries []string) error

	// Rewrite replaces the whole log with entries.
	Rewrite(entries []string) error

	// Clear empties the log. Clearing an empty or missing log is a no-op.
	Clear() error
}

// FileStore keeps the log as a plain text file, one relative path per
// line. Append uses O_APPEND; every other mutation writes a temp file and
// renames it into place so a crash never leaves a partial log.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// LogfilePath returns the default log file location for a watched
// directory: <logDir>/<percent-encoded abs dir>. Encoding keeps the
// mapping injective; replacing separators with underscores would give
// "/media/foo_bar" and "/media/foo/bar" the same log.
func LogfilePath(logDir, directory string) string {
	return filepath.Join(logDir, url.QueryEscape(directory))
}

// legacyLogfilePath is the pre-encoding scheme with path separators
// flattened to underscores.
func legacyLogfilePath(logDir, directory string) string {
	name := strings.ReplaceAll(directory, string(os.PathSeparator), "_")
	return filepath.Join(logDir, name)
}

// NewDirStore returns the file store for a watched directory under
// logDir. A log written under the legacy underscore naming is renamed
// into place so old history carries over.
func NewDirStore(logDir, directory string) *FileStore {
	path := LogfilePath(logDir, directory)
	legacy := legacyLogfilePath(logDir, directory)
	if legacy != path {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if _, err := os.Stat(legacy); err == nil {
				os.Rename(legacy, path)
			}
		}
	}
	return NewFileStore(path)
}

func (s *FileStore) Read() ([]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not a text file", ErrCorrupt, s.Path)
	}

	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			entries = append(entries, line)
		}
	}
	return entries, nil
}

func (s *FileStore) Append(entries []string) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(e)
		buf.WriteByte('\n')
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append to log file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	return f.Close()
}

func (s *FileStore) Prepend(entries []string) error {
	if len(entries) == 0 {
		return nil
	}
	old, err := s.Read()
	if err != nil {
		return err
	}

	merged := make([]string, 0, len(entries)+len(old))
	for i := len(entries) - 1; i >= 0; i-- {
		merged = append(merged, entries[i])
	}
	merged = append(merged, old...)
	return s.Rewrite(merged)
}

func (s *FileStore) Rewrite(entries []string) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp log file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(e)
		buf.WriteByte('\n')
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp log file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp log file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp log file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("failed to replace log file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear log file: %w", err)
	}
	return nil
}
