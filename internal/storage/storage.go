// Package storage creates and opens per-session audio files.
//
// Every recording gets a new file named after the Unix time in milliseconds
// of its creation, with the extension of its container (.pcm for raw PCM,
// .wav for WAV).
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/yok-tottii/EzRec/internal/audio"
	"github.com/yok-tottii/EzRec/internal/session"
)

// ErrNotFound is returned for paths that are not recordings in the store
var ErrNotFound = errors.New("recording not found")

// Store manages recordings under one directory
type Store struct {
	fs     afero.Fs
	dir    string
	format audio.Format
	now    func() time.Time
}

// New creates a store rooted at dir. The directory is created on the first
// recording.
func New(fs afero.Fs, dir string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{
		fs:     fs,
		dir:    filepath.Clean(dir),
		format: audio.DefaultFormat(),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for file names
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Dir returns the storage directory
func (s *Store) Dir() string {
	return s.dir
}

// Fs returns the underlying filesystem
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Writer is an open recording sink
type Writer struct {
	path  string
	file  afero.File
	sink  Sink
	bytes int64
}

// Path returns the file path
func (w *Writer) Path() string { return w.path }

// Bytes returns the number of PCM bytes written
func (w *Writer) Bytes() int64 { return w.bytes }

// Write appends PCM bytes
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.sink.Write(p)
	w.bytes += int64(n)
	return n, err
}

// Close finalizes the container and closes the file
func (w *Writer) Close() error {
	return errors.Join(w.sink.Close(), w.file.Close())
}

// Create opens a new file for a recording in the given mode
func (s *Store) Create(mode session.Mode) (*Writer, error) {
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	c := ContainerFor(mode)
	base := strconv.FormatInt(s.now().UnixMilli(), 10)
	path := filepath.Join(s.dir, base+c.Ext())

	file, err := s.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		// Two sessions in the same millisecond
		path = filepath.Join(s.dir, base+"-"+uuid.NewString()[:8]+c.Ext())
		file, err = s.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create recording file: %w", err)
	}

	sink, err := c.NewSink(file, s.format)
	if err != nil {
		return nil, errors.Join(err, file.Close())
	}

	return &Writer{path: path, file: file, sink: sink}, nil
}

// Reader is an open recording source
type Reader struct {
	io.Reader
	path string
	file afero.File
}

// Path returns the file path
func (r *Reader) Path() string { return r.path }

// Close closes the file
func (r *Reader) Close() error {
	return r.file.Close()
}

// Open opens a recording for playback. The container is chosen by extension.
func (s *Store) Open(path string) (*Reader, error) {
	c, ok := containerForExt(strings.ToLower(filepath.Ext(path)))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBadContainer, filepath.Base(path))
	}

	file, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}

	src, err := c.NewSource(file, s.format)
	if err != nil {
		return nil, errors.Join(err, file.Close())
	}

	return &Reader{Reader: src, path: path, file: file}, nil
}

// Recording describes a stored file
type Recording struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Created  time.Time     `json:"created"`
	Duration time.Duration `json:"duration"`
}

// List returns the recordings in the store, newest first. A missing
// directory is an empty list.
func (s *Store) List() ([]Recording, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	bps := int64(s.format.BytesPerSecond())
	var recordings []Recording
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		c, ok := containerForExt(strings.ToLower(filepath.Ext(e.Name())))
		if !ok {
			continue
		}
		payload := max(e.Size()-c.HeaderSize(), 0)
		recordings = append(recordings, Recording{
			Name:     e.Name(),
			Path:     filepath.Join(s.dir, e.Name()),
			Size:     e.Size(),
			Created:  createdAt(e.Name(), e.ModTime()),
			Duration: time.Duration(payload * int64(time.Second) / bps),
		})
	}

	sort.Slice(recordings, func(i, j int) bool {
		if !recordings[i].Created.Equal(recordings[j].Created) {
			return recordings[i].Created.After(recordings[j].Created)
		}
		return recordings[i].Name > recordings[j].Name
	})
	return recordings, nil
}

// createdAt parses the millisecond timestamp from a file name, falling back
// to the modification time
func createdAt(name string, modTime time.Time) time.Time {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.IndexByte(base, '-'); i >= 0 {
		base = base[:i]
	}
	ms, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return modTime
	}
	return time.UnixMilli(ms)
}

// Resolve maps a bare file name to its path in the store. Names containing
// path separators are rejected.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	path := filepath.Join(s.dir, name)
	if _, err := s.fs.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return path, nil
}

// Remove deletes a recording
func (s *Store) Remove(path string) error {
	if err := s.fs.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to remove recording: %w", err)
	}
	return nil
}
