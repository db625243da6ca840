// Package storage implements the content-addressed filesystem layout
// component C3 from spec.md §4.3.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Kind selects which sub-tree a content hash resolves under.
type Kind string

const (
	KindOriginal Kind = "original"
	KindThumb    Kind = "thumb"
)

// Storage resolves content hashes to filesystem paths and performs
// atomic writes into them. There is no delete API by design: the core
// pipeline never removes bytes once they're observable.
type Storage struct {
	root string
}

func New(root string) *Storage {
	return &Storage{root: root}
}

// Path returns the filesystem path a (kind, hash) pair resolves to:
// <root>/<kind>/<hash[0:2]>/<hash[2:4]>/<hash>[.<ext>]. It does not
// touch the filesystem.
func (s *Storage) Path(kind Kind, hash, ext string) string {
	name := hash
	if ext != "" {
		name = hash + "." + ext
	}
	return filepath.Join(s.root, string(kind), hash[:2], hash[2:4], name)
}

// Write stores data at the path for (kind, hash, ext) via a temp file
// in the same directory followed by an atomic rename, so a reader
// never observes a partially written file. Writing the same content
// twice is a no-op on the second call.
func (s *Storage) Write(kind Kind, hash, ext string, data io.Reader) (string, error) {
	path := s.Path(kind, hash, ext)
	dir := filepath.Dir(path)

	if _, err := os.Stat(path); err == nil {
		return path, nil // already present; writes are idempotent
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("storage: rename into place: %w", err)
	}
	return path, nil
}

// Open opens the file at (kind, hash, ext) for reading. Reads never
// race a writer: once a path is observable, its bytes are final.
func (s *Storage) Open(kind Kind, hash, ext string) (*os.File, error) {
	return os.Open(s.Path(kind, hash, ext))
}

// Exists reports whether (kind, hash, ext) has already been written.
func (s *Storage) Exists(kind Kind, hash, ext string) bool {
	_, err := os.Stat(s.Path(kind, hash, ext))
	return err == nil
}
