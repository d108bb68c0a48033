package object

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// Store is a content-addressed object database rooted at a gitdir. Loose
// objects live under objects/ab/cdef... as zlib streams; packed objects are
// reached through the packfiles under objects/pack/. Reads try the loose
// store first, then every packfile.
type Store struct {
	gitdir string

	mu    sync.Mutex
	packs []*PackFile
	// packsLoaded latches the first enumeration; packfiles are immutable
	// once written, so one scan per Store is enough.
	packsLoaded bool
}

// NewStore creates a Store for the given gitdir. The objects/ subdirectory
// is created lazily on first write.
func NewStore(gitdir string) *Store {
	return &Store{gitdir: gitdir}
}

// GitDir returns the directory this store is rooted at.
func (s *Store) GitDir() string { return s.gitdir }

func (s *Store) objectPath(sha string) string {
	return filepath.Join(s.gitdir, "objects", sha[:2], sha[2:])
}

// Has reports whether a loose object with the given hash exists.
func (s *Store) Has(sha string) bool {
	info, err := os.Stat(s.objectPath(sha))
	return err == nil && info.Mode().IsRegular()
}

// WriteObject stores obj as a loose object and returns its hex digest.
// If the object already exists the write is skipped: content addressing
// makes the duplicate a no-op. New objects are written through a temp file
// and renamed into place.
func (s *Store) WriteObject(obj Object) (string, error) {
	raw, sha := HashObject(obj)

	if s.Has(sha) {
		slog.Debug("object already stored", "sha", sha)
		return sha, nil
	}

	dir := filepath.Join(s.gitdir, "objects", sha[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("object write mkdir: %w", err)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("object write compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("object write compress: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(compressed.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("object write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write close: %w", err)
	}
	if err := os.Rename(tmpName, s.objectPath(sha)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("object write rename: %w", err)
	}

	return sha, nil
}

// ReadLoose retrieves a loose object by full hex hash.
func (s *Store) ReadLoose(sha string) (Object, error) {
	path := s.objectPath(sha)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("object %s: %w", sha, ErrNotFound)
	}

	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("object read %s: %w", sha, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("object %s: %w: %v", sha, ErrMalformedObject, err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("object %s: %w: %v", sha, ErrMalformedObject, err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("object %s: %w: %v", sha, ErrMalformedObject, err)
	}

	obj, err := FromRawData(raw)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", sha, err)
	}
	return obj, nil
}

// ReadObject retrieves an object by full hex hash, trying the loose store
// first and then every packfile.
func (s *Store) ReadObject(sha string) (Object, error) {
	obj, err := s.ReadLoose(sha)
	if err == nil {
		return obj, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	packs, err := s.PackFiles()
	if err != nil {
		return nil, err
	}
	for _, pf := range packs {
		obj, err := pf.ReadObject(sha)
		if err == nil {
			slog.Debug("object resolved from pack", "sha", sha, "pack", pf.Name())
			return obj, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("object %s: %w", sha, ErrNotFound)
}

// PackFiles returns the packfiles under objects/pack, opening them on
// first use. Index files without a matching .pack are skipped.
func (s *Store) PackFiles() ([]*PackFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.packsLoaded {
		return s.packs, nil
	}

	packs, err := FindPackFiles(s.gitdir)
	if err != nil {
		return nil, err
	}
	s.packs = packs
	s.packsLoaded = true
	return s.packs, nil
}

// Close releases the file handles of all opened packfiles.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, pf := range s.packs {
		if err := pf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.packs = nil
	s.packsLoaded = false
	return firstErr
}

// LooseObjectsWithPrefix scans the fan-out directory matching prefix for
// loose objects whose full hash starts with prefix. Prefix must be at
// least 2 chars so the directory is determined.
func (s *Store) LooseObjectsWithPrefix(prefix string) ([]string, error) {
	if len(prefix) < 2 {
		return nil, fmt.Errorf("prefix %q too short", prefix)
	}

	dir := filepath.Join(s.gitdir, "objects", prefix[:2])
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan objects %s: %w", prefix[:2], err)
	}

	rest := prefix[2:]
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) == hexHashSize-2 && len(rest) <= len(name) && name[:len(rest)] == rest {
			matches = append(matches, prefix[:2]+name)
		}
	}
	return matches, nil
}
