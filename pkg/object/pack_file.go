package object

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// PackFile gives access to the objects of one .pack file through its .idx
// companion. It owns the open file handle and an offset-keyed cache of
// fully delta-resolved entries; both are guarded by a mutex, since seeks
// on the shared handle are position-sensitive.
type PackFile struct {
	name string

	mu   sync.Mutex
	idx  *PackIndex
	pack *os.File
	// cache maps a pack byte offset to the resolved (non-delta) type and
	// bytes of the entry at that offset. Grows monotonically.
	cache map[uint64]resolvedEntry
}

type resolvedEntry struct {
	typ  PackObjectType
	data []byte
}

// OpenPackFile parses the index at idxPath and opens the pack at packPath.
// Only idx v2 and pack v2 are accepted; any structural violation fails the
// whole construction.
func OpenPackFile(idxPath, packPath string) (*PackFile, error) {
	idxData, err := os.ReadFile(idxPath)
	if err != nil {
		return nil, fmt.Errorf("read pack index %s: %w", filepath.Base(idxPath), err)
	}
	idx, err := ReadPackIndex(idxData)
	if err != nil {
		return nil, fmt.Errorf("pack index %s: %w", filepath.Base(idxPath), err)
	}

	pack, err := os.Open(packPath)
	if err != nil {
		return nil, fmt.Errorf("open pack %s: %w", filepath.Base(packPath), err)
	}

	var header [packHeaderSize]byte
	if _, err := io.ReadFull(pack, header[:]); err != nil {
		pack.Close()
		return nil, fmt.Errorf("pack %s: %w: truncated header", filepath.Base(packPath), ErrMalformedObject)
	}
	if _, err := UnmarshalPackHeader(header[:]); err != nil {
		pack.Close()
		return nil, fmt.Errorf("pack %s: %w", filepath.Base(packPath), err)
	}

	return &PackFile{
		name:  strings.TrimSuffix(filepath.Base(packPath), ".pack"),
		idx:   idx,
		pack:  pack,
		cache: make(map[uint64]resolvedEntry),
	}, nil
}

// Name returns the pack's base name without extension.
func (pf *PackFile) Name() string { return pf.name }

// Close releases the pack file handle.
func (pf *PackFile) Close() error {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.pack.Close()
}

// HasObject reports whether the pack contains the given full hex hash.
func (pf *PackFile) HasObject(sha string) bool {
	_, ok := pf.idx.Find(sha)
	return ok
}

// Entries returns the index rows of this pack in hash order.
func (pf *PackFile) Entries() []PackIndexEntry {
	return pf.idx.Entries()
}

// FindObjectWithPrefix returns the full hex hash of the first indexed
// object matching the given hex prefix.
func (pf *PackFile) FindObjectWithPrefix(prefix string) (string, bool) {
	return pf.idx.FindPrefix(prefix)
}

// ReadObject resolves the object with the given full hex hash, walking
// any delta chain down to its base, and returns the constructed variant.
func (pf *PackFile) ReadObject(sha string) (Object, error) {
	entry, ok := pf.idx.Find(sha)
	if !ok {
		return nil, fmt.Errorf("object %s: %w", sha, ErrNotFound)
	}

	pf.mu.Lock()
	typ, data, err := pf.readObjectAtOffset(entry.Offset)
	pf.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("object %s in pack %s: %w", sha, pf.name, err)
	}

	format, ok := typ.ObjectFormat()
	if !ok {
		return nil, fmt.Errorf("object %s in pack %s: %w: resolved to type %d", sha, pf.name, ErrMalformedObject, typ)
	}
	obj, err := Unmarshal(format, data)
	if err != nil {
		return nil, fmt.Errorf("object %s in pack %s: %w", sha, pf.name, err)
	}
	return obj, nil
}

// readObjectAtOffset parses the entry at offset and resolves it to its
// ultimate type and bytes in one traversal: delta entries fetch their base
// recursively through the same cache, then apply the delta. The caller
// must hold pf.mu.
func (pf *PackFile) readObjectAtOffset(offset uint64) (PackObjectType, []byte, error) {
	if entry, ok := pf.cache[offset]; ok {
		return entry.typ, entry.data, nil
	}

	if _, err := pf.pack.Seek(int64(offset), io.SeekStart); err != nil {
		return 0, nil, fmt.Errorf("seek pack offset %d: %w", offset, err)
	}
	reader := bufio.NewReader(pf.pack)

	objType, _, err := decodePackEntryHeader(reader)
	if err != nil {
		return 0, nil, err
	}

	var (
		baseOffset uint64
		baseHash   string
	)
	switch objType {
	case PackCommit, PackTree, PackBlob, PackTag:
	case PackOfsDelta:
		distance, err := decodeOfsDeltaDistance(reader)
		if err != nil {
			return 0, nil, err
		}
		if distance > offset {
			return 0, nil, fmt.Errorf("%w: ofs-delta distance %d exceeds offset %d", ErrMalformedObject, distance, offset)
		}
		baseOffset = offset - distance
	case PackRefDelta:
		var raw [rawHashSize]byte
		if _, err := io.ReadFull(reader, raw[:]); err != nil {
			return 0, nil, fmt.Errorf("%w: ref-delta base hash truncated", ErrMalformedObject)
		}
		baseHash = hex.EncodeToString(raw[:])
	default:
		return 0, nil, fmt.Errorf("%w: pack entry type %d", ErrMalformedObject, objType)
	}

	// Inflate this entry's own payload before any recursion: the base
	// lookup below re-seeks the shared handle.
	zr, err := zlib.NewReader(reader)
	if err != nil {
		return 0, nil, fmt.Errorf("pack offset %d: %w: %v", offset, ErrMalformedObject, err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		zr.Close()
		return 0, nil, fmt.Errorf("pack offset %d: %w: %v", offset, ErrMalformedObject, err)
	}
	if err := zr.Close(); err != nil {
		return 0, nil, fmt.Errorf("pack offset %d: %w: %v", offset, ErrMalformedObject, err)
	}

	typ := objType
	if objType.IsDelta() {
		if objType == PackRefDelta {
			base, ok := pf.idx.Find(baseHash)
			if !ok {
				return 0, nil, fmt.Errorf("%w: ref-delta base %s not in pack", ErrNotFound, baseHash)
			}
			baseOffset = base.Offset
		}

		baseType, baseData, err := pf.readObjectAtOffset(baseOffset)
		if err != nil {
			return 0, nil, err
		}
		data, err = ApplyDelta(baseData, data)
		if err != nil {
			return 0, nil, err
		}
		typ = baseType
	}

	// Only successful resolutions are memoized, so a failed delta cannot
	// poison entries at other offsets.
	pf.cache[offset] = resolvedEntry{typ: typ, data: data}
	return typ, data, nil
}

// FindPackFiles opens every paired idx/pack under objects/pack. Index
// files with no same-stem .pack companion are silently skipped.
func FindPackFiles(gitdir string) ([]*PackFile, error) {
	packDir := filepath.Join(gitdir, "objects", "pack")
	entries, err := os.ReadDir(packDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pack dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".idx") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	packs := make([]*PackFile, 0, len(names))
	for _, name := range names {
		idxPath := filepath.Join(packDir, name)
		packPath := strings.TrimSuffix(idxPath, ".idx") + ".pack"
		if _, err := os.Stat(packPath); err != nil {
			continue
		}
		pf, err := OpenPackFile(idxPath, packPath)
		if err != nil {
			return nil, err
		}
		packs = append(packs, pf)
	}
	return packs, nil
}
