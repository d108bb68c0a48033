package object

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	packIndexVersion        = 2
	packIndexHeaderSize     = 8
	packIndexFanoutSize     = 256 * 4
	packIndexLargeOffsetBit = uint32(1 << 31)
)

var packIndexMagic = [4]byte{0xff, 't', 'O', 'c'}

// PackIndexEntry is one row in a pack index file.
type PackIndexEntry struct {
	Hash   string
	Offset uint64
	CRC32  uint32
}

// PackIndex is an in-memory representation of an idx v2 file.
type PackIndex struct {
	fanout        [256]uint32
	entries       []PackIndexEntry
	PackChecksum  string
	IndexChecksum string
}

// Entries returns a copy of all index entries in lexicographic hash order.
func (idx *PackIndex) Entries() []PackIndexEntry {
	out := make([]PackIndexEntry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Find performs fanout-bounded binary search for a full hex hash.
func (idx *PackIndex) Find(sha string) (PackIndexEntry, bool) {
	raw, err := hashHexToBytes(sha)
	if err != nil {
		return PackIndexEntry{}, false
	}

	bucket := int(raw[0])
	start := uint32(0)
	if bucket > 0 {
		start = idx.fanout[bucket-1]
	}
	end := idx.fanout[bucket]
	if end <= start {
		return PackIndexEntry{}, false
	}

	lo := int(start)
	hi := int(end)
	for lo < hi {
		mid := lo + (hi-lo)/2
		if idx.entries[mid].Hash < sha {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < int(end) && idx.entries[lo].Hash == sha {
		return idx.entries[lo], true
	}
	return PackIndexEntry{}, false
}

// FindPrefix scans the index for the first hash with the given hex prefix.
// Odd-length prefixes are truncated to even length first. The scan covers
// this index only; duplicates across packfiles are the caller's concern.
func (idx *PackIndex) FindPrefix(prefix string) (string, bool) {
	prefix = strings.ToLower(prefix)
	if len(prefix)%2 != 0 {
		prefix = prefix[:len(prefix)-1]
	}
	if _, err := hex.DecodeString(prefix); err != nil || prefix == "" {
		return "", false
	}

	for _, entry := range idx.entries {
		if strings.HasPrefix(entry.Hash, prefix) {
			return entry.Hash, true
		}
	}
	return "", false
}

func hashHexToBytes(sha string) ([]byte, error) {
	if len(sha) != hexHashSize {
		return nil, fmt.Errorf("hash length must be %d hex chars, got %d", hexHashSize, len(sha))
	}
	raw, err := hex.DecodeString(sha)
	if err != nil {
		return nil, fmt.Errorf("invalid hash %q: %w", sha, err)
	}
	return raw, nil
}

// ReadPackIndexFromReader parses an idx v2 stream.
func ReadPackIndexFromReader(r io.Reader) (*PackIndex, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pack index stream: %w", err)
	}
	return ReadPackIndex(data)
}

// ReadPackIndex parses and validates an idx v2 file: the fanout table, N
// sorted hashes, N CRC32s, N 4-byte offsets whose top bit points into the
// trailing large-offset table, then the pack and index checksums.
func ReadPackIndex(data []byte) (*PackIndex, error) {
	minLen := packIndexHeaderSize + packIndexFanoutSize + 2*rawHashSize
	if len(data) < minLen {
		return nil, fmt.Errorf("%w: pack index too short: %d", ErrMalformedObject, len(data))
	}
	if !bytes.Equal(data[:4], packIndexMagic[:]) {
		return nil, fmt.Errorf("%w: bad pack index magic (or a version 1 index)", ErrUnsupported)
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != packIndexVersion {
		return nil, fmt.Errorf("%w: pack index version %d", ErrUnsupported, version)
	}

	gotChecksum := data[len(data)-rawHashSize:]
	sum := sha1.Sum(data[:len(data)-rawHashSize])
	if !bytes.Equal(gotChecksum, sum[:]) {
		return nil, fmt.Errorf("%w: pack index checksum mismatch", ErrMalformedObject)
	}

	var fanout [256]uint32
	cursor := packIndexHeaderSize
	for i := 0; i < 256; i++ {
		fanout[i] = binary.BigEndian.Uint32(data[cursor:])
		cursor += 4
	}
	n := int(fanout[255])

	namesLen := n * rawHashSize
	crcLen := n * 4
	offsetLen := n * 4
	if cursor+namesLen+crcLen+offsetLen+2*rawHashSize > len(data) {
		return nil, fmt.Errorf("%w: pack index truncated", ErrMalformedObject)
	}

	namesStart := cursor
	cursor += namesLen
	crcStart := cursor
	cursor += crcLen
	offsetStart := cursor
	cursor += offsetLen

	offset32 := make([]uint32, n)
	largeNeeded := uint32(0)
	for i := 0; i < n; i++ {
		v := binary.BigEndian.Uint32(data[offsetStart+(i*4):])
		offset32[i] = v
		if v&packIndexLargeOffsetBit != 0 {
			ref := v & ^packIndexLargeOffsetBit
			if ref+1 > largeNeeded {
				largeNeeded = ref + 1
			}
		}
	}

	largeOffsets := make([]uint64, largeNeeded)
	for i := uint32(0); i < largeNeeded; i++ {
		if cursor+8 > len(data)-2*rawHashSize {
			return nil, fmt.Errorf("%w: pack index large-offset table truncated", ErrMalformedObject)
		}
		largeOffsets[i] = binary.BigEndian.Uint64(data[cursor:])
		cursor += 8
	}

	if cursor+2*rawHashSize != len(data) {
		return nil, fmt.Errorf("%w: pack index trailing data: %d bytes", ErrMalformedObject, len(data)-(cursor+2*rawHashSize))
	}

	packChecksum := data[cursor : cursor+rawHashSize]
	indexChecksum := data[cursor+rawHashSize:]

	entries := make([]PackIndexEntry, n)
	for i := 0; i < n; i++ {
		offset := uint64(offset32[i])
		if offset32[i]&packIndexLargeOffsetBit != 0 {
			ref := offset32[i] & ^packIndexLargeOffsetBit
			if int(ref) >= len(largeOffsets) {
				return nil, fmt.Errorf("%w: pack index invalid large offset reference %d", ErrMalformedObject, ref)
			}
			offset = largeOffsets[ref]
		}
		entries[i] = PackIndexEntry{
			Hash:   hex.EncodeToString(data[namesStart+(i*rawHashSize) : namesStart+((i+1)*rawHashSize)]),
			CRC32:  binary.BigEndian.Uint32(data[crcStart+(i*4):]),
			Offset: offset,
		}
	}

	return &PackIndex{
		fanout:        fanout,
		entries:       entries,
		PackChecksum:  hex.EncodeToString(packChecksum),
		IndexChecksum: hex.EncodeToString(indexChecksum),
	}, nil
}

func normalizePackIndexEntries(entries []PackIndexEntry) ([]PackIndexEntry, error) {
	out := make([]PackIndexEntry, len(entries))
	copy(out, entries)

	for i := range out {
		if _, err := hashHexToBytes(out[i].Hash); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Hash < out[j].Hash
	})
	return out, nil
}

// WritePackIndex writes an idx v2 file for the provided entries and pack
// checksum. It returns the hex-encoded index checksum.
func WritePackIndex(w io.Writer, entries []PackIndexEntry, packChecksum string) (string, error) {
	normalized, err := normalizePackIndexEntries(entries)
	if err != nil {
		return "", err
	}
	packChecksumRaw, err := hashHexToBytes(packChecksum)
	if err != nil {
		return "", fmt.Errorf("pack checksum: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(packIndexMagic[:])
	binary.Write(&buf, binary.BigEndian, uint32(packIndexVersion))

	fanout := buildPackIndexFanout(normalized)
	for i := 0; i < 256; i++ {
		binary.Write(&buf, binary.BigEndian, fanout[i])
	}

	for _, entry := range normalized {
		raw, _ := hashHexToBytes(entry.Hash)
		buf.Write(raw)
	}
	for _, entry := range normalized {
		binary.Write(&buf, binary.BigEndian, entry.CRC32)
	}

	largeOffsets := make([]uint64, 0)
	for _, entry := range normalized {
		if entry.Offset < uint64(packIndexLargeOffsetBit) {
			binary.Write(&buf, binary.BigEndian, uint32(entry.Offset))
			continue
		}

		pos := uint32(len(largeOffsets))
		binary.Write(&buf, binary.BigEndian, packIndexLargeOffsetBit|pos)
		largeOffsets = append(largeOffsets, entry.Offset)
	}
	for _, offset := range largeOffsets {
		binary.Write(&buf, binary.BigEndian, offset)
	}

	buf.Write(packChecksumRaw)
	indexSum := sha1.Sum(buf.Bytes())
	buf.Write(indexSum[:])

	if _, err := w.Write(buf.Bytes()); err != nil {
		return "", fmt.Errorf("write pack index: %w", err)
	}
	return hex.EncodeToString(indexSum[:]), nil
}

func buildPackIndexFanout(entries []PackIndexEntry) [256]uint32 {
	var counts [256]uint32
	for _, entry := range entries {
		raw, _ := hashHexToBytes(entry.Hash)
		counts[int(raw[0])]++
	}

	var fanout [256]uint32
	var total uint32
	for i := 0; i < 256; i++ {
		total += counts[i]
		fanout[i] = total
	}
	return fanout
}
