package object

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func testIndexEntries() []PackIndexEntry {
	return []PackIndexEntry{
		{Hash: "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", Offset: 12, CRC32: 0x11111111},
		{Hash: "29ff16c9c14e2652b22f8b78bb08a5a07930c147", Offset: 40, CRC32: 0x22222222},
		{Hash: "206941306e8a8af65b66eaaaea388a7ae24d49a0", Offset: 80, CRC32: 0x33333333},
		{Hash: "2071113062e8a8af65b66eaaaea388a7ae24d49a", Offset: 120, CRC32: 0x44444444},
	}
}

func testPackChecksum() string {
	sum := sha1.Sum([]byte("pack checksum fixture"))
	return hex.EncodeToString(sum[:])
}

func TestPackIndexWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	wantIdxSum, err := WritePackIndex(&buf, testIndexEntries(), testPackChecksum())
	if err != nil {
		t.Fatalf("WritePackIndex: %v", err)
	}

	idx, err := ReadPackIndex(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadPackIndex: %v", err)
	}
	if idx.PackChecksum != testPackChecksum() {
		t.Fatalf("pack checksum = %s, want %s", idx.PackChecksum, testPackChecksum())
	}
	if idx.IndexChecksum != wantIdxSum {
		t.Fatalf("index checksum = %s, want %s", idx.IndexChecksum, wantIdxSum)
	}

	entries := idx.Entries()
	if len(entries) != 4 {
		t.Fatalf("entries = %d, want 4", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Hash >= entries[i].Hash {
			t.Fatalf("entries not sorted: %s before %s", entries[i-1].Hash, entries[i].Hash)
		}
	}

	for _, want := range testIndexEntries() {
		got, ok := idx.Find(want.Hash)
		if !ok {
			t.Fatalf("Find(%s) missed", want.Hash)
		}
		if got.Offset != want.Offset || got.CRC32 != want.CRC32 {
			t.Fatalf("Find(%s) = %+v, want %+v", want.Hash, got, want)
		}
	}
}

func TestPackIndexFindMiss(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WritePackIndex(&buf, testIndexEntries(), testPackChecksum()); err != nil {
		t.Fatalf("WritePackIndex: %v", err)
	}
	idx, err := ReadPackIndex(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadPackIndex: %v", err)
	}

	if _, ok := idx.Find("ffffffffffffffffffffffffffffffffffffffff"); ok {
		t.Fatal("Find should miss for an absent hash")
	}
	// Same leading byte as a present entry, different tail.
	if _, ok := idx.Find("206941306e8a8af65b66eaaaea388a7ae24d49a1"); ok {
		t.Fatal("Find should miss inside a populated fanout bucket")
	}
	if _, ok := idx.Find("not-a-hash"); ok {
		t.Fatal("Find should miss for an invalid hash")
	}
}

func TestPackIndexFindPrefix(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WritePackIndex(&buf, testIndexEntries(), testPackChecksum()); err != nil {
		t.Fatalf("WritePackIndex: %v", err)
	}
	idx, err := ReadPackIndex(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadPackIndex: %v", err)
	}

	sha, ok := idx.FindPrefix("e69de2")
	if !ok || sha != "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391" {
		t.Fatalf("FindPrefix = %q, ok=%v", sha, ok)
	}

	// Odd-length prefixes are truncated to even length before matching.
	sha, ok = idx.FindPrefix("e69de")
	if !ok || !strings.HasPrefix(sha, "e69d") {
		t.Fatalf("odd prefix = %q, ok=%v", sha, ok)
	}

	if _, ok := idx.FindPrefix("ffff"); ok {
		t.Fatal("FindPrefix should miss for an absent prefix")
	}
	if _, ok := idx.FindPrefix("zz"); ok {
		t.Fatal("FindPrefix should reject non-hex input")
	}
}

func TestPackIndexLargeOffsets(t *testing.T) {
	entries := []PackIndexEntry{
		{Hash: "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", Offset: 12, CRC32: 1},
		{Hash: "29ff16c9c14e2652b22f8b78bb08a5a07930c147", Offset: uint64(1) << 33, CRC32: 2},
	}

	var buf bytes.Buffer
	if _, err := WritePackIndex(&buf, entries, testPackChecksum()); err != nil {
		t.Fatalf("WritePackIndex: %v", err)
	}
	idx, err := ReadPackIndex(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadPackIndex: %v", err)
	}

	got, ok := idx.Find("29ff16c9c14e2652b22f8b78bb08a5a07930c147")
	if !ok {
		t.Fatal("Find missed the large-offset entry")
	}
	if got.Offset != uint64(1)<<33 {
		t.Fatalf("offset = %d, want %d", got.Offset, uint64(1)<<33)
	}
}

func TestReadPackIndexRejectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WritePackIndex(&buf, testIndexEntries(), testPackChecksum()); err != nil {
		t.Fatalf("WritePackIndex: %v", err)
	}
	data := buf.Bytes()

	flipped := append([]byte(nil), data...)
	flipped[packIndexHeaderSize+3] ^= 0xff
	if _, err := ReadPackIndex(flipped); !errors.Is(err, ErrMalformedObject) {
		t.Fatalf("corrupt fanout error = %v, want ErrMalformedObject", err)
	}

	if _, err := ReadPackIndex(data[:40]); !errors.Is(err, ErrMalformedObject) {
		t.Fatalf("truncated error = %v, want ErrMalformedObject", err)
	}
}

func TestReadPackIndexRejectsBadMagic(t *testing.T) {
	// A v1 index has no magic (its first four bytes are a fanout count),
	// and arbitrary garbage shouldn't be misreported as one.
	tests := []struct {
		name  string
		magic []byte
	}{
		{"v1 fanout bytes", []byte{0, 0, 0, 0}},
		{"garbage", []byte("junk")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, packIndexHeaderSize+packIndexFanoutSize+2*rawHashSize)
			copy(data, tt.magic)

			_, err := ReadPackIndex(data)
			if !errors.Is(err, ErrUnsupported) {
				t.Fatalf("error = %v, want ErrUnsupported", err)
			}
			if !strings.Contains(err.Error(), "magic") {
				t.Fatalf("error = %q, want it to name the magic", err)
			}
		})
	}
}

func TestReadPackIndexRejectsFutureVersion(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WritePackIndex(&buf, nil, testPackChecksum()); err != nil {
		t.Fatalf("WritePackIndex: %v", err)
	}
	data := buf.Bytes()
	data[7] = 3
	// Recompute the trailing checksum so only the version is wrong.
	sum := sha1.Sum(data[:len(data)-rawHashSize])
	copy(data[len(data)-rawHashSize:], sum[:])

	if _, err := ReadPackIndex(data); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("error = %v, want ErrUnsupported", err)
	}
}

func TestWritePackIndexRejectsBadHash(t *testing.T) {
	entries := []PackIndexEntry{{Hash: "short", Offset: 1}}
	var buf bytes.Buffer
	if _, err := WritePackIndex(&buf, entries, testPackChecksum()); err == nil {
		t.Fatal("expected error for malformed entry hash")
	}
}
