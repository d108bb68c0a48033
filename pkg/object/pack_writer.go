package object

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
)

type packCountedWriter struct {
	w io.Writer
	n uint64
}

func (cw *packCountedWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += uint64(n)
	return n, err
}

func compressPackPayload(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PackWriter writes pack v2 streams with zlib-compressed object entries
// and a SHA-1 trailer. It backs the verify path's fixtures and keeps the
// index writer honest; the public engine itself only reads packs.
type PackWriter struct {
	out      io.Writer
	hasher   hash.Hash
	counter  *packCountedWriter
	expected uint32
	written  uint32
	finished bool
}

// NewPackWriter initializes a writer and emits the fixed pack header.
func NewPackWriter(out io.Writer, numObjects uint32) (*PackWriter, error) {
	pw := &PackWriter{
		out:      out,
		hasher:   sha1.New(),
		counter:  &packCountedWriter{w: out},
		expected: numObjects,
	}

	header := PackHeader{
		Version:    supportedPackVersion,
		NumObjects: numObjects,
	}
	if err := pw.writeRaw(nil, header.Marshal()); err != nil {
		return nil, fmt.Errorf("write pack header: %w", err)
	}
	return pw, nil
}

// CurrentOffset returns the byte offset the next entry would start at.
func (p *PackWriter) CurrentOffset() uint64 {
	return p.counter.n
}

func (p *PackWriter) writeRaw(crc hash.Hash32, parts ...[]byte) error {
	for _, part := range parts {
		if _, err := p.counter.Write(part); err != nil {
			return err
		}
		p.hasher.Write(part)
		if crc != nil {
			crc.Write(part)
		}
	}
	return nil
}

func (p *PackWriter) checkWritable() error {
	if p.finished {
		return fmt.Errorf("pack writer already finished")
	}
	if p.written >= p.expected {
		return fmt.Errorf("pack object count exceeded: expected %d", p.expected)
	}
	return nil
}

// WriteEntry appends a non-delta entry and returns its offset and the
// CRC32 of its on-disk bytes.
func (p *PackWriter) WriteEntry(objType PackObjectType, data []byte) (uint64, uint32, error) {
	if err := p.checkWritable(); err != nil {
		return 0, 0, err
	}

	offset := p.CurrentOffset()
	compressed, err := compressPackPayload(data)
	if err != nil {
		return 0, 0, fmt.Errorf("compress pack entry: %w", err)
	}

	crc := crc32.NewIEEE()
	header := encodePackEntryHeader(objType, uint64(len(data)))
	if err := p.writeRaw(crc, header, compressed); err != nil {
		return 0, 0, fmt.Errorf("write pack entry: %w", err)
	}

	p.written++
	return offset, crc.Sum32(), nil
}

// WriteOfsDelta appends an OFS_DELTA entry holding an insert-only delta
// against the entry at baseOffset.
func (p *PackWriter) WriteOfsDelta(baseOffset uint64, baseData, targetData []byte) (uint64, uint32, error) {
	if err := p.checkWritable(); err != nil {
		return 0, 0, err
	}
	offset := p.CurrentOffset()
	if baseOffset >= offset {
		return 0, 0, fmt.Errorf("base offset %d must be before current offset %d", baseOffset, offset)
	}

	delta := BuildInsertOnlyDelta(baseData, targetData)
	compressed, err := compressPackPayload(delta)
	if err != nil {
		return 0, 0, fmt.Errorf("compress delta payload: %w", err)
	}

	crc := crc32.NewIEEE()
	header := encodePackEntryHeader(PackOfsDelta, uint64(len(delta)))
	distance := encodeOfsDeltaDistance(offset - baseOffset)
	if err := p.writeRaw(crc, header, distance, compressed); err != nil {
		return 0, 0, fmt.Errorf("write ofs-delta entry: %w", err)
	}

	p.written++
	return offset, crc.Sum32(), nil
}

// WriteRefDelta appends a REF_DELTA entry whose base is named by hash.
func (p *PackWriter) WriteRefDelta(baseSha string, baseData, targetData []byte) (uint64, uint32, error) {
	if err := p.checkWritable(); err != nil {
		return 0, 0, err
	}
	baseRaw, err := hashHexToBytes(baseSha)
	if err != nil {
		return 0, 0, fmt.Errorf("ref-delta base: %w", err)
	}

	offset := p.CurrentOffset()
	delta := BuildInsertOnlyDelta(baseData, targetData)
	compressed, err := compressPackPayload(delta)
	if err != nil {
		return 0, 0, fmt.Errorf("compress delta payload: %w", err)
	}

	crc := crc32.NewIEEE()
	header := encodePackEntryHeader(PackRefDelta, uint64(len(delta)))
	if err := p.writeRaw(crc, header, baseRaw, compressed); err != nil {
		return 0, 0, fmt.Errorf("write ref-delta entry: %w", err)
	}

	p.written++
	return offset, crc.Sum32(), nil
}

// Finish validates the object count, writes the trailing pack checksum
// and returns it as a hex digest.
func (p *PackWriter) Finish() (string, error) {
	if p.finished {
		return "", fmt.Errorf("pack writer already finished")
	}
	if p.written != p.expected {
		return "", fmt.Errorf("pack object count mismatch: wrote %d, expected %d", p.written, p.expected)
	}

	sum := p.hasher.Sum(nil)
	if _, err := p.out.Write(sum); err != nil {
		return "", fmt.Errorf("write pack trailer checksum: %w", err)
	}

	p.finished = true
	return hex.EncodeToString(sum), nil
}
