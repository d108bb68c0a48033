package object

import (
	"bytes"
	"fmt"
	"io"
)

func encodeDeltaVarint(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	out := make([]byte, 0, 10)
	for v > 0 {
		b := byte(v & 0x7f)
		v >>= 7
		if v > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// decodeDeltaVarint reads a little-endian-grouped 7-bit varint, the
// encoding used for the delta size headers.
func decodeDeltaVarint(r io.ByteReader) (uint64, error) {
	var (
		value uint64
		shift uint
	)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("%w: delta varint truncated", ErrMalformedObject)
		}
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, nil
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("%w: delta varint too large", ErrMalformedObject)
		}
	}
}

// encodeOfsDeltaDistance encodes a backward distance for OFS_DELTA entries.
// Unlike the size varints this format is big-endian and offset-biased.
func encodeOfsDeltaDistance(distance uint64) []byte {
	if distance == 0 {
		return []byte{0}
	}
	b := []byte{byte(distance & 0x7f)}
	for distance >>= 7; distance > 0; distance >>= 7 {
		distance--
		b = append([]byte{byte((distance & 0x7f) | 0x80)}, b...)
	}
	return b
}

// decodeOfsDeltaDistance reads the backward distance of an OFS_DELTA entry.
func decodeOfsDeltaDistance(r io.ByteReader) (uint64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: ofs-delta distance truncated", ErrMalformedObject)
	}
	distance := uint64(b & 0x7f)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("%w: ofs-delta distance truncated", ErrMalformedObject)
		}
		distance = ((distance + 1) << 7) | uint64(b&0x7f)
	}
	return distance, nil
}

// BuildInsertOnlyDelta returns a valid delta stream encoding target as
// literal insert chunks against base. It trades compression ratio for
// deterministic output.
func BuildInsertOnlyDelta(base, target []byte) []byte {
	var out bytes.Buffer
	out.Write(encodeDeltaVarint(uint64(len(base))))
	out.Write(encodeDeltaVarint(uint64(len(target))))

	for pos := 0; pos < len(target); {
		chunk := len(target) - pos
		if chunk > 127 {
			chunk = 127
		}
		out.WriteByte(byte(chunk))
		out.Write(target[pos : pos+chunk])
		pos += chunk
	}
	return out.Bytes()
}

// ApplyDelta interprets a delta instruction stream against base and
// returns the reconstructed object bytes.
//
// The stream opens with two size varints (base size, result size). Each
// following opcode either copies a base range (high bit set: bits 0-3
// select present offset bytes, bits 4-6 select present size bytes, an
// absent size means 0x10000) or inserts that many literal bytes (high bit
// clear, nonzero). A zero opcode is invalid.
func ApplyDelta(base, delta []byte) ([]byte, error) {
	dr := bytes.NewReader(delta)

	baseSize, err := decodeDeltaVarint(dr)
	if err != nil {
		return nil, fmt.Errorf("read base size: %w", err)
	}
	if baseSize != uint64(len(base)) {
		return nil, fmt.Errorf("%w: delta base size mismatch: got %d want %d", ErrMalformedObject, baseSize, len(base))
	}
	resultSize, err := decodeDeltaVarint(dr)
	if err != nil {
		return nil, fmt.Errorf("read result size: %w", err)
	}

	out := make([]byte, 0, resultSize)
	for dr.Len() > 0 {
		cmd, err := dr.ReadByte()
		if err != nil {
			return nil, err
		}

		if cmd&0x80 != 0 {
			var offset, size uint64
			for bit := 0; bit < 4; bit++ {
				if cmd&(1<<bit) == 0 {
					continue
				}
				b, err := dr.ReadByte()
				if err != nil {
					return nil, fmt.Errorf("%w: delta copy offset truncated", ErrMalformedObject)
				}
				offset |= uint64(b) << (8 * bit)
			}
			for bit := 0; bit < 3; bit++ {
				if cmd&(1<<(4+bit)) == 0 {
					continue
				}
				b, err := dr.ReadByte()
				if err != nil {
					return nil, fmt.Errorf("%w: delta copy size truncated", ErrMalformedObject)
				}
				size |= uint64(b) << (8 * bit)
			}
			if size == 0 {
				size = 0x10000
			}
			if offset+size > uint64(len(base)) {
				return nil, fmt.Errorf("%w: delta copy out of bounds", ErrMalformedObject)
			}
			out = append(out, base[offset:offset+size]...)
			continue
		}

		if cmd == 0 {
			return nil, fmt.Errorf("%w: invalid delta opcode 0", ErrMalformedObject)
		}
		insert := make([]byte, int(cmd))
		if _, err := io.ReadFull(dr, insert); err != nil {
			return nil, fmt.Errorf("%w: delta insert truncated", ErrMalformedObject)
		}
		out = append(out, insert...)
	}

	if uint64(len(out)) != resultSize {
		return nil, fmt.Errorf("%w: delta result size mismatch: got %d expected %d", ErrMalformedObject, len(out), resultSize)
	}
	return out, nil
}
