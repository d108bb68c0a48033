package object

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
)

const (
	// rawHashSize is the size of a raw SHA-1 digest in bytes.
	rawHashSize = sha1.Size
	// hexHashSize is the size of a hex-encoded SHA-1 digest.
	hexHashSize = rawHashSize * 2
)

// Envelope builds the raw encoding "format len\0payload" for an object.
func Envelope(obj Object) []byte {
	payload := obj.Serialize()
	header := fmt.Sprintf("%s %d\x00", obj.Format(), len(payload))
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	out = append(out, payload...)
	return out
}

// HashObject builds the raw encoding of obj and returns it together with
// the hex SHA-1 digest of the full encoding. This is the single hashing
// contract shared by the read and write paths.
func HashObject(obj Object) ([]byte, string) {
	raw := Envelope(obj)
	sum := sha1.Sum(raw)
	return raw, hex.EncodeToString(sum[:])
}

// FromRawData parses a raw encoding: the format up to the first space, the
// decimal payload size up to the first NUL, then the payload. The declared
// size must match the payload exactly.
func FromRawData(raw []byte) (Object, error) {
	spaceIdx := bytes.IndexByte(raw, ' ')
	if spaceIdx < 0 {
		return nil, fmt.Errorf("%w: format not specified", ErrMalformedObject)
	}
	format := Format(raw[:spaceIdx])

	nulOffset := bytes.IndexByte(raw[spaceIdx+1:], 0)
	if nulOffset < 0 {
		return nil, fmt.Errorf("%w: size not specified", ErrMalformedObject)
	}
	nulIdx := spaceIdx + 1 + nulOffset

	size, err := strconv.Atoi(string(raw[spaceIdx+1 : nulIdx]))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid size %q", ErrMalformedObject, raw[spaceIdx+1:nulIdx])
	}

	payload := raw[nulIdx+1:]
	if size != len(payload) {
		return nil, fmt.Errorf("%w: size mismatch (header=%d, actual=%d)", ErrMalformedObject, size, len(payload))
	}

	switch format {
	case FormatBlob:
		return UnmarshalBlob(payload)
	case FormatCommit:
		return UnmarshalCommit(payload)
	case FormatTag:
		return UnmarshalTag(payload)
	case FormatTree:
		return UnmarshalTree(payload)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrMalformedObject, format)
	}
}

// Unmarshal deserializes payload bytes for a known format.
func Unmarshal(format Format, payload []byte) (Object, error) {
	switch format {
	case FormatBlob:
		return UnmarshalBlob(payload)
	case FormatCommit:
		return UnmarshalCommit(payload)
	case FormatTag:
		return UnmarshalTag(payload)
	case FormatTree:
		return UnmarshalTree(payload)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrMalformedObject, format)
	}
}

// IsHex reports whether s is non-empty and entirely hex digits.
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
