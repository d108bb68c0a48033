package object

import (
	"bytes"
	"fmt"
)

// KVLM is the key-value-list-with-message format used by commits and
// annotated tags: an insertion-ordered header block of "key value" lines,
// a blank separator line, then a free-text message. Multi-line values are
// folded on disk with a single leading space per continuation line; in
// memory they are stored unfolded.
type KVLM struct {
	keys    []string
	values  map[string][][]byte
	message []byte
}

// NewKVLM returns an empty KVLM with an empty message.
func NewKVLM() *KVLM {
	return &KVLM{values: make(map[string][][]byte)}
}

// ParseKVLM parses header lines up to the blank separator, then captures
// everything after it as the message. The inverse of Serialize.
func ParseKVLM(data []byte) (*KVLM, error) {
	kvlm := NewKVLM()

	start := 0
	for {
		spaceIdx := bytes.IndexByte(data[start:], ' ')
		newlineIdx := bytes.IndexByte(data[start:], '\n')

		// A line that starts with a newline (or has no key at all) is the
		// separator before the message.
		if spaceIdx < 0 || (newlineIdx >= 0 && newlineIdx < spaceIdx) {
			if newlineIdx != 0 {
				return nil, fmt.Errorf("kvlm: missing message separator")
			}
			kvlm.message = append([]byte(nil), data[start+1:]...)
			return kvlm, nil
		}

		key := string(data[start : start+spaceIdx])

		// The value runs until a newline not followed by a continuation
		// space.
		end := start
		for {
			next := bytes.IndexByte(data[end+1:], '\n')
			if next < 0 {
				return nil, fmt.Errorf("kvlm: unterminated value for key %q", key)
			}
			end += 1 + next
			if end+1 >= len(data) {
				return nil, fmt.Errorf("kvlm: truncated after key %q", key)
			}
			if data[end+1] != ' ' {
				break
			}
		}

		value := bytes.ReplaceAll(data[start+spaceIdx+1:end], []byte("\n "), []byte("\n"))
		kvlm.Add(key, value)

		start = end + 1
	}
}

// Serialize writes the header block, re-folding multi-line values, then the
// separator and the message.
func (k *KVLM) Serialize() []byte {
	var out bytes.Buffer

	for _, key := range k.keys {
		for _, value := range k.values[key] {
			out.WriteString(key)
			out.WriteByte(' ')
			out.Write(bytes.ReplaceAll(value, []byte("\n"), []byte("\n ")))
			out.WriteByte('\n')
		}
	}

	out.WriteByte('\n')
	out.Write(k.message)
	return out.Bytes()
}

// Get returns all values recorded for key, in insertion order.
func (k *KVLM) Get(key string) ([][]byte, bool) {
	values, ok := k.values[key]
	return values, ok
}

// First returns the first value for key as a string.
func (k *KVLM) First(key string) (string, bool) {
	values, ok := k.values[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return string(values[0]), true
}

// Add appends a value under key, registering the key on first use.
func (k *KVLM) Add(key string, value []byte) {
	if _, ok := k.values[key]; !ok {
		k.keys = append(k.keys, key)
	}
	k.values[key] = append(k.values[key], append([]byte(nil), value...))
}

// Message returns the free-text body.
func (k *KVLM) Message() []byte { return k.message }

// SetMessage replaces the free-text body.
func (k *KVLM) SetMessage(msg []byte) {
	k.message = append([]byte(nil), msg...)
}
