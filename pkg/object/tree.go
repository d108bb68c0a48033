package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

const treeModeSize = 6

// Leaf is one entry of a tree object: a mode, a path component and the
// hash of the object it points at. Mode is kept as the normalized 6-byte
// field (5-digit modes gain a leading space); Sha is 40 lowercase hex
// chars.
type Leaf struct {
	Mode string
	Path []byte
	Sha  string
}

// Tree holds the leaves in the order they were parsed.
type Tree struct {
	Leaves []Leaf
}

func (t *Tree) Format() Format { return FormatTree }

// Serialize is the exact inverse of UnmarshalTree: for every leaf the mode
// (normalization padding stripped), a space, the path, a NUL and the 20 raw
// sha bytes, leaves concatenated in parse order.
func (t *Tree) Serialize() []byte {
	var out bytes.Buffer
	for _, leaf := range t.Leaves {
		mode := leaf.Mode
		if len(mode) > 0 && mode[0] == ' ' {
			mode = mode[1:]
		}
		out.WriteString(mode)
		out.WriteByte(' ')
		out.Write(leaf.Path)
		out.WriteByte(0)
		raw, _ := hex.DecodeString(leaf.Sha)
		out.Write(raw)
	}
	return out.Bytes()
}

// UnmarshalTree deserializes tree payload bytes, parsing leaves
// back-to-back until the buffer is exhausted.
func UnmarshalTree(data []byte) (*Tree, error) {
	tree := &Tree{}
	pos := 0
	for pos < len(data) {
		leaf, n, err := parseTreeLeaf(data[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		tree.Leaves = append(tree.Leaves, leaf)
	}
	return tree, nil
}

// parseTreeLeaf parses a single leaf from the front of data and returns the
// number of bytes consumed.
func parseTreeLeaf(data []byte) (Leaf, int, error) {
	spaceIdx := bytes.IndexByte(data, ' ')
	if spaceIdx < 0 {
		return Leaf{}, 0, fmt.Errorf("invalid tree leaf: mode not found")
	}
	if spaceIdx < treeModeSize-1 {
		return Leaf{}, 0, fmt.Errorf("invalid tree leaf: mode is too short")
	}
	if spaceIdx > treeModeSize {
		return Leaf{}, 0, fmt.Errorf("invalid tree leaf: mode is too long")
	}

	mode := make([]byte, treeModeSize)
	for i := range mode {
		mode[i] = ' '
	}
	for i := 0; i < spaceIdx; i++ {
		b := data[i]
		if b < '0' || b > '9' {
			return Leaf{}, 0, fmt.Errorf("invalid tree leaf: invalid mode")
		}
		mode[treeModeSize-spaceIdx+i] = b
	}

	pathStart := spaceIdx + 1
	nulOffset := bytes.IndexByte(data[pathStart:], 0)
	if nulOffset < 0 {
		return Leaf{}, 0, fmt.Errorf("invalid tree leaf: path not found")
	}
	nulIdx := pathStart + nulOffset

	path := append([]byte(nil), data[pathStart:nulIdx]...)
	if len(path) == 0 {
		return Leaf{}, 0, fmt.Errorf("invalid tree leaf: empty path")
	}

	if len(data) < nulIdx+1+rawHashSize {
		return Leaf{}, 0, fmt.Errorf("invalid tree leaf: sha not found")
	}
	sha := hex.EncodeToString(data[nulIdx+1 : nulIdx+1+rawHashSize])

	return Leaf{
		Mode: string(mode),
		Path: path,
		Sha:  sha,
	}, nulIdx + 1 + rawHashSize, nil
}
