package object

// Format identifies the kind of object stored.
type Format string

const (
	FormatBlob   Format = "blob"
	FormatCommit Format = "commit"
	FormatTag    Format = "tag"
	FormatTree   Format = "tree"
)

// Object is the capability surface shared by the four Git object kinds.
// Serialize returns the payload bytes, without the "type len\0" envelope.
type Object interface {
	Format() Format
	Serialize() []byte
}

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

func (b *Blob) Format() Format { return FormatBlob }

// Serialize is a passthrough: a blob's payload is its data.
func (b *Blob) Serialize() []byte { return b.Data }

// UnmarshalBlob deserializes blob payload bytes.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// Commit is a commit object: a KVLM header block plus the commit message.
type Commit struct {
	KVLM *KVLM
}

func (c *Commit) Format() Format    { return FormatCommit }
func (c *Commit) Serialize() []byte { return c.KVLM.Serialize() }

// Tree returns the hash of the tree this commit points at.
func (c *Commit) Tree() (string, bool) {
	return c.KVLM.First("tree")
}

// Parents returns the parent commit hashes, oldest first.
func (c *Commit) Parents() []string {
	values, ok := c.KVLM.Get("parent")
	if !ok {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// UnmarshalCommit deserializes commit payload bytes.
func UnmarshalCommit(data []byte) (*Commit, error) {
	kvlm, err := ParseKVLM(data)
	if err != nil {
		return nil, err
	}
	return &Commit{KVLM: kvlm}, nil
}

// Tag is an annotated tag object, same KVLM layout as a commit.
type Tag struct {
	KVLM *KVLM
}

func (t *Tag) Format() Format    { return FormatTag }
func (t *Tag) Serialize() []byte { return t.KVLM.Serialize() }

// Target returns the hash of the object this tag points at.
func (t *Tag) Target() (string, bool) {
	return t.KVLM.First("object")
}

// UnmarshalTag deserializes tag payload bytes.
func UnmarshalTag(data []byte) (*Tag, error) {
	kvlm, err := ParseKVLM(data)
	if err != nil {
		return nil, err
	}
	return &Tag{KVLM: kvlm}, nil
}
