package repo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrRefNotFound reports that a name resolves to neither a loose ref file
// nor a packed-refs entry.
var ErrRefNotFound = errors.New("reference not found")

const symRefPrefix = "ref: "

// ResolveRef resolves a reference name ("HEAD", "refs/heads/main", ...)
// to a full hex hash. Loose ref files are authoritative; packed-refs is
// the fallback. Symbolic references are followed recursively.
func (r *Repo) ResolveRef(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.GitDir, filepath.FromSlash(name)))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("resolve ref %s: %w", name, err)
		}
		packed, err := r.ParsePackedRefs()
		if err != nil {
			return "", err
		}
		if sha, ok := packed.Refs[name]; ok {
			return sha, nil
		}
		return "", fmt.Errorf("resolve ref %s: %w", name, ErrRefNotFound)
	}

	content := strings.TrimSpace(string(data))
	if target, ok := strings.CutPrefix(content, symRefPrefix); ok {
		return r.ResolveRef(strings.TrimSpace(target))
	}
	return content, nil
}

// PackedRefs is the parsed content of the packed-refs file. Refs maps a
// refname to its own hash; for packed annotated tags Peeled additionally
// maps the refname to the fully dereferenced target, mirroring the
// "^<sha>" peel lines.
type PackedRefs struct {
	Order  []string
	Refs   map[string]string
	Peeled map[string]string
}

// ParsePackedRefs reads the packed-refs file. A missing file yields an
// empty table.
func (r *Repo) ParsePackedRefs() (*PackedRefs, error) {
	packed := &PackedRefs{
		Refs:   make(map[string]string),
		Peeled: make(map[string]string),
	}

	data, err := os.ReadFile(filepath.Join(r.GitDir, "packed-refs"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return packed, nil
		}
		return nil, fmt.Errorf("read packed-refs: %w", err)
	}

	var lastRef string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if peeled, ok := strings.CutPrefix(line, "^"); ok {
			if lastRef == "" {
				return nil, fmt.Errorf("packed-refs: peel line without a preceding ref")
			}
			packed.Peeled[lastRef] = peeled
			continue
		}

		sha, refname, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("packed-refs: malformed line %q", line)
		}
		if _, exists := packed.Refs[refname]; !exists {
			packed.Order = append(packed.Order, refname)
		}
		packed.Refs[refname] = sha
		lastRef = refname
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read packed-refs: %w", err)
	}

	return packed, nil
}

// Ref is one resolved reference.
type Ref struct {
	Name string // slash-separated, e.g. "refs/heads/main"
	Sha  string
}

// ListRefs returns all references under prefix (itself slash-separated,
// e.g. "refs" or "refs/tags"), sorted by name. Loose refs and packed refs
// are merged, loose entries taking precedence.
func (r *Repo) ListRefs(prefix string) ([]Ref, error) {
	if prefix == "" {
		prefix = "refs"
	}

	resolved := make(map[string]string)

	root := filepath.Join(r.GitDir, filepath.FromSlash(prefix))
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(r.GitDir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		sha, err := r.ResolveRef(name)
		if err != nil {
			if errors.Is(err, ErrRefNotFound) {
				return nil
			}
			return err
		}
		resolved[name] = sha
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("list refs: %w", err)
	}

	packed, err := r.ParsePackedRefs()
	if err != nil {
		return nil, err
	}
	for _, name := range packed.Order {
		if !strings.HasPrefix(name, prefix+"/") && name != prefix {
			continue
		}
		if _, ok := resolved[name]; !ok {
			resolved[name] = packed.Refs[name]
		}
	}

	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)

	refs := make([]Ref, len(names))
	for i, name := range names {
		refs[i] = Ref{Name: name, Sha: resolved[name]}
	}
	return refs, nil
}
