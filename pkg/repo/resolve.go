package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gritvcs/grit/pkg/object"
)

// ErrAmbiguousRef reports that a name matched more than one object.
var ErrAmbiguousRef = errors.New("ambiguous reference")

// AmbiguousError carries every candidate a name resolved to.
type AmbiguousError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s %q: candidates are %s", ErrAmbiguousRef, e.Name, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguousRef }

const minHexPrefix = 4

// ResolveObject collects every object a name could mean: HEAD, a hash
// prefix of at least four hex chars matched against loose objects and
// every packfile, and the tag or branch of that name. Candidates from
// different backends are concatenated without deduplication.
func (r *Repo) ResolveObject(name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	if name == "HEAD" {
		sha, err := r.ResolveRef("HEAD")
		if err != nil {
			if errors.Is(err, ErrRefNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []string{sha}, nil
	}

	var candidates []string

	if len(name) >= minHexPrefix && len(name) <= hexDigestLen && object.IsHex(name) {
		prefix := strings.ToLower(name)

		loose, err := r.Store.LooseObjectsWithPrefix(prefix)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, loose...)

		packs, err := r.Store.PackFiles()
		if err != nil {
			return nil, err
		}
		for _, pf := range packs {
			if sha, ok := pf.FindObjectWithPrefix(prefix); ok {
				candidates = append(candidates, sha)
			}
		}
	}

	for _, refname := range []string{"refs/tags/" + name, "refs/heads/" + name} {
		sha, err := r.ResolveRef(refname)
		if err != nil {
			if errors.Is(err, ErrRefNotFound) {
				continue
			}
			return nil, err
		}
		candidates = append(candidates, sha)
	}

	return candidates, nil
}

const hexDigestLen = 40

// FindObject resolves a name to exactly one full hex hash. Identical
// hashes surfacing from several backends count once; after that, zero
// candidates is a lookup failure and more than one is ambiguous.
//
// When format is non-empty and follow is set, the result is dereferenced
// until its format matches: a tag always unwraps to its target object,
// and a commit unwraps to its tree when a tree is requested.
func (r *Repo) FindObject(name string, format object.Format, follow bool) (string, error) {
	candidates, err := r.ResolveObject(name)
	if err != nil {
		return "", err
	}
	candidates = dedup(candidates)

	if len(candidates) == 0 {
		return "", fmt.Errorf("no such reference %q: %w", name, object.ErrNotFound)
	}
	if len(candidates) > 1 {
		return "", &AmbiguousError{Name: name, Candidates: candidates}
	}

	sha := candidates[0]
	if format == "" {
		return sha, nil
	}

	for {
		obj, err := r.ReadObject(sha)
		if err != nil {
			return "", err
		}
		if obj.Format() == format {
			return sha, nil
		}
		if !follow {
			return "", fmt.Errorf("object %s is a %s, not a %s: %w", sha, obj.Format(), format, object.ErrNotFound)
		}

		switch typed := obj.(type) {
		case *object.Tag:
			target, ok := typed.Target()
			if !ok {
				return "", fmt.Errorf("tag %s: %w: missing object field", sha, object.ErrMalformedObject)
			}
			sha = target
		case *object.Commit:
			if format != object.FormatTree {
				return "", fmt.Errorf("object %s is a commit, not a %s: %w", sha, format, object.ErrNotFound)
			}
			tree, ok := typed.Tree()
			if !ok {
				return "", fmt.Errorf("commit %s: %w: missing tree field", sha, object.ErrMalformedObject)
			}
			sha = tree
		default:
			return "", fmt.Errorf("object %s is a %s, not a %s: %w", sha, obj.Format(), format, object.ErrNotFound)
		}
	}
}

func dedup(candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, sha := range candidates {
		if _, ok := seen[sha]; ok {
			continue
		}
		seen[sha] = struct{}{}
		out = append(out, sha)
	}
	return out
}
