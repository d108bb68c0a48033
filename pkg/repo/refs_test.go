package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const (
	testShaA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testShaB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	testShaC = "cccccccccccccccccccccccccccccccccccccccc"
)

func writeRef(t *testing.T, r *Repo, name, content string) {
	t.Helper()
	path := filepath.Join(r.GitDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
}

func TestResolveRefLoose(t *testing.T) {
	r := tempRepo(t)
	writeRef(t, r, "refs/heads/master", testShaA+"\n")

	sha, err := r.ResolveRef("refs/heads/master")
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if sha != testShaA {
		t.Fatalf("sha = %s, want %s", sha, testShaA)
	}
}

func TestResolveRefFollowsSymbolicChain(t *testing.T) {
	r := tempRepo(t)
	writeRef(t, r, "refs/heads/master", testShaA+"\n")
	writeRef(t, r, "refs/heads/alias", "ref: refs/heads/master\n")

	// HEAD -> alias -> master -> hash.
	writeRef(t, r, "HEAD", "ref: refs/heads/alias\n")

	sha, err := r.ResolveRef("HEAD")
	if err != nil {
		t.Fatalf("ResolveRef(HEAD): %v", err)
	}
	if sha != testShaA {
		t.Fatalf("sha = %s, want %s", sha, testShaA)
	}
}

func TestResolveRefNotFound(t *testing.T) {
	r := tempRepo(t)

	_, err := r.ResolveRef("refs/heads/missing")
	if !errors.Is(err, ErrRefNotFound) {
		t.Fatalf("error = %v, want ErrRefNotFound", err)
	}

	// A fresh HEAD points at an unborn branch.
	_, err = r.ResolveRef("HEAD")
	if !errors.Is(err, ErrRefNotFound) {
		t.Fatalf("HEAD error = %v, want ErrRefNotFound", err)
	}
}

func TestResolveRefPackedFallback(t *testing.T) {
	r := tempRepo(t)
	writeRef(t, r, "packed-refs", "# pack-refs with: peeled fully-peeled sorted\n"+
		testShaB+" refs/heads/packed-only\n")

	sha, err := r.ResolveRef("refs/heads/packed-only")
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if sha != testShaB {
		t.Fatalf("sha = %s, want %s", sha, testShaB)
	}
}

func TestResolveRefLooseShadowsPacked(t *testing.T) {
	r := tempRepo(t)
	writeRef(t, r, "packed-refs", testShaB+" refs/heads/master\n")
	writeRef(t, r, "refs/heads/master", testShaA+"\n")

	sha, err := r.ResolveRef("refs/heads/master")
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if sha != testShaA {
		t.Fatalf("sha = %s, want loose value %s", sha, testShaA)
	}
}

func TestParsePackedRefsPeelLines(t *testing.T) {
	r := tempRepo(t)
	writeRef(t, r, "packed-refs", "# pack-refs with: peeled fully-peeled sorted\n"+
		testShaA+" refs/heads/master\n"+
		testShaB+" refs/tags/v1.0\n"+
		"^"+testShaC+"\n")

	packed, err := r.ParsePackedRefs()
	if err != nil {
		t.Fatalf("ParsePackedRefs: %v", err)
	}

	if got := packed.Refs["refs/tags/v1.0"]; got != testShaB {
		t.Fatalf("tag ref = %s, want the tag object %s", got, testShaB)
	}
	if got := packed.Peeled["refs/tags/v1.0"]; got != testShaC {
		t.Fatalf("peeled target = %s, want %s", got, testShaC)
	}
	if _, ok := packed.Peeled["refs/heads/master"]; ok {
		t.Fatal("branch ref should have no peeled entry")
	}
	if len(packed.Order) != 2 || packed.Order[0] != "refs/heads/master" {
		t.Fatalf("order = %v", packed.Order)
	}
}

func TestParsePackedRefsMissingFile(t *testing.T) {
	r := tempRepo(t)

	packed, err := r.ParsePackedRefs()
	if err != nil {
		t.Fatalf("ParsePackedRefs: %v", err)
	}
	if len(packed.Refs) != 0 {
		t.Fatalf("refs = %v, want empty", packed.Refs)
	}
}

func TestParsePackedRefsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"peel without ref", "^" + testShaC + "\n"},
		{"line without refname", testShaA + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tempRepo(t)
			writeRef(t, r, "packed-refs", tt.content)
			if _, err := r.ParsePackedRefs(); err == nil {
				t.Fatal("expected parse error")
			}
		})
	}
}

func TestListRefsMergesLooseAndPacked(t *testing.T) {
	r := tempRepo(t)
	writeRef(t, r, "refs/heads/master", testShaA+"\n")
	writeRef(t, r, "packed-refs",
		testShaB+" refs/heads/master\n"+
			testShaB+" refs/heads/packed\n"+
			testShaC+" refs/tags/v1.0\n")

	refs, err := r.ListRefs("refs")
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}

	want := []Ref{
		{Name: "refs/heads/master", Sha: testShaA},
		{Name: "refs/heads/packed", Sha: testShaB},
		{Name: "refs/tags/v1.0", Sha: testShaC},
	}
	if len(refs) != len(want) {
		t.Fatalf("refs = %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("refs[%d] = %v, want %v", i, refs[i], want[i])
		}
	}
}

func TestListRefsPrefixFilter(t *testing.T) {
	r := tempRepo(t)
	writeRef(t, r, "refs/heads/master", testShaA+"\n")
	writeRef(t, r, "refs/tags/v1.0", testShaB+"\n")

	refs, err := r.ListRefs("refs/tags")
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	if len(refs) != 1 || refs[0].Name != "refs/tags/v1.0" {
		t.Fatalf("refs = %v, want only refs/tags/v1.0", refs)
	}
}

func TestListRefsResolvesSymbolicEntries(t *testing.T) {
	r := tempRepo(t)
	writeRef(t, r, "refs/heads/master", testShaA+"\n")
	writeRef(t, r, "refs/heads/alias", "ref: refs/heads/master\n")

	refs, err := r.ListRefs("refs/heads")
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("refs = %v, want 2 entries", refs)
	}
	for _, ref := range refs {
		if ref.Sha != testShaA {
			t.Fatalf("ref %s = %s, want %s", ref.Name, ref.Sha, testShaA)
		}
	}
}
