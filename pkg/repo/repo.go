package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gritvcs/grit/pkg/object"
)

// ErrNotRepository reports that no .git directory was found at or above
// the starting path.
var ErrNotRepository = errors.New("not a grit repository")

// Repo represents an opened repository.
type Repo struct {
	Worktree string        // working directory root
	GitDir   string        // .git/ directory
	Config   *Config       // parsed .git/config
	Store    *object.Store // content-addressed object store
}

// Open searches upward from path for a .git directory and opens the
// repository, validating its configuration.
func Open(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	for dir := abs; ; dir = filepath.Dir(dir) {
		gitdir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitdir); err == nil && info.IsDir() {
			return openAt(dir, gitdir)
		}
		if parent := filepath.Dir(dir); parent == dir {
			return nil, fmt.Errorf("%w: searched from %s", ErrNotRepository, abs)
		}
	}
}

func openAt(worktree, gitdir string) (*Repo, error) {
	cfg, err := LoadConfig(filepath.Join(gitdir, "config"))
	if err != nil {
		return nil, err
	}
	version, err := cfg.RepositoryFormatVersion()
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, fmt.Errorf("%w: repositoryformatversion %d", object.ErrUnsupported, version)
	}

	return &Repo{
		Worktree: worktree,
		GitDir:   gitdir,
		Config:   cfg,
		Store:    object.NewStore(gitdir),
	}, nil
}

// ReadObject retrieves an object by full hex hash, trying the loose store
// first and then every packfile.
func (r *Repo) ReadObject(sha string) (object.Object, error) {
	return r.Store.ReadObject(sha)
}

// WriteObject stores obj as a loose object and returns its hex digest.
func (r *Repo) WriteObject(obj object.Object) (string, error) {
	return r.Store.WriteObject(obj)
}

// Close releases resources held by the repository's store.
func (r *Repo) Close() error {
	return r.Store.Close()
}
