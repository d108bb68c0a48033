package repo

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultDescription = "Unnamed repository; edit this file 'description' to name the repository.\n"

// Init creates a new repository at path: the .git directory with its
// standard layout, a default HEAD, description and configuration.
// Returns an error if a .git directory already exists there.
func Init(path string) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("init: abs path: %w", err)
	}
	gitdir := filepath.Join(abs, ".git")

	if info, err := os.Stat(gitdir); err == nil && info.IsDir() {
		if entries, err := os.ReadDir(gitdir); err == nil && len(entries) > 0 {
			return nil, fmt.Errorf("init: repository already exists at %s", gitdir)
		}
	}

	dirs := []string{
		filepath.Join(gitdir, "branches"),
		filepath.Join(gitdir, "objects"),
		filepath.Join(gitdir, "refs", "tags"),
		filepath.Join(gitdir, "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	if err := os.WriteFile(filepath.Join(gitdir, "description"), []byte(defaultDescription), 0o644); err != nil {
		return nil, fmt.Errorf("init: write description: %w", err)
	}
	if err := os.WriteFile(filepath.Join(gitdir, "HEAD"), []byte("ref: refs/heads/master\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}
	if err := writeDefaultConfig(filepath.Join(gitdir, "config")); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	return openAt(abs, gitdir)
}
