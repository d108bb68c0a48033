package repo

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

// Config wraps the INI-style repository configuration at .git/config.
type Config struct {
	file *ini.File
}

// LoadConfig parses the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("missing configuration file: %w", err)
	}
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return &Config{file: file}, nil
}

// RepositoryFormatVersion returns core.repositoryformatversion. Both the
// section and the key are required.
func (c *Config) RepositoryFormatVersion() (int, error) {
	section := c.file.Section("core")
	if section == nil || !section.HasKey("repositoryformatversion") {
		return 0, fmt.Errorf("config: key core.repositoryformatversion is missing")
	}
	version, err := section.Key("repositoryformatversion").Int()
	if err != nil {
		return 0, fmt.Errorf("config: invalid repositoryformatversion: %w", err)
	}
	return version, nil
}

// writeDefaultConfig writes the configuration a fresh repository starts
// with.
func writeDefaultConfig(path string) error {
	file := ini.Empty()
	core, err := file.NewSection("core")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	core.Key("repositoryformatversion").SetValue("0")
	core.Key("filemode").SetValue("false")
	core.Key("bare").SetValue("false")

	if err := file.SaveTo(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
