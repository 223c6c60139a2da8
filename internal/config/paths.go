package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths are the resolved directories the service writes to.
type Paths struct {
	ExportDir string
	LogsDir   string
}

// ResolvePaths makes configured paths absolute against baseDir. An empty
// baseDir means the working directory.
func (c *Config) ResolvePaths(baseDir string) (*Paths, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(baseDir, p)
	}

	return &Paths{
		ExportDir: resolve(c.Paths.ExportDir),
		LogsDir:   resolve(c.Paths.LogsDir),
	}, nil
}

// EnsureDirectories creates every directory in p.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ExportDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
