// Package cli wires spf13/cobra commands over the buffrs engine
// packages. It stays thin: every command parses flags, resolves a
// project root, and delegates to pkg/manifest, pkg/graph, pkg/resolver,
// pkg/lockfile, pkg/installer, pkg/workspace and pkg/registry for the
// actual work, mirroring the way the teacher's internal/cli commands
// are bridges into pkg/orchestrator rather than reimplementations of it.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/pkg/config"
	"github.com/buffrs-dev/buffrs/pkg/fsutil"
	"github.com/buffrs-dev/buffrs/pkg/manifest"
)

// These variables are set by NewRootCmd when it binds the persistent
// flags, the same bridge pattern the teacher uses for ConfigPath and
// Verbose.
var (
	ProjectRoot *string
	Verbose     *bool
	NoColor     *bool
)

func projectRoot() (string, error) {
	if ProjectRoot != nil && *ProjectRoot != "" {
		return filepath.Abs(*ProjectRoot)
	}
	return os.Getwd()
}

func isVerbose() bool { return Verbose != nil && *Verbose }
func isNoColor() bool { return NoColor != nil && *NoColor }

func logLevel() string {
	if isVerbose() {
		return "debug"
	}
	return "info"
}

// loadManifest reads and validates root's own Proto.toml.
func loadManifest(root string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(config.ManifestPath(root))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// saveManifest serializes and writes m back to root's Proto.toml.
func saveManifest(root string, m *manifest.Manifest) error {
	data, err := manifest.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(config.ManifestPath(root), data, fsutil.FileModeDefault)
}
