package graph

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/pkg/manifest"
)

const manifestFileName = "Proto.toml"

// FileManifestLoader loads a package's Proto.toml from a directory on
// disk, the default ManifestLoader for Local dependency edges.
type FileManifestLoader struct{}

// Load implements ManifestLoader.
func (FileManifestLoader) Load(dir string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFileName))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Join(dir, manifestFileName), err)
	}
	return manifest.Parse(data)
}
