// Package pkg holds the in-memory representation of a proto package: its
// manifest plus the ordered set of proto files that make up its content.
package pkg

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/buffrs-dev/buffrs/pkg/manifest"
)

// vendorPrefix is excluded when walking proto/ so that a package never
// re-bundles its own installed dependencies.
const vendorPrefix = "vendor/"

// Package is a manifest plus the byte content of every proto file it
// owns, keyed by its path relative to the package root's proto/
// directory using forward slashes.
type Package struct {
	Manifest      *manifest.Manifest
	ManifestBytes []byte
	Files         map[string][]byte

	// FileHashes is each Files entry's sha256, hex-encoded, keyed the
	// same way as Files. `buffrs lock print-files` does not read it; it
	// reports the archive digests recorded in the lockfile.
	FileHashes map[string]string
}

// Load reads Proto.toml verbatim and every proto file under <root>/proto,
// excluding proto/vendor/, into memory. File inclusion order is not
// preserved by the map; callers needing bit-reproducible ordering use
// SortedPaths.
func Load(root string, m *manifest.Manifest) (*Package, error) {
	manifestBytes, err := os.ReadFile(filepath.Join(root, "Proto.toml"))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	protoDir := filepath.Join(root, "proto")
	files := make(map[string][]byte)
	hashes := make(map[string]string)

	info, statErr := os.Stat(protoDir)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return &Package{Manifest: m, ManifestBytes: manifestBytes, Files: files, FileHashes: hashes}, nil
		}
		return nil, fmt.Errorf("stat proto directory: %w", statErr)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", protoDir)
	}

	err = filepath.WalkDir(protoDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(protoDir, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		if strings.HasPrefix(rel, vendorPrefix) {
			return nil
		}
		if !utf8.ValidString(rel) {
			return fmt.Errorf("%w: %s", PackagePathEscape, rel)
		}
		for _, segment := range strings.Split(rel, "/") {
			if segment == ".." {
				return fmt.Errorf("%w: %s", PackagePathEscape, rel)
			}
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		files[rel] = content
		sum := sha256.Sum256(content)
		hashes[rel] = hex.EncodeToString(sum[:])
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Package{Manifest: m, ManifestBytes: manifestBytes, Files: files, FileHashes: hashes}, nil
}

// SanityCheck runs the pre-flight checks the engine applies before
// install and publish: a package-bearing manifest must declare a
// grammatically valid id and own a proto/ directory to bundle. A bare
// consumer manifest (no [package] section) has nothing to check.
func SanityCheck(root string, m *manifest.Manifest) error {
	if m.Package == nil {
		return nil
	}
	if err := manifest.ValidatePackageID(m.Package.ID); err != nil {
		return err
	}
	info, err := os.Stat(filepath.Join(root, "proto"))
	if err != nil || !info.IsDir() {
		return ErrProtoDirMissing
	}
	return nil
}

// SortedPaths returns every file path in ascending lexicographic order,
// the order in which C3 writes archive entries so bundling the same
// logical package twice yields byte-identical output.
func (p *Package) SortedPaths() []string {
	paths := make([]string, 0, len(p.Files))
	for path := range p.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
