package pkg_test

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/pkg"
	"github.com/buffrs-dev/buffrs/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_SortedPathsExcludesVendor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "proto", "b.proto"), "message B {}")
	writeFile(t, filepath.Join(root, "proto", "a.proto"), "message A {}")
	writeFile(t, filepath.Join(root, "proto", "sub", "c.proto"), "message C {}")
	writeFile(t, filepath.Join(root, "proto", "vendor", "other", "d.proto"), "message D {}")

	m := &manifest.Manifest{Edition: "0.10"}
	p, err := pkg.Load(root, m)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.proto", "b.proto", "sub/c.proto"}, p.SortedPaths())
	assert.Equal(t, "message A {}", string(p.Files["a.proto"]))

	sum := sha256.Sum256([]byte("message A {}"))
	assert.Equal(t, hex.EncodeToString(sum[:]), p.FileHashes["a.proto"])
	assert.Len(t, p.FileHashes, len(p.Files))
	assert.NotContains(t, p.FileHashes, "vendor/other/d.proto")
}

func TestLoad_MissingProtoDirYieldsEmptyPackage(t *testing.T) {
	root := t.TempDir()
	m := &manifest.Manifest{Edition: "0.10"}
	p, err := pkg.Load(root, m)
	require.NoError(t, err)
	assert.Empty(t, p.Files)
	assert.Empty(t, p.FileHashes)
}

func packageManifest(t *testing.T, id string) *manifest.Manifest {
	t.Helper()
	v, err := version.Parse("1.0.0")
	require.NoError(t, err)
	return &manifest.Manifest{
		Edition: "0.10",
		Package: &manifest.Package{Kind: manifest.Library, ID: id, Version: v},
	}
}

func TestSanityCheck_ConsumerManifestSkipsChecks(t *testing.T) {
	root := t.TempDir()
	m := &manifest.Manifest{Edition: "0.10"}
	assert.NoError(t, pkg.SanityCheck(root, m))
}

func TestSanityCheck_MissingProtoDir(t *testing.T) {
	root := t.TempDir()
	m := packageManifest(t, "physics")
	assert.ErrorIs(t, pkg.SanityCheck(root, m), pkg.ErrProtoDirMissing)
}

func TestSanityCheck_InvalidPackageID(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "proto", "physics.proto"), "message Physics {}")
	m := packageManifest(t, "Physics")

	var invalid *manifest.InvalidPackageId
	require.ErrorAs(t, pkg.SanityCheck(root, m), &invalid)
}

func TestSanityCheck_ValidPackage(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "proto", "physics.proto"), "message Physics {}")
	m := packageManifest(t, "physics")
	assert.NoError(t, pkg.SanityCheck(root, m))
}
