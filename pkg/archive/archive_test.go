package archive_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/buffrs-dev/buffrs/pkg/archive"
	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPackage() *pkg.Package {
	return &pkg.Package{
		Manifest:      &manifest.Manifest{Edition: "0.10"},
		ManifestBytes: []byte("edition = \"0.10\"\n"),
		Files: map[string][]byte{
			"a.proto":     []byte("message A {}"),
			"sub/b.proto": []byte("message B {}"),
		},
	}
}

func TestBundle_IsDeterministic(t *testing.T) {
	p := testPackage()

	out1, err := archive.Bundle(p)
	require.NoError(t, err)
	out2, err := archive.Bundle(p)
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
}

func TestBundleUnbundle_RoundTrip(t *testing.T) {
	p := testPackage()

	bundled, err := archive.Bundle(p)
	require.NoError(t, err)

	destDir := t.TempDir()
	m, err := archive.Unbundle(bundled, destDir)
	require.NoError(t, err)
	assert.Equal(t, "0.10", m.Edition)

	content, err := readFile(t, filepath.Join(destDir, "a.proto"))
	require.NoError(t, err)
	assert.Equal(t, "message A {}", content)

	content, err = readFile(t, filepath.Join(destDir, "sub", "b.proto"))
	require.NoError(t, err)
	assert.Equal(t, "message B {}", content)
}

func TestDigest_StableForIdenticalContent(t *testing.T) {
	p := testPackage()

	out1, err := archive.Bundle(p)
	require.NoError(t, err)
	out2, err := archive.Bundle(p)
	require.NoError(t, err)

	assert.Equal(t, archive.Digest(out1), archive.Digest(out2))
}

func TestUnbundle_RejectsPathTraversal(t *testing.T) {
	p := testPackage()
	p.Files = map[string][]byte{
		"../../etc/passwd": []byte("evil"),
	}

	bundled, err := archive.Bundle(p)
	require.NoError(t, err)

	_, err = archive.Unbundle(bundled, t.TempDir())
	assert.ErrorIs(t, err, archive.UnsafeArchiveEntry)
}

func readFile(t *testing.T, path string) (string, error) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
