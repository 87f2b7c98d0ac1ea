package lockfile_test

import (
	"path/filepath"
	"testing"

	"github.com/buffrs-dev/buffrs/pkg/lockfile"
	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustVersion(t *testing.T, s string) version.Version {
	t.Helper()
	v, err := version.Parse(s)
	require.NoError(t, err)
	return v
}

func mustRequirement(t *testing.T, s string) version.Requirement {
	t.Helper()
	r, err := version.ParseRequirement(s)
	require.NoError(t, err)
	return r
}

func TestLoad_MissingFileReturnsAbsentLockfile(t *testing.T) {
	_, err := lockfile.Load(filepath.Join(t.TempDir(), "Proto.lock"))
	assert.ErrorIs(t, err, lockfile.AbsentLockfile)
}

func TestSaveLoad_RoundTripCanonicalOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Proto.lock")
	entries := []lockfile.Entry{
		{ID: "zebra", Version: mustVersion(t, "1.0.0"), Kind: manifest.Library, Registry: "https://reg", Repository: "core", Digest: "sha256:aa"},
		{ID: "alpha", Version: mustVersion(t, "2.0.0"), Kind: manifest.Impl, Registry: "https://reg", Repository: "core", Digest: "sha256:bb"},
		{ID: "alpha", Version: mustVersion(t, "1.0.0"), Kind: manifest.Impl, Registry: "https://reg", Repository: "core", Digest: "sha256:cc"},
	}

	require.NoError(t, lockfile.Save(path, entries))

	loaded, err := lockfile.Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Entries, 3)
	assert.Equal(t, "alpha", loaded.Entries[0].ID)
	assert.Equal(t, "1.0.0", loaded.Entries[0].Version.String())
	assert.Equal(t, "alpha", loaded.Entries[1].ID)
	assert.Equal(t, "2.0.0", loaded.Entries[1].Version.String())
	assert.Equal(t, "zebra", loaded.Entries[2].ID)
}

func TestReconcile_StaleWhenRequirementExcludesPin(t *testing.T) {
	prev := &lockfile.Lockfile{Entries: []lockfile.Entry{
		{ID: "physics", Version: mustVersion(t, "1.0.0")},
	}}
	m := &manifest.Manifest{Dependencies: map[string]manifest.DependencySource{
		"physics": {Registry: &manifest.RegistrySource{Requirement: mustRequirement(t, ">=2.0.0")}},
	}}

	_, err := lockfile.Reconcile(m, prev)
	var stale *lockfile.LockfileStale
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, "physics", stale.PackageID)
}

func TestReconcile_PinsTransitiveAndSatisfyingDirectEntries(t *testing.T) {
	prev := &lockfile.Lockfile{Entries: []lockfile.Entry{
		{ID: "physics", Version: mustVersion(t, "1.5.0"), Digest: "sha256:aa"},
		{ID: "transitive-dep", Version: mustVersion(t, "0.3.0"), Digest: "sha256:bb"},
	}}
	m := &manifest.Manifest{Dependencies: map[string]manifest.DependencySource{
		"physics": {Registry: &manifest.RegistrySource{Requirement: mustRequirement(t, ">=1.0.0")}},
	}}

	pins, err := lockfile.Reconcile(m, prev)
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", pins["physics"].Version.String())
	assert.Equal(t, "sha256:aa", pins["physics"].Digest)
	assert.Equal(t, "0.3.0", pins["transitive-dep"].Version.String())
}

func TestReconcile_DropsPinWhenManifestNowLocal(t *testing.T) {
	prev := &lockfile.Lockfile{Entries: []lockfile.Entry{
		{ID: "physics", Version: mustVersion(t, "1.0.0")},
	}}
	m := &manifest.Manifest{Dependencies: map[string]manifest.DependencySource{
		"physics": {Local: &manifest.LocalSource{Path: "../physics"}},
	}}

	pins, err := lockfile.Reconcile(m, prev)
	require.NoError(t, err)
	_, ok := pins["physics"]
	assert.False(t, ok)
}

func TestVerify_DigestMismatch(t *testing.T) {
	entries := []lockfile.Entry{{ID: "physics", Digest: "sha256:deadbeef"}}
	err := lockfile.Verify(entries, map[string][]byte{"physics": []byte("not the same bytes")})
	assert.Error(t, err)
}

func TestPrintFiles_SkipsLocalEntries(t *testing.T) {
	l := &lockfile.Lockfile{Entries: []lockfile.Entry{
		{ID: "physics", Version: mustVersion(t, "1.0.0"), Registry: "https://reg.example", Repository: "core", Digest: "sha256:aa"},
		{ID: "vendored", Version: mustVersion(t, "1.0.0")},
	}}

	refs, err := lockfile.PrintFiles(l)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "https://reg.example/api/v1/core/physics/1.0.0", refs[0].URL)
	assert.Equal(t, "sha256:aa", refs[0].Digest)
}
