package manifest_test

import (
	"testing"

	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const libraryManifest = `
edition = "0.10"

[package]
type = "lib"
name = "physics"
version = "1.0.0"
`

const consumerManifest = `
edition = "0.10"

[dependencies]
physics = { version = "=1.0.0", registry = "https://registry.example.com", repository = "core" }
sibling = { path = "../sibling" }
`

func TestParse_Library(t *testing.T) {
	m, err := manifest.Parse([]byte(libraryManifest))
	require.NoError(t, err)
	require.NotNil(t, m.Package)
	assert.Equal(t, manifest.Library, m.Package.Kind)
	assert.Equal(t, "physics", m.Package.ID)
	assert.Equal(t, "1.0.0", m.Package.Version.String())
	assert.Empty(t, m.Dependencies)
}

func TestParse_ConsumerWithMixedDependencySources(t *testing.T) {
	m, err := manifest.Parse([]byte(consumerManifest))
	require.NoError(t, err)
	require.Nil(t, m.Package)

	physics, ok := m.Dependencies["physics"]
	require.True(t, ok)
	require.NotNil(t, physics.Registry)
	assert.Equal(t, "core", physics.Registry.Repository)
	assert.False(t, physics.IsLocal())

	sibling, ok := m.Dependencies["sibling"]
	require.True(t, ok)
	assert.True(t, sibling.IsLocal())
	assert.Equal(t, "../sibling", sibling.Local.Path)
}

func TestParse_LibraryWithDependenciesRejected(t *testing.T) {
	src := `
edition = "0.10"

[package]
type = "lib"
name = "physics"
version = "1.0.0"

[dependencies]
other = { version = "=1.0.0", registry = "https://r", repository = "core" }
`
	_, err := manifest.Parse([]byte(src))
	assert.ErrorIs(t, err, manifest.LibraryHasDependencies)
}

func TestParse_AmbiguousDependencySource(t *testing.T) {
	src := `
edition = "0.10"

[dependencies]
bad = { path = "../bad", version = "=1.0.0", registry = "https://r", repository = "core" }
`
	_, err := manifest.Parse([]byte(src))
	assert.ErrorIs(t, err, manifest.DependencySourceAmbiguous)
}

func TestParse_UnsupportedEdition(t *testing.T) {
	src := `
edition = "9.9"

[package]
type = "lib"
name = "physics"
version = "1.0.0"
`
	_, err := manifest.Parse([]byte(src))
	var unsupported *manifest.EditionUnsupported
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "9.9", unsupported.Found)
}

func TestRoundTrip(t *testing.T) {
	m, err := manifest.Parse([]byte(consumerManifest))
	require.NoError(t, err)

	out, err := manifest.Marshal(m)
	require.NoError(t, err)

	reparsed, err := manifest.Parse(out)
	require.NoError(t, err)
	// version.Requirement holds compiled go-version constraints, which
	// carry func values that no deep equality can compare, so the logical
	// model is compared field by field and requirements by their text.
	assert.Equal(t, m.Edition, reparsed.Edition)
	assert.Equal(t, m.Package, reparsed.Package)
	assert.Equal(t, m.Workspace, reparsed.Workspace)
	assert.Equal(t, m.Extra, reparsed.Extra)
	require.Len(t, reparsed.Dependencies, len(m.Dependencies))
	for id, dep := range m.Dependencies {
		got, ok := reparsed.Dependencies[id]
		require.True(t, ok, id)
		assert.Equal(t, dep.Local, got.Local)
		if dep.Registry == nil {
			assert.Nil(t, got.Registry)
			continue
		}
		require.NotNil(t, got.Registry)
		assert.Equal(t, dep.Registry.URL, got.Registry.URL)
		assert.Equal(t, dep.Registry.Repository, got.Registry.Repository)
		assert.Equal(t, dep.Registry.Requirement.String(), got.Registry.Requirement.String())
	}
}

func TestMarshal_DeterministicDependencyOrdering(t *testing.T) {
	m, err := manifest.Parse([]byte(consumerManifest))
	require.NoError(t, err)

	out1, err := manifest.Marshal(m)
	require.NoError(t, err)
	out2, err := manifest.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestParse_UnknownTopLevelKeyPreservedAndReemitted(t *testing.T) {
	src := `
edition = "0.10"

[dependencies]
physics = { version = "=1.0.0", registry = "https://registry.example.com", repository = "core" }

[future]
setting = "on"
`
	m, err := manifest.Parse([]byte(src))
	require.NoError(t, err)
	require.Contains(t, m.Extra, "future")

	out, err := manifest.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(out), "[future]")
	assert.Contains(t, string(out), `setting = 'on'`)

	reparsed, err := manifest.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, m.Extra, reparsed.Extra)
}

func TestValidateForPublish_ImplNotPublishable(t *testing.T) {
	m := &manifest.Manifest{
		Edition: "0.10",
		Package: &manifest.Package{Kind: manifest.Impl, ID: "app"},
	}
	err := m.ValidateForPublish(nil)
	assert.ErrorIs(t, err, manifest.ImplNotPublishable)
}

func TestValidateForPublish_ApiDependsOnApi(t *testing.T) {
	m := &manifest.Manifest{
		Edition: "0.10",
		Package: &manifest.Package{Kind: manifest.Api, ID: "gateway"},
	}
	err := m.ValidateForPublish(map[string]manifest.PackageKind{"other": manifest.Api})
	assert.ErrorIs(t, err, manifest.ApiDependsOnApi)
}
