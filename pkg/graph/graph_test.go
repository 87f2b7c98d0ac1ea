package graph_test

import (
	"context"
	"testing"

	"github.com/buffrs-dev/buffrs/pkg/graph"
	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	byDir map[string]*manifest.Manifest
}

func (f *fakeLoader) Load(dir string) (*manifest.Manifest, error) {
	m, ok := f.byDir[dir]
	if !ok {
		return nil, assertNotFoundErr(dir)
	}
	return m, nil
}

func assertNotFoundErr(dir string) error { return &notFoundErr{dir} }

type notFoundErr struct{ dir string }

func (e *notFoundErr) Error() string { return "no fake manifest registered for " + e.dir }

type fakeRegistry struct {
	versions map[string][]version.Version // id -> descending list
	manifest map[string]*manifest.Manifest // id@version -> manifest
	calls    map[string]int
}

func (f *fakeRegistry) Versions(_ context.Context, _, _, id string, req version.Requirement) ([]version.Version, error) {
	f.calls[id]++
	var matched []version.Version
	for _, v := range f.versions[id] {
		if req.Matches(v) {
			matched = append(matched, v)
		}
	}
	return matched, nil
}

func (f *fakeRegistry) Fetch(_ context.Context, _, _, id string, v version.Version) (*manifest.Manifest, error) {
	return f.manifest[id+"@"+v.String()], nil
}

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

func consumerManifest(t *testing.T, deps map[string]manifest.DependencySource) *manifest.Manifest {
	t.Helper()
	return &manifest.Manifest{Edition: "0.10", Dependencies: deps}
}

func TestBuild_LocalDependencyChain(t *testing.T) {
	leaf := &manifest.Manifest{
		Edition:      "0.10",
		Package:      &manifest.Package{Kind: manifest.Library, ID: "leaf", Version: mustVersion(t, "1.0.0")},
		Dependencies: map[string]manifest.DependencySource{},
	}
	mid := &manifest.Manifest{
		Edition: "0.10",
		Package: &manifest.Package{Kind: manifest.Impl, ID: "mid", Version: mustVersion(t, "1.0.0")},
		Dependencies: map[string]manifest.DependencySource{
			"leaf": {Local: &manifest.LocalSource{Path: "../../leaf"}},
		},
	}
	root := consumerManifest(t, map[string]manifest.DependencySource{
		"mid": {Local: &manifest.LocalSource{Path: "vendor-src/mid"}},
	})

	loader := &fakeLoader{byDir: map[string]*manifest.Manifest{
		"/work/vendor-src/mid": mid,
		"/work/leaf":           leaf,
	}}
	reg := &fakeRegistry{versions: map[string][]version.Version{}, manifest: map[string]*manifest.Manifest{}, calls: map[string]int{}}

	g, err := graph.Build(context.Background(), root, "/work", loader, reg, reg)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)

	midNodes := g.ByPackageID("mid")
	require.Len(t, midNodes, 1)
	assert.Equal(t, graph.KindLocal, midNodes[0].Kind)
	assert.Equal(t, "/work/vendor-src/mid", midNodes[0].Path)

	leafNodes := g.ByPackageID("leaf")
	require.Len(t, leafNodes, 1)
	assert.Equal(t, "/work/leaf", leafNodes[0].Path)
}

func TestBuild_RegistryDependencySelectsTopCandidate(t *testing.T) {
	physics100 := mustVersion(t, "1.0.0")
	physics110 := mustVersion(t, "1.1.0")

	physicsManifest110 := &manifest.Manifest{
		Edition:      "0.10",
		Package:      &manifest.Package{Kind: manifest.Library, ID: "physics", Version: physics110},
		Dependencies: map[string]manifest.DependencySource{},
	}
	physicsManifest100 := &manifest.Manifest{
		Edition:      "0.10",
		Package:      &manifest.Package{Kind: manifest.Library, ID: "physics", Version: physics100},
		Dependencies: map[string]manifest.DependencySource{},
	}

	reg := &fakeRegistry{
		versions: map[string][]version.Version{"physics": {physics110, physics100}},
		manifest: map[string]*manifest.Manifest{
			"physics@1.1.0": physicsManifest110,
			"physics@1.0.0": physicsManifest100,
		},
		calls: map[string]int{},
	}

	root := consumerManifest(t, map[string]manifest.DependencySource{
		"physics": {Registry: &manifest.RegistrySource{URL: "https://reg", Repository: "core", Requirement: mustRequirement(t, ">=1.0.0")}},
	})

	g, err := graph.Build(context.Background(), root, "/work", &fakeLoader{byDir: map[string]*manifest.Manifest{}}, reg, reg)
	require.NoError(t, err)

	nodes := g.ByPackageID("physics")
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].HasProvisional())
	assert.Equal(t, "1.1.0", nodes[0].Selected.String())
	assert.Len(t, nodes[0].Candidates, 2)
}

func TestBuild_NoCandidatesLeavesNodeUnselected(t *testing.T) {
	reg := &fakeRegistry{versions: map[string][]version.Version{"ghost": {}}, manifest: map[string]*manifest.Manifest{}, calls: map[string]int{}}
	root := consumerManifest(t, map[string]manifest.DependencySource{
		"ghost": {Registry: &manifest.RegistrySource{URL: "https://reg", Repository: "core", Requirement: mustRequirement(t, ">=1.0.0")}},
	})

	g, err := graph.Build(context.Background(), root, "/work", &fakeLoader{byDir: map[string]*manifest.Manifest{}}, reg, reg)
	require.NoError(t, err)

	nodes := g.ByPackageID("ghost")
	require.Len(t, nodes, 1)
	assert.False(t, nodes[0].HasProvisional())
}

func TestBuild_ApiDependsOnApiFlagged(t *testing.T) {
	depManifest := &manifest.Manifest{
		Edition: "0.10",
		Package: &manifest.Package{Kind: manifest.Api, ID: "downstream-api", Version: mustVersion(t, "1.0.0")},
	}
	reg := &fakeRegistry{
		versions: map[string][]version.Version{"downstream-api": {mustVersion(t, "1.0.0")}},
		manifest: map[string]*manifest.Manifest{"downstream-api@1.0.0": depManifest},
		calls:    map[string]int{},
	}

	root := &manifest.Manifest{
		Edition: "0.10",
		Package: &manifest.Package{Kind: manifest.Api, ID: "upstream-api", Version: mustVersion(t, "1.0.0")},
		Dependencies: map[string]manifest.DependencySource{
			"downstream-api": {Registry: &manifest.RegistrySource{URL: "https://reg", Repository: "core", Requirement: mustRequirement(t, ">=1.0.0")}},
		},
	}

	g, err := graph.Build(context.Background(), root, "/work", &fakeLoader{byDir: map[string]*manifest.Manifest{}}, reg, reg)
	require.NoError(t, err)
	require.Len(t, g.Flags, 1)
	assert.Equal(t, graph.ApiDependsOnApiFlag, g.Flags[0].Kind)
	assert.Equal(t, "downstream-api", g.Flags[0].Child)
}

func TestBuild_ConflictingLocalPath(t *testing.T) {
	shared := &manifest.Manifest{
		Edition: "0.10",
		Package: &manifest.Package{Kind: manifest.Library, ID: "shared", Version: mustVersion(t, "1.0.0")},
	}
	a := &manifest.Manifest{
		Edition: "0.10",
		Package: &manifest.Package{Kind: manifest.Impl, ID: "a", Version: mustVersion(t, "1.0.0")},
		Dependencies: map[string]manifest.DependencySource{
			"shared": {Local: &manifest.LocalSource{Path: "../shared-one"}},
		},
	}
	b := &manifest.Manifest{
		Edition: "0.10",
		Package: &manifest.Package{Kind: manifest.Impl, ID: "b", Version: mustVersion(t, "1.0.0")},
		Dependencies: map[string]manifest.DependencySource{
			"shared": {Local: &manifest.LocalSource{Path: "../shared-two"}},
		},
	}
	root := consumerManifest(t, map[string]manifest.DependencySource{
		"a": {Local: &manifest.LocalSource{Path: "a"}},
		"b": {Local: &manifest.LocalSource{Path: "b"}},
	})

	loader := &fakeLoader{byDir: map[string]*manifest.Manifest{
		"/work/a":          a,
		"/work/b":          b,
		"/work/shared-one": shared,
		"/work/shared-two": shared,
	}}
	reg := &fakeRegistry{versions: map[string][]version.Version{}, manifest: map[string]*manifest.Manifest{}, calls: map[string]int{}}

	_, err := graph.Build(context.Background(), root, "/work", loader, reg, reg)
	assert.ErrorIs(t, err, graph.ConflictingLocalPath)
}

func TestBuild_RegistryPackageDeclaringLocalDependencyRejected(t *testing.T) {
	badManifest := &manifest.Manifest{
		Edition: "0.10",
		Package: &manifest.Package{Kind: manifest.Impl, ID: "bad", Version: mustVersion(t, "1.0.0")},
		Dependencies: map[string]manifest.DependencySource{
			"sibling": {Local: &manifest.LocalSource{Path: "../sibling"}},
		},
	}
	reg := &fakeRegistry{
		versions: map[string][]version.Version{"bad": {mustVersion(t, "1.0.0")}},
		manifest: map[string]*manifest.Manifest{"bad@1.0.0": badManifest},
		calls:    map[string]int{},
	}
	root := consumerManifest(t, map[string]manifest.DependencySource{
		"bad": {Registry: &manifest.RegistrySource{URL: "https://reg", Repository: "core", Requirement: mustRequirement(t, ">=1.0.0")}},
	})

	_, err := graph.Build(context.Background(), root, "/work", &fakeLoader{byDir: map[string]*manifest.Manifest{}}, reg, reg)
	assert.ErrorIs(t, err, graph.RegistryPackageDeclaresLocalDependency)
}
