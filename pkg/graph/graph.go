// Package graph builds the labeled dependency graph a Manifest implies:
// nodes are (PackageId, source-kind) candidates, edges carry the
// requirement a dependent imposes on its dependency. Version *selection*
// is deliberately left to pkg/resolver; this package only discovers the
// candidate set each node could resolve to, fetching registry manifests
// on demand (through a Fetcher) to keep walking the graph transitively,
// mirroring the way the teacher's index resolver interleaves discovery
// and provisional selection in a single fixpoint pass.
package graph

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/version"
)

// Kind distinguishes where a node's package comes from.
type Kind int

const (
	KindLocal Kind = iota
	KindRegistry
)

func (k Kind) String() string {
	if k == KindLocal {
		return "local"
	}
	return "registry"
}

// Node is a candidate group for one (PackageId, Kind) pair.
type Node struct {
	ID        int
	PackageID string
	Kind      Kind

	// Local fields.
	Path     string
	Manifest *manifest.Manifest

	// Registry fields. Requirement is the intersection of every edge's
	// requirement seen so far; Candidates is the descending version list
	// matching it as of the last refresh; Selected/hasSelected track the
	// provisional pick used to keep expanding transitively. The resolver
	// makes the authoritative selection from Candidates.
	URL         string
	Repository  string
	Requirement version.Requirement
	Candidates  []version.Version
	Selected    version.Version
	hasSelected bool
}

// HasProvisional reports whether the builder found at least one
// candidate version to expand transitively.
func (n *Node) HasProvisional() bool { return n.hasSelected }

// Edge carries the requirement a dependent imposes on a dependency. From
// is -1 for edges declared directly by the root manifest.
type Edge struct {
	From        int
	To          int
	Requirement version.Requirement
}

// Flag records a kind-rule violation that only matters at publish time.
type Flag struct {
	Kind   string
	Parent string
	Child  string
}

// ApiDependsOnApiFlag is the Flag.Kind value graph.Build records when an
// Api package depends on another package whose manifest kind is Api.
const ApiDependsOnApiFlag = "ApiDependsOnApi"

// Graph is the discovered dependency graph of a root manifest.
type Graph struct {
	Nodes []*Node
	Edges []Edge
	Flags []Flag

	index map[string]int
}

func newGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

func nodeKey(id string, kind Kind) string {
	return kind.String() + ":" + id
}

func (g *Graph) getOrCreate(id string, kind Kind) (*Node, bool) {
	key := nodeKey(id, kind)
	if idx, ok := g.index[key]; ok {
		return g.Nodes[idx], false
	}
	n := &Node{ID: len(g.Nodes), PackageID: id, Kind: kind}
	g.Nodes = append(g.Nodes, n)
	g.index[key] = n.ID
	return n, true
}

func (g *Graph) addEdge(from, to int, req version.Requirement) {
	g.Edges = append(g.Edges, Edge{From: from, To: to, Requirement: req})
}

// ByPackageID groups every node sharing a PackageId, across both kinds.
// The resolver uses this to reconcile a Local anchor against sibling
// Registry edges for the same package.
func (g *Graph) ByPackageID(id string) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.PackageID == id {
			out = append(out, n)
		}
	}
	return out
}

// ManifestLoader reads a package manifest from a local directory.
type ManifestLoader interface {
	Load(dir string) (*manifest.Manifest, error)
}

// VersionLister lists the versions of a registry package matching req,
// in descending order. Implemented by pkg/registry.Client.Versions.
type VersionLister interface {
	Versions(ctx context.Context, url, repository, id string, req version.Requirement) ([]version.Version, error)
}

// Fetcher retrieves and parses the manifest for one exact registry
// package version, going through the cache when possible.
type Fetcher interface {
	Fetch(ctx context.Context, url, repository, id string, v version.Version) (*manifest.Manifest, error)
}

// Build walks root's dependency tree, discovering every reachable Local
// and Registry candidate. rootDir anchors relative Local paths declared
// directly by root.
func Build(ctx context.Context, root *manifest.Manifest, rootDir string, loader ManifestLoader, lister VersionLister, fetcher Fetcher) (*Graph, error) {
	absRootDir, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root directory: %w", err)
	}

	rootKind := manifest.PackageKind("")
	if root.Package != nil {
		rootKind = root.Package.Kind
	}

	g := newGraph()
	b := &builder{ctx: ctx, loader: loader, lister: lister, fetcher: fetcher, g: g, visiting: make(map[int]bool)}

	if err := b.processDependencies(-1, rootKind, absRootDir, root.Dependencies); err != nil {
		return nil, err
	}
	return g, nil
}

type builder struct {
	ctx      context.Context
	loader   ManifestLoader
	lister   VersionLister
	fetcher  Fetcher
	g        *Graph
	visiting map[int]bool
}

// expand discovers node's own dependencies. Guarded by visiting so a
// true cycle (A ultimately depends on itself) terminates instead of
// recursing forever; per the graph's design, a revisited node is simply
// merged into rather than treated as an error.
func (b *builder) expand(idx int) error {
	if b.visiting[idx] {
		return nil
	}
	b.visiting[idx] = true
	defer delete(b.visiting, idx)

	n := b.g.Nodes[idx]
	if n.Manifest == nil {
		return nil
	}

	dir := ""
	if n.Kind == KindLocal {
		dir = n.Path
	}
	kind := manifest.PackageKind("")
	if n.Manifest.Package != nil {
		kind = n.Manifest.Package.Kind
	}
	return b.processDependencies(idx, kind, dir, n.Manifest.Dependencies)
}

func (b *builder) processDependencies(fromIdx int, parentKind manifest.PackageKind, parentDir string, deps map[string]manifest.DependencySource) error {
	if parentKind == manifest.Library && len(deps) > 0 {
		// Unreachable in practice: manifest.Validate already rejects a
		// Library package that declares any dependency at parse time.
		return manifest.LibraryHasDependencies
	}

	fromIsRegistry := fromIdx >= 0 && b.g.Nodes[fromIdx].Kind == KindRegistry

	ids := make([]string, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, depID := range ids {
		src := deps[depID]

		if fromIsRegistry && src.IsLocal() {
			return fmt.Errorf("%w: %s depends on local path %q", RegistryPackageDeclaresLocalDependency, b.g.Nodes[fromIdx].PackageID, src.Local.Path)
		}

		if src.IsLocal() {
			if err := b.expandLocalEdge(fromIdx, parentKind, parentDir, depID, src); err != nil {
				return err
			}
			continue
		}
		if err := b.expandRegistryEdge(fromIdx, parentKind, depID, src); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) expandLocalEdge(fromIdx int, parentKind manifest.PackageKind, parentDir, depID string, src manifest.DependencySource) error {
	childPath, err := filepath.Abs(filepath.Join(parentDir, src.Local.Path))
	if err != nil {
		return fmt.Errorf("resolve local path %q: %w", src.Local.Path, err)
	}

	child, created := b.g.getOrCreate(depID, KindLocal)
	if created {
		child.Path = childPath
		childManifest, err := b.loader.Load(childPath)
		if err != nil {
			return fmt.Errorf("load local dependency %q: %w", depID, err)
		}
		child.Manifest = childManifest
	} else if child.Path != childPath {
		return fmt.Errorf("%w: %s resolves to both %s and %s", ConflictingLocalPath, depID, child.Path, childPath)
	}

	b.g.addEdge(fromIdx, child.ID, version.Requirement{})
	recordAPIFlag(b.g, parentKind, fromLabel(b.g, fromIdx), child)

	if created {
		return b.expand(child.ID)
	}
	return nil
}

func (b *builder) expandRegistryEdge(fromIdx int, parentKind manifest.PackageKind, depID string, src manifest.DependencySource) error {
	reg := src.Registry
	child, created := b.g.getOrCreate(depID, KindRegistry)
	if created {
		child.URL = reg.URL
		child.Repository = reg.Repository
	}

	merged, err := version.Intersect(child.Requirement, reg.Requirement)
	if err != nil {
		return fmt.Errorf("merge requirement for %q: %w", depID, err)
	}
	requirementChanged := created || merged.String() != child.Requirement.String()
	child.Requirement = merged

	b.g.addEdge(fromIdx, child.ID, reg.Requirement)

	candidates, err := b.lister.Versions(b.ctx, child.URL, child.Repository, depID, child.Requirement)
	if err != nil {
		return fmt.Errorf("list versions for %q: %w", depID, err)
	}
	child.Candidates = candidates

	if len(candidates) == 0 {
		child.hasSelected = false
		child.Manifest = nil
		return nil
	}

	top := candidates[0]
	pickChanged := requirementChanged || !child.hasSelected || !child.Selected.Equal(top)
	if !pickChanged {
		return nil
	}

	peeked, err := b.fetcher.Fetch(b.ctx, child.URL, child.Repository, depID, top)
	if err != nil {
		return fmt.Errorf("fetch manifest for %s@%s: %w", depID, top.String(), err)
	}
	child.Selected = top
	child.hasSelected = true
	child.Manifest = peeked

	recordAPIFlag(b.g, parentKind, fromLabel(b.g, fromIdx), child)

	return b.expand(child.ID)
}

func recordAPIFlag(g *Graph, parentKind manifest.PackageKind, parentLabel string, child *Node) {
	if parentKind != manifest.Api || child.Manifest == nil || child.Manifest.Package == nil {
		return
	}
	if child.Manifest.Package.Kind == manifest.Api {
		g.Flags = append(g.Flags, Flag{Kind: ApiDependsOnApiFlag, Parent: parentLabel, Child: child.PackageID})
	}
}

func fromLabel(g *Graph, fromIdx int) string {
	if fromIdx < 0 {
		return ""
	}
	return g.Nodes[fromIdx].PackageID
}
