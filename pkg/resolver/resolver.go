// Package resolver picks one concrete version per package id from the
// candidate graph pkg/graph discovers, applying the uniqueness, local
// override, and determinism rules a flat vendor tree requires. It never
// touches the network or the cache: every decision is a pure function of
// the graph handed to it, mirroring the way the teacher's index resolver
// separates constraint accumulation from artifact selection.
package resolver

import (
	"fmt"
	"sort"

	"github.com/buffrs-dev/buffrs/pkg/graph"
	"github.com/buffrs-dev/buffrs/pkg/version"
)

// Selection is the resolver's final choice for one package id.
type Selection struct {
	PackageID string
	Local     bool

	// Registry fields, set when Local is false.
	URL        string
	Repository string
	Version    version.Version

	// Local fields, set when Local is true.
	Path string
}

// Result is the resolver's complete output for a graph.
type Result struct {
	Selections map[string]Selection
}

// Resolve selects a Selection for every package id reachable in g.
func Resolve(g *graph.Graph) (*Result, error) {
	ids := packageIDs(g)

	result := &Result{Selections: make(map[string]Selection, len(ids))}
	for _, id := range ids {
		sel, err := resolveOne(g, id)
		if err != nil {
			return nil, err
		}
		result.Selections[id] = sel
	}
	return result, nil
}

func packageIDs(g *graph.Graph) []string {
	seen := make(map[string]struct{})
	for _, n := range g.Nodes {
		seen[n.PackageID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func resolveOne(g *graph.Graph, id string) (Selection, error) {
	var local, registry *graph.Node
	for _, n := range g.ByPackageID(id) {
		switch n.Kind {
		case graph.KindLocal:
			local = n
		case graph.KindRegistry:
			registry = n
		}
	}

	switch {
	case local != nil && registry != nil:
		return resolveLocalOverride(id, local, registry)
	case local != nil:
		return Selection{PackageID: id, Local: true, Path: local.Path}, nil
	case registry != nil:
		return resolveRegistry(id, registry)
	default:
		return Selection{}, fmt.Errorf("resolver: package %q has no candidate node (internal graph error)", id)
	}
}

func resolveLocalOverride(id string, local, registry *graph.Node) (Selection, error) {
	if local.Manifest == nil || local.Manifest.Package == nil {
		return Selection{}, fmt.Errorf("resolver: local package %q has no [package] section", id)
	}
	localVersion := local.Manifest.Package.Version
	if !registry.Requirement.Matches(localVersion) {
		return Selection{}, &LocalVersionMismatch{
			PackageID:    id,
			LocalVersion: localVersion.String(),
			Requirement:  registry.Requirement.String(),
		}
	}
	return Selection{PackageID: id, Local: true, Path: local.Path}, nil
}

func resolveRegistry(id string, n *graph.Node) (Selection, error) {
	best, ok := version.Highest(n.Candidates)
	if !ok {
		return Selection{}, &VersionConflict{
			PackageID:  id,
			Wanted:     n.Requirement.String(),
			Candidates: nil,
		}
	}
	return Selection{
		PackageID:  id,
		URL:        n.URL,
		Repository: n.Repository,
		Version:    best,
	}, nil
}
