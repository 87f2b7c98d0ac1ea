package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/buffrs-dev/buffrs/pkg/archive"
	"github.com/buffrs-dev/buffrs/pkg/cache"
	"github.com/buffrs-dev/buffrs/pkg/config"
	"github.com/buffrs-dev/buffrs/pkg/credentials"
	"github.com/buffrs-dev/buffrs/pkg/graph"
	"github.com/buffrs-dev/buffrs/pkg/lockfile"
	"github.com/buffrs-dev/buffrs/pkg/logger"
	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/registry"
	"github.com/buffrs-dev/buffrs/pkg/resolver"
	"github.com/buffrs-dev/buffrs/pkg/version"
	"github.com/sirupsen/logrus"
)

// engine bundles the collaborators every command that touches the
// dependency graph needs: a shared package cache, the credential store,
// and (if the manifest has any Registry dependency) an authenticated
// client for the project's single configured registry.
type engine struct {
	root        string
	cache       *cache.Store
	creds       *credentials.Store
	client      registry.Client
	registryURL string
}

func newEngine(root string, m *manifest.Manifest) (*engine, error) {
	if _, err := config.EnsureHome(); err != nil {
		return nil, fmt.Errorf("prepare buffrs home: %w", err)
	}

	cacheDir, err := config.CacheDir()
	if err != nil {
		return nil, err
	}
	cacheStore, err := cache.New(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("open package cache: %w", err)
	}

	credPath, err := config.CredentialsPath()
	if err != nil {
		return nil, err
	}
	credStore, err := credentials.Load(credPath)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	url, err := primaryRegistryURL(m)
	if err != nil {
		return nil, err
	}

	e := &engine{root: root, cache: cacheStore, creds: credStore, registryURL: url}
	if url != "" {
		client, err := buildRegistryClient(url, credStore)
		if err != nil {
			return nil, fmt.Errorf("build registry client: %w", err)
		}
		e.client = client
	}
	return e, nil
}

// buildGraph discovers every candidate reachable from m. pins narrows
// Registry version listing to a previously locked version when it still
// satisfies the manifest's requirement, so a repeat install without
// manifest changes reproduces the exact same selection; the registry's
// version list is still fetched and then narrowed to the pin. A pin's
// recorded digest also lets manifest peeking during graph expansion
// read a cached archive instead of downloading it again.
func (e *engine) buildGraph(ctx context.Context, m *manifest.Manifest, pins map[string]lockfile.Pin) (*graph.Graph, error) {
	var lister graph.VersionLister
	var fetcher graph.Fetcher
	if e.client != nil {
		adapter := newSingleRegistryAdapter(e.registryURL, e.client, e.cache, pins)
		lister = &pinningLister{inner: adapter, pins: pins}
		fetcher = adapter
	}

	g, err := graph.Build(ctx, m, e.root, graph.FileManifestLoader{}, lister, fetcher)
	if err != nil {
		return nil, err
	}
	for _, flag := range g.Flags {
		if flag.Kind == graph.ApiDependsOnApiFlag {
			logger.Warn("api package depends on another api package", logrus.Fields{"parent": flag.Parent, "child": flag.Child})
		}
	}
	return g, nil
}

func (e *engine) resolve(ctx context.Context, m *manifest.Manifest, pins map[string]lockfile.Pin) (*graph.Graph, *resolver.Result, error) {
	g, err := e.buildGraph(ctx, m, pins)
	if err != nil {
		return nil, nil, fmt.Errorf("build dependency graph: %w", err)
	}
	result, err := resolver.Resolve(g)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve dependencies: %w", err)
	}
	return g, result, nil
}

// pinningLister narrows a VersionLister's candidate list to a single
// previously locked version when it is still present among the
// registry's offered versions and still satisfies the caller's
// requirement, so resolver.Resolve's version.Highest picks the same
// version an unchanged manifest picked last time.
type pinningLister struct {
	inner graph.VersionLister
	pins  map[string]lockfile.Pin
}

func (p *pinningLister) Versions(ctx context.Context, url, repository, id string, req version.Requirement) ([]version.Version, error) {
	versions, err := p.inner.Versions(ctx, url, repository, id, req)
	if err != nil {
		return nil, err
	}
	pin, ok := p.pins[id]
	if !ok || !req.Matches(pin.Version) {
		return versions, nil
	}
	for _, v := range versions {
		if v.Equal(pin.Version) {
			return []version.Version{pin.Version}, nil
		}
	}
	return versions, nil
}

// fetchArchives ensures every non-Local selection's archive is present
// in the cache, preferring a local cache hit over the network: when a
// selection's id and version match a pin's, and the cache already
// holds the pin's digest, the archive is read straight from disk.
// Otherwise it downloads through e.client, verifies the digest, and
// caches it. Returns the raw bytes keyed by package id.
func (e *engine) fetchArchives(ctx context.Context, result *resolver.Result, pins map[string]lockfile.Pin) (map[string][]byte, error) {
	ids := make([]string, 0, len(result.Selections))
	for id, sel := range result.Selections {
		if !sel.Local {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	archives := make(map[string][]byte, len(ids))
	for _, id := range ids {
		sel := result.Selections[id]

		if pin, ok := pins[id]; ok && pin.Digest != "" && pin.Version.Equal(sel.Version) {
			present, err := e.cache.Has(pin.Digest)
			if err != nil {
				return nil, fmt.Errorf("check cache for %s: %w", id, err)
			}
			if present {
				if data, err := e.cache.Get(pin.Digest); err == nil {
					archives[id] = data
					continue
				}
				// Get missed after Has hit: an external GC raced us.
				// Fall through and re-download.
			}
		}

		dl, err := e.client.Download(ctx, sel.Repository, id, sel.Version)
		if err != nil {
			return nil, fmt.Errorf("download %s@%s: %w", id, sel.Version.String(), err)
		}
		digest := archive.Digest(dl.Archive)
		if dl.Digest != "" && dl.Digest != digest {
			return nil, &registry.DigestMismatch{Expected: dl.Digest, Actual: digest}
		}
		present, err := e.cache.Has(digest)
		if err != nil {
			return nil, fmt.Errorf("check cache for %s: %w", id, err)
		}
		if !present {
			if err := e.cache.Put(digest, dl.Archive); err != nil {
				return nil, fmt.Errorf("cache %s: %w", id, err)
			}
		}
		archives[id] = dl.Archive
	}
	return archives, nil
}

// buildLockEntries projects a resolved graph and its fetched archives
// into the lockfile entries `install` persists. Local selections are
// never written; their filesystem paths are not portable.
func buildLockEntries(g *graph.Graph, result *resolver.Result, archives map[string][]byte) []lockfile.Entry {
	entries := make([]lockfile.Entry, 0, len(result.Selections))
	for id, sel := range result.Selections {
		if sel.Local {
			continue
		}
		var kind manifest.PackageKind
		var directDeps []string
		for _, n := range g.ByPackageID(id) {
			if n.Kind != graph.KindRegistry || n.Manifest == nil {
				continue
			}
			if n.Manifest.Package != nil {
				kind = n.Manifest.Package.Kind
			}
			for depID := range n.Manifest.Dependencies {
				directDeps = append(directDeps, depID)
			}
		}
		sort.Strings(directDeps)

		entries = append(entries, lockfile.Entry{
			ID:                 id,
			Version:            sel.Version,
			Kind:               kind,
			Registry:           sel.URL,
			Repository:         sel.Repository,
			Digest:             archive.Digest(archives[id]),
			DirectDependencies: directDeps,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// entryDigests projects lockfile entries to the id->digest map
// pkg/installer's Installer.Digests wants, so the vendor-tree extraction
// pass can reuse the archive fetchArchives already fetched and cached
// for this install instead of downloading it a second time.
func entryDigests(entries []lockfile.Entry) map[string]string {
	digests := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Digest != "" {
			digests[e.ID] = e.Digest
		}
	}
	return digests
}
