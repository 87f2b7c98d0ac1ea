package cli

import (
	"context"
	"fmt"

	"github.com/buffrs-dev/buffrs/pkg/auth"
	"github.com/buffrs-dev/buffrs/pkg/cache"
	"github.com/buffrs-dev/buffrs/pkg/credentials"
	"github.com/buffrs-dev/buffrs/pkg/graph"
	"github.com/buffrs-dev/buffrs/pkg/lockfile"
	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/registry"
	"github.com/buffrs-dev/buffrs/pkg/version"
)

// singleRegistryAdapter adapts one fixed-origin registry.Client into
// graph.VersionLister and graph.Fetcher, whose signatures carry a url
// parameter to allow a future multi-registry graph. Today's
// registry.Client is bound to one base URL at construction, so a
// mismatched url is rejected rather than silently routed elsewhere.
// pins carries any previously locked digests, so Fetch can hand
// graph.CachingFetcher an ExpectedDigest and skip a redundant download
// when nothing about a pinned package has changed.
type singleRegistryAdapter struct {
	url    string
	client registry.Client
	cache  *cache.Store
	pins   map[string]lockfile.Pin
}

func newSingleRegistryAdapter(url string, client registry.Client, cacheStore *cache.Store, pins map[string]lockfile.Pin) *singleRegistryAdapter {
	return &singleRegistryAdapter{url: url, client: client, cache: cacheStore, pins: pins}
}

func (a *singleRegistryAdapter) checkURL(url string) error {
	if url != a.url {
		return fmt.Errorf("registry %q is not configured; this project only has %q available", url, a.url)
	}
	return nil
}

// Versions implements graph.VersionLister.
func (a *singleRegistryAdapter) Versions(ctx context.Context, url, repository, id string, req version.Requirement) ([]version.Version, error) {
	if err := a.checkURL(url); err != nil {
		return nil, err
	}
	return a.client.Versions(ctx, repository, id, req)
}

// Fetch implements graph.Fetcher.
func (a *singleRegistryAdapter) Fetch(ctx context.Context, url, repository, id string, v version.Version) (*manifest.Manifest, error) {
	if err := a.checkURL(url); err != nil {
		return nil, err
	}
	cf := &graph.CachingFetcher{Client: a.client, Cache: a.cache}
	if pin, ok := a.pins[id]; ok && pin.Digest != "" && pin.Version.Equal(v) {
		cf.ExpectedDigest = pin.Digest
	}
	return cf.Fetch(ctx, url, repository, id, v)
}

// primaryRegistryURL returns the single registry URL every Registry
// dependency in m must share, or "" if m declares none. buffrs installs
// against one configured registry per project; a manifest naming more
// than one is rejected up front instead of failing deep inside graph
// construction.
func primaryRegistryURL(m *manifest.Manifest) (string, error) {
	url := ""
	for id, dep := range m.Dependencies {
		if dep.IsLocal() {
			continue
		}
		if url == "" {
			url = dep.Registry.URL
			continue
		}
		if dep.Registry.URL != url {
			return "", fmt.Errorf("dependency %q uses registry %q, but this project is configured against %q; multiple registries per project are not supported", id, dep.Registry.URL, url)
		}
	}
	return url, nil
}

// buildRegistryClient constructs an authenticated HTTPClient for url,
// looking up a bearer token from the credentials store if one exists.
func buildRegistryClient(url string, credStore *credentials.Store) (registry.Client, error) {
	var authenticator auth.Authenticator
	if credStore != nil {
		bearer, ok, err := credStore.Get(url)
		if err != nil {
			return nil, fmt.Errorf("look up credentials for %q: %w", url, err)
		}
		if ok {
			authenticator = bearer
		}
	}
	return registry.NewHTTPClient(url, authenticator, DefaultRegistryTimeout)
}
