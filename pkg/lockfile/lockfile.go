// Package lockfile persists the resolver's exact output to Proto.lock
// and reconciles it against a manifest on the next install, so repeated
// installs are reproducible: a package whose pin still satisfies the
// manifest resolves to the pinned version again.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/buffrs-dev/buffrs/pkg/cache"
	"github.com/buffrs-dev/buffrs/pkg/fsutil"
	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/registry"
	"github.com/buffrs-dev/buffrs/pkg/version"
	"github.com/pelletier/go-toml/v2"
)

// Entry is one locked Registry package. Local packages are never
// written to the lockfile; their paths are not portable across
// machines.
type Entry struct {
	ID                 string
	Version            version.Version
	Kind               manifest.PackageKind
	Registry           string
	Repository         string
	Digest             string
	DirectDependencies []string
}

// Lockfile is the parsed contents of a Proto.lock document.
type Lockfile struct {
	Entries []Entry
}

type wireLockfile struct {
	Package []wireEntry `toml:"package"`
}

type wireEntry struct {
	ID                 string   `toml:"id"`
	Version            string   `toml:"version"`
	Kind               string   `toml:"kind"`
	Registry           string   `toml:"registry"`
	Repository         string   `toml:"repository"`
	Digest             string   `toml:"digest"`
	DirectDependencies []string `toml:"direct_dependencies,omitempty"`
}

// Load parses path, or returns AbsentLockfile if it does not exist.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, AbsentLockfile
		}
		return nil, fmt.Errorf("read lockfile: %w", err)
	}

	var wire wireLockfile
	if err := toml.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse lockfile: %w", err)
	}

	l := &Lockfile{Entries: make([]Entry, 0, len(wire.Package))}
	for _, w := range wire.Package {
		v, err := version.Parse(w.Version)
		if err != nil {
			return nil, fmt.Errorf("lockfile entry %q: %w", w.ID, err)
		}
		l.Entries = append(l.Entries, Entry{
			ID:                 w.ID,
			Version:            v,
			Kind:               manifest.PackageKind(w.Kind),
			Registry:           w.Registry,
			Repository:         w.Repository,
			Digest:             w.Digest,
			DirectDependencies: w.DirectDependencies,
		})
	}
	sortEntries(l.Entries)
	return l, nil
}

// Save serializes entries to path in canonical order (ascending id, then
// ascending version) using a temp-file-then-rename write so readers
// never observe a partially written lockfile.
func Save(path string, entries []Entry) error {
	sorted := append([]Entry(nil), entries...)
	sortEntries(sorted)

	wire := wireLockfile{Package: make([]wireEntry, len(sorted))}
	for i, e := range sorted {
		wire.Package[i] = wireEntry{
			ID:                 e.ID,
			Version:            e.Version.String(),
			Kind:               string(e.Kind),
			Registry:           e.Registry,
			Repository:         e.Repository,
			Digest:             e.Digest,
			DirectDependencies: e.DirectDependencies,
		}
	}

	data, err := toml.Marshal(wire)
	if err != nil {
		return fmt.Errorf("marshal lockfile: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve lockfile path: %w", err)
	}
	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return fmt.Errorf("create lockfile directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(absPath), "Proto.lock.*.tmp")
	if err != nil {
		return fmt.Errorf("create temp lockfile: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp lockfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp lockfile: %w", err)
	}
	if err := os.Chmod(tmpPath, fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("chmod temp lockfile: %w", err)
	}
	if err := os.Rename(tmpPath, absPath); err != nil {
		return fmt.Errorf("rename lockfile into place: %w", err)
	}
	return nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ID != entries[j].ID {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Version.LessThan(entries[j].Version)
	})
}

// Pin carries a previously locked package's version and archive digest.
// The digest lets the engine and installer skip a redundant registry
// round-trip for a package whose pin still holds: cache.Has(digest)
// answers "do we already have these exact bytes" without needing to
// download anything first.
type Pin struct {
	Version version.Version
	Digest  string
}

// Reconcile produces a pinning set: for each package id present in both
// previous and manifest's direct dependencies, the locked version is
// kept as a hard pin unless the manifest's requirement now excludes it
// (LockfileStale). Transitive entries (not a direct dependency of
// manifest) are pinned unconditionally. Entries whose id manifest now
// declares as a Local dependency are dropped from the pinning set,
// since the local path takes precedence regardless of any prior pin.
func Reconcile(m *manifest.Manifest, previous *Lockfile) (map[string]Pin, error) {
	pins := make(map[string]Pin)
	if previous == nil {
		return pins, nil
	}

	for _, e := range previous.Entries {
		dep, isDirect := m.Dependencies[e.ID]
		if isDirect && dep.IsLocal() {
			continue
		}
		if isDirect && !dep.Registry.Requirement.Matches(e.Version) {
			return nil, &LockfileStale{PackageID: e.ID}
		}
		pins[e.ID] = Pin{Version: e.Version, Digest: e.Digest}
	}
	return pins, nil
}

// Verify recomputes the digest of each downloaded archive against the
// digest recorded at lock time, catching a registry that served
// different bytes for a version it already published.
func Verify(entries []Entry, archives map[string][]byte) error {
	for _, e := range entries {
		if e.Digest == "" {
			continue
		}
		data, ok := archives[e.ID]
		if !ok {
			continue
		}
		actual := cache.Digest(data)
		if actual != e.Digest {
			return &registry.DigestMismatch{Expected: e.Digest, Actual: actual}
		}
	}
	return nil
}

// FileRef is one lockfile entry projected to its download coordinates,
// the shape `buffrs lock print-files` reports without touching the
// network.
type FileRef struct {
	URL    string
	Digest string
}

// PrintFiles projects every Registry entry in l to its download URL and
// digest. Local entries are skipped: they were never written with one.
func PrintFiles(l *Lockfile) ([]FileRef, error) {
	refs := make([]FileRef, 0, len(l.Entries))
	for _, e := range l.Entries {
		if e.Registry == "" {
			continue
		}
		url, err := registry.BuildEndpoint(e.Registry, e.Repository, e.ID, e.Version.String())
		if err != nil {
			return nil, fmt.Errorf("build download url for %q: %w", e.ID, err)
		}
		refs = append(refs, FileRef{URL: url, Digest: e.Digest})
	}
	return refs, nil
}
