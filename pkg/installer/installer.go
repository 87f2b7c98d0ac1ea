// Package installer rebuilds the proto/vendor tree from a resolved
// selection: it fetches every registry package's archive (overlapped
// through pkg/download's bounded worker pool), extracts each selected
// package under proto/vendor/<id>/, and swaps the new tree into place
// atomically so a failed install never leaves the workspace
// half-updated. Grounded on the teacher's pkg/artifact/install.go
// (stage-then-Move, rollback-on-failure) and pkg/fsutil/files.go's
// cross-filesystem-safe Move/Copy. Per the concurrency model, downloads
// may overlap but extraction into the vendor tree is strictly
// serialized.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/buffrs-dev/buffrs/pkg/archive"
	"github.com/buffrs-dev/buffrs/pkg/cache"
	"github.com/buffrs-dev/buffrs/pkg/download"
	"github.com/buffrs-dev/buffrs/pkg/fsutil"
	"github.com/buffrs-dev/buffrs/pkg/logger"
	"github.com/buffrs-dev/buffrs/pkg/registry"
	"github.com/buffrs-dev/buffrs/pkg/resolver"
	"github.com/buffrs-dev/buffrs/pkg/version"
	"github.com/sirupsen/logrus"
)

// Installer rebuilds one workspace member's vendor tree.
type Installer struct {
	VendorDir   string
	Cache       *cache.Store
	Client      registry.Client
	Concurrency int

	// Digests maps a selection's package id to an already-known archive
	// digest, typically the one the engine just fetched and cached
	// while resolving this same install. When set, Fetch reads the
	// archive straight from the cache instead of downloading it again.
	Digests map[string]string

	downloads *download.Manager
}

// New returns an Installer that extracts into vendorDir.
func New(vendorDir string, client registry.Client, cacheStore *cache.Store) *Installer {
	in := &Installer{VendorDir: vendorDir, Client: client, Cache: cacheStore}
	in.downloads = download.NewManager(in)
	return in
}

// Install rebuilds the vendor tree from result. Registry archives are
// fetched concurrently through pkg/download's worker pool; every write
// to the vendor tree itself happens serially in a staging directory
// beside VendorDir, and only once every package has extracted
// successfully is the staging directory swapped in, so a failure
// midway leaves the existing vendor tree untouched.
func (in *Installer) Install(ctx context.Context, result *resolver.Result) error {
	ids := make([]string, 0, len(result.Selections))
	for id := range result.Selections {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if err := checkNoCollisions(ids); err != nil {
		return err
	}

	items := make([]download.Item, 0, len(ids))
	for _, id := range ids {
		sel := result.Selections[id]
		if sel.Local {
			continue
		}
		items = append(items, download.Item{ID: id, Repository: sel.Repository, Version: sel.Version})
	}

	archives, err := in.downloads.FetchAll(ctx, items, download.Options{Concurrency: in.Concurrency})
	if err != nil {
		return fmt.Errorf("fetch registry archives: %w", err)
	}

	parent := filepath.Dir(in.VendorDir)
	if err := fsutil.EnsureDir(parent); err != nil {
		return fmt.Errorf("create vendor parent directory: %w", err)
	}
	stagingDir, err := os.MkdirTemp(parent, "vendor-staging-*")
	if err != nil {
		return fmt.Errorf("create vendor staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	for _, id := range ids {
		sel := result.Selections[id]
		target := filepath.Join(stagingDir, id)
		if sel.Local {
			if err := copyLocalProtoTree(sel.Path, target); err != nil {
				return fmt.Errorf("stage local package %q: %w", id, err)
			}
			continue
		}
		if _, err := archive.Unbundle(archives[id], target); err != nil {
			return fmt.Errorf("stage registry package %q: %w", id, err)
		}
	}

	return swapIntoPlace(in.VendorDir, stagingDir)
}

// Fetch returns packageID@v's archive bytes, favoring the cache over
// the network: if Digests names an already-known digest for packageID
// and the cache holds it, Fetch reads it straight from disk. Otherwise
// it downloads through Client, verifies the digest, and caches it if
// not already present. It implements download.Fetcher so Install can
// hand this Installer directly to a download.Manager.
func (in *Installer) Fetch(ctx context.Context, repository, packageID string, v version.Version) ([]byte, error) {
	if known, ok := in.Digests[packageID]; ok && known != "" {
		present, err := in.Cache.Has(known)
		if err != nil {
			return nil, fmt.Errorf("check cache: %w", err)
		}
		if present {
			if data, err := in.Cache.Get(known); err == nil {
				return data, nil
			}
			// Get missed after Has hit: an external GC raced us. Fall
			// through and re-download.
		}
	}

	dl, err := in.Client.Download(ctx, repository, packageID, v)
	if err != nil {
		return nil, err
	}

	digest := archive.Digest(dl.Archive)
	if dl.Digest != "" && dl.Digest != digest {
		return nil, &registry.DigestMismatch{Expected: dl.Digest, Actual: digest}
	}
	if known, ok := in.Digests[packageID]; ok && known != "" && known != digest {
		return nil, &registry.DigestMismatch{Expected: known, Actual: digest}
	}

	present, err := in.Cache.Has(digest)
	if err != nil {
		return nil, fmt.Errorf("check cache: %w", err)
	}
	if !present {
		if err := in.Cache.Put(digest, dl.Archive); err != nil {
			return nil, fmt.Errorf("write cache: %w", err)
		}
	}
	return dl.Archive, nil
}

// copyLocalProtoTree copies pkgDir/proto into target. A package without
// a proto/ subtree yields an empty vendor directory rather than an
// error, matching how archive.Unbundle tolerates a manifest-only
// archive with no proto files.
func copyLocalProtoTree(pkgDir, target string) error {
	src := filepath.Join(pkgDir, "proto")
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return fsutil.EnsureDir(target)
	}
	return copyTree(src, target)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		dstPath := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(dstPath, fsutil.DirModeDefault)
		}
		if err := fsutil.EnsureFileDir(dstPath); err != nil {
			return err
		}
		return fsutil.Copy(path, dstPath)
	})
}

// swapIntoPlace atomically replaces vendorDir's contents with
// stagingDir. Any prior vendorDir is renamed aside and removed only
// after the new tree is safely in place.
func swapIntoPlace(vendorDir, stagingDir string) error {
	aside := ""
	if _, err := os.Stat(vendorDir); err == nil {
		aside = vendorDir + ".stale"
		_ = os.RemoveAll(aside)
		if err := fsutil.Move(vendorDir, aside); err != nil {
			return fmt.Errorf("move existing vendor tree aside: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat existing vendor tree: %w", err)
	}

	if err := fsutil.Move(stagingDir, vendorDir); err != nil {
		if aside != "" {
			_ = fsutil.Move(aside, vendorDir)
		}
		return fmt.Errorf("swap staged vendor tree into place: %w", err)
	}
	if aside != "" {
		if err := os.RemoveAll(aside); err != nil {
			logger.Warn("failed to remove stale vendor tree", logrus.Fields{"path": aside, "error": err})
		}
	}
	return nil
}

// checkNoCollisions defends against two distinct package ids mapping to
// the same vendor directory name, e.g. case-insensitive filesystems
// colliding "Physics" and "physics".
func checkNoCollisions(ids []string) error {
	seen := make(map[string]string, len(ids))
	for _, id := range ids {
		key := strings.ToLower(id)
		if other, ok := seen[key]; ok && other != id {
			return &VendorCollision{First: other, Second: id, Target: key}
		}
		seen[key] = id
	}
	return nil
}
