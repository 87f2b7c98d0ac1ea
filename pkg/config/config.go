// Package config resolves buffrs's single home directory and the fixed
// subpaths beneath it. Unlike the teacher's multi-repository,
// YAML-backed settings file, buffrs has no user-editable configuration
// document: every path is a deterministic function of BUFFRS_HOME (or
// $HOME/.buffrs), grounded on the teacher's pkg/fsutil/paths.go
// resolution pattern but collapsed to the single documented scheme the
// project's environment-variable contract names.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	buffrserrors "github.com/buffrs-dev/buffrs/pkg/errors"
	"github.com/buffrs-dev/buffrs/pkg/fsutil"
)

// homeEnvVar is the environment variable that overrides the default
// home directory.
const homeEnvVar = "BUFFRS_HOME"

// CredentialsFileName is the credential store's file name under Home.
const CredentialsFileName = "credentials.toml"

// CacheDirName is the content-addressed archive cache's directory name
// under Home.
const CacheDirName = "cache"

// VendorDirName is the directory name a project's resolved dependencies
// are extracted under, relative to a project's proto/ directory.
const VendorDirName = "vendor"

// Home returns BUFFRS_HOME if set, else $HOME/.buffrs.
func Home() (string, error) {
	if dir := os.Getenv(homeEnvVar); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", buffrserrors.Wrap(err, "resolve user home directory")
	}
	return filepath.Join(home, ".buffrs"), nil
}

// CredentialsPath returns BUFFRS_HOME/credentials.toml.
func CredentialsPath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, CredentialsFileName), nil
}

// CacheDir returns BUFFRS_HOME/cache.
func CacheDir() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, CacheDirName), nil
}

// VendorDir returns <projectRoot>/proto/vendor, the tree C10 rebuilds
// on every install.
func VendorDir(projectRoot string) string {
	return filepath.Join(projectRoot, "proto", VendorDirName)
}

// ManifestPath returns <projectRoot>/Proto.toml.
func ManifestPath(projectRoot string) string {
	return filepath.Join(projectRoot, "Proto.toml")
}

// LockfilePath returns <projectRoot>/Proto.lock.
func LockfilePath(projectRoot string) string {
	return filepath.Join(projectRoot, "Proto.lock")
}

// EnsureHome creates BUFFRS_HOME and its cache subdirectory if they do
// not already exist, returning the resolved home path.
func EnsureHome() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	cache, err := CacheDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(home, fsutil.DirModePrivate); err != nil {
		return "", fmt.Errorf("create %s: %w", home, err)
	}
	if err := os.MkdirAll(cache, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", cache, err)
	}
	return home, nil
}
