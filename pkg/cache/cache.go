// Package cache implements the content-addressed local store of fetched
// package archives, shared across projects under BUFFRS_HOME/cache.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/pkg/fsutil"
)

// Store is a flat, content-addressed archive store. Entries are named
// <sha256hex>.tgz under the store's root directory. Writes are staged to
// a temp file and renamed into place so concurrent readers never observe
// a partial file, and entries are never mutated once written.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Digest computes the store's key for a blob of archive bytes.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func (s *Store) path(digest string) (string, error) {
	hexPart, err := digestHex(digest)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, hexPart+".tgz"), nil
}

func digestHex(digest string) (string, error) {
	const prefix = "sha256:"
	if len(digest) <= len(prefix) || digest[:len(prefix)] != prefix {
		return "", fmt.Errorf("malformed digest %q", digest)
	}
	return digest[len(prefix):], nil
}

// Has reports whether digest is present in the cache.
func (s *Store) Has(digest string) (bool, error) {
	path, err := s.path(digest)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Get returns the archive bytes stored under digest, or Missing if
// absent (including the case where a concurrent GC removed it after a
// prior Has returned true).
func (s *Store) Get(digest string) ([]byte, error) {
	path, err := s.path(digest)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Missing
		}
		return nil, err
	}
	return data, nil
}

// Put atomically stores data under digest. If the computed digest of
// data does not match digest, the write is rejected with CacheIntegrity
// and nothing is written to the store.
func (s *Store) Put(digest string, data []byte) error {
	actual := Digest(data)
	if actual != digest {
		return &CacheIntegrity{Digest: digest, Actual: actual}
	}

	path, err := s.path(digest)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "put-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
