// Package credentials implements the persistent, file-backed mapping
// from registry URL to bearer token stored in BUFFRS_HOME/credentials.toml.
package credentials

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/buffrs-dev/buffrs/pkg/auth"
	"github.com/buffrs-dev/buffrs/pkg/fsutil"
	"github.com/pelletier/go-toml/v2"
)

type entry struct {
	URI   string `toml:"uri"`
	Token string `toml:"token"`
}

type document struct {
	Credentials []entry `toml:"credentials"`
}

// Store is an in-memory view of credentials.toml, keyed by normalized
// registry URL.
type Store struct {
	path    string
	entries map[string]string
}

// Load reads credentials.toml at path. A missing file is treated as an
// empty store rather than an error, matching a fresh BUFFRS_HOME.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Store{path: path, entries: map[string]string{}}, nil
		}
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}

	entries := make(map[string]string, len(doc.Credentials))
	for _, e := range doc.Credentials {
		entries[e.URI] = e.Token
	}
	return &Store{path: path, entries: entries}, nil
}

// Normalize reduces a registry URL to scheme+host+port+path with any
// trailing slash removed, so equivalent URLs share a credential entry.
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse registry url: %w", err)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), nil
}

// Get returns the bearer token for a registry URL, if any.
func (s *Store) Get(registryURL string) (auth.BearerAuth, bool, error) {
	key, err := Normalize(registryURL)
	if err != nil {
		return auth.BearerAuth{}, false, err
	}
	token, ok := s.entries[key]
	if !ok {
		return auth.BearerAuth{}, false, nil
	}
	return auth.BearerAuth{Token: token}, true, nil
}

// Put stores or replaces the token for a registry URL and persists the
// store under an exclusive file lock.
func (s *Store) Put(registryURL, token string) error {
	key, err := Normalize(registryURL)
	if err != nil {
		return err
	}
	return s.withLock(func() error {
		s.entries[key] = token
		return s.save()
	})
}

// Delete removes the credential for a registry URL, if present, and
// persists the store under an exclusive file lock.
func (s *Store) Delete(registryURL string) error {
	key, err := Normalize(registryURL)
	if err != nil {
		return err
	}
	return s.withLock(func() error {
		delete(s.entries, key)
		return s.save()
	})
}

func (s *Store) save() error {
	if err := fsutil.EnsureFileDir(s.path); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	uris := make([]string, 0, len(s.entries))
	for uri := range s.entries {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	doc := document{Credentials: make([]entry, 0, len(uris))}
	for _, uri := range uris {
		doc.Credentials = append(doc.Credentials, entry{URI: uri, Token: s.entries[uri]})
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, fsutil.FileModeSecure); err != nil {
		return fmt.Errorf("write temp credentials file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename credentials file: %w", err)
	}
	return os.Chmod(s.path, fsutil.FileModeSecure)
}

// withLock serializes login/logout writers across processes using a
// sibling lock file, since credentials.toml itself is read-mostly and
// must never be observed half-written by a concurrent reader.
func (s *Store) withLock(fn func() error) error {
	lockPath := s.path + ".lock"
	if err := fsutil.EnsureFileDir(lockPath); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fsutil.FileModeSecure)
		if err == nil {
			_ = lockFile.Close()
			break
		}
		if !os.IsExist(err) {
			return fmt.Errorf("acquire credentials lock: %w", err)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("acquire credentials lock: timed out")
		}
		time.Sleep(25 * time.Millisecond)
	}
	defer os.Remove(lockPath)

	return fn()
}
