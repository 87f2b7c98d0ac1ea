package cache

import "fmt"

// CacheIntegrity is returned by Put when the actual digest of the bytes
// being stored does not match the digest under which they were keyed.
type CacheIntegrity struct {
	Digest string
	Actual string
}

func (e *CacheIntegrity) Error() string {
	return fmt.Sprintf("cache integrity violation: expected %s, got %s", e.Digest, e.Actual)
}

// Missing is returned by Get when the digest is not present in the
// cache. Callers that observed Has(digest) == true and then hit Missing
// are expected to treat it as a fresh miss and re-fetch, since another
// process may have GC'd the entry concurrently.
var Missing = fmt.Errorf("cache entry not found")
