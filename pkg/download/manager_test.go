package download_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/buffrs-dev/buffrs/pkg/download"
	"github.com/buffrs-dev/buffrs/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu       sync.Mutex
	fetched  []string
	failing  map[string]bool
	contents map[string][]byte
}

func (f *fakeFetcher) Fetch(_ context.Context, _, packageID string, v version.Version) ([]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, packageID+"@"+v.String())
	f.mu.Unlock()

	if f.failing[packageID] {
		return nil, fmt.Errorf("simulated failure for %s", packageID)
	}
	return f.contents[packageID], nil
}

func mustVersion(t *testing.T, s string) version.Version {
	t.Helper()
	v, err := version.Parse(s)
	require.NoError(t, err)
	return v
}

func TestFetchAll_ReturnsBytesKeyedByItemID(t *testing.T) {
	fetcher := &fakeFetcher{contents: map[string][]byte{
		"physics": []byte("physics-bytes"),
		"engine":  []byte("engine-bytes"),
	}}
	mgr := download.NewManager(fetcher)

	results, err := mgr.FetchAll(context.Background(), []download.Item{
		{ID: "physics", Repository: "core", Version: mustVersion(t, "1.0.0")},
		{ID: "engine", Repository: "core", Version: mustVersion(t, "2.0.0")},
	}, download.Options{Concurrency: 2})

	require.NoError(t, err)
	assert.Equal(t, []byte("physics-bytes"), results["physics"])
	assert.Equal(t, []byte("engine-bytes"), results["engine"])
}

func TestFetchAll_ReturnsFirstErrorAfterAllFetchesFinish(t *testing.T) {
	fetcher := &fakeFetcher{
		failing:  map[string]bool{"broken": true},
		contents: map[string][]byte{"physics": []byte("physics-bytes")},
	}
	mgr := download.NewManager(fetcher)

	_, err := mgr.FetchAll(context.Background(), []download.Item{
		{ID: "physics", Repository: "core", Version: mustVersion(t, "1.0.0")},
		{ID: "broken", Repository: "core", Version: mustVersion(t, "1.0.0")},
	}, download.Options{Concurrency: 2})

	require.Error(t, err)
	assert.Len(t, fetcher.fetched, 2)
}

func TestFetchAll_DefaultsConcurrencyWhenUnset(t *testing.T) {
	fetcher := &fakeFetcher{contents: map[string][]byte{"physics": []byte("physics-bytes")}}
	mgr := download.NewManager(fetcher)

	results, err := mgr.FetchAll(context.Background(), []download.Item{
		{ID: "physics", Repository: "core", Version: mustVersion(t, "1.0.0")},
	}, download.Options{})

	require.NoError(t, err)
	assert.Equal(t, []byte("physics-bytes"), results["physics"])
}
