package cache_test

import (
	"testing"

	"github.com/buffrs-dev/buffrs/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGetHas(t *testing.T) {
	store, err := cache.New(t.TempDir())
	require.NoError(t, err)

	data := []byte("archive bytes")
	digest := cache.Digest(data)

	has, err := store.Has(digest)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.Put(digest, data))

	has, err = store.Has(digest)
	require.NoError(t, err)
	assert.True(t, has)

	got, err := store.Get(digest)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestStore_Get_MissingReturnsSentinel(t *testing.T) {
	store, err := cache.New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("sha256:0000000000000000000000000000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, cache.Missing)
}

func TestStore_Put_RejectsDigestMismatch(t *testing.T) {
	store, err := cache.New(t.TempDir())
	require.NoError(t, err)

	err = store.Put("sha256:deadbeef", []byte("mismatched content"))
	var integrity *cache.CacheIntegrity
	require.ErrorAs(t, err, &integrity)
}
