package version_test

import (
	"testing"

	"github.com/buffrs-dev/buffrs/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequirement_Tilde(t *testing.T) {
	req, err := version.ParseRequirement("~1.2.3")
	require.NoError(t, err)

	inRange, err := version.Parse("1.2.9")
	require.NoError(t, err)
	assert.True(t, req.Matches(inRange))

	outOfRange, err := version.Parse("1.3.0")
	require.NoError(t, err)
	assert.False(t, req.Matches(outOfRange))
}

func TestParseRequirement_Caret(t *testing.T) {
	tests := []struct {
		req      string
		matches  string
		excludes string
	}{
		{"^1.2.3", "1.9.9", "2.0.0"},
		{"^0.2.3", "0.2.9", "0.3.0"},
		{"^0.0.3", "0.0.3", "0.0.4"},
	}

	for _, tt := range tests {
		req, err := version.ParseRequirement(tt.req)
		require.NoError(t, err)

		v1, err := version.Parse(tt.matches)
		require.NoError(t, err)
		assert.True(t, req.Matches(v1), "%s should match %s", tt.req, tt.matches)

		v2, err := version.Parse(tt.excludes)
		require.NoError(t, err)
		assert.False(t, req.Matches(v2), "%s should not match %s", tt.req, tt.excludes)
	}
}

func TestParseRequirement_Exact(t *testing.T) {
	req, err := version.ParseRequirement("=1.0.0")
	require.NoError(t, err)

	pinned, ok := version.Exact(req)
	require.True(t, ok)
	assert.Equal(t, "1.0.0", pinned.String())
}

func TestParseRequirement_Compound(t *testing.T) {
	req, err := version.ParseRequirement(">=1.0.0,<2.0.0")
	require.NoError(t, err)

	v, err := version.Parse("1.5.0")
	require.NoError(t, err)
	assert.True(t, req.Matches(v))

	v2, err := version.Parse("2.0.0")
	require.NoError(t, err)
	assert.False(t, req.Matches(v2))
}

func TestRequirement_PrereleaseExcludedUnlessNamed(t *testing.T) {
	req, err := version.ParseRequirement(">=1.0.0")
	require.NoError(t, err)

	pre, err := version.Parse("1.5.0-rc.1")
	require.NoError(t, err)
	assert.False(t, req.Matches(pre))
}

func TestHighest(t *testing.T) {
	a, _ := version.Parse("1.0.0")
	b, _ := version.Parse("1.2.0")
	c, _ := version.Parse("1.1.0")

	best, ok := version.Highest([]version.Version{a, b, c})
	require.True(t, ok)
	assert.Equal(t, "1.2.0", best.String())
}

func TestExactRequirement(t *testing.T) {
	v, err := version.Parse("2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "=2.3.4", version.ExactRequirement(v))
}
