// Package registry implements the buffrs wire protocol: an HTTP client
// exposing the three capabilities a registry offers (versions, download,
// publish), plus the retry and transport discipline the spec requires.
package registry

import (
	"context"

	"github.com/buffrs-dev/buffrs/pkg/version"
)

// Download is the result of fetching one exact package version.
type Download struct {
	Archive []byte
	Digest  string
}

// Client is the abstract capability a registry offers. Implementations
// must apply the ordering and retry guarantees described on HTTPClient.
//
//go:generate mockgen -destination=./mocks/client.go . Client
type Client interface {
	// Versions returns every version of id in repository matching req,
	// in descending order.
	Versions(ctx context.Context, repository, id string, req version.Requirement) ([]version.Version, error)

	// Download fetches the exact archive for id@v. Callers must
	// recompute the digest from the returned bytes rather than trusting
	// Download.Digest outright.
	Download(ctx context.Context, repository, id string, v version.Version) (Download, error)

	// Publish uploads archiveBytes as id@v. Never retried on
	// non-transport errors.
	Publish(ctx context.Context, repository, id string, v version.Version, archiveBytes []byte) error
}
