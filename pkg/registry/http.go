package registry

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/buffrs-dev/buffrs/pkg/auth"
	"github.com/buffrs-dev/buffrs/pkg/version"
)

// HTTPClient implements Client over the wire contract:
//
//	GET  {base}/api/v1/{repository}/{id}/versions
//	GET  {base}/api/v1/{repository}/{id}/{version}      (X-Buffrs-Digest header)
//	PUT  {base}/api/v1/{repository}/{id}/{version}
type HTTPClient struct {
	baseURL   string
	client    *http.Client
	auth      auth.Authenticator
	userAgent string

	maxAttempts int
	backoff     time.Duration
}

// NewHTTPClient builds a client against baseURL. authenticator may be
// nil, in which case requests are sent unauthenticated. The transport
// respects HTTP_PROXY/HTTPS_PROXY (via http.ProxyFromEnvironment) and, if
// SSL_CERT_FILE is set, trusts that certificate in addition to the
// system pool.
func NewHTTPClient(baseURL string, authenticator auth.Authenticator, timeout time.Duration) (*HTTPClient, error) {
	transport, err := buildTransport()
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}
	return &HTTPClient{
		baseURL:     baseURL,
		client:      &http.Client{Transport: transport, Timeout: timeout},
		auth:        authenticator,
		userAgent:   "buffrs/1.0",
		maxAttempts: 3,
		backoff:     200 * time.Millisecond,
	}, nil
}

func buildTransport() (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyFromEnvironment

	certFile := os.Getenv("SSL_CERT_FILE")
	if certFile == "" {
		return transport, nil
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	pem, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("read SSL_CERT_FILE: %w", err)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates parsed from SSL_CERT_FILE %s", certFile)
	}
	transport.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	return transport, nil
}

type versionsResponse struct {
	Versions []string `json:"versions"`
}

func (c *HTTPClient) endpoint(repository, id, suffix string) (string, error) {
	return BuildEndpoint(c.baseURL, repository, id, suffix)
}

// BuildEndpoint constructs the wire URL for one repository/id/suffix
// triple against baseURL. Exposed so callers that need to reconstruct a
// download URL without issuing a request (pkg/lockfile's print-files
// projection) don't have to duplicate the path shape.
func BuildEndpoint(baseURL, repository, id, suffix string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse registry base url: %w", err)
	}
	u.Path, err = url.JoinPath(u.Path, "api", "v1", repository, id, suffix)
	if err != nil {
		return "", fmt.Errorf("build endpoint path: %w", err)
	}
	return u.String(), nil
}

// Versions implements Client.
func (c *HTTPClient) Versions(ctx context.Context, repository, id string, req version.Requirement) ([]version.Version, error) {
	endpoint, err := c.endpoint(repository, id, "versions")
	if err != nil {
		return nil, err
	}

	resp, err := c.doRetry(ctx, true, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := statusToError(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Transport{Err: err}
	}
	var parsed versionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Transport{Err: fmt.Errorf("decode versions response: %w", err)}
	}

	var matched []version.Version
	for _, raw := range parsed.Versions {
		v, err := version.Parse(raw)
		if err != nil {
			continue
		}
		if req.Matches(v) {
			matched = append(matched, v)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[j].LessThan(matched[i]) })
	return matched, nil
}

// Download implements Client.
func (c *HTTPClient) Download(ctx context.Context, repository, id string, v version.Version) (Download, error) {
	endpoint, err := c.endpoint(repository, id, v.String())
	if err != nil {
		return Download{}, err
	}

	resp, err := c.doRetry(ctx, true, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return Download{}, err
	}
	defer resp.Body.Close()

	if err := statusToError(resp.StatusCode); err != nil {
		return Download{}, err
	}

	archive, err := io.ReadAll(resp.Body)
	if err != nil {
		return Download{}, &Transport{Err: err}
	}

	return Download{Archive: archive, Digest: resp.Header.Get("X-Buffrs-Digest")}, nil
}

// Publish implements Client. Never retried: a non-transport failure
// (409, 401, 403) must surface to the caller immediately.
func (c *HTTPClient) Publish(ctx context.Context, repository, id string, v version.Version, archiveBytes []byte) error {
	endpoint, err := c.endpoint(repository, id, v.String())
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPut, endpoint, archiveBytes)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &Transport{Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusConflict:
		return Conflict
	case http.StatusUnauthorized:
		return AuthRequired
	case http.StatusForbidden:
		return AuthRejected
	default:
		return &Transport{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

func (c *HTTPClient) newRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.auth != nil {
		if err := c.auth.Apply(req); err != nil {
			return nil, fmt.Errorf("apply credentials: %w", err)
		}
	}
	return req, nil
}

// doRetry runs an idempotent request with bounded exponential backoff on
// transient transport failures, per the ordering guarantees of §4.5: only
// Versions and Download are retried, never Publish.
func (c *HTTPClient) doRetry(ctx context.Context, idempotent bool, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	wait := c.backoff

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &Transport{Err: ctx.Err()}
			case <-time.After(wait):
			}
			wait *= 2
		}

		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = &Transport{Err: err}
			if !idempotent {
				return nil, lastErr
			}
			continue
		}
		if resp.StatusCode >= 500 && idempotent {
			resp.Body.Close()
			lastErr = &Transport{Err: fmt.Errorf("server error %d", resp.StatusCode)}
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}

func statusToError(status int) error {
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return NotFound
	case http.StatusUnauthorized:
		return AuthRequired
	case http.StatusForbidden:
		return AuthRejected
	default:
		return &Transport{Err: fmt.Errorf("unexpected status %d", status)}
	}
}
