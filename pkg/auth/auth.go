// Package auth provides authentication support for HTTP requests made to
// a proto registry.
//
//go:generate mockgen -destination=./mocks/auth.go . Authenticator
package auth

import "net/http"

// Authenticator applies credentials to an outgoing registry request.
type Authenticator interface {
	Apply(req *http.Request) error
	Type() Type
}

// BearerAuth authenticates with a bearer token, the only credential kind
// a registry accepts.
type BearerAuth struct {
	Token string
}

// Type represents the kind of authentication in use.
type Type string

// BearerAuthType is the sole supported authentication type.
const BearerAuthType Type = "bearer"

// Apply sets the Authorization header to "Bearer <token>".
func (b BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+b.Token)
	return nil
}

// Type returns BearerAuthType.
func (b BearerAuth) Type() Type { return BearerAuthType }
