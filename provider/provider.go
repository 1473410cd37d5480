// Package provider defines the capability interface the gateway requires
// from a remote identity provider. The core depends on this contract only;
// concrete adapters (hosted, oidcp) implement it.
package provider

import "context"

// Client is the outbound contract to the identity provider. All four
// operations are bounded by the caller's context and perform no retries of
// their own - retry policy belongs to the layers that know which failures
// are idempotent-safe.
type Client interface {
	// SignUp registers a new principal and returns its provider-assigned subject.
	SignUp(ctx context.Context, identifier, secret string, attributes map[string]string) (Subject, error)

	// SignIn verifies a credential and returns a fresh token bundle.
	SignIn(ctx context.Context, identifier, secret string) (TokenBundle, error)

	// Refresh exchanges a refresh token for a new token bundle. Providers
	// may rotate the refresh token; when they do, the bundle carries the
	// replacement.
	Refresh(ctx context.Context, refreshToken string) (TokenBundle, error)

	// Verify validates an access token with the provider and returns the
	// claims it asserts about the subject.
	Verify(ctx context.Context, accessToken string) (SubjectClaims, error)
}

// Subject is the provider-assigned unique identity of a principal.
type Subject struct {
	ID         string            // Opaque unique identifier issued by the provider
	Identifier string            // The credential identifier used at registration
	Attributes map[string]string // Attributes echoed back by the provider
}

// TokenBundle is the provider's response to a successful sign-in or refresh.
type TokenBundle struct {
	AccessToken  string // Opaque access token
	RefreshToken string // Optional; empty when the provider retains the old one
	ExpiresIn    int64  // Access token lifetime in seconds
	TokenType    string // Usually "Bearer"
}

// SubjectClaims are the identity attributes the provider asserts about a
// subject when an access token is verified.
type SubjectClaims struct {
	Subject    string            // Provider-assigned subject identifier
	Identifier string            // Credential identifier (e.g. email)
	Attributes map[string]string // Additional provider claims
}
