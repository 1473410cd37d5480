// Package session owns the token-lifecycle state machine: issuing, caching,
// refreshing and revoking sessions, and reconciling provider responses with
// the internal session records.
package session

import (
	"time"

	"github.com/jrsteele09/go-identity-gateway/provider"
)

// Status is the persisted lifecycle state of a session. Refresh-in-flight
// is a transient guard, never a stored status. Expiry is computed from
// AccessExpiry at read time and never written back, so a stored record only
// ever holds ACTIVE or REVOKED; StatusExpired is the read-side value for a
// record whose access token lifetime has passed.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusExpired Status = "EXPIRED"
	StatusRevoked Status = "REVOKED"
)

// Key is the lookup key for a session, derived from the provider-assigned
// subject. One key identifies one authenticated principal.
type Key string

// KeyForSubject derives the session key for a subject identifier.
func KeyForSubject(subject string) Key {
	return Key(subject)
}

// Session is one authenticated principal's token state. Owned exclusively
// by the Manager; callers receive copies.
type Session struct {
	Key          Key
	Subject      string                 // Provider-assigned subject identifier
	Identifier   string                 // Credential identifier bound at creation
	AccessToken  string                 // Current access token
	RefreshToken string                 // Current refresh token (may be single-use)
	AccessExpiry time.Time              // Absolute access token expiry
	IssuedAt     time.Time              // When the session was created
	Status       Status
	Claims       provider.SubjectClaims // Claims bound at creation / last refresh
}

// ExpiredAt reports whether the access token has expired at the given time.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !s.AccessExpiry.After(now)
}

// StatusAt reports the session's effective status at the given time.
// Revocation is terminal; an unrevoked record past its access expiry reads
// as EXPIRED.
func (s *Session) StatusAt(now time.Time) Status {
	if s.Status == StatusRevoked {
		return StatusRevoked
	}
	if s.ExpiredAt(now) {
		return StatusExpired
	}
	return s.Status
}
