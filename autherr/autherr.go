// Package autherr defines the stable internal error taxonomy for the
// gateway and the translator that maps provider failures onto it. Callers
// above the facade never see provider-specific vocabulary.
package autherr

import (
	"errors"
	"fmt"
)

// Kind identifies one failure category in the taxonomy.
type Kind string

const (
	KindInvalidCredentialFormat Kind = "INVALID_CREDENTIAL_FORMAT"
	KindProviderAuthRejected    Kind = "PROVIDER_AUTH_REJECTED"
	KindSessionExpired          Kind = "SESSION_EXPIRED"
	KindSessionRevoked          Kind = "SESSION_REVOKED"
	KindSessionBindFailed       Kind = "SESSION_BIND_FAILED"
	KindProviderUnavailable     Kind = "PROVIDER_UNAVAILABLE"
	KindUnknownProvider         Kind = "UNKNOWN_PROVIDER_ERROR"
)

// Error is the typed failure returned on every error path that crosses the
// facade boundary. Constructed once, never mutated downstream.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	cause     error
}

// New builds an Error for the given kind. Retryable is fixed per kind
// except for PROVIDER_UNAVAILABLE, which is always retryable.
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Retryable: kind == KindProviderUnavailable,
		cause:     cause,
	}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for diagnostics only.
func (e *Error) Unwrap() error { return e.cause }

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	ae, ok := AsError(err)
	return ok && ae.Kind == kind
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
