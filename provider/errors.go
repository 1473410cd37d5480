package provider

import "fmt"

// Code is a normalized provider failure category. Adapters map their
// provider-specific vocabulary (Cognito exception names, OAuth error codes,
// HTTP statuses) onto these before errors leave the adapter.
type Code string

const (
	CodeUserExists         Code = "user_exists"          // Registration with an identifier that is already taken
	CodeUserNotFound       Code = "user_not_found"       // Unknown identifier
	CodeUserNotConfirmed   Code = "user_not_confirmed"   // Account exists but has not completed verification
	CodeNotAuthorized      Code = "not_authorized"       // Wrong credential or token rejected
	CodeInvalidParameter   Code = "invalid_parameter"    // Provider rejected the request shape
	CodeTokenExpired       Code = "token_expired"        // Access or refresh token past its lifetime
	CodeTokenRevoked       Code = "token_revoked"        // Token invalidated provider-side (single-use reuse included)
	CodeThrottled          Code = "throttled"            // Rate limited; safe to retry later
	CodeServiceUnavailable Code = "service_unavailable"  // Provider-side 5xx equivalent
)

// Error is a provider failure with a normalized code. It wraps the raw
// adapter error for diagnostics.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// NewError builds a provider error with an optional underlying cause.
func NewError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider error: %s", e.Code)
	}
	return fmt.Sprintf("provider error: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }
