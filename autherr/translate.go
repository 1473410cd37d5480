package autherr

import (
	"context"
	"errors"
	"net"

	"github.com/jrsteele09/go-identity-gateway/provider"
	"github.com/rs/zerolog"
)

// Translator converts provider and transport failures into the internal
// taxonomy. Unknown provider codes are logged with their full cause for
// operator visibility and surface as UNKNOWN_PROVIDER_ERROR.
type Translator struct {
	logger zerolog.Logger
}

// NewTranslator creates a Translator that logs unmapped errors through the
// supplied logger.
func NewTranslator(logger zerolog.Logger) *Translator {
	return &Translator{logger: logger}
}

// Translate maps err to a typed *Error. A nil err returns nil. An err that
// is already an *Error passes through unchanged.
func (t *Translator) Translate(err error) *Error {
	if err == nil {
		return nil
	}

	if ae, ok := AsError(err); ok {
		return ae
	}

	// Transport-level failures: cancellation, deadline, network timeouts.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return New(KindProviderUnavailable, "identity provider call timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return New(KindProviderUnavailable, "identity provider unreachable", err)
	}

	var pe *provider.Error
	if errors.As(err, &pe) {
		return t.translateProvider(pe)
	}

	t.logger.Error().Err(err).Msg("unmapped error from identity provider")
	return New(KindUnknownProvider, "unexpected identity provider failure", err)
}

func (t *Translator) translateProvider(pe *provider.Error) *Error {
	switch pe.Code {
	case provider.CodeUserExists:
		return New(KindProviderAuthRejected, "account already exists", pe)
	case provider.CodeUserNotFound, provider.CodeNotAuthorized:
		return New(KindProviderAuthRejected, "authentication rejected by identity provider", pe)
	case provider.CodeUserNotConfirmed:
		return New(KindProviderAuthRejected, "account has not been confirmed", pe)
	case provider.CodeInvalidParameter:
		return New(KindProviderAuthRejected, pe.Message, pe)
	case provider.CodeTokenExpired, provider.CodeTokenRevoked:
		return New(KindSessionRevoked, "token no longer accepted by identity provider", pe)
	case provider.CodeThrottled:
		return New(KindProviderUnavailable, "identity provider is throttling requests", pe)
	case provider.CodeServiceUnavailable:
		return New(KindProviderUnavailable, "identity provider unavailable", pe)
	}

	t.logger.Error().
		Str("provider_code", string(pe.Code)).
		Err(pe).
		Msg("unmapped provider error code")
	return New(KindUnknownProvider, "unexpected identity provider failure", pe)
}
