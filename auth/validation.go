package auth

import (
	"strings"

	"github.com/jrsteele09/go-identity-gateway/autherr"
	"github.com/jrsteele09/go-identity-gateway/internal/config"
)

// Credential is an inbound identifier/secret pair. It exists only for the
// duration of a signup or login call and is never stored.
type Credential struct {
	Identifier string
	Secret     string
	Attributes map[string]string
}

// ValidatedCredential is a Credential that has passed local shape checks.
type ValidatedCredential struct {
	Identifier string
	Secret     string
	Attributes map[string]string
}

// Validator performs pre-flight shape checks on inbound credentials before
// spending a remote provider call. Purely local, side-effect-free.
type Validator struct {
	minSecretLength     int
	maxIdentifierLength int
}

// NewValidator creates a Validator with the configured thresholds.
func NewValidator(cfg config.AuthConfig) *Validator {
	return &Validator{
		minSecretLength:     cfg.GetMinSecretLength(),
		maxIdentifierLength: cfg.GetMaxIdentifierLength(),
	}
}

// Validate checks the credential's shape. Failures are reported as
// INVALID_CREDENTIAL_FORMAT and never reach the provider.
func (v *Validator) Validate(c Credential) (ValidatedCredential, error) {
	identifier := strings.TrimSpace(c.Identifier)
	if identifier == "" {
		return ValidatedCredential{}, autherr.New(autherr.KindInvalidCredentialFormat, "identifier is required", nil)
	}
	if len(identifier) > v.maxIdentifierLength {
		return ValidatedCredential{}, autherr.New(autherr.KindInvalidCredentialFormat, "identifier exceeds maximum length", nil)
	}

	// Basic email shape check; the provider namespace is email-based
	at := strings.Index(identifier, "@")
	if at <= 0 || at == len(identifier)-1 || !strings.Contains(identifier[at:], ".") {
		return ValidatedCredential{}, autherr.New(autherr.KindInvalidCredentialFormat, "identifier must be a valid email address", nil)
	}
	if strings.ContainsAny(identifier, " \t\n\r") {
		return ValidatedCredential{}, autherr.New(autherr.KindInvalidCredentialFormat, "identifier must not contain whitespace", nil)
	}

	if c.Secret == "" {
		return ValidatedCredential{}, autherr.New(autherr.KindInvalidCredentialFormat, "secret is required", nil)
	}
	if len(c.Secret) < v.minSecretLength {
		return ValidatedCredential{}, autherr.New(autherr.KindInvalidCredentialFormat, "secret is shorter than the configured minimum", nil)
	}

	return ValidatedCredential{
		Identifier: identifier,
		Secret:     c.Secret,
		Attributes: c.Attributes,
	}, nil
}
