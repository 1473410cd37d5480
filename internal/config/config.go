package config

import "time"

// Config is the full configuration surface consumed by the gateway.
type Config interface {
	EnvConfig
	AuthConfig
	ProviderConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

// AuthConfig holds the thresholds and policies consumed by the core.
type AuthConfig interface {
	GetProviderTimeout() time.Duration
	GetMinSecretLength() int
	GetMaxIdentifierLength() int
	GetRevalidatePolicy() RevalidatePolicy
}

// ProviderConfig selects and configures the identity provider adapter.
type ProviderConfig interface {
	GetProviderKind() ProviderKind
	GetHostedIssuer() string
	GetHostedSigningSecret() []byte
	GetAccessTokenTTL() time.Duration
	GetOIDCIssuerURL() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
	GetOIDCRegistrationURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// RevalidatePolicy controls whether reads re-verify claims against the
// provider or trust the claims bound at session creation/refresh time.
type RevalidatePolicy string

const (
	RevalidateAlways RevalidatePolicy = "ALWAYS"
	RevalidateCached RevalidatePolicy = "CACHED"
)

// ProviderKind selects the identity provider adapter.
type ProviderKind string

const (
	ProviderHosted ProviderKind = "hosted"
	ProviderOIDC   ProviderKind = "oidc"
)

type mainConfig struct {
	EnvVars
	Cors
}

// New loads configuration from the environment.
func New() (Config, error) {
	vars, err := ParseEnv()
	if err != nil {
		return nil, err
	}
	return mainConfig{EnvVars: vars, Cors: newCors(vars)}, nil
}
