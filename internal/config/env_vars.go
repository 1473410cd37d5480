package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// EnvVars is the environment-backed configuration, parsed once at startup.
type EnvVars struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"Identity Gateway"`
	Env     string `env:"ENV" envDefault:"DEV"`

	ProviderTimeoutMS   int    `env:"PROVIDER_TIMEOUT_MS" envDefault:"5000"`
	MinSecretLength     int    `env:"MIN_SECRET_LENGTH" envDefault:"8"`
	MaxIdentifierLength int    `env:"MAX_IDENTIFIER_LENGTH" envDefault:"254"`
	RevalidatePolicy    string `env:"REVALIDATE_POLICY" envDefault:"CACHED"`

	ProviderKind          string `env:"PROVIDER" envDefault:"hosted"`
	HostedIssuer          string `env:"HOSTED_ISSUER" envDefault:"go-identity-gateway"`
	HostedSigningSecret   string `env:"HOSTED_SIGNING_SECRET" envDefault:"dev-only-signing-secret"`
	AccessTokenTTLSeconds int    `env:"ACCESS_TOKEN_TTL_SECONDS" envDefault:"3600"`

	OIDCIssuerURL       string `env:"OIDC_ISSUER_URL"`
	OIDCClientID        string `env:"OIDC_CLIENT_ID"`
	OIDCClientSecret    string `env:"OIDC_CLIENT_SECRET"`
	OIDCRegistrationURL string `env:"OIDC_REGISTRATION_URL"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	AllowedMethods string   `env:"ALLOWED_METHODS" envDefault:"GET, POST, OPTIONS"`
	AllowedHeaders string   `env:"ALLOWED_HEADERS" envDefault:"Content-Type, Authorization"`
}

// ParseEnv reads and validates the environment.
func ParseEnv() (EnvVars, error) {
	var vars EnvVars
	if err := env.Parse(&vars); err != nil {
		return EnvVars{}, errors.Wrap(err, "[config.ParseEnv] parse environment")
	}

	switch RevalidatePolicy(vars.RevalidatePolicy) {
	case RevalidateAlways, RevalidateCached:
	default:
		return EnvVars{}, errors.Errorf("[config.ParseEnv] invalid REVALIDATE_POLICY %q", vars.RevalidatePolicy)
	}
	switch ProviderKind(vars.ProviderKind) {
	case ProviderHosted, ProviderOIDC:
	default:
		return EnvVars{}, errors.Errorf("[config.ParseEnv] invalid PROVIDER %q", vars.ProviderKind)
	}

	return vars, nil
}

var _ EnvConfig = EnvVars{}
var _ AuthConfig = EnvVars{}
var _ ProviderConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

func (e EnvVars) GetProviderTimeout() time.Duration {
	return time.Duration(e.ProviderTimeoutMS) * time.Millisecond
}

func (e EnvVars) GetMinSecretLength() int {
	return e.MinSecretLength
}

func (e EnvVars) GetMaxIdentifierLength() int {
	return e.MaxIdentifierLength
}

func (e EnvVars) GetRevalidatePolicy() RevalidatePolicy {
	return RevalidatePolicy(e.RevalidatePolicy)
}

func (e EnvVars) GetProviderKind() ProviderKind {
	return ProviderKind(e.ProviderKind)
}

func (e EnvVars) GetHostedIssuer() string {
	return e.HostedIssuer
}

func (e EnvVars) GetHostedSigningSecret() []byte {
	return []byte(e.HostedSigningSecret)
}

func (e EnvVars) GetAccessTokenTTL() time.Duration {
	return time.Duration(e.AccessTokenTTLSeconds) * time.Second
}

func (e EnvVars) GetOIDCIssuerURL() string {
	return e.OIDCIssuerURL
}

func (e EnvVars) GetOIDCClientID() string {
	return e.OIDCClientID
}

func (e EnvVars) GetOIDCClientSecret() string {
	return e.OIDCClientSecret
}

func (e EnvVars) GetOIDCRegistrationURL() string {
	return e.OIDCRegistrationURL
}
