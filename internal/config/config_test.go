package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-identity-gateway/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.GetPort())
	require.Equal(t, "Identity Gateway", cfg.GetAppName())
	require.Equal(t, "DEV", cfg.GetEnv())
	require.Equal(t, 5*time.Second, cfg.GetProviderTimeout())
	require.Equal(t, 8, cfg.GetMinSecretLength())
	require.Equal(t, 254, cfg.GetMaxIdentifierLength())
	require.Equal(t, config.RevalidateCached, cfg.GetRevalidatePolicy())
	require.Equal(t, config.ProviderHosted, cfg.GetProviderKind())
	require.Equal(t, time.Hour, cfg.GetAccessTokenTTL())
	require.Equal(t, "GET, POST, OPTIONS", cfg.GetAllowedMethods())
	require.True(t, cfg.GetAllowedOrigins().IsAllowedOrigin("*"))
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("PROVIDER_TIMEOUT_MS", "250")
	t.Setenv("REVALIDATE_POLICY", "ALWAYS")
	t.Setenv("PROVIDER", "oidc")
	t.Setenv("OIDC_ISSUER_URL", "https://issuer.example.com")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")

	cfg, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.GetPort())
	require.Equal(t, "production", cfg.GetEnv())
	require.Equal(t, 250*time.Millisecond, cfg.GetProviderTimeout())
	require.Equal(t, config.RevalidateAlways, cfg.GetRevalidatePolicy())
	require.Equal(t, config.ProviderOIDC, cfg.GetProviderKind())
	require.Equal(t, "https://issuer.example.com", cfg.GetOIDCIssuerURL())

	origins := cfg.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://app.example.com"))
	require.True(t, origins.IsAllowedOrigin("https://admin.example.com"))
	require.False(t, origins.IsAllowedOrigin("https://evil.example.com"))
}

func TestParseEnv_InvalidEnums(t *testing.T) {
	t.Run("revalidate policy", func(t *testing.T) {
		t.Setenv("REVALIDATE_POLICY", "SOMETIMES")
		_, err := config.ParseEnv()
		require.Error(t, err)
	})

	t.Run("provider kind", func(t *testing.T) {
		t.Setenv("PROVIDER", "ldap")
		_, err := config.ParseEnv()
		require.Error(t, err)
	})
}
