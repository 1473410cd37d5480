package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-identity-gateway/auth"
	"github.com/jrsteele09/go-identity-gateway/autherr"
	"github.com/jrsteele09/go-identity-gateway/internal/config"
	"github.com/stretchr/testify/require"
)

// testAuthConfig implements config.AuthConfig for tests
type testAuthConfig struct {
	providerTimeout     time.Duration
	minSecretLength     int
	maxIdentifierLength int
	revalidatePolicy    config.RevalidatePolicy
}

func (c testAuthConfig) GetProviderTimeout() time.Duration { return c.providerTimeout }
func (c testAuthConfig) GetMinSecretLength() int           { return c.minSecretLength }
func (c testAuthConfig) GetMaxIdentifierLength() int       { return c.maxIdentifierLength }
func (c testAuthConfig) GetRevalidatePolicy() config.RevalidatePolicy {
	return c.revalidatePolicy
}

func defaultTestConfig() testAuthConfig {
	return testAuthConfig{
		providerTimeout:     time.Second,
		minSecretLength:     8,
		maxIdentifierLength: 254,
		revalidatePolicy:    config.RevalidateCached,
	}
}

func requireInvalidFormat(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, autherr.IsKind(err, autherr.KindInvalidCredentialFormat))
}

func TestValidator_Validate(t *testing.T) {
	v := auth.NewValidator(defaultTestConfig())

	t.Run("valid credential", func(t *testing.T) {
		validated, err := v.Validate(auth.Credential{
			Identifier: "alice@example.com",
			Secret:     "Sup3rSecret!",
		})
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", validated.Identifier)
	})

	t.Run("trims identifier whitespace", func(t *testing.T) {
		validated, err := v.Validate(auth.Credential{
			Identifier: "  alice@example.com  ",
			Secret:     "Sup3rSecret!",
		})
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", validated.Identifier)
	})

	t.Run("empty identifier", func(t *testing.T) {
		_, err := v.Validate(auth.Credential{Identifier: "", Secret: "Sup3rSecret!"})
		requireInvalidFormat(t, err)
	})

	t.Run("oversized identifier", func(t *testing.T) {
		long := strings.Repeat("a", 250) + "@example.com"
		_, err := v.Validate(auth.Credential{Identifier: long, Secret: "Sup3rSecret!"})
		requireInvalidFormat(t, err)
	})

	t.Run("identifier without at sign", func(t *testing.T) {
		_, err := v.Validate(auth.Credential{Identifier: "alice.example.com", Secret: "Sup3rSecret!"})
		requireInvalidFormat(t, err)
	})

	t.Run("identifier without domain dot", func(t *testing.T) {
		_, err := v.Validate(auth.Credential{Identifier: "alice@example", Secret: "Sup3rSecret!"})
		requireInvalidFormat(t, err)
	})

	t.Run("identifier with embedded whitespace", func(t *testing.T) {
		_, err := v.Validate(auth.Credential{Identifier: "alice smith@example.com", Secret: "Sup3rSecret!"})
		requireInvalidFormat(t, err)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := v.Validate(auth.Credential{Identifier: "alice@example.com", Secret: ""})
		requireInvalidFormat(t, err)
	})

	t.Run("secret below minimum length", func(t *testing.T) {
		_, err := v.Validate(auth.Credential{Identifier: "alice@example.com", Secret: "short"})
		requireInvalidFormat(t, err)
	})
}
