package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-identity-gateway/autherr"
	"github.com/jrsteele09/go-identity-gateway/provider"
	"github.com/jrsteele09/go-identity-gateway/provider/providerfake"
	"github.com/jrsteele09/go-identity-gateway/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testSubject      = "subject-1"
	testIdentifier   = "john.doe@example.com"
	testAccessToken  = "access-token-1"
	testRefreshToken = "refresh-token-1"
	testExpiresIn    = int64(3600)
)

// testFixture holds all test dependencies
type testFixture struct {
	repo     *session.InMemoryRepo
	provider *providerfake.FakeProvider
	manager  *session.Manager
	now      time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo:     session.NewInMemoryRepo(),
		provider: providerfake.NewFakeProvider(),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	translator := autherr.NewTranslator(zerolog.Nop())
	manager, err := session.NewManager(f.repo, f.provider, translator, zerolog.Nop(),
		session.WithNowTime(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.manager = manager
	return f
}

func (f *testFixture) scriptVerify(subject string) {
	f.provider.VerifyFunc = func(ctx context.Context, accessToken string) (provider.SubjectClaims, error) {
		return provider.SubjectClaims{Subject: subject, Identifier: testIdentifier}, nil
	}
}

func (f *testFixture) createSession(t *testing.T) *session.Session {
	t.Helper()
	f.scriptVerify(testSubject)
	s, err := f.manager.CreateFromSignIn(context.Background(), provider.TokenBundle{
		AccessToken:  testAccessToken,
		RefreshToken: testRefreshToken,
		ExpiresIn:    testExpiresIn,
		TokenType:    "Bearer",
	})
	require.NoError(t, err)
	return s
}

func TestManager_CreateFromSignIn(t *testing.T) {
	t.Run("binds session key to verified subject", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.createSession(t)

		require.Equal(t, session.KeyForSubject(testSubject), s.Key)
		require.Equal(t, testSubject, s.Subject)
		require.Equal(t, session.StatusActive, s.Status)
		require.Equal(t, f.now.Add(time.Hour), s.AccessExpiry)
		require.EqualValues(t, 1, f.provider.VerifyCalls())
	})

	t.Run("verify failure reports bind failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.VerifyFunc = func(ctx context.Context, accessToken string) (provider.SubjectClaims, error) {
			return provider.SubjectClaims{}, provider.NewError(provider.CodeNotAuthorized, "bad token", nil)
		}

		_, err := f.manager.CreateFromSignIn(context.Background(), provider.TokenBundle{
			AccessToken: testAccessToken,
			ExpiresIn:   testExpiresIn,
		})
		require.True(t, autherr.IsKind(err, autherr.KindSessionBindFailed))
	})

	t.Run("empty subject reports bind failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.scriptVerify("")

		_, err := f.manager.CreateFromSignIn(context.Background(), provider.TokenBundle{
			AccessToken: testAccessToken,
			ExpiresIn:   testExpiresIn,
		})
		require.True(t, autherr.IsKind(err, autherr.KindSessionBindFailed))
	})

	t.Run("non-positive lifetime reports bind failure", func(t *testing.T) {
		f := setupTestFixture(t)
		f.scriptVerify(testSubject)

		_, err := f.manager.CreateFromSignIn(context.Background(), provider.TokenBundle{
			AccessToken: testAccessToken,
			ExpiresIn:   0,
		})
		require.True(t, autherr.IsKind(err, autherr.KindSessionBindFailed))
	})

	t.Run("second sign-in replaces the prior session", func(t *testing.T) {
		f := setupTestFixture(t)
		f.createSession(t)

		s2, err := f.manager.CreateFromSignIn(context.Background(), provider.TokenBundle{
			AccessToken:  "access-token-2",
			RefreshToken: "refresh-token-2",
			ExpiresIn:    testExpiresIn,
		})
		require.NoError(t, err)

		active, err := f.manager.GetActive(s2.Key)
		require.NoError(t, err)
		require.Equal(t, "access-token-2", active.AccessToken)
	})
}

func TestManager_GetActive(t *testing.T) {
	t.Run("returns active session", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.createSession(t)

		active, err := f.manager.GetActive(s.Key)
		require.NoError(t, err)
		require.Equal(t, testAccessToken, active.AccessToken)
	})

	t.Run("expired session returns SESSION_EXPIRED without mutation or remote call", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.createSession(t)
		verifyCallsBefore := f.provider.VerifyCalls()

		f.now = f.now.Add(2 * time.Hour)

		_, err := f.manager.GetActive(s.Key)
		require.True(t, autherr.IsKind(err, autherr.KindSessionExpired))

		// No remote call and no stored-state mutation
		require.Equal(t, verifyCallsBefore, f.provider.VerifyCalls())
		require.EqualValues(t, 0, f.provider.RefreshCalls())
		stored, ok := f.repo.Get(s.Key)
		require.True(t, ok)
		require.Equal(t, session.StatusActive, stored.Status)
		require.Equal(t, testAccessToken, stored.AccessToken)
	})

	t.Run("unknown key returns SESSION_EXPIRED", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.manager.GetActive("missing")
		require.True(t, autherr.IsKind(err, autherr.KindSessionExpired))
	})
}

func TestManager_Refresh(t *testing.T) {
	t.Run("replaces access token and rotates refresh token", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.createSession(t)

		f.provider.RefreshFunc = func(ctx context.Context, refreshToken string) (provider.TokenBundle, error) {
			require.Equal(t, testRefreshToken, refreshToken)
			return provider.TokenBundle{
				AccessToken:  "access-token-2",
				RefreshToken: "refresh-token-2",
				ExpiresIn:    testExpiresIn,
			}, nil
		}

		refreshed, err := f.manager.Refresh(context.Background(), s.Key)
		require.NoError(t, err)
		require.Equal(t, "access-token-2", refreshed.AccessToken)
		require.Equal(t, "refresh-token-2", refreshed.RefreshToken)
		require.Equal(t, session.StatusActive, refreshed.Status)
	})

	t.Run("retains refresh token when provider does not rotate", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.createSession(t)

		f.provider.RefreshFunc = func(ctx context.Context, refreshToken string) (provider.TokenBundle, error) {
			return provider.TokenBundle{AccessToken: "access-token-2", ExpiresIn: testExpiresIn}, nil
		}

		refreshed, err := f.manager.Refresh(context.Background(), s.Key)
		require.NoError(t, err)
		require.Equal(t, testRefreshToken, refreshed.RefreshToken)
	})

	t.Run("concurrent callers share a single provider call", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.createSession(t)

		entered := make(chan struct{})
		release := make(chan struct{})
		f.provider.RefreshFunc = func(ctx context.Context, refreshToken string) (provider.TokenBundle, error) {
			close(entered)
			<-release
			return provider.TokenBundle{
				AccessToken:  "access-token-2",
				RefreshToken: "refresh-token-2",
				ExpiresIn:    testExpiresIn,
			}, nil
		}

		const callers = 8
		results := make([]*session.Session, callers)
		errs := make([]error, callers)

		var wg sync.WaitGroup
		wg.Add(callers)
		for i := 0; i < callers; i++ {
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = f.manager.Refresh(context.Background(), s.Key)
			}(i)
		}

		// Wait for the refresh to be in flight, give the remaining callers
		// time to pile onto the guard, then let the provider respond.
		<-entered
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		require.EqualValues(t, 1, f.provider.RefreshCalls())
		for i := 0; i < callers; i++ {
			require.NoError(t, errs[i])
			require.Equal(t, "access-token-2", results[i].AccessToken)
		}
	})

	t.Run("terminal provider failure revokes the session", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.createSession(t)

		f.provider.RefreshFunc = func(ctx context.Context, refreshToken string) (provider.TokenBundle, error) {
			return provider.TokenBundle{}, provider.NewError(provider.CodeTokenRevoked, "refresh token reused", nil)
		}

		_, err := f.manager.Refresh(context.Background(), s.Key)
		require.True(t, autherr.IsKind(err, autherr.KindSessionRevoked))

		stored, ok := f.repo.Get(s.Key)
		require.True(t, ok)
		require.Equal(t, session.StatusRevoked, stored.Status)

		_, err = f.manager.GetActive(s.Key)
		require.True(t, autherr.IsKind(err, autherr.KindSessionRevoked))
	})

	t.Run("timeout leaves session state unchanged and is retryable", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.createSession(t)

		f.provider.RefreshFunc = func(ctx context.Context, refreshToken string) (provider.TokenBundle, error) {
			<-ctx.Done()
			return provider.TokenBundle{}, ctx.Err()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := f.manager.Refresh(ctx, s.Key)
		require.True(t, autherr.IsKind(err, autherr.KindProviderUnavailable))
		ae, ok := autherr.AsError(err)
		require.True(t, ok)
		require.True(t, ae.Retryable)

		stored, ok := f.repo.Get(s.Key)
		require.True(t, ok)
		require.Equal(t, session.StatusActive, stored.Status)
		require.Equal(t, testRefreshToken, stored.RefreshToken)

		// The guard is released: a subsequent refresh succeeds
		f.provider.RefreshFunc = func(ctx context.Context, refreshToken string) (provider.TokenBundle, error) {
			return provider.TokenBundle{AccessToken: "access-token-2", ExpiresIn: testExpiresIn}, nil
		}
		refreshed, err := f.manager.Refresh(context.Background(), s.Key)
		require.NoError(t, err)
		require.Equal(t, "access-token-2", refreshed.AccessToken)
	})

	t.Run("revoke during an in-flight refresh is not undone", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.createSession(t)

		entered := make(chan struct{})
		release := make(chan struct{})
		f.provider.RefreshFunc = func(ctx context.Context, refreshToken string) (provider.TokenBundle, error) {
			close(entered)
			<-release
			return provider.TokenBundle{
				AccessToken:  "access-token-2",
				RefreshToken: "refresh-token-2",
				ExpiresIn:    testExpiresIn,
			}, nil
		}

		done := make(chan error, 1)
		go func() {
			_, err := f.manager.Refresh(context.Background(), s.Key)
			done <- err
		}()

		// Revoke while the provider call is in flight, then let it respond
		<-entered
		require.NoError(t, f.manager.Revoke(s.Key))
		close(release)

		err := <-done
		require.True(t, autherr.IsKind(err, autherr.KindSessionRevoked))

		stored, ok := f.repo.Get(s.Key)
		require.True(t, ok)
		require.Equal(t, session.StatusRevoked, stored.Status)

		_, err = f.manager.GetActive(s.Key)
		require.True(t, autherr.IsKind(err, autherr.KindSessionRevoked))
	})

	t.Run("refresh of a revoked session returns SESSION_REVOKED without remote call", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.createSession(t)
		require.NoError(t, f.manager.Revoke(s.Key))

		_, err := f.manager.Refresh(context.Background(), s.Key)
		require.True(t, autherr.IsKind(err, autherr.KindSessionRevoked))
		require.EqualValues(t, 0, f.provider.RefreshCalls())
	})
}

func TestManager_Revoke(t *testing.T) {
	t.Run("revoked session rejects reads and refreshes", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.createSession(t)

		require.NoError(t, f.manager.Revoke(s.Key))

		_, err := f.manager.GetActive(s.Key)
		require.True(t, autherr.IsKind(err, autherr.KindSessionRevoked))
		_, err = f.manager.Refresh(context.Background(), s.Key)
		require.True(t, autherr.IsKind(err, autherr.KindSessionRevoked))
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		f := setupTestFixture(t)
		s := f.createSession(t)

		require.NoError(t, f.manager.Revoke(s.Key))
		require.NoError(t, f.manager.Revoke(s.Key))
	})

	t.Run("revoking an absent session is a no-op success", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.manager.Revoke("missing"))
	})
}

func TestManager_TokenLookups(t *testing.T) {
	f := setupTestFixture(t)
	s := f.createSession(t)

	key, ok := f.manager.KeyForAccessToken(testAccessToken)
	require.True(t, ok)
	require.Equal(t, s.Key, key)

	key, ok = f.manager.KeyForRefreshToken(testRefreshToken)
	require.True(t, ok)
	require.Equal(t, s.Key, key)

	_, ok = f.manager.KeyForAccessToken("unknown")
	require.False(t, ok)

	// After a refresh the indexes follow the new tokens
	f.provider.RefreshFunc = func(ctx context.Context, refreshToken string) (provider.TokenBundle, error) {
		return provider.TokenBundle{
			AccessToken:  "access-token-2",
			RefreshToken: "refresh-token-2",
			ExpiresIn:    testExpiresIn,
		}, nil
	}
	_, err := f.manager.Refresh(context.Background(), s.Key)
	require.NoError(t, err)

	_, ok = f.manager.KeyForAccessToken(testAccessToken)
	require.False(t, ok)
	key, ok = f.manager.KeyForAccessToken("access-token-2")
	require.True(t, ok)
	require.Equal(t, s.Key, key)
}
