package session

import (
	"context"
	"time"

	"github.com/jrsteele09/go-identity-gateway/autherr"
	"github.com/jrsteele09/go-identity-gateway/provider"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Manager owns all session state transitions. Access is serialized per
// SessionKey: the repo guards reads and writes, and a single-flight group
// keyed by SessionKey spans the remote call during refresh so concurrent
// refreshers for the same key share one provider call and one outcome,
// while refreshes for distinct keys proceed independently.
type Manager struct {
	repo       Repo
	provider   provider.Client
	translator *autherr.Translator
	logger     zerolog.Logger

	refreshGroup singleflight.Group
	nowTime      func() time.Time // injectable for testing
}

// ManagerOption modifies a Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager initializes a Manager with its required dependencies.
func NewManager(repo Repo, providerClient provider.Client, translator *autherr.Translator, logger zerolog.Logger, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] session repo is required")
	}
	if providerClient == nil {
		return nil, errors.New("[NewManager] provider client is required")
	}
	if translator == nil {
		return nil, errors.New("[NewManager] translator is required")
	}

	m := &Manager{
		repo:       repo,
		provider:   providerClient,
		translator: translator,
		logger:     logger,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// CreateFromSignIn turns a fresh token bundle into an ACTIVE session. The
// SessionKey is bound by a mandatory Verify call on the new access token -
// an unverified claim of identity is never trusted. A prior session for the
// same subject is revoked and replaced, never merged.
func (m *Manager) CreateFromSignIn(ctx context.Context, bundle provider.TokenBundle) (*Session, error) {
	claims, err := m.provider.Verify(ctx, bundle.AccessToken)
	if err != nil {
		return nil, autherr.New(autherr.KindSessionBindFailed, "could not verify fresh access token", err)
	}
	if claims.Subject == "" {
		return nil, autherr.New(autherr.KindSessionBindFailed, "provider returned empty subject", nil)
	}
	if bundle.ExpiresIn <= 0 {
		return nil, autherr.New(autherr.KindSessionBindFailed, "provider returned non-positive token lifetime", nil)
	}

	now := m.nowTime()
	s := &Session{
		Key:          KeyForSubject(claims.Subject),
		Subject:      claims.Subject,
		Identifier:   claims.Identifier,
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		AccessExpiry: now.Add(time.Duration(bundle.ExpiresIn) * time.Second),
		IssuedAt:     now,
		Status:       StatusActive,
		Claims:       claims,
	}

	if prior, ok := m.repo.Get(s.Key); ok {
		m.logger.Info().
			Str("session_key", string(s.Key)).
			Str("prior_status", string(prior.Status)).
			Msg("replacing existing session for subject")
		m.repo.MarkRevoked(s.Key)
	}

	if err := m.repo.Upsert(s); err != nil {
		return nil, autherr.New(autherr.KindUnknownProvider, "failed to store session", err)
	}

	c := *s
	return &c, nil
}

// GetActive returns the session for key if it is ACTIVE and unexpired. An
// expired session is reported as SESSION_EXPIRED without mutating stored
// state and without any remote call - refresh is always an explicit,
// observable operation, never a hidden side effect of a read.
func (m *Manager) GetActive(key Key) (*Session, error) {
	s, ok := m.repo.Get(key)
	if !ok {
		return nil, autherr.New(autherr.KindSessionExpired, "no session for key", nil)
	}
	switch s.StatusAt(m.nowTime()) {
	case StatusRevoked:
		return nil, autherr.New(autherr.KindSessionRevoked, "session has been revoked", nil)
	case StatusExpired:
		return nil, autherr.New(autherr.KindSessionExpired, "access token has expired", nil)
	}
	return s, nil
}

// Refresh exchanges the session's refresh token for a new token bundle.
// Concurrent callers for the same key await the single in-flight outcome
// rather than issuing duplicate remote calls: refresh tokens are commonly
// single-use, and a duplicate use would revoke the session provider-side.
func (m *Manager) Refresh(ctx context.Context, key Key) (*Session, error) {
	v, err, shared := m.refreshGroup.Do(string(key), func() (interface{}, error) {
		return m.doRefresh(ctx, key)
	})
	if shared {
		m.logger.Debug().Str("session_key", string(key)).Msg("refresh outcome shared with concurrent caller")
	}
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) doRefresh(ctx context.Context, key Key) (*Session, error) {
	s, ok := m.repo.Get(key)
	if !ok {
		return nil, autherr.New(autherr.KindSessionExpired, "no session for key", nil)
	}
	if s.Status == StatusRevoked {
		return nil, autherr.New(autherr.KindSessionRevoked, "session has been revoked", nil)
	}
	if s.RefreshToken == "" {
		return nil, autherr.New(autherr.KindSessionRevoked, "session has no refresh token", nil)
	}

	bundle, err := m.provider.Refresh(ctx, s.RefreshToken)
	if err != nil {
		return nil, m.refreshFailure(key, err)
	}

	// Commit under the repo's lock so a revocation issued while the remote
	// call was in flight is never overwritten: REVOKED is terminal.
	now := m.nowTime()
	updated, ok := m.repo.UpdateActive(key, func(s *Session) {
		s.AccessToken = bundle.AccessToken
		s.AccessExpiry = now.Add(time.Duration(bundle.ExpiresIn) * time.Second)
		s.Status = StatusActive
		// Keep the old refresh token unless the provider rotated it
		if bundle.RefreshToken != "" {
			s.RefreshToken = bundle.RefreshToken
		}
	})
	if !ok {
		return nil, autherr.New(autherr.KindSessionExpired, "no session for key", nil)
	}
	if updated.Status == StatusRevoked {
		return nil, autherr.New(autherr.KindSessionRevoked, "session was revoked during refresh", nil)
	}

	return updated, nil
}

// refreshFailure decides whether a provider failure is terminal for the
// session. Terminal reasons (refresh token invalid, expired or revoked)
// transition the session to REVOKED; transient failures leave the stored
// state untouched so the caller can retry.
func (m *Manager) refreshFailure(key Key, err error) error {
	ae := m.translator.Translate(err)
	switch ae.Kind {
	case autherr.KindSessionRevoked, autherr.KindProviderAuthRejected:
		m.repo.MarkRevoked(key)
		m.logger.Info().Str("session_key", string(key)).Msg("session revoked after terminal refresh failure")
		return autherr.New(autherr.KindSessionRevoked, "refresh token rejected by identity provider", err)
	case autherr.KindProviderUnavailable:
		return ae
	default:
		return ae
	}
}

// Revoke transitions the session to REVOKED. Revoking an absent or
// already-revoked session is a no-op success.
func (m *Manager) Revoke(key Key) error {
	if m.repo.MarkRevoked(key) {
		m.logger.Info().Str("session_key", string(key)).Msg("session revoked")
	}
	return nil
}

// KeyForAccessToken resolves a bearer access token to its session key using
// the local index only - no remote call.
func (m *Manager) KeyForAccessToken(accessToken string) (Key, bool) {
	s, ok := m.repo.GetByAccessToken(accessToken)
	if !ok {
		return "", false
	}
	return s.Key, true
}

// KeyForRefreshToken resolves a refresh token to its session key using the
// local index only.
func (m *Manager) KeyForRefreshToken(refreshToken string) (Key, bool) {
	s, ok := m.repo.GetByRefreshToken(refreshToken)
	if !ok {
		return "", false
	}
	return s.Key, true
}
