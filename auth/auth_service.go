// Package auth composes the credential validator, identity provider client,
// session manager and error translator into the single entry point the
// route layer calls.
package auth

import (
	"context"
	"time"

	"github.com/jrsteele09/go-identity-gateway/autherr"
	"github.com/jrsteele09/go-identity-gateway/internal/config"
	"github.com/jrsteele09/go-identity-gateway/provider"
	"github.com/jrsteele09/go-identity-gateway/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Deps holds all dependencies for the Service.
type Deps struct {
	Provider   provider.Client     // Identity provider adapter
	Sessions   *session.Manager    // Token-lifecycle state machine
	Translator *autherr.Translator // Provider failure mapping
}

// Service is the auth facade. Each operation is a straight-line composition
// with no state of its own; the state transitions live in the session
// manager and the failure mapping in the translator.
type Service struct {
	deps             Deps
	validator        *Validator
	providerTimeout  time.Duration
	revalidatePolicy config.RevalidatePolicy
	logger           zerolog.Logger
}

// NewService initializes the facade with its required dependencies.
func NewService(deps Deps, cfg config.AuthConfig, logger zerolog.Logger) (*Service, error) {
	if deps.Provider == nil {
		return nil, errors.New("[NewService] provider client is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("[NewService] session manager is required")
	}
	if deps.Translator == nil {
		return nil, errors.New("[NewService] translator is required")
	}

	return &Service{
		deps:             deps,
		validator:        NewValidator(cfg),
		providerTimeout:  cfg.GetProviderTimeout(),
		revalidatePolicy: cfg.GetRevalidatePolicy(),
		logger:           logger,
	}, nil
}

// SignUp registers a new principal with the provider and returns its
// subject identifier. No session is created; the caller logs in next.
func (s *Service) SignUp(ctx context.Context, credential Credential) (string, error) {
	validated, err := s.validator.Validate(credential)
	if err != nil {
		return "", err
	}

	ctx, cancel := s.providerContext(ctx)
	defer cancel()

	subject, err := s.deps.Provider.SignUp(ctx, validated.Identifier, validated.Secret, validated.Attributes)
	if err != nil {
		return "", s.deps.Translator.Translate(err)
	}

	s.logger.Info().Str("subject", subject.ID).Msg("principal registered")
	return subject.ID, nil
}

// Login verifies the credential with the provider and creates a session
// bound to the subject the provider asserts for the fresh access token.
func (s *Service) Login(ctx context.Context, credential Credential) (*session.Session, error) {
	validated, err := s.validator.Validate(credential)
	if err != nil {
		return nil, err
	}

	signInCtx, cancel := s.providerContext(ctx)
	defer cancel()

	bundle, err := s.deps.Provider.SignIn(signInCtx, validated.Identifier, validated.Secret)
	if err != nil {
		return nil, s.deps.Translator.Translate(err)
	}

	bindCtx, cancelBind := s.providerContext(ctx)
	defer cancelBind()

	sess, err := s.deps.Sessions.CreateFromSignIn(bindCtx, bundle)
	if err != nil {
		return nil, s.deps.Translator.Translate(err)
	}

	s.logger.Info().Str("session_key", string(sess.Key)).Msg("session created")
	return sess, nil
}

// WhoAmI returns the claims for the session's subject. Under the CACHED
// policy the claims bound at creation/refresh time are returned; under
// ALWAYS the access token is re-verified against the provider on every
// read.
func (s *Service) WhoAmI(ctx context.Context, key session.Key) (provider.SubjectClaims, error) {
	sess, err := s.deps.Sessions.GetActive(key)
	if err != nil {
		return provider.SubjectClaims{}, err
	}

	if s.revalidatePolicy != config.RevalidateAlways {
		return sess.Claims, nil
	}

	ctx, cancel := s.providerContext(ctx)
	defer cancel()

	claims, err := s.deps.Provider.Verify(ctx, sess.AccessToken)
	if err != nil {
		return provider.SubjectClaims{}, s.deps.Translator.Translate(err)
	}
	return claims, nil
}

// RefreshToken performs an explicit refresh of the session's tokens.
func (s *Service) RefreshToken(ctx context.Context, key session.Key) (*session.Session, error) {
	ctx, cancel := s.providerContext(ctx)
	defer cancel()
	return s.deps.Sessions.Refresh(ctx, key)
}

// Logout revokes the session. Revoking an absent session is a no-op
// success.
func (s *Service) Logout(_ context.Context, key session.Key) error {
	return s.deps.Sessions.Revoke(key)
}

// SessionKeyForAccessToken resolves a bearer token to its session key via
// the local session index; it never calls the provider.
func (s *Service) SessionKeyForAccessToken(accessToken string) (session.Key, bool) {
	return s.deps.Sessions.KeyForAccessToken(accessToken)
}

// SessionKeyForRefreshToken resolves a refresh token to its session key via
// the local session index.
func (s *Service) SessionKeyForRefreshToken(refreshToken string) (session.Key, bool) {
	return s.deps.Sessions.KeyForRefreshToken(refreshToken)
}

func (s *Service) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.providerTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.providerTimeout)
}
