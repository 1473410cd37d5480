// Package hosted is an in-process identity provider. It lets the gateway
// run end to end without a remote provider: accounts are kept in memory
// with bcrypt-hashed secrets, access tokens are HS256 JWTs, and refresh
// tokens are single-use random strings rotated on every refresh.
package hosted

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-identity-gateway/provider"
	"golang.org/x/crypto/bcrypt"
)

const defaultAccessTokenTTL = time.Hour

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type account struct {
	Subject    string
	Identifier string
	SecretHash string
	Attributes map[string]string
	CreatedAt  time.Time
}

// Provider implements provider.Client against in-process state.
type Provider struct {
	issuer         string
	signingSecret  []byte
	accessTokenTTL time.Duration

	mu       sync.RWMutex
	accounts map[string]*account // identifier -> account

	refreshTokens *refreshTokenStore
}

// Option modifies a Provider instance.
type Option func(*Provider)

// WithAccessTokenTTL overrides the default access token lifetime.
func WithAccessTokenTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		p.accessTokenTTL = ttl
	}
}

// New creates a hosted provider that signs access tokens with signingSecret.
func New(issuer string, signingSecret []byte, options ...Option) *Provider {
	p := &Provider{
		issuer:         issuer,
		signingSecret:  signingSecret,
		accessTokenTTL: defaultAccessTokenTTL,
		accounts:       make(map[string]*account),
		refreshTokens:  newRefreshTokenStore(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

var _ provider.Client = (*Provider)(nil)

// SignUp registers a new account. The secret is hashed immediately and the
// plaintext never stored.
func (p *Provider) SignUp(ctx context.Context, identifier, secret string, attributes map[string]string) (provider.Subject, error) {
	if err := ctx.Err(); err != nil {
		return provider.Subject{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return provider.Subject{}, provider.NewError(provider.CodeInvalidParameter, "secret could not be hashed", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[identifier]; exists {
		return provider.Subject{}, provider.NewError(provider.CodeUserExists, "account already exists", nil)
	}

	acc := &account{
		Subject:    uuid.New().String(),
		Identifier: identifier,
		SecretHash: string(hash),
		Attributes: cloneAttributes(attributes),
		CreatedAt:  NowTimeFunc(),
	}
	p.accounts[identifier] = acc

	return provider.Subject{
		ID:         acc.Subject,
		Identifier: acc.Identifier,
		Attributes: cloneAttributes(acc.Attributes),
	}, nil
}

// SignIn verifies the secret against the stored hash and mints a bundle.
func (p *Provider) SignIn(ctx context.Context, identifier, secret string) (provider.TokenBundle, error) {
	if err := ctx.Err(); err != nil {
		return provider.TokenBundle{}, err
	}

	p.mu.RLock()
	acc, ok := p.accounts[identifier]
	p.mu.RUnlock()
	if !ok {
		return provider.TokenBundle{}, provider.NewError(provider.CodeUserNotFound, "unknown identifier", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.SecretHash), []byte(secret)); err != nil {
		return provider.TokenBundle{}, provider.NewError(provider.CodeNotAuthorized, "incorrect secret", err)
	}

	return p.mintBundle(acc)
}

// Refresh consumes the refresh token and issues a new bundle. Refresh
// tokens are strictly single-use: presenting a consumed token reports it
// as revoked.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (provider.TokenBundle, error) {
	if err := ctx.Err(); err != nil {
		return provider.TokenBundle{}, err
	}

	stored, err := p.refreshTokens.Consume(refreshToken, NowTimeFunc())
	if err != nil {
		return provider.TokenBundle{}, err
	}

	p.mu.RLock()
	acc, ok := p.accounts[stored.Identifier]
	p.mu.RUnlock()
	if !ok {
		return provider.TokenBundle{}, provider.NewError(provider.CodeUserNotFound, "account no longer exists", nil)
	}

	return p.mintBundle(acc)
}

// Verify parses and validates the access token and returns the claims it
// carries.
func (p *Provider) Verify(ctx context.Context, accessToken string) (provider.SubjectClaims, error) {
	if err := ctx.Err(); err != nil {
		return provider.SubjectClaims{}, err
	}

	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, provider.NewError(provider.CodeNotAuthorized, "unexpected signing method", nil)
		}
		return p.signingSecret, nil
	}, jwt.WithIssuer(p.issuer), jwt.WithTimeFunc(func() time.Time { return NowTimeFunc() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return provider.SubjectClaims{}, provider.NewError(provider.CodeTokenExpired, "access token has expired", err)
		}
		return provider.SubjectClaims{}, provider.NewError(provider.CodeNotAuthorized, "access token rejected", err)
	}
	if !token.Valid {
		return provider.SubjectClaims{}, provider.NewError(provider.CodeNotAuthorized, "access token rejected", nil)
	}

	return provider.SubjectClaims{
		Subject:    claims.Subject,
		Identifier: claims.Email,
		Attributes: cloneAttributes(claims.Attributes),
	}, nil
}

func (p *Provider) mintBundle(acc *account) (provider.TokenBundle, error) {
	now := NowTimeFunc()
	claims := &accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Subject:   acc.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.accessTokenTTL)),
			ID:        uuid.New().String(),
		},
		Email:      acc.Identifier,
		Attributes: cloneAttributes(acc.Attributes),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.signingSecret)
	if err != nil {
		return provider.TokenBundle{}, provider.NewError(provider.CodeServiceUnavailable, "failed to sign access token", err)
	}

	refreshToken, err := p.refreshTokens.Create(acc.Identifier, now)
	if err != nil {
		return provider.TokenBundle{}, err
	}

	return provider.TokenBundle{
		AccessToken:  signed,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(p.accessTokenTTL / time.Second),
		TokenType:    "Bearer",
	}, nil
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email      string            `json:"email,omitempty"`
	Attributes map[string]string `json:"attrs,omitempty"`
}

func cloneAttributes(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	c := make(map[string]string, len(attrs))
	for k, v := range attrs {
		c[k] = v
	}
	return c
}
