// Package oidcp adapts a remote OIDC identity provider to the gateway's
// provider contract. Sign-in uses the resource owner password grant,
// refresh uses the token endpoint, and verification goes through the
// provider's UserInfo endpoint. Registration is provider-specific, so it is
// performed against a configurable registration endpoint.
package oidcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-identity-gateway/provider"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Config holds the remote provider endpoints and client credentials.
type Config struct {
	IssuerURL       string   // OIDC issuer used for endpoint discovery
	ClientID        string
	ClientSecret    string
	RegistrationURL string   // Provider-specific sign-up endpoint
	Scopes          []string // Defaults to openid/profile/email when empty
}

// Provider implements provider.Client against a remote OIDC provider.
type Provider struct {
	oidcProvider    *oidc.Provider
	oauthConfig     *oauth2.Config
	registrationURL string
	httpClient      *http.Client
}

// Option modifies a Provider instance.
type Option func(*Provider)

// WithHTTPClient sets the HTTP client used for registration calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// New discovers the provider's endpoints from its issuer URL.
func New(ctx context.Context, cfg Config, options ...Option) (*Provider, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("[oidcp.New] issuer URL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("[oidcp.New] client ID is required")
	}

	oidcProvider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[oidcp.New] provider discovery failed")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	p := &Provider{
		oidcProvider: oidcProvider,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oidcProvider.Endpoint(),
			Scopes:       scopes,
		},
		registrationURL: cfg.RegistrationURL,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

var _ provider.Client = (*Provider)(nil)

type registrationRequest struct {
	Identifier string            `json:"identifier"`
	Secret     string            `json:"secret"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type registrationResponse struct {
	Subject string `json:"sub"`
}

// SignUp posts the credential to the provider's registration endpoint.
func (p *Provider) SignUp(ctx context.Context, identifier, secret string, attributes map[string]string) (provider.Subject, error) {
	if p.registrationURL == "" {
		return provider.Subject{}, provider.NewError(provider.CodeInvalidParameter, "provider has no registration endpoint configured", nil)
	}

	body, err := json.Marshal(registrationRequest{Identifier: identifier, Secret: secret, Attributes: attributes})
	if err != nil {
		return provider.Subject{}, errors.Wrap(err, "[oidcp.SignUp] marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.registrationURL, bytes.NewReader(body))
	if err != nil {
		return provider.Subject{}, errors.Wrap(err, "[oidcp.SignUp] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return provider.Subject{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.Subject{}, errors.Wrap(err, "[oidcp.SignUp] read response")
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return provider.Subject{}, registrationError(resp.StatusCode, respBody)
	}

	var reg registrationResponse
	if err := json.Unmarshal(respBody, &reg); err != nil {
		return provider.Subject{}, provider.NewError(provider.CodeServiceUnavailable, "malformed registration response", err)
	}
	if reg.Subject == "" {
		return provider.Subject{}, provider.NewError(provider.CodeServiceUnavailable, "registration response missing subject", nil)
	}

	return provider.Subject{ID: reg.Subject, Identifier: identifier, Attributes: attributes}, nil
}

// SignIn exchanges the credential via the resource owner password grant.
func (p *Provider) SignIn(ctx context.Context, identifier, secret string) (provider.TokenBundle, error) {
	token, err := p.oauthConfig.PasswordCredentialsToken(ctx, identifier, secret)
	if err != nil {
		return provider.TokenBundle{}, translateTokenError(err, false)
	}
	return bundleFromToken(token), nil
}

// Refresh exchanges the refresh token at the provider's token endpoint.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (provider.TokenBundle, error) {
	src := p.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return provider.TokenBundle{}, translateTokenError(err, true)
	}

	bundle := bundleFromToken(token)
	// Only report a rotated refresh token; an echo of the old one is not a rotation
	if token.RefreshToken == refreshToken {
		bundle.RefreshToken = ""
	}
	return bundle, nil
}

// Verify asks the provider's UserInfo endpoint to validate the access
// token and return the subject's claims.
func (p *Provider) Verify(ctx context.Context, accessToken string) (provider.SubjectClaims, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	userInfo, err := p.oidcProvider.UserInfo(ctx, src)
	if err != nil {
		return provider.SubjectClaims{}, translateTokenError(err, false)
	}

	var raw map[string]interface{}
	if err := userInfo.Claims(&raw); err != nil {
		return provider.SubjectClaims{}, provider.NewError(provider.CodeServiceUnavailable, "malformed userinfo response", err)
	}

	attrs := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			attrs[k] = s
		}
	}

	return provider.SubjectClaims{
		Subject:    userInfo.Subject,
		Identifier: userInfo.Email,
		Attributes: attrs,
	}, nil
}

func bundleFromToken(token *oauth2.Token) provider.TokenBundle {
	expiresIn := int64(time.Until(token.Expiry) / time.Second)
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return provider.TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    expiresIn,
		TokenType:    tokenType,
	}
}

// translateTokenError normalizes oauth2 transport errors. invalid_grant
// means a bad credential on the password grant but a dead refresh token on
// the refresh grant, so the caller states which flow failed.
func translateTokenError(err error, isRefresh bool) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		// Transport-level failure; leave it for the translator's net checks
		return err
	}

	switch {
	case re.Response != nil && re.Response.StatusCode == http.StatusTooManyRequests:
		return provider.NewError(provider.CodeThrottled, "provider throttled the request", err)
	case re.Response != nil && re.Response.StatusCode >= 500:
		return provider.NewError(provider.CodeServiceUnavailable, fmt.Sprintf("provider returned %d", re.Response.StatusCode), err)
	case re.ErrorCode == "invalid_grant" && isRefresh:
		return provider.NewError(provider.CodeTokenRevoked, "refresh token no longer valid", err)
	case re.ErrorCode == "invalid_grant":
		return provider.NewError(provider.CodeNotAuthorized, "credentials rejected", err)
	case re.ErrorCode == "invalid_request":
		return provider.NewError(provider.CodeInvalidParameter, re.ErrorDescription, err)
	default:
		return provider.NewError(provider.CodeNotAuthorized, re.ErrorDescription, err)
	}
}

func registrationError(status int, body []byte) error {
	message := string(body)
	switch {
	case status == http.StatusConflict:
		return provider.NewError(provider.CodeUserExists, "account already exists", nil)
	case status == http.StatusBadRequest:
		return provider.NewError(provider.CodeInvalidParameter, message, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return provider.NewError(provider.CodeNotAuthorized, message, nil)
	case status == http.StatusTooManyRequests:
		return provider.NewError(provider.CodeThrottled, "provider throttled the request", nil)
	case status >= 500:
		return provider.NewError(provider.CodeServiceUnavailable, fmt.Sprintf("provider returned %d", status), nil)
	default:
		return provider.NewError(provider.CodeInvalidParameter, message, nil)
	}
}
