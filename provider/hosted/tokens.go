package hosted

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/jrsteele09/go-identity-gateway/provider"
)

const (
	refreshTokenLength = 32 // bytes of entropy, hex encoded
	refreshTokenTTL    = 30 * 24 * time.Hour
)

type storedRefreshToken struct {
	Token      string
	Identifier string
	IssuedAt   time.Time
}

// refreshTokenStore holds server-side refresh token metadata keyed by the
// opaque token string handed to the client.
type refreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*storedRefreshToken
}

func newRefreshTokenStore() *refreshTokenStore {
	return &refreshTokenStore{tokens: make(map[string]*storedRefreshToken)}
}

// Create generates a new refresh token for the identifier and stores it.
func (s *refreshTokenStore) Create(identifier string, now time.Time) (string, error) {
	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", provider.NewError(provider.CodeServiceUnavailable, "failed to generate refresh token", err)
	}
	tokenStr := hex.EncodeToString(tokenBytes)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenStr] = &storedRefreshToken{
		Token:      tokenStr,
		Identifier: identifier,
		IssuedAt:   now,
	}
	return tokenStr, nil
}

// Consume validates the token, removes it from the store and returns its
// metadata. A second Consume of the same token reports it as revoked:
// refresh tokens here are strictly single-use.
func (s *refreshTokenStore) Consume(token string, now time.Time) (*storedRefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tokens[token]
	if !ok {
		return nil, provider.NewError(provider.CodeTokenRevoked, "refresh token unknown or already used", nil)
	}
	delete(s.tokens, token)

	if now.Sub(stored.IssuedAt) > refreshTokenTTL {
		return nil, provider.NewError(provider.CodeTokenExpired, "refresh token has expired", nil)
	}
	return stored, nil
}
