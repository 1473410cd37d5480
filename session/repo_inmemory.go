package session

import (
	"sync"

	"github.com/pkg/errors"
)

// InMemoryRepo is an in-memory implementation of Repo. Records live for the
// lifetime of the process; an external store can replace this without
// changing the Manager's contract.
type InMemoryRepo struct {
	mu             sync.RWMutex
	sessions       map[Key]*Session
	byAccessToken  map[string]Key
	byRefreshToken map[string]Key
}

// NewInMemoryRepo creates a new in-memory session repository.
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions:       make(map[Key]*Session),
		byAccessToken:  make(map[string]Key),
		byRefreshToken: make(map[string]Key),
	}
}

// Upsert stores or replaces the record for s.Key and reindexes its tokens.
func (r *InMemoryRepo) Upsert(s *Session) error {
	if s == nil {
		return errors.New("session is required")
	}
	if s.Key == "" {
		return errors.New("session key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prior, ok := r.sessions[s.Key]; ok {
		delete(r.byAccessToken, prior.AccessToken)
		delete(r.byRefreshToken, prior.RefreshToken)
	}

	// Store a copy to avoid external modifications
	stored := *s
	r.sessions[s.Key] = &stored
	if stored.AccessToken != "" {
		r.byAccessToken[stored.AccessToken] = stored.Key
	}
	if stored.RefreshToken != "" {
		r.byRefreshToken[stored.RefreshToken] = stored.Key
	}
	return nil
}

// UpdateActive applies mutate to the record for key and reindexes its
// tokens. A REVOKED record is returned unmodified: revocation wins over any
// in-flight update racing with it.
func (r *InMemoryRepo) UpdateActive(key Key, mutate func(*Session)) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return nil, false
	}
	if s.Status == StatusRevoked {
		c := *s
		return &c, true
	}

	delete(r.byAccessToken, s.AccessToken)
	delete(r.byRefreshToken, s.RefreshToken)
	mutate(s)
	if s.AccessToken != "" {
		r.byAccessToken[s.AccessToken] = key
	}
	if s.RefreshToken != "" {
		r.byRefreshToken[s.RefreshToken] = key
	}

	c := *s
	return &c, true
}

// Get retrieves a copy of the record for key.
func (r *InMemoryRepo) Get(key Key) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(key)
}

// GetByAccessToken resolves an access token to its session record.
func (r *InMemoryRepo) GetByAccessToken(accessToken string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.byAccessToken[accessToken]
	if !ok {
		return nil, false
	}
	return r.copyOf(key)
}

// GetByRefreshToken resolves a refresh token to its session record.
func (r *InMemoryRepo) GetByRefreshToken(refreshToken string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.byRefreshToken[refreshToken]
	if !ok {
		return nil, false
	}
	return r.copyOf(key)
}

// MarkRevoked sets the record's status to REVOKED. Returns false when no
// record exists for key.
func (r *InMemoryRepo) MarkRevoked(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return false
	}
	s.Status = StatusRevoked
	return true
}

// Delete removes the record for key. Deleting an absent key is not an error.
func (r *InMemoryRepo) Delete(key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return nil
	}
	delete(r.byAccessToken, s.AccessToken)
	delete(r.byRefreshToken, s.RefreshToken)
	delete(r.sessions, key)
	return nil
}

// copyOf must be called with at least a read lock held.
func (r *InMemoryRepo) copyOf(key Key) (*Session, bool) {
	s, ok := r.sessions[key]
	if !ok {
		return nil, false
	}
	c := *s
	return &c, true
}

var _ Repo = (*InMemoryRepo)(nil)
