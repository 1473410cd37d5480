package session

// Repo defines session record storage. Implementations must be safe for
// concurrent use; reads return copies so stored records are only ever
// mutated through the repo itself.
type Repo interface {
	// Upsert stores or replaces the record for s.Key
	Upsert(s *Session) error

	// UpdateActive applies mutate to the stored record for key under the
	// repo's lock, unless the record is REVOKED; a revocation is terminal
	// and is never overwritten. Returns a copy of the record after the
	// call and whether a record exists.
	UpdateActive(key Key, mutate func(*Session)) (*Session, bool)

	// Get retrieves a copy of the record for key
	Get(key Key) (*Session, bool)

	// GetByAccessToken resolves an access token to its session record
	GetByAccessToken(accessToken string) (*Session, bool)

	// GetByRefreshToken resolves a refresh token to its session record
	GetByRefreshToken(refreshToken string) (*Session, bool)

	// MarkRevoked sets the record's status to REVOKED; false if absent
	MarkRevoked(key Key) bool

	// Delete removes the record for key
	Delete(key Key) error
}
