package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

// TokenStore persists the single-user token record.
type TokenStore interface {
	// Latest returns the authoritative record.
	// Returns domain.ErrNotFound if no record exists.
	Latest(ctx context.Context) (*domain.TokenRecord, error)

	// Save inserts the record when ID is zero, otherwise updates it in place.
	// The update is atomic for the single record.
	Save(ctx context.Context, record *domain.TokenRecord) error
}

// SessionStore holds one encrypted credential blob per session key.
type SessionStore interface {
	// Get returns the blob for key.
	// Returns domain.ErrNotFound if the session has no credential.
	Get(ctx context.Context, key string) (string, error)

	// Put replaces the blob for key.
	// A zero ttl keeps the blob until it is replaced.
	Put(ctx context.Context, key, blob string, ttl time.Duration) error
}
