package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driven"
)

// Ensure TokenStore implements the interface.
var _ driven.TokenStore = (*TokenStore)(nil)

// TokenStore keeps the encrypted single-user token record.
type TokenStore struct {
	store *Store
}

// NewTokenStore creates a token store backed by s.
func NewTokenStore(s *Store) *TokenStore {
	return &TokenStore{store: s}
}

// Latest returns the most recently updated record.
func (t *TokenStore) Latest(ctx context.Context) (*domain.TokenRecord, error) {
	const query = `
		SELECT id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM tokens
		ORDER BY updated_at DESC, id DESC
		LIMIT 1`

	var record domain.TokenRecord
	if err := t.store.db.GetContext(ctx, &record, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("loading token record: %w", err)
	}
	return &record, nil
}

// Save inserts a new record or updates an existing one in place.
func (t *TokenStore) Save(ctx context.Context, record *domain.TokenRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.UpdatedAt
	}

	if record.ID == 0 {
		const insert = `
			INSERT INTO tokens (access_token, refresh_token, expires_at, created_at, updated_at)
			VALUES (:access_token, :refresh_token, :expires_at, :created_at, :updated_at)`

		res, err := t.store.db.NamedExecContext(ctx, insert, record)
		if err != nil {
			return fmt.Errorf("inserting token record: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading token record id: %w", err)
		}
		record.ID = id
		return nil
	}

	const update = `
		UPDATE tokens
		SET access_token = :access_token,
			refresh_token = :refresh_token,
			expires_at = :expires_at,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := t.store.db.NamedExecContext(ctx, update, record)
	if err != nil {
		return fmt.Errorf("updating token record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating token record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("updating token record %d: %w", record.ID, domain.ErrNotFound)
	}
	return nil
}
