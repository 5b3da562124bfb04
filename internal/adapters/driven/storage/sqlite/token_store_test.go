package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

func newTestStore(t *testing.T) *TokenStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "graphmail.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewTokenStore(s)
}

func TestTokenStore_LatestEmpty(t *testing.T) {
	_, err := newTestStore(t).Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenStore_InsertThenUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	record := &domain.TokenRecord{
		AccessToken:  "c-at1",
		RefreshToken: "c-rt1",
		ExpiresAt:    now.Add(time.Hour),
		UpdatedAt:    now,
	}
	require.NoError(t, store.Save(ctx, record))
	require.NotZero(t, record.ID)

	got, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, "c-at1", got.AccessToken)
	assert.True(t, got.ExpiresAt.Equal(now.Add(time.Hour)), got.ExpiresAt)
	assert.True(t, got.CreatedAt.Equal(now))

	later := now.Add(2 * time.Hour)
	got.AccessToken = "c-at2"
	got.RefreshToken = "c-rt2"
	got.ExpiresAt = later.Add(3570 * time.Second)
	got.UpdatedAt = later
	require.NoError(t, store.Save(ctx, got))

	updated, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, record.ID, updated.ID, "updated in place")
	assert.Equal(t, "c-at2", updated.AccessToken)
	assert.Equal(t, "c-rt2", updated.RefreshToken)
	assert.True(t, updated.ExpiresAt.Equal(later.Add(3570*time.Second)))
	assert.True(t, updated.CreatedAt.Equal(now))

	var count int
	require.NoError(t, store.store.db.Get(&count, "SELECT COUNT(*) FROM tokens"))
	assert.Equal(t, 1, count)
}

func TestTokenStore_UpdateMissing(t *testing.T) {
	err := newTestStore(t).Save(context.Background(), &domain.TokenRecord{ID: 42, UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "graphmail.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, NewTokenStore(s).Save(ctx, &domain.TokenRecord{
		AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now(), UpdatedAt: time.Now(),
	}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := NewTokenStore(s).Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = NewTokenStore(s).Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
