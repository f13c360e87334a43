package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

func TestMemorySessionRepositoryExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	repo := NewMemorySessionRepository(func() time.Time { return now })
	ctx := context.Background()

	session := &models.Session{ID: "s1", Token: "tok", User: models.User{Username: "admin"}}
	require.NoError(t, repo.Save(ctx, session, time.Hour))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)

	now = now.Add(time.Hour)
	_, err = repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Error(t, repo.Save(ctx, session, 0))
}

func TestMemorySessionRepositoryDelete(t *testing.T) {
	repo := NewMemorySessionRepository(nil)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &models.Session{ID: "s2"}, time.Minute))
	require.NoError(t, repo.Delete(ctx, "s2"))
	require.NoError(t, repo.Delete(ctx, "missing"))

	_, err := repo.Get(ctx, "s2")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTokenFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	store, err := NewTokenFileStore(path)
	require.NoError(t, err)

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.Save("abc.def"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"auth_token":"abc.def"}`, string(raw))

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestCacheRepositoryDisabled(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest []string
	assert.ErrorIs(t, repo.Get(ctx, "layanan:all", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "layanan:all", []string{"x"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "layanan:*"))
	assert.NoError(t, repo.Ping(ctx))
	assert.False(t, repo.Enabled())
}
