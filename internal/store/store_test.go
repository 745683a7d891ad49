package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsharvest/internal/domain"
	errpkg "newsharvest/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir() + "/news.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PersistBatchIsIdempotentPerURL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	items := []domain.NewsItem{
		{UserID: "u1", SourceID: "s1", Title: "A", URL: "http://x/a"},
		{UserID: "u1", SourceID: "s1", Title: "B", URL: "http://x/b"},
	}

	saved, skipped, err := s.PersistBatch(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)
	assert.Equal(t, 0, skipped)

	// Same URLs again, as a concurrent task in the same batch would do.
	saved, skipped, err = s.PersistBatch(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 0, saved)
	assert.Equal(t, 2, skipped)

	// Another user is a separate namespace.
	saved, skipped, err = s.PersistBatch(ctx, []domain.NewsItem{
		{UserID: "u2", SourceID: "s1", Title: "A", URL: "http://x/a"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, saved)
	assert.Equal(t, 0, skipped)
}

func TestStore_GetExistingURLs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, _, err := s.PersistBatch(ctx, []domain.NewsItem{
		{UserID: "u1", SourceID: "s1", Title: "A", URL: "http://x/a"},
		{UserID: "u2", SourceID: "s1", Title: "B", URL: "http://x/b"},
	})
	require.NoError(t, err)

	urls, err := s.GetExistingURLs(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, urls, "http://x/a")
	assert.NotContains(t, urls, "http://x/b")
}

func TestStore_Credentials(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cred, err := s.GetCredential(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, cred)

	require.NoError(t, s.SetCredential(ctx, &domain.Credential{UserID: "u1", APIKey: "sk-1", Model: "m1"}))
	require.NoError(t, s.SetCredential(ctx, &domain.Credential{UserID: "u1", APIKey: "sk-2", Model: "m2"}))

	cred, err = s.GetCredential(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "sk-2", cred.APIKey)
	assert.Equal(t, "m2", cred.Model)
}

func TestStore_Sources(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetSource(ctx, "missing")
	assert.ErrorIs(t, err, errpkg.ErrSourceNotFound)

	src := &domain.Source{ID: "s1", UserID: "u1", Name: "Example", URL: "http://x", Category: "tech"}
	require.NoError(t, s.CreateSource(ctx, src))

	got, err := s.GetSource(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Example", got.Name)
	assert.Equal(t, "u1", got.UserID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStore_ValidateToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ValidateToken(ctx, "nope")
	assert.ErrorIs(t, err, errpkg.ErrInvalidToken)

	require.NoError(t, s.CreateUser(ctx, "u1", "Alice"))
	require.NoError(t, s.CreateToken(ctx, "tok-1", "u1"))

	userID, err := s.ValidateToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)

	// A token pointing at a deleted user names an unknown identity.
	require.NoError(t, s.CreateToken(ctx, "tok-ghost", "gone"))
	_, err = s.ValidateToken(ctx, "tok-ghost")
	assert.ErrorIs(t, err, errpkg.ErrUnknownIdentity)
}
