package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-bot/internal/domain"
)

func TestGrantRepositoryPutOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewGrantRepository()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Put(ctx, domain.Grant{UserID: "v", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Put(ctx, domain.Grant{UserID: "v", ExpiresAt: now.Add(2 * time.Hour)}))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, now.Add(2*time.Hour), all[0].ExpiresAt)
}

func TestGrantRepositoryExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewGrantRepository()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Put(ctx, domain.Grant{UserID: "past", ExpiresAt: now.Add(-time.Millisecond)}))
	require.NoError(t, repo.Put(ctx, domain.Grant{UserID: "edge", ExpiresAt: now}))
	require.NoError(t, repo.Put(ctx, domain.Grant{UserID: "future", ExpiresAt: now.Add(time.Hour)}))

	due, err := repo.Expired(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "past", due[0].UserID)
	assert.Equal(t, "edge", due[1].UserID)
}

func TestGrantRepositoryDeleteIfUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := NewGrantRepository()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	old := domain.Grant{UserID: "v", ExpiresAt: now}

	require.NoError(t, repo.Put(ctx, old))
	require.NoError(t, repo.Put(ctx, domain.Grant{UserID: "v", ExpiresAt: now.AddDate(0, 1, 0)}))

	removed, err := repo.DeleteIfUnchanged(ctx, old)
	require.NoError(t, err)
	assert.False(t, removed)

	renewed, err := repo.Get(ctx, "v")
	require.NoError(t, err)
	removed, err = repo.DeleteIfUnchanged(ctx, renewed)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = repo.Get(ctx, "v")
	assert.ErrorIs(t, err, domain.ErrUnknownGrant)
}
