package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/home-store/internal/domain"
)

func TestSessionRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")

	anonymous := domain.NewSession("anon0000000000000000000000000000", nil, time.Hour)
	require.NoError(t, repo.Create(ctx, anonymous))

	authenticated := domain.NewSession("auth0000000000000000000000000000", &user.ID, time.Hour)
	require.NoError(t, repo.Create(ctx, authenticated))

	got, err := repo.GetByKey(ctx, anonymous.Key)
	require.NoError(t, err)
	assert.False(t, got.IsAuthenticated())

	got, err = repo.GetByKey(ctx, authenticated.Key)
	require.NoError(t, err)
	require.True(t, got.IsAuthenticated())
	assert.Equal(t, user.ID, *got.UserID)

	require.NoError(t, repo.Delete(ctx, anonymous.Key))
	_, err = repo.GetByKey(ctx, anonymous.Key)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// deleting twice is fine
	assert.NoError(t, repo.Delete(ctx, anonymous.Key))
}

func TestSessionRepository_DeleteExpired(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	expired := domain.NewSession("old00000000000000000000000000000", nil, time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, expired))

	live := domain.NewSession("new00000000000000000000000000000", nil, time.Hour)
	require.NoError(t, repo.Create(ctx, live))

	n, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByKey(ctx, live.Key)
	assert.NoError(t, err)
}
