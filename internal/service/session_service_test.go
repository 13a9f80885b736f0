package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/lock"
	"github.com/prn-tf/home-store/internal/metrics"
	"github.com/prn-tf/home-store/internal/pkg/crypto"
)

const testSessionKey = "abcdefghijklmnopqrstuvwxyz012345"

func newTestSessionService() (*SessionService, *mockSessionRepository) {
	repo := new(mockSessionRepository)
	return NewSessionService(repo, time.Hour, zerolog.Nop()), repo
}

func TestSessionService_Start(t *testing.T) {
	svc, repo := newTestSessionService()
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Session")).Return(nil)

	session, err := svc.Start(ctx)
	require.NoError(t, err)

	assert.True(t, crypto.IsValidSessionKey(session.Key))
	assert.False(t, session.IsAuthenticated())
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)
	repo.AssertExpectations(t)
}

func TestSessionService_Start_RepositoryError(t *testing.T) {
	svc, repo := newTestSessionService()
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything).Return(errors.New("db down"))

	_, err := svc.Start(ctx)
	assert.ErrorIs(t, err, ErrInternalError)
}

func TestSessionService_Resolve(t *testing.T) {
	ctx := context.Background()
	userID := int64(7)

	t.Run("live session", func(t *testing.T) {
		svc, repo := newTestSessionService()
		live := domain.NewSession(testSessionKey, &userID, time.Hour)
		repo.On("GetByKey", ctx, testSessionKey).Return(live, nil)

		session, err := svc.Resolve(ctx, testSessionKey)
		require.NoError(t, err)
		assert.Equal(t, live, session)
	})

	t.Run("malformed key skips the store", func(t *testing.T) {
		svc, repo := newTestSessionService()

		_, err := svc.Resolve(ctx, "short")
		assert.ErrorIs(t, err, ErrSessionNotFound)
		repo.AssertNotCalled(t, "GetByKey", mock.Anything, mock.Anything)
	})

	t.Run("unknown key", func(t *testing.T) {
		svc, repo := newTestSessionService()
		repo.On("GetByKey", ctx, testSessionKey).Return(nil, domain.ErrSessionNotFound)

		_, err := svc.Resolve(ctx, testSessionKey)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("expired session is deleted", func(t *testing.T) {
		svc, repo := newTestSessionService()
		expired := domain.NewSession(testSessionKey, nil, -time.Minute)
		repo.On("GetByKey", ctx, testSessionKey).Return(expired, nil)
		repo.On("Delete", ctx, testSessionKey).Return(nil)

		_, err := svc.Resolve(ctx, testSessionKey)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		repo.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, repo := newTestSessionService()
		repo.On("GetByKey", ctx, testSessionKey).Return(nil, errors.New("timeout"))

		_, err := svc.Resolve(ctx, testSessionKey)
		assert.ErrorIs(t, err, ErrInternalError)
	})
}

func TestSessionService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("from anonymous session", func(t *testing.T) {
		svc, repo := newTestSessionService()
		previous := domain.NewSession(testSessionKey, nil, time.Hour)

		repo.On("Create", ctx, mock.MatchedBy(func(s *domain.Session) bool {
			return s.UserID != nil && *s.UserID == 42 && s.Key != testSessionKey
		})).Return(nil)
		repo.On("Delete", ctx, testSessionKey).Return(nil)

		out, err := svc.Login(ctx, previous, 42)
		require.NoError(t, err)
		assert.Equal(t, testSessionKey, out.PreviousKey)
		assert.True(t, out.Session.IsAuthenticated())
		assert.NotEqual(t, testSessionKey, out.Session.Key)
		repo.AssertExpectations(t)
	})

	t.Run("without a session", func(t *testing.T) {
		svc, repo := newTestSessionService()
		repo.On("Create", ctx, mock.Anything).Return(nil)

		out, err := svc.Login(ctx, nil, 42)
		require.NoError(t, err)
		assert.Empty(t, out.PreviousKey)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("from another user's session", func(t *testing.T) {
		svc, repo := newTestSessionService()
		other := int64(9)
		previous := domain.NewSession(testSessionKey, &other, time.Hour)
		repo.On("Create", ctx, mock.Anything).Return(nil)
		repo.On("Delete", ctx, testSessionKey).Return(nil)

		out, err := svc.Login(ctx, previous, 42)
		require.NoError(t, err)
		assert.Empty(t, out.PreviousKey)
	})
}

func TestSessionService_Logout(t *testing.T) {
	svc, repo := newTestSessionService()
	ctx := context.Background()

	repo.On("Delete", ctx, testSessionKey).Return(nil)

	require.NoError(t, svc.Logout(ctx, testSessionKey))
	require.NoError(t, svc.Logout(ctx, ""))
	repo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestSessionJanitor_RunOnce(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestSessionService()
	repo.On("DeleteExpired", ctx, mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	m := metrics.NewMetrics(prometheus.NewRegistry())
	locker := lock.NewMemoryLocker()
	defer locker.Stop()

	janitor := NewSessionJanitor(svc, locker, m, time.Hour, zerolog.Nop())

	n, err := janitor.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.SessionsPurged))

	// Lock released after the run.
	acquired, err := locker.Acquire(ctx, lock.Keys.SessionPurge(), time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestSessionJanitor_RunOnce_LockHeld(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestSessionService()

	locker := lock.NewMemoryLocker()
	defer locker.Stop()
	acquired, err := locker.Acquire(ctx, lock.Keys.SessionPurge(), time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	janitor := NewSessionJanitor(svc, locker, nil, time.Hour, zerolog.Nop())

	n, err := janitor.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	repo.AssertNotCalled(t, "DeleteExpired", mock.Anything, mock.Anything)
}

func TestSessionJanitor_StartStop(t *testing.T) {
	svc, _ := newTestSessionService()
	locker := lock.NewMemoryLocker()
	defer locker.Stop()
	janitor := NewSessionJanitor(svc, locker, nil, time.Hour, zerolog.Nop())

	janitor.Start()
	janitor.Start()
	janitor.Stop()
	janitor.Stop()
}
