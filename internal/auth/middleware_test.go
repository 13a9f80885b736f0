package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/home-store/internal/domain"
)

type fakeSessions struct {
	sessions  map[string]*domain.Session
	loggedOut []string
}

func (f *fakeSessions) Resolve(ctx context.Context, key string) (*domain.Session, error) {
	if s, ok := f.sessions[key]; ok {
		return s, nil
	}
	return nil, errors.New("session not found")
}

func (f *fakeSessions) Logout(ctx context.Context, key string) error {
	f.loggedOut = append(f.loggedOut, key)
	delete(f.sessions, key)
	return nil
}

type fakeUsers map[int64]*domain.User

// brokenUserID makes fakeUsers fail as if the store were down.
const brokenUserID int64 = 99

func (f fakeUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if id == brokenUserID {
		return nil, errors.New("database is locked")
	}
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func captureAuth(got **AuthContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = GetAuthContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddleware(t *testing.T) {
	activeID, inactiveID, goneID, brokenID := int64(1), int64(2), int64(3), brokenUserID
	sessions := &fakeSessions{sessions: map[string]*domain.Session{
		"anon":     domain.NewSession("anon", nil, time.Hour),
		"active":   domain.NewSession("active", &activeID, time.Hour),
		"inactive": domain.NewSession("inactive", &inactiveID, time.Hour),
		"gone":     domain.NewSession("gone", &goneID, time.Hour),
		"broken":   domain.NewSession("broken", &brokenID, time.Hour),
	}}
	users := fakeUsers{
		activeID:   {ID: activeID, Username: "alice", IsActive: true},
		inactiveID: {ID: inactiveID, Username: "bob", IsActive: false},
	}
	cfg := DefaultConfig()

	tests := []struct {
		name        string
		cookie      string
		wantSession bool
		wantUser    string
		wantCleared bool
	}{
		{name: "no cookie"},
		{name: "unknown key", cookie: "missing", wantCleared: true},
		{name: "anonymous session", cookie: "anon", wantSession: true},
		{name: "authenticated session", cookie: "active", wantSession: true, wantUser: "alice"},
		{name: "inactive user", cookie: "inactive", wantCleared: true},
		{name: "deleted user", cookie: "gone", wantSession: true},
		{name: "user store error", cookie: "broken", wantSession: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *AuthContext
			h := Middleware(sessions, users, cfg, zerolog.Nop())(captureAuth(&got))

			req := httptest.NewRequest(http.MethodGet, "/user/profile", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.NotNil(t, got)
			assert.Equal(t, tt.wantSession, got.Session != nil)
			if tt.wantUser != "" {
				require.True(t, got.IsAuthenticated())
				assert.Equal(t, tt.wantUser, got.User.Username)
			} else {
				assert.False(t, got.IsAuthenticated())
			}

			cleared := false
			for _, c := range rec.Result().Cookies() {
				if c.Name == cfg.CookieName && c.MaxAge < 0 {
					cleared = true
				}
			}
			assert.Equal(t, tt.wantCleared, cleared)
		})
	}

	assert.Equal(t, []string{"inactive"}, sessions.loggedOut)
}

func TestMiddleware_SkipPaths(t *testing.T) {
	var got *AuthContext
	h := Middleware(&fakeSessions{}, fakeUsers{}, DefaultConfig(), zerolog.Nop())(captureAuth(&got))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	// Handlers outside the middleware still get an empty context.
	require.NotNil(t, got)
	assert.Nil(t, got.Session)
}

func TestRequireUser(t *testing.T) {
	cfg := DefaultConfig()
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := RequireUser(cfg)(inner)

	t.Run("anonymous is redirected with next", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user/profile?page=2", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/user/login?next=%2Fuser%2Fprofile%3Fpage%3D2", rec.Header().Get("Location"))
	})

	t.Run("authenticated passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/user/profile", nil)
		req = req.WithContext(WithAuthContext(req.Context(), &AuthContext{User: &domain.User{ID: 1}}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSessionCookies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SecureCookie = true
	session := domain.NewSession("abc", nil, time.Hour)

	rec := httptest.NewRecorder()
	SetSessionCookie(rec, cfg, session)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sessionid", cookies[0].Name)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.InDelta(t, 3600, cookies[0].MaxAge, 2)
}
