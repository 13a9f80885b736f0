package auth

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/home-store/internal/domain"
)

// SessionStore resolves session keys.
type SessionStore interface {
	// Resolve returns the live session for key or an error when there is none.
	Resolve(ctx context.Context, key string) (*domain.Session, error)

	// Logout deletes the session.
	Logout(ctx context.Context, key string) error
}

// UserStore loads session owners.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Config contains configuration for the auth middleware.
type Config struct {
	// CookieName is the name of the session cookie.
	CookieName string

	// SecureCookie marks the cookie Secure.
	SecureCookie bool

	// LoginURL is where RequireUser sends anonymous visitors.
	LoginURL string

	// SkipPaths are paths that skip session resolution.
	SkipPaths []string
}

// DefaultConfig returns the default auth configuration.
func DefaultConfig() Config {
	return Config{
		CookieName: "sessionid",
		LoginURL:   "/user/login",
		SkipPaths:  []string{"/health"},
	}
}

// Middleware creates the session middleware. Every request gets an
// AuthContext; lookup failures degrade to an anonymous visitor.
func Middleware(sessions SessionStore, users UserStore, config Config, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "auth").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if r.URL.Path == path {
					next.ServeHTTP(w, r)
					return
				}
			}

			authCtx := &AuthContext{}

			if cookie, err := r.Cookie(config.CookieName); err == nil && cookie.Value != "" {
				session, err := sessions.Resolve(r.Context(), cookie.Value)
				if err != nil {
					logger.Debug().Err(err).Msg("session cookie did not resolve")
					ClearSessionCookie(w, config)
				} else {
					authCtx.Session = session
				}
			}

			if authCtx.Session != nil && authCtx.Session.UserID != nil {
				user, err := users.GetByID(r.Context(), *authCtx.Session.UserID)
				switch {
				case err == nil && user.CanAuthenticate():
					authCtx.User = user
				case err == nil:
					// Deactivated since login.
					logger.Info().Int64("user_id", user.ID).Msg("ending session of inactive user")
					_ = sessions.Logout(r.Context(), authCtx.Session.Key)
					ClearSessionCookie(w, config)
					authCtx.Session = nil
				default:
					// The session stays so a login in this request still replaces it.
					logger.Warn().Err(err).Int64("user_id", *authCtx.Session.UserID).Msg("failed to load session user")
				}
			}

			next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
		})
	}
}

// RequireUser redirects anonymous visitors to the login page, carrying the
// requested URL in the "next" query parameter.
func RequireUser(config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !GetAuthContext(r.Context()).IsAuthenticated() {
				target := config.LoginURL + "?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetSessionCookie issues the session cookie for session.
func SetSessionCookie(w http.ResponseWriter, config Config, session *domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieName,
		Value:    session.Key,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt) / time.Second),
		HttpOnly: true,
		Secure:   config.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, config Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   config.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// WithAuthContext returns a copy of ctx carrying authCtx.
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, AuthContextKey, authCtx)
}

// GetAuthContext retrieves the AuthContext from a request context.
// It never returns nil.
func GetAuthContext(ctx context.Context) *AuthContext {
	if authCtx, ok := ctx.Value(AuthContextKey).(*AuthContext); ok && authCtx != nil {
		return authCtx
	}
	return &AuthContext{}
}

// GetUser returns the authenticated user, or nil.
func GetUser(ctx context.Context) *domain.User {
	return GetAuthContext(ctx).User
}
