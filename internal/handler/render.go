// Package handler provides the HTTP handlers for the HOME account pages.
package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/prn-tf/home-store/internal/auth"
	"github.com/prn-tf/home-store/internal/domain"
)

//go:embed templates/*.html templates/layout/*.html
var templateFS embed.FS

// Page templates.
const (
	pageIndex        = "index.html"
	pageLogin        = "login.html"
	pageRegistration = "registration.html"
	pageProfile      = "profile.html"
	pageCart         = "users_cart.html"
	pageError        = "error.html"
)

var pages = []string{pageIndex, pageLogin, pageRegistration, pageProfile, pageCart, pageError}

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string {
		return d.StringFixed(2)
	},
	"date": func(t time.Time) string {
		return t.Format("02.01.2006 15:04")
	},
}

// =============================================================================
// Template Data Structs
// =============================================================================

// PageData contains common page data.
type PageData struct {
	Title     string
	User      *domain.User
	AvatarURL string
	Flashes   []Flash
}

func (p *PageData) base() *PageData { return p }

type pageData interface {
	base() *PageData
}

// ErrorPageData contains error page data.
type ErrorPageData struct {
	PageData
	Status  int
	Message string
}

// =============================================================================
// Renderer
// =============================================================================

// Renderer executes the embedded page templates.
type Renderer struct {
	pages     map[string]*template.Template
	avatarURL func(*domain.User) string
	logger    zerolog.Logger
}

// NewRenderer parses every page together with the shared layout.
// avatarURL resolves the header avatar and may be nil.
func NewRenderer(avatarURL func(*domain.User) string, logger zerolog.Logger) (*Renderer, error) {
	parsed := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout/*.html", "templates/"+page)
		if err != nil {
			return nil, err
		}
		parsed[page] = tmpl
	}

	return &Renderer{
		pages:     parsed,
		avatarURL: avatarURL,
		logger:    logger.With().Str("component", "renderer").Logger(),
	}, nil
}

// Render writes page with status. The common fields of data are filled from
// the request: the current user and the flash messages due for display.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	base := data.base()
	if base.User == nil {
		base.User = auth.GetUser(r.Context())
	}
	if base.User != nil && rd.avatarURL != nil {
		base.AvatarURL = rd.avatarURL(base.User)
	}
	base.Flashes = consumeFlashes(w, r)

	tmpl, ok := rd.pages[page]
	if !ok {
		rd.logger.Error().Str("template", page).Msg("Unknown template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.logger.Error().Err(err).Str("template", page).Msg("Failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Error renders the error page.
func (rd *Renderer) Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	rd.Render(w, r, status, pageError, &ErrorPageData{
		PageData: PageData{Title: "HOME - Error"},
		Status:   status,
		Message:  message,
	})
}
