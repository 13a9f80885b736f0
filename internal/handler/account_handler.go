package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/home-store/internal/auth"
	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/events"
	"github.com/prn-tf/home-store/internal/metrics"
	"github.com/prn-tf/home-store/internal/service"
)

// Account page URLs.
const (
	loginURL        = "/user/login"
	registrationURL = "/user/registration"
	profileURL      = "/user/profile"
	cartURL         = "/user/users-cart"
	logoutURL       = "/user/logout"
)

const (
	msgBadCredentials = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	msgInactive       = "This account is inactive."
	msgCartBusy       = "Your cart is being updated by another request. Please try again."
)

// AccountHandler handles login, registration, profile and logout.
type AccountHandler struct {
	userService    *service.UserService
	sessionService *service.SessionService
	cartService    *service.CartService
	orderService   *service.OrderService
	publisher      events.Publisher
	metrics        *metrics.Metrics
	renderer       *Renderer
	limiter        *RateLimiter
	auth           auth.Config
	ordersPerPage  int
	maxUploadSize  int64
	logger         zerolog.Logger
}

// AccountConfig contains configuration for the account handler.
type AccountConfig struct {
	UserService    *service.UserService
	SessionService *service.SessionService
	CartService    *service.CartService
	OrderService   *service.OrderService
	Publisher      events.Publisher
	Metrics        *metrics.Metrics
	Renderer       *Renderer

	// Limiter throttles login and registration submissions. Optional.
	Limiter *RateLimiter

	Auth          auth.Config
	OrdersPerPage int
	MaxUploadSize int64
	Logger        zerolog.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(cfg AccountConfig) *AccountHandler {
	if cfg.OrdersPerPage <= 0 {
		cfg.OrdersPerPage = 10
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = service.DefaultUserServiceConfig().MaxImageSize
	}
	return &AccountHandler{
		userService:    cfg.UserService,
		sessionService: cfg.SessionService,
		cartService:    cfg.CartService,
		orderService:   cfg.OrderService,
		publisher:      cfg.Publisher,
		metrics:        cfg.Metrics,
		renderer:       cfg.Renderer,
		limiter:        cfg.Limiter,
		auth:           cfg.Auth,
		ordersPerPage:  cfg.OrdersPerPage,
		maxUploadSize:  cfg.MaxUploadSize,
		logger:         cfg.Logger.With().Str("handler", "account").Logger(),
	}
}

// =============================================================================
// Template Data Structs
// =============================================================================

// LoginPageData contains login page data.
type LoginPageData struct {
	PageData
	Form *Form
	Next string
}

// RegistrationPageData contains registration page data.
type RegistrationPageData struct {
	PageData
	Form *Form
}

// ProfilePageData contains profile page data.
type ProfilePageData struct {
	PageData
	Form   *Form
	Orders *service.OrderPage
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers account routes.
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	throttled := r.With(h.limiter.Middleware)

	r.Get(loginURL, h.handleLoginPage)
	throttled.Post(loginURL, h.handleLogin)

	r.Get(registrationURL, h.handleRegistrationPage)
	throttled.Post(registrationURL, h.handleRegistration)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(h.auth))

		r.Get(profileURL, h.handleProfilePage)
		r.Post(profileURL, h.handleProfileUpdate)

		r.Get(logoutURL, h.handleLogout)
		r.Post(logoutURL, h.handleLogout)
	})
}

// =============================================================================
// Login
// =============================================================================

func (h *AccountHandler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, newForm(), r.URL.Query().Get("next"))
}

func (h *AccountHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.Error(w, r, http.StatusBadRequest, "Invalid form data")
		return
	}

	ctx := r.Context()
	form := formFromRequest(r, "username", "password")
	next := r.PostFormValue("next")
	form.Required("username", "password")
	// Passwords are never echoed back.
	form.Values["password"] = ""

	if !form.Valid() {
		h.metrics.Login(metrics.ResultInvalid)
		h.renderLogin(w, r, http.StatusOK, form, next)
		return
	}

	username := strings.TrimSpace(form.Get("username"))
	user, err := h.userService.Authenticate(ctx, username, r.PostFormValue("password"))
	switch {
	case errors.Is(err, service.ErrUserInactive):
		h.metrics.Login(metrics.ResultRejected)
		form.AddNonFieldError(msgInactive)
		h.renderLogin(w, r, http.StatusOK, form, next)
		return
	case errors.Is(err, service.ErrInvalidCredentials), err == nil && user == nil:
		h.metrics.Login(metrics.ResultRejected)
		form.AddNonFieldError(msgBadCredentials)
		h.renderLogin(w, r, http.StatusOK, form, next)
		return
	case err != nil:
		h.metrics.Login(metrics.ResultFailure)
		h.logger.Error().Err(err).Str("username", username).Msg("Login failed")
		h.renderer.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}

	if !h.establishSession(w, r, user, service.CarryoverDiscardExisting) {
		h.metrics.Login(metrics.ResultFailure)
		return
	}

	h.metrics.Login(metrics.ResultSuccess)
	h.publish(ctx, events.NewEvent(events.TypeUserLoggedIn, map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	}))

	addFlash(r, FlashSuccess, fmt.Sprintf("%s, you are now logged in", user.Username))
	redirect(w, r, safeNext(next))
}

func (h *AccountHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, form *Form, next string) {
	h.renderer.Render(w, r, status, pageLogin, &LoginPageData{
		PageData: PageData{Title: "HOME - Login"},
		Form:     form,
		Next:     next,
	})
}

// =============================================================================
// Registration
// =============================================================================

var registrationFields = []string{
	service.FieldFirstName,
	service.FieldLastName,
	service.FieldUsername,
	service.FieldEmail,
	service.FieldPassword1,
	service.FieldPassword2,
}

func (h *AccountHandler) handleRegistrationPage(w http.ResponseWriter, r *http.Request) {
	h.renderRegistration(w, r, http.StatusOK, newForm())
}

func (h *AccountHandler) handleRegistration(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.Error(w, r, http.StatusBadRequest, "Invalid form data")
		return
	}

	ctx := r.Context()
	form := formFromRequest(r, registrationFields...)
	form.Required(registrationFields...)

	if !form.Valid() {
		h.metrics.Registration(metrics.ResultInvalid)
		h.renderRegistration(w, r, http.StatusOK, scrubPasswords(form))
		return
	}

	out, err := h.userService.Create(ctx, service.CreateUserInput{
		Username:        form.Get(service.FieldUsername),
		Email:           form.Get(service.FieldEmail),
		FirstName:       form.Get(service.FieldFirstName),
		LastName:        form.Get(service.FieldLastName),
		Password:        form.Get(service.FieldPassword1),
		PasswordConfirm: form.Get(service.FieldPassword2),
	})
	if err != nil {
		if fields := service.FieldErrors(err); fields != nil {
			h.metrics.Registration(metrics.ResultInvalid)
			form.Merge(fields)
			h.renderRegistration(w, r, http.StatusOK, scrubPasswords(form))
			return
		}
		h.metrics.Registration(metrics.ResultFailure)
		h.logger.Error().Err(err).Msg("Registration failed")
		h.renderer.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}

	user := out.User
	if !h.establishSession(w, r, user, service.CarryoverKeepExisting) {
		h.metrics.Registration(metrics.ResultFailure)
		return
	}

	h.metrics.Registration(metrics.ResultSuccess)
	addFlash(r, FlashSuccess, fmt.Sprintf("%s, you have registered and are now logged in", user.Username))
	redirect(w, r, profileURL)
}

func (h *AccountHandler) renderRegistration(w http.ResponseWriter, r *http.Request, status int, form *Form) {
	h.renderer.Render(w, r, status, pageRegistration, &RegistrationPageData{
		PageData: PageData{Title: "HOME - Registration"},
		Form:     form,
	})
}

func scrubPasswords(form *Form) *Form {
	form.Values[service.FieldPassword1] = ""
	form.Values[service.FieldPassword2] = ""
	return form
}

// establishSession carries the anonymous cart over to user and then swaps
// the visitor's session for an authenticated one. The cart moves first so a
// failed carryover leaves the anonymous session and its cart untouched. It
// writes an error page and returns false on failure.
func (h *AccountHandler) establishSession(w http.ResponseWriter, r *http.Request, user *domain.User, mode service.CarryoverMode) bool {
	ctx := r.Context()
	previous := auth.GetAuthContext(ctx).Session

	_, err := h.cartService.Carryover(ctx, service.CarryoverInput{
		SessionKey: previous.AnonymousKey(),
		UserID:     user.ID,
		Mode:       mode,
	})
	switch {
	case errors.Is(err, service.ErrCartBusy):
		h.logger.Warn().Int64("user_id", user.ID).Msg("Cart carryover lock busy, login refused")
		h.renderer.Error(w, r, http.StatusConflict, msgCartBusy)
		return false
	case err != nil:
		h.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Cart carryover failed")
		h.renderer.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return false
	}

	out, err := h.sessionService.Login(ctx, previous, user.ID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to start session")
		h.renderer.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return false
	}
	auth.SetSessionCookie(w, h.auth, out.Session)

	return true
}

// =============================================================================
// Profile
// =============================================================================

var profileFields = []string{
	service.FieldFirstName,
	service.FieldLastName,
	service.FieldUsername,
	service.FieldEmail,
}

func (h *AccountHandler) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	form := newForm()
	form.Values[service.FieldFirstName] = user.FirstName
	form.Values[service.FieldLastName] = user.LastName
	form.Values[service.FieldUsername] = user.Username
	form.Values[service.FieldEmail] = user.Email

	h.renderProfile(w, r, form)
}

func (h *AccountHandler) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.GetUser(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)

	var image *service.ImageUpload
	var parseErr error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		parseErr = r.ParseMultipartForm(h.maxUploadSize)
	} else {
		parseErr = r.ParseForm()
	}

	form := formFromRequest(r, profileFields...)
	if parseErr != nil {
		form.AddError(service.FieldImage, service.MsgImageTooLarge)
	} else if r.MultipartForm != nil {
		file, header, err := r.FormFile(service.FieldImage)
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			form.AddError(service.FieldImage, service.MsgImageInvalid)
		default:
			defer file.Close()
			image = &service.ImageUpload{Filename: header.Filename, Content: file}
		}
	}

	if form.Valid() {
		_, err := h.userService.UpdateProfile(ctx, service.UpdateProfileInput{
			UserID:    user.ID,
			Username:  form.Get(service.FieldUsername),
			Email:     form.Get(service.FieldEmail),
			FirstName: form.Get(service.FieldFirstName),
			LastName:  form.Get(service.FieldLastName),
			Image:     image,
		})
		if err == nil {
			addFlash(r, FlashSuccess, "Profile updated")
			redirect(w, r, profileURL)
			return
		}
		fields := service.FieldErrors(err)
		if fields == nil {
			h.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Profile update failed")
			h.renderer.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
			return
		}
		form.Merge(fields)
	}

	addFlash(r, FlashError, "An error occurred")
	h.renderProfile(w, r, form)
}

func (h *AccountHandler) renderProfile(w http.ResponseWriter, r *http.Request, form *Form) {
	ctx := r.Context()
	user := auth.GetUser(ctx)

	orders, err := h.orderService.ListForUser(ctx, user.ID)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to load orders")
		h.renderer.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	h.renderer.Render(w, r, http.StatusOK, pageProfile, &ProfilePageData{
		PageData: PageData{Title: "HOME - Profile"},
		Form:     form,
		Orders:   service.Paginate(orders, page, h.ordersPerPage),
	})
}

// =============================================================================
// Logout
// =============================================================================

func (h *AccountHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.GetAuthContext(ctx)

	if err := h.sessionService.Logout(ctx, authCtx.SessionKey()); err != nil {
		h.logger.Error().Err(err).Int64("user_id", authCtx.User.ID).Msg("Logout failed")
		h.renderer.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}
	auth.ClearSessionCookie(w, h.auth)

	addFlash(r, FlashSuccess, fmt.Sprintf("%s, you have logged out", authCtx.User.Username))
	redirect(w, r, "/")
}

func (h *AccountHandler) publish(ctx context.Context, event events.Event) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Warn().Err(err).Str("event_type", event.Type).Msg("Failed to publish event")
	}
}
