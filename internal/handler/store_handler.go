package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/home-store/internal/auth"
	"github.com/prn-tf/home-store/internal/domain"
	"github.com/prn-tf/home-store/internal/repository"
	"github.com/prn-tf/home-store/internal/service"
)

// StoreHandler serves the landing page and the visitor's cart.
type StoreHandler struct {
	sessionService *service.SessionService
	cartService    *service.CartService
	renderer       *Renderer
	auth           auth.Config
	logger         zerolog.Logger
}

// NewStoreHandler creates a new store handler.
func NewStoreHandler(
	sessionService *service.SessionService,
	cartService *service.CartService,
	renderer *Renderer,
	authConfig auth.Config,
	logger zerolog.Logger,
) *StoreHandler {
	return &StoreHandler{
		sessionService: sessionService,
		cartService:    cartService,
		renderer:       renderer,
		auth:           authConfig,
		logger:         logger.With().Str("handler", "store").Logger(),
	}
}

// CartPageData contains cart page data.
type CartPageData struct {
	PageData
	Carts domain.Carts
}

// RegisterRoutes registers store routes.
func (h *StoreHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Get(cartURL, h.handleCart)
	r.Post("/cart/add/{productID}", h.handleAddToCart)
}

func (h *StoreHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, r, http.StatusOK, pageIndex, &PageData{Title: "HOME - Home"})
}

func (h *StoreHandler) handleCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	carts, err := h.cartService.List(ctx, cartOwner(auth.GetAuthContext(ctx)))
	if err != nil {
		h.renderer.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		return
	}

	h.renderer.Render(w, r, http.StatusOK, pageCart, &CartPageData{
		PageData: PageData{Title: "HOME - Cart"},
		Carts:    carts,
	})
}

func (h *StoreHandler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		h.renderer.Error(w, r, http.StatusNotFound, "Product not found")
		return
	}

	quantity := 1
	if raw := r.PostFormValue("quantity"); raw != "" {
		quantity, err = strconv.Atoi(raw)
		if err != nil {
			quantity = 0
		}
	}

	authCtx := auth.GetAuthContext(ctx)
	if authCtx.Session == nil {
		// Only a cart that will get a row needs a session key to hang on.
		if err := h.cartService.CheckAddition(ctx, productID, quantity); err != nil {
			h.renderAddError(w, r, err)
			return
		}

		session, err := h.sessionService.Start(ctx)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to start anonymous session")
			h.renderer.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
			return
		}
		auth.SetSessionCookie(w, h.auth, session)
		authCtx = &auth.AuthContext{Session: session}
	}

	if _, err := h.cartService.AddProduct(ctx, cartOwner(authCtx), productID, quantity); err != nil {
		h.renderAddError(w, r, err)
		return
	}

	addFlash(r, FlashSuccess, "Product added to cart")
	redirect(w, r, localReferer(r, cartURL))
}

func (h *StoreHandler) renderAddError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		h.renderer.Error(w, r, http.StatusNotFound, "Product not found")
	case errors.Is(err, service.ErrInvalidQuantity):
		h.renderer.Error(w, r, http.StatusBadRequest, "Invalid quantity")
	default:
		h.renderer.Error(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
	}
}

// cartOwner keys the cart by user when the session is authenticated and by
// session key otherwise.
func cartOwner(authCtx *auth.AuthContext) repository.CartOwner {
	switch {
	case authCtx.IsAuthenticated():
		id := authCtx.User.ID
		return repository.CartOwner{UserID: &id}
	case authCtx.Session.IsAuthenticated():
		id := *authCtx.Session.UserID
		return repository.CartOwner{UserID: &id}
	}
	return repository.CartOwner{SessionKey: authCtx.SessionKey()}
}
