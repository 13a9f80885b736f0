package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	resp := b.get("/")

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Body, "<title>HOME - Home</title>")
	// Browsing does not create a session.
	assert.Empty(t, b.sessionKey())
}

func TestAddToCart_AnonymousCreatesSession(t *testing.T) {
	env := newTestEnv(t)
	lamp := env.createProduct(t, "lamp", "40.00")
	b := env.newBrowser(t)

	resp := b.post(fmt.Sprintf("/cart/add/%d", lamp.ID), nil)
	require.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, cartURL, resp.Location)

	key := b.sessionKey()
	require.Len(t, key, 32)

	// A second add reuses the session and increments the row.
	resp = b.post(fmt.Sprintf("/cart/add/%d", lamp.ID), url.Values{"quantity": {"2"}})
	require.Equal(t, http.StatusFound, resp.Status)
	assert.Equal(t, key, b.sessionKey())

	carts := env.sessionCart(t, key)
	require.Len(t, carts, 1)
	assert.Equal(t, 3, carts[0].Quantity)

	page := b.get(cartURL)
	require.Equal(t, http.StatusOK, page.Status)
	assert.Contains(t, page.Body, "<title>HOME - Cart</title>")
	assert.Contains(t, page.Body, "Product added to cart")
	assert.Contains(t, page.Body, "Lamp")
	assert.Contains(t, page.Body, "120.00 $")
}

func TestAddToCart_AuthenticatedUsesUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	lamp := env.createProduct(t, "lamp", "40.00")

	b := env.newBrowser(t)
	b.login("alice")

	resp := b.post(fmt.Sprintf("/cart/add/%d", lamp.ID), nil)
	require.Equal(t, http.StatusFound, resp.Status)

	carts := env.userCart(t, alice.ID)
	require.Len(t, carts, 1)
	assert.Empty(t, carts[0].SessionKey)
}

func TestAddToCart_RedirectsToLocalReferer(t *testing.T) {
	env := newTestEnv(t)
	lamp := env.createProduct(t, "lamp", "40.00")
	b := env.newBrowser(t)

	tests := []struct {
		name    string
		referer string
		want    string
	}{
		{name: "same host", referer: env.server.URL + "/catalog/lamps?page=2", want: "/catalog/lamps?page=2"},
		{name: "other host", referer: "https://evil.example.com/", want: cartURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, env.server.URL+fmt.Sprintf("/cart/add/%d", lamp.ID), strings.NewReader(""))
			require.NoError(t, err)
			req.Header.Set("Referer", tt.referer)

			resp := b.do(req)
			require.Equal(t, http.StatusFound, resp.Status)
			assert.Equal(t, tt.want, resp.Location)
		})
	}
}

func TestAddToCart_Errors(t *testing.T) {
	env := newTestEnv(t)
	lamp := env.createProduct(t, "lamp", "40.00")

	tests := []struct {
		name       string
		path       string
		form       url.Values
		wantStatus int
	}{
		{name: "unknown product", path: "/cart/add/999", wantStatus: http.StatusNotFound},
		{name: "bad product id", path: "/cart/add/lamp", wantStatus: http.StatusNotFound},
		{name: "zero quantity", path: fmt.Sprintf("/cart/add/%d", lamp.ID), form: url.Values{"quantity": {"0"}}, wantStatus: http.StatusBadRequest},
		{name: "garbage quantity", path: fmt.Sprintf("/cart/add/%d", lamp.ID), form: url.Values{"quantity": {"many"}}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := env.newBrowser(t)
			resp := b.post(tt.path, tt.form)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Contains(t, resp.Body, "<title>HOME - Error</title>")
			// A rejected add does not start a session.
			assert.Empty(t, b.sessionKey())
		})
	}

	var sessions int
	require.NoError(t, env.db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM sessions`).Scan(&sessions))
	assert.Zero(t, sessions)
}

func TestCartPage_Empty(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	resp := b.get(cartURL)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Body, "Your cart is empty.")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	resp := b.get("/health")
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"status":"healthy"}`, resp.Body)

	require.NoError(t, env.db.Close())
	resp = b.get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.JSONEq(t, `{"status":"unhealthy"}`, resp.Body)
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	b := env.newBrowser(t)

	resp := b.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, resp.Status)
}
