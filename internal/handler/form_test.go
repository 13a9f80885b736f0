package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/user/profile", "/user/profile"},
		{"/user/profile?page=3", "/user/profile?page=3"},
		{"/user/logout", "/"},
		{"/user/logout?x=1", "/"},
		{"user/profile", "/"},
		{"//evil.example.com/x", "/"},
		{"/\\evil.example.com", "/"},
		{"https://evil.example.com/", "/"},
		{"javascript:alert(1)", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.next, func(t *testing.T) {
			assert.Equal(t, tt.want, safeNext(tt.next))
		})
	}
}

func TestForm_Validation(t *testing.T) {
	f := newForm()
	f.Values["username"] = "alice"
	f.Values["password"] = "   "

	f.Required("username", "password")
	assert.False(t, f.Valid())
	assert.Empty(t, f.Error("username"))
	assert.NotEmpty(t, f.Error("password"))

	// The first error recorded for a field wins.
	f.AddError("password", "second")
	assert.NotEqual(t, "second", f.Error("password"))

	f.Merge(map[string]string{"email": "bad email"})
	assert.Equal(t, "bad email", f.Error("email"))
}

func TestFlash_RoundTrip(t *testing.T) {
	flashes := []Flash{
		{Level: FlashSuccess, Message: "alice, you are now logged in"},
		{Level: FlashError, Message: "An error occurred; <b>really</b>"},
	}

	assert.Equal(t, flashes, decodeFlashes(encodeFlashes(flashes)))
	assert.Nil(t, decodeFlashes("%%%not-base64"))
	assert.Nil(t, decodeFlashes("bm90IGpzb24"))
}

func TestFlash_RedirectCarriesMessages(t *testing.T) {
	h := flashMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addFlash(r, FlashInfo, "hello")
		redirect(w, r, "/next")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, flashCookieName, cookies[0].Name)

	// The next request consumes and clears them.
	var got []Flash
	consume := flashMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = consumeFlashes(w, r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/next", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	consume.ServeHTTP(rec, req)

	assert.Equal(t, []Flash{{Level: FlashInfo, Message: "hello"}}, got)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Less(t, cleared[0].MaxAge, 0)
}
