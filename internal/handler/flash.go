package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookieName = "messages"

// Flash levels.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-time notification shown on the next rendered page.
type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// flashBag holds the flashes carried in by the request cookie and those
// queued while handling it.
type flashBag struct {
	incoming []Flash
	pending  []Flash
}

type flashContextKey struct{}

// flashMiddleware decodes the messages cookie into the request context.
func flashMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bag := &flashBag{}
		if cookie, err := r.Cookie(flashCookieName); err == nil {
			bag.incoming = decodeFlashes(cookie.Value)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), flashContextKey{}, bag)))
	})
}

func flashesFrom(r *http.Request) *flashBag {
	if bag, ok := r.Context().Value(flashContextKey{}).(*flashBag); ok {
		return bag
	}
	return &flashBag{}
}

// addFlash queues a message for the next page shown to the visitor.
func addFlash(r *http.Request, level, message string) {
	bag := flashesFrom(r)
	bag.pending = append(bag.pending, Flash{Level: level, Message: message})
}

// redirect sends the visitor to target, persisting undisplayed flashes.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	bag := flashesFrom(r)
	all := append(append([]Flash{}, bag.incoming...), bag.pending...)
	if len(all) > 0 {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookieName,
			Value:    encodeFlashes(all),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// consumeFlashes returns every due flash and clears the cookie.
func consumeFlashes(w http.ResponseWriter, r *http.Request) []Flash {
	bag := flashesFrom(r)
	all := append(append([]Flash{}, bag.incoming...), bag.pending...)
	if len(bag.incoming) > 0 {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	bag.incoming, bag.pending = nil, nil
	return all
}

func encodeFlashes(flashes []Flash) string {
	data, err := json.Marshal(flashes)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// decodeFlashes ignores a tampered or truncated cookie.
func decodeFlashes(value string) []Flash {
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(data, &flashes); err != nil {
		return nil
	}
	return flashes
}
