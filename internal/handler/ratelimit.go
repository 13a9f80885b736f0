package handler

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles form submissions per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	ttl      time.Duration
	renderer *Renderer

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewRateLimiter creates a limiter allowing rps requests per second with
// the given burst per client. Entries idle for longer than ttl are dropped.
func NewRateLimiter(rps float64, burst int, ttl time.Duration, renderer *Renderer) *RateLimiter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	rl := &RateLimiter{
		clients:  make(map[string]*limiterEntry),
		rate:     rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		renderer: renderer,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	if rl == nil {
		return
	}
	close(rl.stopChan)
	<-rl.doneChan
}

func (rl *RateLimiter) cleanupLoop() {
	defer close(rl.doneChan)

	ticker := time.NewTicker(rl.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, e := range rl.clients {
				if now.Sub(e.lastSeen) > rl.ttl {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow reports whether a request from ip may proceed now.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	entry, ok := rl.clients[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[ip] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

// Middleware rejects throttled requests with 429. A nil limiter lets every
// request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			if rl.renderer != nil {
				rl.renderer.Error(w, r, http.StatusTooManyRequests, "Too many attempts. Please wait a moment and try again.")
				return
			}
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr, which chi's RealIP middleware
// has already replaced with the forwarded address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
