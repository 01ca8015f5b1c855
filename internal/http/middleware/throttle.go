package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/fisioagenda/scheduling-platform/internal/session"
)

// SubmitThrottle bounds booking submissions per acting account using a token
// bucket. Availability reads are cheap and stay unthrottled; this only wraps
// the mutating routes so a stuck client cannot hammer the backend with
// create/reschedule calls.
type SubmitThrottle struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int
}

type bucket struct {
	tokens   float64
	lastTime time.Time
}

// NewSubmitThrottle allows rate submissions/sec with the given burst per
// account.
func NewSubmitThrottle(rate float64, burst int) *SubmitThrottle {
	st := &SubmitThrottle{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
	}
	go st.cleanup()
	return st
}

// Allow reports whether the account may submit another booking now.
func (st *SubmitThrottle) Allow(key string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	b, ok := st.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(st.burst), lastTime: now}
		st.buckets[key] = b
	}

	elapsed := now.Sub(b.lastTime).Seconds()
	b.tokens += elapsed * st.rate
	if b.tokens > float64(st.burst) {
		b.tokens = float64(st.burst)
	}
	b.lastTime = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (st *SubmitThrottle) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		st.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for key, b := range st.buckets {
			if b.lastTime.Before(cutoff) {
				delete(st.buckets, key)
			}
		}
		st.mu.Unlock()
	}
}

// Middleware rejects over-limit submissions with 429. Keyed by the session
// account when present, the remote IP otherwise, so unauthenticated traffic
// shares one bucket per source address.
func (st *SubmitThrottle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if xri := r.Header.Get("X-Real-Ip"); xri != "" {
			key = xri
		}
		if acct, ok := session.FromContext(r.Context()); ok {
			key = "acct:" + acct.ID
		}
		if !st.Allow(key) {
			http.Error(w, "too many booking attempts", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
