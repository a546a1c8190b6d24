package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/thesecretlab-dev/zeroid/internal/apperr"
)

// RateLimit enforces spec.md §5's per-API-key request budget: a
// 100-request bucket refilling over 60 seconds, keyed by the caller's
// bearer token so one noisy client can't starve another. Must run
// after Auth so APIKeyFromContext is populated.
func RateLimit(requestsPerMinute int, burst int) func(http.Handler) http.Handler {
	limiters := &limiterSet{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    burst,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := APIKeyFromContext(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}
			if !limiters.forKey(key).Allow() {
				writeAuthError(w, r, apperr.New(apperr.KindRateLimit, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// limiterSet lazily allocates one token bucket per key.
type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func (s *limiterSet) forKey(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(s.rate, s.burst)
		s.limiters[key] = l
	}
	return l
}
