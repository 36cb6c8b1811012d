package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/util"
)

const (
	limiterEntryTTL        = 15 * time.Minute
	limiterCleanupInterval = 5 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a per-client token bucket allowing n requests per window, with bursts
// up to n. Idle clients are forgotten after a while.
type Limiter struct {
	mu          sync.Mutex
	limit       rate.Limit
	burst       int
	window      time.Duration
	entries     map[string]*limiterEntry
	lastCleanup time.Time
	now         func() time.Time
}

func NewLimiter(n int, window time.Duration) *Limiter {
	return &Limiter{
		limit:       rate.Every(window / time.Duration(n)),
		burst:       n,
		window:      window,
		entries:     make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (l *Limiter) Allow(key string) bool {
	if l == nil || key == "" {
		return true
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastCleanup) >= limiterCleanupInterval {
		ttl := max(limiterEntryTTL, l.window)
		for k, entry := range l.entries {
			if now.Sub(entry.lastSeen) > ttl {
				delete(l.entries, k)
			}
		}
		l.lastCleanup = now
	}

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// RateLimit rejects clients exceeding n requests per window with 429. A non-positive
// n disables the limit.
func RateLimit(n int, window time.Duration, message string) func(http.Handler) http.Handler {
	if n <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return RateLimitWith(NewLimiter(n, window), message)
}

func RateLimitWith(l *Limiter, message string) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(max(time.Second, l.window/time.Duration(l.burst)).Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(util.ClientIP(r)) {
				w.Header().Set("Retry-After", retryAfter)
				resp.WriteTooManyRequests(w, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
