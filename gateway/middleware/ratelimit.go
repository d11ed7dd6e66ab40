package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit bounds request throughput per client.
type RateLimit struct {
	RequestsPerMinute float64
	Burst             int
}

// RateLimiter tracks a token bucket per client identifier. Idle clients are
// evicted after a few minutes to keep the map bounded.
type RateLimiter struct {
	logger *slog.Logger
	limit  RateLimit

	mu       sync.Mutex
	visitors map[string]*rate.Limiter
}

func NewRateLimiter(limit RateLimit, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		logger:   logger,
		limit:    limit,
		visitors: make(map[string]*rate.Limiter),
	}
}

// Middleware rejects requests exceeding the per-client budget with 429.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		identifier := clientID(req)
		if !r.obtainLimiter(identifier).Allow() {
			r.logger.Warn("rate limited", "client", identifier, "path", req.URL.Path)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *RateLimiter) obtainLimiter(id string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	limiter, ok := r.visitors[id]
	if ok {
		return limiter
	}
	perSecond := r.limit.RequestsPerMinute / 60.0
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := r.limit.Burst
	if burst <= 0 {
		burst = 1
	}
	limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	r.visitors[id] = limiter
	go r.evict(id)
	return limiter
}

func (r *RateLimiter) evict(id string) {
	timer := time.NewTimer(5 * time.Minute)
	defer timer.Stop()
	<-timer.C
	r.mu.Lock()
	delete(r.visitors, id)
	r.mu.Unlock()
}

func clientID(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		first := ip
		if comma := strings.IndexByte(ip, ','); comma > 0 {
			first = strings.TrimSpace(ip[:comma])
		}
		if parsed := net.ParseIP(first); parsed != nil {
			return parsed.String()
		}
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
