package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/tea-tech/simple-inventory/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// window tracks request counts per client IP within a sliding window.
type window struct {
	count int
	until time.Time
	mu    sync.Mutex
}

type limiter struct {
	mu      sync.Mutex
	clients map[string]*window
}

func newLimiter() *limiter {
	return &limiter{clients: make(map[string]*window)}
}

func (l *limiter) entry(ip string) *window {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.clients[ip]
	if !ok {
		w = &window{}
		l.clients[ip] = w
	}
	return w
}

func (l *limiter) purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	purged := 0
	for ip, w := range l.clients {
		w.mu.Lock()
		if now.After(w.until) {
			delete(l.clients, ip)
			purged++
		}
		w.mu.Unlock()
	}
	return purged
}

var (
	loginLimiter = newLimiter()
	apiLimiter   = newLimiter()
)

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return limit(loginLimiter, 20, time.Minute, "too many login attempts, try again in a minute")
}

// RateLimiter returns a general-purpose sliding-window rate limiter.
func RateLimiter(max int, span time.Duration) gin.HandlerFunc {
	return limit(apiLimiter, max, span, "too many requests, slow down")
}

func limit(l *limiter, max int, span time.Duration, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		w := l.entry(c.ClientIP())

		w.mu.Lock()
		now := time.Now()
		if now.After(w.until) {
			w.count = 0
			w.until = now.Add(span)
		}
		w.count++
		over := w.count > max
		retryAt := w.until
		w.mu.Unlock()

		if over {
			c.Header("Retry-After", retryAt.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// Expired windows are purged periodically so IPs that never return do not
// accumulate.
const purgeInterval = 5 * time.Minute

func init() {
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for range ticker.C {
			now := time.Now()
			purged := loginLimiter.purge(now) + apiLimiter.purge(now)
			if purged > 0 {
				log.Debug().Int("purged", purged).Msg("rate limiter windows purged")
			}
		}
	}()
}
