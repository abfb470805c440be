package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ishpreet160/CertFlow/internal/apierror"
)

const purgeInterval = 5 * time.Minute

// ipEntry tracks requests per IP within a fixed window.
type ipEntry struct {
	count     int
	windowEnd time.Time
}

// windowLimiter counts requests per client IP. Expired entries are purged
// while serving requests, so no background goroutine is needed.
type windowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*ipEntry
	lastPurge time.Time
}

func newWindowLimiter(limit int, window time.Duration) *windowLimiter {
	return &windowLimiter{limit: limit, window: window, now: time.Now, entries: make(map[string]*ipEntry)}
}

// allow records a hit for ip and reports whether it is within the limit,
// together with the end of the current window.
func (l *windowLimiter) allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPurge) > purgeInterval {
		l.purge(now)
	}

	e, ok := l.entries[ip]
	if !ok || now.After(e.windowEnd) {
		e = &ipEntry{windowEnd: now.Add(l.window)}
		l.entries[ip] = e
	}
	e.count++
	return e.count <= l.limit, e.windowEnd
}

func (l *windowLimiter) purge(now time.Time) {
	purged := 0
	for ip, e := range l.entries {
		if now.After(e.windowEnd) {
			delete(l.entries, ip)
			purged++
		}
	}
	l.lastPurge = now
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(l.entries)).Msg("rate limiter entries purged")
	}
}

func (l *windowLimiter) handler(msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, windowEnd := l.allow(c.ClientIP())
		if !ok {
			retry := int(time.Until(windowEnd).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits credential endpoints (login, register, password
// reset) to 20 attempts per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return newWindowLimiter(20, time.Minute).handler("too many attempts, try again in a minute")
}

// RateLimiter returns a general-purpose per-IP rate limiter.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return newWindowLimiter(limit, window).handler("too many requests, try again shortly")
}
