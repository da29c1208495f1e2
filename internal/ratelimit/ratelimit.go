// Package ratelimit enforces per-client request budgets. Each key gets a token
// bucket that holds up to the request count and refills it once per window.
// A nil Limiter allows everything.
package ratelimit

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/cinestream/cinestream/pkg/apperr"
	"github.com/cinestream/cinestream/pkg/logger"
	"github.com/cinestream/cinestream/pkg/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Message is the body returned with a 429.
const Message = "Too many requests, please try again later."

type visitor struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

type Limiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	requests  int
	window    time.Duration
	every     rate.Limit
	lastSweep time.Time
	now       func() time.Time
}

// New returns a limiter allowing requests per window for each key, or nil when
// requests is not positive.
func New(requests int, window time.Duration) *Limiter {
	if requests <= 0 || window <= 0 {
		return nil
	}
	return &Limiter{
		visitors: make(map[string]*visitor),
		requests: requests,
		window:   window,
		every:    rate.Every(window / time.Duration(requests)),
		now:      time.Now,
	}
}

// Allow spends one token for key. When the bucket is empty it returns false
// and how long until a token is available.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{bucket: rate.NewLimiter(l.every, l.requests)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	r := v.bucket.ReserveN(now, 1)
	if !r.OK() {
		return false, l.window
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Remaining reports the whole tokens left for key.
func (l *Limiter) Remaining(key string) int {
	if l == nil {
		return math.MaxInt
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[key]
	if !ok {
		return l.requests
	}
	return int(v.bucket.TokensAt(l.now()))
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// sweep drops buckets idle for a full window; they would be full again anyway.
// Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.window {
			delete(l.visitors, key)
		}
	}
	l.lastSweep = now
}

// Middleware rejects requests over the per-IP budget with 429 and a
// Retry-After header. scope separates budgets that share a client IP.
func Middleware(l *Limiter, scope string) gin.HandlerFunc {
	log := logger.WithContext("component", "ratelimit")
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		key := scope + ":" + c.ClientIP()
		ok, retryAfter := l.Allow(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.requests))
		if !ok {
			secs := int((retryAfter + time.Second - 1) / time.Second)
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(secs))
			metrics.RateLimited.WithLabelValues(scope).Inc()
			log.Warn("rate_limited", "scope", scope, "client_ip", c.ClientIP(), "retry_after_s", secs)
			apperr.Respond(c, apperr.TooManyRequests(Message))
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(key)))
		c.Next()
	}
}
