package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/plantcare/internal/logging"
)

// Counter counts hits on a key inside a fixed window.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type redisCounter struct {
	client *redis.Client
}

// NewRedisCounter counts with INCR and EXPIRE in one pipeline. A nil client
// yields a nil Counter.
func NewRedisCounter(client *redis.Client) Counter {
	if client == nil {
		return nil
	}
	return &redisCounter{client: client}
}

func (c *redisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

type RateLimiter struct {
	counter  Counter
	limit    int64
	window   time.Duration
	prefix   string
	keyFunc  func(*http.Request) string
	failOpen bool
	now      func() time.Time
}

// NewRateLimiter limits requests per key. keyFunc may return "" to fall back
// to the client IP. When the counter is nil or fails, requests are allowed
// if failOpen is set and rejected with 503 otherwise.
func NewRateLimiter(counter Counter, limit int64, window time.Duration, prefix string, keyFunc func(*http.Request) string, failOpen bool) *RateLimiter {
	return &RateLimiter{
		counter:  counter,
		limit:    limit,
		window:   window,
		prefix:   prefix,
		keyFunc:  keyFunc,
		failOpen: failOpen,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.counter == nil {
			rl.unavailable(w, r, next)
			return
		}

		key := ""
		if rl.keyFunc != nil {
			key = rl.keyFunc(r)
		}
		if key == "" {
			key = GetClientIP(r)
		}

		count, err := rl.counter.Hit(r.Context(), rl.prefix+key, rl.window)
		if err != nil {
			logging.FromContext(r.Context()).Warn("Rate limit check failed", map[string]interface{}{
				"error": err.Error(),
			})
			rl.unavailable(w, r, next)
			return
		}

		reset := rl.now().Truncate(rl.window).Add(rl.window)
		remaining := rl.limit - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset.Unix()))

		if count > rl.limit {
			retry := int64(reset.Sub(rl.now()).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) unavailable(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if rl.failOpen {
		next.ServeHTTP(w, r)
		return
	}
	writeError(w, http.StatusServiceUnavailable, "Rate limiting unavailable. Please try again later.")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// GetClientIP prefers proxy headers over the connection address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip, _, err := net.SplitHostPort(first); err == nil {
			return ip
		}
		return first
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
