package ratelimit

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// Config holds the limiter settings.
type Config struct {
	// Limit is the sustained rate in requests per second.
	Limit float64
	// Burst is the bucket size.
	Burst int
}

// IPLimiter hands out one token bucket per client IP.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewIPLimiter creates an empty per-IP limiter.
func NewIPLimiter(cfg Config) *IPLimiter {
	return &IPLimiter{
		visitors: make(map[string]*rate.Limiter),
		limit:    rate.Limit(cfg.Limit),
		burst:    cfg.Burst,
	}
}

// Get returns the limiter for ip, creating it on first use.
func (l *IPLimiter) Get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.visitors[ip]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.visitors[ip] = limiter
	}
	return limiter
}

// New creates a middleware rejecting requests over the per-IP budget with 429.
func New(cfg Config) fiber.Handler {
	limiter := NewIPLimiter(cfg)

	return func(c *fiber.Ctx) error {
		if !limiter.Get(c.IP()).Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please wait.",
			})
		}
		return c.Next()
	}
}
