package middleware

import (
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// IPRateLimiter is an explicitly constructed per-IP token-bucket limiter.
// Each route group gets its own instance; there is no process-wide registry.
type IPRateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
	window   time.Duration
	message  string
	log      *zap.Logger
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter allows max requests per window for each client IP, with
// burst capacity equal to max.
func NewIPRateLimiter(max int, window time.Duration, message string, logger *zap.Logger) *IPRateLimiter {
	l := &IPRateLimiter{
		rps:     rate.Limit(float64(max) / window.Seconds()),
		burst:   max,
		window:  window,
		message: message,
		log:     logger,
	}
	go l.cleanupVisitors()
	return l
}

func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	if v, ok := l.visitors.Load(ip); ok {
		vi := v.(*visitor)
		vi.lastSeen = time.Now()
		return vi.limiter
	}
	lim := rate.NewLimiter(l.rps, l.burst)
	l.visitors.Store(ip, &visitor{limiter: lim, lastSeen: time.Now()})
	return lim
}

func (l *IPRateLimiter) cleanupVisitors() {
	for {
		time.Sleep(time.Minute)
		cutoff := time.Now().Add(-2 * l.window)
		l.visitors.Range(func(k, v interface{}) bool {
			if v.(*visitor).lastSeen.Before(cutoff) {
				l.visitors.Delete(k)
			}
			return true
		})
	}
}

func (l *IPRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := clientIP(c)
		if !l.getLimiter(ip).Allow() {
			l.log.Warn("rate limit exceeded",
				zap.String("ip", ip), zap.String("path", c.Path()))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":    false,
				"error":      "RATE_LIMITED",
				"message":    l.message,
				"retryAfter": time.Now().Add(l.window),
			})
		}
		return c.Next()
	}
}

func clientIP(c *fiber.Ctx) string {
	ip := c.IP()
	if ip == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
