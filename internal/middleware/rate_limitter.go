package middleware

import (
	"ProctorGolang/pkg/handlerUtil"
	"ProctorGolang/pkg/response"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	ErrTooManyRequests = response.NewError(http.StatusTooManyRequests, "too many requests")
)

// Buckets untouched for idleTTL are dropped on the next sweep.
const (
	idleTTL       = 10 * time.Minute
	sweepInterval = time.Minute
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(limit rate.Limit, burst int) *rateLimiter {
	return &rateLimiter{
		buckets: make(map[string]*clientBucket),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

// reserve reports whether ip may proceed and, if not, how long it should wait.
func (r *rateLimiter) reserve(ip string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= sweepInterval {
		for key, b := range r.buckets {
			if now.Sub(b.lastSeen) >= idleTTL {
				delete(r.buckets, key)
			}
		}
		r.lastSweep = now
	}

	b, ok := r.buckets[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.buckets[ip] = b
	}
	b.lastSeen = now

	if b.limiter.AllowN(now, 1) {
		return true, 0
	}

	wait := time.Second
	if r.limit > 0 {
		wait = time.Duration(float64(time.Second) / float64(r.limit))
	}
	return false, wait
}

func (r *rateLimiter) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

func (m *middleware) NewRateLimiter(ctx *fiber.Ctx) error {
	clientIP := ctx.IP()

	allowed, wait := m.rateLimitter.reserve(clientIP)
	if !allowed {
		m.log.WithFields(logrus.Fields{
			"request_id": m.GetRequestID(ctx),
			"client_ip":  clientIP,
			"path":       ctx.Path(),
		}).Warn("Rate limit exceeded")

		seconds := int(wait.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))

		return ctx.Status(fiber.StatusTooManyRequests).JSON(handlerUtil.ErrorResponse{
			Error: ErrTooManyRequests.Error(),
			Code:  "TOO_MANY_REQUESTS",
		})
	}

	return ctx.Next()
}
