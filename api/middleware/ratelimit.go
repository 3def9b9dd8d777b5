package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/complyscan/config"
	"github.com/use-agent/complyscan/models"
)

const (
	bucketIdle  = time.Hour
	bucketSweep = 5 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// buckets holds one token bucket per caller identity.
type buckets struct {
	mu    sync.Mutex
	m     map[string]*bucket
	limit rate.Limit
	burst int
}

func (b *buckets) get(identity string, now time.Time) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.m[identity]
	if !ok {
		e = &bucket{limiter: rate.NewLimiter(b.limit, b.burst)}
		b.m[identity] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (b *buckets) sweep(cutoff time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, e := range b.m {
		if e.lastSeen.Before(cutoff) {
			delete(b.m, id)
		}
	}
}

// RateLimit applies a token bucket per API key, or per client IP for
// unauthenticated callers. Rejected requests get 429 with Retry-After.
// Idle buckets are swept until ctx is done.
func RateLimit(ctx context.Context, cfg config.RateLimitConfig) gin.HandlerFunc {
	b := &buckets{
		m:     make(map[string]*bucket),
		limit: rate.Limit(cfg.RequestsPerSecond),
		burst: cfg.Burst,
	}

	go func() {
		ticker := time.NewTicker(bucketSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				b.sweep(now.Add(-bucketIdle))
			}
		}
	}()

	return func(c *gin.Context) {
		identity := c.GetString(APIKeyContextKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		if !b.get(identity, time.Now()).Allow() {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(cfg.RequestsPerSecond)))
			abort(c, http.StatusTooManyRequests, models.ErrKindRateLimited, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

// retryAfterSeconds is the time for one token to refill, at least 1s.
func retryAfterSeconds(rps float64) int {
	if rps <= 0 {
		return 60
	}
	return max(int(math.Ceil(1/rps)), 1)
}
