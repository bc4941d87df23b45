package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/mindstorm-criteria-engine/internal/domain"
)

const maxTrackedClients = 10000

// RateLimiter hands out a token bucket per client IP. The least recently seen clients
// are forgotten once maxTrackedClients is reached.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	clients *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter creates a limiter allowing requestsPerSecond per client with the given burst.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	clients, err := lru.New[string, *rate.Limiter](maxTrackedClients)
	if err != nil {
		// Only reachable with a non-positive size
		panic(err)
	}
	return &RateLimiter{
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
		clients: clients,
	}
}

// Allow consumes a token for client and reports whether the request may proceed.
func (r *RateLimiter) Allow(client string) bool {
	return r.limiter(client).Allow()
}

func (r *RateLimiter) limiter(client string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.clients.Get(client); ok {
		return l
	}
	l := rate.NewLimiter(r.limit, r.burst)
	r.clients.Add(client, l)
	return l
}

// Middleware rejects requests over the client's budget with 429.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	retryAfter := "1"
	if r.limit > 0 {
		retryAfter = strconv.Itoa(int(math.Ceil(1 / float64(r.limit))))
	}

	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewServiceError(
				domain.ErrRateLimit, "Too many requests", "", c.GetString(CorrelationIDKey)))
			return
		}
		c.Next()
	}
}
