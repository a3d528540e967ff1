package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/curator/internal/core/domain"
)

// RateLimiter enforces a per-client request budget across the serving
// surfaces. Clients are identified by an opaque caller-supplied key.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	lastSeen time.Duration
}

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter allows requestsPerMinute sustained requests per
// client with the given burst.
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if burst <= 0 {
		burst = requestsPerMinute
	}
	return &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		limit:    rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    burst,
		lastSeen: 10 * time.Minute,
	}
}

// Allow reports whether the client may proceed, returning
// ErrRateLimited otherwise. Unknown clients start with a full bucket.
func (r *RateLimiter) Allow(clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cl, ok := r.clients[clientID]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[clientID] = cl
	}
	cl.seen = time.Now()

	r.evictStale()

	if !cl.limiter.Allow() {
		return domain.ErrRateLimited
	}
	return nil
}

// evictStale drops limiters for clients idle past the retention
// window. Caller holds the mutex.
func (r *RateLimiter) evictStale() {
	cutoff := time.Now().Add(-r.lastSeen)
	for id, cl := range r.clients {
		if cl.seen.Before(cutoff) {
			delete(r.clients, id)
		}
	}
}
