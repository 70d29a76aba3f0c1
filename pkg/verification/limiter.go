package verification

import (
	"sync"

	"golang.org/x/time/rate"
)

// SendLimiter throttles code sends per destination so the endpoint cannot be
// used to spam a mailbox.
type SendLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex

	limit rate.Limit
	burst int
}

// NewSendLimiter creates a limiter allowing perMinute sends per destination
// with the given burst.
func NewSendLimiter(perMinute float64, burst int) *SendLimiter {
	return &SendLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perMinute / 60),
		burst:    burst,
	}
}

// Allow reports whether a send to the destination is currently permitted.
func (l *SendLimiter) Allow(destination string) bool {
	return l.getLimiter(destination).Allow()
}

func (l *SendLimiter) getLimiter(destination string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[destination]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check in case another goroutine created it
	if limiter, exists := l.limiters[destination]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.limit, l.burst)
	l.limiters[destination] = limiter
	return limiter
}
