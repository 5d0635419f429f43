package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// sourceLimiters hands out one token-bucket limiter per source id so that
// fetch pressure against a single monitored site stays bounded regardless
// of how many fetch workers are running.
type sourceLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[uuid.UUID]*rate.Limiter
}

func newSourceLimiters(perSecond float64, burst int) *sourceLimiters {
	return &sourceLimiters{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[uuid.UUID]*rate.Limiter),
	}
}

func (l *sourceLimiters) wait(ctx context.Context, sourceID uuid.UUID) error {
	l.mu.Lock()
	limiter, ok := l.limiters[sourceID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[sourceID] = limiter
	}
	l.mu.Unlock()

	return limiter.Wait(ctx)
}
