package backend

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds the token-bucket settings shared by all calls of a
// session.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate (tokens added per second).
	RequestsPerSecond float64
	// Burst is the maximum number of calls allowed in a burst.
	Burst int
}

func (c RateLimitConfig) limiter() *rate.Limiter {
	if c.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := c.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.RequestsPerSecond), burst)
}

type rateLimitedLister struct {
	next    Lister
	limiter *rate.Limiter
}

func (l *rateLimitedLister) ListPage(ctx context.Context, method string, args map[string]any) (map[string]any, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.ListPage(ctx, method, args)
}

type rateLimitedMutator struct {
	next    Mutator
	limiter *rate.Limiter
}

func (m *rateLimitedMutator) Mutate(ctx context.Context, op MutationOp, entries []Entry) ([]EntryFailure, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return m.next.Mutate(ctx, op, entries)
}

// RateLimited wraps both capabilities of s behind one shared limiter.
func RateLimited(s Session, cfg RateLimitConfig) Session {
	lim := cfg.limiter()
	s.Lister = &rateLimitedLister{next: s.Lister, limiter: lim}
	s.Mutator = &rateLimitedMutator{next: s.Mutator, limiter: lim}
	return s
}
