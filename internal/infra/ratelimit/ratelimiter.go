package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter blocks until the next outbound request may be sent.
type Limiter interface {
	Wait(ctx context.Context) error
}

// New returns a token bucket limiter, or an unlimited one when r is not
// positive.
func New(r float64, burst int) Limiter {
	if r <= 0 {
		return Unlimited{}
	}
	if burst < 1 {
		burst = 1
	}
	return &tokenBucket{limiter: rate.NewLimiter(rate.Limit(r), burst)}
}

type tokenBucket struct {
	limiter *rate.Limiter
}

func (l *tokenBucket) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Unlimited never blocks.
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
