package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited gates every call of the wrapped client through one shared limiter,
// so extraction workers and the judge fan-out stay under the account's request rate.
type RateLimited struct {
	next    Client
	limiter *rate.Limiter
}

// WithRateLimit wraps c with a requests-per-minute limit. rpm <= 0 returns c unchanged.
func WithRateLimit(c Client, rpm int) Client {
	if rpm <= 0 {
		return c
	}
	return &RateLimited{
		next:    c,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

func (r *RateLimited) Complete(ctx context.Context, req Request) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.Complete(ctx, req)
}
