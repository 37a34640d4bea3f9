package publishers

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/time/rate"
)

// rateLimited delays Publish so a sink sees at most rps messages per second.
type rateLimited struct {
	Publisher
	limiter *rate.Limiter
}

// WithRateLimit wraps pub with a token bucket. rps <= 0 returns pub unchanged.
func WithRateLimit(pub Publisher, rps float64, burst int) Publisher {
	if pub == nil || rps <= 0 {
		return pub
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimited{Publisher: pub, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *rateLimited) Publish(ctx context.Context, n Notification) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return r.Publisher.Publish(ctx, n)
}

func (r *rateLimited) Close() error {
	if c, ok := r.Publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
