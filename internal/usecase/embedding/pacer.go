package embedding

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer inserts backpressure delays between batch groups. Injectable so
// pacing behavior is testable without real time passing.
type Pacer interface {
	Wait(ctx context.Context) error
}

// tokenBucketPacer paces via a token bucket instead of raw sleeps.
type tokenBucketPacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a token-bucket pacer releasing one group per interval.
func NewPacer(interval time.Duration) Pacer {
	return &tokenBucketPacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *tokenBucketPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

type nopPacer struct{}

func (nopPacer) Wait(context.Context) error { return nil }

// NopPacer returns a pacer that never waits. For tests and unpaced callers.
func NopPacer() Pacer { return nopPacer{} }
