package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Policy is a reusable exponential backoff policy applied uniformly to every
// external provider call. Zero fields fall back to sane defaults.
type Policy struct {
	// MaxAttempts caps total attempts, including the first one.
	MaxAttempts int
	// Base is the delay before the first retry.
	Base time.Duration
	// Max caps the delay between retries.
	Max time.Duration
	// Multiplier scales the delay after each retry.
	Multiplier float64
	// Retryable decides whether an error is worth retrying. When nil every
	// error is retried.
	Retryable func(error) bool
}

// Default mirrors the provider-call policy used throughout the pipeline:
// up to 3 attempts, 200ms base delay, doubling, capped at 2s.
func Default() Policy {
	return Policy{MaxAttempts: 3, Base: 200 * time.Millisecond, Max: 2 * time.Second, Multiplier: 2}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Base <= 0 {
		p.Base = 200 * time.Millisecond
	}
	if p.Max <= 0 {
		p.Max = 2 * time.Second
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	return p
}

// Do runs fn, retrying per the policy while the error is retryable. The last
// error is returned once attempts are exhausted or ctx is done.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	p = p.normalized()

	var err error
	delay := p.Base
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter(delay)):
		}
		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.Max {
			delay = p.Max
		}
	}
	return err
}

// jitter spreads retries out to avoid thundering herds against rate limits.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := int64(d / 2)
	return time.Duration(half + rand.Int63n(half+1))
}
