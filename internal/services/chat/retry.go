// File: internal/services/chat/retry.go
package chat

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/iyunix/go-gemchat/internal/services/ai"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy bounds the model call. Delays grow exponentially from
// BaseDelay without jitter: with the defaults the waits are 1s then 2s.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	// Retryable decides whether a failed attempt is tried again.
	Retryable func(error) bool
	Sleep     Sleeper
	// OnRetry is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func NewRetryPolicy(config *Config) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: config.MaxAttempts,
		BaseDelay:   config.BaseDelay,
		Multiplier:  config.Multiplier,
		Retryable:   ai.IsTransient,
		Sleep:       sleepContext,
	}
}

func (p *RetryPolicy) schedule() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Delays lists the waits between attempts, MaxAttempts-1 of them.
func (p *RetryPolicy) Delays() []time.Duration {
	if p.MaxAttempts < 2 {
		return nil
	}
	b := p.schedule()
	delays := make([]time.Duration, 0, p.MaxAttempts-1)
	for i := 1; i < p.MaxAttempts; i++ {
		delays = append(delays, b.NextBackOff())
	}
	return delays
}

// Do calls fn until it succeeds, fails with a non-retryable error, or the
// attempts run out. On exhaustion the last error is returned.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) (string, error)) (string, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = ai.IsTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	b := p.schedule()
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(err) || attempt == p.MaxAttempts {
			break
		}

		delay := b.NextBackOff()
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	if lastErr == nil {
		return "", ErrRetriesExhausted
	}
	return "", lastErr
}
