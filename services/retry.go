// services/retry.go - Bounded exponential backoff for store writes
package services

import (
	"context"
	"time"

	"gfgchapter/config"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
)

// RetryPolicy re-runs a unit of work while it fails with a transient error.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64

	// Sleep waits between attempts. Nil means a ctx-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy is 3 attempts, 100ms doubling, capped at 1s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Factor:       2.0,
	}
}

// RetryPolicyFromConfig applies config overrides on top of the default policy.
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.Attempts > 0 {
		p.Attempts = cfg.Attempts
	}
	if cfg.InitialDelay > 0 {
		p.InitialDelay = cfg.InitialDelay
	}
	if cfg.MaxDelay > 0 {
		p.MaxDelay = cfg.MaxDelay
	}
	return p
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempt budget is spent. The last error is returned as fn produced it.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	b := &backoff.Backoff{
		Min:    p.InitialDelay,
		Max:    p.MaxDelay,
		Factor: p.Factor,
		Jitter: false,
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= attempts || !IsTransient(err) {
			return err
		}

		delay := b.Duration()
		storeRetries.WithLabelValues(op).Inc()
		logrus.WithFields(logrus.Fields{
			"component": "retry",
			"op":        op,
			"attempt":   attempt,
			"delay":     delay.String(),
			"error":     err.Error(),
		}).Warn("transient store failure, retrying")

		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
	}
}

// Retry is Do for work that produces a value.
func Retry[T any](ctx context.Context, p RetryPolicy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
