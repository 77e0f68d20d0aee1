// Package retry runs an attempt function under a bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/marwan562/provisioning-bridge/internal/failure"
)

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	// Jitter is the randomization factor applied to each delay, 0 disables it.
	Jitter float64
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		Multiplier:  2,
		MaxDelay:    2 * time.Second,
	}
}

type Policy struct {
	cfg    Config
	logger *slog.Logger
}

func NewPolicy(cfg Config, logger *slog.Logger) *Policy {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{cfg: cfg, logger: logger}
}

// Execute calls attempt until it succeeds, returns a non-transient failure,
// or MaxAttempts is reached. A breaker-open failure stops retrying at once and
// is returned as is. Exhaustion and an expired ctx both return a transient
// failure.
func Execute[T any](ctx context.Context, p *Policy, attempt func(context.Context) (T, error)) (T, error) {
	eb := &backoff.ExponentialBackOff{
		InitialInterval:     p.cfg.BaseDelay,
		RandomizationFactor: p.cfg.Jitter,
		Multiplier:          p.cfg.Multiplier,
		MaxInterval:         p.cfg.MaxDelay,
	}
	eb.Reset()

	n := 0
	op := func() (T, error) {
		n++
		res, err := attempt(ctx)
		if err == nil {
			return res, nil
		}
		if !failure.IsTransient(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(p.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.logger.Warn("attempt failed, retrying", "attempt", n, "next_delay", next, "error", err)
		}),
	)
	if err == nil {
		return res, nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	var fe *failure.Error
	if !errors.As(err, &fe) && ctx.Err() != nil {
		err = failure.Transient("retry.Execute", err)
	}
	return res, err
}
