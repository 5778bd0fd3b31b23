// Package retry runs connection attempts with capped exponential backoff.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Policy bounds a retry loop. Attempts <= 0 retries until ctx ends.
type Policy struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// Default matches the startup behaviour of every service: ten tries,
// doubling from two seconds up to thirty.
var Default = Policy{Attempts: 10, Initial: 2 * time.Second, Max: 30 * time.Second}

// Do calls fn until it succeeds, the attempts run out or ctx is done.
// The last error from fn is returned when attempts run out.
func Do(ctx context.Context, log *slog.Logger, what string, p Policy, fn func(ctx context.Context) error) error {
	delay := p.Initial
	if delay <= 0 {
		delay = time.Second
	}
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.Attempts > 0 && attempt >= p.Attempts {
			return err
		}
		if log != nil {
			log.Warn(what+" failed, retrying",
				slog.Any("err", err),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", p.Attempts),
				slog.Duration("retry_in", delay),
			)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if p.Max > 0 && delay > p.Max {
			delay = p.Max
		}
	}
}

// IsCancelled reports whether err came from a cancelled or expired context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
