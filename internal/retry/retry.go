// Package retry runs fallible operations again with exponential backoff.
//
// The pipeline treats the memory service and the model providers as flaky
// neighbors: one transient failure should never cost a whole observation.
// Callers wrap errors that can never succeed with Permanent so retrying
// stops early.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Config is one retry policy.
type Config struct {
	// MaxAttempts caps total attempts, the first one included.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps the growing backoff delay.
	MaxDelay time.Duration

	// Factor multiplies the delay after each failed attempt.
	Factor float64

	// Jitter spreads each delay over [0.5, 1.5) of its nominal value so
	// concurrent callers do not retry in lockstep.
	Jitter bool
}

// normalize fills unset fields with workable values.
func (c Config) normalize() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Factor <= 0 {
		c.Factor = 2
	}
	return c
}

// Result records how a retried operation went.
type Result struct {
	// Attempts is how many times the operation ran.
	Attempts int

	// Err is the last error seen, nil on success.
	Err error

	// Duration is wall time across all attempts and waits.
	Duration time.Duration
}

// Do runs op until it succeeds, returns a permanent error, the context
// ends, or the attempt budget is spent.
func Do(ctx context.Context, cfg Config, op func() error) Result {
	cfg = cfg.normalize()
	start := time.Now()
	var result Result

	delay := cfg.InitialDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result.Attempts = attempt

		if err := ctx.Err(); err != nil {
			result.Err = err
			break
		}

		err := op()
		result.Err = err
		if err == nil || IsPermanent(err) || attempt == cfg.MaxAttempts {
			break
		}

		sleep := delay
		if cfg.Jitter {
			sleep = time.Duration(float64(delay) * (0.5 + rand.Float64())) // #nosec G404 -- backoff jitter
		}
		select {
		case <-ctx.Done():
			result.Err = ctx.Err()
			result.Duration = time.Since(start)
			return result
		case <-time.After(sleep):
		}

		if delay = time.Duration(float64(delay) * cfg.Factor); delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	result.Duration = time.Since(start)
	return result
}

// DoWithValue is Do for operations that also produce a value. The value is
// whatever the final attempt returned.
func DoWithValue[T any](ctx context.Context, cfg Config, op func() (T, error)) (T, Result) {
	var value T
	result := Do(ctx, cfg, func() error {
		var err error
		value, err = op()
		return err
	})
	return value, result
}

// PermanentError marks an error that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Do stops after the current attempt. A nil err
// stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError anywhere in its
// chain.
func IsPermanent(err error) bool {
	var permanent *PermanentError
	return errors.As(err, &permanent)
}
