package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxAttempts is the attempt ceiling for a step.
const DefaultMaxAttempts = 5

// StepMetadata describes the current attempt of a step.
type StepMetadata struct {
	StepID    string
	Attempt   int // 1-based
	StartedAt time.Time
}

// Step is one unit of pipeline work. Returning a StepError controls retries:
// Fatal stops immediately, Retryable with RetryAfter sets the next delay.
// Any other error is retried with the default exponential backoff.
type Step func(ctx context.Context, meta StepMetadata) error

// Runner executes steps, re-invoking failed ones until they succeed, fail
// fatally or reach the attempt ceiling.
type Runner struct {
	maxAttempts int
	maxDelay    time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithMaxDelay caps every delay between attempts, including RetryAfter hints.
func WithMaxDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.maxDelay = d
	}
}

// WithLogger sets the logger used for retry notifications.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a step runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes step until it succeeds or the runner gives up, and returns the
// last error the step produced.
func (r *Runner) Run(ctx context.Context, stepID string, step Step) error {
	meta := StepMetadata{StepID: stepID}
	policy := &hintedBackOff{
		fallback: newDefaultBackOff(),
		maxDelay: r.maxDelay,
	}

	operation := func() error {
		meta.Attempt++
		meta.StartedAt = r.now()

		err := step(ctx, meta)
		if err == nil {
			return nil
		}

		var stepErr *StepError
		if errors.As(err, &stepErr) && stepErr.Kind == Fatal {
			return backoff.Permanent(err)
		}
		if meta.Attempt >= r.maxAttempts {
			return backoff.Permanent(err)
		}

		policy.hint, _ = RetryAfter(err)
		return err
	}

	notify := func(err error, next time.Duration) {
		r.logger.Warn("Step failed, retrying",
			"step", stepID,
			"attempt", meta.Attempt,
			"retry_in", next,
			"error", err,
		)
	}

	return backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify)
}

// newDefaultBackOff is used for retryable failures without a RetryAfter hint.
// Initial interval 500ms, max interval 10s; the attempt ceiling bounds total time.
func newDefaultBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// hintedBackOff prefers the delay suggested by the last classified failure
// and falls back to exponential backoff.
type hintedBackOff struct {
	fallback backoff.BackOff
	hint     time.Duration
	maxDelay time.Duration
}

func (b *hintedBackOff) NextBackOff() time.Duration {
	next := b.fallback.NextBackOff()
	if next == backoff.Stop {
		return backoff.Stop
	}
	if b.hint > 0 {
		next = b.hint
	}
	if b.maxDelay > 0 && next > b.maxDelay {
		next = b.maxDelay
	}
	return next
}

func (b *hintedBackOff) Reset() {
	b.fallback.Reset()
	b.hint = 0
}
