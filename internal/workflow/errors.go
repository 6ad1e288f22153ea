// Package workflow runs pipeline steps and carries the fatal/retryable error
// taxonomy steps use to tell the runner whether another attempt makes sense.
package workflow

import (
	"errors"
	"fmt"
	"time"
)

// Kind tells the step host what to do with a failed step.
type Kind int

const (
	// Retryable means the step may be attempted again, optionally after RetryAfter.
	Retryable Kind = iota
	// Fatal means no further attempts should be made.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Fatal:
		return "fatal"
	case Retryable:
		return "retryable"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// StepError is the classified failure of a step.
type StepError struct {
	Kind       Kind
	Reason     string
	RetryAfter time.Duration // Suggested delay; zero means the host's default backoff
	Err        error
}

// NewFatal returns a fatal StepError wrapping err.
func NewFatal(reason string, err error) *StepError {
	return &StepError{Kind: Fatal, Reason: reason, Err: err}
}

// NewRetryable returns a retryable StepError wrapping err.
func NewRetryable(reason string, retryAfter time.Duration, err error) *StepError {
	return &StepError{Kind: Retryable, Reason: reason, RetryAfter: retryAfter, Err: err}
}

func (e *StepError) Error() string {
	return e.Reason
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a fatal classification.
func IsFatal(err error) bool {
	var stepErr *StepError
	return errors.As(err, &stepErr) && stepErr.Kind == Fatal
}

// RetryAfter returns the delay suggested by err's classification, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) && stepErr.Kind == Retryable && stepErr.RetryAfter > 0 {
		return stepErr.RetryAfter, true
	}
	return 0, false
}
