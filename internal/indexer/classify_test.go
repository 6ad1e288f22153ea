package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bull/imgindex-server/internal/storage"
	"github.com/bull/imgindex-server/internal/workflow"
)

var stepStartedAt = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func attempt(n int) workflow.StepMetadata {
	return workflow.StepMetadata{StepID: "step_01", Attempt: n, StartedAt: stepStartedAt}
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil, attempt(1)))
}

func TestClassify_Table(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		attempt    int
		kind       workflow.Kind
		retryAfter time.Duration
		reason     string
	}{
		{
			name:       "rate limit text",
			err:        errors.New("rate limit exceeded"),
			attempt:    1,
			kind:       workflow.Retryable,
			retryAfter: time.Minute,
			reason:     "search index rate limited: rate limit exceeded",
		},
		{
			name:       "429 below attempt ceiling",
			err:        errors.New("HTTP 429 Too Many Requests"),
			attempt:    4,
			kind:       workflow.Retryable,
			retryAfter: time.Minute,
			reason:     "search index rate limited: HTTP 429 Too Many Requests",
		},
		{
			name:       "quota",
			err:        errors.New("monthly quota reached"),
			attempt:    2,
			kind:       workflow.Retryable,
			retryAfter: time.Minute,
		},
		{
			name:       "rate limit wins over attempt exhaustion",
			err:        errors.New("429"),
			attempt:    5,
			kind:       workflow.Retryable,
			retryAfter: time.Minute,
		},
		{
			name:       "timeout",
			err:        errors.New("request timeout"),
			attempt:    1,
			kind:       workflow.Retryable,
			retryAfter: 30 * time.Second,
			reason:     "network error: request timeout",
		},
		{
			name:       "connection refused",
			err:        errors.New("dial tcp 127.0.0.1:6334: ECONNREFUSED"),
			attempt:    1,
			kind:       workflow.Retryable,
			retryAfter: 30 * time.Second,
		},
		{
			name:       "etimedout",
			err:        errors.New("read: ETIMEDOUT"),
			attempt:    3,
			kind:       workflow.Retryable,
			retryAfter: 30 * time.Second,
		},
		{
			name:       "network",
			err:        errors.New("network unreachable"),
			attempt:    1,
			kind:       workflow.Retryable,
			retryAfter: 30 * time.Second,
		},
		{
			name:    "invalid data at attempt 1",
			err:     errors.New("invalid data, code 400"),
			attempt: 1,
			kind:    workflow.Fatal,
			reason:  "[step_01] invalid data for indexing: invalid data, code 400",
		},
		{
			name:    "invalid wins over attempt exhaustion",
			err:     errors.New("invalid payload"),
			attempt: 5,
			kind:    workflow.Fatal,
			reason:  "[step_01] invalid data for indexing: invalid payload",
		},
		{
			name:    "bare 400",
			err:     errors.New("status 400"),
			attempt: 2,
			kind:    workflow.Fatal,
		},
		{
			name:    "attempts exhausted",
			err:     errors.New("something odd happened"),
			attempt: 5,
			kind:    workflow.Fatal,
			reason:  "[step_01] failed to index image after 5 attempts as of 2025-06-01T09:30:00Z: something odd happened",
		},
		{
			name:    "beyond attempt ceiling",
			err:     errors.New("something odd happened"),
			attempt: 7,
			kind:    workflow.Fatal,
		},
		{
			name:       "generic retry",
			err:        errors.New("something odd happened"),
			attempt:    4,
			kind:       workflow.Retryable,
			retryAfter: 0,
			reason:     "search indexing failed: something odd happened",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, attempt(tt.attempt))
			require.NotNil(t, got)

			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.retryAfter, got.RetryAfter)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, got.Error())
			}
			assert.ErrorIs(t, got, tt.err, "classification should wrap the cause")
		})
	}
}

func TestClassify_MatchingIsCaseSensitive(t *testing.T) {
	got := Classify(errors.New("Rate Limit hit"), attempt(1))
	assert.Equal(t, "search indexing failed: Rate Limit hit", got.Error())
	assert.Equal(t, workflow.Retryable, got.Kind)
}

func TestClassify_TypedSignals(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		kind       workflow.Kind
		retryAfter time.Duration
	}{
		{
			name:       "grpc resource exhausted",
			err:        status.Error(codes.ResourceExhausted, "too many requests"),
			kind:       workflow.Retryable,
			retryAfter: time.Minute,
		},
		{
			name:       "grpc unavailable",
			err:        fmt.Errorf("failed to upsert image: %w", status.Error(codes.Unavailable, "connection closed")),
			kind:       workflow.Retryable,
			retryAfter: 30 * time.Second,
		},
		{
			name:       "context deadline",
			err:        fmt.Errorf("embed document x: %w", context.DeadlineExceeded),
			kind:       workflow.Retryable,
			retryAfter: 30 * time.Second,
		},
		{
			name: "grpc invalid argument",
			err:  status.Error(codes.InvalidArgument, "wrong payload"),
			kind: workflow.Fatal,
		},
		{
			name: "dimension mismatch",
			err:  fmt.Errorf("%w: document has 3 dimensions, expected 1536", storage.ErrDimensionMismatch),
			kind: workflow.Fatal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, attempt(1))
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.retryAfter, got.RetryAfter)
		})
	}
}

func TestClassify_IsPure(t *testing.T) {
	err := errors.New("quota exceeded")
	assert.Equal(t, Classify(err, attempt(2)), Classify(err, attempt(2)))
}
