package indexer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bull/imgindex-server/internal/embedding"
	"github.com/bull/imgindex-server/internal/storage"
	"github.com/bull/imgindex-server/internal/workflow"
)

const (
	// RateLimitRetryAfter is the suggested delay after the index throttles us.
	RateLimitRetryAfter = time.Minute

	// NetworkRetryAfter is the suggested delay after a connection failure.
	NetworkRetryAfter = 30 * time.Second

	// MaxIndexAttempts is the attempt at which indexing gives up regardless of the error.
	MaxIndexAttempts = 5
)

var (
	rateLimitMarkers = []string{"rate limit", "429", "quota"}
	networkMarkers   = []string{"timeout", "ECONNREFUSED", "ETIMEDOUT", "network"}
	invalidMarkers   = []string{"invalid", "400"}
)

// Classify decides whether a failed index upsert may be retried.
//
// Checks run in a fixed order and the first match wins: rate limiting,
// network failure, invalid data, attempt exhaustion, then a generic
// retryable error. Matching is done on the error text, with gRPC and OpenAI
// status codes accepted as equivalent signals. Returns nil for a nil error.
func Classify(err error, meta workflow.StepMetadata) *workflow.StepError {
	if err == nil {
		return nil
	}
	return classify(err, meta, err.Error())
}

// classifyExcluding classifies err with every occurrence of the given
// identifiers cut from the matched text. Pathnames and point IDs carry
// user filenames and random hex, so they must not decide the outcome.
func classifyExcluding(err error, meta workflow.StepMetadata, identifiers ...string) *workflow.StepError {
	if err == nil {
		return nil
	}
	text := err.Error()
	for _, id := range identifiers {
		if id != "" {
			text = strings.ReplaceAll(text, id, "")
		}
	}
	return classify(err, meta, text)
}

// classify matches text for markers and reports err's own message in the reason.
func classify(err error, meta workflow.StepMetadata, text string) *workflow.StepError {
	message := err.Error()

	switch {
	case containsAny(text, rateLimitMarkers) || isRateLimited(err):
		return workflow.NewRetryable(
			fmt.Sprintf("search index rate limited: %s", message),
			RateLimitRetryAfter, err)

	case containsAny(text, networkMarkers) || isNetworkFailure(err):
		return workflow.NewRetryable(
			fmt.Sprintf("network error: %s", message),
			NetworkRetryAfter, err)

	case containsAny(text, invalidMarkers) || isInvalidData(err):
		return workflow.NewFatal(
			fmt.Sprintf("[%s] invalid data for indexing: %s", meta.StepID, message),
			err)

	case meta.Attempt >= MaxIndexAttempts:
		return workflow.NewFatal(
			fmt.Sprintf("[%s] failed to index image after %d attempts as of %s: %s",
				meta.StepID, meta.Attempt, meta.StartedAt.UTC().Format(time.RFC3339), message),
			err)

	default:
		return workflow.NewRetryable(
			fmt.Sprintf("search indexing failed: %s", message),
			0, err)
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func isRateLimited(err error) bool {
	return status.Code(err) == codes.ResourceExhausted || embedding.IsRateLimitError(err)
}

func isNetworkFailure(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func isInvalidData(err error) bool {
	if errors.Is(err, storage.ErrDimensionMismatch) || errors.Is(err, storage.ErrMissingID) {
		return true
	}
	return status.Code(err) == codes.InvalidArgument || embedding.StatusCode(err) == http.StatusBadRequest
}
