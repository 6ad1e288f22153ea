package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/imgindex-server/internal/config"
	"github.com/bull/imgindex-server/internal/indexer"
	"github.com/bull/imgindex-server/internal/workflow"
)

func TestNewRunner_CapsRetryHints(t *testing.T) {
	cfg := &config.Config{StepMaxDelay: 5 * time.Millisecond}
	runner := newRunner(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	attempts := 0
	step := func(ctx context.Context, meta workflow.StepMetadata) error {
		attempts++
		if meta.Attempt < 3 {
			return workflow.NewRetryable("search index rate limited: 429",
				indexer.RateLimitRetryAfter, errors.New("429"))
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, runner.Run(ctx, indexer.StepIndex, step))
	assert.Equal(t, 3, attempts)
	assert.Less(t, time.Since(start), time.Second)
}
