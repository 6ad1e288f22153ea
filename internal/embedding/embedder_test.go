package embedding

import (
	"errors"
	"fmt"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFloat32(t *testing.T) {
	got := toFloat32([]float64{0.5, -1.25, 0})
	assert.Equal(t, []float32{0.5, -1.25, 0}, got)
}

func TestStatusCode(t *testing.T) {
	rateLimited := &openai.Error{StatusCode: 429}
	wrapped := fmt.Errorf("batch 0-1: %w", rateLimited)

	assert.Equal(t, 429, StatusCode(wrapped))
	assert.True(t, IsRateLimitError(wrapped))

	assert.Equal(t, 0, StatusCode(errors.New("connection reset")))
	assert.False(t, IsRateLimitError(&openai.Error{StatusCode: 400}))
}

func TestNewEmbedder_DefaultBatchSize(t *testing.T) {
	e := NewEmbedder(nil, 0)
	assert.Equal(t, DefaultBatchSize, e.batchSize)

	e = NewEmbedder(nil, 10)
	assert.Equal(t, 10, e.batchSize)
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient("")
	require.Error(t, err)

	c, err := NewClient("sk-test")
	require.NoError(t, err)
	assert.NotNil(t, c.Client())
}
