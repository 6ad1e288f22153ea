package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI client shared by embedding and description generation.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client authenticated with apiKey.
// Returns an error if apiKey is empty.
func NewClient(apiKey string, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., image description).
func (c *Client) Client() *openai.Client {
	return c.client
}
