// Package describe generates natural-language descriptions of stored images
// with an OpenAI vision model.
package describe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/openai/openai-go"

	"github.com/bull/imgindex-server/internal/blob"
	"github.com/bull/imgindex-server/internal/markdown"
)

// DefaultModel is the vision-capable chat model used when none is configured.
const DefaultModel = openai.ChatModelGPT4oMini

// DefaultMaxChars caps the stored description length.
const DefaultMaxChars = 2000

// maxCompletionTokens bounds the model reply.
const maxCompletionTokens = 400

const prompt = `Describe this image so it can be found by a text search.

Cover, in plain prose:
1. The main subject and any secondary elements
2. The artistic style, and whether it is black and white, monochrome or in color
3. Whether the design suits a small, minimal placement or a large, bold one
4. Any themes or symbolism it conveys (for example strength, love, freedom)

Answer in at most five sentences. Do not use lists or headings.`

// Generator produces image descriptions.
type Generator struct {
	client    *openai.Client
	model     openai.ChatModel
	maxChars  int
	flattener *markdown.Flattener
	logger    *slog.Logger
}

// NewGenerator creates a description generator with the given OpenAI client.
// An empty model selects DefaultModel.
func NewGenerator(client *openai.Client, model string, logger *slog.Logger) *Generator {
	chatModel := openai.ChatModel(model)
	if chatModel == "" {
		chatModel = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:    client,
		model:     chatModel,
		maxChars:  DefaultMaxChars,
		flattener: markdown.NewFlattener(),
		logger:    logger,
	}
}

// Describe asks the model to describe the image behind obj and returns the
// reply as plain text. The object's download URL must be reachable by OpenAI.
func (g *Generator) Describe(ctx context.Context, obj *blob.StoredObject) (string, error) {
	imageURL := obj.DownloadURL
	if imageURL == "" {
		imageURL = obj.URL
	}
	if imageURL == "" {
		return "", fmt.Errorf("stored object %s has no URL", obj.Pathname)
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
							openai.TextContentPart(prompt),
							openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
								URL: imageURL,
							}),
						},
					},
				},
			},
		},
		MaxCompletionTokens: openai.Int(maxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	description := g.normalize(resp.Choices[0].Message.Content)
	g.logger.Debug("Generated description", "pathname", obj.Pathname, "chars", len(description))

	return description, nil
}

// normalize flattens markdown in the reply and truncates it to maxChars runes.
func (g *Generator) normalize(reply string) string {
	text := strings.TrimSpace(g.flattener.Flatten(reply))

	if utf8.RuneCountInString(text) <= g.maxChars {
		return text
	}

	g.logger.Warn("Truncating description", "chars", utf8.RuneCountInString(text), "max", g.maxChars)

	runes := []rune(text)
	return strings.TrimSpace(string(runes[:g.maxChars]))
}
