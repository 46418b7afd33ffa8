package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicBackend calls the Anthropic Messages API. The API has no
// structured-output mode; JSON-mode requests rely on the prompt and the
// client's fence stripping.
type anthropicBackend struct {
	client  *anthropic.Client
	timeout time.Duration
}

func newAnthropicBackend(apiKey string, timeout time.Duration) *anthropicBackend {
	cli := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &anthropicBackend{client: &cli, timeout: timeout}
}

func (b *anthropicBackend) complete(ctx context.Context, model string, call callParams) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(call.maxTokens),
		Temperature: anthropic.Float(call.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(call.prompt)),
		},
	}
	if call.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: call.system}}
	}

	msg, err := b.client.Messages.New(reqCtx, params)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic: no text content returned")
	}
	return sb.String(), nil
}
