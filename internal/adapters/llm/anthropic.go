package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lcalzada-xor/netsentry/internal/core/ports"
)

// maxReplyTokens caps one assistant answer.
const maxReplyTokens = 1024

// AnthropicModel implements ports.ChatModel on the Anthropic Messages API.
type AnthropicModel struct {
	client    anthropic.Client
	modelName string
}

var _ ports.ChatModel = (*AnthropicModel)(nil)

// NewAnthropicModel builds a client for the given model name and API key.
func NewAnthropicModel(modelName, apiKey string) *AnthropicModel {
	return &AnthropicModel{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		modelName: modelName,
	}
}

// Generate sends one system-framed user prompt and concatenates the text
// blocks of the response. The caller's context carries the deadline.
func (m *AnthropicModel) Generate(ctx context.Context, system, prompt string) (string, error) {
	message, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: maxReplyTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
