// Package llm talks to the chat completion model.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// ErrNoChoices is returned when the model answers without any choice.
var ErrNoChoices = errors.New("chat completion returned no choices")

// Chat produces completions from a system and a user message.
type Chat struct {
	client *openai.Client
	model  string
}

// NewChat creates a chat adapter with the given OpenAI client.
// An empty model means DefaultModel.
func NewChat(client *openai.Client, model string) *Chat {
	if model == "" {
		model = DefaultModel
	}
	return &Chat{
		client: client,
		model:  model,
	}
}

// Model returns the chat model name.
func (c *Chat) Model() string {
	return c.model
}

// Complete sends one system and one user message and returns the first choice's content.
func (c *Chat) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}
