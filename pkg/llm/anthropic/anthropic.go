// Package anthropic adapts the Anthropic Messages API to llm.ChatModel.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/dukex/chatflow/pkg/llm"
	"github.com/dukex/chatflow/pkg/models"
)

const DefaultModel = "claude-3-5-haiku-latest"

type ChatModel struct {
	client *anthropic.Client
	model  string
}

func NewChatModel(apiKey, model string, opts ...option.RequestOption) (*ChatModel, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key is required")
	}

	if model == "" {
		model = DefaultModel
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &ChatModel{client: &client, model: model}, nil
}

func (m *ChatModel) Chat(ctx context.Context, req llm.Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: int64(req.MaxTokensOrDefault()),
		Messages:  buildMessages(req),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var text string

	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	if text == "" {
		return "", llm.ErrEmptyResponse
	}

	return text, nil
}

func buildMessages(req llm.Request) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)

	for _, msg := range req.History {
		if msg.Role == models.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))
}
