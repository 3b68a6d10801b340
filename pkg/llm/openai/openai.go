// Package openai adapts the OpenAI chat completions API to llm.ChatModel.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/chatflow/pkg/llm"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const DefaultModel = "gpt-4o-mini"

type ChatModel struct {
	client *openai.Client
	model  string
}

func NewChatModel(apiKey, model string, opts ...option.RequestOption) (*ChatModel, error) {
	if apiKey == "" {
		return nil, errors.New("openai API key is required")
	}

	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)

	return &ChatModel{client: &client, model: model}, nil
}

func (m *ChatModel) Chat(ctx context.Context, req llm.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:     shared.ChatModel(m.model),
		Messages:  buildMessages(req),
		MaxTokens: openai.Int(int64(req.MaxTokensOrDefault())),
	}

	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", llm.ErrEmptyResponse
	}

	return completion.Choices[0].Message.Content, nil
}

func buildMessages(req llm.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)

	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	for _, msg := range req.History {
		if msg.Role == models.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		} else {
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	return append(messages, openai.UserMessage(req.Prompt))
}
