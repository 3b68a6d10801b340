// Package google adapts the Gemini API to llm.ChatModel.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/chatflow/pkg/llm"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultModel = "gemini-2.5-flash"

type ChatModel struct {
	client *genai.Client
	model  string
}

func NewChatModel(ctx context.Context, apiKey, model string) (*ChatModel, error) {
	if apiKey == "" {
		return nil, errors.New("google API key is required")
	}

	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}

	return &ChatModel{client: client, model: model}, nil
}

func (m *ChatModel) Chat(ctx context.Context, req llm.Request) (string, error) {
	model := m.client.GenerativeModel(m.model)
	model.SetMaxOutputTokens(int32(req.MaxTokensOrDefault()))

	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	}

	session := model.StartChat()
	session.History = buildHistory(req.History)

	resp, err := session.SendMessage(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("google: %w", err)
	}

	var text string

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}

		break
	}

	if text == "" {
		return "", llm.ErrEmptyResponse
	}

	return text, nil
}

func (m *ChatModel) Close() error {
	return m.client.Close()
}

func buildHistory(history []models.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))

	for _, msg := range history {
		role := "user"
		if msg.Role == models.RoleAssistant {
			role = "model"
		}

		contents = append(contents, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}

	return contents
}
