package cmd

import (
	"context"

	"github.com/dukex/chatflow/pkg/llm"
	"github.com/dukex/chatflow/pkg/llm/anthropic"
	"github.com/dukex/chatflow/pkg/llm/google"
	"github.com/dukex/chatflow/pkg/llm/openai"
)

// LLMConfig selects the model that answers ai-agent nodes. Model may carry the
// provider as a prefix, e.g. "gemini/gemini-2.5-flash".
type LLMConfig struct {
	Provider        string
	Model           string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
}

// NewChatModel returns the configured chat model, or the echo model for provider
// "echo" and an empty configuration.
//
// nolint:ireturn
func NewChatModel(ctx context.Context, cfg LLMConfig) (llm.ChatModel, error) {
	provider, model := cfg.Provider, cfg.Model
	if prefixed, name := llm.ProviderFromModel(model); prefixed != "" {
		model = name

		if provider == "" {
			provider = prefixed
		}
	}

	switch provider {
	case "", llm.ProviderEcho:
		return llm.EchoModel{}, nil
	case llm.ProviderAnthropic:
		return anthropic.NewChatModel(cfg.AnthropicAPIKey, model)
	case llm.ProviderOpenAI:
		return openai.NewChatModel(cfg.OpenAIAPIKey, model)
	case llm.ProviderGoogle:
		return google.NewChatModel(ctx, cfg.GoogleAPIKey, model)
	default:
		return nil, llm.ErrUnknownProvider{Name: provider}
	}
}
