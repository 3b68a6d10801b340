// Package llm abstracts the language model that answers ai-agent nodes.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/chatflow/pkg/models"
)

var ErrEmptyResponse = errors.New("model returned no text")

// Request is one completion call: a system prompt, prior chat turns and the new user
// message.
type Request struct {
	System      string
	History     []models.ChatMessage
	Prompt      string
	Temperature *float64
	MaxTokens   int
}

// ChatModel produces the assistant reply for a request.
type ChatModel interface {
	Chat(ctx context.Context, req Request) (string, error)
}

// DefaultMaxTokens bounds replies when the request leaves MaxTokens unset.
const DefaultMaxTokens = 1024

// MaxTokensOrDefault returns req.MaxTokens or DefaultMaxTokens.
func (r Request) MaxTokensOrDefault() int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}

	return DefaultMaxTokens
}

// EchoModel answers without a provider. Used when no API key is configured.
type EchoModel struct{}

func (EchoModel) Chat(_ context.Context, req Request) (string, error) {
	return Echo(req.Prompt), nil
}

// Echo is the reply EchoModel gives for text.
func Echo(text string) string {
	return "AI Agent: " + text
}

// Provider names.
const (
	ProviderEcho      = "echo"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
)

// ProviderFromModel splits "provider/model" identifiers such as "gemini/gemini-2.5-flash".
func ProviderFromModel(identifier string) (provider, model string) {
	provider, model, found := strings.Cut(identifier, "/")
	if !found {
		return "", identifier
	}

	switch provider {
	case "gemini", "vertex_ai":
		provider = ProviderGoogle
	case "claude":
		provider = ProviderAnthropic
	}

	return provider, model
}

// ErrUnknownProvider is returned by factories for unsupported provider names.
type ErrUnknownProvider struct {
	Name string
}

func (e ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unknown llm provider %q", e.Name)
}
