package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoModel(t *testing.T) {
	reply, err := EchoModel{}.Chat(context.Background(), Request{Prompt: "hello"})

	require.NoError(t, err)
	assert.Equal(t, "AI Agent: hello", reply)
}

func TestProviderFromModel(t *testing.T) {
	tests := []struct {
		identifier string
		provider   string
		model      string
	}{
		{identifier: "gemini/gemini-2.5-flash", provider: ProviderGoogle, model: "gemini-2.5-flash"},
		{identifier: "openai/gpt-4o-mini", provider: ProviderOpenAI, model: "gpt-4o-mini"},
		{identifier: "anthropic/claude-3-5-haiku-latest", provider: ProviderAnthropic, model: "claude-3-5-haiku-latest"},
		{identifier: "gpt-4o", provider: "", model: "gpt-4o"},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			provider, model := ProviderFromModel(tt.identifier)

			assert.Equal(t, tt.provider, provider)
			assert.Equal(t, tt.model, model)
		})
	}
}

func TestMockChatModel(t *testing.T) {
	mock := &MockChatModel{Responses: []string{"first", "second"}}

	first, _ := mock.Chat(context.Background(), Request{Prompt: "a"})
	second, _ := mock.Chat(context.Background(), Request{Prompt: "b"})
	third, _ := mock.Chat(context.Background(), Request{Prompt: "c"})

	assert.Equal(t, []string{"first", "second", "second"}, []string{first, second, third})
	assert.Equal(t, 3, mock.Calls())

	failing := &MockChatModel{Err: errors.New("quota")}
	_, err := failing.Chat(context.Background(), Request{})
	assert.EqualError(t, err, "quota")
}

func TestRequest_MaxTokensOrDefault(t *testing.T) {
	assert.Equal(t, DefaultMaxTokens, Request{}.MaxTokensOrDefault())
	assert.Equal(t, 50, Request{MaxTokens: 50}.MaxTokensOrDefault())
}
