package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/chatflow/pkg/llm"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatModel_RequiresKey(t *testing.T) {
	_, err := NewChatModel("", "gpt-4o")

	assert.Error(t, err)
}

func TestChatModel_Chat(t *testing.T) {
	var body struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-test",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Sure!"}}]
		}`))
	}))
	defer server.Close()

	model, err := NewChatModel("test-key", "gpt-test", option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	reply, err := model.Chat(context.Background(), llm.Request{
		System:  "You are support",
		History: []models.ChatMessage{{Role: models.RoleAssistant, Content: "Hi"}},
		Prompt:  "Help me",
	})
	require.NoError(t, err)

	assert.Equal(t, "Sure!", reply)
	assert.Equal(t, "gpt-test", body.Model)
	require.Len(t, body.Messages, 3)
	assert.Equal(t, "system", body.Messages[0].Role)
	assert.Equal(t, "assistant", body.Messages[1].Role)
	assert.Equal(t, "user", body.Messages[2].Role)
	assert.Equal(t, "Help me", body.Messages[2].Content)
}
