package backend

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPKnowledgeBase_Query(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/query", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refund policy", r.PostForm.Get("query"))
		assert.Equal(t, "p1", r.PostForm.Get("project_id"))
		assert.Equal(t, "3", r.PostForm.Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"content":"Refunds within 30 days.","source":"faq.html","score":0.91}]`))
	}))
	defer server.Close()

	kb := NewHTTPKnowledgeBase(server.URL+"/", nil)

	chunks, err := kb.Query(t.Context(), "p1", "refund policy", DefaultKnowledgeLimit)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Refunds within 30 days.", chunks[0].Content)
	assert.Equal(t, "faq.html", chunks[0].Source)
}

func TestHTTPKnowledgeBase_ErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewHTTPKnowledgeBase(server.URL, server.Client()).Query(t.Context(), "p1", "q", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
