package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultKnowledgeLimit is how many chunks an ai-agent node asks for.
const DefaultKnowledgeLimit = 3

// KnowledgeChunk is one retrieved passage.
type KnowledgeChunk struct {
	Content string         `json:"content"`
	Source  string         `json:"source,omitempty"`
	Score   float64        `json:"score,omitempty"`
	Meta    map[string]any `json:"metadata,omitempty"`
}

// KnowledgeBase retrieves project knowledge relevant to a query.
type KnowledgeBase interface {
	Query(ctx context.Context, projectID, query string, limit int) ([]KnowledgeChunk, error)
}

// HTTPKnowledgeBase queries the knowledge base service's /query endpoint.
type HTTPKnowledgeBase struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPKnowledgeBase(baseURL string, httpClient *http.Client) *HTTPKnowledgeBase {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &HTTPKnowledgeBase{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (kb *HTTPKnowledgeBase) Query(ctx context.Context, projectID, query string, limit int) ([]KnowledgeChunk, error) {
	form := url.Values{}
	form.Set("query", query)
	form.Set("project_id", projectID)
	form.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, kb.baseURL+"/query", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := kb.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("knowledge base request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("knowledge base returned status %d", resp.StatusCode)
	}

	var chunks []KnowledgeChunk
	if err := json.NewDecoder(resp.Body).Decode(&chunks); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge base response: %w", err)
	}

	return chunks, nil
}
