package llm

import (
	"context"
	"sync"
)

// MockChatModel returns canned replies in order and records every request.
type MockChatModel struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Requests  []Request
}

func (m *MockChatModel) Chat(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if m.Err != nil {
		return "", m.Err
	}

	if len(m.Responses) == 0 {
		return "", ErrEmptyResponse
	}

	reply := m.Responses[0]
	if len(m.Responses) > 1 {
		m.Responses = m.Responses[1:]
	}

	return reply, nil
}

// Calls returns the number of recorded requests.
func (m *MockChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Requests)
}
