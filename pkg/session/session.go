// Package session keeps per-conversation execution state and chat history between turns.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/chatflow/pkg/models"
)

const (
	DefaultTTL          = 24 * time.Hour
	DefaultHistoryLimit = 20
)

// ErrSessionNotFound is returned by callers that require an existing session.
var ErrSessionNotFound = errors.New("session not found")

// Store persists session state. Load returns nil, nil for unknown sessions.
type Store interface {
	Load(ctx context.Context, projectID, sessionID string) (*models.ExecutionState, error)
	Save(ctx context.Context, projectID, sessionID string, state *models.ExecutionState) error
	Delete(ctx context.Context, projectID, sessionID string) error
	AppendHistory(ctx context.Context, projectID, sessionID string, messages ...models.ChatMessage) error
	History(ctx context.Context, projectID, sessionID string) ([]models.ChatMessage, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

func stateKey(projectID, sessionID string) string {
	return fmt.Sprintf("workflow:%s:%s", projectID, sessionID)
}

func historyKey(projectID, sessionID string) string {
	return fmt.Sprintf("chat_session:%s:%s", projectID, sessionID)
}

type config struct {
	ttl          time.Duration
	historyLimit int
}

type Option func(*config)

// WithTTL sets how long an idle session is kept.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithHistoryLimit sets how many chat messages are kept per session.
func WithHistoryLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.historyLimit = n
		}
	}
}

func newConfig(opts []Option) config {
	c := config{ttl: DefaultTTL, historyLimit: DefaultHistoryLimit}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}
