package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/chatflow/pkg/session"
)

const sweepSchedule = "@every 5m"

// NewSessionStore opens the session store for "memory://" or "redis://..." URLs.
func NewSessionStore(ctx context.Context, logger *slog.Logger, storeURL string, ttl time.Duration) (session.Store, error) {
	opts := []session.Option{session.WithTTL(ttl)}

	switch {
	case storeURL == "" || strings.HasPrefix(storeURL, "memory://"):
		store := session.NewMemoryStore(logger, opts...)
		if err := store.StartSweeper(sweepSchedule); err != nil {
			return nil, fmt.Errorf("failed to schedule session sweeper: %w", err)
		}

		return store, nil
	case strings.HasPrefix(storeURL, "redis://"), strings.HasPrefix(storeURL, "rediss://"):
		return session.NewRedisStoreFromURL(ctx, storeURL, logger, opts...)
	default:
		return nil, fmt.Errorf("unsupported session store: %s", storeURL)
	}
}
