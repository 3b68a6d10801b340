package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps execution state as a JSON string and chat history as a capped list.
type RedisStore struct {
	client redis.UniversalClient
	config config
	logger *slog.Logger
}

func NewRedisStore(client redis.UniversalClient, logger *slog.Logger, opts ...Option) *RedisStore {
	return &RedisStore{
		client: client,
		config: newConfig(opts),
		logger: logger.With("module", "session_redis"),
	}
}

// NewRedisStoreFromURL parses a redis:// URL and pings the server.
func NewRedisStoreFromURL(ctx context.Context, url string, logger *slog.Logger, opts ...Option) (*RedisStore, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	store := NewRedisStore(redis.NewClient(options), logger, opts...)

	if err := store.HealthCheck(ctx); err != nil {
		_ = store.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store.logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return store, nil
}

func (s *RedisStore) Load(ctx context.Context, projectID, sessionID string) (*models.ExecutionState, error) {
	raw, err := s.client.Get(ctx, stateKey(projectID, sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to load session state: %w", err)
	}

	var state models.ExecutionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session state: %w", err)
	}

	return &state, nil
}

func (s *RedisStore) Save(ctx context.Context, projectID, sessionID string, state *models.ExecutionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	if err := s.client.Set(ctx, stateKey(projectID, sessionID), raw, s.config.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, projectID, sessionID string) error {
	if err := s.client.Del(ctx, stateKey(projectID, sessionID), historyKey(projectID, sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (s *RedisStore) AppendHistory(ctx context.Context, projectID, sessionID string, messages ...models.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	values := make([]any, 0, len(messages))

	for _, msg := range messages {
		raw, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode chat message: %w", err)
		}

		values = append(values, raw)
	}

	key := historyKey(projectID, sessionID)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-s.config.historyLimit), -1)
		pipe.Expire(ctx, key, s.config.ttl)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append chat history: %w", err)
	}

	return nil
}

func (s *RedisStore) History(ctx context.Context, projectID, sessionID string) ([]models.ChatMessage, error) {
	values, err := s.client.LRange(ctx, historyKey(projectID, sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	history := make([]models.ChatMessage, 0, len(values))

	for _, value := range values {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(value), &msg); err != nil {
			s.logger.WarnContext(ctx, "Skipping undecodable chat message", "error", err)

			continue
		}

		history = append(history, msg)
	}

	return history, nil
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
