package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/robfig/cron/v3"
)

type entry struct {
	state     *models.ExecutionState
	history   []models.ChatMessage
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Expired sessions are invisible to readers and
// removed by a periodic sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	config  config
	now     func() time.Time
	cron    *cron.Cron
	logger  *slog.Logger
}

func NewMemoryStore(logger *slog.Logger, opts ...Option) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		config:  newConfig(opts),
		now:     time.Now,
		logger:  logger.With("module", "session_memory"),
	}
}

// StartSweeper removes expired sessions on the given cron schedule, e.g. "@every 5m".
func (s *MemoryStore) StartSweeper(schedule string) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := s.cron.AddFunc(schedule, func() {
		if removed := s.Sweep(); removed > 0 {
			s.logger.Debug("Swept expired sessions", "removed", removed)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Sweep deletes expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0

	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}

	return removed
}

func (s *MemoryStore) live(key string) (*entry, bool) {
	e, ok := s.entries[key]
	if !ok || s.now().After(e.expiresAt) {
		return nil, false
	}

	return e, true
}

func (s *MemoryStore) touch(key string) *entry {
	e, ok := s.live(key)
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}

	e.expiresAt = s.now().Add(s.config.ttl)

	return e
}

func (s *MemoryStore) Load(_ context.Context, projectID, sessionID string) (*models.ExecutionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.live(stateKey(projectID, sessionID))
	if !ok || e.state == nil {
		return nil, nil
	}

	return e.state.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, projectID, sessionID string, state *models.ExecutionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(stateKey(projectID, sessionID)).state = state.Clone()

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, projectID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, stateKey(projectID, sessionID))
	delete(s.entries, historyKey(projectID, sessionID))

	return nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, projectID, sessionID string, messages ...models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touch(historyKey(projectID, sessionID))
	e.history = append(e.history, messages...)

	if len(e.history) > s.config.historyLimit {
		e.history = append([]models.ChatMessage(nil), e.history[len(e.history)-s.config.historyLimit:]...)
	}

	return nil
}

func (s *MemoryStore) History(_ context.Context, projectID, sessionID string) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.live(historyKey(projectID, sessionID))
	if !ok {
		return []models.ChatMessage{}, nil
	}

	return append([]models.ChatMessage{}, e.history...), nil
}

func (s *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	return nil
}
