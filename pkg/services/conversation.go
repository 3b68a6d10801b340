package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukex/chatflow/pkg/eventbus"
	"github.com/dukex/chatflow/pkg/events"
	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/metrics"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/session"
	"github.com/dukex/chatflow/pkg/workflow"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TurnResult is the outcome of one conversation turn.
type TurnResult struct {
	SessionID string `json:"session_id"`
	models.NodeExecutionResult
}

// SessionView is the persisted side of a conversation.
type SessionView struct {
	SessionID string                 `json:"session_id"`
	State     *models.ExecutionState `json:"state"`
	History   []models.ChatMessage   `json:"history"`
}

type ConversationOption func(*Conversation)

// WithPublisher sets where conversation events go.
func WithPublisher(publisher eventbus.EventPublisher) ConversationOption {
	return func(c *Conversation) {
		if publisher != nil {
			c.publisher = publisher
		}
	}
}

// WithMaxStepsPerTurn bounds how many nodes one turn may execute.
func WithMaxStepsPerTurn(n int) ConversationOption {
	return func(c *Conversation) {
		c.maxSteps = n
	}
}

// WithExecutionHistoryLimit bounds the visited node ids kept in session state.
func WithExecutionHistoryLimit(n int) ConversationOption {
	return func(c *Conversation) {
		c.historyLimit = n
	}
}

func WithConversationMetrics(m *metrics.Metrics) ConversationOption {
	return func(c *Conversation) {
		c.metrics = m
	}
}

func WithConversationTracer(tracer trace.Tracer) ConversationOption {
	return func(c *Conversation) {
		c.tracer = tracer
	}
}

// Conversation runs workflow sessions for projects. Turns of the same session are
// serialized; different sessions run concurrently.
type Conversation struct {
	projects  *Project
	store     session.Store
	delegate  workflow.Delegate
	publisher eventbus.EventPublisher

	maxSteps     int
	historyLimit int

	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger

	locks *sessionLocks
}

func NewConversation(projects *Project, store session.Store, delegate workflow.Delegate, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		projects:  projects,
		store:     store,
		delegate:  delegate,
		publisher: eventbus.Discard,
		logger:    log.WithModule("conversation_service"),
		locks:     newSessionLocks(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Conversation) executorOptions(projectID, sessionID string) []workflow.Option {
	return []workflow.Option{
		workflow.WithSession(projectID, sessionID),
		workflow.WithMaxStepsPerTurn(c.maxSteps),
		workflow.WithHistoryLimit(c.historyLimit),
		workflow.WithMetrics(c.metrics),
		workflow.WithTracer(c.tracer),
	}
}

func (c *Conversation) definition(ctx context.Context, projectID string) (*models.WorkflowDefinition, error) {
	project, err := c.projects.FetchByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if project.Workflow == nil {
		return models.NewDefaultWorkflow(), nil
	}

	return project.Workflow, nil
}

// Start opens a session and runs its first turn. An empty sessionID gets a generated
// one; an explicit id that already has state is a conflict.
func (c *Conversation) Start(ctx context.Context, projectID, sessionID string) (*TurnResult, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	unlock := c.locks.lock(projectID, sessionID)
	defer unlock()

	definition, err := c.definition(ctx, projectID)
	if err != nil {
		return nil, err
	}

	existing, err := c.store.Load(ctx, projectID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if existing != nil {
		return nil, fmt.Errorf("start session %s: %w", sessionID, ErrSessionExists)
	}

	executor := workflow.NewExecutor(definition, c.delegate, c.executorOptions(projectID, sessionID)...)
	result := executor.Start(ctx)

	c.metrics.SessionStarted()
	c.publish(ctx, projectID, events.NewConversationStarted(projectID, sessionID))

	if err := c.persist(ctx, projectID, sessionID, executor, "", result, false); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "Conversation started",
		"project_id", projectID, "session_id", sessionID, "complete", result.IsComplete)

	return &TurnResult{SessionID: sessionID, NodeExecutionResult: result}, nil
}

// Send feeds the user's message to an existing session.
func (c *Conversation) Send(ctx context.Context, projectID, sessionID, message string) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, NewValidationError("Send", "EMPTY_MESSAGE", "message cannot be empty", ErrEmptyMessage)
	}

	unlock := c.locks.lock(projectID, sessionID)
	defer unlock()

	definition, err := c.definition(ctx, projectID)
	if err != nil {
		return nil, err
	}

	state, err := c.store.Load(ctx, projectID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if state == nil {
		return nil, fmt.Errorf("send to session %s: %w", sessionID, ErrSessionNotFound)
	}

	executor := workflow.NewExecutorFromState(definition, state, c.delegate, c.executorOptions(projectID, sessionID)...)
	result := executor.ProcessUserInput(ctx, message)

	if err := c.persist(ctx, projectID, sessionID, executor, message, result, state.Completed); err != nil {
		return nil, err
	}

	return &TurnResult{SessionID: sessionID, NodeExecutionResult: result}, nil
}

// persist saves the state and chat history after a turn. The user's message is
// recorded after the turn ran, so the backend's history never repeats the current query.
// Completion is recorded once per session; wasComplete is the stored flag before the turn.
func (c *Conversation) persist(
	ctx context.Context,
	projectID, sessionID string,
	executor *workflow.Executor,
	userMessage string,
	result models.NodeExecutionResult,
	wasComplete bool,
) error {
	state := executor.State()
	state.Completed = wasComplete || result.IsComplete

	if err := c.store.Save(ctx, projectID, sessionID, state); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	history := make([]models.ChatMessage, 0, len(result.Messages)+1)
	if userMessage != "" {
		history = append(history, models.ChatMessage{Role: models.RoleUser, Content: userMessage})
	}

	for _, m := range result.Messages {
		history = append(history, models.ChatMessage{Role: models.RoleAssistant, Content: m})
	}

	if len(history) > 0 {
		if err := c.store.AppendHistory(ctx, projectID, sessionID, history...); err != nil {
			c.logger.ErrorContext(ctx, "Failed to append chat history",
				"project_id", projectID, "session_id", sessionID, "error", err)
		}
	}

	if result.IsComplete && !wasComplete {
		c.metrics.SessionEnded()
		c.publish(ctx, projectID, events.NewConversationCompleted(
			projectID, sessionID, state.CurrentNodeID, state.Variables, len(state.ExecutionHistory)))
	}

	return nil
}

// State returns the stored state and chat history of a session.
func (c *Conversation) State(ctx context.Context, projectID, sessionID string) (*SessionView, error) {
	state, err := c.store.Load(ctx, projectID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if state == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}

	history, err := c.store.History(ctx, projectID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	if history == nil {
		history = []models.ChatMessage{}
	}

	return &SessionView{SessionID: sessionID, State: state, History: history}, nil
}

// Reset drops a session's state and history.
func (c *Conversation) Reset(ctx context.Context, projectID, sessionID string) error {
	unlock := c.locks.lock(projectID, sessionID)
	defer unlock()

	state, err := c.store.Load(ctx, projectID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := c.store.Delete(ctx, projectID, sessionID); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}

	if state != nil && !state.Completed {
		c.metrics.SessionEnded()
	}

	c.logger.InfoContext(ctx, "Conversation reset", "project_id", projectID, "session_id", sessionID)

	return nil
}

// HealthCheck reports on the session store.
func (c *Conversation) HealthCheck(ctx context.Context) (string, bool) {
	if err := c.store.HealthCheck(ctx); err != nil {
		return "Session store is unhealthy: " + err.Error(), false
	}

	return "Session store is healthy", true
}

func (c *Conversation) publish(ctx context.Context, projectID string, event eventbus.Event) {
	if err := c.publisher.Publish(ctx, projectID, event); err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish event",
			"project_id", projectID, "event_type", event.GetType(), "error", err)
	}
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks hands out one mutex per session and forgets it once unused.
type sessionLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{entries: make(map[string]*lockEntry)}
}

func (l *sessionLocks) lock(projectID, sessionID string) func() {
	key := projectID + ":" + sessionID

	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}
