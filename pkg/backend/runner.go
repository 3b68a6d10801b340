// Package backend executes the node types a conversation cannot run locally: ai-agent,
// api-call and handoff. Runner is the server side of the turn endpoint and also a
// workflow.Delegate for hosts that run everything in one process.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/chatflow/pkg/eventbus"
	"github.com/dukex/chatflow/pkg/events"
	"github.com/dukex/chatflow/pkg/llm"
	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/otelhelper"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/dukex/chatflow/pkg/template"
	"github.com/dukex/chatflow/pkg/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgInvalidState = "Error: Invalid workflow state"
	msgNoURL        = "Error: No URL specified for API call"
	msgChatFailed   = "I apologize, but I'm having trouble processing your request right now."
)

var (
	ErrHostNotAllowed    = errors.New("host is not in the project's API whitelist")
	ErrUnsupportedMethod = errors.New("unsupported method")
	ErrTooManyRedirects  = errors.New("too many redirects")
)

// ProjectSource loads the project whose workflow and settings drive a turn.
type ProjectSource interface {
	ProjectByID(ctx context.Context, id string) (*models.Project, error)
}

// HistorySource returns a session's recent chat messages, oldest first.
type HistorySource interface {
	History(ctx context.Context, projectID, sessionID string) ([]models.ChatMessage, error)
}

type Runner struct {
	projects   ProjectSource
	model      llm.ChatModel
	knowledge  KnowledgeBase
	history    HistorySource
	publisher  eventbus.EventPublisher
	httpClient *http.Client
	apiTimeout time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
}

var _ workflow.Delegate = (*Runner)(nil)

func NewRunner(projects ProjectSource, opts ...Option) *Runner {
	r := &Runner{
		projects:   projects,
		publisher:  eventbus.Discard,
		httpClient: &http.Client{},
		apiTimeout: DefaultAPITimeout,
		logger:     log.WithModule("backend_runner"),
		tracer:     otelhelper.Tracer("github.com/dukex/chatflow/pkg/backend"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// turn bundles what a single backend step needs to know.
type turn struct {
	request models.TurnRequest
	project *models.Project
	logger  *slog.Logger
}

// RunBackendStep executes the node named by req.WorkflowState.CurrentNodeID, or answers
// a plain chat turn when the request carries no workflow state. It only returns an
// error when the project cannot be loaded; node failures become messages.
func (r *Runner) RunBackendStep(ctx context.Context, req models.TurnRequest) (models.TurnResponse, error) {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "backend.step",
		attribute.String(otelhelper.ProjectIDKey, req.ProjectID),
		attribute.String(otelhelper.SessionIDKey, req.SessionID),
	)
	defer span.End()

	project, err := r.projects.ProjectByID(ctx, req.ProjectID)
	if err != nil {
		otelhelper.SetError(span, err)

		return models.TurnResponse{}, fmt.Errorf("failed to load project %s: %w", req.ProjectID, err)
	}

	if project == nil {
		err := persistence.NewProjectError("RunBackendStep", req.ProjectID, persistence.ErrProjectNotFound)
		otelhelper.SetError(span, err)

		return models.TurnResponse{}, err
	}

	t := turn{
		request: req,
		project: project,
		logger:  r.logger.With("project_id", req.ProjectID, "session_id", req.SessionID),
	}

	if req.WorkflowState == nil {
		return models.TurnResponse{Response: r.chat(ctx, t)}, nil
	}

	definition := project.Workflow
	if definition == nil {
		definition = models.NewDefaultWorkflow()
	}

	node, ok := definition.NodeByID(req.WorkflowState.CurrentNodeID)
	if !ok {
		t.logger.WarnContext(ctx, "Delegated node not found", "node_id", req.WorkflowState.CurrentNodeID)

		return nodeResponse([]string{msgInvalidState}, "", nil), nil
	}

	span.SetAttributes(
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)

	t.logger = t.logger.With("node_id", node.ID, "node_type", node.Type)

	next, _ := definition.NextNodeID(node.ID)

	switch node.Type {
	case models.NodeTypeAIAgent:
		return r.runAIAgent(ctx, t, node.AIAgent(), next), nil
	case models.NodeTypeAPICall:
		return r.runAPICall(ctx, t, node.APICall(), next), nil
	case models.NodeTypeHandoff:
		return r.runHandoff(ctx, t, node), nil
	default:
		return nodeResponse([]string{}, next, nil), nil
	}
}

func nodeResponse(messages []string, next string, variables map[string]any) models.TurnResponse {
	return models.TurnResponse{
		Response: strings.Join(messages, "\n\n"),
		NodeResult: &models.TurnNodeResult{
			Messages:   messages,
			NextNodeID: models.NodeRef(next),
			Variables:  variables,
		},
	}
}

func failure(message string) models.TurnResponse {
	return nodeResponse([]string{message}, "", nil)
}

// chat answers a turn that is not bound to a workflow node.
func (r *Runner) chat(ctx context.Context, t turn) string {
	if r.model == nil {
		return llm.Echo(t.request.Query)
	}

	text, err := r.complete(ctx, t, t.request.Query, t.request.Query, nil, true)
	if err != nil {
		t.logger.ErrorContext(ctx, "Chat completion failed", "error", err)

		return msgChatFailed
	}

	return text
}

func (r *Runner) runAIAgent(ctx context.Context, t turn, data *models.AIAgentData, next string) models.TurnResponse {
	query := t.request.Query

	prompt := query
	if strings.TrimSpace(data.Prompt) != "" {
		rendered, err := template.RenderWithState(data.Prompt, query, t.request.WorkflowState)
		if err != nil {
			return failure("Error: " + err.Error())
		}

		prompt = rendered
	}

	if r.model == nil {
		if query == "" {
			query = "No input"
		}

		return nodeResponse([]string{llm.Echo(query)}, next, nil)
	}

	text, err := r.complete(ctx, t, prompt, query, data.Temperature, data.KnowledgeBaseEnabled())
	if err != nil {
		t.logger.ErrorContext(ctx, "AI agent completion failed", "error", err)

		return failure("Error: " + err.Error())
	}

	return nodeResponse([]string{text}, next, nil)
}

// complete calls the model with the persona prompt, optional knowledge context looked
// up by query, and the session's recent history.
func (r *Runner) complete(ctx context.Context, t turn, prompt, query string, temperature *float64, useKnowledge bool) (string, error) {
	system := SystemPrompt(t.project.Persona)

	if useKnowledge && r.knowledge != nil && strings.TrimSpace(query) != "" {
		chunks, err := r.knowledge.Query(ctx, t.project.ID, query, DefaultKnowledgeLimit)
		if err != nil {
			t.logger.WarnContext(ctx, "Knowledge base lookup failed", "error", err)
		}

		system = withContext(system, chunks)
	}

	if temperature == nil {
		defaultTemperature := DefaultTemperature
		temperature = &defaultTemperature
	}

	return r.model.Chat(ctx, llm.Request{
		System:      system,
		History:     r.recentHistory(ctx, t),
		Prompt:      prompt,
		Temperature: temperature,
	})
}

func (r *Runner) recentHistory(ctx context.Context, t turn) []models.ChatMessage {
	if r.history == nil || t.request.SessionID == "" {
		return nil
	}

	history, err := r.history.History(ctx, t.request.ProjectID, t.request.SessionID)
	if err != nil {
		t.logger.WarnContext(ctx, "Failed to load chat history", "error", err)

		return nil
	}

	if len(history) > DefaultHistoryWindow {
		history = history[len(history)-DefaultHistoryWindow:]
	}

	return history
}

func (r *Runner) runAPICall(ctx context.Context, t turn, data *models.APICallData, next string) models.TurnResponse {
	if strings.TrimSpace(data.URL) == "" {
		return failure(msgNoURL)
	}

	body, err := r.callAPI(ctx, t, data)
	if err != nil {
		t.logger.WarnContext(ctx, "API call failed", "error", err)

		return failure("API Error: " + err.Error())
	}

	variable := data.ResponseVariable
	if variable == "" {
		variable = DefaultResponseVariable
	}

	return nodeResponse([]string{}, next, map[string]any{variable: body})
}

func (r *Runner) render(t turn, input string) (string, error) {
	return template.RenderWithState(input, t.request.Query, t.request.WorkflowState)
}

func (r *Runner) callAPI(ctx context.Context, t turn, data *models.APICallData) (string, error) {
	target, err := r.render(t, data.URL)
	if err != nil {
		return "", fmt.Errorf("failed to render url: %w", err)
	}

	if !URLAllowed(target, t.project.APIWhitelist) {
		return "", fmt.Errorf("%w: %s", ErrHostNotAllowed, target)
	}

	method := strings.ToUpper(strings.TrimSpace(data.Method))
	if method == "" {
		method = http.MethodGet
	}

	var payload io.Reader

	switch method {
	case http.MethodGet, http.MethodDelete:
	case http.MethodPost, http.MethodPut:
		rendered, err := r.render(t, data.Body)
		if err != nil {
			return "", fmt.Errorf("failed to render body: %w", err)
		}

		payload = strings.NewReader(rendered)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	ctx, cancel := context.WithTimeout(ctx, r.apiTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return "", err
	}

	for key, value := range data.Headers {
		rendered, err := r.render(t, value)
		if err != nil {
			return "", fmt.Errorf("failed to render header %s: %w", key, err)
		}

		req.Header.Set(key, rendered)
	}

	resp, err := r.clientFor(t.project.APIWhitelist).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	t.logger.DebugContext(ctx, "API call finished", "method", method, "status", resp.StatusCode)

	return string(raw), nil
}

// clientFor returns a copy of the runner's client that checks every redirect hop
// against the whitelist.
func (r *Runner) clientFor(whitelist []string) *http.Client {
	client := *r.httpClient
	next := r.httpClient.CheckRedirect

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if !URLAllowed(req.URL.String(), whitelist) {
			return fmt.Errorf("%w: redirect to %s", ErrHostNotAllowed, req.URL.Host)
		}

		if next != nil {
			return next(req, via)
		}

		if len(via) >= maxAPIRedirects {
			return ErrTooManyRedirects
		}

		return nil
	}

	return &client
}

func (r *Runner) runHandoff(ctx context.Context, t turn, node *models.WorkflowNode) models.TurnResponse {
	data := node.Handoff()

	message := data.Message
	if message == "" {
		message = DefaultHandoffMessage
	}

	target := string(data.Target)
	if target == "" {
		target = string(models.HandoffTargetHuman)
	}

	var variables map[string]any
	if t.request.WorkflowState != nil {
		variables = t.request.WorkflowState.Variables
	}

	event := events.NewHandoffRequested(t.project.ID, t.request.SessionID, node.ID, target, data.TargetID, message, variables)
	if err := r.publisher.Publish(ctx, t.project.ID, event); err != nil {
		t.logger.ErrorContext(ctx, "Failed to publish handoff event", "error", err)
	}

	t.logger.InfoContext(ctx, "Handoff requested", "target", target)

	return nodeResponse([]string{message}, "", nil)
}
