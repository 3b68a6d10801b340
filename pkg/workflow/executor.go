package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/metrics"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgInvalidState     = "Error: Invalid workflow state"
	msgDelegateFailed   = "Error executing workflow"
	msgStepLimit        = "Error: Workflow exceeded the step limit for this turn"
	msgNoMessage        = "No message"
	msgNoResponse       = "No response"
	defaultInputPrompt  = "Please enter your message"
	msgInvalidInput     = "Please enter a valid response."
	msgInputTooShortFmt = "Please enter at least %d characters."
	msgInputTooLongFmt  = "Please enter no more than %d characters."
)

var (
	ErrNoDelegate    = errors.New("no backend delegate configured")
	ErrDelegatePanic = errors.New("backend delegate panicked")
)

// Delegate executes node types that cannot run locally. Implementations are the HTTP
// client of the backend turn endpoint and the in-process backend runner.
type Delegate interface {
	RunBackendStep(ctx context.Context, req models.TurnRequest) (models.TurnResponse, error)
}

// DelegateFunc adapts a function to the Delegate interface.
type DelegateFunc func(ctx context.Context, req models.TurnRequest) (models.TurnResponse, error)

func (f DelegateFunc) RunBackendStep(ctx context.Context, req models.TurnRequest) (models.TurnResponse, error) {
	return f(ctx, req)
}

// Executor drives one conversation session through a workflow definition.
//
// A turn keeps stepping through nodes until a node pauses for input, the graph
// completes, or the per-turn step limit is reached. Messages of every step are returned
// together. Failures never escape as errors: they become messages on a completed turn.
//
// An Executor is owned by a single session and is not safe for concurrent use.
type Executor struct {
	definition *models.WorkflowDefinition
	delegate   Delegate
	state      *models.ExecutionState

	projectID string
	sessionID string

	// inputPending is true between ProcessUserInput and the input node that consumes it.
	inputPending bool

	maxStepsPerTurn int
	historyLimit    int

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

func NewExecutor(definition *models.WorkflowDefinition, delegate Delegate, opts ...Option) *Executor {
	if definition == nil {
		definition = &models.WorkflowDefinition{}
	}

	e := &Executor{
		definition:      definition,
		delegate:        delegate,
		state:           models.NewExecutionState(definition),
		sessionID:       DefaultSessionID,
		maxStepsPerTurn: DefaultMaxStepsPerTurn,
		logger:          log.WithModule("workflow_executor"),
		tracer:          otelhelper.Tracer("github.com/dukex/chatflow/pkg/workflow"),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.logger = e.logger.With("project_id", e.projectID, "session_id", e.sessionID)

	return e
}

// NewExecutorFromState resumes a session whose state was persisted after an earlier turn.
func NewExecutorFromState(definition *models.WorkflowDefinition, state *models.ExecutionState, delegate Delegate, opts ...Option) *Executor {
	return NewExecutor(definition, delegate, append([]Option{WithState(state)}, opts...)...)
}

// State returns a copy of the execution state for the caller to persist.
func (e *Executor) State() *models.ExecutionState {
	return e.state.Clone()
}

// Start enters the workflow at its start node and runs the first turn.
func (e *Executor) Start(ctx context.Context) models.NodeExecutionResult {
	ctx, span := e.startTurnSpan(ctx, "start")
	defer span.End()

	start, ok := e.definition.StartNode()
	if !ok {
		e.logger.WarnContext(ctx, "Workflow has no start node")

		return e.finishTurn(span, "start", models.NodeExecutionResult{Messages: []string{}, IsComplete: true}, 0)
	}

	e.state.CurrentNodeID = start.ID
	e.recordVisit(start.ID)
	e.metrics.RecordNode(string(start.Type), string(models.ExecutionLocationFrontend))

	next, ok := e.definition.NextNodeID(start.ID)
	if !ok {
		e.logger.InfoContext(ctx, "Start node has no outgoing edge", "node_id", start.ID)

		return e.finishTurn(span, "start", models.NodeExecutionResult{Messages: []string{}, IsComplete: true}, 1)
	}

	e.state.CurrentNodeID = next

	result, steps := e.runTurn(ctx)

	return e.finishTurn(span, "start", result, steps+1)
}

// ProcessUserInput stores the user's text and re-runs the current node.
func (e *Executor) ProcessUserInput(ctx context.Context, input string) models.NodeExecutionResult {
	ctx, span := e.startTurnSpan(ctx, "input")
	defer span.End()

	e.state.UserInput = input
	e.inputPending = true

	result, steps := e.runTurn(ctx)

	return e.finishTurn(span, "input", result, steps)
}

// stepResult is the outcome of a single node.
type stepResult struct {
	messages         []string
	next             string
	variablesChanged bool
	requiresInput    bool
	complete         bool
}

func (e *Executor) runTurn(ctx context.Context) (models.NodeExecutionResult, int) {
	messages := []string{}
	variablesChanged := false

	for steps := 0; ; steps++ {
		if steps >= e.maxStepsPerTurn {
			e.logger.WarnContext(ctx, "Turn exceeded step limit",
				"limit", e.maxStepsPerTurn, "node_id", e.state.CurrentNodeID)

			return e.turnResult(append(messages, msgStepLimit), "", variablesChanged, false, true), steps
		}

		step := e.executeCurrentNode(ctx)
		messages = append(messages, step.messages...)
		variablesChanged = variablesChanged || step.variablesChanged

		if step.requiresInput {
			return e.turnResult(messages, e.state.CurrentNodeID, variablesChanged, true, false), steps + 1
		}

		if step.complete || step.next == "" {
			return e.turnResult(messages, "", variablesChanged, false, true), steps + 1
		}

		e.state.CurrentNodeID = step.next
	}
}

func (e *Executor) turnResult(messages []string, next string, variablesChanged, requiresInput, complete bool) models.NodeExecutionResult {
	result := models.NodeExecutionResult{
		Messages:      messages,
		NextNodeID:    models.NodeRef(next),
		RequiresInput: requiresInput,
		IsComplete:    complete,
	}

	if variablesChanged {
		result.Variables = e.State().Variables
	}

	return result
}

func (e *Executor) executeCurrentNode(ctx context.Context) stepResult {
	node, ok := e.definition.NodeByID(e.state.CurrentNodeID)
	if !ok {
		e.logger.ErrorContext(ctx, "Current node not found in workflow", "node_id", e.state.CurrentNodeID)

		return stepResult{messages: []string{msgInvalidState}, complete: true}
	}

	e.recordVisit(node.ID)

	location := models.ExecutionLocationFor(node.Type)
	e.metrics.RecordNode(string(node.Type), string(location))

	if location == models.ExecutionLocationBackend {
		return e.executeDelegated(ctx, node)
	}

	return e.executeLocal(node)
}

func (e *Executor) executeLocal(node *models.WorkflowNode) stepResult {
	switch node.Type {
	case models.NodeTypeMessage:
		text := node.Message().Message
		if text == "" {
			text = msgNoMessage
		}

		return e.advance(node, []string{text})
	case models.NodeTypeInput:
		return e.executeInput(node)
	case models.NodeTypeCondition:
		next := SelectBranch(node.Condition(), e.state.UserInput, e.state.Variables)

		return stepResult{next: next, complete: next == ""}
	case models.NodeTypeVariableSet:
		data := node.VariableSet()
		if data.VariableName == "" {
			return e.advance(node, nil)
		}

		e.state.Variables[data.VariableName] = variableValue(data)

		step := e.advance(node, nil)
		step.variablesChanged = true

		return step
	case models.NodeTypeEnd:
		return stepResult{complete: true}
	default:
		return e.advance(node, nil)
	}
}

func (e *Executor) executeInput(node *models.WorkflowNode) stepResult {
	data := node.Input()

	prompt := data.Prompt
	if prompt == "" {
		prompt = defaultInputPrompt
	}

	if !e.inputPending || e.state.UserInput == "" {
		return stepResult{messages: []string{prompt}, requiresInput: true}
	}

	e.inputPending = false

	if problem := validateInput(data.Validation, e.state.UserInput); problem != "" {
		return stepResult{messages: []string{problem, prompt}, requiresInput: true}
	}

	return e.advance(node, nil)
}

func validateInput(v *models.InputValidation, input string) string {
	if v == nil {
		return ""
	}

	length := utf8.RuneCountInString(input)

	if v.MinLength > 0 && length < v.MinLength {
		return fmt.Sprintf(msgInputTooShortFmt, v.MinLength)
	}

	if v.MaxLength > 0 && length > v.MaxLength {
		return fmt.Sprintf(msgInputTooLongFmt, v.MaxLength)
	}

	if v.Pattern != "" {
		re, err := regexp.Compile(v.Pattern)
		if err == nil && !re.MatchString(input) {
			return msgInvalidInput
		}
	}

	return ""
}

// variableValue stores static values verbatim. Expressions are not evaluated; their
// raw text is stored.
func variableValue(data *models.VariableSetData) any {
	return data.Value
}

func (e *Executor) advance(node *models.WorkflowNode, messages []string) stepResult {
	next, ok := e.definition.NextNodeID(node.ID)
	if !ok {
		return stepResult{messages: messages, complete: true}
	}

	return stepResult{messages: messages, next: next}
}

func (e *Executor) executeDelegated(ctx context.Context, node *models.WorkflowNode) stepResult {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.delegate",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	logger := e.logger.With("node_id", node.ID, "node_type", node.Type)

	request := models.TurnRequest{
		Query:     e.state.UserInput,
		ProjectID: e.projectID,
		SessionID: e.sessionID,
		WorkflowState: &models.WorkflowStateSnapshot{
			CurrentNodeID:    node.ID,
			Variables:        e.State().Variables,
			ExecutionHistory: e.State().ExecutionHistory,
		},
	}

	begin := time.Now()

	var (
		response models.TurnResponse
		err      error
	)

	if e.delegate == nil {
		err = ErrNoDelegate
	} else {
		response, err = runDelegate(ctx, e.delegate, request)
	}

	e.metrics.ObserveDelegate(string(node.Type), time.Since(begin), err)

	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Backend delegate failed", "error", err)

		return stepResult{messages: []string{msgDelegateFailed}, complete: true}
	}

	if response.NodeResult == nil {
		text := response.Response
		if text == "" {
			text = msgNoResponse
		}

		return stepResult{messages: []string{text}, complete: true}
	}

	nodeResult := response.NodeResult

	messages := nodeResult.Messages
	if messages == nil {
		messages = []string{response.Response}
	}

	for k, v := range nodeResult.Variables {
		e.state.Variables[k] = v
	}

	next := models.DerefNodeID(nodeResult.NextNodeID)

	logger.DebugContext(ctx, "Backend step finished", "next_node_id", next, "messages", len(messages))

	return stepResult{
		messages:         messages,
		next:             next,
		variablesChanged: len(nodeResult.Variables) > 0,
		complete:         next == "",
	}
}

// runDelegate calls the delegate and turns a panic into an error.
func runDelegate(ctx context.Context, delegate Delegate, request models.TurnRequest) (response models.TurnResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDelegatePanic, r)
		}
	}()

	return delegate.RunBackendStep(ctx, request)
}

func (e *Executor) recordVisit(nodeID string) {
	e.state.ExecutionHistory = append(e.state.ExecutionHistory, nodeID)

	if e.historyLimit > 0 && len(e.state.ExecutionHistory) > e.historyLimit {
		trimmed := make([]string, e.historyLimit)
		copy(trimmed, e.state.ExecutionHistory[len(e.state.ExecutionHistory)-e.historyLimit:])
		e.state.ExecutionHistory = trimmed
	}
}

// nolint:spancheck
func (e *Executor) startTurnSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return otelhelper.StartSpan(ctx, e.tracer, "workflow.turn",
		attribute.String(otelhelper.TurnOperationKey, operation),
		attribute.String(otelhelper.ProjectIDKey, e.projectID),
		attribute.String(otelhelper.SessionIDKey, e.sessionID),
	)
}

func (e *Executor) finishTurn(span trace.Span, operation string, result models.NodeExecutionResult, steps int) models.NodeExecutionResult {
	outcome := "complete"
	if result.RequiresInput {
		outcome = "input"
	}

	span.SetAttributes(
		attribute.Int(otelhelper.TurnStepsKey, steps),
		attribute.Bool(otelhelper.TurnCompleteKey, result.IsComplete),
	)

	e.metrics.RecordTurn(operation, outcome)

	return result
}
