package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDelegate struct {
	requests []models.TurnRequest
	response models.TurnResponse
	err      error
}

func (d *recordingDelegate) RunBackendStep(_ context.Context, req models.TurnRequest) (models.TurnResponse, error) {
	d.requests = append(d.requests, req)

	return d.response, d.err
}

func newTestExecutor(def *models.WorkflowDefinition, delegate Delegate, opts ...Option) *Executor {
	return NewExecutor(def, delegate, append([]Option{WithLogger(log.Discard())}, opts...)...)
}

func TestExecutor_Start_MessageAndEndCollapse(t *testing.T) {
	def := testutil.Chain(testutil.Start("start-1"), testutil.Message("message-1", "Hi"), testutil.End("end-1"))
	executor := newTestExecutor(def, nil)

	result := executor.Start(context.Background())

	assert.Equal(t, []string{"Hi"}, result.Messages)
	assert.True(t, result.IsComplete)
	assert.False(t, result.RequiresInput)
	assert.Nil(t, result.NextNodeID)
	assert.Equal(t, []string{"start-1", "message-1", "end-1"}, executor.State().ExecutionHistory)
}

func TestExecutor_InputPausesAndResumes(t *testing.T) {
	def := testutil.Chain(testutil.Start("start-1"), testutil.Input("input-1", "Name?"), testutil.End("end-1"))
	executor := newTestExecutor(def, nil)

	first := executor.Start(context.Background())

	assert.Equal(t, []string{"Name?"}, first.Messages)
	assert.True(t, first.RequiresInput)
	assert.False(t, first.IsComplete)
	assert.Equal(t, "input-1", models.DerefNodeID(first.NextNodeID))
	assert.Equal(t, "input-1", executor.State().CurrentNodeID)

	second := executor.ProcessUserInput(context.Background(), "Alice")

	assert.Empty(t, second.Messages)
	assert.True(t, second.IsComplete)
	assert.False(t, second.RequiresInput)
	assert.Equal(t, "Alice", executor.State().UserInput)
}

func TestExecutor_InputDefaultPrompt(t *testing.T) {
	def := testutil.Chain(testutil.Start("s"), testutil.Input("i", ""), testutil.End("e"))

	result := newTestExecutor(def, nil).Start(context.Background())

	assert.Equal(t, []string{"Please enter your message"}, result.Messages)
}

func TestExecutor_MessageWithoutTextFallsBack(t *testing.T) {
	def := testutil.Chain(testutil.Start("s"), testutil.Message("m", ""), testutil.End("e"))

	result := newTestExecutor(def, nil).Start(context.Background())

	assert.Equal(t, []string{"No message"}, result.Messages)
}

func refundWorkflow(conditions ...models.Condition) *models.WorkflowDefinition {
	return testutil.Graph(
		[]*models.WorkflowNode{
			testutil.Start("s"),
			testutil.Input("i", "What do you need?"),
			testutil.Condition("c", "n3", conditions...),
			testutil.Message("n2", "Refund desk"),
			testutil.Message("n3", "General desk"),
			testutil.Message("n4", "Billing desk"),
			testutil.End("e"),
		},
		testutil.Edge("s", "i"),
		testutil.Edge("i", "c"),
		testutil.Edge("n2", "e"),
		testutil.Edge("n3", "e"),
		testutil.Edge("n4", "e"),
	)
}

func TestExecutor_Condition(t *testing.T) {
	tests := []struct {
		name       string
		conditions []models.Condition
		variables  map[string]any
		input      string
		expected   string
	}{
		{
			name:       "keyword matches case insensitive",
			conditions: []models.Condition{{Type: models.ConditionTypeKeyword, Value: "REFUND", TargetNodeID: "n2"}},
			input:      "I want a refund please",
			expected:   "Refund desk",
		},
		{
			name: "first match wins over later match",
			conditions: []models.Condition{
				{Type: models.ConditionTypeKeyword, Value: "refund", TargetNodeID: "n2"},
				{Type: models.ConditionTypeKeyword, Value: "invoice", TargetNodeID: "n4"},
			},
			input:    "refund my invoice",
			expected: "Refund desk",
		},
		{
			name:       "regex matches",
			conditions: []models.Condition{{Type: models.ConditionTypeRegex, Value: `^order\s+#\d+$`, TargetNodeID: "n4"}},
			input:      "  ORDER #123 ",
			expected:   "Billing desk",
		},
		{
			name:       "malformed regex falls back to default",
			conditions: []models.Condition{{Type: models.ConditionTypeRegex, Value: "([a-z", TargetNodeID: "n2"}},
			input:      "abc",
			expected:   "General desk",
		},
		{
			name:       "variable true matches",
			conditions: []models.Condition{{Type: models.ConditionTypeVariable, Value: "vip", TargetNodeID: "n4"}},
			variables:  map[string]any{"vip": true},
			input:      "hello",
			expected:   "Billing desk",
		},
		{
			name:       "variable string true does not match",
			conditions: []models.Condition{{Type: models.ConditionTypeVariable, Value: "vip", TargetNodeID: "n4"}},
			variables:  map[string]any{"vip": "true"},
			input:      "hello",
			expected:   "General desk",
		},
		{
			name:       "custom never matches",
			conditions: []models.Condition{{Type: models.ConditionTypeCustom, Value: "anything", TargetNodeID: "n2"}},
			input:      "anything",
			expected:   "General desk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := refundWorkflow(tt.conditions...)
			def.Variables = tt.variables
			executor := newTestExecutor(def, nil)

			executor.Start(context.Background())
			result := executor.ProcessUserInput(context.Background(), tt.input)

			assert.Equal(t, []string{tt.expected}, result.Messages)
			assert.True(t, result.IsComplete)
		})
	}
}

func TestExecutor_ConditionWithoutMatchOrDefaultCompletes(t *testing.T) {
	def := testutil.Chain(
		testutil.Start("s"),
		testutil.Input("i", "?"),
		testutil.Condition("c", "", models.Condition{Type: models.ConditionTypeKeyword, Value: "yes", TargetNodeID: "m"}),
	)
	def.Nodes = append(def.Nodes, testutil.Message("m", "Yes!"))
	executor := newTestExecutor(def, nil)

	executor.Start(context.Background())
	result := executor.ProcessUserInput(context.Background(), "no")

	assert.Empty(t, result.Messages)
	assert.True(t, result.IsComplete)
	assert.Equal(t, "c", executor.State().CurrentNodeID)
}

func TestExecutor_VariableSetStoresValueVerbatim(t *testing.T) {
	expression := testutil.SetVariable("v2", "total", "{{price * 2}}")
	expression.VariableSet().ValueType = models.VariableValueExpression

	def := testutil.Chain(testutil.Start("s"), testutil.SetVariable("v1", "x", "42"), expression, testutil.End("e"))
	executor := newTestExecutor(def, nil)

	result := executor.Start(context.Background())

	assert.True(t, result.IsComplete)
	assert.Equal(t, map[string]any{"x": "42", "total": "{{price * 2}}"}, result.Variables)
	assert.Equal(t, "42", executor.State().Variables["x"])
}

func TestExecutor_DelegatedNode(t *testing.T) {
	def := testutil.Chain(testutil.Start("s"), testutil.Input("i", "Ask me"), testutil.AIAgent("ai"), testutil.Message("m", "Anything else?"), testutil.End("e"))
	def.Variables = map[string]any{"plan": "pro"}

	delegate := &recordingDelegate{response: models.TurnResponse{
		Response: "top level",
		NodeResult: &models.TurnNodeResult{
			Messages:   []string{"Here is your answer"},
			NextNodeID: models.NodeRef("m"),
			Variables:  map[string]any{"topic": "billing"},
		},
	}}
	executor := newTestExecutor(def, delegate, WithSession("project-1", "session-1"))

	executor.Start(context.Background())
	result := executor.ProcessUserInput(context.Background(), "How much is pro?")

	assert.Equal(t, []string{"Here is your answer", "Anything else?"}, result.Messages)
	assert.True(t, result.IsComplete)
	assert.Equal(t, map[string]any{"plan": "pro", "topic": "billing"}, result.Variables)

	require.Len(t, delegate.requests, 1)
	request := delegate.requests[0]
	assert.Equal(t, "How much is pro?", request.Query)
	assert.Equal(t, "project-1", request.ProjectID)
	assert.Equal(t, "session-1", request.SessionID)
	require.NotNil(t, request.WorkflowState)
	assert.Equal(t, "ai", request.WorkflowState.CurrentNodeID)
	assert.Equal(t, []string{"s", "i", "i", "ai"}, request.WorkflowState.ExecutionHistory)
	assert.Equal(t, map[string]any{"plan": "pro"}, request.WorkflowState.Variables)
}

func TestExecutor_DelegatedResponses(t *testing.T) {
	tests := []struct {
		name     string
		response models.TurnResponse
		err      error
		messages []string
		current  string
	}{
		{
			name:     "node result without messages uses top level response",
			response: models.TurnResponse{Response: "fallback", NodeResult: &models.TurnNodeResult{}},
			messages: []string{"fallback"},
			current:  "ai",
		},
		{
			name:     "node result with empty messages stays empty",
			response: models.TurnResponse{Response: "ignored", NodeResult: &models.TurnNodeResult{Messages: []string{}}},
			messages: []string{},
			current:  "ai",
		},
		{
			name:     "no node result is the sole message",
			response: models.TurnResponse{Response: "plain answer"},
			messages: []string{"plain answer"},
			current:  "ai",
		},
		{
			name:     "delegate failure",
			err:      errors.New("connection refused"),
			messages: []string{"Error executing workflow"},
			current:  "ai",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := testutil.Chain(testutil.Start("s"), testutil.AIAgent("ai"), testutil.End("e"))
			delegate := &recordingDelegate{response: tt.response, err: tt.err}
			executor := newTestExecutor(def, delegate)

			result := executor.Start(context.Background())

			assert.Equal(t, tt.messages, result.Messages)
			assert.True(t, result.IsComplete)
			assert.Nil(t, result.NextNodeID)
			assert.Equal(t, tt.current, executor.State().CurrentNodeID)
		})
	}
}

func TestExecutor_NoDelegateConfigured(t *testing.T) {
	def := testutil.Chain(testutil.Start("s"), testutil.Handoff("h", "Bye"), testutil.End("e"))

	result := newTestExecutor(def, nil).Start(context.Background())

	assert.Equal(t, []string{"Error executing workflow"}, result.Messages)
	assert.True(t, result.IsComplete)
}

func TestExecutor_DelegatePanicEndsTurn(t *testing.T) {
	def := testutil.Chain(testutil.Start("s"), testutil.Input("i", "Ask me"), testutil.AIAgent("ai"), testutil.End("e"))
	delegate := DelegateFunc(func(context.Context, models.TurnRequest) (models.TurnResponse, error) {
		panic("backend exploded")
	})
	executor := newTestExecutor(def, delegate)
	executor.Start(context.Background())

	var result models.NodeExecutionResult

	require.NotPanics(t, func() {
		result = executor.ProcessUserInput(context.Background(), "hello")
	})

	assert.Equal(t, []string{"Error executing workflow"}, result.Messages)
	assert.True(t, result.IsComplete)
}

func TestRunDelegate_RecoversPanic(t *testing.T) {
	delegate := DelegateFunc(func(context.Context, models.TurnRequest) (models.TurnResponse, error) {
		panic("boom")
	})

	_, err := runDelegate(context.Background(), delegate, models.TurnRequest{})

	require.ErrorIs(t, err, ErrDelegatePanic)
	assert.Contains(t, err.Error(), "boom")
}

func TestExecutor_InvalidState(t *testing.T) {
	def := testutil.Chain(testutil.Start("s"), testutil.Input("i", "?"), testutil.End("e"))
	executor := newTestExecutor(def, nil, WithState(&models.ExecutionState{CurrentNodeID: "ghost"}))

	result := executor.ProcessUserInput(context.Background(), "hello")

	assert.Equal(t, []string{"Error: Invalid workflow state"}, result.Messages)
	assert.True(t, result.IsComplete)
}

func TestExecutor_StartWithoutStartNode(t *testing.T) {
	def := testutil.Chain(testutil.Message("m", "Hi"), testutil.End("e"))

	result := newTestExecutor(def, nil).Start(context.Background())

	assert.Empty(t, result.Messages)
	assert.True(t, result.IsComplete)
}

func TestExecutor_StartWithoutOutgoingEdge(t *testing.T) {
	executor := newTestExecutor(testutil.Chain(testutil.Start("s")), nil)

	result := executor.Start(context.Background())

	assert.Empty(t, result.Messages)
	assert.True(t, result.IsComplete)
	assert.Equal(t, []string{"s"}, executor.State().ExecutionHistory)
}

func TestExecutor_LoopBackToInputPromptsAgain(t *testing.T) {
	def := testutil.Graph(
		[]*models.WorkflowNode{testutil.Start("s"), testutil.Input("i", "Say something"), testutil.Message("echo", "Got it")},
		testutil.Edge("s", "i"),
		testutil.Edge("i", "echo"),
		testutil.Edge("echo", "i"),
	)
	executor := newTestExecutor(def, nil)

	executor.Start(context.Background())
	result := executor.ProcessUserInput(context.Background(), "hello")

	assert.Equal(t, []string{"Got it", "Say something"}, result.Messages)
	assert.True(t, result.RequiresInput)
	assert.False(t, result.IsComplete)
}

func TestExecutor_StepLimitStopsLocalCycle(t *testing.T) {
	def := testutil.Graph(
		[]*models.WorkflowNode{testutil.Start("s"), testutil.Message("a", "A"), testutil.Message("b", "B")},
		testutil.Edge("s", "a"),
		testutil.Edge("a", "b"),
		testutil.Edge("b", "a"),
	)
	executor := newTestExecutor(def, nil, WithMaxStepsPerTurn(5))

	result := executor.Start(context.Background())

	assert.Equal(t, []string{"A", "B", "A", "B", "A", "Error: Workflow exceeded the step limit for this turn"}, result.Messages)
	assert.True(t, result.IsComplete)
}

func TestExecutor_HistoryLimit(t *testing.T) {
	def := testutil.Chain(testutil.Start("s"), testutil.Message("a", "A"), testutil.Message("b", "B"), testutil.End("e"))
	executor := newTestExecutor(def, nil, WithHistoryLimit(2))

	executor.Start(context.Background())

	assert.Equal(t, []string{"b", "e"}, executor.State().ExecutionHistory)
}

func TestExecutor_InputValidation(t *testing.T) {
	input := testutil.Input("i", "Your email?")
	input.Input().Validation = &models.InputValidation{MinLength: 3, Pattern: `@`}

	def := testutil.Chain(testutil.Start("s"), input, testutil.Message("ok", "Thanks"), testutil.End("e"))
	executor := newTestExecutor(def, nil)

	executor.Start(context.Background())

	short := executor.ProcessUserInput(context.Background(), "a")
	assert.Equal(t, []string{"Please enter at least 3 characters.", "Your email?"}, short.Messages)
	assert.True(t, short.RequiresInput)

	invalid := executor.ProcessUserInput(context.Background(), "not an email")
	assert.Equal(t, []string{"Please enter a valid response.", "Your email?"}, invalid.Messages)

	valid := executor.ProcessUserInput(context.Background(), "me@example.com")
	assert.Equal(t, []string{"Thanks"}, valid.Messages)
	assert.True(t, valid.IsComplete)
}

func TestExecutor_ResumeFromState(t *testing.T) {
	def := testutil.Chain(testutil.Start("s"), testutil.Input("i", "?"), testutil.Message("m", "Done"), testutil.End("e"))

	first := newTestExecutor(def, nil)
	first.Start(context.Background())
	saved := first.State()

	resumed := newTestExecutor(def, nil, WithState(saved))
	result := resumed.ProcessUserInput(context.Background(), "go")

	assert.Equal(t, []string{"Done"}, result.Messages)
	assert.Equal(t, []string{"s", "i", "i", "m", "e"}, resumed.State().ExecutionHistory)
	assert.Equal(t, []string{"s", "i"}, saved.ExecutionHistory)
}

func TestExecutor_StateIsSnapshot(t *testing.T) {
	def := testutil.Chain(testutil.Start("s"), testutil.SetVariable("v", "x", 1), testutil.Input("i", "?"))
	executor := newTestExecutor(def, nil)
	executor.Start(context.Background())

	first := executor.State()
	second := executor.State()
	assert.Equal(t, first, second)

	first.Variables["x"] = 99
	first.ExecutionHistory[0] = "tampered"

	assert.Equal(t, 1, executor.State().Variables["x"])
	assert.Equal(t, "s", executor.State().ExecutionHistory[0])
}

func TestExecutor_DelegateFuncAdapter(t *testing.T) {
	def := testutil.Chain(testutil.Start("s"), testutil.APICall("api", "GET", "https://api.example.com"), testutil.End("e"))
	delegate := DelegateFunc(func(_ context.Context, req models.TurnRequest) (models.TurnResponse, error) {
		return models.TurnResponse{NodeResult: &models.TurnNodeResult{
			Messages:   []string{},
			NextNodeID: models.NodeRef("e"),
			Variables:  map[string]any{"api_response": `{"ok":true}`},
		}}, nil
	})

	result := newTestExecutor(def, delegate).Start(context.Background())

	assert.Empty(t, result.Messages)
	assert.True(t, result.IsComplete)
	assert.Equal(t, `{"ok":true}`, result.Variables["api_response"])
}
