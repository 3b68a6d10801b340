package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationFields(err error) map[string]string {
	fields := map[string]string{}

	var target validator.ValidationErrors
	if errors.As(err, &target) {
		for _, fieldErr := range target {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
	}

	return fields
}

func TestProject_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	tests := []struct {
		name    string
		project Project
		fields  map[string]string
	}{
		{
			name:    "valid project",
			project: Project{Name: "Support bot", Owner: "user-1", WebsiteURL: "https://shop.example.com"},
			fields:  map[string]string{},
		},
		{
			name:    "short name",
			project: Project{Name: "ab", Owner: "user-1"},
			fields:  map[string]string{"Name": "min"},
		},
		{
			name:    "missing owner",
			project: Project{Name: "Support bot"},
			fields:  map[string]string{"Owner": "required"},
		},
		{
			name:    "bad website url",
			project: Project{Name: "Support bot", Owner: "user-1", WebsiteURL: "not a url"},
			fields:  map[string]string{"WebsiteURL": "url"},
		},
		{
			name: "unknown persona tone",
			project: Project{Name: "Support bot", Owner: "user-1", Persona: &Persona{Tone: "grumpy"}},
			fields:  map[string]string{"Tone": "oneof"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.project)
			assert.Equal(t, tt.fields, validationFields(err))
		})
	}
}

func TestWorkflowNode_UnmarshalJSON_DispatchesOnType(t *testing.T) {
	raw := `{
		"nodes": [
			{"id": "s", "type": "start", "position": {"x": 1, "y": 2}, "data": {"label": "Start"}},
			{"id": "m", "type": "message", "data": {"message": "Hi"}},
			{"id": "c", "type": "condition", "data": {"conditions": [
				{"type": "keyword", "value": "refund", "targetNodeId": "m"}
			], "defaultTargetNodeId": "e"}},
			{"id": "a", "type": "ai-agent", "data": {}},
			{"id": "v", "type": "variable-set", "data": {"variableName": "x", "value": "42"}},
			{"id": "e", "type": "end"}
		],
		"edges": [{"id": "e1", "source": "s", "target": "m"}]
	}`

	var def WorkflowDefinition
	require.NoError(t, json.Unmarshal([]byte(raw), &def))
	require.Len(t, def.Nodes, 6)

	assert.IsType(t, &StartData{}, def.Nodes[0].Data)
	assert.Equal(t, Position{X: 1, Y: 2}, def.Nodes[0].Position)
	assert.Equal(t, "Hi", def.Nodes[1].Message().Message)

	cond := def.Nodes[2].Condition()
	require.Len(t, cond.Conditions, 1)
	assert.Equal(t, ConditionTypeKeyword, cond.Conditions[0].Type)
	assert.Equal(t, "e", cond.DefaultTargetNodeID)

	assert.True(t, def.Nodes[3].AIAgent().KnowledgeBaseEnabled())
	assert.Equal(t, "42", def.Nodes[4].VariableSet().Value)
	assert.IsType(t, &EndData{}, def.Nodes[5].Data)
}

func TestWorkflowNode_UnmarshalJSON_UnknownType(t *testing.T) {
	var node WorkflowNode
	err := json.Unmarshal([]byte(`{"id": "x", "type": "teleport"}`), &node)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestWorkflowNode_MarshalJSON_RoundTripsData(t *testing.T) {
	def := NewDefaultWorkflow()

	encoded, err := json.Marshal(def)
	require.NoError(t, err)

	var decoded WorkflowDefinition
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	assert.Equal(t, def.Nodes, decoded.Nodes)
	assert.Equal(t, def.Edges, decoded.Edges)
}

func TestWorkflowNode_MarshalJSON_NilDataIsEmptyObject(t *testing.T) {
	encoded, err := json.Marshal(&WorkflowNode{ID: "e", Type: NodeTypeEnd})
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":"e","type":"end","position":{"x":0,"y":0},"data":{}}`, string(encoded))
}

func TestWorkflowNode_TypedAccessorOnMismatchedData(t *testing.T) {
	node := &WorkflowNode{ID: "m", Type: NodeTypeMessage, Data: &InputData{Prompt: "?"}}

	assert.Equal(t, "", node.Message().Message)
}

func TestExecutionLocationFor(t *testing.T) {
	delegated := map[NodeType]bool{
		NodeTypeAIAgent: true,
		NodeTypeAPICall: true,
		NodeTypeHandoff: true,
	}

	for _, nodeType := range NodeTypes {
		t.Run(string(nodeType), func(t *testing.T) {
			assert.Equal(t, delegated[nodeType], nodeType.IsDelegated())
		})
	}

	assert.False(t, NodeType("teleport").IsValid())
}

func TestWorkflowDefinition_NextNodeID_FirstEdgeWins(t *testing.T) {
	def := &WorkflowDefinition{
		Nodes: []*WorkflowNode{{ID: "a", Type: NodeTypeMessage}},
		Edges: []*WorkflowEdge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "a", Target: "c"},
		},
	}

	next, ok := def.NextNodeID("a")
	assert.True(t, ok)
	assert.Equal(t, "b", next)

	_, ok = def.NextNodeID("b")
	assert.False(t, ok)
}

func TestExecutionState_CloneIsIndependent(t *testing.T) {
	state := &ExecutionState{
		CurrentNodeID:    "a",
		Variables:        map[string]any{"x": 1},
		ExecutionHistory: []string{"start"},
	}

	clone := state.Clone()
	clone.Variables["x"] = 2
	clone.ExecutionHistory[0] = "changed"

	assert.Equal(t, 1, state.Variables["x"])
	assert.Equal(t, "start", state.ExecutionHistory[0])
}
