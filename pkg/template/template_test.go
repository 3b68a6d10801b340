package template

import (
	"testing"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderWithState(t *testing.T) {
	t.Setenv("CHATFLOW_TEST_TOKEN", "secret")

	state := &models.WorkflowStateSnapshot{
		CurrentNodeID: "api-1",
		Variables:     map[string]any{"order_id": "A-17", "qty": 2},
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain text untouched", input: "https://api.example.com/orders", expected: "https://api.example.com/orders"},
		{name: "variables", input: "https://api.example.com/orders/{{.variables.order_id}}", expected: "https://api.example.com/orders/A-17"},
		{name: "vars alias", input: `{"qty": {{.vars.qty}}}`, expected: `{"qty": 2}`},
		{name: "query", input: "q={{.query}}", expected: "q=where is my order"},
		{name: "env", input: "Bearer {{.env.CHATFLOW_TEST_TOKEN}}", expected: "Bearer secret"},
		{name: "execution", input: "{{.execution.current_node_id}}", expected: "api-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := RenderWithState(tt.input, "where is my order", state)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestRenderWithState_ParseError(t *testing.T) {
	_, err := RenderWithState("{{.variables.x", "", nil)

	assert.Error(t, err)
}

func TestText_RandWithinBounds(t *testing.T) {
	out, err := Text("{{rand 1}}", nil)

	require.NoError(t, err)
	assert.Equal(t, "0", out)
}
