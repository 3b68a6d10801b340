package models

// NewDefaultWorkflow returns the template a new project starts with: greet the visitor,
// wait for a question and answer it with the AI agent.
func NewDefaultWorkflow() *WorkflowDefinition {
	useKB := true

	return &WorkflowDefinition{
		Nodes: []*WorkflowNode{
			{
				ID:       "start-1",
				Type:     NodeTypeStart,
				Position: Position{X: 250, Y: 50},
				Data:     &StartData{Label: "Start"},
			},
			{
				ID:       "input-1",
				Type:     NodeTypeInput,
				Position: Position{X: 250, Y: 150},
				Data:     &InputData{Label: "User Input", Prompt: "How can I help you?"},
			},
			{
				ID:                "ai-agent-1",
				Type:              NodeTypeAIAgent,
				Position:          Position{X: 250, Y: 250},
				Data:              &AIAgentData{Label: "AI Agent", UseKnowledgeBase: &useKB},
				ExecutionLocation: ExecutionLocationBackend,
			},
			{
				ID:       "end-1",
				Type:     NodeTypeEnd,
				Position: Position{X: 250, Y: 350},
				Data:     &EndData{Label: "End"},
			},
		},
		Edges: []*WorkflowEdge{
			{ID: "e-start-input", Source: "start-1", Target: "input-1"},
			{ID: "e-input-ai", Source: "input-1", Target: "ai-agent-1"},
			{ID: "e-ai-end", Source: "ai-agent-1", Target: "end-1"},
		},
		Variables: map[string]any{},
	}
}
