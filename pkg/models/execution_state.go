package models

// ExecutionState is the per-session runtime state of a workflow conversation.
type ExecutionState struct {
	CurrentNodeID    string         `json:"currentNodeId"`
	Variables        map[string]any `json:"variables"`
	ExecutionHistory []string       `json:"executionHistory"`
	UserInput        string         `json:"userInput,omitempty"`
	// Completed is set once a turn of the session has completed the workflow.
	Completed bool `json:"completed,omitempty"`
}

// NewExecutionState seeds a fresh state with the definition's declared variables.
func NewExecutionState(def *WorkflowDefinition) *ExecutionState {
	return &ExecutionState{
		Variables:        def.InitialVariables(),
		ExecutionHistory: []string{},
	}
}

// Clone returns a copy whose maps and slices are not shared with s.
func (s *ExecutionState) Clone() *ExecutionState {
	if s == nil {
		return nil
	}

	clone := &ExecutionState{
		CurrentNodeID:    s.CurrentNodeID,
		Variables:        make(map[string]any, len(s.Variables)),
		ExecutionHistory: make([]string, len(s.ExecutionHistory)),
		UserInput:        s.UserInput,
		Completed:        s.Completed,
	}

	for k, v := range s.Variables {
		clone.Variables[k] = v
	}

	copy(clone.ExecutionHistory, s.ExecutionHistory)

	return clone
}

// NodeExecutionResult is what a turn reports back to the conversation host.
type NodeExecutionResult struct {
	Messages      []string       `json:"messages"`
	NextNodeID    *string        `json:"nextNodeId"`
	Variables     map[string]any `json:"variables,omitempty"`
	RequiresInput bool           `json:"requiresInput,omitempty"`
	IsComplete    bool           `json:"isComplete"`
}

// NodeRef returns a pointer to id, or nil when id is empty.
func NodeRef(id string) *string {
	if id == "" {
		return nil
	}

	return &id
}

// DerefNodeID returns the node id or "" for nil.
func DerefNodeID(id *string) string {
	if id == nil {
		return ""
	}

	return *id
}
