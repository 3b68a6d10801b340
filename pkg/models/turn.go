package models

// WorkflowStateSnapshot is the execution state sent along with a delegated turn.
type WorkflowStateSnapshot struct {
	CurrentNodeID    string         `json:"currentNodeId"`
	Variables        map[string]any `json:"variables"`
	ExecutionHistory []string       `json:"executionHistory"`
}

// TurnRequest is the body of a call to the backend turn endpoint. Without a workflow
// state the request is a plain chat turn answered by the AI agent.
type TurnRequest struct {
	Query         string                 `json:"query"`
	ProjectID     string                 `json:"project_id"               validate:"required"`
	SessionID     string                 `json:"session_id,omitempty"`
	WorkflowState *WorkflowStateSnapshot `json:"workflow_state,omitempty"`
}

// TurnNodeResult is the backend's account of the delegated node it executed.
type TurnNodeResult struct {
	Messages   []string       `json:"messages"`
	NextNodeID *string        `json:"nextNodeId,omitempty"`
	Variables  map[string]any `json:"variables,omitempty"`
}

type TurnResponse struct {
	Response   string          `json:"response"`
	NodeResult *TurnNodeResult `json:"node_result,omitempty"`
}

// ChatMessage is one entry of a session's chat history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
