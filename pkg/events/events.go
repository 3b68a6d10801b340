// Package events defines the conversation and project lifecycle notifications published
// on the event bus.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every chatflow event.
const Topic = "chatflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ConversationStartedEvent   EventType = "conversation.started"
	ConversationCompletedEvent EventType = "conversation.completed"
	HandoffRequestedEvent      EventType = "handoff.requested"
	WorkflowUpdatedEvent       EventType = "workflow.updated"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	ProjectID string         `json:"project_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func newBaseEvent(eventType EventType, projectID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		ProjectID: projectID,
	}
}

// ConversationStarted is published when a session runs its first turn.
type ConversationStarted struct {
	BaseEvent

	SessionID string `json:"session_id"`
}

func (e ConversationStarted) GetType() EventType {
	return ConversationStartedEvent
}

func NewConversationStarted(projectID, sessionID string) ConversationStarted {
	return ConversationStarted{
		BaseEvent: newBaseEvent(ConversationStartedEvent, projectID),
		SessionID: sessionID,
	}
}

// ConversationCompleted is published when a turn reaches the end of the workflow.
type ConversationCompleted struct {
	BaseEvent

	SessionID     string         `json:"session_id"`
	LastNodeID    string         `json:"last_node_id"`
	Variables     map[string]any `json:"variables,omitempty"`
	NodesExecuted int            `json:"nodes_executed"`
}

func (e ConversationCompleted) GetType() EventType {
	return ConversationCompletedEvent
}

func NewConversationCompleted(projectID, sessionID, lastNodeID string, variables map[string]any, nodesExecuted int) ConversationCompleted {
	return ConversationCompleted{
		BaseEvent:     newBaseEvent(ConversationCompletedEvent, projectID),
		SessionID:     sessionID,
		LastNodeID:    lastNodeID,
		Variables:     variables,
		NodesExecuted: nodesExecuted,
	}
}

// HandoffRequested asks a human agent or another workflow to take over a session.
type HandoffRequested struct {
	BaseEvent

	SessionID string         `json:"session_id"`
	NodeID    string         `json:"node_id"`
	Target    string         `json:"target"`
	TargetID  string         `json:"target_id,omitempty"`
	Message   string         `json:"message"`
	Variables map[string]any `json:"variables,omitempty"`
}

func (e HandoffRequested) GetType() EventType {
	return HandoffRequestedEvent
}

func NewHandoffRequested(projectID, sessionID, nodeID, target, targetID, message string, variables map[string]any) HandoffRequested {
	return HandoffRequested{
		BaseEvent: newBaseEvent(HandoffRequestedEvent, projectID),
		SessionID: sessionID,
		NodeID:    nodeID,
		Target:    target,
		TargetID:  targetID,
		Message:   message,
		Variables: variables,
	}
}

// WorkflowUpdated is published after a project's workflow definition is replaced.
type WorkflowUpdated struct {
	BaseEvent

	Valid    bool `json:"valid"`
	Errors   int  `json:"errors"`
	Warnings int  `json:"warnings"`
	Nodes    int  `json:"nodes"`
}

func (e WorkflowUpdated) GetType() EventType {
	return WorkflowUpdatedEvent
}

func NewWorkflowUpdated(projectID string, valid bool, errors, warnings, nodes int) WorkflowUpdated {
	return WorkflowUpdated{
		BaseEvent: newBaseEvent(WorkflowUpdatedEvent, projectID),
		Valid:     valid,
		Errors:    errors,
		Warnings:  warnings,
		Nodes:     nodes,
	}
}

// New returns an empty event value for decoding a payload of the given type.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case ConversationStartedEvent:
		return &ConversationStarted{}, true
	case ConversationCompletedEvent:
		return &ConversationCompleted{}, true
	case HandoffRequestedEvent:
		return &HandoffRequested{}, true
	case WorkflowUpdatedEvent:
		return &WorkflowUpdated{}, true
	default:
		return nil, false
	}
}
