package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownNodeType = errors.New("unknown node type")

// WorkflowNode is a node instance in a workflow graph. Data holds the type specific
// configuration and always matches Type after JSON decoding.
type WorkflowNode struct {
	ID                string            `json:"id"                          validate:"required"`
	Type              NodeType          `json:"type"                        validate:"required"`
	Position          Position          `json:"position"`
	Data              NodeData          `json:"data"`
	ExecutionLocation ExecutionLocation `json:"executionLocation,omitempty"` // Editor hint, see ExecutionLocationFor
}

type workflowNodeJSON struct {
	ID                string            `json:"id"`
	Type              NodeType          `json:"type"`
	Position          Position          `json:"position"`
	Data              json.RawMessage   `json:"data,omitempty"`
	ExecutionLocation ExecutionLocation `json:"executionLocation,omitempty"`
}

// UnmarshalJSON decodes the node and dispatches its data on the node type.
func (n *WorkflowNode) UnmarshalJSON(b []byte) error {
	var raw workflowNodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	data, err := DecodeNodeData(raw.Type, raw.Data)
	if err != nil {
		return fmt.Errorf("node %q: %w", raw.ID, err)
	}

	n.ID = raw.ID
	n.Type = raw.Type
	n.Position = raw.Position
	n.Data = data
	n.ExecutionLocation = raw.ExecutionLocation

	return nil
}

func (n WorkflowNode) MarshalJSON() ([]byte, error) {
	data := []byte("{}")

	if n.Data != nil {
		encoded, err := json.Marshal(n.Data)
		if err != nil {
			return nil, err
		}

		data = encoded
	}

	return json.Marshal(workflowNodeJSON{
		ID:                n.ID,
		Type:              n.Type,
		Position:          n.Position,
		Data:              data,
		ExecutionLocation: n.ExecutionLocation,
	})
}

// NewNodeData returns an empty data value for the given node type.
func NewNodeData(t NodeType) (NodeData, error) {
	switch t {
	case NodeTypeStart:
		return &StartData{}, nil
	case NodeTypeMessage:
		return &MessageData{}, nil
	case NodeTypeInput:
		return &InputData{}, nil
	case NodeTypeCondition:
		return &ConditionData{}, nil
	case NodeTypeAIAgent:
		return &AIAgentData{}, nil
	case NodeTypeAPICall:
		return &APICallData{}, nil
	case NodeTypeVariableSet:
		return &VariableSetData{}, nil
	case NodeTypeHandoff:
		return &HandoffData{}, nil
	case NodeTypeEnd:
		return &EndData{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}
}

// DecodeNodeData decodes raw JSON into the data struct of the given node type.
// Missing or null data yields the empty struct.
func DecodeNodeData(t NodeType, raw json.RawMessage) (NodeData, error) {
	data, err := NewNodeData(t)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return data, nil
	}

	if err := json.Unmarshal(trimmed, data); err != nil {
		return nil, fmt.Errorf("invalid %s data: %w", t, err)
	}

	return data, nil
}

// Typed accessors. Each returns an empty value when Data is missing or of another type,
// so a mismatched node behaves like an unconfigured one.

func (n *WorkflowNode) Message() *MessageData {
	if d, ok := n.Data.(*MessageData); ok && d != nil {
		return d
	}

	return &MessageData{}
}

func (n *WorkflowNode) Input() *InputData {
	if d, ok := n.Data.(*InputData); ok && d != nil {
		return d
	}

	return &InputData{}
}

func (n *WorkflowNode) Condition() *ConditionData {
	if d, ok := n.Data.(*ConditionData); ok && d != nil {
		return d
	}

	return &ConditionData{}
}

func (n *WorkflowNode) AIAgent() *AIAgentData {
	if d, ok := n.Data.(*AIAgentData); ok && d != nil {
		return d
	}

	return &AIAgentData{}
}

func (n *WorkflowNode) APICall() *APICallData {
	if d, ok := n.Data.(*APICallData); ok && d != nil {
		return d
	}

	return &APICallData{}
}

func (n *WorkflowNode) VariableSet() *VariableSetData {
	if d, ok := n.Data.(*VariableSetData); ok && d != nil {
		return d
	}

	return &VariableSetData{}
}

func (n *WorkflowNode) Handoff() *HandoffData {
	if d, ok := n.Data.(*HandoffData); ok && d != nil {
		return d
	}

	return &HandoffData{}
}
