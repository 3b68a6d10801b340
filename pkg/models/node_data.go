package models

// NodeData is the type specific configuration of a node. Only pointers to the structs
// below implement it.
type NodeData interface {
	NodeType() NodeType
}

type StartData struct {
	Label string `json:"label,omitempty"`
}

type MessageData struct {
	Label   string `json:"label,omitempty"`
	Message string `json:"message"`
}

// InputValidation constrains the text accepted by an input node.
type InputValidation struct {
	Required  bool   `json:"required,omitempty"`
	MinLength int    `json:"minLength,omitempty"`
	MaxLength int    `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

type InputData struct {
	Label      string           `json:"label,omitempty"`
	Prompt     string           `json:"prompt,omitempty"`
	Validation *InputValidation `json:"validation,omitempty"`
}

type ConditionType string

const (
	ConditionTypeKeyword  ConditionType = "keyword"
	ConditionTypeRegex    ConditionType = "regex"
	ConditionTypeVariable ConditionType = "variable"
	ConditionTypeCustom   ConditionType = "custom" // Reserved, never matches
)

// Condition is one branch of a condition node.
type Condition struct {
	ID           string        `json:"id,omitempty"`
	Type         ConditionType `json:"type"`
	Value        string        `json:"value"`
	TargetNodeID string        `json:"targetNodeId"`
	Label        string        `json:"label,omitempty"`
}

type ConditionData struct {
	Label               string      `json:"label,omitempty"`
	Conditions          []Condition `json:"conditions"`
	DefaultTargetNodeID string      `json:"defaultTargetNodeId,omitempty"`
}

type AIAgentData struct {
	Label            string   `json:"label,omitempty"`
	Prompt           string   `json:"prompt,omitempty"`
	UseKnowledgeBase *bool    `json:"useKnowledgeBase,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

// KnowledgeBaseEnabled defaults to true when the flag is absent.
func (d *AIAgentData) KnowledgeBaseEnabled() bool {
	return d.UseKnowledgeBase == nil || *d.UseKnowledgeBase
}

type APICallData struct {
	Label            string            `json:"label,omitempty"`
	Method           string            `json:"method,omitempty"`
	URL              string            `json:"url"`
	Headers          map[string]string `json:"headers,omitempty"`
	Body             string            `json:"body,omitempty"`
	ResponseVariable string            `json:"responseVariable,omitempty"`
}

type VariableValueType string

const (
	VariableValueStatic     VariableValueType = "static"
	VariableValueExpression VariableValueType = "expression"
)

type VariableSetData struct {
	Label        string            `json:"label,omitempty"`
	VariableName string            `json:"variableName"`
	Value        any               `json:"value"`
	ValueType    VariableValueType `json:"valueType,omitempty"`
}

type HandoffTarget string

const (
	HandoffTargetHuman    HandoffTarget = "human"
	HandoffTargetWorkflow HandoffTarget = "workflow"
)

type HandoffData struct {
	Label    string        `json:"label,omitempty"`
	Target   HandoffTarget `json:"target,omitempty"`
	TargetID string        `json:"targetId,omitempty"`
	Message  string        `json:"message,omitempty"`
}

type EndData struct {
	Label string `json:"label,omitempty"`
}

func (*StartData) NodeType() NodeType       { return NodeTypeStart }
func (*MessageData) NodeType() NodeType     { return NodeTypeMessage }
func (*InputData) NodeType() NodeType       { return NodeTypeInput }
func (*ConditionData) NodeType() NodeType   { return NodeTypeCondition }
func (*AIAgentData) NodeType() NodeType     { return NodeTypeAIAgent }
func (*APICallData) NodeType() NodeType     { return NodeTypeAPICall }
func (*VariableSetData) NodeType() NodeType { return NodeTypeVariableSet }
func (*HandoffData) NodeType() NodeType     { return NodeTypeHandoff }
func (*EndData) NodeType() NodeType         { return NodeTypeEnd }
