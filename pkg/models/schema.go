package models

// JSONSchema represents a JSON Schema document or sub-schema.
type JSONSchema struct {
	Type        string               `json:"type,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
}

// Property represents a JSON Schema property
type Property struct {
	Type        string               `json:"type,omitempty"`
	Description string               `json:"description,omitempty"`
	Enum        []any                `json:"enum,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Format      string               `json:"format,omitempty"`
	MinLength   *int                 `json:"minLength,omitempty"`
	MaxLength   *int                 `json:"maxLength,omitempty"`
	Pattern     string               `json:"pattern,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

// NodeTypeInfo describes a node type for the editor palette.
type NodeTypeInfo struct {
	Type              NodeType          `json:"type"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	ExecutionLocation ExecutionLocation `json:"execution_location"`
	Schema            *JSONSchema       `json:"schema"`
}

func minLen(n int) *int { return &n }

func str(description string) *Property {
	return &Property{Type: "string", Description: description}
}

// WorkflowDocumentSchema is the structural schema of a workflow definition document.
// Per-type rules are left to the validator.
func WorkflowDocumentSchema() *JSONSchema {
	nodeTypes := make([]any, 0, len(NodeTypes))
	for _, t := range NodeTypes {
		nodeTypes = append(nodeTypes, string(t))
	}

	return &JSONSchema{
		Type:     "object",
		Title:    "Workflow definition",
		Required: []string{"nodes", "edges"},
		Properties: map[string]*Property{
			"nodes": {
				Type: "array",
				Items: &Property{
					Type:     "object",
					Required: []string{"id", "type"},
					Properties: map[string]*Property{
						"id":   {Type: "string", MinLength: minLen(1)},
						"type": {Type: "string", Enum: nodeTypes},
						"position": {
							Type: "object",
							Properties: map[string]*Property{
								"x": {Type: "number"},
								"y": {Type: "number"},
							},
						},
						"data":              {Type: "object"},
						"executionLocation": {Type: "string", Enum: []any{"frontend", "backend"}},
					},
				},
			},
			"edges": {
				Type: "array",
				Items: &Property{
					Type:     "object",
					Required: []string{"id", "source", "target"},
					Properties: map[string]*Property{
						"id":           {Type: "string", MinLength: minLen(1)},
						"source":       {Type: "string", MinLength: minLen(1)},
						"target":       {Type: "string", MinLength: minLen(1)},
						"sourceHandle": {Type: "string"},
						"label":        {Type: "string"},
					},
				},
			},
			"variables": {Type: "object"},
		},
	}
}

// NodeTypeCatalog lists every node type with the schema of its data.
func NodeTypeCatalog() []NodeTypeInfo {
	conditionItem := &Property{
		Type:     "object",
		Required: []string{"type", "value", "targetNodeId"},
		Properties: map[string]*Property{
			"type":         {Type: "string", Enum: []any{"keyword", "regex", "variable", "custom"}},
			"value":        str("Keyword, pattern or variable name"),
			"targetNodeId": str("Node to continue with when the condition matches"),
			"label":        str(""),
		},
	}

	catalog := []NodeTypeInfo{
		{Type: NodeTypeStart, Name: "Start", Description: "Entry point of the conversation",
			Schema: &JSONSchema{Type: "object"}},
		{Type: NodeTypeMessage, Name: "Message", Description: "Send a fixed message",
			Schema: &JSONSchema{Type: "object", Required: []string{"message"}, Properties: map[string]*Property{
				"message": {Type: "string", MinLength: minLen(1)},
			}}},
		{Type: NodeTypeInput, Name: "User Input", Description: "Ask a question and wait for the reply",
			Schema: &JSONSchema{Type: "object", Properties: map[string]*Property{
				"prompt": str("Question shown to the user"),
				"validation": {Type: "object", Properties: map[string]*Property{
					"required":  {Type: "boolean"},
					"minLength": {Type: "integer"},
					"maxLength": {Type: "integer"},
					"pattern":   {Type: "string", Format: "regex"},
				}},
			}}},
		{Type: NodeTypeCondition, Name: "Condition", Description: "Branch on the reply or a variable",
			Schema: &JSONSchema{Type: "object", Required: []string{"conditions"}, Properties: map[string]*Property{
				"conditions":          {Type: "array", Items: conditionItem},
				"defaultTargetNodeId": str("Node to continue with when nothing matches"),
			}}},
		{Type: NodeTypeAIAgent, Name: "AI Agent", Description: "Answer with the language model",
			Schema: &JSONSchema{Type: "object", Properties: map[string]*Property{
				"prompt":           str("Instruction sent instead of the user's message"),
				"useKnowledgeBase": {Type: "boolean", Default: true},
				"temperature":      {Type: "number"},
			}}},
		{Type: NodeTypeAPICall, Name: "API Call", Description: "Call an external HTTP API",
			Schema: &JSONSchema{Type: "object", Required: []string{"url"}, Properties: map[string]*Property{
				"method":           {Type: "string", Enum: []any{"GET", "POST", "PUT", "DELETE"}, Default: "GET"},
				"url":              {Type: "string", Format: "uri", MinLength: minLen(1)},
				"headers":          {Type: "object"},
				"body":             str("Request body template"),
				"responseVariable": {Type: "string", Default: "api_response"},
			}}},
		{Type: NodeTypeVariableSet, Name: "Set Variable", Description: "Store a value in the session",
			Schema: &JSONSchema{Type: "object", Required: []string{"variableName"}, Properties: map[string]*Property{
				"variableName": {Type: "string", MinLength: minLen(1)},
				"value":        {Description: "Stored as given"},
				"valueType":    {Type: "string", Enum: []any{"static", "expression"}, Default: "static"},
			}}},
		{Type: NodeTypeHandoff, Name: "Handoff", Description: "Transfer the conversation",
			Schema: &JSONSchema{Type: "object", Properties: map[string]*Property{
				"target":   {Type: "string", Enum: []any{"human", "workflow"}},
				"targetId": str(""),
				"message":  {Type: "string", Default: "Transferring to human agent..."},
			}}},
		{Type: NodeTypeEnd, Name: "End", Description: "Finish the conversation",
			Schema: &JSONSchema{Type: "object"}},
	}

	for i := range catalog {
		catalog[i].ExecutionLocation = ExecutionLocationFor(catalog[i].Type)
	}

	return catalog
}
