// Package models defines the conversation workflow graph, its runtime state and the
// project record that embeds it.
package models

// NodeType identifies the behavior of a workflow node.
type NodeType string

const (
	NodeTypeStart       NodeType = "start"
	NodeTypeMessage     NodeType = "message"
	NodeTypeInput       NodeType = "input"
	NodeTypeCondition   NodeType = "condition"
	NodeTypeAIAgent     NodeType = "ai-agent"
	NodeTypeAPICall     NodeType = "api-call"
	NodeTypeVariableSet NodeType = "variable-set"
	NodeTypeHandoff     NodeType = "handoff"
	NodeTypeEnd         NodeType = "end"
)

// NodeTypes lists every supported node type in palette order.
var NodeTypes = []NodeType{
	NodeTypeStart,
	NodeTypeMessage,
	NodeTypeInput,
	NodeTypeCondition,
	NodeTypeAIAgent,
	NodeTypeAPICall,
	NodeTypeVariableSet,
	NodeTypeHandoff,
	NodeTypeEnd,
}

func (t NodeType) IsValid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}

	return false
}

// ExecutionLocation says which side of the hybrid engine runs a node.
type ExecutionLocation string

const (
	ExecutionLocationFrontend ExecutionLocation = "frontend" // Executed by the local executor
	ExecutionLocationBackend  ExecutionLocation = "backend"  // Delegated to the backend turn endpoint
)

// ExecutionLocationFor is the partition table between local and delegated node types.
func ExecutionLocationFor(t NodeType) ExecutionLocation {
	switch t {
	case NodeTypeAIAgent, NodeTypeAPICall, NodeTypeHandoff:
		return ExecutionLocationBackend
	default:
		return ExecutionLocationFrontend
	}
}

// IsDelegated reports whether nodes of this type must run on the backend.
func (t NodeType) IsDelegated() bool {
	return ExecutionLocationFor(t) == ExecutionLocationBackend
}

// Position is the editor canvas coordinate of a node. It has no execution semantics.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WorkflowEdge is a directed connection between two nodes.
type WorkflowEdge struct {
	ID           string `json:"id"                     validate:"required"`
	Source       string `json:"source"                 validate:"required"`
	Target       string `json:"target"                 validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty"` // Branch discriminator, informational only
	Label        string `json:"label,omitempty"`
}

// WorkflowDefinition is the full conversation graph edited by the workflow builder.
type WorkflowDefinition struct {
	Nodes     []*WorkflowNode `json:"nodes"`
	Edges     []*WorkflowEdge `json:"edges"`
	Variables map[string]any  `json:"variables,omitempty"` // Initial values copied into each session
}

// NodeByID returns the node with the given id.
func (d *WorkflowDefinition) NodeByID(id string) (*WorkflowNode, bool) {
	if d == nil {
		return nil, false
	}

	for _, node := range d.Nodes {
		if node != nil && node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// StartNode returns the first start node in list order.
func (d *WorkflowDefinition) StartNode() (*WorkflowNode, bool) {
	if d == nil {
		return nil, false
	}

	for _, node := range d.Nodes {
		if node != nil && node.Type == NodeTypeStart {
			return node, true
		}
	}

	return nil, false
}

// NodesOfType returns all nodes of the given type in list order.
func (d *WorkflowDefinition) NodesOfType(t NodeType) []*WorkflowNode {
	var nodes []*WorkflowNode

	if d == nil {
		return nodes
	}

	for _, node := range d.Nodes {
		if node != nil && node.Type == t {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

// OutgoingEdges returns the edges leaving nodeID in list order.
func (d *WorkflowDefinition) OutgoingEdges(nodeID string) []*WorkflowEdge {
	var edges []*WorkflowEdge

	if d == nil {
		return edges
	}

	for _, edge := range d.Edges {
		if edge != nil && edge.Source == nodeID {
			edges = append(edges, edge)
		}
	}

	return edges
}

// NextNodeID follows the first outgoing edge of nodeID. Nodes with several outgoing
// edges and no branching semantics of their own are not disambiguated further.
func (d *WorkflowDefinition) NextNodeID(nodeID string) (string, bool) {
	edges := d.OutgoingEdges(nodeID)
	if len(edges) == 0 {
		return "", false
	}

	return edges[0].Target, true
}

// IsConnected reports whether nodeID is the source or target of at least one edge.
func (d *WorkflowDefinition) IsConnected(nodeID string) bool {
	if d == nil {
		return false
	}

	for _, edge := range d.Edges {
		if edge != nil && (edge.Source == nodeID || edge.Target == nodeID) {
			return true
		}
	}

	return false
}

// InitialVariables returns a copy of the declared variables.
func (d *WorkflowDefinition) InitialVariables() map[string]any {
	vars := make(map[string]any)

	if d == nil {
		return vars
	}

	for k, v := range d.Variables {
		vars[k] = v
	}

	return vars
}
