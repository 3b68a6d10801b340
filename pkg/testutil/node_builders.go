// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"fmt"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNode creates a test WorkflowNode with default values that can be overridden.
func CreateTestNode(nodeType models.NodeType, overrides ...func(*models.WorkflowNode)) *models.WorkflowNode {
	data, err := models.NewNodeData(nodeType)
	if err != nil {
		panic(err)
	}

	node := &models.WorkflowNode{
		ID:       uuid.New().String(),
		Type:     nodeType,
		Position: models.Position{X: 100, Y: 200},
		Data:     data,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node id.
func WithID(id string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.ID = id
	}
}

// WithData replaces the node data.
func WithData(data models.NodeData) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Data = data
	}
}

func Start(id string) *models.WorkflowNode {
	return CreateTestNode(models.NodeTypeStart, WithID(id))
}

func Message(id, text string) *models.WorkflowNode {
	return CreateTestNode(models.NodeTypeMessage, WithID(id), WithData(&models.MessageData{Message: text}))
}

func Input(id, prompt string) *models.WorkflowNode {
	return CreateTestNode(models.NodeTypeInput, WithID(id), WithData(&models.InputData{Prompt: prompt}))
}

func Condition(id, defaultTarget string, conditions ...models.Condition) *models.WorkflowNode {
	return CreateTestNode(models.NodeTypeCondition, WithID(id), WithData(&models.ConditionData{
		Conditions:          conditions,
		DefaultTargetNodeID: defaultTarget,
	}))
}

func SetVariable(id, name string, value any) *models.WorkflowNode {
	return CreateTestNode(models.NodeTypeVariableSet, WithID(id), WithData(&models.VariableSetData{
		VariableName: name,
		Value:        value,
		ValueType:    models.VariableValueStatic,
	}))
}

func AIAgent(id string) *models.WorkflowNode {
	return CreateTestNode(models.NodeTypeAIAgent, WithID(id))
}

func APICall(id, method, url string) *models.WorkflowNode {
	return CreateTestNode(models.NodeTypeAPICall, WithID(id), WithData(&models.APICallData{Method: method, URL: url}))
}

func Handoff(id, message string) *models.WorkflowNode {
	return CreateTestNode(models.NodeTypeHandoff, WithID(id), WithData(&models.HandoffData{
		Target:  models.HandoffTargetHuman,
		Message: message,
	}))
}

func End(id string) *models.WorkflowNode {
	return CreateTestNode(models.NodeTypeEnd, WithID(id))
}

// Edge connects source to target with a deterministic id.
func Edge(source, target string) *models.WorkflowEdge {
	return &models.WorkflowEdge{ID: fmt.Sprintf("e-%s-%s", source, target), Source: source, Target: target}
}

// Chain builds a definition that connects the given nodes in order.
func Chain(nodes ...*models.WorkflowNode) *models.WorkflowDefinition {
	def := &models.WorkflowDefinition{Nodes: nodes, Variables: map[string]any{}}

	for i := 0; i+1 < len(nodes); i++ {
		def.Edges = append(def.Edges, Edge(nodes[i].ID, nodes[i+1].ID))
	}

	return def
}

// Graph builds a definition from explicit nodes and edges.
func Graph(nodes []*models.WorkflowNode, edges ...*models.WorkflowEdge) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{Nodes: nodes, Edges: edges, Variables: map[string]any{}}
}
