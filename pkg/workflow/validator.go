// Package workflow validates conversation workflow graphs and drives conversations
// through them one turn at a time.
package workflow

import (
	"fmt"
	"strings"

	"github.com/dukex/chatflow/pkg/models"
)

// Severity of a validation finding. Only errors make a workflow invalid.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationFinding is a single problem reported by Validate.
type ValidationFinding struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	NodeID   string   `json:"nodeId,omitempty"`
}

// ValidationResult is the full report of Validate.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Findings []ValidationFinding `json:"findings"`
}

// Errors returns only the error severity findings.
func (r ValidationResult) Errors() []ValidationFinding {
	return r.filter(SeverityError)
}

// Warnings returns only the warning severity findings.
func (r ValidationResult) Warnings() []ValidationFinding {
	return r.filter(SeverityWarning)
}

func (r ValidationResult) filter(severity Severity) []ValidationFinding {
	var out []ValidationFinding

	for _, f := range r.Findings {
		if f.Severity == severity {
			out = append(out, f)
		}
	}

	return out
}

const (
	msgNoStart          = "Workflow must have exactly one Start node"
	msgManyStarts       = "Workflow can only have one Start node"
	msgCycle            = "Workflow contains a cycle. Make sure this is intentional."
	msgMessageRequired  = "Message node must have a message"
	msgConditionMissing = "Condition node must have at least one condition"
	msgAPIURLRequired   = "API Call node must have a URL"
	msgVariableName     = "Variable Set node must have a variable name"
)

// Validate checks a workflow definition. It never mutates def and never fails: every
// problem, however malformed the input, is reported as a finding.
//
// Findings are emitted in this order: start node cardinality, one connectivity warning
// per disconnected non-start node in list order, at most one cycle warning, then per-node
// configuration errors in list order.
func Validate(def *models.WorkflowDefinition) ValidationResult {
	if def == nil {
		def = &models.WorkflowDefinition{}
	}

	findings := []ValidationFinding{}

	switch starts := len(def.NodesOfType(models.NodeTypeStart)); {
	case starts == 0:
		findings = append(findings, ValidationFinding{Severity: SeverityError, Message: msgNoStart})
	case starts > 1:
		findings = append(findings, ValidationFinding{Severity: SeverityError, Message: msgManyStarts})
	}

	for _, node := range def.Nodes {
		if node == nil || node.Type == models.NodeTypeStart {
			continue
		}

		if !def.IsConnected(node.ID) {
			findings = append(findings, ValidationFinding{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Node %q is not connected to the workflow", node.ID),
				NodeID:   node.ID,
			})
		}
	}

	if HasCycle(def) {
		findings = append(findings, ValidationFinding{Severity: SeverityWarning, Message: msgCycle})
	}

	for _, node := range def.Nodes {
		if node == nil {
			continue
		}

		if msg := configurationError(node); msg != "" {
			findings = append(findings, ValidationFinding{Severity: SeverityError, Message: msg, NodeID: node.ID})
		}
	}

	valid := true

	for _, f := range findings {
		if f.Severity == SeverityError {
			valid = false

			break
		}
	}

	return ValidationResult{Valid: valid, Findings: findings}
}

func configurationError(node *models.WorkflowNode) string {
	switch node.Type {
	case models.NodeTypeMessage:
		if strings.TrimSpace(node.Message().Message) == "" {
			return msgMessageRequired
		}
	case models.NodeTypeCondition:
		if len(node.Condition().Conditions) == 0 {
			return msgConditionMissing
		}
	case models.NodeTypeAPICall:
		if strings.TrimSpace(node.APICall().URL) == "" {
			return msgAPIURLRequired
		}
	case models.NodeTypeVariableSet:
		if strings.TrimSpace(node.VariableSet().VariableName) == "" {
			return msgVariableName
		}
	}

	return ""
}

// HasCycle runs a depth-first search from every unvisited node in list order, keeping
// a recursion stack; an edge into a node on the stack is a cycle. Edges pointing at ids
// that are not nodes are still followed.
func HasCycle(def *models.WorkflowDefinition) bool {
	adjacency := make(map[string][]string)

	for _, edge := range def.Edges {
		if edge == nil {
			continue
		}

		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(id string) bool

	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true

		for _, next := range adjacency[id] {
			if onStack[next] {
				return true
			}

			if !visited[next] && visit(next) {
				return true
			}
		}

		onStack[id] = false

		return false
	}

	for _, node := range def.Nodes {
		if node == nil || visited[node.ID] {
			continue
		}

		if visit(node.ID) {
			return true
		}
	}

	return false
}
