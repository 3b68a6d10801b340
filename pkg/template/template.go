// Package template renders text/template strings against a conversation's workflow
// variables.
package template

import (
	"crypto/rand"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/chatflow/pkg/models"
)

// RenderWithState renders input with the session variables, the last user message and
// the process environment available as .variables (.vars), .query and .env.
func RenderWithState(input string, query string, state *models.WorkflowStateSnapshot) (string, error) {
	if !NeedsTemplating(input) {
		return input, nil
	}

	variables := map[string]any{}
	execution := map[string]any{}

	if state != nil {
		if state.Variables != nil {
			variables = state.Variables
		}

		execution["current_node_id"] = state.CurrentNodeID
		execution["history"] = state.ExecutionHistory
	}

	data := map[string]any{
		"variables": variables,
		"vars":      variables,
		"query":     query,
		"env":       getEnvVars(),
		"execution": execution,
	}

	return Text(input, data)
}

// NeedsTemplating reports whether input contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// Text executes templateStr against data and returns the raw output.
func Text(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("chatflow").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}
				num := make([]byte, 1)
				_, err := rand.Read(num)
				if err != nil {
					return 0
				}

				return int(num[0]) % max
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

// getEnvVars returns environment variables as a map.
func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
