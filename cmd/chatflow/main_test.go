package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/session"
	"github.com/dukex/chatflow/pkg/testutil"
	"github.com/dukex/chatflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invalidWorkflow = `
nodes:
  - id: start-1
    type: start
  - id: greet
    type: message
  - id: end-1
    type: end
edges:
  - {id: e1, source: start-1, target: greet}
  - {id: e2, source: greet, target: end-1}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestValidateFile_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.json")
	require.NoError(t, initFile(path, false))

	var out bytes.Buffer
	require.NoError(t, validateFile(&out, path))

	assert.Contains(t, out.String(), "is valid (4 nodes, 0 warnings)")
}

func TestValidateFile_Invalid(t *testing.T) {
	path := writeFile(t, "flow.yaml", invalidWorkflow)

	var out bytes.Buffer
	err := validateFile(&out, path)

	require.ErrorIs(t, err, ErrInvalidWorkflow)
	assert.Contains(t, out.String(), "[greet] Message node must have a message")
	assert.True(t, strings.HasPrefix(out.String(), "error"))
}

func TestValidateFile_Errors(t *testing.T) {
	var out bytes.Buffer

	err := validateFile(&out, filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	err = validateFile(&out, writeFile(t, "broken.json", `{"nodes": []}`))
	require.ErrorIs(t, err, workflow.ErrInvalidDocument)
}

func TestInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yml")

	require.NoError(t, initFile(path, false))
	require.Error(t, initFile(path, false))
	require.NoError(t, initFile(path, true))

	def, err := workflow.LoadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, models.NewDefaultWorkflow().Edges, def.Edges)
	assert.True(t, workflow.Validate(def).Valid)
}

func TestConverse_LocalWorkflow(t *testing.T) {
	def := testutil.Chain(
		testutil.Start("s"),
		testutil.Message("hello", "Hi there"),
		testutil.Input("name", "What is your name?"),
		testutil.Message("bye", "Thanks, bye"),
		testutil.End("e"),
	)
	history := session.NewMemoryStore(log.Discard())
	executor := workflow.NewExecutor(def, nil, workflow.WithSession("local", "cli-1"), workflow.WithLogger(log.Discard()))

	var out bytes.Buffer
	err := converse(context.Background(), executor, history, "local", "cli-1", strings.NewReader("\n  \nAda\n"), &out, log.Discard())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "bot> Hi there\nbot> What is your name?\n")
	assert.Contains(t, out.String(), "bot> Thanks, bye\n-- conversation complete --\n")
	assert.Equal(t, 3, strings.Count(out.String(), "you> "))

	messages, err := history.History(context.Background(), "local", "cli-1")
	require.NoError(t, err)
	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleAssistant, Content: "Hi there"},
		{Role: models.RoleAssistant, Content: "What is your name?"},
		{Role: models.RoleUser, Content: "Ada"},
		{Role: models.RoleAssistant, Content: "Thanks, bye"},
	}, messages)
}

func TestConverse_DelegatedNode(t *testing.T) {
	def := testutil.Chain(testutil.Start("s"), testutil.Input("i", "Ask me"), testutil.AIAgent("ai"), testutil.End("e"))

	var queries []string
	delegate := workflow.DelegateFunc(func(_ context.Context, req models.TurnRequest) (models.TurnResponse, error) {
		queries = append(queries, req.Query)

		return models.TurnResponse{NodeResult: &models.TurnNodeResult{
			Messages:   []string{"You said " + req.Query},
			NextNodeID: models.NodeRef("e"),
		}}, nil
	})
	executor := workflow.NewExecutor(def, delegate, workflow.WithLogger(log.Discard()))

	var out bytes.Buffer
	err := converse(context.Background(), executor, session.NewMemoryStore(log.Discard()), "local", "cli-2", strings.NewReader("refunds\n"), &out, log.Discard())
	require.NoError(t, err)

	assert.Equal(t, []string{"refunds"}, queries)
	assert.Contains(t, out.String(), "bot> You said refunds\n-- conversation complete --")
}

func TestConverse_StopsAtEndOfInput(t *testing.T) {
	def := testutil.Chain(testutil.Start("s"), testutil.Input("i", "Anything?"), testutil.End("e"))
	executor := workflow.NewExecutor(def, nil, workflow.WithLogger(log.Discard()))

	var out bytes.Buffer
	err := converse(context.Background(), executor, session.NewMemoryStore(log.Discard()), "local", "cli-3", strings.NewReader(""), &out, log.Discard())
	require.NoError(t, err)

	assert.Contains(t, out.String(), "bot> Anything?\nyou> \n")
	assert.NotContains(t, out.String(), "conversation complete")
}
