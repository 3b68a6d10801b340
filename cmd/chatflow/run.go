package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dukex/chatflow/pkg/backend"
	"github.com/dukex/chatflow/pkg/cmd"
	"github.com/dukex/chatflow/pkg/delegate"
	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/models"
	"github.com/dukex/chatflow/pkg/session"
	"github.com/dukex/chatflow/pkg/workflow"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

// localProject serves the workflow file as the only project of an in-process runner.
type localProject struct {
	project *models.Project
}

func (l localProject) ProjectByID(_ context.Context, _ string) (*models.Project, error) {
	return l.project, nil
}

func runCommand(ctx context.Context, command *cli.Command) error {
	path, err := fileArg(command)
	if err != nil {
		return err
	}

	definition, err := workflow.LoadDefinition(path)
	if err != nil {
		return err
	}

	logger := log.WithModule("cli")
	projectID := command.String("project-id")
	history := session.NewMemoryStore(logger)

	var d workflow.Delegate

	if url := command.String("delegate-url"); url != "" {
		d = delegate.NewClient(url)
	} else {
		model, err := cmd.NewChatModel(ctx, cmd.LLMConfig{
			Provider:        command.String("llm-provider"),
			Model:           command.String("llm-model"),
			AnthropicAPIKey: command.String("anthropic-api-key"),
			OpenAIAPIKey:    command.String("openai-api-key"),
			GoogleAPIKey:    command.String("google-api-key"),
		})
		if err != nil {
			return err
		}

		project := &models.Project{
			ID:           projectID,
			Name:         path,
			APIWhitelist: command.StringSlice("api-whitelist"),
			Workflow:     definition,
		}

		d = backend.NewRunner(localProject{project: project},
			backend.WithChatModel(model),
			backend.WithHistory(history),
			backend.WithAPITimeout(command.Duration("api-timeout")),
			backend.WithLogger(logger),
		)
	}

	report := workflow.Validate(definition)
	for _, finding := range report.Warnings() {
		logger.WarnContext(ctx, finding.Message, "node_id", finding.NodeID)
	}

	sessionID := uuid.New().String()
	executor := workflow.NewExecutor(definition, d,
		workflow.WithSession(projectID, sessionID),
		workflow.WithMaxStepsPerTurn(command.Int("max-steps-per-turn")),
		workflow.WithLogger(logger),
	)

	return converse(ctx, executor, history, projectID, sessionID, command.Root().Reader, command.Root().Writer, logger)
}

// converse runs the conversation loop until the workflow completes or in is exhausted.
func converse(
	ctx context.Context,
	executor *workflow.Executor,
	history session.Store,
	projectID, sessionID string,
	in io.Reader,
	out io.Writer,
	logger *slog.Logger,
) error {
	record := func(role string, messages ...string) {
		if len(messages) == 0 {
			return
		}

		entries := make([]models.ChatMessage, 0, len(messages))
		for _, m := range messages {
			entries = append(entries, models.ChatMessage{Role: role, Content: m})
		}

		if err := history.AppendHistory(ctx, projectID, sessionID, entries...); err != nil {
			logger.WarnContext(ctx, "Failed to record chat history", "error", err)
		}
	}

	result := executor.Start(ctx)
	printMessages(out, result.Messages)
	record(models.RoleAssistant, result.Messages...)

	scanner := bufio.NewScanner(in)

	for !result.IsComplete {
		fmt.Fprint(out, "you> ")

		if !scanner.Scan() {
			fmt.Fprintln(out)

			return scanner.Err()
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		result = executor.ProcessUserInput(ctx, text)
		printMessages(out, result.Messages)
		record(models.RoleUser, text)
		record(models.RoleAssistant, result.Messages...)
	}

	fmt.Fprintln(out, "-- conversation complete --")

	return nil
}

func printMessages(out io.Writer, messages []string) {
	for _, m := range messages {
		fmt.Fprintf(out, "bot> %s\n", m)
	}
}
