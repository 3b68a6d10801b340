package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/chatflow/pkg/backend"
	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/workflow"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "chatflow",
		Usage:                 "Validate and try out conversation workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.Setup(cmd.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Aliases:   []string{"v"},
				Usage:     "Check a workflow file and print its findings",
				ArgsUsage: "<file>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					path, err := fileArg(cmd)
					if err != nil {
						return err
					}

					return validateFile(cmd.Root().Writer, path)
				},
			},
			{
				Name:      "run",
				Aliases:   []string{"r"},
				Usage:     "Chat with a workflow in the terminal",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "delegate-url",
						Usage:   "Turn endpoint for ai-agent, api-call and handoff nodes (runs them in process when empty)",
						Sources: cli.EnvVars("DELEGATE_URL"),
					},
					&cli.StringFlag{
						Name:  "project-id",
						Usage: "Project id sent to the delegate",
						Value: "local",
					},
					&cli.StringSliceFlag{
						Name:  "api-whitelist",
						Usage: "Hosts api-call nodes may reach when running in process",
					},
					&cli.DurationFlag{
						Name:  "api-timeout",
						Usage: "Timeout of api-call node requests",
						Value: backend.DefaultAPITimeout,
					},
					&cli.IntFlag{
						Name:  "max-steps-per-turn",
						Usage: "Maximum nodes executed in one conversation turn",
						Value: workflow.DefaultMaxStepsPerTurn,
					},
					&cli.StringFlag{
						Name:    "llm-provider",
						Usage:   "Language model provider (anthropic, openai, google, echo)",
						Sources: cli.EnvVars("LLM_PROVIDER"),
					},
					&cli.StringFlag{
						Name:    "llm-model",
						Sources: cli.EnvVars("LLM_MODEL"),
					},
					&cli.StringFlag{
						Name:    "anthropic-api-key",
						Sources: cli.EnvVars("ANTHROPIC_API_KEY"),
					},
					&cli.StringFlag{
						Name:    "openai-api-key",
						Sources: cli.EnvVars("OPENAI_API_KEY"),
					},
					&cli.StringFlag{
						Name:    "google-api-key",
						Sources: cli.EnvVars("GOOGLE_API_KEY", "GEMINI_API_KEY"),
					},
				},
				Action: runCommand,
			},
			{
				Name:      "init",
				Usage:     "Write the default workflow template",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Overwrite an existing file",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					path, err := fileArg(cmd)
					if err != nil {
						return err
					}

					if err := initFile(path, cmd.Bool("force")); err != nil {
						return err
					}

					_, err = fmt.Fprintf(cmd.Root().Writer, "Wrote default workflow to %s\n", path)

					return err
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func fileArg(cmd *cli.Command) (string, error) {
	path := cmd.Args().First()
	if path == "" {
		return "", fmt.Errorf("%s: a workflow file is required", cmd.Name)
	}

	return path, nil
}
