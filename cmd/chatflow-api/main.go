package main

import (
	"context"
	"os"
	"time"

	"github.com/dukex/chatflow/pkg/backend"
	"github.com/dukex/chatflow/pkg/cmd"
	"github.com/dukex/chatflow/pkg/log"
	"github.com/dukex/chatflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "chatflow-api",
		Usage:                 "Manage chat projects and run their workflow conversations",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Project store URL (file://<dir> or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "session-store",
				Usage:   "Session store URL (memory:// or redis://...)",
				Value:   "memory://",
				Sources: cli.EnvVars("SESSION_STORE_URL"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Usage:   "How long an idle session is kept",
				Value:   24 * time.Hour,
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "llm-provider",
				Usage:   "Language model provider (anthropic, openai, google, echo)",
				Sources: cli.EnvVars("LLM_PROVIDER"),
			},
			&cli.StringFlag{
				Name:    "llm-model",
				Usage:   "Model name, optionally prefixed with the provider (gemini/gemini-2.5-flash)",
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
			&cli.StringFlag{
				Name:    "knowledge-base-url",
				Usage:   "Base URL of the knowledge base service queried by ai-agent nodes",
				Sources: cli.EnvVars("KB_SERVICE_URL"),
			},
			&cli.IntFlag{
				Name:    "max-steps-per-turn",
				Usage:   "Maximum nodes executed in one conversation turn",
				Value:   workflow.DefaultMaxStepsPerTurn,
				Sources: cli.EnvVars("MAX_STEPS_PER_TURN"),
			},
			&cli.IntFlag{
				Name:    "history-limit",
				Usage:   "Visited node ids kept per session (0 keeps all)",
				Sources: cli.EnvVars("HISTORY_LIMIT"),
			},
			&cli.DurationFlag{
				Name:    "api-timeout",
				Usage:   "Timeout of api-call node requests",
				Value:   backend.DefaultAPITimeout,
				Sources: cli.EnvVars("API_CALL_TIMEOUT"),
			},
			&cli.StringSliceFlag{
				Name:    "allowed-origins",
				Usage:   "Origin hosts always allowed to open conversations (e.g. the dashboard)",
				Sources: cli.EnvVars("ALLOWED_ORIGINS"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing chatflow API")

			shutdownTracing := cmd.SetupTracing(ctx, logger, command.Bool("otel-enabled"), "chatflow-api")
			defer shutdownTracing(context.Background())

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			sessions, err := cmd.NewSessionStore(ctx, logger, command.String("session-store"), command.Duration("session-ttl"))
			if err != nil {
				return err
			}

			defer func() {
				if err := sessions.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close session store", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger, command.Bool("otel-enabled"))
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

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

			var knowledge backend.KnowledgeBase
			if url := command.String("knowledge-base-url"); url != "" {
				knowledge = backend.NewHTTPKnowledgeBase(url, nil)
			}

			api := NewAPI(
				logger,
				persistence,
				sessions,
				eventBus,
				model,
				knowledge,
				Settings{
					MaxStepsPerTurn: command.Int("max-steps-per-turn"),
					HistoryLimit:    command.Int("history-limit"),
					APITimeout:      command.Duration("api-timeout"),
					AllowedOrigins:  command.StringSlice("allowed-origins"),
				},
			)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return err
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("chatflow-api exited", "error", err)
		os.Exit(1)
	}
}
