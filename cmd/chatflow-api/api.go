// Package main provides the chatflow API server implementation.
package main

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/chatflow/pkg/backend"
	"github.com/dukex/chatflow/pkg/eventbus"
	"github.com/dukex/chatflow/pkg/llm"
	"github.com/dukex/chatflow/pkg/metrics"
	"github.com/dukex/chatflow/pkg/otelhelper"
	"github.com/dukex/chatflow/pkg/persistence"
	"github.com/dukex/chatflow/pkg/services"
	"github.com/dukex/chatflow/pkg/session"
	"github.com/dukex/chatflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Settings tunes the conversation runtime.
type Settings struct {
	MaxStepsPerTurn int
	HistoryLimit    int
	APITimeout      time.Duration
	AllowedOrigins  []string
}

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	sessions    session.Store
	eventBus    eventbus.EventBus
	model       llm.ChatModel
	knowledge   backend.KnowledgeBase
	settings    Settings
	validate    *validator.Validate
	registry    *prometheus.Registry
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	sessions session.Store,
	eventBus eventbus.EventBus,
	model llm.ChatModel,
	knowledge backend.KnowledgeBase,
	settings Settings,
) *API {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &API{
		persistence: persistence,
		sessions:    sessions,
		logger:      logger,
		eventBus:    eventBus,
		model:       model,
		knowledge:   knowledge,
		settings:    settings,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		registry:    registry,
	}
}

func (a *API) App() *fiber.App {
	m := metrics.New(a.registry)

	var publisher eventbus.EventPublisher = eventbus.Discard
	if a.eventBus != nil {
		publisher = a.eventBus
	}

	runnerOpts := []backend.Option{
		backend.WithChatModel(a.model),
		backend.WithHistory(a.sessions),
		backend.WithPublisher(publisher),
		backend.WithAPITimeout(a.settings.APITimeout),
		backend.WithLogger(a.logger.With("module", "backend_runner")),
		backend.WithTracer(otelhelper.Tracer("github.com/dukex/chatflow/pkg/backend")),
	}
	if a.knowledge != nil {
		runnerOpts = append(runnerOpts, backend.WithKnowledgeBase(a.knowledge))
	}

	runner := backend.NewRunner(a.persistence, runnerOpts...)

	projectService := services.NewProject(a.persistence, publisher, m)
	conversationService := services.NewConversation(projectService, a.sessions, runner,
		services.WithPublisher(publisher),
		services.WithMaxStepsPerTurn(a.settings.MaxStepsPerTurn),
		services.WithExecutionHistoryLimit(a.settings.HistoryLimit),
		services.WithConversationMetrics(m),
		services.WithConversationTracer(otelhelper.Tracer("github.com/dukex/chatflow/pkg/workflow")),
	)

	handlers := web.NewAPIHandlers(
		projectService,
		conversationService,
		runner,
		a.validate,
		web.OriginPolicy{AllowedHosts: a.settings.AllowedOrigins},
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Chatflow API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
