package backend

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/chatflow/pkg/eventbus"
	"github.com/dukex/chatflow/pkg/llm"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultAPITimeout       = 10 * time.Second
	DefaultTemperature      = 0.7
	DefaultHistoryWindow    = 10
	DefaultResponseVariable = "api_response"
	DefaultHandoffMessage   = "Transferring to human agent..."

	maxAPIResponseBytes = 1 << 20
	maxAPIRedirects     = 10
)

type Option func(*Runner)

// WithChatModel sets the model answering ai-agent nodes and plain chat turns. Without
// one the runner echoes the query.
func WithChatModel(model llm.ChatModel) Option {
	return func(r *Runner) {
		r.model = model
	}
}

func WithKnowledgeBase(kb KnowledgeBase) Option {
	return func(r *Runner) {
		r.knowledge = kb
	}
}

// WithHistory sets where recent chat turns are read from for the model's context.
func WithHistory(history HistorySource) Option {
	return func(r *Runner) {
		r.history = history
	}
}

func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(r *Runner) {
		if publisher != nil {
			r.publisher = publisher
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithAPITimeout bounds each api-call request. Non-positive values keep the default.
func WithAPITimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		if timeout > 0 {
			r.apiTimeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}
