package workflow

import (
	"log/slog"

	"github.com/dukex/chatflow/pkg/metrics"
	"github.com/dukex/chatflow/pkg/models"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultMaxStepsPerTurn = 100
	DefaultSessionID       = "default"
)

type Option func(*Executor)

// WithSession sets the project and session ids sent to the delegate.
func WithSession(projectID, sessionID string) Option {
	return func(e *Executor) {
		e.projectID = projectID

		if sessionID != "" {
			e.sessionID = sessionID
		}
	}
}

// WithState resumes a previously persisted execution state.
func WithState(state *models.ExecutionState) Option {
	return func(e *Executor) {
		if state == nil {
			return
		}

		e.state = state.Clone()
		if e.state.Variables == nil {
			e.state.Variables = make(map[string]any)
		}

		if e.state.ExecutionHistory == nil {
			e.state.ExecutionHistory = []string{}
		}
	}
}

// WithMaxStepsPerTurn bounds the nodes executed in one turn. Non-positive values keep
// the default.
func WithMaxStepsPerTurn(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxStepsPerTurn = n
		}
	}
}

// WithHistoryLimit keeps only the last n visited node ids. Zero means unbounded.
func WithHistoryLimit(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.historyLimit = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}
