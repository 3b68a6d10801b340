package mocks

import (
	"context"

	"github.com/dukex/chatflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockDelegate is a mock implementation of workflow.Delegate interface.
type MockDelegate struct {
	mock.Mock
}

func (m *MockDelegate) RunBackendStep(ctx context.Context, req models.TurnRequest) (models.TurnResponse, error) {
	args := m.Called(ctx, req)

	return args.Get(0).(models.TurnResponse), args.Error(1)
}
