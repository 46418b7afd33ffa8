package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client using testify/mock.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockClient) PrimaryModel() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) MaxResponseTokens() int {
	args := m.Called()
	return args.Int(0)
}
