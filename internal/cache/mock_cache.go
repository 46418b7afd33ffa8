package cache

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"papersum/internal/report"
)

// MockCache is a mock implementation of the Cache interface for testing
type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetSummary(ctx context.Context, paperID string) (*report.PaperSummary, error) {
	args := m.Called(ctx, paperID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.PaperSummary), args.Error(1)
}

func (m *MockCache) SetSummary(ctx context.Context, paperID string, summary *report.PaperSummary, ttl time.Duration) error {
	args := m.Called(ctx, paperID, summary, ttl)
	return args.Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, paperID string) error {
	args := m.Called(ctx, paperID)
	return args.Error(0)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}
