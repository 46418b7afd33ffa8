package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"papersum/internal/report"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreatePaper(ctx context.Context, filename, title string) (Paper, error) {
	args := m.Called(ctx, filename, title)
	return args.Get(0).(Paper), args.Error(1)
}

func (m *MockStore) GetPaper(ctx context.Context, id uuid.UUID) (Paper, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Paper), args.Error(1)
}

func (m *MockStore) UpdatePaperStatus(ctx context.Context, id uuid.UUID, status PaperStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockStore) SaveSummary(ctx context.Context, paperID uuid.UUID, summary report.PaperSummary) error {
	args := m.Called(ctx, paperID, summary)
	return args.Error(0)
}

func (m *MockStore) GetSummary(ctx context.Context, paperID uuid.UUID) (report.PaperSummary, error) {
	args := m.Called(ctx, paperID)
	return args.Get(0).(report.PaperSummary), args.Error(1)
}
