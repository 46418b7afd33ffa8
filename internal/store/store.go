package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"papersum/internal/report"
)

type PaperStatus string

const (
	StatusProcessing PaperStatus = "processing"
	StatusReady      PaperStatus = "ready"
	StatusFailed     PaperStatus = "failed"
)

var (
	ErrPaperNotFound   = errors.New("paper not found")
	ErrSummaryNotFound = errors.New("summary not found")
)

type Paper struct {
	ID        uuid.UUID
	Filename  string
	Title     string
	Status    PaperStatus
	CreatedAt time.Time
}

// Store defines persistence contract; an external DB implementation can replace this.
type Store interface {
	CreatePaper(ctx context.Context, filename, title string) (Paper, error)
	GetPaper(ctx context.Context, id uuid.UUID) (Paper, error)
	UpdatePaperStatus(ctx context.Context, id uuid.UUID, status PaperStatus) error
	SaveSummary(ctx context.Context, paperID uuid.UUID, summary report.PaperSummary) error
	GetSummary(ctx context.Context, paperID uuid.UUID) (report.PaperSummary, error)
}
