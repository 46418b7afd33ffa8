package cache

import (
	"context"
	"time"

	"papersum/internal/report"
)

// Cache provides summary caching in front of the store.
type Cache interface {
	// GetSummary retrieves a cached summary by paper ID.
	// Returns nil if not found.
	GetSummary(ctx context.Context, paperID string) (*report.PaperSummary, error)

	// SetSummary stores a summary with TTL.
	SetSummary(ctx context.Context, paperID string, summary *report.PaperSummary, ttl time.Duration) error

	// Invalidate removes the cached summary for a paper.
	Invalidate(ctx context.Context, paperID string) error

	// Close closes the cache connection
	Close() error
}
