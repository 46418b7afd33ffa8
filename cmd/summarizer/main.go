package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"papersum/internal/app"
	"papersum/internal/httputil"
	"papersum/internal/queue"
	"papersum/internal/store"
)

type summarizeTaskPayload struct {
	PaperID uuid.UUID `json:"paper_id"`
	Title   string    `json:"title"`
	Text    string    `json:"text"`
}

func main() {
	deps, err := app.Build("summarizer")
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("summarizer worker starting")

	g, ctx := errgroup.WithContext(context.Background())

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeSummarize, func(ctx context.Context, task queue.Task) error {
			var payload summarizeTaskPayload
			if err := json.Unmarshal(task.Payload, &payload); err != nil {
				return err
			}
			return handleSummarize(ctx, deps, payload)
		})
	})

	// Run health check server
	g.Go(func() error {
		return httputil.ServeHealth(deps.Log, "summarizer", deps.Config.Port)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("summarizer service stopped", "err", err)
	}
}

func handleSummarize(ctx context.Context, deps app.Deps, payload summarizeTaskPayload) error {
	log := deps.Log.With("paper_id", payload.PaperID)
	log.Info("summarizing paper", "chars", len(payload.Text))

	summary, err := deps.Pipeline.Run(ctx, payload.Text, payload.Title)
	if err != nil {
		// Mark failed so the status endpoint reflects reality; a queue
		// retry that succeeds later flips it back to ready.
		if upErr := deps.Store.UpdatePaperStatus(ctx, payload.PaperID, store.StatusFailed); upErr != nil {
			log.Error("failed to mark paper failed", "err", upErr)
		}
		return err
	}

	if err := deps.Store.SaveSummary(ctx, payload.PaperID, summary); err != nil {
		return err
	}
	if err := deps.Cache.SetSummary(ctx, payload.PaperID.String(), &summary, deps.Config.CacheTTL); err != nil {
		log.Warn("cache write failed", "err", err)
	}
	return deps.Store.UpdatePaperStatus(ctx, payload.PaperID, store.StatusReady)
}
