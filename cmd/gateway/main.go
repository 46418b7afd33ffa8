package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"papersum/internal/app"
	"papersum/internal/httputil"
	"papersum/internal/ingest"
	"papersum/internal/queue"
	"papersum/internal/store"
)

type summarizeTaskPayload struct {
	PaperID uuid.UUID `json:"paper_id"`
	Title   string    `json:"title"`
	Text    string    `json:"text"`
}

func main() {
	deps, err := app.Build("gateway")
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	r := httputil.NewRouter(deps.Log)

	r.Post("/api/papers/upload", uploadHandler(deps))
	r.Get("/api/papers/{id}", paperHandler(deps))
	r.Get("/api/papers/{id}/summary", summaryHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Validate file size before parsing
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}

		doc, err := loadDocument(header.Filename, content)
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		paper, err := deps.Store.CreatePaper(ctx, header.Filename, doc.Title)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist paper", err, http.StatusInternalServerError)
			return
		}

		payload := summarizeTaskPayload{
			PaperID: paper.ID,
			Title:   doc.Title,
			Text:    doc.Text,
		}
		body, err := json.Marshal(payload)
		if err != nil {
			fail(deps, ctx, w, "marshal payload failed", err, paper.ID, http.StatusInternalServerError, true)
			return
		}
		task := queue.Task{Type: queue.TaskTypeSummarize, Payload: body}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			fail(deps, ctx, w, "failed to enqueue paper; please retry", err, paper.ID, http.StatusInternalServerError, true)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"paper_id": paper.ID.String(),
			"title":    paper.Title,
			"status":   paper.Status,
		})
	}
}

// loadDocument picks the loader by extension, falling back to the
// Content-Type heuristic plain text for unknown but texty files.
func loadDocument(filename string, content []byte) (ingest.Document, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		doc, err := ingest.FromPDF(content)
		if err != nil {
			return ingest.Document{}, fmt.Errorf("failed to extract pdf: %w", err)
		}
		return doc, nil
	case ".xml":
		doc, err := ingest.FromXML(content)
		if err != nil {
			return ingest.Document{}, fmt.Errorf("failed to parse xml: %w", err)
		}
		return doc, nil
	case ".txt", ".text", ".md":
		return ingest.FromText(content), nil
	default:
		return ingest.Document{}, fmt.Errorf("unsupported file type (only PDF, XML, and TXT allowed)")
	}
}

// fail is gateway-specific error handler that can mark papers as failed
func fail(deps app.Deps, ctx context.Context, w http.ResponseWriter, message string, err error, paperID uuid.UUID, status int, markFailed bool) {
	log := deps.Log.With("paper_id", paperID)
	if markFailed && paperID != uuid.Nil {
		if upErr := deps.Store.UpdatePaperStatus(ctx, paperID, store.StatusFailed); upErr != nil {
			log.Error("failed to mark paper failed", "err", upErr)
		}
	}

	httputil.Fail(log, w, message, err, status)
}

func paperHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paperID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid paper id", err, http.StatusBadRequest)
			return
		}
		paper, err := deps.Store.GetPaper(r.Context(), paperID)
		if err != nil {
			httputil.Fail(deps.Log, w, "paper not found", err, http.StatusNotFound)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"paper_id":   paper.ID.String(),
			"filename":   paper.Filename,
			"title":      paper.Title,
			"status":     paper.Status,
			"created_at": paper.CreatedAt,
		})
	}
}

func summaryHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		paperID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid paper id", err, http.StatusBadRequest)
			return
		}

		// Cache read-through; a miss or cache error falls back to the store.
		summary, cacheErr := deps.Cache.GetSummary(ctx, paperID.String())
		if cacheErr != nil {
			deps.Log.Warn("cache read failed", "err", cacheErr)
		}
		if summary == nil {
			fromStore, err := deps.Store.GetSummary(ctx, paperID)
			if err != nil {
				httputil.Fail(deps.Log, w, "summary not ready", err, http.StatusNotFound)
				return
			}
			summary = &fromStore
			if err := deps.Cache.SetSummary(ctx, paperID.String(), summary, deps.Config.CacheTTL); err != nil {
				deps.Log.Warn("cache write failed", "err", err)
			}
		}

		if r.URL.Query().Get("format") == "markdown" {
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte(summary.Markdown())); err != nil {
				deps.Log.Error("failed to write markdown summary", "err", err)
			}
			return
		}
		httputil.WriteJSON(w, http.StatusOK, summary)
	}
}
