package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"papersum/internal/app"
	"papersum/internal/cache"
	"papersum/internal/config"
	"papersum/internal/queue"
	"papersum/internal/report"
	"papersum/internal/store"
)

func newTestDeps(st store.Store, q queue.Queue, c cache.Cache) app.Deps {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return app.Deps{
		Store: st,
		Queue: q,
		Cache: c,
		Config: config.Config{
			MaxUploadSize: 1024 * 1024, // 1MB for tests
			CacheTTL:      time.Hour,
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestUploadHandler(t *testing.T) {
	validPaperID := uuid.New()

	tests := []struct {
		name          string
		filename      string
		content       []byte
		setup         func(*store.MockStore, *queue.MockQueue)
		wantStatus    int
		checkResponse func(*testing.T, *http.Response)
	}{
		{
			name:     "successful txt upload",
			filename: "paper.txt",
			content:  []byte("A Study of Something Important in Adults\n\nABSTRACT\nWe studied it."),
			setup: func(s *store.MockStore, q *queue.MockQueue) {
				s.On("CreatePaper", mock.Anything, "paper.txt", "A Study of Something Important in Adults").
					Return(store.Paper{ID: validPaperID, Status: store.StatusProcessing}, nil).Once()
				q.On("Enqueue", mock.Anything, mock.MatchedBy(func(task queue.Task) bool {
					var payload summarizeTaskPayload
					if err := json.Unmarshal(task.Payload, &payload); err != nil {
						return false
					}
					return task.Type == queue.TaskTypeSummarize && payload.PaperID == validPaperID
				})).Return(nil).Once()
			},
			wantStatus: http.StatusAccepted,
			checkResponse: func(t *testing.T, resp *http.Response) {
				var result map[string]any
				if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if result["paper_id"] == "" {
					t.Error("Expected paper_id in response")
				}
				if result["status"] != string(store.StatusProcessing) {
					t.Errorf("Expected status %s, got %v", store.StatusProcessing, result["status"])
				}
			},
		},
		{
			name:       "file too large",
			filename:   "large.txt",
			content:    make([]byte, 2*1024*1024), // 2MB
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported extension",
			filename:   "paper.docx",
			content:    []byte("content"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "corrupt pdf",
			filename:   "paper.pdf",
			content:    []byte("not a pdf at all"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed xml",
			filename:   "paper.xml",
			content:    []byte("<article><front>"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:     "CreatePaper failure",
			filename: "paper.txt",
			content:  []byte("Some ordinary research paper content goes here."),
			setup: func(s *store.MockStore, q *queue.MockQueue) {
				s.On("CreatePaper", mock.Anything, "paper.txt", mock.Anything).
					Return(store.Paper{}, errors.New("db error")).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:     "Enqueue failure marks paper failed",
			filename: "paper.txt",
			content:  []byte("Some ordinary research paper content goes here."),
			setup: func(s *store.MockStore, q *queue.MockQueue) {
				s.On("CreatePaper", mock.Anything, "paper.txt", mock.Anything).
					Return(store.Paper{ID: validPaperID, Status: store.StatusProcessing}, nil).Once()
				q.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("queue error")).Times(3)
				s.On("UpdatePaperStatus", mock.Anything, validPaperID, store.StatusFailed).Return(nil).Once()
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := new(store.MockStore)
			mockQueue := new(queue.MockQueue)

			if tt.setup != nil {
				tt.setup(mockStore, mockQueue)
			}

			deps := newTestDeps(mockStore, mockQueue, nil)
			handler := uploadHandler(deps)

			req, err := createMultipartRequest(tt.filename, tt.content)
			if err != nil {
				t.Fatalf("Failed to create request: %v", err)
			}

			w := httptest.NewRecorder()
			handler(w, req)

			resp := w.Result()
			if resp.StatusCode != tt.wantStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatus, resp.StatusCode, string(body))
			}

			if tt.checkResponse != nil {
				resp.Body = io.NopCloser(bytes.NewReader(w.Body.Bytes()))
				tt.checkResponse(t, resp)
			}

			mockStore.AssertExpectations(t)
			mockQueue.AssertExpectations(t)
		})
	}

	// Test missing file separately since it requires different request setup
	t.Run("missing file", func(t *testing.T) {
		deps := newTestDeps(new(store.MockStore), new(queue.MockQueue), nil)
		handler := uploadHandler(deps)

		req := httptest.NewRequest(http.MethodPost, "/api/papers/upload", nil)
		req.Header.Set("Content-Type", "multipart/form-data")
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

func TestPaperHandler(t *testing.T) {
	validPaperID := uuid.New()

	tests := []struct {
		name       string
		paperID    string
		setup      func(*store.MockStore)
		wantStatus int
	}{
		{
			name:    "found",
			paperID: validPaperID.String(),
			setup: func(s *store.MockStore) {
				s.On("GetPaper", mock.Anything, validPaperID).
					Return(store.Paper{ID: validPaperID, Filename: "paper.pdf", Status: store.StatusReady}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid UUID",
			paperID:    "not-a-uuid",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:    "not found",
			paperID: validPaperID.String(),
			setup: func(s *store.MockStore) {
				s.On("GetPaper", mock.Anything, validPaperID).
					Return(store.Paper{}, store.ErrPaperNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := new(store.MockStore)
			if tt.setup != nil {
				tt.setup(mockStore)
			}
			deps := newTestDeps(mockStore, new(queue.MockQueue), nil)

			w := httptest.NewRecorder()
			paperHandler(deps)(w, requestWithID(http.MethodGet, "/api/papers/"+tt.paperID, tt.paperID))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			mockStore.AssertExpectations(t)
		})
	}
}

func TestSummaryHandler(t *testing.T) {
	validPaperID := uuid.New()
	summary, err := report.New(report.Fields{
		Title:       "Efficacy of Drug X",
		KeyFindings: []string{"HbA1c fell by 1.2% (p<0.001)"},
		ModelUsed:   "claude-sonnet-4-20250514",
	})
	if err != nil {
		t.Fatalf("Failed to build summary fixture: %v", err)
	}

	t.Run("cache miss falls back to store and populates cache", func(t *testing.T) {
		mockStore := new(store.MockStore)
		mockCache := new(cache.MockCache)
		mockCache.On("GetSummary", mock.Anything, validPaperID.String()).Return(nil, nil).Once()
		mockStore.On("GetSummary", mock.Anything, validPaperID).Return(summary, nil).Once()
		mockCache.On("SetSummary", mock.Anything, validPaperID.String(), mock.Anything, time.Hour).Return(nil).Once()

		deps := newTestDeps(mockStore, new(queue.MockQueue), mockCache)
		w := httptest.NewRecorder()
		summaryHandler(deps)(w, requestWithID(http.MethodGet, "/api/papers/"+validPaperID.String()+"/summary", validPaperID.String()))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d. Body: %s", w.Code, w.Body.String())
		}
		var result report.PaperSummary
		if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if result.Title != "Efficacy of Drug X" {
			t.Errorf("Expected title in response, got %q", result.Title)
		}
		mockStore.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	t.Run("cache hit skips store", func(t *testing.T) {
		mockStore := new(store.MockStore)
		mockCache := new(cache.MockCache)
		mockCache.On("GetSummary", mock.Anything, validPaperID.String()).Return(&summary, nil).Once()

		deps := newTestDeps(mockStore, new(queue.MockQueue), mockCache)
		w := httptest.NewRecorder()
		summaryHandler(deps)(w, requestWithID(http.MethodGet, "/api/papers/"+validPaperID.String()+"/summary", validPaperID.String()))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		mockStore.AssertExpectations(t)
		mockCache.AssertExpectations(t)
	})

	t.Run("markdown format", func(t *testing.T) {
		mockStore := new(store.MockStore)
		mockCache := new(cache.MockCache)
		mockCache.On("GetSummary", mock.Anything, validPaperID.String()).Return(&summary, nil).Once()

		deps := newTestDeps(mockStore, new(queue.MockQueue), mockCache)
		w := httptest.NewRecorder()
		req := requestWithID(http.MethodGet, "/api/papers/"+validPaperID.String()+"/summary?format=markdown", validPaperID.String())
		summaryHandler(deps)(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "text/markdown; charset=utf-8" {
			t.Errorf("Expected markdown content type, got %q", ct)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte("# Efficacy of Drug X")) {
			t.Errorf("Expected markdown title, got %s", w.Body.String())
		}
	})

	t.Run("invalid UUID", func(t *testing.T) {
		deps := newTestDeps(new(store.MockStore), new(queue.MockQueue), nil)
		w := httptest.NewRecorder()
		summaryHandler(deps)(w, requestWithID(http.MethodGet, "/api/papers/not-a-uuid/summary", "not-a-uuid"))

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("summary not found", func(t *testing.T) {
		mockStore := new(store.MockStore)
		mockStore.On("GetSummary", mock.Anything, validPaperID).
			Return(report.PaperSummary{}, store.ErrSummaryNotFound).Once()

		deps := newTestDeps(mockStore, new(queue.MockQueue), nil)
		w := httptest.NewRecorder()
		summaryHandler(deps)(w, requestWithID(http.MethodGet, "/api/papers/"+validPaperID.String()+"/summary", validPaperID.String()))

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
		mockStore.AssertExpectations(t)
	})
}

func requestWithID(method, target, id string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func createMultipartRequest(filename string, content []byte) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}

	if _, err := part.Write(content); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, "/api/papers/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req, nil
}
