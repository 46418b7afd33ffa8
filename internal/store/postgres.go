package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"papersum/internal/report"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Use advisory lock to prevent concurrent migrations from multiple services.
	// Note: In production, use dedicated migration tools (e.g., golang-migrate/migrate)
	// that run as a separate deployment step before app services start.
	const lockID = 987654321

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id UUID PRIMARY KEY,
			filename TEXT,
			title TEXT,
			status TEXT,
			created_at TIMESTAMPTZ DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS paper_summaries (
			paper_id UUID PRIMARY KEY REFERENCES papers(id) ON DELETE CASCADE,
			title TEXT,
			objective TEXT,
			study_type TEXT,
			population TEXT,
			methods TEXT,
			key_findings TEXT[],
			limitations TEXT[],
			author_conclusions TEXT,
			keywords TEXT[],
			model_used TEXT,
			safety_disclaimer TEXT,
			generated_at TIMESTAMPTZ
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreatePaper(ctx context.Context, filename, title string) (Paper, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `INSERT INTO papers(id, filename, title, status) VALUES($1,$2,$3,$4)`,
		id, filename, title, StatusProcessing)
	if err != nil {
		return Paper{}, err
	}
	return Paper{ID: id, Filename: filename, Title: title, Status: StatusProcessing, CreatedAt: time.Now()}, nil
}

func (s *PostgresStore) GetPaper(ctx context.Context, id uuid.UUID) (Paper, error) {
	var p Paper
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, title, status, created_at FROM papers WHERE id=$1`, id).
		Scan(&p.ID, &p.Filename, &p.Title, &p.Status, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Paper{}, ErrPaperNotFound
	}
	if err != nil {
		return Paper{}, err
	}
	return p, nil
}

func (s *PostgresStore) UpdatePaperStatus(ctx context.Context, id uuid.UUID, status PaperStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE papers SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPaperNotFound
	}
	return nil
}

func (s *PostgresStore) SaveSummary(ctx context.Context, paperID uuid.UUID, summary report.PaperSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO paper_summaries(
			paper_id, title, objective, study_type, population, methods,
			key_findings, limitations, author_conclusions, keywords,
			model_used, safety_disclaimer, generated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (paper_id) DO UPDATE SET
			title=EXCLUDED.title,
			objective=EXCLUDED.objective,
			study_type=EXCLUDED.study_type,
			population=EXCLUDED.population,
			methods=EXCLUDED.methods,
			key_findings=EXCLUDED.key_findings,
			limitations=EXCLUDED.limitations,
			author_conclusions=EXCLUDED.author_conclusions,
			keywords=EXCLUDED.keywords,
			model_used=EXCLUDED.model_used,
			safety_disclaimer=EXCLUDED.safety_disclaimer,
			generated_at=EXCLUDED.generated_at`,
		paperID, summary.Title, summary.Objective, summary.StudyType, summary.Population,
		summary.Methods, pq.Array(summary.KeyFindings), pq.Array(stringArray(summary.Limitations)),
		summary.AuthorConclusions, pq.Array(stringArray(summary.Keywords)),
		summary.ModelUsed, summary.SafetyDisclaimer, summary.GeneratedAt)
	return err
}

func (s *PostgresStore) GetSummary(ctx context.Context, paperID uuid.UUID) (report.PaperSummary, error) {
	var summary report.PaperSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT title, objective, study_type, population, methods,
		       key_findings, limitations, author_conclusions, keywords,
		       model_used, safety_disclaimer, generated_at
		FROM paper_summaries WHERE paper_id=$1`, paperID).
		Scan(&summary.Title, &summary.Objective, &summary.StudyType, &summary.Population,
			&summary.Methods, pq.Array(&summary.KeyFindings), pq.Array(&summary.Limitations),
			&summary.AuthorConclusions, pq.Array(&summary.Keywords),
			&summary.ModelUsed, &summary.SafetyDisclaimer, &summary.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return report.PaperSummary{}, ErrSummaryNotFound
	}
	if err != nil {
		return report.PaperSummary{}, err
	}
	return summary, nil
}

// stringArray keeps TEXT[] columns non-null for empty slices.
func stringArray(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
