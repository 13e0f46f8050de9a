package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ApexChef/backlog-chef/models"
	"github.com/ApexChef/backlog-chef/repositories"
	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run does not exist
var ErrRunNotFound = errors.New("run not found")

const runSchema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	id UUID PRIMARY KEY,
	source TEXT NOT NULL,
	meeting_type TEXT NOT NULL,
	items JSONB NOT NULL,
	proposal JSONB,
	summary TEXT NOT NULL DEFAULT '',
	total_cost_usd DOUBLE PRECISION NOT NULL,
	total_requests INTEGER NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
)`

// RunRepository is the PostgreSQL implementation of repositories.RunRepository
type RunRepository struct {
	db *sql.DB
}

var _ repositories.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a run repository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// InitSchema creates the runs table if it does not exist
func (r *RunRepository) InitSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, runSchema); err != nil {
		return fmt.Errorf("failed to create runs schema: %w", err)
	}
	return nil
}

// SaveRun stores a run and its items
func (r *RunRepository) SaveRun(ctx context.Context, run *models.Run) error {
	items, err := json.Marshal(run.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	var proposal []byte
	if run.Proposal != nil {
		proposal, err = json.Marshal(run.Proposal)
		if err != nil {
			return fmt.Errorf("failed to marshal proposal: %w", err)
		}
	}

	query := `
		INSERT INTO pipeline_runs
		(id, source, meeting_type, items, proposal, summary, total_cost_usd, total_requests, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.Source, run.MeetingType, items, proposal, run.Summary,
		run.TotalCostUSD, run.TotalRequests, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID
func (r *RunRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `
		SELECT id, source, meeting_type, items, proposal, summary, total_cost_usd, total_requests, started_at, finished_at
		FROM pipeline_runs
		WHERE id = $1
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	return run, nil
}

// ListRuns returns the most recent runs, newest first
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	query := `
		SELECT id, source, meeting_type, items, proposal, summary, total_cost_usd, total_requests, started_at, finished_at
		FROM pipeline_runs
		ORDER BY finished_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]models.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var items []byte
	var proposal []byte

	err := row.Scan(&run.ID, &run.Source, &run.MeetingType, &items, &proposal, &run.Summary,
		&run.TotalCostUSD, &run.TotalRequests, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &run.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal items: %w", err)
	}
	if len(proposal) > 0 {
		run.Proposal = &models.SprintProposal{}
		if err := json.Unmarshal(proposal, run.Proposal); err != nil {
			return nil, fmt.Errorf("failed to unmarshal proposal: %w", err)
		}
	}

	return &run, nil
}
