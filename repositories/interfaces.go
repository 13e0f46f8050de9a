package repositories

import (
	"context"

	"github.com/ApexChef/backlog-chef/models"
	"github.com/google/uuid"
)

// RunRepository persists finished pipeline runs for later review.
type RunRepository interface {
	// SaveRun stores a run and its items
	SaveRun(ctx context.Context, run *models.Run) error

	// GetRun retrieves a run by ID
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)

	// ListRuns returns the most recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]models.Run, error)
}
