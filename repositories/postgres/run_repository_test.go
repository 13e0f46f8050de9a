package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ApexChef/backlog-chef/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*RunRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRunRepository(db), mock
}

func testRun(t *testing.T) *models.Run {
	t.Helper()
	item := models.BacklogItem{
		ID:    uuid.New(),
		Title: "Paginate export endpoint",
		Type:  models.ItemTypeFeature,
		Value: 8, Effort: 4, Confidence: 0.75, Score: 1.5,
	}
	return &models.Run{
		ID:          uuid.New(),
		Source:      "standup.txt",
		MeetingType: "standup",
		Items:       []models.BacklogItem{item},
		Proposal: &models.SprintProposal{
			Goal:    "Ship paginated export",
			ItemIDs: []uuid.UUID{item.ID},
		},
		Summary:       "One item refined.",
		TotalCostUSD:  0.01,
		TotalRequests: 8,
		StartedAt:     time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		FinishedAt:    time.Date(2025, 6, 2, 9, 1, 0, 0, time.UTC),
	}
}

func runColumns() []string {
	return []string{
		"id", "source", "meeting_type", "items", "proposal", "summary",
		"total_cost_usd", "total_requests", "started_at", "finished_at",
	}
}

func runRow(t *testing.T, run *models.Run) *sqlmock.Rows {
	t.Helper()
	items, err := json.Marshal(run.Items)
	require.NoError(t, err)
	var proposal []byte
	if run.Proposal != nil {
		proposal, err = json.Marshal(run.Proposal)
		require.NoError(t, err)
	}
	return sqlmock.NewRows(runColumns()).AddRow(
		run.ID, run.Source, run.MeetingType, items, proposal, run.Summary,
		run.TotalCostUSD, run.TotalRequests, run.StartedAt, run.FinishedAt)
}

func TestRunRepository_SaveRun(t *testing.T) {
	repo, mock := newMockRepository(t)
	run := testRun(t)

	mock.ExpectExec("INSERT INTO pipeline_runs").
		WithArgs(run.ID, run.Source, run.MeetingType, sqlmock.AnyArg(), sqlmock.AnyArg(),
			run.Summary, run.TotalCostUSD, run.TotalRequests, run.StartedAt, run.FinishedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_SaveRun_NilProposal(t *testing.T) {
	repo, mock := newMockRepository(t)
	run := testRun(t)
	run.Proposal = nil

	mock.ExpectExec("INSERT INTO pipeline_runs").
		WithArgs(run.ID, run.Source, run.MeetingType, sqlmock.AnyArg(), nil,
			run.Summary, run.TotalCostUSD, run.TotalRequests, run.StartedAt, run.FinishedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_SaveRun_InsertError(t *testing.T) {
	repo, mock := newMockRepository(t)
	run := testRun(t)

	mock.ExpectExec("INSERT INTO pipeline_runs").
		WillReturnError(errors.New("connection lost"))

	err := repo.SaveRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert run")
}

func TestRunRepository_GetRun(t *testing.T) {
	repo, mock := newMockRepository(t)
	run := testRun(t)

	mock.ExpectQuery("SELECT (.+) FROM pipeline_runs").
		WithArgs(run.ID).
		WillReturnRows(runRow(t, run))

	got, err := repo.GetRun(context.Background(), run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.MeetingType, got.MeetingType)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Paginate export endpoint", got.Items[0].Title)
	require.NotNil(t, got.Proposal)
	assert.Equal(t, run.Proposal.Goal, got.Proposal.Goal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_GetRun_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM pipeline_runs").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetRun(context.Background(), id)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunRepository_ListRuns(t *testing.T) {
	repo, mock := newMockRepository(t)
	first := testRun(t)
	second := testRun(t)
	second.Proposal = nil

	rows := runRow(t, first)
	items, err := json.Marshal(second.Items)
	require.NoError(t, err)
	rows.AddRow(second.ID, second.Source, second.MeetingType, items, nil, second.Summary,
		second.TotalCostUSD, second.TotalRequests, second.StartedAt, second.FinishedAt)

	mock.ExpectQuery("SELECT (.+) FROM pipeline_runs").
		WithArgs(10).
		WillReturnRows(rows)

	runs, err := repo.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first.ID, runs[0].ID)
	assert.Nil(t, runs[1].Proposal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_ListRuns_Empty(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT (.+) FROM pipeline_runs").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(runColumns()))

	runs, err := repo.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunRepository_InitSchema(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS pipeline_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.InitSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
