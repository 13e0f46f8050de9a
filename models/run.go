package models

import (
	"time"

	"github.com/google/uuid"
)

// Run is the record of one complete pipeline execution over a transcript.
type Run struct {
	ID          uuid.UUID `json:"id"`
	Source      string    `json:"source"`
	MeetingType string    `json:"meeting_type"`

	Items    []BacklogItem   `json:"items"`
	Proposal *SprintProposal `json:"proposal,omitempty"`
	Summary  string          `json:"summary,omitempty"`

	// Cost accounting for the whole run, taken from the budget ledger
	TotalCostUSD  float64 `json:"total_cost_usd"`
	TotalRequests int     `json:"total_requests"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
