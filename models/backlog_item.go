package models

import "github.com/google/uuid"

// ItemType classifies a backlog item extracted from a transcript.
type ItemType string

const (
	ItemTypeFeature    ItemType = "feature"
	ItemTypeBug        ItemType = "bug"
	ItemTypeTechDebt   ItemType = "tech_debt"
	ItemTypeDecision   ItemType = "decision"
	ItemTypeActionItem ItemType = "action_item"
)

// ValidItemType reports whether a model-produced type tag is recognized
func ValidItemType(t ItemType) bool {
	switch t {
	case ItemTypeFeature, ItemTypeBug, ItemTypeTechDebt, ItemTypeDecision, ItemTypeActionItem:
		return true
	}
	return false
}

// Risk is a delivery risk attached to a backlog item.
type Risk struct {
	Description string `json:"description"`
	Severity    string `json:"severity"` // low, medium, high
	Mitigation  string `json:"mitigation,omitempty"`
}

// BacklogItem is a structured backlog entry produced by the pipeline.
type BacklogItem struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        ItemType  `json:"type"`

	// Scoring, filled by the score step. Value and Effort are 1-10;
	// Confidence is 0-1; Score is value weighted by confidence over effort.
	Value      int     `json:"value"`
	Effort     int     `json:"effort"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`

	// Enrichment
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	Risks              []Risk   `json:"risks,omitempty"`

	// Readiness check
	Ready          bool     `json:"ready"`
	ReadinessNotes []string `json:"readiness_notes,omitempty"`

	// SourceQuote anchors the item back to the transcript
	SourceQuote string `json:"source_quote,omitempty"`
}

// ComputeScore derives the priority score from the scoring fields. Zero
// effort is treated as one to avoid a division error.
func (i *BacklogItem) ComputeScore() {
	effort := i.Effort
	if effort <= 0 {
		effort = 1
	}
	i.Score = float64(i.Value) * i.Confidence / float64(effort)
}

// SprintProposal is the proposal step's suggested next-sprint slice.
type SprintProposal struct {
	Goal      string      `json:"goal"`
	ItemIDs   []uuid.UUID `json:"item_ids"`
	Rationale string      `json:"rationale,omitempty"`
}
