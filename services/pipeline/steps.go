package pipeline

import (
	"context"
	"fmt"

	"github.com/ApexChef/backlog-chef/models"
	"github.com/google/uuid"
)

// Wire types for the model's JSON responses. Index fields refer back to the
// position of an item in the prompt's numbered list.

type classifyResult struct {
	MeetingType string `json:"meeting_type"`
}

type extractedItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	SourceQuote string `json:"source_quote"`
}

type scoreResult struct {
	Index      int     `json:"index"`
	Value      int     `json:"value"`
	Effort     int     `json:"effort"`
	Confidence float64 `json:"confidence"`
}

type enrichResult struct {
	Index              int      `json:"index"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
}

type riskResult struct {
	Index int           `json:"index"`
	Risks []models.Risk `json:"risks"`
}

type readinessResult struct {
	Index int      `json:"index"`
	Ready bool     `json:"ready"`
	Notes []string `json:"notes"`
}

func (s *Service) classify(ctx context.Context, transcript *models.Transcript) (string, error) {
	content, err := s.generate(ctx, StepClassify, classifySystem, classifyPrompt(transcript))
	if err != nil {
		return "", err
	}

	var result classifyResult
	if err := decodeResponse(content, &result); err != nil {
		return "", err
	}
	if result.MeetingType == "" {
		result.MeetingType = "unknown"
	}
	return result.MeetingType, nil
}

func (s *Service) extract(ctx context.Context, transcript *models.Transcript, meetingType string) ([]models.BacklogItem, error) {
	content, err := s.generate(ctx, StepExtract, extractSystem, extractPrompt(transcript, meetingType))
	if err != nil {
		return nil, err
	}

	var extracted []extractedItem
	if err := decodeResponse(content, &extracted); err != nil {
		return nil, err
	}

	items := make([]models.BacklogItem, 0, len(extracted))
	for _, e := range extracted {
		if e.Title == "" {
			continue
		}
		itemType := models.ItemType(e.Type)
		if !models.ValidItemType(itemType) {
			itemType = models.ItemTypeActionItem
		}
		items = append(items, models.BacklogItem{
			ID:          uuid.New(),
			Title:       e.Title,
			Description: e.Description,
			Type:        itemType,
			SourceQuote: e.SourceQuote,
		})
	}
	return items, nil
}

func (s *Service) score(ctx context.Context, items []models.BacklogItem) error {
	content, err := s.generate(ctx, StepScore, scoreSystem, itemListPrompt(scoreInstruction, items))
	if err != nil {
		return err
	}

	var results []scoreResult
	if err := decodeResponse(content, &results); err != nil {
		return err
	}

	for _, r := range results {
		if r.Index < 0 || r.Index >= len(items) {
			continue
		}
		item := &items[r.Index]
		item.Value = clampInt(r.Value, 1, 10)
		item.Effort = clampInt(r.Effort, 1, 10)
		item.Confidence = clampFloat(r.Confidence, 0, 1)
		item.ComputeScore()
	}
	return nil
}

func (s *Service) enrich(ctx context.Context, items []models.BacklogItem) error {
	content, err := s.generate(ctx, StepEnrich, enrichSystem, itemListPrompt(enrichInstruction, items))
	if err != nil {
		return err
	}

	var results []enrichResult
	if err := decodeResponse(content, &results); err != nil {
		return err
	}

	for _, r := range results {
		if r.Index < 0 || r.Index >= len(items) {
			continue
		}
		items[r.Index].AcceptanceCriteria = r.AcceptanceCriteria
	}
	return nil
}

func (s *Service) analyzeRisks(ctx context.Context, items []models.BacklogItem) error {
	content, err := s.generate(ctx, StepRisks, risksSystem, itemListPrompt(risksInstruction, items))
	if err != nil {
		return err
	}

	var results []riskResult
	if err := decodeResponse(content, &results); err != nil {
		return err
	}

	for _, r := range results {
		if r.Index < 0 || r.Index >= len(items) {
			continue
		}
		items[r.Index].Risks = r.Risks
	}
	return nil
}

func (s *Service) propose(ctx context.Context, items []models.BacklogItem) (*models.SprintProposal, error) {
	content, err := s.generate(ctx, StepProposal, proposalSystem, itemListPrompt(proposalInstruction, items))
	if err != nil {
		return nil, err
	}

	var result struct {
		Goal      string `json:"goal"`
		Indexes   []int  `json:"indexes"`
		Rationale string `json:"rationale"`
	}
	if err := decodeResponse(content, &result); err != nil {
		return nil, err
	}

	proposal := &models.SprintProposal{
		Goal:      result.Goal,
		Rationale: result.Rationale,
	}
	for _, idx := range result.Indexes {
		if idx >= 0 && idx < len(items) {
			proposal.ItemIDs = append(proposal.ItemIDs, items[idx].ID)
		}
	}
	return proposal, nil
}

func (s *Service) checkReadiness(ctx context.Context, items []models.BacklogItem) error {
	content, err := s.generate(ctx, StepReadiness, readinessSystem, itemListPrompt(readinessInstruction, items))
	if err != nil {
		return err
	}

	var results []readinessResult
	if err := decodeResponse(content, &results); err != nil {
		return err
	}

	for _, r := range results {
		if r.Index < 0 || r.Index >= len(items) {
			continue
		}
		items[r.Index].Ready = r.Ready
		items[r.Index].ReadinessNotes = r.Notes
	}
	return nil
}

func (s *Service) summarize(ctx context.Context, transcript *models.Transcript, items []models.BacklogItem) (string, error) {
	return s.generate(ctx, StepFormat, formatSystem, summaryPrompt(transcript, items))
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func itemIndexLabel(i int, item models.BacklogItem) string {
	return fmt.Sprintf("%d. [%s] %s: %s", i, item.Type, item.Title, item.Description)
}
