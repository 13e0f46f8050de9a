package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ApexChef/backlog-chef/models"
	"github.com/ApexChef/backlog-chef/services"
	"github.com/ApexChef/backlog-chef/services/budget"
	"github.com/ApexChef/backlog-chef/services/providers"
	"github.com/ApexChef/backlog-chef/services/router"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Step names used as routing keys. The router resolves per-step provider
// overrides from these.
const (
	StepClassify  = "classify"
	StepExtract   = "extract"
	StepScore     = "score"
	StepEnrich    = "enrich"
	StepRisks     = "risks"
	StepProposal  = "proposal"
	StepReadiness = "readiness"
	StepFormat    = "format"
)

// Router is the routing surface the pipeline consumes.
type Router interface {
	Route(ctx context.Context, step string, req *providers.GenerationRequest) (*router.Result, error)
	CostStatistics() budget.Statistics
}

// Service turns a meeting transcript into a structured backlog run. All
// decision logic (provider selection, fallback, budget) lives behind the
// Router; the steps here are prompt construction and response parsing.
type Service struct {
	router Router
	logger *zap.Logger
}

// NewService creates a new pipeline service
func NewService(r Router, logger *zap.Logger) *Service {
	return &Service{
		router: r,
		logger: logger,
	}
}

// Process runs the full pipeline over a transcript.
func (s *Service) Process(ctx context.Context, transcript *models.Transcript) (*models.Run, error) {
	if transcript == nil || transcript.IsEmpty() {
		return nil, services.ErrInvalidTranscript
	}

	run := &models.Run{
		ID:        uuid.New(),
		Source:    transcript.Source,
		StartedAt: time.Now(),
	}

	meetingType, err := s.classify(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("classify step: %w", err)
	}
	run.MeetingType = meetingType
	s.logger.Info("transcript classified",
		zap.String("run_id", run.ID.String()),
		zap.String("meeting_type", meetingType))

	items, err := s.extract(ctx, transcript, meetingType)
	if err != nil {
		return nil, fmt.Errorf("extract step: %w", err)
	}
	if len(items) == 0 {
		s.logger.Warn("no backlog candidates extracted", zap.String("run_id", run.ID.String()))
		run.FinishedAt = time.Now()
		return run, nil
	}
	s.logger.Info("candidates extracted",
		zap.String("run_id", run.ID.String()),
		zap.Int("count", len(items)))

	if err := s.score(ctx, items); err != nil {
		return nil, fmt.Errorf("score step: %w", err)
	}
	if err := s.enrich(ctx, items); err != nil {
		return nil, fmt.Errorf("enrich step: %w", err)
	}
	if err := s.analyzeRisks(ctx, items); err != nil {
		return nil, fmt.Errorf("risks step: %w", err)
	}

	proposal, err := s.propose(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("proposal step: %w", err)
	}
	run.Proposal = proposal

	if err := s.checkReadiness(ctx, items); err != nil {
		return nil, fmt.Errorf("readiness step: %w", err)
	}

	summary, err := s.summarize(ctx, transcript, items)
	if err != nil {
		return nil, fmt.Errorf("format step: %w", err)
	}
	run.Summary = summary

	run.Items = items
	run.FinishedAt = time.Now()

	stats := s.router.CostStatistics()
	run.TotalCostUSD = stats.TotalCostUSD
	run.TotalRequests = stats.TotalRequests

	s.logger.Info("pipeline run finished",
		zap.String("run_id", run.ID.String()),
		zap.Int("items", len(run.Items)),
		zap.Float64("total_cost_usd", run.TotalCostUSD),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))

	return run, nil
}

// generate issues one routed request and returns the response content.
func (s *Service) generate(ctx context.Context, step, system, prompt string) (string, error) {
	result, err := s.router.Route(ctx, step, &providers.GenerationRequest{
		System: system,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	if result.FallbackUsed {
		s.logger.Debug("step served via fallback",
			zap.String("step", step),
			zap.Strings("attempted_providers", result.AttemptedProviders))
	}
	return result.Response.Content, nil
}
