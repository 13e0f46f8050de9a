package router

import (
	"context"
	"sync"

	"github.com/ApexChef/backlog-chef/config"
	"github.com/ApexChef/backlog-chef/services"
	"github.com/ApexChef/backlog-chef/services/budget"
	"github.com/ApexChef/backlog-chef/services/providers"
	"go.uber.org/zap"
)

// Result is a successful routing outcome: the response plus the ordered list
// of providers that were attempted and whether fallback was required.
type Result struct {
	Response           *providers.GenerationResponse
	AttemptedProviders []string
	FallbackUsed       bool
}

// Service routes a (step, request) pair to a provider. It resolves the
// primary from configuration, gates every attempt on the budget ledger, and
// on failure walks the fallback candidates per the configured strategy. The
// only resilience mechanism is moving to a different provider; same-provider
// retries are the provider's own concern.
type Service struct {
	cfg      *config.RoutingConfig
	registry *providers.Registry
	ledger   *budget.Service
	logger   *zap.Logger

	// round-robin cursor, advanced once per fallback consultation
	mu       sync.Mutex
	rrCursor int
}

// NewService creates a new router
func NewService(cfg *config.RoutingConfig, registry *providers.Registry, ledger *budget.Service, logger *zap.Logger) *Service {
	return &Service{
		cfg:      cfg,
		registry: registry,
		ledger:   ledger,
		logger:   logger,
	}
}

// Route resolves and executes a request for a pipeline step. It fails only
// when every attempted provider fails or is unaffordable.
func (s *Service) Route(ctx context.Context, step string, req *providers.GenerationRequest) (*Result, error) {
	// Offline mode bypasses per-step config and fallback entirely. The
	// forced provider is still subject to the budget gate.
	if s.cfg.Offline.Enabled {
		attempted := []string{s.cfg.Offline.Provider}
		resp, err := s.attempt(ctx, step, s.cfg.Offline.Provider, s.cfg.Offline.Model, req)
		if err != nil {
			s.logger.Error("offline provider failed",
				zap.String("step", step),
				zap.String("provider", s.cfg.Offline.Provider),
				zap.Error(err))
			return nil, err
		}
		return &Result{Response: resp, AttemptedProviders: attempted, FallbackUsed: false}, nil
	}

	primaryProvider, primaryModel := s.cfg.ResolveStep(step)
	attempted := []string{primaryProvider}

	resp, primaryErr := s.attempt(ctx, step, primaryProvider, primaryModel, req)
	if primaryErr == nil {
		return &Result{Response: resp, AttemptedProviders: attempted, FallbackUsed: false}, nil
	}

	if !s.cfg.Fallback.Enabled {
		return nil, primaryErr
	}

	s.logger.Warn("primary provider failed, consulting fallback",
		zap.String("step", step),
		zap.String("provider", primaryProvider),
		zap.String("strategy", string(s.cfg.Fallback.Strategy)),
		zap.Error(primaryErr))

	for _, cand := range s.fallbackCandidates() {
		if contains(attempted, cand.Provider) {
			continue
		}
		attempted = append(attempted, cand.Provider)

		resp, err := s.attempt(ctx, step, cand.Provider, cand.Model, req)
		if err != nil {
			s.logger.Warn("fallback provider failed",
				zap.String("step", step),
				zap.String("provider", cand.Provider),
				zap.Error(err))
			continue
		}
		return &Result{Response: resp, AttemptedProviders: attempted, FallbackUsed: true}, nil
	}

	// Only the primary failure is chained; later candidate failures were
	// logged above and are the less diagnostic signal.
	return nil, services.NewDomainError(services.ErrorTypeRouting, "all providers failed", primaryErr).
		WithDetail("step", step).
		WithDetail("attempted_providers", attempted)
}

// attempt performs a single budget-gated execution against one provider.
// Shared by the primary, every fallback candidate and offline mode.
func (s *Service) attempt(ctx context.Context, step, providerName, model string, req *providers.GenerationRequest) (*providers.GenerationResponse, error) {
	provider, err := s.registry.Get(providerName)
	if err != nil {
		// Likely misconfiguration rather than a transient condition, but
		// it must not crash the router; fallback may still succeed.
		return nil, services.NewDomainError(services.ErrorTypeRouting, "provider not registered", err).
			WithDetail("step", step).
			WithDetail("provider", providerName)
	}

	if !provider.IsAvailable(ctx) {
		return nil, services.NewDomainError(services.ErrorTypeRouting, "provider unavailable", nil).
			WithDetail("step", step).
			WithDetail("provider", providerName)
	}

	dispatch := s.overlayDefaults(req, model)

	estimate, err := provider.EstimateCost(dispatch, s.cfg.Currency())
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeExternal, "cost estimation failed", err).
			WithDetail("step", step).
			WithDetail("provider", providerName)
	}

	if limit, exceeded := s.ledger.ExceededLimit(estimate.CostUSD); exceeded {
		return nil, services.NewDomainError(services.ErrorTypeBudget, "budget exceeded", nil).
			WithDetail("step", step).
			WithDetail("provider", providerName).
			WithDetail("estimated_cost_usd", estimate.CostUSD).
			WithDetail("limit_usd", limit)
	}

	resp, err := provider.Execute(ctx, dispatch)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeExternal, "provider execution failed", err).
			WithDetail("step", step).
			WithDetail("provider", providerName)
	}

	s.ledger.Record(resp)
	return resp, nil
}

// overlayDefaults fills in model, temperature and max tokens for fields the
// caller left unset. The caller's request is never mutated.
func (s *Service) overlayDefaults(req *providers.GenerationRequest, model string) *providers.GenerationRequest {
	dispatch := req.Clone()
	if dispatch.Model == "" {
		dispatch.Model = model
	}
	if dispatch.Temperature == nil && s.cfg.Defaults.Temperature != nil {
		temp := *s.cfg.Defaults.Temperature
		dispatch.Temperature = &temp
	}
	if dispatch.MaxTokens == 0 {
		dispatch.MaxTokens = s.cfg.Defaults.MaxTokens
	}
	return dispatch
}

// CostStatistics returns the ledger snapshot
func (s *Service) CostStatistics() budget.Statistics {
	return s.ledger.Statistics()
}

// ResetCostTracking zeroes the ledger
func (s *Service) ResetCostTracking() {
	s.ledger.Reset()
}

// IsProviderAvailable delegates to the named provider's availability check
func (s *Service) IsProviderAvailable(ctx context.Context, name string) bool {
	provider, err := s.registry.Get(name)
	if err != nil {
		return false
	}
	return provider.IsAvailable(ctx)
}

// AvailableProviders returns the names of all currently available providers
func (s *Service) AvailableProviders(ctx context.Context) []string {
	var available []string
	for _, name := range s.registry.List() {
		if s.IsProviderAvailable(ctx, name) {
			available = append(available, name)
		}
	}
	return available
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
