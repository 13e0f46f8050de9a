package budget

import (
	"sync"
	"time"

	"github.com/ApexChef/backlog-chef/config"
	"github.com/ApexChef/backlog-chef/services/providers"
	"go.uber.org/zap"
)

// alertCooldown is the minimum interval between threshold alerts.
const alertCooldown = 60 * time.Second

// Alert describes a crossed spending threshold. Alerts are advisory only and
// never block requests.
type Alert struct {
	TotalCostUSD float64
	Threshold    float64
	At           time.Time
}

// AlertFunc receives threshold alerts.
type AlertFunc func(Alert)

// Statistics is a point-in-time snapshot of the ledger.
type Statistics struct {
	TotalCostUSD          float64            `json:"total_cost_usd"`
	TotalRequests         int                `json:"total_requests"`
	AverageCostPerRequest float64            `json:"average_cost_per_request"`
	CostByProvider        map[string]float64 `json:"cost_by_provider"`
	RequestsByProvider    map[string]int     `json:"requests_by_provider"`
	InputTokens           int64              `json:"input_tokens"`
	OutputTokens          int64              `json:"output_tokens"`
	StartedAt             time.Time          `json:"started_at"`
	Elapsed               time.Duration      `json:"elapsed"`
}

// Service is the in-memory budget ledger. It gates spending against the
// configured ceilings using pre-flight estimates and records actual costs
// after execution. Scoped to one process; never persisted.
type Service struct {
	limits  config.BudgetConfig
	logger  *zap.Logger
	alertFn AlertFunc

	mu                 sync.Mutex
	totalCost          float64
	totalRequests      int
	inputTokens        int64
	outputTokens       int64
	costByProvider     map[string]float64
	requestsByProvider map[string]int
	startedAt          time.Time
	lastAlertAt        time.Time

	now func() time.Time
}

// NewService creates a new budget ledger
func NewService(limits config.BudgetConfig, logger *zap.Logger) *Service {
	now := time.Now
	return &Service{
		limits:             limits,
		logger:             logger,
		costByProvider:     make(map[string]float64),
		requestsByProvider: make(map[string]int),
		startedAt:          now(),
		now:                now,
	}
}

// SetAlertFunc installs a callback invoked when the alert threshold is
// crossed. Alerts are also logged regardless of the callback.
func (s *Service) SetAlertFunc(fn AlertFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alertFn = fn
}

// CanAfford reports whether an additional estimated cost fits under the
// configured ceilings. With no ceilings configured it always returns true.
// Enforcement is soft: the gate uses the pre-flight estimate, so an attempt
// whose actual cost lands slightly past a limit can still be admitted.
func (s *Service) CanAfford(estimatedCost float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit := s.limits.MaxRunCost; limit != nil && s.totalCost+estimatedCost > *limit {
		return false
	}
	if limit := s.limits.MaxDailyCost; limit != nil && s.totalCost+estimatedCost > *limit {
		return false
	}
	return true
}

// ExceededLimit returns the ceiling an estimated cost would breach, for error
// reporting. The second return is false when the cost is affordable.
func (s *Service) ExceededLimit(estimatedCost float64) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit := s.limits.MaxRunCost; limit != nil && s.totalCost+estimatedCost > *limit {
		return *limit, true
	}
	if limit := s.limits.MaxDailyCost; limit != nil && s.totalCost+estimatedCost > *limit {
		return *limit, true
	}
	return 0, false
}

// Record folds a successful response's actual cost and token usage into the
// ledger, then checks the alert threshold.
func (s *Service) Record(resp *providers.GenerationResponse) {
	s.mu.Lock()

	s.totalCost += resp.CostUSD
	s.totalRequests++
	s.inputTokens += int64(resp.InputTokens)
	s.outputTokens += int64(resp.OutputTokens)
	s.costByProvider[resp.Provider] += resp.CostUSD
	s.requestsByProvider[resp.Provider]++

	alert, fn := s.checkAlertLocked()
	s.mu.Unlock()

	if alert != nil {
		s.logger.Warn("budget alert threshold crossed",
			zap.Float64("total_cost_usd", alert.TotalCostUSD),
			zap.Float64("threshold", alert.Threshold))
		if fn != nil {
			fn(*alert)
		}
	}
}

// checkAlertLocked emits at most one alert per cooldown interval once the
// running total reaches the threshold. Caller must hold the mutex.
func (s *Service) checkAlertLocked() (*Alert, AlertFunc) {
	threshold := s.limits.AlertThreshold
	if threshold == nil || s.totalCost < *threshold {
		return nil, nil
	}

	now := s.now()
	if !s.lastAlertAt.IsZero() && now.Sub(s.lastAlertAt) < alertCooldown {
		return nil, nil
	}
	s.lastAlertAt = now

	return &Alert{
		TotalCostUSD: s.totalCost,
		Threshold:    *threshold,
		At:           now,
	}, s.alertFn
}

// Statistics returns a snapshot of the ledger. Pure read, no mutation.
func (s *Service) Statistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Statistics{
		TotalCostUSD:       s.totalCost,
		TotalRequests:      s.totalRequests,
		CostByProvider:     make(map[string]float64, len(s.costByProvider)),
		RequestsByProvider: make(map[string]int, len(s.requestsByProvider)),
		InputTokens:        s.inputTokens,
		OutputTokens:       s.outputTokens,
		StartedAt:          s.startedAt,
		Elapsed:            s.now().Sub(s.startedAt),
	}
	if s.totalRequests > 0 {
		stats.AverageCostPerRequest = s.totalCost / float64(s.totalRequests)
	}
	for k, v := range s.costByProvider {
		stats.CostByProvider[k] = v
	}
	for k, v := range s.requestsByProvider {
		stats.RequestsByProvider[k] = v
	}

	return stats
}

// Reset zeroes every counter and restarts the start-time and alert clocks.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalCost = 0
	s.totalRequests = 0
	s.inputTokens = 0
	s.outputTokens = 0
	s.costByProvider = make(map[string]float64)
	s.requestsByProvider = make(map[string]int)
	s.startedAt = s.now()
	s.lastAlertAt = time.Time{}
}
