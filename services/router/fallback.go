package router

import (
	"math"
	"sort"

	"github.com/ApexChef/backlog-chef/config"
	"github.com/ApexChef/backlog-chef/services/providers"
)

// referencePrompt is the nominal fixed-size request used to order candidates
// under cheapest-first. Per-request ordering would require estimate calls
// against every candidate for every actual request, so a fixed approximation
// is used instead.
var referencePrompt = &providers.GenerationRequest{
	Prompt:    "Summarize the following meeting transcript excerpt into backlog items.",
	MaxTokens: 1024,
}

// fallbackCandidates computes the candidate ordering for one fallback
// consultation. Unknown strategies are rejected at config load time, so the
// switch is exhaustive here.
func (s *Service) fallbackCandidates() []config.FallbackCandidate {
	candidates := s.cfg.Fallback.Candidates

	switch s.cfg.Fallback.Strategy {
	case config.StrategyRoundRobin:
		return s.rotateCandidates(candidates)
	case config.StrategyCheapestFirst:
		return s.sortByEstimatedCost(candidates)
	default: // config.StrategyCascade
		return candidates
	}
}

// rotateCandidates starts the list at the current cursor position and
// advances the cursor by exactly one, regardless of how many candidates are
// subsequently tried or skipped.
func (s *Service) rotateCandidates(candidates []config.FallbackCandidate) []config.FallbackCandidate {
	s.mu.Lock()
	cursor := s.rrCursor
	s.rrCursor = (s.rrCursor + 1) % len(candidates)
	s.mu.Unlock()

	rotated := make([]config.FallbackCandidate, 0, len(candidates))
	rotated = append(rotated, candidates[cursor:]...)
	rotated = append(rotated, candidates[:cursor]...)
	return rotated
}

// sortByEstimatedCost stable-sorts candidates ascending by the estimated
// cost of the reference request. Local providers have zero marginal cost and
// always order before remote ones.
func (s *Service) sortByEstimatedCost(candidates []config.FallbackCandidate) []config.FallbackCandidate {
	type ranked struct {
		cand  config.FallbackCandidate
		local bool
		cost  float64
	}

	rankedCands := make([]ranked, 0, len(candidates))
	for _, cand := range candidates {
		entry := ranked{cand: cand, cost: math.Inf(1)}

		provider, err := s.registry.Get(cand.Provider)
		if err == nil {
			entry.local = provider.Type() == providers.TypeLocal

			ref := referencePrompt.Clone()
			ref.Model = cand.Model
			if estimate, err := provider.EstimateCost(ref, s.cfg.Currency()); err == nil {
				entry.cost = estimate.CostUSD
			}
		}

		rankedCands = append(rankedCands, entry)
	}

	sort.SliceStable(rankedCands, func(i, j int) bool {
		if rankedCands[i].local != rankedCands[j].local {
			return rankedCands[i].local
		}
		return rankedCands[i].cost < rankedCands[j].cost
	})

	sorted := make([]config.FallbackCandidate, len(rankedCands))
	for i, entry := range rankedCands {
		sorted[i] = entry.cand
	}
	return sorted
}
