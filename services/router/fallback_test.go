package router

import (
	"context"
	"errors"
	"testing"

	"github.com/ApexChef/backlog-chef/config"
	"github.com/ApexChef/backlog-chef/services"
	"github.com/ApexChef/backlog-chef/services/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateProviders(names ...string) []config.FallbackCandidate {
	cands := make([]config.FallbackCandidate, len(names))
	for i, name := range names {
		cands[i] = config.FallbackCandidate{Provider: name, Model: name + "-model"}
	}
	return cands
}

func TestFallbackCandidates_Cascade(t *testing.T) {
	cfg := baseConfig()
	cfg.Fallback = config.FallbackConfig{
		Enabled:    true,
		Strategy:   config.StrategyCascade,
		Candidates: candidateProviders("beta", "gamma", "delta"),
	}
	svc, _ := newTestRouter(t, cfg)

	for i := 0; i < 3; i++ {
		ordered := svc.fallbackCandidates()
		assert.Equal(t, candidateProviders("beta", "gamma", "delta"), ordered,
			"cascade order is stable across consultations")
	}
}

func TestFallbackCandidates_RoundRobin(t *testing.T) {
	cfg := baseConfig()
	cfg.Fallback = config.FallbackConfig{
		Enabled:    true,
		Strategy:   config.StrategyRoundRobin,
		Candidates: candidateProviders("beta", "gamma", "delta"),
	}
	svc, _ := newTestRouter(t, cfg)

	first := svc.fallbackCandidates()
	second := svc.fallbackCandidates()
	third := svc.fallbackCandidates()
	fourth := svc.fallbackCandidates()

	assert.Equal(t, "beta", first[0].Provider)
	assert.Equal(t, "gamma", second[0].Provider)
	assert.Equal(t, "delta", third[0].Provider)
	assert.Equal(t, "beta", fourth[0].Provider, "cursor wraps after one full cycle")

	assert.Equal(t, candidateProviders("gamma", "delta", "beta"), second)
}

func TestRoundRobin_AdvancesOncePerConsultation(t *testing.T) {
	cfg := baseConfig()
	cfg.Fallback = config.FallbackConfig{
		Enabled:    true,
		Strategy:   config.StrategyRoundRobin,
		Candidates: candidateProviders("beta", "gamma", "delta"),
	}

	alpha := remoteProvider("alpha")
	alpha.unavailable = true
	failing := func(name string) *fakeProvider {
		p := remoteProvider(name)
		p.execErr = providers.NewProviderError(name, providers.CategoryProviderError, "boom", 500, nil)
		return p
	}

	svc, _ := newTestRouter(t, cfg, alpha, failing("beta"), failing("gamma"), failing("delta"))

	attempted := func() []string {
		_, err := svc.Route(context.Background(), "score", &providers.GenerationRequest{Prompt: "p"})
		require.Error(t, err)
		var domainErr *services.DomainError
		require.True(t, errors.As(err, &domainErr))
		return domainErr.Details["attempted_providers"].([]string)
	}

	// Every consultation fails all candidates, so each one rotates the
	// cursor by exactly one; after three the order repeats.
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, attempted())
	assert.Equal(t, []string{"alpha", "gamma", "delta", "beta"}, attempted())
	assert.Equal(t, []string{"alpha", "delta", "beta", "gamma"}, attempted())
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, attempted())
}

func TestFallbackCandidates_CheapestFirst(t *testing.T) {
	cfg := baseConfig()
	cfg.Fallback = config.FallbackConfig{
		Enabled:    true,
		Strategy:   config.StrategyCheapestFirst,
		Candidates: candidateProviders("pricey", "cheap", "selfhosted"),
	}

	pricey := remoteProvider("pricey")
	pricey.estimate = 0.08
	cheap := remoteProvider("cheap")
	cheap.estimate = 0.001
	selfhosted := remoteProvider("selfhosted")
	selfhosted.ptype = providers.TypeLocal
	// a local provider orders first even with a higher estimated figure
	selfhosted.estimate = 0.5

	svc, _ := newTestRouter(t, cfg, pricey, cheap, selfhosted)

	ordered := svc.fallbackCandidates()

	require.Len(t, ordered, 3)
	assert.Equal(t, "selfhosted", ordered[0].Provider)
	assert.Equal(t, "cheap", ordered[1].Provider)
	assert.Equal(t, "pricey", ordered[2].Provider)
}

func TestFallbackCandidates_CheapestFirst_UnknownProviderLast(t *testing.T) {
	cfg := baseConfig()
	cfg.Fallback = config.FallbackConfig{
		Enabled:    true,
		Strategy:   config.StrategyCheapestFirst,
		Candidates: candidateProviders("ghost", "cheap"),
	}

	cheap := remoteProvider("cheap")
	cheap.estimate = 0.001

	svc, _ := newTestRouter(t, cfg, cheap)

	ordered := svc.fallbackCandidates()

	require.Len(t, ordered, 2)
	assert.Equal(t, "cheap", ordered[0].Provider)
	assert.Equal(t, "ghost", ordered[1].Provider)
}

func TestFallbackCandidates_CheapestFirst_StableForEqualCost(t *testing.T) {
	cfg := baseConfig()
	cfg.Fallback = config.FallbackConfig{
		Enabled:    true,
		Strategy:   config.StrategyCheapestFirst,
		Candidates: candidateProviders("first", "second"),
	}

	first := remoteProvider("first")
	first.estimate = 0.01
	second := remoteProvider("second")
	second.estimate = 0.01

	svc, _ := newTestRouter(t, cfg, first, second)

	ordered := svc.fallbackCandidates()

	assert.Equal(t, "first", ordered[0].Provider)
	assert.Equal(t, "second", ordered[1].Provider)
}
