package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func validConfig() *RoutingConfig {
	return &RoutingConfig{
		Defaults: RoutingDefaults{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Currency: "USD",
		},
	}
}

func TestRoutingConfig_Validate(t *testing.T) {
	t.Run("minimal valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("missing default provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.Defaults.Provider = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing default model", func(t *testing.T) {
		cfg := validConfig()
		cfg.Defaults.Model = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("fallback enabled without candidates", func(t *testing.T) {
		cfg := validConfig()
		cfg.Fallback = FallbackConfig{Enabled: true, Strategy: StrategyCascade}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no candidates")
	})

	t.Run("unknown fallback strategy", func(t *testing.T) {
		cfg := validConfig()
		cfg.Fallback = FallbackConfig{
			Enabled:    true,
			Strategy:   "random",
			Candidates: []FallbackCandidate{{Provider: "ollama", Model: "llama3"}},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown strategy")
	})

	t.Run("disabled fallback skips strategy check", func(t *testing.T) {
		cfg := validConfig()
		cfg.Fallback = FallbackConfig{Enabled: false, Strategy: "random"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("candidate missing model", func(t *testing.T) {
		cfg := validConfig()
		cfg.Fallback = FallbackConfig{
			Enabled:    true,
			Strategy:   StrategyRoundRobin,
			Candidates: []FallbackCandidate{{Provider: "ollama"}},
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("step override missing provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.Steps = map[string]StepOverride{
			"score": {Model: "gpt-4o"},
		}
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative budget limit", func(t *testing.T) {
		cfg := validConfig()
		cfg.Budget.MaxDailyCost = floatPtr(-1)
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-negative")
	})

	t.Run("zero budget limit is allowed", func(t *testing.T) {
		cfg := validConfig()
		cfg.Budget.MaxRunCost = floatPtr(0)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("offline enabled without provider", func(t *testing.T) {
		cfg := validConfig()
		cfg.Offline = OfflineConfig{Enabled: true, Model: "llama3"}
		assert.Error(t, cfg.Validate())
	})
}

func TestRoutingConfig_ResolveStep(t *testing.T) {
	cfg := validConfig()
	cfg.Steps = map[string]StepOverride{
		"extract": {Provider: "ollama", Model: "llama3", Reason: "cheap structured extraction"},
	}

	provider, model := cfg.ResolveStep("extract")
	assert.Equal(t, "ollama", provider)
	assert.Equal(t, "llama3", model)

	provider, model = cfg.ResolveStep("score")
	assert.Equal(t, "openai", provider)
	assert.Equal(t, "gpt-4o-mini", model)
}

func TestRoutingConfig_Currency(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "USD", cfg.Currency())

	cfg.Defaults.Currency = "EUR"
	assert.Equal(t, "EUR", cfg.Currency())

	cfg.Defaults.Currency = ""
	assert.Equal(t, "USD", cfg.Currency())
}

func TestLoadRoutingConfig(t *testing.T) {
	t.Run("full file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "routing.yaml")
		content := `
defaults:
  provider: openai
  model: gpt-4o-mini
  temperature: 0.3
  max_tokens: 2048
  currency: USD
fallback:
  enabled: true
  strategy: cheapest-first
  candidates:
    - provider: ollama
      model: llama3
    - provider: openai
      model: gpt-3.5-turbo
steps:
  score:
    provider: openai
    model: gpt-4o
    reason: scoring needs the larger model
budget:
  max_daily_cost: 5.0
  max_run_cost: 1.0
  alert_threshold: 0.5
offline:
  enabled: false
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := LoadRoutingConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "openai", cfg.Defaults.Provider)
		require.NotNil(t, cfg.Defaults.Temperature)
		assert.Equal(t, 0.3, *cfg.Defaults.Temperature)
		assert.Equal(t, StrategyCheapestFirst, cfg.Fallback.Strategy)
		assert.Len(t, cfg.Fallback.Candidates, 2)
		assert.Equal(t, "gpt-4o", cfg.Steps["score"].Model)
		require.NotNil(t, cfg.Budget.MaxRunCost)
		assert.Equal(t, 1.0, *cfg.Budget.MaxRunCost)
		assert.False(t, cfg.Offline.Enabled)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRoutingConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("defaults: [not a map"), 0o644))
		_, err := LoadRoutingConfig(path)
		assert.Error(t, err)
	})

	t.Run("invalid config rejected at load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("defaults:\n  provider: openai\n"), 0o644))
		_, err := LoadRoutingConfig(path)
		assert.Error(t, err)
	})
}
