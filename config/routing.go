package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FallbackStrategy selects how fallback candidates are ordered.
type FallbackStrategy string

const (
	// StrategyCascade tries candidates in declaration order
	StrategyCascade FallbackStrategy = "cascade"

	// StrategyRoundRobin rotates the starting candidate on every consultation
	StrategyRoundRobin FallbackStrategy = "round-robin"

	// StrategyCheapestFirst orders candidates by estimated cost, local providers first
	StrategyCheapestFirst FallbackStrategy = "cheapest-first"
)

// RoutingConfig is the routing and budget-governance configuration, loaded
// once per run and read-only for the lifetime of a Router.
type RoutingConfig struct {
	Defaults RoutingDefaults         `yaml:"defaults" validate:"required"`
	Fallback FallbackConfig          `yaml:"fallback"`
	Steps    map[string]StepOverride `yaml:"steps"`
	Budget   BudgetConfig            `yaml:"budget"`
	Offline  OfflineConfig           `yaml:"offline"`
}

// RoutingDefaults applies when a step has no override and the request leaves
// a field unset.
type RoutingDefaults struct {
	Provider    string   `yaml:"provider" validate:"required"`
	Model       string   `yaml:"model" validate:"required"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty" validate:"gte=0"`
	Currency    string   `yaml:"currency"`
}

// FallbackConfig selects the fallback policy and its candidates.
type FallbackConfig struct {
	Enabled    bool                `yaml:"enabled"`
	Strategy   FallbackStrategy    `yaml:"strategy"`
	Candidates []FallbackCandidate `yaml:"candidates"`
}

// FallbackCandidate is a (provider, model) pair to try when the primary fails.
type FallbackCandidate struct {
	Provider string `yaml:"provider" validate:"required"`
	Model    string `yaml:"model" validate:"required"`
}

// StepOverride pins a pipeline step to a specific provider and model.
type StepOverride struct {
	Provider string `yaml:"provider" validate:"required"`
	Model    string `yaml:"model" validate:"required"`
	Reason   string `yaml:"reason,omitempty"`
}

// BudgetConfig holds the optional spending ceilings, all in USD.
// A nil limit means unlimited.
type BudgetConfig struct {
	MaxDailyCost   *float64 `yaml:"max_daily_cost,omitempty"`
	MaxRunCost     *float64 `yaml:"max_run_cost,omitempty"`
	AlertThreshold *float64 `yaml:"alert_threshold,omitempty"`
}

// OfflineConfig forces all routing to a single local provider, bypassing
// per-step overrides and fallback entirely.
type OfflineConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// LoadRoutingConfig reads and validates a routing configuration file.
func LoadRoutingConfig(path string) (*RoutingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routing config %s: %w", path, err)
	}

	var cfg RoutingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse routing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid routing config %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks the configuration invariants. It is called at load time so
// routing never sees an invalid configuration.
func (c *RoutingConfig) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c.Defaults); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}

	if c.Fallback.Enabled {
		switch c.Fallback.Strategy {
		case StrategyCascade, StrategyRoundRobin, StrategyCheapestFirst:
		default:
			return fmt.Errorf("fallback: unknown strategy %q", c.Fallback.Strategy)
		}
		if len(c.Fallback.Candidates) == 0 {
			return fmt.Errorf("fallback: enabled but no candidates configured")
		}
		for i, cand := range c.Fallback.Candidates {
			if err := validate.Struct(cand); err != nil {
				return fmt.Errorf("fallback candidate %d: %w", i, err)
			}
		}
	}

	for step, override := range c.Steps {
		if err := validate.Struct(override); err != nil {
			return fmt.Errorf("step %q: %w", step, err)
		}
	}

	for name, limit := range map[string]*float64{
		"max_daily_cost":  c.Budget.MaxDailyCost,
		"max_run_cost":    c.Budget.MaxRunCost,
		"alert_threshold": c.Budget.AlertThreshold,
	} {
		if limit != nil && *limit < 0 {
			return fmt.Errorf("budget: %s must be non-negative, got %f", name, *limit)
		}
	}

	if c.Offline.Enabled {
		if c.Offline.Provider == "" || c.Offline.Model == "" {
			return fmt.Errorf("offline: enabled but provider/model not set")
		}
	}

	return nil
}

// Currency returns the configured display currency, defaulting to USD.
func (c *RoutingConfig) Currency() string {
	if c.Defaults.Currency == "" {
		return "USD"
	}
	return c.Defaults.Currency
}

// ResolveStep returns the provider and model for a step, falling back to the
// global defaults when the step has no override.
func (c *RoutingConfig) ResolveStep(step string) (provider, model string) {
	if override, ok := c.Steps[step]; ok {
		return override.Provider, override.Model
	}
	return c.Defaults.Provider, c.Defaults.Model
}
