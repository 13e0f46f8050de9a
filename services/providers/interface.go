package providers

import (
	"context"
	"errors"
	"fmt"
)

// ProviderType distinguishes self-hosted providers with zero marginal cost
// from metered remote APIs. The router's cheapest-first ordering relies on it.
type ProviderType string

const (
	TypeRemote ProviderType = "remote"
	TypeLocal  ProviderType = "local"
)

// Provider is the unified surface the router depends on. Concrete adapters
// (OpenAI, Ollama, ...) are registered by name and never referenced directly.
type Provider interface {
	// Name returns the provider name (e.g., "openai", "ollama")
	Name() string

	// Type reports whether the provider is metered ("remote") or
	// self-hosted ("local")
	Type() ProviderType

	// IsAvailable checks if the provider can currently accept work.
	// Ordinary unavailability returns false, it never returns an error.
	IsAvailable(ctx context.Context) bool

	// EstimateCost estimates the cost of a request before execution
	EstimateCost(req *GenerationRequest, currency string) (*CostEstimate, error)

	// Execute performs a single generation request
	Execute(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error)
}

// GenerationRequest is a single logical generation call. The router may
// overlay per-step defaults for Model, Temperature and MaxTokens when the
// caller left them unset.
type GenerationRequest struct {
	// System is the system instruction text
	System string `json:"system,omitempty"`

	// Prompt is the user instruction text
	Prompt string `json:"prompt"`

	// Model identifier; empty means "use the configured default"
	Model string `json:"model,omitempty"`

	// Temperature controls randomness; nil means unset
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens bounds the response length; 0 means unset
	MaxTokens int `json:"max_tokens,omitempty"`
}

// Clone returns a shallow copy so the router can overlay defaults without
// mutating the caller's request.
func (r *GenerationRequest) Clone() *GenerationRequest {
	cp := *r
	return &cp
}

// GenerationResponse is the unified result of a provider execution.
type GenerationResponse struct {
	// Content is the generated text
	Content string `json:"content"`

	// Provider and Model that actually served the request
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// CostUSD is the actual incurred cost, always non-negative
	CostUSD float64 `json:"cost_usd"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// CostEstimate is a pre-flight cost figure for a request.
type CostEstimate struct {
	// CostUSD is the canonical estimate used for budget gating
	CostUSD float64 `json:"cost_usd"`

	// Currency is a display-only tag; DisplayAmount is the estimate
	// expressed in that currency
	Currency      string  `json:"currency"`
	DisplayAmount float64 `json:"display_amount"`
}

// ErrorCategory classifies provider execution failures.
type ErrorCategory string

const (
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryModelNotFound  ErrorCategory = "model_not_found"
	CategoryRateLimited    ErrorCategory = "rate_limited"
	CategoryProviderError  ErrorCategory = "provider_error"
)

// ProviderError is a typed failure from a provider.
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Category classifies the failure
	Category ErrorCategory

	// Message is the human-readable description
	Message string

	// StatusCode is the HTTP status code, if applicable
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure could clear on its own. Auth and
// missing-model failures need operator intervention.
func (e *ProviderError) Retryable() bool {
	switch e.Category {
	case CategoryAuthentication, CategoryModelNotFound:
		return false
	}
	return true
}

// NewProviderError creates a new provider error
func NewProviderError(provider string, category ErrorCategory, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Category:   category,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// CategoryOf returns the category of a provider error, or an empty string
// when err is not a ProviderError.
func CategoryOf(err error) ErrorCategory {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Category
	}
	return ""
}
