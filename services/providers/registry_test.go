package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name string
}

func (p *stubProvider) Name() string                          { return p.name }
func (p *stubProvider) Type() ProviderType                    { return TypeRemote }
func (p *stubProvider) IsAvailable(_ context.Context) bool    { return true }
func (p *stubProvider) EstimateCost(_ *GenerationRequest, currency string) (*CostEstimate, error) {
	return &CostEstimate{CostUSD: 0.01, Currency: currency, DisplayAmount: 0.01}, nil
}
func (p *stubProvider) Execute(_ context.Context, _ *GenerationRequest) (*GenerationResponse, error) {
	return &GenerationResponse{Content: "ok", Provider: p.name}, nil
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&stubProvider{name: "openai"}))
	assert.Equal(t, 1, registry.Count())

	t.Run("duplicate name rejected", func(t *testing.T) {
		err := registry.Register(&stubProvider{name: "openai"})
		assert.ErrorIs(t, err, ErrProviderAlreadyRegistered)
	})

	t.Run("nil provider rejected", func(t *testing.T) {
		assert.Error(t, registry.Register(nil))
	})

	t.Run("empty name rejected", func(t *testing.T) {
		assert.Error(t, registry.Register(&stubProvider{name: ""}))
	})
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	provider := &stubProvider{name: "ollama"}
	require.NoError(t, registry.Register(provider))

	got, err := registry.Get("ollama")
	require.NoError(t, err)
	assert.Same(t, provider, got)

	_, err = registry.Get("missing")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubProvider{name: "openai"}))

	require.NoError(t, registry.Unregister("openai"))
	assert.Equal(t, 0, registry.Count())
	assert.ErrorIs(t, registry.Unregister("openai"), ErrProviderNotFound)
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubProvider{name: "ollama"}))
	require.NoError(t, registry.Register(&stubProvider{name: "anthropic"}))
	require.NoError(t, registry.Register(&stubProvider{name: "openai"}))

	assert.Equal(t, []string{"anthropic", "ollama", "openai"}, registry.List())
}

func TestProviderError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewProviderError("openai", CategoryRateLimited, "rate limited", 429, cause)

	assert.Contains(t, err.Error(), "openai")
	assert.Contains(t, err.Error(), "rate limited")
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, CategoryRateLimited, CategoryOf(err))
	assert.Equal(t, ErrorCategory(""), CategoryOf(errors.New("plain")))

	assert.True(t, err.Retryable())
	assert.False(t, NewProviderError("openai", CategoryAuthentication, "bad key", 401, nil).Retryable())
	assert.False(t, NewProviderError("ollama", CategoryModelNotFound, "no model", 404, nil).Retryable())
	assert.True(t, NewProviderError("openai", CategoryProviderError, "boom", 500, nil).Retryable())
}

func TestGenerationRequest_Clone(t *testing.T) {
	temp := 0.3
	req := &GenerationRequest{Prompt: "p", Temperature: &temp}

	cp := req.Clone()
	cp.Model = "gpt-4o"
	cp.MaxTokens = 512

	assert.Empty(t, req.Model)
	assert.Zero(t, req.MaxTokens)
	assert.Same(t, req.Temperature, cp.Temperature)
}
