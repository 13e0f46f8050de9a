package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ApexChef/backlog-chef/config"
	"github.com/ApexChef/backlog-chef/services/providers"
)

// Adapter implements providers.Provider against a local Ollama daemon.
// Self-hosted inference has zero marginal cost, so every estimate and every
// recorded cost is zero.
type Adapter struct {
	cfg        config.OllamaConfig
	httpClient *http.Client
}

// New creates a new Ollama adapter
func New(cfg config.OllamaConfig) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Adapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return "ollama"
}

// Type reports a self-hosted local provider
func (a *Adapter) Type() providers.ProviderType {
	return providers.TypeLocal
}

// IsAvailable probes the daemon's tags endpoint
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// EstimateCost always returns zero for local inference
func (a *Adapter) EstimateCost(req *providers.GenerationRequest, currency string) (*providers.CostEstimate, error) {
	return &providers.CostEstimate{CostUSD: 0, Currency: currency, DisplayAmount: 0}, nil
}

// Execute performs a chat request against the daemon
func (a *Adapter) Execute(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResponse, error) {
	if req.Model == "" {
		return nil, providers.NewProviderError(a.Name(), providers.CategoryModelNotFound, "no model specified", 0, nil)
	}

	chatReq := chatRequest{
		Model:  req.Model,
		Stream: false,
	}
	if req.System != "" {
		chatReq.Messages = append(chatReq.Messages, chatMessage{Role: "system", Content: req.System})
	}
	chatReq.Messages = append(chatReq.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.Temperature != nil {
		chatReq.Options.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		chatReq.Options.NumPredict = req.MaxTokens
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CategoryProviderError, "failed to marshal request", 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CategoryProviderError, "failed to create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CategoryProviderError, "http request failed", 0, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CategoryProviderError, "failed to read response", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		category := providers.CategoryProviderError
		if httpResp.StatusCode == http.StatusNotFound {
			category = providers.CategoryModelNotFound
		}
		return nil, providers.NewProviderError(a.Name(), category,
			fmt.Sprintf("unexpected status %d", httpResp.StatusCode), httpResp.StatusCode, nil)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CategoryProviderError, "failed to unmarshal response", httpResp.StatusCode, err)
	}

	return &providers.GenerationResponse{
		Content:      chatResp.Message.Content,
		Provider:     a.Name(),
		Model:        chatResp.Model,
		CostUSD:      0,
		InputTokens:  chatResp.PromptEvalCount,
		OutputTokens: chatResp.EvalCount,
	}, nil
}

// Wire types for the Ollama chat API.

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  struct {
		Temperature *float64 `json:"temperature,omitempty"`
		NumPredict  int      `json:"num_predict,omitempty"`
	} `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}
