package openai

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

const defaultModel = "gpt-4o-mini"

// modelPricing holds USD cost per 1K tokens.
type modelPricing struct {
	promptPer1K     float64
	completionPer1K float64
}

var pricing = map[string]modelPricing{
	"gpt-4o":        {promptPer1K: 0.0025, completionPer1K: 0.01},
	"gpt-4o-mini":   {promptPer1K: 0.00015, completionPer1K: 0.0006},
	"gpt-4-turbo":   {promptPer1K: 0.01, completionPer1K: 0.03},
	"gpt-3.5-turbo": {promptPer1K: 0.0005, completionPer1K: 0.0015},
}

// displayRates converts USD estimates into display currencies. Display-only;
// budget gating always uses USD.
var displayRates = map[string]float64{
	"USD": 1.0,
	"EUR": 0.92,
	"GBP": 0.79,
	"COP": 4100,
}

// Adapter implements providers.Provider against the OpenAI chat completions API.
type Adapter struct {
	cfg        config.OpenAIConfig
	httpClient *http.Client
}

// New creates a new OpenAI adapter
func New(cfg config.OpenAIConfig) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Adapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return "openai"
}

// Type reports a metered remote provider
func (a *Adapter) Type() providers.ProviderType {
	return providers.TypeRemote
}

// IsAvailable probes the models endpoint
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	if a.cfg.APIKey == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.BaseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// EstimateCost approximates the pre-flight cost from prompt length and the
// max-token bound. Unknown models fall back to the default model's pricing.
func (a *Adapter) EstimateCost(req *providers.GenerationRequest, currency string) (*providers.CostEstimate, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	rates, ok := pricing[model]
	if !ok {
		rates = pricing[defaultModel]
	}

	promptTokens := estimateTokens(req.System) + estimateTokens(req.Prompt)
	completionTokens := req.MaxTokens
	if completionTokens == 0 {
		completionTokens = 1024
	}

	costUSD := float64(promptTokens)/1000*rates.promptPer1K +
		float64(completionTokens)/1000*rates.completionPer1K

	return &providers.CostEstimate{
		CostUSD:       costUSD,
		Currency:      currency,
		DisplayAmount: toDisplay(costUSD, currency),
	}, nil
}

// Execute performs a chat completion request
func (a *Adapter) Execute(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}

	body, err := json.Marshal(a.buildChatRequest(model, req))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CategoryProviderError, "failed to marshal request", 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CategoryProviderError, "failed to create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

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
		return nil, a.errorFromStatus(httpResp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, providers.NewProviderError(a.Name(), providers.CategoryProviderError, "failed to unmarshal response", httpResp.StatusCode, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, providers.NewProviderError(a.Name(), providers.CategoryProviderError, "response contained no choices", httpResp.StatusCode, nil)
	}

	rates, ok := pricing[chatResp.Model]
	if !ok {
		rates = pricing[defaultModel]
	}
	costUSD := float64(chatResp.Usage.PromptTokens)/1000*rates.promptPer1K +
		float64(chatResp.Usage.CompletionTokens)/1000*rates.completionPer1K

	return &providers.GenerationResponse{
		Content:      chatResp.Choices[0].Message.Content,
		Provider:     a.Name(),
		Model:        chatResp.Model,
		CostUSD:      costUSD,
		InputTokens:  chatResp.Usage.PromptTokens,
		OutputTokens: chatResp.Usage.CompletionTokens,
	}, nil
}

func (a *Adapter) buildChatRequest(model string, req *providers.GenerationRequest) *chatRequest {
	chatReq := &chatRequest{Model: model}

	if req.System != "" {
		chatReq.Messages = append(chatReq.Messages, chatMessage{Role: "system", Content: req.System})
	}
	chatReq.Messages = append(chatReq.Messages, chatMessage{Role: "user", Content: req.Prompt})

	if req.Temperature != nil {
		chatReq.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	return chatReq
}

func (a *Adapter) errorFromStatus(status int, body []byte) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	message := fmt.Sprintf("unexpected status %d", status)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	category := providers.CategoryProviderError
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		category = providers.CategoryAuthentication
	case http.StatusNotFound:
		category = providers.CategoryModelNotFound
	case http.StatusTooManyRequests:
		category = providers.CategoryRateLimited
	}

	return providers.NewProviderError(a.Name(), category, message, status, nil)
}

// estimateTokens approximates token count at four characters per token.
func estimateTokens(text string) int {
	return len(text) / 4
}

func toDisplay(costUSD float64, currency string) float64 {
	rate, ok := displayRates[currency]
	if !ok {
		rate = 1.0
	}
	return costUSD * rate
}

// Wire types for the OpenAI chat completions API.

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
