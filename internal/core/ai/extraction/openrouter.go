package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// DefaultOpenRouterBaseURL OpenRouter API 預設位址
const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// DefaultOpenRouterModel 預設模型
const DefaultOpenRouterModel = "google/gemini-flash-1.5"

// OpenRouterProvider 以 chat completions 介面呼叫 OpenRouter
type OpenRouterProvider struct {
	client *resty.Client
	model  string
}

// NewOpenRouterProvider 創建 OpenRouter 擷取後端
func NewOpenRouterProvider(cfg ProviderConfig) *OpenRouterProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("X-Title", "Recipe Importer")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenRouterModel
	}

	return &OpenRouterProvider{client: client, model: model}
}

// Name 實作 Provider
func (p *OpenRouterProvider) Name() string {
	return "openrouter/" + p.model
}

// Generate 實作 Provider
func (p *OpenRouterProvider) Generate(ctx context.Context, prompt string, opts SamplingConfig) (string, error) {
	opts = opts.WithDefaults(DefaultSampling)

	// 構建請求
	req := map[string]interface{}{
		"model": p.model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"max_tokens":  opts.MaxOutputTokens,
		"temperature": opts.Temperature,
		"top_p":       opts.TopP,
		"top_k":       opts.TopK,
	}

	// 發送請求
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", &StatusError{
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}

	// 解析回應
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("%w: failed to parse OpenRouter response: %v", ErrMalformedResponse, err)
	}

	if result.Error != nil && result.Error.Message != "" {
		return "", fmt.Errorf("%w: %s", ErrMalformedResponse, result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in OpenRouter response", ErrMalformedResponse)
	}

	return result.Choices[0].Message.Content, nil
}
