package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultGeminiBaseURL Gemini API 預設位址
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultGeminiModel 預設模型
const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider 以 generateContent 介面呼叫 Gemini
type GeminiProvider struct {
	client *resty.Client
	model  string
}

// NewGeminiProvider 創建 Gemini 擷取後端
func NewGeminiProvider(cfg ProviderConfig) *GeminiProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &GeminiProvider{client: client, model: model}
}

// Name 實作 Provider
func (p *GeminiProvider) Name() string {
	return "gemini/" + p.model
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	TopP             float64 `json:"topP"`
	TopK             int     `json:"topK"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate 實作 Provider
func (p *GeminiProvider) Generate(ctx context.Context, prompt string, opts SamplingConfig) (string, error) {
	opts = opts.WithDefaults(DefaultSampling)

	req := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      opts.Temperature,
			MaxOutputTokens:  opts.MaxOutputTokens,
			TopP:             opts.TopP,
			TopK:             opts.TopK,
			ResponseMimeType: "application/json",
		},
	}

	start := time.Now()
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(fmt.Sprintf("/models/%s:generateContent", p.model))
	if err != nil {
		return "", fmt.Errorf("failed to send request to Gemini: %w", err)
	}

	common.LogDebug("Gemini 回應",
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(resp.Body())),
	)

	if resp.StatusCode() != http.StatusOK {
		return "", &StatusError{
			StatusCode: resp.StatusCode(),
			Body:       common.Truncate(resp.String(), 512),
		}
	}

	var result geminiResponse
	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	if err := dec.Decode(&result); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", ErrMalformedResponse, result.PromptFeedback.BlockReason)
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in Gemini response", ErrMalformedResponse)
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty Gemini candidate (finish reason %q)", ErrMalformedResponse, result.Candidates[0].FinishReason)
	}
	return text, nil
}
