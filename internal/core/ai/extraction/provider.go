package extraction

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"recipe-importer/internal/infrastructure/config"
)

// SamplingConfig 擷取請求的取樣參數
type SamplingConfig struct {
	Temperature     float64       `json:"temperature"`
	MaxOutputTokens int           `json:"max_output_tokens"`
	TopP            float64       `json:"top_p"`
	TopK            int           `json:"top_k"`
	Timeout         time.Duration `json:"timeout"`
}

// DefaultSampling 預設取樣參數
var DefaultSampling = SamplingConfig{
	Temperature:     0.2,
	MaxOutputTokens: 8192,
	TopP:            0.95,
	TopK:            40,
	Timeout:         60 * time.Second,
}

// WithDefaults 以 base 補齊未設定（零值）的欄位
func (s SamplingConfig) WithDefaults(base SamplingConfig) SamplingConfig {
	if s.Temperature == 0 {
		s.Temperature = base.Temperature
	}
	if s.MaxOutputTokens <= 0 {
		s.MaxOutputTokens = base.MaxOutputTokens
	}
	if s.TopP == 0 {
		s.TopP = base.TopP
	}
	if s.TopK <= 0 {
		s.TopK = base.TopK
	}
	if s.Timeout <= 0 {
		s.Timeout = base.Timeout
	}
	return s
}

func (s SamplingConfig) fingerprint() string {
	return strings.Join([]string{
		strconv.FormatFloat(s.Temperature, 'f', -1, 64),
		strconv.Itoa(s.MaxOutputTokens),
		strconv.FormatFloat(s.TopP, 'f', -1, 64),
		strconv.Itoa(s.TopK),
	}, "|")
}

// Provider 擷取服務後端
type Provider interface {
	// Generate 送出提示詞並回傳原始文字回應
	Generate(ctx context.Context, prompt string, opts SamplingConfig) (string, error)

	// Name 供應商與模型名稱，例如 "gemini/gemini-1.5-flash"
	Name() string
}

// ProviderConfig 供應商連線設定
type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewProvider 依設定建立擷取服務後端
func NewProvider(cfg config.ExtractionConfig) (Provider, error) {
	pc := ProviderConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		return NewGeminiProvider(pc), nil
	case "openrouter":
		return NewOpenRouterProvider(pc), nil
	default:
		return nil, fmt.Errorf("unsupported extraction provider: %q", cfg.Provider)
	}
}
