package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Server      ServerConfig     `mapstructure:"server"`
	Extraction  ExtractionConfig `mapstructure:"extraction"`
	Chunking    ChunkingConfig   `mapstructure:"chunking"`
	Appliance   ApplianceConfig  `mapstructure:"appliance"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Queue       QueueConfig      `mapstructure:"queue"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	DedupWindow time.Duration    `mapstructure:"dedup_window"`
	LogLevel    string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// ExtractionConfig 文字擷取服務設定
type ExtractionConfig struct {
	Provider            string        `mapstructure:"provider"` // gemini | openrouter
	APIKey              string        `mapstructure:"api_key"`
	Model               string        `mapstructure:"model"`
	BaseURL             string        `mapstructure:"base_url"`
	Temperature         float64       `mapstructure:"temperature"`
	TopP                float64       `mapstructure:"top_p"`
	TopK                int           `mapstructure:"top_k"`
	MaxOutputTokens     int           `mapstructure:"max_output_tokens"`
	Timeout             time.Duration `mapstructure:"timeout"`
	InterChunkDelay     time.Duration `mapstructure:"inter_chunk_delay"`
	RateLimitRetryDelay time.Duration `mapstructure:"rate_limit_retry_delay"`
}

// ChunkingConfig 文字切塊設定（以字元數計）
type ChunkingConfig struct {
	MaxChunkSize      int `mapstructure:"max_chunk_size"`
	OverlapSize       int `mapstructure:"overlap_size"`
	MinFinalChunkSize int `mapstructure:"min_final_chunk_size"`
}

// ApplianceConfig 家電動作建議設定
type ApplianceConfig struct {
	SuggestionsEnabled bool   `mapstructure:"suggestions_enabled"`
	DefaultFamily      string `mapstructure:"default_family"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Backend         string        `mapstructure:"backend"` // memory | redis
	RedisAddr       string        `mapstructure:"redis_addr"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// QueueConfig 非同步匯入隊列設定
type QueueConfig struct {
	Workers   int           `mapstructure:"workers"`
	MaxSize   int           `mapstructure:"max_size"`
	ResultTTL time.Duration `mapstructure:"result_ttl"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件（不存在時忽略）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()

	// 設定預設值
	SetDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	_ = v.BindEnv("extraction.provider", "APP_EXTRACTION_PROVIDER", "EXTRACTION_PROVIDER")
	_ = v.BindEnv("extraction.api_key", "APP_EXTRACTION_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("extraction.model", "APP_EXTRACTION_MODEL", "EXTRACTION_MODEL")
	_ = v.BindEnv("cache.enabled", "APP_CACHE_ENABLED", "CACHE_ENABLED")
	_ = v.BindEnv("cache.backend", "APP_CACHE_BACKEND", "CACHE_BACKEND")
	_ = v.BindEnv("cache.redis_addr", "APP_CACHE_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("rate_limit.enabled", "APP_RATE_LIMIT_ENABLED", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.requests", "APP_RATE_LIMIT_REQUESTS", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("rate_limit.window", "APP_RATE_LIMIT_WINDOW", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("dedup_window", "APP_DEDUP_WINDOW", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "APP_LOG_LEVEL", "LOG_LEVEL")

	// 解析設定
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// MaskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// SetDefaults 設定預設值
func SetDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "recipe-importer")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 10<<20) // 10MB

	// 擷取服務設定
	v.SetDefault("extraction.provider", "gemini")
	v.SetDefault("extraction.model", "") // 留空時由各供應商決定
	v.SetDefault("extraction.temperature", 0.2)
	v.SetDefault("extraction.top_p", 0.95)
	v.SetDefault("extraction.top_k", 40)
	v.SetDefault("extraction.max_output_tokens", 8192)
	v.SetDefault("extraction.timeout", "60s")
	v.SetDefault("extraction.inter_chunk_delay", "2s")
	v.SetDefault("extraction.rate_limit_retry_delay", "15s")

	// 切塊設定
	v.SetDefault("chunking.max_chunk_size", 12000)
	v.SetDefault("chunking.overlap_size", 1500)
	v.SetDefault("chunking.min_final_chunk_size", 500)

	// 家電設定
	v.SetDefault("appliance.suggestions_enabled", false)
	v.SetDefault("appliance.default_family", "multicooker")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "10m")

	// 隊列設定
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.max_size", 100)
	v.SetDefault("queue.result_ttl", "1h")

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// Default 回傳只包含預設值的設定
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate 驗證設定
func Validate(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證擷取服務設定
	switch config.Extraction.Provider {
	case "gemini", "openrouter":
	default:
		return fmt.Errorf("unsupported extraction provider: %q", config.Extraction.Provider)
	}
	if config.Extraction.Timeout <= 0 {
		return fmt.Errorf("invalid extraction timeout")
	}
	if config.Extraction.InterChunkDelay < 0 || config.Extraction.RateLimitRetryDelay < 0 {
		return fmt.Errorf("invalid extraction delays")
	}

	// 驗證切塊設定
	if config.Chunking.MaxChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size")
	}
	if config.Chunking.OverlapSize < 0 || config.Chunking.OverlapSize >= config.Chunking.MaxChunkSize {
		return fmt.Errorf("overlap size must be in [0, max chunk size)")
	}
	if config.Chunking.MinFinalChunkSize < 0 {
		return fmt.Errorf("invalid min final chunk size")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		if config.Cache.Backend != "memory" && config.Cache.Backend != "redis" {
			return fmt.Errorf("unsupported cache backend: %q", config.Cache.Backend)
		}
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	// 驗證隊列設定
	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize <= 0 {
		return fmt.Errorf("invalid queue max size")
	}

	return nil
}
