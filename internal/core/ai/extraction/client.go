// Package extraction 將單一文字切塊送往擷取服務並取回原始文字回應。
//
// 每次呼叫都遵循固定的重試狀態機：
//
//	Pending -> Succeeded
//	Pending -> Retrying(1, backoff) -> Succeeded | Failed   (僅限流)
//	Pending -> Failed                                       (其他錯誤)
//
// 同一次匯入的連續請求透過 Session 維持固定間隔。
package extraction

import (
	"context"
	"sync"
	"time"

	"recipe-importer/internal/core/ingest/chunker"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// 預設節流參數
const (
	DefaultInterChunkDelay     = 2 * time.Second
	DefaultRateLimitRetryDelay = 15 * time.Second

	// maxAttempts 首次請求加上一次限流重試
	maxAttempts = 2
)

// ResponseCache 擷取回應快取
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// SleepFunc 可取消的等待，測試時可替換
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep 預設等待實作
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config 擷取客戶端設定
type Config struct {
	Sampling            SamplingConfig
	InterChunkDelay     time.Duration
	RateLimitRetryDelay time.Duration
}

// ConfigFromApp 由應用設定取出擷取客戶端設定
func ConfigFromApp(cfg config.ExtractionConfig) Config {
	return Config{
		Sampling: SamplingConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			TopP:            cfg.TopP,
			TopK:            cfg.TopK,
			Timeout:         cfg.Timeout,
		},
		InterChunkDelay:     cfg.InterChunkDelay,
		RateLimitRetryDelay: cfg.RateLimitRetryDelay,
	}
}

// Result 單一切塊的擷取結果
type Result struct {
	Text     string        `json:"text"`
	Attempts int           `json:"attempts"`
	CacheHit bool          `json:"cache_hit"`
	Duration time.Duration `json:"duration"`
}

// Client 擷取客戶端
type Client struct {
	provider Provider
	config   Config
	cache    ResponseCache
	sleep    SleepFunc
	now      func() time.Time
}

// Option 客戶端選項
type Option func(*Client)

// WithCache 啟用回應快取
func WithCache(c ResponseCache) Option {
	return func(cl *Client) {
		cl.cache = c
	}
}

// WithSleep 替換等待實作
func WithSleep(fn SleepFunc) Option {
	return func(cl *Client) {
		cl.sleep = fn
	}
}

// WithClock 替換時間來源
func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		cl.now = now
	}
}

// NewClient 創建擷取客戶端
func NewClient(provider Provider, cfg Config, opts ...Option) *Client {
	cfg.Sampling = cfg.Sampling.WithDefaults(DefaultSampling)
	if cfg.InterChunkDelay < 0 {
		cfg.InterChunkDelay = 0
	}
	if cfg.RateLimitRetryDelay <= 0 {
		cfg.RateLimitRetryDelay = DefaultRateLimitRetryDelay
	}

	c := &Client{
		provider: provider,
		config:   cfg,
		sleep:    Sleep,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProviderName 後端名稱
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Sampling 預設取樣參數
func (c *Client) Sampling() SamplingConfig {
	return c.config.Sampling
}

// Extract 送出單一切塊，不做請求間隔控制
func (c *Client) Extract(ctx context.Context, chunk chunker.TextChunk, sampling SamplingConfig) (*Result, error) {
	res, _, err := c.extract(ctx, chunk, sampling, nil)
	return res, err
}

// extract 回傳結果與是否真的發出請求；beforeCall 於快取未命中、送出請求前執行
func (c *Client) extract(ctx context.Context, chunk chunker.TextChunk, sampling SamplingConfig, beforeCall func() error) (*Result, bool, error) {
	sampling = sampling.WithDefaults(c.config.Sampling)
	prompt := BuildPrompt(chunk.Text)
	key := common.HashString(c.provider.Name(), sampling.fingerprint(), prompt)

	if c.cache != nil {
		if val, err := c.cache.Get(ctx, key); err == nil && val != "" {
			common.LogCacheHit("extraction")
			return &Result{Text: val, CacheHit: true}, false, nil
		}
		common.LogCacheMiss("extraction")
	}

	if beforeCall != nil {
		if err := beforeCall(); err != nil {
			return nil, false, err
		}
	}

	start := c.now()
	text, attempts, err := c.run(ctx, prompt, sampling)
	elapsed := c.now().Sub(start)
	common.LogAICall(c.provider.Name(), elapsed, err)

	if err != nil {
		common.LogWarn("切塊擷取失敗",
			zap.Int("start_offset", chunk.StartOffset),
			zap.String("kind", string(KindOf(err))),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return nil, true, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, text); err != nil {
			common.LogDebug("擷取回應寫入快取失敗", zap.Error(err))
		}
	}

	return &Result{Text: text, Attempts: attempts, Duration: elapsed}, true, nil
}

// attemptState 重試狀態
type attemptState int

const (
	statePending attemptState = iota
	stateRetrying
	stateSucceeded
	stateFailed
)

func (s attemptState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateRetrying:
		return "retrying"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// attempt 狀態機的一個節點
type attempt struct {
	state  attemptState
	number int
	delay  time.Duration
	text   string
	err    *Error
}

// next 根據本次請求結果決定下一個狀態
func next(cur attempt, text string, err error, backoff time.Duration) attempt {
	number := cur.number + 1
	if err == nil {
		return attempt{state: stateSucceeded, number: number, text: text}
	}

	e := classify(err)
	e.Attempts = number
	if e.Kind == KindRateLimited && number < maxAttempts {
		return attempt{state: stateRetrying, number: number, delay: backoff, err: e}
	}
	return attempt{state: stateFailed, number: number, err: e}
}

// run 執行狀態機直到成功或失敗
func (c *Client) run(ctx context.Context, prompt string, sampling SamplingConfig) (string, int, error) {
	cur := attempt{state: statePending}

	for cur.state == statePending || cur.state == stateRetrying {
		if cur.state == stateRetrying {
			common.LogWarn("擷取服務限流，等待後重試",
				zap.Int("attempt", cur.number),
				zap.Duration("delay", cur.delay),
			)
			if err := c.sleep(ctx, cur.delay); err != nil {
				return "", cur.number, cur.err
			}
		}

		text, err := c.call(ctx, prompt, sampling)
		cur = next(cur, text, err, c.config.RateLimitRetryDelay)
	}

	if cur.state == stateFailed {
		return "", cur.number, cur.err
	}
	return cur.text, cur.number, nil
}

// call 單次請求，受取樣逾時限制
func (c *Client) call(ctx context.Context, prompt string, sampling SamplingConfig) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, sampling.Timeout)
	defer cancel()
	return c.provider.Generate(callCtx, prompt, sampling)
}

// Session 單次匯入的擷取工作階段，維持連續請求間的固定間隔
type Session struct {
	client   *Client
	mu       sync.Mutex
	lastDone time.Time
}

// NewSession 建立新的擷取工作階段
func (c *Client) NewSession() *Session {
	return &Session{client: c}
}

// Extract 等待請求間隔後送出切塊；快取命中時不需等待。
// 等待期間可被 ctx 取消；請求一旦送出就不會因取消而中斷。
func (s *Session) Extract(ctx context.Context, chunk chunker.TextChunk, sampling SamplingConfig) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, issued, err := s.client.extract(context.WithoutCancel(ctx), chunk, sampling, func() error {
		return s.pace(ctx)
	})
	if issued {
		s.lastDone = s.client.now()
	}
	return res, err
}

// pace 距上次請求完成未滿間隔時等待
func (s *Session) pace(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.lastDone.IsZero() || s.client.config.InterChunkDelay <= 0 {
		return nil
	}
	wait := s.client.config.InterChunkDelay - s.client.now().Sub(s.lastDone)
	if wait <= 0 {
		return nil
	}
	common.LogDebug("切塊請求間隔等待", zap.Duration("wait", wait))
	return s.client.sleep(ctx, wait)
}
