// Package pipeline 將原始文字依序切塊、擷取、整理、去重，產生最終食譜列表。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recipe-importer/internal/core/ai/extraction"
	"recipe-importer/internal/core/ingest/chunker"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

var (
	// ErrNoRecipesFound 所有切塊處理完仍沒有任何食譜
	ErrNoRecipesFound = errors.New("no recipes found")

	// ErrExtractionFailed 每個切塊的擷取都失敗
	ErrExtractionFailed = errors.New("extraction failed for every chunk")
)

// 切塊失敗階段
const (
	StageExtraction    = "extraction"
	StageNormalization = "normalization"
)

// Suggester 為食譜步驟提供家電動作建議
type Suggester interface {
	Suggest(ctx context.Context, r recipe.CandidateRecipe) ([]recipe.Suggestion, error)
}

// Options 單次匯入的選項；零值欄位使用 Importer 預設
type Options struct {
	Chunking       *chunker.Config
	Sampling       extraction.SamplingConfig
	SuggestActions bool
}

// ChunkError 單一切塊的失敗紀錄
type ChunkError struct {
	Index       int    `json:"index"`
	StartOffset int    `json:"start_offset"`
	Stage       string `json:"stage"`
	Kind        string `json:"kind,omitempty"`
	Message     string `json:"message"`

	err error
}

func (e ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (%s): %s", e.Index, e.Stage, e.Message)
}

func (e ChunkError) Unwrap() error {
	return e.err
}

// Result 匯入結果
type Result struct {
	ID          string                   `json:"id"`
	Recipes     []recipe.CandidateRecipe `json:"recipes"`
	Chunks      int                      `json:"chunks"`
	ChunkErrors []ChunkError             `json:"chunk_errors"`
	Rejected    int                      `json:"rejected"`
	Duplicates  int                      `json:"duplicates"`
	Partial     bool                     `json:"partial"`
	Duration    time.Duration            `json:"duration"`
}

// Importer 匯入流程
type Importer struct {
	client    *extraction.Client
	chunking  chunker.Config
	suggester Suggester
	metrics   *Metrics
	now       func() time.Time
}

// Option Importer 選項
type Option func(*Importer)

// WithSuggester 啟用家電動作建議
func WithSuggester(s Suggester) Option {
	return func(i *Importer) {
		i.suggester = s
	}
}

// WithMetrics 記錄 prometheus 指標
func WithMetrics(m *Metrics) Option {
	return func(i *Importer) {
		i.metrics = m
	}
}

// NewImporter 創建匯入流程；切塊設定不合法時回傳 chunker.ErrInvalidConfig
func NewImporter(client *extraction.Client, chunking chunker.Config, opts ...Option) (*Importer, error) {
	if _, err := chunker.New(chunking); err != nil {
		return nil, err
	}
	imp := &Importer{
		client:   client,
		chunking: chunking,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(imp)
	}
	if imp.metrics == nil {
		imp.metrics = NewMetrics(nil)
	}
	return imp, nil
}

// Import 執行一次匯入。
// 切塊依序逐一擷取；在切塊之間取消時回傳已整理的部分結果與 ctx.Err()。
// 單一切塊失敗只記錄在結果中；全部失敗或沒有任何食譜時回傳終止錯誤。
func (imp *Importer) Import(ctx context.Context, text string, opts Options) (*Result, error) {
	start := imp.now()
	result := &Result{
		ID:          common.GenerateUUID(),
		Recipes:     []recipe.CandidateRecipe{},
		ChunkErrors: []ChunkError{},
	}

	cfg := imp.chunking
	if opts.Chunking != nil {
		cfg = *opts.Chunking
	}
	ch, err := chunker.New(cfg)
	if err != nil {
		return nil, err
	}
	chunks := ch.Chunk(text)
	result.Chunks = len(chunks)

	common.LogInfo("開始匯入",
		zap.String("import_id", result.ID),
		zap.Int("text_length", len([]rune(text))),
		zap.Int("chunks", len(chunks)),
	)

	session := imp.client.NewSession()
	candidates := make([]recipe.CandidateRecipe, 0)
	extractionFailures := 0
	extracted := 0

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return imp.partial(result, candidates, start, err)
		}

		res, err := session.Extract(ctx, chunk, opts.Sampling)
		if err != nil {
			// 等待間隔時被取消：請求尚未送出
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return imp.partial(result, candidates, start, ctxErr)
			}

			extractionFailures++
			kind := extraction.KindOf(err)
			imp.metrics.ExtractionFailures.WithLabelValues(string(kind)).Inc()
			result.ChunkErrors = append(result.ChunkErrors, ChunkError{
				Index:       i,
				StartOffset: chunk.StartOffset,
				Stage:       StageExtraction,
				Kind:        string(kind),
				Message:     err.Error(),
				err:         err,
			})

			// 額度耗盡時後續切塊必然失敗，不再送出
			if kind == extraction.KindQuotaExceeded {
				common.LogWarn("擷取服務額度已用盡，停止處理剩餘切塊",
					zap.String("import_id", result.ID),
					zap.Int("remaining", len(chunks)-i-1),
				)
				break
			}
			continue
		}
		extracted++
		imp.metrics.ChunksProcessed.Inc()

		out, err := recipe.Normalize(res.Text)
		if err != nil {
			imp.metrics.CandidatesRejected.WithLabelValues(recipe.ReasonParse).Inc()
			result.ChunkErrors = append(result.ChunkErrors, ChunkError{
				Index:       i,
				StartOffset: chunk.StartOffset,
				Stage:       StageNormalization,
				Kind:        recipe.ReasonParse,
				Message:     err.Error(),
				err:         err,
			})
			continue
		}

		for _, rej := range out.Rejected {
			imp.metrics.CandidatesRejected.WithLabelValues(rej.Reason).Inc()
		}
		result.Rejected += len(out.Rejected)
		candidates = append(candidates, out.Recipes...)

		common.LogDebug("切塊處理完成",
			zap.String("import_id", result.ID),
			zap.Int("chunk", i),
			zap.Int("start_offset", chunk.StartOffset),
			zap.Int("candidates", len(out.Recipes)),
			zap.Bool("cache_hit", res.CacheHit),
		)
	}

	imp.finish(result, candidates)

	if len(result.Recipes) == 0 {
		result.Duration = imp.now().Sub(start)
		// 沒有任何切塊取得回應（含額度耗盡提早結束）
		if extracted == 0 && extractionFailures > 0 {
			imp.observe("extraction_failed", result.Duration)
			return result, imp.extractionFailure(result)
		}
		imp.observe("empty", result.Duration)
		common.LogWarn("匯入沒有找到任何食譜",
			zap.String("import_id", result.ID),
			zap.Int("chunks", result.Chunks),
			zap.Int("chunk_errors", len(result.ChunkErrors)),
			zap.Int("rejected", result.Rejected),
		)
		return result, ErrNoRecipesFound
	}

	if opts.SuggestActions && imp.suggester != nil {
		imp.decorate(ctx, result)
	}

	result.Duration = imp.now().Sub(start)
	imp.metrics.RecipesEmitted.Add(float64(len(result.Recipes)))
	imp.observe("success", result.Duration)

	common.LogInfo("匯入完成",
		zap.String("import_id", result.ID),
		zap.Int("chunks", result.Chunks),
		zap.Int("recipes", len(result.Recipes)),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("rejected", result.Rejected),
		zap.Int("chunk_errors", len(result.ChunkErrors)),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// extractionFailure 合併所有切塊錯誤
func (imp *Importer) extractionFailure(result *Result) error {
	errs := make([]error, 0, len(result.ChunkErrors)+1)
	errs = append(errs, ErrExtractionFailed)
	for _, ce := range result.ChunkErrors {
		errs = append(errs, ce)
	}
	common.LogError("所有切塊擷取失敗",
		zap.String("import_id", result.ID),
		zap.Int("chunks", result.Chunks),
	)
	return errors.Join(errs...)
}

// finish 去重並寫入結果
func (imp *Importer) finish(result *Result, candidates []recipe.CandidateRecipe) {
	deduped := recipe.Dedupe(candidates)
	result.Duplicates = len(candidates) - len(deduped)
	result.Recipes = deduped
	imp.metrics.DuplicatesDropped.Add(float64(result.Duplicates))
}

// partial 取消時回傳已整理的部分結果
func (imp *Importer) partial(result *Result, candidates []recipe.CandidateRecipe, start time.Time, cause error) (*Result, error) {
	imp.finish(result, candidates)
	result.Partial = true
	result.Duration = imp.now().Sub(start)
	imp.observe("cancelled", result.Duration)

	common.LogWarn("匯入已取消，回傳部分結果",
		zap.String("import_id", result.ID),
		zap.Int("recipes", len(result.Recipes)),
		zap.Error(cause),
	)
	return result, cause
}

// decorate 套用家電建議；失敗只記錄，不影響食譜
func (imp *Importer) decorate(ctx context.Context, result *Result) {
	for i, r := range result.Recipes {
		if ctx.Err() != nil {
			return
		}
		suggestions, err := imp.suggester.Suggest(ctx, r)
		if err != nil {
			common.LogWarn("家電建議失敗，保留原始步驟",
				zap.String("import_id", result.ID),
				zap.String("title", r.Title),
				zap.Error(err),
			)
			continue
		}
		result.Recipes[i] = recipe.DecorateSteps(r, suggestions)
	}
}

func (imp *Importer) observe(outcome string, d time.Duration) {
	imp.metrics.ImportDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
