// Package imports 食譜匯入 API：同步匯入、非同步工作與查詢。
package imports

import (
	"context"
	"errors"
	"net/http"

	"recipe-importer/internal/api/handlers"
	"recipe-importer/internal/core/ai/extraction"
	"recipe-importer/internal/core/ai/queue"
	"recipe-importer/internal/core/ingest/chunker"
	"recipe-importer/internal/core/pipeline"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Importer 匯入流程
type Importer interface {
	Import(ctx context.Context, text string, opts pipeline.Options) (*pipeline.Result, error)
}

// ChunkingRequest 單次匯入的切塊參數覆寫
type ChunkingRequest struct {
	MaxChunkSize      int `json:"max_chunk_size"`
	OverlapSize       int `json:"overlap_size"`
	MinFinalChunkSize int `json:"min_final_chunk_size"`
}

// SamplingRequest 單次匯入的取樣參數覆寫
type SamplingRequest struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
	TopP            float64 `json:"top_p"`
	TopK            int     `json:"top_k"`
}

// ImportRequest 匯入請求
type ImportRequest struct {
	Text           string           `json:"text" binding:"required"`
	Chunking       *ChunkingRequest `json:"chunking,omitempty"`
	Sampling       *SamplingRequest `json:"sampling,omitempty"`
	SuggestActions bool             `json:"suggest_actions"`
}

func (r ImportRequest) options() pipeline.Options {
	var opts pipeline.Options
	if r.Chunking != nil {
		opts.Chunking = &chunker.Config{
			MaxChunkSize:      r.Chunking.MaxChunkSize,
			OverlapSize:       r.Chunking.OverlapSize,
			MinFinalChunkSize: r.Chunking.MinFinalChunkSize,
		}
	}
	if r.Sampling != nil {
		opts.Sampling = extraction.SamplingConfig{
			Temperature:     r.Sampling.Temperature,
			MaxOutputTokens: r.Sampling.MaxOutputTokens,
			TopP:            r.Sampling.TopP,
			TopK:            r.Sampling.TopK,
		}
	}
	opts.SuggestActions = r.SuggestActions
	return opts
}

// JobResponse 非同步工作狀態
type JobResponse struct {
	*queue.Job
	ErrorCode string `json:"error_code,omitempty"`
}

// Handler 匯入處理器
type Handler struct {
	importer Importer
	queue    *queue.Manager
}

// NewHandler 創建匯入處理器；queue 為 nil 時停用非同步匯入
func NewHandler(importer Importer, q *queue.Manager) *Handler {
	return &Handler{
		importer: importer,
		queue:    q,
	}
}

// Register 註冊路由
func (h *Handler) Register(group *gin.RouterGroup) {
	group.POST("/imports", h.HandleImport)
	group.POST("/imports/async", h.HandleImportAsync)
	group.GET("/imports/:id", h.HandleGetImport)
}

// HandleImport 同步匯入
func (h *Handler) HandleImport(c *gin.Context) {
	req, ok := bindImport(c)
	if !ok {
		return
	}

	result, err := h.importer.Import(c.Request.Context(), req.Text, req.options())
	if err != nil {
		common.LogWarn("匯入失敗",
			zap.String("request_id", requestid.Get(c)),
			zap.Error(err),
		)
		handlers.RespondError(c, MapError(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleImportAsync 將匯入加入工作隊列
func (h *Handler) HandleImportAsync(c *gin.Context) {
	if h.queue == nil {
		handlers.RespondError(c, common.ErrServiceUnavailable)
		return
	}

	req, ok := bindImport(c)
	if !ok {
		return
	}

	opts := req.options()
	job, err := h.queue.Enqueue(func(ctx context.Context) (interface{}, error) {
		return h.importer.Import(ctx, req.Text, opts)
	})
	if err != nil {
		if errors.Is(err, queue.ErrClosed) {
			err = common.ErrServiceUnavailable.WithErr(err)
		}
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("匯入工作已排入隊列",
		zap.String("request_id", requestid.Get(c)),
		zap.String("job_id", job.ID),
	)
	c.JSON(http.StatusAccepted, JobResponse{Job: job})
}

// HandleGetImport 查詢非同步匯入狀態
func (h *Handler) HandleGetImport(c *gin.Context) {
	if h.queue == nil {
		handlers.RespondError(c, common.ErrServiceUnavailable)
		return
	}

	job, ok := h.queue.Get(c.Param("id"))
	if !ok {
		handlers.RespondError(c, common.ErrNotFound)
		return
	}

	resp := JobResponse{Job: job}
	if job.Err != nil {
		resp.ErrorCode = MapError(job.Err).Code
	}
	c.JSON(http.StatusOK, resp)
}

func bindImport(c *gin.Context) (*ImportRequest, bool) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			handlers.RespondError(c, common.ErrPayloadTooLarge.WithErr(err))
			return nil, false
		}
		common.LogWarn("請求格式無效",
			zap.String("request_id", requestid.Get(c)),
			zap.Error(err),
		)
		handlers.RespondError(c, common.ErrInvalidRequest.WithErr(err))
		return nil, false
	}
	return &req, true
}

// MapError 將匯入錯誤轉為 API 錯誤碼
func MapError(err error) *common.CustomError {
	switch {
	case errors.Is(err, chunker.ErrInvalidConfig):
		return common.ErrInvalidRequest.WithErr(err)
	case errors.Is(err, pipeline.ErrNoRecipesFound):
		return common.ErrNoRecipesFound.WithErr(err)
	case errors.Is(err, pipeline.ErrExtractionFailed):
		switch {
		case extraction.IsKind(err, extraction.KindQuotaExceeded):
			return common.ErrQuotaExceeded.WithErr(err)
		case extraction.IsKind(err, extraction.KindRateLimited):
			return common.ErrTooManyRequests.WithErr(err)
		case extraction.IsKind(err, extraction.KindTimedOut):
			return common.ErrGatewayTimeout.WithErr(err)
		}
		return common.ErrExtractionFailed.WithErr(err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrGatewayTimeout.WithErr(err)
	case errors.Is(err, context.Canceled):
		return common.ErrServiceUnavailable.WithErr(err)
	}
	return common.AsCustomError(err)
}
