// Package actions 家電動作參數的驗證、摘要與家電規格查詢。
package actions

import (
	"net/http"

	"recipe-importer/internal/api/handlers"
	"recipe-importer/internal/core/appliance"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// ValidateRequest 驗證請求：帶 key 時驗證單一欄位，否則驗證整個動作
type ValidateRequest struct {
	Family string               `json:"family"`
	Action recipe.CookingAction `json:"action"`
	Key    string               `json:"key,omitempty"`
	Value  interface{}          `json:"value,omitempty"`
}

// ValidateResponse 驗證結果
type ValidateResponse struct {
	Valid  bool                       `json:"valid"`
	Errors appliance.ValidationErrors `json:"errors"`
}

// ProbeRequest 探針溫度聯合驗證請求
type ProbeRequest struct {
	Target interface{} `json:"target_probe_temp"`
	Remove interface{} `json:"remove_probe_temp"`
}

// FormatRequest 動作摘要請求
type FormatRequest struct {
	Action recipe.CookingAction `json:"action"`
}

// Handler 家電動作處理器
type Handler struct {
	defaultFamily string
}

// NewHandler 創建家電動作處理器
func NewHandler(defaultFamily string) *Handler {
	if defaultFamily == "" {
		defaultFamily = appliance.FamilyMulticooker
	}
	return &Handler{defaultFamily: defaultFamily}
}

// Register 註冊路由
func (h *Handler) Register(group *gin.RouterGroup) {
	group.GET("/appliances", h.HandleAppliances)
	group.POST("/actions/validate", h.HandleValidate)
	group.POST("/actions/validate-probe", h.HandleValidateProbe)
	group.POST("/actions/format", h.HandleFormat)
}

// HandleAppliances 列出家電規格
func (h *Handler) HandleAppliances(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default_family": h.defaultFamily,
		"families":       appliance.Families(),
	})
}

// HandleValidate 驗證動作參數；錯誤以欄位對應訊息回傳，HTTP 狀態仍為 200
func (h *Handler) HandleValidate(c *gin.Context) {
	var req ValidateRequest
	if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
		handlers.RespondError(c, common.ErrInvalidRequest.WithErr(err))
		return
	}

	family := req.Family
	if family == "" {
		family = h.defaultFamily
	}
	params := normalizeParams(req.Action.Parameters)

	errs := appliance.ValidationErrors{}
	if req.Key != "" {
		if msg := appliance.Validate(family, req.Action.MethodID, req.Key, recipe.ParameterValue(req.Value), params); msg != "" {
			errs[req.Key] = msg
		}
	} else {
		action := recipe.CookingAction{MethodID: req.Action.MethodID, Parameters: params}
		errs = appliance.ValidateAction(family, action)
	}

	c.JSON(http.StatusOK, ValidateResponse{Valid: errs.Empty(), Errors: errs})
}

// HandleValidateProbe 聯合驗證目標與取出溫度
func (h *Handler) HandleValidateProbe(c *gin.Context) {
	var req ProbeRequest
	if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
		handlers.RespondError(c, common.ErrInvalidRequest.WithErr(err))
		return
	}

	errs := appliance.ValidateProbeTemps(recipe.ParameterValue(req.Target), recipe.ParameterValue(req.Remove))
	c.JSON(http.StatusOK, gin.H{
		"valid":  errs.Empty(),
		"errors": errs,
	})
}

// HandleFormat 產生動作摘要文字
func (h *Handler) HandleFormat(c *gin.Context) {
	var req FormatRequest
	if err := common.DecodeJSON(c.Request.Body, &req); err != nil {
		handlers.RespondError(c, common.ErrInvalidRequest.WithErr(err))
		return
	}

	action := recipe.CookingAction{MethodID: req.Action.MethodID, Parameters: normalizeParams(req.Action.Parameters)}
	c.JSON(http.StatusOK, gin.H{
		"summary": appliance.FormatSummary(action),
	})
}

func normalizeParams(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = recipe.ParameterValue(v)
	}
	return out
}
