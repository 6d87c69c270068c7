// Package handlers API 處理器共用的回應工具。
package handlers

import (
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DebugKey gin context 中是否回傳錯誤細節的鍵
const DebugKey = "debug"

// RespondError 將錯誤轉為 CustomError 並回傳 JSON
func RespondError(c *gin.Context, err error) {
	ce := common.AsCustomError(err)
	debug := c.GetBool(DebugKey)

	if ce.Status >= 500 {
		common.LogError("請求處理失敗",
			zap.String("request_id", requestid.Get(c)),
			zap.String("code", ce.Code),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(ce.Status, ce.Response(debug))
}
