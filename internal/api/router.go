// Package api HTTP 路由與中間件組裝。
package api

import (
	"context"
	"time"

	"recipe-importer/internal/api/handlers"
	"recipe-importer/internal/api/handlers/actions"
	"recipe-importer/internal/api/handlers/health"
	"recipe-importer/internal/api/handlers/imports"
	"recipe-importer/internal/api/middleware"
	"recipe-importer/internal/core/ai/queue"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// dedupCleanupInterval 去重指紋的清理週期
const dedupCleanupInterval = 10 * time.Minute

// Dependencies 路由所需的服務
type Dependencies struct {
	Importer imports.Importer
	Queue    *queue.Manager
	Cache    health.StatsSource
	Provider string
	Gatherer prometheus.Gatherer
}

// SetupRouter 設置路由；ctx 結束時停止背景清理
func SetupRouter(ctx context.Context, cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(requestid.New())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(func(c *gin.Context) {
		c.Set(handlers.DebugKey, cfg.App.Debug)
		c.Next()
	})

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 健康檢查與指標
	health.NewHandler(cfg, deps.Provider, deps.Queue, deps.Cache).Register(router)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API 路由組
	v1 := router.Group("/api/v1")
	v1.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	if cfg.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	actions.NewHandler(cfg.Appliance.DefaultFamily).Register(v1)

	importGroup := v1.Group("")
	if cfg.DedupWindow > 0 {
		dedup := middleware.NewDeduplicator(cfg.DedupWindow)
		go dedup.Run(ctx, dedupCleanupInterval)
		importGroup.Use(dedup.Middleware())
	}
	importGroup.Use(middleware.Timeout(cfg.Server.WriteTimeout))
	imports.NewHandler(deps.Importer, deps.Queue).Register(importGroup)

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.Bool("async_imports", deps.Queue != nil),
		zap.Bool("cache_enabled", deps.Cache != nil),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router
}
