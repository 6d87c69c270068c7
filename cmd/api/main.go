package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-importer/internal/api"
	"recipe-importer/internal/core/ai/cache"
	"recipe-importer/internal/core/ai/extraction"
	"recipe-importer/internal/core/ai/queue"
	"recipe-importer/internal/core/appliance"
	"recipe-importer/internal/core/ingest/chunker"
	"recipe-importer/internal/core/pipeline"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, os.Getenv("LOG_DIR")); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("extraction_provider", cfg.Extraction.Provider),
		zap.String("extraction_model", cfg.Extraction.Model),
		zap.String("extraction_key", config.MaskAPIKey(cfg.Extraction.APIKey)),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 初始化快取
	responseCache, err := cache.New(cfg.Cache)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}
	if responseCache != nil {
		defer responseCache.Close()
	}

	// 擷取服務
	provider, err := extraction.NewProvider(cfg.Extraction)
	if err != nil {
		common.LogFatal("Failed to initialize extraction provider", zap.Error(err))
	}
	var clientOpts []extraction.Option
	if responseCache != nil {
		clientOpts = append(clientOpts, extraction.WithCache(responseCache))
	}
	client := extraction.NewClient(provider, extraction.ConfigFromApp(cfg.Extraction), clientOpts...)

	// 指標
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	importerOpts := []pipeline.Option{pipeline.WithMetrics(pipeline.NewMetrics(registry))}
	if cfg.Appliance.SuggestionsEnabled {
		analyzer, err := appliance.NewAnalyzer(provider, cfg.Appliance.DefaultFamily, client.Sampling())
		if err != nil {
			common.LogFatal("Failed to initialize appliance analyzer", zap.Error(err))
		}
		importerOpts = append(importerOpts, pipeline.WithSuggester(analyzer))
	}

	importer, err := pipeline.NewImporter(client, chunker.Config{
		MaxChunkSize:      cfg.Chunking.MaxChunkSize,
		OverlapSize:       cfg.Chunking.OverlapSize,
		MinFinalChunkSize: cfg.Chunking.MinFinalChunkSize,
	}, importerOpts...)
	if err != nil {
		common.LogFatal("Failed to initialize importer", zap.Error(err))
	}

	// 非同步匯入隊列
	jobs := queue.NewManager(cfg.Queue)
	jobs.Start(ctx)

	deps := api.Dependencies{
		Importer: importer,
		Queue:    jobs,
		Provider: client.ProviderName(),
		Gatherer: registry,
	}
	if responseCache != nil {
		deps.Cache = responseCache
	}
	router := api.SetupRouter(ctx, cfg, deps)

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	// 停止隊列：取消執行中的匯入並等待 worker 結束
	stop()
	jobs.Close()

	common.LogInfo("Server exited")
}
