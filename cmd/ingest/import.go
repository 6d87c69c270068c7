package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"recipe-importer/internal/core/ai/cache"
	"recipe-importer/internal/core/ai/extraction"
	"recipe-importer/internal/core/appliance"
	"recipe-importer/internal/core/ingest/chunker"
	"recipe-importer/internal/core/pipeline"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func importCMD() *cobra.Command {
	var (
		maxChunk int
		overlap  int
		minFinal int
		suggest  bool
		noCache  bool
		compact  bool
		logLevel string
		family   string
	)

	var cmd = &cobra.Command{
		Use:   "import [file|-]",
		Short: "Run one import and print the recipes as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if logLevel == "" {
				logLevel = cfg.LogLevel
			}
			if err := common.InitLogger(logLevel, ""); err != nil {
				return err
			}
			defer common.Sync()

			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			chunking := chunker.Config{
				MaxChunkSize:      cfg.Chunking.MaxChunkSize,
				OverlapSize:       cfg.Chunking.OverlapSize,
				MinFinalChunkSize: cfg.Chunking.MinFinalChunkSize,
			}
			if cmd.Flags().Changed("max-chunk") {
				chunking.MaxChunkSize = maxChunk
			}
			if cmd.Flags().Changed("overlap") {
				chunking.OverlapSize = overlap
			}
			if cmd.Flags().Changed("min-final") {
				chunking.MinFinalChunkSize = minFinal
			}

			provider, err := extraction.NewProvider(cfg.Extraction)
			if err != nil {
				return err
			}

			var clientOpts []extraction.Option
			if cfg.Cache.Enabled && !noCache {
				c, err := cache.New(cfg.Cache)
				if err != nil {
					return err
				}
				defer c.Close()
				clientOpts = append(clientOpts, extraction.WithCache(c))
			}
			client := extraction.NewClient(provider, extraction.ConfigFromApp(cfg.Extraction), clientOpts...)

			var importerOpts []pipeline.Option
			if suggest {
				if family == "" {
					family = cfg.Appliance.DefaultFamily
				}
				analyzer, err := appliance.NewAnalyzer(provider, family, client.Sampling())
				if err != nil {
					return err
				}
				importerOpts = append(importerOpts, pipeline.WithSuggester(analyzer))
			}

			importer, err := pipeline.NewImporter(client, chunking, importerOpts...)
			if err != nil {
				return err
			}

			// Ctrl-C 在切塊之間停止並輸出部分結果
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, importErr := importer.Import(ctx, text, pipeline.Options{SuggestActions: suggest})
			if result != nil {
				if err := writeJSON(cmd, result, compact); err != nil {
					return err
				}
			}
			if importErr != nil {
				common.LogError("匯入失敗", zap.Error(importErr))
				return fmt.Errorf("import failed: %w", importErr)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxChunk, "max-chunk", 0, "maximum chunk size in characters (default from config)")
	cmd.Flags().IntVar(&overlap, "overlap", 0, "overlap between chunks in characters")
	cmd.Flags().IntVar(&minFinal, "min-final", 0, "minimum size of a standalone final chunk")
	cmd.Flags().BoolVar(&suggest, "suggest", false, "attach appliance action suggestions to steps")
	cmd.Flags().StringVar(&family, "family", "", "appliance family for suggestions (multicooker|oven)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the extraction response cache")
	cmd.Flags().BoolVar(&compact, "compact", false, "print compact JSON")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")

	return cmd
}

func writeJSON(cmd *cobra.Command, v interface{}, compact bool) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
