package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/cache"
	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/etl"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/regsearch"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		inputFile  = flag.String("input", "", "Regulation corpus file (CSV, Parquet, or JSON lines)")
		batchSize  = flag.Int("batch-size", 500, "Batch size for progress accounting")
		skipIndex  = flag.Bool("skip-index", false, "Skip creating the vector index")
		showStats  = flag.Bool("stats", false, "Show excerpt index statistics and exit")
	)
	flag.Parse()

	if *inputFile == "" && !*showStats {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input gdpr_articles.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input hipaa.parquet --skip-index\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --stats\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting regulation corpus loader",
		zap.String("input", *inputFile))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling load")
		cancel()
	}()

	store, err := regsearch.NewStore(cfg.Search, log.WithComponent("regsearch").Logger)
	if err != nil {
		log.Fatal("Failed to connect to excerpt store", zap.Error(err))
	}
	defer store.Close()

	if *showStats {
		stats, err := store.GetStats(ctx)
		if err != nil {
			log.Fatal("Failed to load index statistics", zap.Error(err))
		}
		log.Info("Excerpt index statistics",
			zap.Int64("total_excerpts", stats.TotalExcerpts))
		for regulation, count := range stats.PerRegulation {
			log.Info("Regulation bucket",
				zap.String("regulation", regulation),
				zap.Int64("excerpts", count))
		}
		return
	}

	var excerptCache *cache.ExcerptCache
	if cfg.Cache.Enabled {
		excerptCache, err = cache.New(cfg.Cache, log.WithComponent("cache").Logger)
		if err != nil {
			log.Fatal("Failed to connect to cache", zap.Error(err))
		}
		defer excerptCache.Close()
	}

	service := regsearch.NewService(store, excerptCache, cfg.Search.MinScore,
		log.WithComponent("regsearch").Logger)

	loaderConfig := etl.DefaultConfig()
	loaderConfig.BatchSize = *batchSize
	loaderConfig.CreateIndex = !*skipIndex

	loader := etl.NewLoader(service, store, loaderConfig, log.WithComponent("etl").Logger)

	result, err := loader.LoadFile(ctx, *inputFile)
	if err != nil {
		log.Fatal("Corpus load failed", zap.Error(err))
	}

	log.Info("Corpus load finished",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("indexed", result.Indexed),
		zap.Int64("skipped", result.Skipped),
		zap.Int64("failed", result.Failed),
		zap.Duration("duration", result.Duration))
}
