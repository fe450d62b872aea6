package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/anonymize"
	"github.com/veilhq/veil/internal/audit"
	"github.com/veilhq/veil/internal/cache"
	"github.com/veilhq/veil/internal/classify"
	"github.com/veilhq/veil/internal/config"
	"github.com/veilhq/veil/internal/detect"
	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/events"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/oracle"
	"github.com/veilhq/veil/internal/regsearch"
	"github.com/veilhq/veil/internal/report"
	"github.com/veilhq/veil/internal/server"
	"github.com/veilhq/veil/internal/strategy"
	"github.com/veilhq/veil/internal/verify"
	"github.com/veilhq/veil/internal/workflow"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
		outputDir   = flag.String("output", "outputs", "Report directory for batch mode")
		regulation  = flag.String("regulation", "", "Force a regulation in batch mode (GDPR, HIPAA, PCI DSS)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("veil %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *healthCheck {
		performHealthCheck()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting veil",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
	)

	app, err := buildApp(cfg, log)
	if err != nil {
		log.Fatal("Failed to build pipeline", zap.Error(err))
	}
	defer app.close()

	// Positional arguments switch to batch mode: each argument is a
	// text file or a directory of .txt files, with reports written to
	// -output.
	if flag.NArg() > 0 {
		runBatch(app, flag.Args(), *outputDir, *regulation, log)
		return
	}

	runServer(cfg, app, log)
}

// app holds the wired pipeline and its closable collaborators.
type app struct {
	engine     *workflow.Engine
	detector   *detect.Detector
	hub        *events.Hub
	auditStore *audit.Store
	search     *regsearch.Store
	excerpts   *cache.ExcerptCache
}

func (a *app) close() {
	if a.auditStore != nil {
		a.auditStore.Close()
	}
	if a.search != nil {
		a.search.Close()
	}
	if a.excerpts != nil {
		a.excerpts.Close()
	}
}

func buildApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	var oc oracle.Client
	if cfg.Oracle.Enabled {
		client, err := oracle.NewOpenAIClient(cfg.Oracle, log.WithComponent("oracle"))
		if err != nil {
			return nil, fmt.Errorf("failed to create oracle client: %w", err)
		}
		oc = client
	} else {
		log.Warn("Oracle disabled, running pattern-only detection")
	}

	detector, err := detect.New(cfg.Pipeline.Detectors, oc, log.WithComponent("detect"))
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	a := &app{detector: detector}

	var excerpts strategy.ContextProvider
	if cfg.Search.Enabled {
		store, err := regsearch.NewStore(cfg.Search, log.WithComponent("regsearch").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create excerpt store: %w", err)
		}
		a.search = store

		var excerptCache *cache.ExcerptCache
		if cfg.Cache.Enabled {
			excerptCache, err = cache.New(cfg.Cache, log.WithComponent("cache").Logger)
			if err != nil {
				return nil, fmt.Errorf("failed to create excerpt cache: %w", err)
			}
			a.excerpts = excerptCache
		}

		excerpts = regsearch.NewService(store, excerptCache, cfg.Search.MinScore,
			log.WithComponent("regsearch").Logger)
	}

	if cfg.Audit.Enabled {
		store, err := audit.NewStore(cfg.Audit, log.WithComponent("audit").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit store: %w", err)
		}
		a.auditStore = store
	}

	classifier := classify.New(oc, log.WithComponent("classify"))
	justifier := strategy.NewJustifier(oc, excerpts, log.WithComponent("strategy"))
	anonymizer := anonymize.New(cfg.Pipeline.PseudonymPrefix, log.WithComponent("anonymize"))
	verifier := verify.New(detector, oc, cfg.Pipeline.PseudonymPrefix,
		cfg.Pipeline.MaxRetries, log.WithComponent("verify"))

	a.hub = events.NewHub(log.WithComponent("events").Logger)

	a.engine = workflow.New(detector, classifier, justifier, anonymizer, verifier,
		cfg.Pipeline.DocumentTimeout, log)
	if a.auditStore != nil {
		a.engine.WithAuditStore(a.auditStore)
	}
	a.engine.WithNotifier(a.hub)

	return a, nil
}

func runServer(cfg *config.Config, a *app, log *logger.Logger) {
	srv := server.New(cfg, a.engine, a.detector, a.auditStore, a.hub, log)

	if err := config.Watch(cfg, func(updated *config.Config) {
		log.Info("Configuration file changed, restart to apply")
	}); err != nil {
		log.Warn("Config watch unavailable", zap.Error(err))
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}
		log.Info("Server shutdown complete")
	}
}

func runBatch(a *app, files []string, outputDir, forcedRegulation string, log *logger.Logger) {
	opts := workflow.Options{}
	if forcedRegulation != "" {
		reg, ok := entity.ParseRegulation(forcedRegulation)
		if !ok {
			log.Fatal("Unknown regulation", zap.String("regulation", forcedRegulation))
		}
		opts.ForcedRegulation = reg
	}

	files = expandDirs(files, log)

	results := make([]*workflow.Result, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error("Failed to read input file",
				zap.String("file", path), zap.Error(err))
			continue
		}

		fileOpts := opts
		fileOpts.TextID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		result, err := a.engine.Process(context.Background(), string(data), fileOpts)
		if err != nil {
			log.Error("Failed to process file",
				zap.String("file", path), zap.Error(err))
			continue
		}
		results = append(results, result)
	}

	if len(results) == 0 {
		log.Fatal("No files processed")
	}

	jsonPath, mdPath, err := report.Save(results, outputDir)
	if err != nil {
		log.Fatal("Failed to write reports", zap.Error(err))
	}

	log.Info("Batch complete",
		zap.Int("files", len(results)),
		zap.String("results_json", jsonPath),
		zap.String("results_md", mdPath))
}

// expandDirs replaces directory arguments with the .txt files they
// contain, non-recursively.
func expandDirs(args []string, log *logger.Logger) []string {
	files := make([]string, 0, len(args))
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			log.Error("Failed to stat input", zap.String("path", path), zap.Error(err))
			continue
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			log.Error("Failed to read input directory",
				zap.String("path", path), zap.Error(err))
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".txt" {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	}
	return files
}

func performHealthCheck() {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
