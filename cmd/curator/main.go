// Command curator is the knowledge base retrieval and quality
// lifecycle engine. It wires the storage, index and provider adapters
// into the core services and hands them to the CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/curator/internal/adapters/driven/archive"
	"github.com/custodia-labs/curator/internal/adapters/driven/config/file"
	"github.com/custodia-labs/curator/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/curator/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/curator/internal/adapters/driven/vector"
	"github.com/custodia-labs/curator/internal/adapters/driving/api"
	"github.com/custodia-labs/curator/internal/adapters/driving/cli"
	"github.com/custodia-labs/curator/internal/chunker"
	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
	"github.com/custodia-labs/curator/internal/core/services"
	"github.com/custodia-labs/curator/internal/index/bm25"
	"github.com/custodia-labs/curator/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.GetString("storage.data_dir"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	scorer, err := services.NewQualityScorer(store.QualityStore(), store.FeedbackStore(), cfg.QualityConfig())
	if err != nil {
		return fmt.Errorf("creating quality scorer: %w", err)
	}

	// Config edits take effect without a restart. Invalid values are
	// rejected and the previous config stays in force.
	watcher, err := file.NewWatcher(cfg, scorer.SetConfig)
	if err != nil {
		logger.Warn("Config hot reload disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	var vectorSearcher driven.VectorSearcher
	if baseURL := cfg.GetString("vector.base_url"); baseURL != "" {
		vc, err := vector.NewClient(vector.Config{
			BaseURL: baseURL,
			APIKey:  cfg.GetString("vector.api_key"),
		})
		if err != nil {
			return fmt.Errorf("creating vector client: %w", err)
		}
		vectorSearcher = vc
	}

	index := bm25.New()
	searchService := services.NewSearchService(
		store.ChunkStore(), index, vectorSearcher, scorer, services.DefaultSearchWeights())

	archiveWriter, err := archive.NewWriter(cfg.GetString("archive.dir"))
	if err != nil {
		return fmt.Errorf("creating archive writer: %w", err)
	}

	// Conflict detection needs both a vector backend and an LLM.
	// Without them the lifecycle runs everything else.
	var detector *services.ConflictDetector
	if apiKey := cfg.GetString("llm.api_key"); apiKey != "" && vectorSearcher != nil {
		llm, err := openai.NewLLMService(openai.LLMConfig{
			APIKey:  apiKey,
			BaseURL: cfg.GetString("llm.base_url"),
			Model:   cfg.GetString("llm.model"),
		})
		if err != nil {
			return fmt.Errorf("creating llm service: %w", err)
		}
		defer llm.Close()

		detector, err = services.NewConflictDetector(
			store.ChunkStore(), vectorSearcher, llm, store.ConflictStore(), domain.DefaultConflictConfig())
		if err != nil {
			return fmt.Errorf("creating conflict detector: %w", err)
		}
	}

	lifecycleService := services.NewLifecycleService(
		store.ChunkStore(), scorer, store.FeedbackStore(), archiveWriter, detector)

	ingestService := services.NewIngestService(
		chunker.New(), store.ChunkStore(), index, scorer,
		services.WithIndexSnapshot(cfg.GetString("index.snapshot_path")))

	// Warm the keyword index, from the snapshot when one exists and
	// from stored chunks otherwise. Search degrades to the remaining
	// backends until a rebuild succeeds.
	if err := ingestService.WarmIndex(context.Background()); err != nil {
		logger.Warn("Keyword index warm-up failed: %v", err)
	}

	schedCfg := domain.DefaultSchedulerConfig()
	if v, ok := cfg.Get("scheduler.enabled"); ok {
		if enabled, ok := v.(bool); ok {
			schedCfg.Enabled = enabled
		}
	}
	var scheduler *services.Scheduler
	if schedCfg.Enabled {
		scheduler = services.NewScheduler(schedCfg, store.SchedulerStore(), lifecycleService)
	}

	limiter := services.NewRateLimiter(
		cfg.GetInt("server.requests_per_minute"), cfg.GetInt("server.burst"))

	apiServer := api.NewServer(
		searchService, scorer, lifecycleService, store.ConflictStore(), limiter)

	cli.Setup(cli.Services{
		Search:    searchService,
		Feedback:  scorer,
		Lifecycle: lifecycleService,
		Ingest:    ingestService,
		Conflicts: store.ConflictStore(),
		Scheduler: scheduler,
		API:       apiServer,
	})

	return cli.Execute()
}
