package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tableside/internal/catalog"
	"github.com/Veraticus/tableside/internal/common"
	"github.com/Veraticus/tableside/internal/config"
	"github.com/Veraticus/tableside/internal/extraction"
	"github.com/Veraticus/tableside/internal/knowledge"
	"github.com/Veraticus/tableside/internal/llm"
	"github.com/Veraticus/tableside/internal/metrics"
	"github.com/Veraticus/tableside/internal/mutation"
	"github.com/Veraticus/tableside/internal/orchestrator"
	"github.com/Veraticus/tableside/internal/recommend"
	"github.com/Veraticus/tableside/internal/reorder"
	"github.com/Veraticus/tableside/internal/storage"
	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// loadConfig resolves the configuration from flags, file and environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("check config.yaml and TABLESIDE_* variables", err)
	}
	return cfg, nil
}

// openStorage opens the database and brings its schema up to date.
func openStorage(ctx context.Context, path string) (*storage.SQLiteStorage, error) {
	if err := config.EnsureParentDir(path); err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func newLLMClient(cfg *config.Config) (llm.Client, error) {
	client, err := llm.NewClient(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		RateLimit:   cfg.LLM.RateLimit,
		Timeout:     cfg.Timeouts.Provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

func newEmbedder(cfg *config.Config) (llm.Embedder, error) {
	embedder, err := llm.NewEmbedder(llm.Config{
		Provider:       cfg.Embedding.Provider,
		APIKey:         cfg.Embedding.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.Embedding.Model,
		BaseURL:        cfg.Embedding.BaseURL,
		RateLimit:      cfg.LLM.RateLimit,
		Timeout:        cfg.Timeouts.Provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// app is everything a conversational command needs.
type app struct {
	cfg          *config.Config
	store        *storage.SQLiteStorage
	embedder     *llm.CachingEmbedder
	matcher      *catalog.Matcher
	metrics      *metrics.Metrics
	orchestrator *orchestrator.Orchestrator
}

// newApp opens storage, connects the providers and assembles the orchestrator.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	client, err := newLLMClient(cfg)
	if err != nil {
		return nil, err
	}
	rawEmbedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	store, err := openStorage(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		store:    store,
		embedder: llm.NewCachingEmbedder(rawEmbedder, cfg.Embedding.CacheTTL, logger),
		metrics:  metrics.New(),
	}

	a.matcher = catalog.NewMatcher(store, a.embedder, catalog.Config{
		HighThreshold:   cfg.Matching.HighThreshold,
		LowThreshold:    cfg.Matching.LowThreshold,
		TieEpsilon:      cfg.Matching.TieEpsilon,
		RefreshInterval: cfg.Matching.RefreshInterval,
	}, logger)

	// An empty or unreachable catalog is not fatal; each turn retries the load.
	if err := a.matcher.Refresh(ctx); err != nil {
		logger.Warn("initial catalog load failed", "error", err)
	}

	recommender, err := recommend.New(cfg.Recommend.Policy, client, a.matcher,
		cfg.Recommend.TopN, cfg.Matching.HighThreshold, cfg.Timeouts.Provider, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	extractor := extraction.NewExtractor(client, cfg.Timeouts.Extraction, logger)

	a.orchestrator = orchestrator.New(orchestrator.Deps{
		Extractor:   extractor,
		Matcher:     a.matcher,
		Mutator:     mutation.NewEngine(extractor, a.matcher, cfg.Matching.HighThreshold, logger),
		Recommender: recommender,
		Answerer: knowledge.NewAnswerer(client, a.matcher, knowledge.Venue{
			Name: cfg.Restaurant.Name,
			Info: cfg.Restaurant.Info,
		}, cfg.Timeouts.Provider, logger),
		Reorder: reorder.NewMemory(store, logger),
		Orders:  store,
		Metrics: a.metrics,
		Logger:  logger,
	}, orchestrator.Config{
		TurnTimeout:       cfg.Timeouts.Turn,
		MatchItemTimeout:  cfg.Timeouts.MatchItem,
		IdleTimeout:       cfg.Dialog.IdleTimeout,
		HighThreshold:     cfg.Matching.HighThreshold,
		MaxConfirmRetries: cfg.Dialog.MaxConfirmRetries,
		ClarifyAmbiguous:  cfg.Dialog.ClarifyAmbiguous,
	})

	return a, nil
}

// Close releases the database and stops the embedding cache janitor.
func (a *app) Close() {
	a.embedder.Close()
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}
