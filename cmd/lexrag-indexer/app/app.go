package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/kart-io/logger"

	"github.com/kart-io/lexrag/internal/lexrag/biz"
	"github.com/kart-io/lexrag/pkg/app"
	"github.com/kart-io/lexrag/pkg/llm"

	// Register LLM providers
	_ "github.com/kart-io/lexrag/pkg/llm/ollama"
	_ "github.com/kart-io/lexrag/pkg/llm/openai"
)

const (
	appName        = "lexrag-indexer"
	appDescription = `LexRAG Index Builder

Embeds a parsed statute corpus and builds the persisted multi-tier index
served by the LexRAG legal QA service.`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run builds the index with the given options.
func Run(opts *Options) error {
	opts.Log.AddInitialField("service.name", appName)
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	embedder, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	corpus, err := biz.LoadCorpus(opts.CorpusPath)
	if err != nil {
		return err
	}
	logger.Infow("corpus loaded",
		"path", opts.CorpusPath,
		"documents", len(corpus.Documents),
		"chapters", len(corpus.Chapters),
		"sections", len(corpus.Sections),
		"subsections", len(corpus.Subsections),
		"tier_blocks", len(corpus.TierBlocks),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	indexer := biz.NewIndexer(embedder, &biz.IndexerConfig{BatchSize: opts.BatchSize})
	s, err := indexer.BuildIndex(ctx, corpus, opts.OutputDir)
	if err != nil {
		return err
	}

	stats := s.Stats()
	logger.Infow("index build complete",
		"dir", opts.OutputDir,
		"embedding_dim", stats.EmbeddingDim,
		"level_counts", stats.LevelCounts,
		"tier_counts", stats.TierCounts,
	)
	return nil
}
