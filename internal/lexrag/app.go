package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/lexrag/internal/lexrag/biz"
	"github.com/kart-io/lexrag/internal/lexrag/handler"
	"github.com/kart-io/lexrag/internal/lexrag/metrics"
	"github.com/kart-io/lexrag/internal/lexrag/router"
	"github.com/kart-io/lexrag/internal/lexrag/store"
	"github.com/kart-io/lexrag/pkg/app"
	"github.com/kart-io/lexrag/pkg/llm"

	// Register LLM providers
	_ "github.com/kart-io/lexrag/pkg/llm/ollama"
	_ "github.com/kart-io/lexrag/pkg/llm/openai"
)

const (
	appName        = "lexrag"
	appDescription = `LexRAG Legal QA Service

A retrieval and attribution engine over Indian criminal statutes.

This server provides:
  - Hierarchical hybrid retrieval over statute documents, chapters,
    sections and subsections
  - Specialized procedure, evidence, compensation and guidance indices
  - LLM answer generation with verbatim span attribution`
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

// Run runs the legal QA service with the given options.
func Run(opts *Options) error {
	printBanner(opts)

	// 1. Initialize logging
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting legal QA service...")

	// 2. Connect redis when the cache is enabled
	var redisClient *goredis.Client
	if opts.Cache.Enabled {
		redisClient = newRedisClient(opts)
		pingCtx, cancel := context.WithTimeout(context.Background(), opts.Cache.Redis.DialTimeout)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warnw("redis unreachable, running without cache", "error", err.Error(), "addr", opts.Cache.Redis.Addr())
			_ = redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
			logger.Infow("redis connected", "addr", opts.Cache.Redis.Addr())
		}
	}

	// 3. Initialize LLM providers
	embedProvider, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	chatProvider, err := llm.NewChatProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	cachedEmbedder := llm.NewCachedEmbeddingProvider(embedProvider, redisClient, nil)
	logger.Infow("LLM providers initialized",
		"embed_provider", embedProvider.Name(),
		"chat_provider", chatProvider.Name(),
	)

	// 4. Load the persisted index
	multiTierStore, err := store.Load(opts.Engine.IndexDir)
	if err != nil {
		return fmt.Errorf("failed to load index from %s: %w", opts.Engine.IndexDir, err)
	}
	stats := multiTierStore.Stats()
	logger.Infow("index loaded",
		"dir", opts.Engine.IndexDir,
		"embedding_dim", stats.EmbeddingDim,
		"level_counts", stats.LevelCounts,
		"tier_counts", stats.TierCounts,
	)

	// 5. Initialize the biz layer
	var queryCache *biz.QueryCache
	if redisClient != nil {
		queryCache = biz.NewQueryCache(redisClient, &biz.QueryCacheConfig{
			Enabled:   opts.Cache.Enabled,
			TTL:       opts.Cache.TTL,
			KeyPrefix: opts.Cache.KeyPrefix,
		})
	}
	engineMetrics := metrics.New()
	legalService := biz.NewLegalService(
		multiTierStore,
		cachedEmbedder,
		chatProvider,
		queryCache,
		engineMetrics,
		&biz.ServiceConfig{
			RetrievalConfig: retrievalConfig(opts),
			GeneratorConfig: &biz.GeneratorConfig{SystemPrompt: opts.Engine.SystemPrompt},
		},
	)
	logger.Info("Legal QA service initialized")

	// 6. Initialize the handler layer and routes
	legalHandler := handler.NewLegalHandler(legalService, engineMetrics)

	if !opts.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), router.AccessLog())
	router.Register(engine, legalHandler)

	// 7. Serve
	return serve(opts, engine)
}

// retrievalConfig maps the engine options onto the retrieval configuration.
func retrievalConfig(opts *Options) *biz.RetrievalConfig {
	config := biz.DefaultRetrievalConfig()
	config.TopKDocuments = opts.Engine.TopKDocuments
	config.TopKChapters = opts.Engine.TopKChapters
	config.TopKSections = opts.Engine.TopKSections
	config.TopKSubsections = opts.Engine.TopKSubsections
	config.MinScoreDocuments = opts.Engine.MinScoreDocuments
	config.MinScoreChapters = opts.Engine.MinScoreChapters
	config.MinScoreSections = opts.Engine.MinScoreSections
	config.MinScoreSubsections = opts.Engine.MinScoreSubsections
	config.UseHybridSearch = opts.Engine.UseHybridSearch
	config.UseHierarchicalFiltering = opts.Engine.UseHierarchicalFiltering
	config.TokenBudget = opts.Engine.TokenBudget
	return config
}

// newRedisClient builds a redis client from the cache options.
func newRedisClient(opts *Options) *goredis.Client {
	redisOpts := opts.Cache.Redis
	return goredis.NewClient(&goredis.Options{
		Addr:         redisOpts.Addr(),
		Password:     redisOpts.Password,
		DB:           redisOpts.Database,
		MaxRetries:   redisOpts.MaxRetries,
		PoolSize:     redisOpts.PoolSize,
		MinIdleConns: redisOpts.MinIdleConns,
		DialTimeout:  redisOpts.DialTimeout,
		ReadTimeout:  redisOpts.ReadTimeout,
		WriteTimeout: redisOpts.WriteTimeout,
		PoolTimeout:  redisOpts.PoolTimeout,
	})
}

// serve runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully within the configured timeout.
func serve(opts *Options, engine *gin.Engine) error {
	srv := &http.Server{
		Addr:         opts.HTTP.Addr,
		Handler:      engine,
		ReadTimeout:  opts.HTTP.ReadTimeout,
		WriteTimeout: opts.HTTP.WriteTimeout,
		IdleTimeout:  opts.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", opts.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case sig := <-quit:
		logger.Infow("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func printBanner(_ *Options) {
	fmt.Printf("Starting %s %s...\n", appName, app.GetVersion())
}
