package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/lexrag/internal/model"
	"github.com/kart-io/lexrag/internal/pkg/legal/attribution"
	"github.com/kart-io/lexrag/internal/lexrag/metrics"
	"github.com/kart-io/lexrag/internal/lexrag/store"
	"github.com/kart-io/lexrag/pkg/llm"
)

// NoRelevantLawAnswer is returned when retrieval finds nothing. It is a
// legitimate outcome the caller can distinguish from an error.
const NoRelevantLawAnswer = "No relevant legal provision was found for this question. Please rephrase or consult a qualified lawyer."

// Service is the business surface of the legal QA engine.
type Service interface {
	// Ask answers a legal question end to end: retrieve, generate,
	// attribute.
	Ask(ctx context.Context, question string) (*model.QueryResult, error)
	// Retrieve runs the retrieval pipeline only.
	Retrieve(ctx context.Context, query string) (*RetrievalResult, error)
	// Attribute resolves answer units against a chunk set.
	Attribute(units []model.AnswerUnit, chunks []model.ChunkWithOffsets) []model.AnswerUnit
	// GetStats reports index, cache and runtime statistics.
	GetStats(ctx context.Context) (map[string]any, error)
}

// LegalService wires the retriever, generator, resolver and cache into the
// full engine.
type LegalService struct {
	retriever     *HierarchicalRetriever
	generator     *Generator
	resolver      *attribution.Resolver
	cache         *QueryCache
	store         store.Searcher
	embedProvider llm.EmbeddingProvider
	chatProvider  llm.ChatProvider
	metrics       *metrics.EngineMetrics
}

// ServiceConfig bundles the component configurations.
type ServiceConfig struct {
	RetrievalConfig *RetrievalConfig
	GeneratorConfig *GeneratorConfig
}

// NewLegalService creates the engine over an already loaded store.
func NewLegalService(
	searcher store.Searcher,
	embedProvider llm.EmbeddingProvider,
	chatProvider llm.ChatProvider,
	cache *QueryCache,
	engineMetrics *metrics.EngineMetrics,
	config *ServiceConfig,
) *LegalService {
	if config == nil {
		config = &ServiceConfig{}
	}
	if engineMetrics == nil {
		engineMetrics = metrics.New()
	}
	return &LegalService{
		retriever:     NewHierarchicalRetriever(searcher, embedProvider, config.RetrievalConfig),
		generator:     NewGenerator(chatProvider, config.GeneratorConfig),
		resolver:      attribution.NewResolver(),
		cache:         cache,
		store:         searcher,
		embedProvider: embedProvider,
		chatProvider:  chatProvider,
		metrics:       engineMetrics,
	}
}

// Ask answers a question end to end.
func (s *LegalService) Ask(ctx context.Context, question string) (*model.QueryResult, error) {
	start := time.Now()

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, question); err == nil && cached != nil {
			cached.FromCache = true
			s.metrics.RecordQuery(true, nil)
			return cached, nil
		}
	}

	retrievalStart := time.Now()
	retrieval, err := s.retriever.Retrieve(ctx, question)
	s.metrics.RecordRetrieval(time.Since(retrievalStart), err)
	if err != nil {
		s.metrics.RecordQuery(false, err)
		return nil, err
	}
	if retrieval.ExactLookup {
		s.metrics.RecordExactLookup()
	}

	if retrieval.IsEmpty() {
		s.metrics.RecordNoResults()
		s.metrics.RecordQuery(false, nil)
		return &model.QueryResult{
			Answer:    NoRelevantLawAnswer,
			ElapsedMs: time.Since(start).Milliseconds(),
		}, nil
	}

	llmStart := time.Now()
	answer, units, err := s.generator.GenerateAnswer(ctx, question, retrieval.ContextText)
	s.metrics.RecordLLMCall(time.Since(llmStart), err)
	if err != nil {
		s.metrics.RecordQuery(false, err)
		return nil, err
	}

	attributed := s.Attribute(units, retrieval.Chunks)

	result := &model.QueryResult{
		Answer:    answer,
		Units:     attributed,
		Citations: retrieval.StructuredCitations,
		ElapsedMs: time.Since(start).Milliseconds(),
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, question, result)
	}
	s.metrics.RecordQuery(false, nil)
	return result, nil
}

// Retrieve runs the retrieval pipeline only.
func (s *LegalService) Retrieve(ctx context.Context, query string) (*RetrievalResult, error) {
	start := time.Now()
	result, err := s.retriever.Retrieve(ctx, query)
	s.metrics.RecordRetrieval(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if result.ExactLookup {
		s.metrics.RecordExactLookup()
	}
	if result.IsEmpty() {
		s.metrics.RecordNoResults()
	}
	return result, nil
}

// Attribute resolves claimed quotes to source spans, downgrading every
// verbatim unit that fails resolution.
func (s *LegalService) Attribute(units []model.AnswerUnit, chunks []model.ChunkWithOffsets) []model.AnswerUnit {
	resolved := s.resolver.ResolveAll(units, chunks)

	verbatim, derived, downgrades := 0, 0, 0
	for i := range resolved {
		if resolved[i].Kind == model.UnitVerbatim {
			verbatim++
		} else {
			derived++
			if units[i].Kind == model.UnitVerbatim {
				downgrades++
			}
		}
	}
	s.metrics.RecordAttribution(verbatim, derived, downgrades)
	if downgrades > 0 {
		logger.Infow("downgraded unverifiable verbatim units",
			"downgrades", downgrades,
			"total_units", len(resolved),
		)
	}
	return resolved
}

// GetStats reports index counts, providers, cache state and metrics.
func (s *LegalService) GetStats(ctx context.Context) (map[string]any, error) {
	indexStats := s.store.Stats()

	stats := map[string]any{
		"embedding_dim":  indexStats.EmbeddingDim,
		"level_counts":   indexStats.LevelCounts,
		"tier_counts":    indexStats.TierCounts,
		"embed_provider": s.embedProvider.Name(),
		"chat_provider":  s.chatProvider.Name(),
	}

	if s.cache != nil {
		if cacheStats, err := s.cache.GetStats(ctx); err == nil {
			stats["cache"] = cacheStats
		}
	}
	stats["metrics"] = s.metrics.Stats()
	return stats, nil
}

// Metrics exposes the engine metrics handle for the metrics endpoint.
func (s *LegalService) Metrics() *metrics.EngineMetrics {
	return s.metrics
}

var _ Service = (*LegalService)(nil)
