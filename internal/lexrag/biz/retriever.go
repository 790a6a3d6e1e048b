package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/lexrag/internal/model"
	"github.com/kart-io/lexrag/internal/pkg/legal/intent"
	"github.com/kart-io/lexrag/internal/pkg/legal/textutil"
	"github.com/kart-io/lexrag/internal/lexrag/store"
	"github.com/kart-io/lexrag/pkg/llm"
)

// Context assembly category keys, in output order.
const (
	categoryProcedure    = "procedure"
	categoryGuidance     = "guidance"
	categoryEvidence     = "evidence"
	categoryCompensation = "compensation"
	categorySections     = "sections"
	categorySubsections  = "subsections"
)

// RetrievalConfig tunes the cascade stages and context assembly.
type RetrievalConfig struct {
	TopKDocuments   int `json:"top_k_documents" mapstructure:"top_k_documents"`
	TopKChapters    int `json:"top_k_chapters" mapstructure:"top_k_chapters"`
	TopKSections    int `json:"top_k_sections" mapstructure:"top_k_sections"`
	TopKSubsections int `json:"top_k_subsections" mapstructure:"top_k_subsections"`

	MinScoreDocuments   float64 `json:"min_score_documents" mapstructure:"min_score_documents"`
	MinScoreChapters    float64 `json:"min_score_chapters" mapstructure:"min_score_chapters"`
	MinScoreSections    float64 `json:"min_score_sections" mapstructure:"min_score_sections"`
	MinScoreSubsections float64 `json:"min_score_subsections" mapstructure:"min_score_subsections"`

	// TierTopK is the per-tier result count.
	TierTopK map[store.Tier]int `json:"tier_top_k" mapstructure:"tier_top_k"`

	// UseHybridSearch enables the BM25 keyword leg alongside vector search.
	// When off, every stage runs on the vector signal alone.
	UseHybridSearch bool `json:"use_hybrid_search" mapstructure:"use_hybrid_search"`

	// UseHierarchicalFiltering restricts each cascade stage to the ancestors
	// found by the previous stage. Off by default: enabling it has caused
	// recall regressions because a correct provision may live under a
	// chapter whose own embedding scored poorly.
	UseHierarchicalFiltering bool `json:"use_hierarchical_filtering" mapstructure:"use_hierarchical_filtering"`

	// TokenBudget caps the assembled context, estimated as chars/4.
	TokenBudget int `json:"token_budget" mapstructure:"token_budget"`

	// BudgetFractions is each category's share of TokenBudget.
	BudgetFractions map[string]float64 `json:"budget_fractions" mapstructure:"budget_fractions"`
}

// DefaultRetrievalConfig returns the default pipeline configuration.
func DefaultRetrievalConfig() *RetrievalConfig {
	return &RetrievalConfig{
		TopKDocuments:       3,
		TopKChapters:        5,
		TopKSections:        10,
		TopKSubsections:     10,
		MinScoreDocuments:   0.3,
		MinScoreChapters:    0.3,
		MinScoreSections:    0.35,
		MinScoreSubsections: 0.35,
		TierTopK: map[store.Tier]int{
			store.TierProcedure:    4,
			store.TierGuidance:     4,
			store.TierEvidence:     3,
			store.TierCompensation: 3,
		},
		UseHybridSearch:          true,
		UseHierarchicalFiltering: false,
		TokenBudget:              3000,
		BudgetFractions: map[string]float64{
			categoryProcedure:    0.25,
			categoryGuidance:     0.15,
			categoryEvidence:     0.15,
			categoryCompensation: 0.10,
			categorySections:     0.25,
			categorySubsections:  0.10,
		},
	}
}

func (c *RetrievalConfig) tierTopK(tier store.Tier) int {
	if k, ok := c.TierTopK[tier]; ok && k > 0 {
		return k
	}
	return 3
}

// RetrievalResult aggregates everything one pipeline run produced: per-level
// and per-tier hits, the routing decision, the assembled context and the
// chunks attribution will search.
type RetrievalResult struct {
	Intent intent.Intent `json:"intent"`

	Documents   []store.SearchResult `json:"documents,omitempty"`
	Chapters    []store.SearchResult `json:"chapters,omitempty"`
	Sections    []store.SearchResult `json:"sections,omitempty"`
	Subsections []store.SearchResult `json:"subsections,omitempty"`

	TierResults map[store.Tier][]store.SearchResult `json:"tier_results,omitempty"`

	// ExactLookup marks a result served by direct section-number lookup,
	// bypassing the semantic cascade.
	ExactLookup bool `json:"exact_lookup"`

	ContextText         string                     `json:"context_text"`
	Citations           []string                   `json:"citations,omitempty"`
	StructuredCitations []model.StructuredCitation `json:"structured_citations,omitempty"`
	Chunks              []model.ChunkWithOffsets   `json:"chunks,omitempty"`
	TokenCount          int                        `json:"token_count"`
}

// IsEmpty reports whether the pipeline found nothing at all. This is the
// "no relevant law found" outcome, distinct from an error.
func (r *RetrievalResult) IsEmpty() bool {
	if len(r.Documents) > 0 || len(r.Chapters) > 0 || len(r.Sections) > 0 || len(r.Subsections) > 0 {
		return false
	}
	for _, hits := range r.TierResults {
		if len(hits) > 0 {
			return false
		}
	}
	return true
}

// HierarchicalRetriever runs the intent-routed cascade over the multi-tier
// store and assembles grounded context.
type HierarchicalRetriever struct {
	store    store.Searcher
	embedder llm.EmbeddingProvider
	router   *intent.Router
	config   *RetrievalConfig
}

// NewHierarchicalRetriever creates a retriever over the given store.
func NewHierarchicalRetriever(searcher store.Searcher, embedder llm.EmbeddingProvider, config *RetrievalConfig) *HierarchicalRetriever {
	if config == nil {
		config = DefaultRetrievalConfig()
	}
	return &HierarchicalRetriever{
		store:    searcher,
		embedder: embedder,
		router:   intent.NewRouter(),
		config:   config,
	}
}

// Retrieve runs the full pipeline: hints short-circuit, tier searches, the
// 4-stage primary cascade, then context assembly. An empty result is a
// legitimate outcome, not an error.
func (r *HierarchicalRetriever) Retrieve(ctx context.Context, query string) (*RetrievalResult, error) {
	in := r.router.Classify(query)
	result := &RetrievalResult{
		Intent:      in,
		TierResults: make(map[store.Tier][]store.SearchResult),
	}

	// An explicit "section N" citation skips the semantic stages entirely.
	if in.Hints.SectionNo != "" {
		sections := r.store.LookupSectionByNumber(in.Hints.SectionNo, in.Hints.DocID)
		subsections := r.store.LookupSubsectionsBySection(in.Hints.SectionNo, in.Hints.DocID)
		if len(sections) > 0 || len(subsections) > 0 {
			logger.Infow("exact section lookup hit",
				"section_no", in.Hints.SectionNo,
				"doc_id", in.Hints.DocID,
				"sections", len(sections),
				"subsections", len(subsections),
			)
			result.Sections = sections
			result.Subsections = subsections
			result.ExactLookup = true
			r.assembleContext(result)
			return result, nil
		}
	}

	queryVector, err := r.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// An empty query text skips the keyword leg in the store.
	enhanced := ""
	if r.config.UseHybridSearch {
		enhanced = in.EnhancedQuery(query)
	}

	// Tier searches run before the primary cascade, each against its full
	// specialized index with no ancestor filtering.
	active := map[store.Tier]bool{
		store.TierProcedure:    in.NeedsProcedure(),
		store.TierGuidance:     in.NeedsGeneralSOP(),
		store.TierEvidence:     in.NeedsEvidence,
		store.TierCompensation: in.NeedsCompensation,
	}
	anyTierHits := false
	for _, tier := range store.Tiers {
		if !active[tier] {
			continue
		}
		hits := r.store.SearchTierBlocks(tier, queryVector, enhanced, r.config.tierTopK(tier))
		if len(hits) > 0 {
			result.TierResults[tier] = hits
			anyTierHits = true
		}
	}

	// Stage 1: documents.
	result.Documents = filterByScore(
		r.store.SearchDocuments(queryVector, enhanced, r.config.TopKDocuments),
		r.config.MinScoreDocuments)
	if len(result.Documents) == 0 && !anyTierHits {
		logger.Infow("no relevant law found", "query_length", len(query))
		return result, nil
	}

	// Stage 2: chapters, constrained to the top document only when
	// hierarchical filtering is on.
	var docFilter []string
	if r.config.UseHierarchicalFiltering && len(result.Documents) > 0 {
		docFilter = []string{result.Documents[0].DocID}
	}
	result.Chapters = filterByScore(
		r.store.SearchChapters(queryVector, enhanced, r.config.TopKChapters, docFilter),
		r.config.MinScoreChapters)

	// Stage 3: sections.
	var chapterFilter []string
	if r.config.UseHierarchicalFiltering {
		chapterFilter = chapterNumbers(result.Chapters)
	}
	result.Sections = filterByScore(
		r.store.SearchSections(queryVector, enhanced, r.config.TopKSections, docFilter, chapterFilter),
		r.config.MinScoreSections)

	// Stage 4: subsections.
	var sectionFilter []string
	if r.config.UseHierarchicalFiltering {
		sectionFilter = sectionNumbers(result.Sections)
	}
	result.Subsections = filterByScore(
		r.store.SearchSubsections(queryVector, enhanced, r.config.TopKSubsections, docFilter, chapterFilter, sectionFilter),
		r.config.MinScoreSubsections)

	r.assembleContext(result)
	return result, nil
}

func filterByScore(results []store.SearchResult, minScore float64) []store.SearchResult {
	if minScore <= 0 {
		return results
	}
	var kept []store.SearchResult
	for _, res := range results {
		if res.Score >= minScore {
			kept = append(kept, res)
		}
	}
	return kept
}

func chapterNumbers(results []store.SearchResult) []string {
	var nos []string
	for _, res := range results {
		if res.ChapterNo != "" && !textutil.ContainsString(nos, res.ChapterNo) {
			nos = append(nos, res.ChapterNo)
		}
	}
	return nos
}

func sectionNumbers(results []store.SearchResult) []string {
	var nos []string
	for _, res := range results {
		if res.SectionNo != "" && !textutil.ContainsString(nos, res.SectionNo) {
			nos = append(nos, res.SectionNo)
		}
	}
	return nos
}
