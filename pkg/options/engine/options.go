// Package engine provides retrieval engine configuration options.
package engine

import (
	"fmt"

	"github.com/kart-io/lexrag/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains the retrieval engine configuration.
type Options struct {
	// IndexDir is the directory the persisted index is loaded from.
	IndexDir string `json:"index-dir" mapstructure:"index-dir"`

	// TopKDocuments is the number of documents kept in the first cascade stage.
	TopKDocuments int `json:"top-k-documents" mapstructure:"top-k-documents"`

	// TopKChapters is the number of chapters kept in the second cascade stage.
	TopKChapters int `json:"top-k-chapters" mapstructure:"top-k-chapters"`

	// TopKSections is the number of sections kept in the third cascade stage.
	TopKSections int `json:"top-k-sections" mapstructure:"top-k-sections"`

	// TopKSubsections is the number of subsections kept in the fourth cascade stage.
	TopKSubsections int `json:"top-k-subsections" mapstructure:"top-k-subsections"`

	// MinScoreDocuments is the document relevance floor.
	MinScoreDocuments float64 `json:"min-score-documents" mapstructure:"min-score-documents"`

	// MinScoreChapters is the chapter relevance floor.
	MinScoreChapters float64 `json:"min-score-chapters" mapstructure:"min-score-chapters"`

	// MinScoreSections is the section relevance floor.
	MinScoreSections float64 `json:"min-score-sections" mapstructure:"min-score-sections"`

	// MinScoreSubsections is the subsection relevance floor.
	MinScoreSubsections float64 `json:"min-score-subsections" mapstructure:"min-score-subsections"`

	// UseHybridSearch enables the BM25 keyword leg alongside vector search.
	UseHybridSearch bool `json:"use-hybrid-search" mapstructure:"use-hybrid-search"`

	// UseHierarchicalFiltering restricts each cascade stage to the parents
	// found by the previous one. Off by default: it trades recall for speed.
	UseHierarchicalFiltering bool `json:"use-hierarchical-filtering" mapstructure:"use-hierarchical-filtering"`

	// TokenBudget bounds the assembled context size.
	TokenBudget int `json:"token-budget" mapstructure:"token-budget"`

	// SystemPrompt overrides the answer generation system prompt.
	SystemPrompt string `json:"system-prompt" mapstructure:"system-prompt"`

	// BatchSize is the embedding batch size used by the indexer.
	BatchSize int `json:"batch-size" mapstructure:"batch-size"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		IndexDir:            "_output/index",
		TopKDocuments:       3,
		TopKChapters:        5,
		TopKSections:        10,
		TopKSubsections:     10,
		MinScoreDocuments:   0.3,
		MinScoreChapters:    0.3,
		MinScoreSections:    0.35,
		MinScoreSubsections: 0.35,
		UseHybridSearch:     true,
		TokenBudget:         3000,
		BatchSize:           32,
	}
}

// AddFlags adds flags for engine options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.IndexDir, options.Join(prefixes...)+"engine.index-dir", o.IndexDir, "Directory the persisted index is loaded from.")
	fs.IntVar(&o.TopKDocuments, options.Join(prefixes...)+"engine.top-k-documents", o.TopKDocuments, "Documents kept per query.")
	fs.IntVar(&o.TopKChapters, options.Join(prefixes...)+"engine.top-k-chapters", o.TopKChapters, "Chapters kept per query.")
	fs.IntVar(&o.TopKSections, options.Join(prefixes...)+"engine.top-k-sections", o.TopKSections, "Sections kept per query.")
	fs.IntVar(&o.TopKSubsections, options.Join(prefixes...)+"engine.top-k-subsections", o.TopKSubsections, "Subsections kept per query.")
	fs.Float64Var(&o.MinScoreDocuments, options.Join(prefixes...)+"engine.min-score-documents", o.MinScoreDocuments, "Document relevance floor.")
	fs.Float64Var(&o.MinScoreChapters, options.Join(prefixes...)+"engine.min-score-chapters", o.MinScoreChapters, "Chapter relevance floor.")
	fs.Float64Var(&o.MinScoreSections, options.Join(prefixes...)+"engine.min-score-sections", o.MinScoreSections, "Section relevance floor.")
	fs.Float64Var(&o.MinScoreSubsections, options.Join(prefixes...)+"engine.min-score-subsections", o.MinScoreSubsections, "Subsection relevance floor.")
	fs.BoolVar(&o.UseHybridSearch, options.Join(prefixes...)+"engine.use-hybrid-search", o.UseHybridSearch, "Enable the BM25 keyword leg alongside vector search.")
	fs.BoolVar(&o.UseHierarchicalFiltering, options.Join(prefixes...)+"engine.use-hierarchical-filtering", o.UseHierarchicalFiltering, "Restrict each cascade stage to parents found by the previous one.")
	fs.IntVar(&o.TokenBudget, options.Join(prefixes...)+"engine.token-budget", o.TokenBudget, "Assembled context token budget.")
	fs.StringVar(&o.SystemPrompt, options.Join(prefixes...)+"engine.system-prompt", o.SystemPrompt, "Answer generation system prompt override.")
	fs.IntVar(&o.BatchSize, options.Join(prefixes...)+"engine.batch-size", o.BatchSize, "Embedding batch size for index builds.")
}

// Validate validates the engine options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TopKDocuments <= 0 || o.TopKChapters <= 0 || o.TopKSections <= 0 || o.TopKSubsections <= 0 {
		errs = append(errs, fmt.Errorf("top-k values must be positive"))
	}
	if o.TokenBudget <= 0 {
		errs = append(errs, fmt.Errorf("token-budget must be positive"))
	}
	if o.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch-size must be positive"))
	}
	return errs
}

// Complete completes the engine options with defaults.
func (o *Options) Complete() error {
	return nil
}
