package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kart-io/logger"

	"github.com/kart-io/lexrag/internal/lexrag/store"
	"github.com/kart-io/lexrag/pkg/llm"
)

// Corpus is the structured input of one offline indexing run. It is the
// output of the upstream document parser, already split into the statute
// hierarchy and the classified tier blocks.
type Corpus struct {
	Documents   []store.IndexEntry     `json:"documents"`
	Chapters    []store.IndexEntry     `json:"chapters"`
	Sections    []store.IndexEntry     `json:"sections"`
	Subsections []store.IndexEntry     `json:"subsections"`
	TierBlocks  []store.TierBlockEntry `json:"tier_blocks"`
}

// IndexerConfig configures the offline index build.
type IndexerConfig struct {
	// BatchSize is the embedding batch size.
	BatchSize int `json:"batch_size" mapstructure:"batch_size"`
}

// DefaultIndexerConfig returns the default indexer configuration.
func DefaultIndexerConfig() *IndexerConfig {
	return &IndexerConfig{BatchSize: 32}
}

// Indexer builds a MultiTierStore from a corpus file. It is a one-shot
// offline pipeline, never run concurrently with serving.
type Indexer struct {
	embedder llm.EmbeddingProvider
	config   *IndexerConfig
}

// NewIndexer creates an Indexer.
func NewIndexer(embedder llm.EmbeddingProvider, config *IndexerConfig) *Indexer {
	if config == nil {
		config = DefaultIndexerConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 32
	}
	return &Indexer{embedder: embedder, config: config}
}

// LoadCorpus reads and decodes a corpus file.
func LoadCorpus(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	var corpus Corpus
	if err := json.NewDecoder(f).Decode(&corpus); err != nil {
		return nil, fmt.Errorf("failed to decode corpus file: %w", err)
	}
	return &corpus, nil
}

// BuildIndex embeds the corpus, builds the multi-tier store and persists it
// into outputDir.
func (ix *Indexer) BuildIndex(ctx context.Context, corpus *Corpus, outputDir string) (*store.MultiTierStore, error) {
	levelEntries := map[store.Level][]store.IndexEntry{
		store.LevelDocument:   corpus.Documents,
		store.LevelChapter:    corpus.Chapters,
		store.LevelSection:    corpus.Sections,
		store.LevelSubsection: corpus.Subsections,
	}

	// The embedding dimension is discovered from the first embedded batch;
	// the store is created lazily once it is known.
	var s *store.MultiTierStore
	ensureStore := func(vectors [][]float32) error {
		if s != nil {
			return nil
		}
		if len(vectors) == 0 || len(vectors[0]) == 0 {
			return fmt.Errorf("embedding provider returned empty vectors")
		}
		s = store.NewMultiTierStore(len(vectors[0]))
		return nil
	}

	for _, level := range store.Levels {
		entries := levelEntries[level]
		if len(entries) == 0 {
			continue
		}
		texts := make([]string, len(entries))
		for i, e := range entries {
			texts[i] = e.Text
		}
		vectors, err := ix.embedBatched(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("level %s: %w", level, err)
		}
		if err := ensureStore(vectors); err != nil {
			return nil, err
		}
		for i, entry := range entries {
			if _, err := s.AddEntry(level, vectors[i], entry); err != nil {
				return nil, fmt.Errorf("level %s: %w", level, err)
			}
		}
		logger.Infow("indexed hierarchy level", "level", level, "entries", len(entries))
	}

	if len(corpus.TierBlocks) > 0 {
		texts := make([]string, len(corpus.TierBlocks))
		for i, b := range corpus.TierBlocks {
			texts[i] = b.Text
		}
		vectors, err := ix.embedBatched(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("tier blocks: %w", err)
		}
		if err := ensureStore(vectors); err != nil {
			return nil, err
		}
		for i, block := range corpus.TierBlocks {
			if block.Payload == nil {
				return nil, fmt.Errorf("tier block %q has no payload", block.BlockID)
			}
			if _, err := s.AddTierBlock(block.Payload.Tier(), vectors[i], block); err != nil {
				return nil, err
			}
		}
		logger.Infow("indexed tier blocks", "blocks", len(corpus.TierBlocks))
	}

	if s == nil {
		return nil, fmt.Errorf("corpus is empty")
	}

	s.BuildKeywordIndexes()

	if outputDir != "" {
		if err := s.Save(outputDir); err != nil {
			return nil, fmt.Errorf("failed to persist index: %w", err)
		}
		logger.Infow("persisted index", "dir", outputDir, "embedding_dim", s.Dim())
	}
	return s, nil
}

// embedBatched embeds texts in config-sized batches, preserving order.
func (ix *Indexer) embedBatched(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += ix.config.BatchSize {
		end := start + ix.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := ix.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch at offset %d: %w", start, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding count mismatch at offset %d: want %d, got %d", start, end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
