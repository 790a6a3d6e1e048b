package store

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Persisted layout: one vector file, one metadata JSON file and one raw
// texts JSON file per level and per tier, plus a single config.json with
// the embedding dimension. Keyword indices are never serialized; loading
// rebuilds them from the texts files so keyword ranking stays reproducible
// across versions.

const configFileName = "config.json"

type persistedConfig struct {
	EmbeddingDim int           `json:"embedding_dim"`
	LevelCounts  map[Level]int `json:"level_counts"`
	TierCounts   map[Tier]int  `json:"tier_counts"`
}

// Save writes the full store into dir, creating it if needed.
func (s *MultiTierStore) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	for _, level := range Levels {
		if err := saveIndexFiles(dir, string(level), s.levels[level], s.levelEntries[level]); err != nil {
			return fmt.Errorf("level %s: %w", level, err)
		}
	}
	for _, tier := range Tiers {
		if err := saveIndexFiles(dir, string(tier), s.tiers[tier], s.tierEntries[tier]); err != nil {
			return fmt.Errorf("tier %s: %w", tier, err)
		}
	}

	cfg := persistedConfig{
		EmbeddingDim: s.dim,
		LevelCounts:  make(map[Level]int, len(Levels)),
		TierCounts:   make(map[Tier]int, len(Tiers)),
	}
	for _, level := range Levels {
		cfg.LevelCounts[level] = s.levels[level].Len()
	}
	for _, tier := range Tiers {
		cfg.TierCounts[tier] = s.tiers[tier].Len()
	}
	return writeJSONFile(filepath.Join(dir, configFileName), cfg)
}

// Load reads a persisted store from dir and rebuilds all keyword indices.
// Missing files or an embedding-dimension mismatch between config.json and
// any vector file are fatal: the caller must not serve traffic.
func Load(dir string) (*MultiTierStore, error) {
	var cfg persistedConfig
	if err := readJSONFile(filepath.Join(dir, configFileName), &cfg); err != nil {
		return nil, fmt.Errorf("failed to read index config: %w", err)
	}
	if cfg.EmbeddingDim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d in index config", cfg.EmbeddingDim)
	}

	s := NewMultiTierStore(cfg.EmbeddingDim)

	for _, level := range Levels {
		vectors, texts, err := loadIndexFiles(dir, string(level), cfg.EmbeddingDim)
		if err != nil {
			return nil, fmt.Errorf("level %s: %w", level, err)
		}
		var entries []IndexEntry
		if err := readJSONFile(metaPath(dir, string(level)), &entries); err != nil {
			return nil, fmt.Errorf("level %s: %w", level, err)
		}
		if len(entries) != len(vectors) || len(texts) != len(vectors) {
			return nil, fmt.Errorf("level %s: inconsistent entry counts", level)
		}
		for i := range entries {
			entries[i].Text = texts[i]
			if _, err := s.AddEntry(level, vectors[i], entries[i]); err != nil {
				return nil, fmt.Errorf("level %s: %w", level, err)
			}
		}
	}

	for _, tier := range Tiers {
		vectors, texts, err := loadIndexFiles(dir, string(tier), cfg.EmbeddingDim)
		if err != nil {
			return nil, fmt.Errorf("tier %s: %w", tier, err)
		}
		var entries []TierBlockEntry
		if err := readJSONFile(metaPath(dir, string(tier)), &entries); err != nil {
			return nil, fmt.Errorf("tier %s: %w", tier, err)
		}
		if len(entries) != len(vectors) || len(texts) != len(vectors) {
			return nil, fmt.Errorf("tier %s: inconsistent entry counts", tier)
		}
		for i := range entries {
			entries[i].Text = texts[i]
			if _, err := s.AddTierBlock(tier, vectors[i], entries[i]); err != nil {
				return nil, fmt.Errorf("tier %s: %w", tier, err)
			}
		}
	}

	s.BuildKeywordIndexes()
	return s, nil
}

func vecPath(dir, name string) string   { return filepath.Join(dir, name+".vec") }
func metaPath(dir, name string) string  { return filepath.Join(dir, name+".meta.json") }
func textsPath(dir, name string) string { return filepath.Join(dir, name+".texts.json") }

func saveIndexFiles[E any](dir, name string, ix *LevelIndex, entries []E) error {
	if err := writeVectorFile(vecPath(dir, name), ix); err != nil {
		return err
	}
	if err := writeJSONFile(metaPath(dir, name), entries); err != nil {
		return err
	}
	texts := make([]string, ix.Len())
	for i := range texts {
		texts[i] = ix.Text(i)
	}
	return writeJSONFile(textsPath(dir, name), texts)
}

func loadIndexFiles(dir, name string, dim int) ([][]float32, []string, error) {
	vectors, err := readVectorFile(vecPath(dir, name), dim)
	if err != nil {
		return nil, nil, err
	}
	var texts []string
	if err := readJSONFile(textsPath(dir, name), &texts); err != nil {
		return nil, nil, err
	}
	return vectors, texts, nil
}

// writeVectorFile writes count and dimension as uint32 little-endian
// followed by the row-major float32 matrix.
func writeVectorFile(path string, ix *LevelIndex) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	header := []uint32{uint32(ix.Len()), uint32(ix.Dim())}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	for i := 0; i < ix.Len(); i++ {
		if err := binary.Write(w, binary.LittleEndian, ix.Vector(i)); err != nil {
			return err
		}
	}
	return w.Flush()
}

func readVectorFile(path string, wantDim int) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header := make([]uint32, 2)
	if err := binary.Read(r, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to read vector header: %w", err)
	}
	count, dim := int(header[0]), int(header[1])
	if dim != wantDim {
		return nil, fmt.Errorf("embedding dimension mismatch: file has %d, config has %d", dim, wantDim)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		vectors[i] = make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vectors[i]); err != nil {
			return nil, fmt.Errorf("failed to read vector %d: %w", i, err)
		}
	}
	return vectors, nil
}

func writeJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSONFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
