package store

import (
	"fmt"
	"sort"
)

// Hybrid fusion weights. Legal citation retrieval rewards exact-term recall
// (section numbers, defined terms) more than semantic drift, hence the
// keyword majority.
const (
	fusionVectorWeight  = 0.4
	fusionKeywordWeight = 0.6
	keywordScoreCeiling = 10.0
)

// FuseScores combines a cosine score and a BM25 score into one hybrid
// score: 0.4*max(v,0) + 0.6*min(b/10, 1) when both signals exist, else the
// single available signal unmodified. A negative cosine contributes zero to
// the blend, keeping fused scores non-negative and bounded.
func FuseScores(vectorScore, keywordScore float64) float64 {
	switch {
	case vectorScore != 0 && keywordScore > 0:
		v := vectorScore
		if v < 0 {
			v = 0
		}
		normalized := keywordScore / keywordScoreCeiling
		if normalized > 1 {
			normalized = 1
		}
		return fusionVectorWeight*v + fusionKeywordWeight*normalized
	case keywordScore > 0:
		return keywordScore
	default:
		return vectorScore
	}
}

// PriorityBoost scales a fused score by the block priority:
// final = combined * (1 + priority/10).
func PriorityBoost(combined, priority float64) float64 {
	return combined * (1 + priority/10)
}

// Searcher is the read surface of the multi-tier store consumed by the
// retrieval pipeline.
type Searcher interface {
	SearchDocuments(queryVector []float32, queryText string, k int) []SearchResult
	SearchChapters(queryVector []float32, queryText string, k int, docIDs []string) []SearchResult
	SearchSections(queryVector []float32, queryText string, k int, docIDs, chapterNos []string) []SearchResult
	SearchSubsections(queryVector []float32, queryText string, k int, docIDs, chapterNos, sectionNos []string) []SearchResult
	SearchTierBlocks(tier Tier, queryVector []float32, queryText string, k int) []SearchResult
	LookupSectionByNumber(sectionNo, docID string) []SearchResult
	LookupSubsectionsBySection(sectionNo, docID string) []SearchResult
	Stats() Stats
}

// MultiTierStore owns one LevelIndex per hierarchy level of the statute
// corpus and one per specialized tier. Built once offline, then immutable.
type MultiTierStore struct {
	dim          int
	levels       map[Level]*LevelIndex
	levelEntries map[Level][]IndexEntry
	tiers        map[Tier]*LevelIndex
	tierEntries  map[Tier][]TierBlockEntry
}

var _ Searcher = (*MultiTierStore)(nil)

// NewMultiTierStore creates an empty store for the given embedding
// dimension.
func NewMultiTierStore(dim int) *MultiTierStore {
	s := &MultiTierStore{
		dim:          dim,
		levels:       make(map[Level]*LevelIndex, len(Levels)),
		levelEntries: make(map[Level][]IndexEntry, len(Levels)),
		tiers:        make(map[Tier]*LevelIndex, len(Tiers)),
		tierEntries:  make(map[Tier][]TierBlockEntry, len(Tiers)),
	}
	for _, level := range Levels {
		s.levels[level] = NewLevelIndex(dim)
	}
	for _, tier := range Tiers {
		s.tiers[tier] = NewLevelIndex(dim)
	}
	return s
}

// Dim returns the embedding dimension.
func (s *MultiTierStore) Dim() int { return s.dim }

// AddEntry appends a hierarchy entry with its embedding. The assigned id is
// written back into the entry.
func (s *MultiTierStore) AddEntry(level Level, vector []float32, entry IndexEntry) (int, error) {
	ix, ok := s.levels[level]
	if !ok {
		return 0, fmt.Errorf("unknown level %q", level)
	}
	id, err := ix.Add(vector, entry.Text)
	if err != nil {
		return 0, err
	}
	entry.ID = id
	s.levelEntries[level] = append(s.levelEntries[level], entry)
	return id, nil
}

// AddTierBlock appends a specialized-tier block with its embedding. The
// block's payload tier must match the target tier.
func (s *MultiTierStore) AddTierBlock(tier Tier, vector []float32, entry TierBlockEntry) (int, error) {
	ix, ok := s.tiers[tier]
	if !ok {
		return 0, fmt.Errorf("unknown tier %q", tier)
	}
	if entry.Payload == nil || entry.Payload.Tier() != tier {
		return 0, fmt.Errorf("payload tier mismatch for block %q in tier %q", entry.BlockID, tier)
	}
	if entry.Priority < 1 {
		return 0, fmt.Errorf("block %q priority %v below minimum 1", entry.BlockID, entry.Priority)
	}
	id, err := ix.Add(vector, entry.Text)
	if err != nil {
		return 0, err
	}
	entry.ID = id
	s.tierEntries[tier] = append(s.tierEntries[tier], entry)
	return id, nil
}

// BuildKeywordIndexes builds the BM25 index of every level and tier. Call
// once after the last add of an offline build.
func (s *MultiTierStore) BuildKeywordIndexes() {
	for _, ix := range s.levels {
		ix.BuildKeywordIndex()
	}
	for _, ix := range s.tiers {
		ix.BuildKeywordIndex()
	}
}

// searchLevel runs the hybrid search on one hierarchy level: fuse the
// over-fetched candidate set, apply the filter after fusion and before
// truncation, then keep the top k. Filtering over the 3k candidates means a
// filter never silently starves results below k unless fewer than k
// candidates survive it.
func (s *MultiTierStore) searchLevel(level Level, queryVector []float32, queryText string, k int, filter func(*IndexEntry) bool) []SearchResult {
	ix := s.levels[level]
	entries := s.levelEntries[level]

	var results []SearchResult
	for _, cand := range ix.Search(queryVector, queryText, k) {
		entry := &entries[cand.ID]
		if filter != nil && !filter(entry) {
			continue
		}
		results = append(results, SearchResult{
			Level:        string(level),
			DocID:        entry.DocID,
			ChapterNo:    entry.ChapterNo,
			SectionNo:    entry.SectionNo,
			SubsectionNo: entry.SubsectionNo,
			Text:         entry.Text,
			Score:        FuseScores(cand.VectorScore, cand.KeywordScore),
			Metadata: map[string]any{
				"entry_id":      entry.ID,
				"page":          entry.Page,
				"type":          entry.Type,
				"vector_score":  cand.VectorScore,
				"keyword_score": cand.KeywordScore,
			},
		})
	}

	return sortAndTruncate(results, k)
}

// SearchDocuments runs the hybrid search over the document level.
func (s *MultiTierStore) SearchDocuments(queryVector []float32, queryText string, k int) []SearchResult {
	return s.searchLevel(LevelDocument, queryVector, queryText, k, nil)
}

// SearchChapters runs the hybrid search over the chapter level, optionally
// restricted to the given document ids.
func (s *MultiTierStore) SearchChapters(queryVector []float32, queryText string, k int, docIDs []string) []SearchResult {
	return s.searchLevel(LevelChapter, queryVector, queryText, k, membershipFilter(docIDs, nil, nil))
}

// SearchSections runs the hybrid search over the section level, optionally
// restricted to ancestor documents and chapters.
func (s *MultiTierStore) SearchSections(queryVector []float32, queryText string, k int, docIDs, chapterNos []string) []SearchResult {
	return s.searchLevel(LevelSection, queryVector, queryText, k, membershipFilter(docIDs, chapterNos, nil))
}

// SearchSubsections runs the hybrid search over the subsection level,
// optionally restricted to ancestor documents, chapters and sections.
func (s *MultiTierStore) SearchSubsections(queryVector []float32, queryText string, k int, docIDs, chapterNos, sectionNos []string) []SearchResult {
	return s.searchLevel(LevelSubsection, queryVector, queryText, k, membershipFilter(docIDs, chapterNos, sectionNos))
}

// membershipFilter builds an ancestor-membership predicate. Nil or empty
// slices impose no constraint on their field.
func membershipFilter(docIDs, chapterNos, sectionNos []string) func(*IndexEntry) bool {
	if len(docIDs) == 0 && len(chapterNos) == 0 && len(sectionNos) == 0 {
		return nil
	}
	docSet := toSet(docIDs)
	chapterSet := toSet(chapterNos)
	sectionSet := toSet(sectionNos)
	return func(e *IndexEntry) bool {
		if docSet != nil && !docSet[e.DocID] {
			return false
		}
		if chapterSet != nil && !chapterSet[e.ChapterNo] {
			return false
		}
		if sectionSet != nil && !sectionSet[e.SectionNo] {
			return false
		}
		return true
	}
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// SearchTierBlocks runs the hybrid search over one specialized tier with
// priority boosting and no filter.
func (s *MultiTierStore) SearchTierBlocks(tier Tier, queryVector []float32, queryText string, k int) []SearchResult {
	return s.SearchTierBlocksFiltered(tier, queryVector, queryText, k, nil)
}

// SearchTierBlocksFiltered runs the hybrid search over one specialized tier
// applying the categorical filter after fusion and boosting, before
// truncation.
func (s *MultiTierStore) SearchTierBlocksFiltered(tier Tier, queryVector []float32, queryText string, k int, filter func(*TierBlockEntry) bool) []SearchResult {
	ix, ok := s.tiers[tier]
	if !ok {
		return nil
	}
	entries := s.tierEntries[tier]

	var results []SearchResult
	for _, cand := range ix.Search(queryVector, queryText, k) {
		entry := &entries[cand.ID]
		if filter != nil && !filter(entry) {
			continue
		}
		combined := FuseScores(cand.VectorScore, cand.KeywordScore)
		results = append(results, SearchResult{
			Level:   string(tier),
			DocID:   entry.DocID,
			BlockID: entry.BlockID,
			Title:   entry.Title,
			Text:    entry.Text,
			Score:   PriorityBoost(combined, entry.Priority),
			Metadata: map[string]any{
				"entry_id":      entry.ID,
				"page":          entry.Page,
				"priority":      entry.Priority,
				"payload":       entry.Payload,
				"vector_score":  cand.VectorScore,
				"keyword_score": cand.KeywordScore,
			},
		})
	}

	return sortAndTruncate(results, k)
}

// LookupSectionByNumber linearly scans the section level for exact
// section-number equality, optionally constrained to one document. Matches
// score exactly 1.0 and carry exact metadata.
func (s *MultiTierStore) LookupSectionByNumber(sectionNo, docID string) []SearchResult {
	var results []SearchResult
	for i := range s.levelEntries[LevelSection] {
		entry := &s.levelEntries[LevelSection][i]
		if entry.SectionNo != sectionNo {
			continue
		}
		if docID != "" && entry.DocID != docID {
			continue
		}
		results = append(results, exactResult(LevelSection, entry))
	}
	return results
}

// LookupSubsectionsBySection linearly scans the subsection level for exact
// parent-section equality, optionally constrained to one document.
func (s *MultiTierStore) LookupSubsectionsBySection(sectionNo, docID string) []SearchResult {
	var results []SearchResult
	for i := range s.levelEntries[LevelSubsection] {
		entry := &s.levelEntries[LevelSubsection][i]
		if entry.SectionNo != sectionNo {
			continue
		}
		if docID != "" && entry.DocID != docID {
			continue
		}
		results = append(results, exactResult(LevelSubsection, entry))
	}
	return results
}

func exactResult(level Level, entry *IndexEntry) SearchResult {
	return SearchResult{
		Level:        string(level),
		DocID:        entry.DocID,
		ChapterNo:    entry.ChapterNo,
		SectionNo:    entry.SectionNo,
		SubsectionNo: entry.SubsectionNo,
		Text:         entry.Text,
		Score:        1.0,
		Metadata: map[string]any{
			"entry_id": entry.ID,
			"page":     entry.Page,
			"type":     entry.Type,
			"exact":    true,
		},
	}
}

// Stats returns per-level and per-tier entry counts.
func (s *MultiTierStore) Stats() Stats {
	stats := Stats{
		EmbeddingDim: s.dim,
		LevelCounts:  make(map[Level]int, len(Levels)),
		TierCounts:   make(map[Tier]int, len(Tiers)),
	}
	for _, level := range Levels {
		stats.LevelCounts[level] = s.levels[level].Len()
	}
	for _, tier := range Tiers {
		stats.TierCounts[tier] = s.tiers[tier].Len()
	}
	return stats
}

// sortAndTruncate orders results by score descending with entry id as the
// deterministic tie-break, then truncates to k. Fewer than k survivors is
// normal when a filter removed candidates.
func sortAndTruncate(results []SearchResult, k int) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return entryID(results[i]) < entryID(results[j])
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

func entryID(r SearchResult) int {
	if id, ok := r.Metadata["entry_id"].(int); ok {
		return id
	}
	return 0
}
