package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec4(x, y, z, w float32) []float32 {
	return []float32{x, y, z, w}
}

// buildTestStore assembles a small two-statute corpus with all four tiers
// populated.
func buildTestStore(t *testing.T) *MultiTierStore {
	t.Helper()
	s := NewMultiTierStore(4)

	levelEntries := []struct {
		level Level
		vec   []float32
		entry IndexEntry
	}{
		{LevelDocument, vec4(1, 0, 0, 0), IndexEntry{DocID: "bns", Text: "Bharatiya Nyaya Sanhita penal offences"}},
		{LevelDocument, vec4(0, 1, 0, 0), IndexEntry{DocID: "bnss", Text: "Bharatiya Nagarik Suraksha Sanhita procedure"}},
		{LevelChapter, vec4(1, 0, 0, 0), IndexEntry{DocID: "bns", ChapterNo: "5", Text: "Offences against woman and child"}},
		{LevelChapter, vec4(0, 1, 0, 0), IndexEntry{DocID: "bnss", ChapterNo: "13", Text: "Investigation of cognizable offences"}},
		{LevelSection, vec4(1, 0, 0, 0), IndexEntry{DocID: "bns", ChapterNo: "5", SectionNo: "64", Text: "Punishment for rape rigorous imprisonment"}},
		{LevelSection, vec4(0.9, 0.1, 0, 0), IndexEntry{DocID: "bns", ChapterNo: "5", SectionNo: "65", Text: "Punishment for rape in certain aggravated cases"}},
		{LevelSection, vec4(0, 1, 0, 0), IndexEntry{DocID: "bnss", ChapterNo: "13", SectionNo: "173", Text: "Information in cognizable cases"}},
		{LevelSubsection, vec4(1, 0, 0, 0), IndexEntry{DocID: "bns", ChapterNo: "5", SectionNo: "64", SubsectionNo: "1", Text: "Whoever commits rape shall be punished"}},
		{LevelSubsection, vec4(0, 1, 0, 0), IndexEntry{DocID: "bnss", ChapterNo: "13", SectionNo: "173", SubsectionNo: "2", Text: "Zero FIR may be registered at any police station"}},
	}
	for _, le := range levelEntries {
		_, err := s.AddEntry(le.level, le.vec, le.entry)
		require.NoError(t, err)
	}

	tierEntries := []struct {
		tier  Tier
		vec   []float32
		entry TierBlockEntry
	}{
		{TierProcedure, vec4(0, 0, 1, 0), TierBlockEntry{
			DocID: "sop", BlockID: "PROC-1", Title: "Filing the FIR",
			Text: "File the FIR at the nearest police station without delay", Priority: 5,
			Payload: ProcedurePayload{Stage: "reporting", TimeLimit: "immediately"},
		}},
		{TierProcedure, vec4(0, 0, 0.9, 0.1), TierBlockEntry{
			DocID: "sop", BlockID: "PROC-2", Title: "Medical examination",
			Text: "Medical examination of the victim within twenty four hours", Priority: 1,
			Payload: ProcedurePayload{Stage: "medical"},
		}},
		{TierGuidance, vec4(0, 0, 0, 1), TierBlockEntry{
			DocID: "sop", BlockID: "GUID-1", Title: "Reporting a crime",
			Text: "Any person may report a crime to the police", Priority: 2,
			Payload: GuidancePayload{SOPGroup: "reporting"},
		}},
		{TierEvidence, vec4(0, 0, 1, 1), TierBlockEntry{
			DocID: "sop", BlockID: "EVID-1", Title: "Forensic evidence",
			Text: "Collect forensic samples before they degrade", Priority: 3,
			Payload: EvidencePayload{EvidenceTypes: []string{"forensic"}},
		}},
		{TierCompensation, vec4(1, 0, 0, 1), TierBlockEntry{
			DocID: "sop", BlockID: "COMP-1", Title: "Victim compensation",
			Text: "Interim compensation does not require conviction", Priority: 4,
			Payload: CompensationPayload{Authority: "DLSA"},
		}},
	}
	for _, te := range tierEntries {
		_, err := s.AddTierBlock(te.tier, te.vec, te.entry)
		require.NoError(t, err)
	}

	s.BuildKeywordIndexes()
	return s
}

func TestFuseScores(t *testing.T) {
	tests := []struct {
		name         string
		vectorScore  float64
		keywordScore float64
		want         float64
	}{
		{"both signals", 0.5, 5.0, 0.4*0.5 + 0.6*0.5},
		{"keyword capped at ceiling", 0.5, 25.0, 0.4*0.5 + 0.6*1.0},
		{"vector only", 0.8, 0, 0.8},
		{"keyword only passes through raw", 0, 7.5, 7.5},
		{"no signal", 0, 0, 0},
		{"negative cosine clamps to zero in the blend", -1.0, 1.386, 0.6 * 0.1386},
		{"negative cosine stays bounded at the ceiling", -0.2, 25.0, 0.6 * 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FuseScores(tt.vectorScore, tt.keywordScore), 1e-9)
		})
	}
}

func TestPriorityBoost(t *testing.T) {
	assert.InDelta(t, 0.75, PriorityBoost(0.5, 5), 1e-9)
	assert.InDelta(t, 0.5, PriorityBoost(0.5, 0), 1e-9)

	// Higher priority never ranks lower at equal combined score.
	assert.Greater(t, PriorityBoost(0.5, 9), PriorityBoost(0.5, 2))
}

func TestBM25Ranking(t *testing.T) {
	ix := buildBM25([]string{
		"rape punishment imprisonment",
		"punishment for theft",
		"fir police station fir",
		"unrelated text about contracts",
	})

	hits := ix.topK([]string{"fir"}, 10)
	require.Len(t, hits, 1)
	assert.Equal(t, 2, hits[0].doc)
	assert.Greater(t, hits[0].score, 0.0)

	hits = ix.topK([]string{"punishment"}, 10)
	require.Len(t, hits, 2)

	assert.Nil(t, ix.topK(nil, 10))
	assert.Nil(t, ix.topK([]string{"fir"}, 0))
}

func TestLevelIndexDimensionMismatch(t *testing.T) {
	ix := NewLevelIndex(4)
	_, err := ix.Add([]float32{1, 0}, "short vector")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestLevelIndexSearchQueryDimensionMismatch(t *testing.T) {
	ix := NewLevelIndex(2)
	_, err := ix.Add([]float32{1, 0}, "alpha clause")
	require.NoError(t, err)
	ix.BuildKeywordIndex()

	// A mismatched query vector skips the vector leg; the keyword leg
	// still answers.
	candidates := ix.Search([]float32{1, 0, 0}, "alpha", 5)
	require.Len(t, candidates, 1)
	assert.Zero(t, candidates[0].VectorScore)
	assert.Greater(t, candidates[0].KeywordScore, 0.0)

	assert.Empty(t, ix.Search([]float32{1, 0, 0}, "", 5))
}

func TestLevelIndexSearchUnionIncludesKeywordOnlyHits(t *testing.T) {
	ix := NewLevelIndex(2)
	vectors := [][]float32{{1, 0}, {0.9, 0.436}, {0.8, 0.6}, {0, 1}}
	texts := []string{"alpha clause", "beta clause", "gamma clause", "zebra clause"}
	for i := range vectors {
		_, err := ix.Add(vectors[i], texts[i])
		require.NoError(t, err)
	}
	ix.BuildKeywordIndex()

	// k=1 overfetches 3 vector hits, so the orthogonal "zebra" entry is
	// outside the vector leg and must arrive through the keyword leg.
	candidates := ix.Search([]float32{1, 0}, "zebra", 1)

	var zebra *Candidate
	for i := range candidates {
		if candidates[i].ID == 3 {
			zebra = &candidates[i]
		}
	}
	require.NotNil(t, zebra, "keyword-only hit missing from candidate union")
	assert.Zero(t, zebra.VectorScore)
	assert.Greater(t, zebra.KeywordScore, 0.0)
}

func TestSearchDocuments(t *testing.T) {
	s := buildTestStore(t)

	results := s.SearchDocuments(vec4(1, 0, 0, 0), "", 2)
	require.NotEmpty(t, results)
	assert.Equal(t, "bns", results[0].DocID)
	assert.Equal(t, string(LevelDocument), results[0].Level)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearchChaptersDocFilter(t *testing.T) {
	s := buildTestStore(t)

	// The bns chapter scores higher for this query vector, but the filter
	// runs before truncation, so the bnss chapter still surfaces at k=1.
	results := s.SearchChapters(vec4(1, 0, 0, 0), "", 1, []string{"bnss"})
	require.Len(t, results, 1)
	assert.Equal(t, "bnss", results[0].DocID)
	assert.Equal(t, "13", results[0].ChapterNo)
}

func TestSearchSubsectionsAncestorFilter(t *testing.T) {
	s := buildTestStore(t)

	results := s.SearchSubsections(vec4(1, 1, 0, 0), "", 10, []string{"bnss"}, []string{"13"}, []string{"173"})
	require.Len(t, results, 1)
	assert.Equal(t, "2", results[0].SubsectionNo)

	// A section constraint with no matching subsection yields nothing.
	results = s.SearchSubsections(vec4(1, 1, 0, 0), "", 10, nil, nil, []string{"999"})
	assert.Empty(t, results)
}

func TestSearchTierBlocksPriorityBoost(t *testing.T) {
	s := buildTestStore(t)

	results := s.SearchTierBlocks(TierProcedure, vec4(0, 0, 1, 0), "", 2)
	require.Len(t, results, 2)
	assert.Equal(t, "PROC-1", results[0].BlockID)
	assert.Equal(t, "PROC-2", results[1].BlockID)

	// Boosting can push the score above 1.0; only ordering is meaningful.
	assert.Greater(t, results[0].Score, 1.0)
}

func TestSearchTierBlocksFiltered(t *testing.T) {
	s := buildTestStore(t)

	results := s.SearchTierBlocksFiltered(TierProcedure, vec4(0, 0, 1, 0), "", 5, func(e *TierBlockEntry) bool {
		p, ok := e.Payload.(ProcedurePayload)
		return ok && p.Stage == "medical"
	})
	require.Len(t, results, 1)
	assert.Equal(t, "PROC-2", results[0].BlockID)
}

func TestLookupSectionByNumber(t *testing.T) {
	s := buildTestStore(t)

	results := s.LookupSectionByNumber("64", "")
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, true, results[0].Metadata["exact"])

	assert.Len(t, s.LookupSectionByNumber("64", "bns"), 1)
	assert.Empty(t, s.LookupSectionByNumber("64", "bnss"))
	assert.Empty(t, s.LookupSectionByNumber("9999", ""))
}

func TestLookupSubsectionsBySection(t *testing.T) {
	s := buildTestStore(t)

	results := s.LookupSubsectionsBySection("173", "bnss")
	require.Len(t, results, 1)
	assert.Equal(t, "2", results[0].SubsectionNo)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestAddEntryUnknownLevel(t *testing.T) {
	s := NewMultiTierStore(4)
	_, err := s.AddEntry(Level("paragraph"), vec4(1, 0, 0, 0), IndexEntry{})
	require.Error(t, err)
}

func TestAddTierBlockValidation(t *testing.T) {
	s := NewMultiTierStore(4)

	tests := []struct {
		name  string
		tier  Tier
		entry TierBlockEntry
	}{
		{"nil payload", TierProcedure, TierBlockEntry{BlockID: "P-1", Priority: 1}},
		{"payload tier mismatch", TierProcedure, TierBlockEntry{BlockID: "P-2", Priority: 1, Payload: GuidancePayload{}}},
		{"priority below minimum", TierProcedure, TierBlockEntry{BlockID: "P-3", Priority: 0, Payload: ProcedurePayload{Stage: "reporting"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddTierBlock(tt.tier, vec4(0, 0, 1, 0), tt.entry)
			require.Error(t, err)
		})
	}
}

func TestStats(t *testing.T) {
	s := buildTestStore(t)

	stats := s.Stats()
	assert.Equal(t, 4, stats.EmbeddingDim)
	assert.Equal(t, 2, stats.LevelCounts[LevelDocument])
	assert.Equal(t, 3, stats.LevelCounts[LevelSection])
	assert.Equal(t, 2, stats.TierCounts[TierProcedure])
	assert.Equal(t, 1, stats.TierCounts[TierCompensation])
}

func TestTierBlockEntryUnknownTierJSON(t *testing.T) {
	var entry TierBlockEntry
	err := entry.UnmarshalJSON([]byte(`{"block_id":"X-1","payload":{"tier":"mystery","data":{}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tier")
}
