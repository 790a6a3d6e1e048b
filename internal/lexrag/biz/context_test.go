package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/lexrag/internal/lexrag/store"
)

func newTestRetriever(config *RetrievalConfig) *HierarchicalRetriever {
	if config == nil {
		config = DefaultRetrievalConfig()
	}
	return &HierarchicalRetriever{config: config}
}

func TestAssembleContextCategoryOrder(t *testing.T) {
	r := newTestRetriever(nil)
	result := &RetrievalResult{
		TierResults: map[store.Tier][]store.SearchResult{
			store.TierProcedure: {{
				Level: string(store.TierProcedure), BlockID: "PROC-1",
				Title: "Filing the FIR", Text: "File the FIR first.", Score: 1.1,
			}},
		},
		Sections: []store.SearchResult{
			{Level: string(store.LevelSection), DocID: "BNS", SectionNo: "64", Text: "Punishment for rape.", Score: 0.8},
		},
	}

	r.assembleContext(result)

	procIdx := strings.Index(result.ContextText, "[PROC-1: Filing the FIR]")
	secIdx := strings.Index(result.ContextText, "[BNS Section 64]")
	require.GreaterOrEqual(t, procIdx, 0)
	require.GreaterOrEqual(t, secIdx, 0)
	assert.Less(t, procIdx, secIdx, "procedure blocks come before statutory sections")

	// No trailing blank lines survive.
	assert.False(t, strings.HasSuffix(result.ContextText, "\n"))
	assert.Equal(t, []string{"PROC-1: Filing the FIR", "BNS Section 64"}, result.Citations)
	assert.Positive(t, result.TokenCount)
}

func TestAssembleContextBudgetTruncation(t *testing.T) {
	config := DefaultRetrievalConfig()
	config.TokenBudget = 100

	long := strings.Repeat("the accused shall be produced before the magistrate ", 10)
	r := newTestRetriever(config)
	result := &RetrievalResult{
		Sections: []store.SearchResult{
			{Level: string(store.LevelSection), DocID: "BNS", SectionNo: "64", Text: long, Score: 0.9},
			{Level: string(store.LevelSection), DocID: "BNS", SectionNo: "65", Text: long, Score: 0.8},
		},
	}

	r.assembleContext(result)

	// The sections category gets 25% of 100 tokens; the first block alone
	// exceeds that, so nothing is admitted.
	assert.Empty(t, result.ContextText)
	assert.Empty(t, result.Citations)
	assert.Zero(t, result.TokenCount)

	// With room for exactly one block the second is cut.
	config.TokenBudget = 600
	result = &RetrievalResult{
		Sections: []store.SearchResult{
			{Level: string(store.LevelSection), DocID: "BNS", SectionNo: "64", Text: long, Score: 0.9},
			{Level: string(store.LevelSection), DocID: "BNS", SectionNo: "65", Text: long, Score: 0.8},
		},
	}
	r.assembleContext(result)
	assert.Equal(t, []string{"BNS Section 64"}, result.Citations)
}

func TestAssembleContextDedup(t *testing.T) {
	r := newTestRetriever(nil)
	result := &RetrievalResult{
		Sections: []store.SearchResult{
			{Level: string(store.LevelSection), DocID: "BNS", SectionNo: "64", Text: "higher scored variant", Score: 0.9},
			{Level: string(store.LevelSection), DocID: "BNS", SectionNo: "64", Text: "lower scored duplicate", Score: 0.5},
			{Level: string(store.LevelSection), DocID: "BNSS", SectionNo: "64", Text: "same number, different code", Score: 0.4},
		},
	}

	r.assembleContext(result)

	// Duplicate (doc, section) pairs collapse to the first hit; the same
	// section number under another code is a distinct source.
	assert.Equal(t, []string{"BNS Section 64", "BNSS Section 64"}, result.Citations)
	assert.NotContains(t, result.ContextText, "lower scored duplicate")
	require.Len(t, result.StructuredCitations, 2)
	assert.Equal(t, "BNS:64", result.StructuredCitations[0].SourceID)
	assert.Equal(t, "higher scored variant", result.StructuredCitations[0].Snippet)
}

func TestAssembleContextSkipsEmptySourceID(t *testing.T) {
	r := newTestRetriever(nil)
	result := &RetrievalResult{
		TierResults: map[store.Tier][]store.SearchResult{
			store.TierGuidance: {{
				Level: string(store.TierGuidance), Title: "Untracked note", Text: "informal guidance", Score: 0.6,
			}},
		},
	}

	r.assembleContext(result)

	// The text still enters the context but produces no citation.
	assert.Contains(t, result.ContextText, "informal guidance")
	assert.Empty(t, result.Citations)
	assert.Empty(t, result.StructuredCitations)
	require.Len(t, result.Chunks, 1)
}

func TestAssembleContextSnippetTruncated(t *testing.T) {
	r := newTestRetriever(nil)
	long := strings.Repeat("x", 500)
	result := &RetrievalResult{
		Sections: []store.SearchResult{
			{Level: string(store.LevelSection), DocID: "BNS", SectionNo: "64", Text: long, Score: 0.9},
		},
	}

	r.assembleContext(result)

	require.Len(t, result.StructuredCitations, 1)
	assert.Len(t, result.StructuredCitations[0].Snippet, snippetLen)
}

func TestCitationFor(t *testing.T) {
	tests := []struct {
		name        string
		sourceType  string
		hit         store.SearchResult
		wantDisplay string
		wantID      string
	}{
		{
			name:        "section",
			sourceType:  "section",
			hit:         store.SearchResult{DocID: "BNS", SectionNo: "64"},
			wantDisplay: "BNS Section 64",
			wantID:      "BNS:64",
		},
		{
			name:        "section without number",
			sourceType:  "section",
			hit:         store.SearchResult{DocID: "BNS"},
			wantDisplay: "BNS",
			wantID:      "",
		},
		{
			name:        "subsection",
			sourceType:  "subsection",
			hit:         store.SearchResult{DocID: "BNSS", SectionNo: "173", SubsectionNo: "2"},
			wantDisplay: "BNSS Section 173(2)",
			wantID:      "BNSS:173(2)",
		},
		{
			name:        "tier block with title",
			sourceType:  "procedure",
			hit:         store.SearchResult{BlockID: "PROC-1", Title: "Filing the FIR"},
			wantDisplay: "PROC-1: Filing the FIR",
			wantID:      "PROC-1",
		},
		{
			name:        "tier block without title",
			sourceType:  "evidence",
			hit:         store.SearchResult{BlockID: "EVID-3"},
			wantDisplay: "EVID-3",
			wantID:      "EVID-3",
		},
		{
			name:        "tier block without id",
			sourceType:  "guidance",
			hit:         store.SearchResult{Title: "Untracked note"},
			wantDisplay: "Untracked note",
			wantID:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display, id := citationFor(tt.sourceType, tt.hit)
			assert.Equal(t, tt.wantDisplay, display)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
