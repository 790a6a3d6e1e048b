package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/lexrag/internal/lexrag/metrics"
	"github.com/kart-io/lexrag/internal/lexrag/store"
	"github.com/kart-io/lexrag/internal/model"
)

const rapeSectionText = "Whoever commits rape shall be punished with rigorous imprisonment of either description for a term which shall not be less than ten years."

func newTestService(searcher *mockSearcher, chat *mockChat) (*LegalService, *metrics.EngineMetrics) {
	m := metrics.New()
	embedder := &mockEmbedder{vector: []float32{1, 0, 0, 0}}
	svc := NewLegalService(searcher, embedder, chat, nil, m, nil)
	return svc, m
}

func TestAskEndToEnd(t *testing.T) {
	searcher := &mockSearcher{
		documents: []store.SearchResult{
			{Level: string(store.LevelDocument), DocID: "BNS", Text: "penal code", Score: 0.9},
		},
		sections: []store.SearchResult{
			{Level: string(store.LevelSection), DocID: "BNS", ChapterNo: "5", SectionNo: "64", Text: rapeSectionText, Score: 0.8},
		},
	}
	chat := &mockChat{response: `[
		{"text": "The law mandates a minimum of ten years.", "kind": "derived", "supporting_sources": ["BNS:64"]},
		{"text": "shall not be less than ten years", "kind": "verbatim", "quote": "shall not be less than ten years", "supporting_sources": ["BNS:64"]}
	]`}
	svc, m := newTestService(searcher, chat)

	result, err := svc.Ask(context.Background(), "punishment for rape")
	require.NoError(t, err)

	assert.False(t, result.FromCache)
	require.Len(t, result.Units, 2)

	assert.Equal(t, model.UnitDerived, result.Units[0].Kind)
	assert.False(t, result.Units[0].IsClickable())

	verbatim := result.Units[1]
	assert.Equal(t, model.UnitVerbatim, verbatim.Kind)
	require.True(t, verbatim.IsClickable())
	span := verbatim.SourceSpans[0]
	assert.Equal(t, "BNS", span.DocID)
	assert.Equal(t, "BNS:64", span.SectionID)
	assert.Equal(t, "shall not be less than ten years", span.Quote)
	assert.Equal(t, span.Quote, rapeSectionText[span.StartChar:span.EndChar])

	require.NotEmpty(t, result.Citations)
	assert.Equal(t, "BNS:64", result.Citations[len(result.Citations)-1].SourceID)

	stats := m.Stats()
	queries := stats["queries"].(map[string]interface{})
	assert.EqualValues(t, 1, queries["total"])
	assert.EqualValues(t, 0, queries["errors"])
	attr := stats["attribution"].(map[string]interface{})
	assert.EqualValues(t, 1, attr["units_verbatim"])
	assert.EqualValues(t, 1, attr["units_derived"])
	assert.EqualValues(t, 0, attr["downgrades"])
}

func TestAskNoRelevantLaw(t *testing.T) {
	searcher := &mockSearcher{}
	chat := &mockChat{response: "should never be called"}
	svc, m := newTestService(searcher, chat)

	result, err := svc.Ask(context.Background(), "something entirely unrelated")
	require.NoError(t, err)

	assert.Equal(t, NoRelevantLawAnswer, result.Answer)
	assert.Empty(t, result.Units)
	assert.Empty(t, chat.gotPrompt, "generator must not run on an empty retrieval")

	queries := m.Stats()["queries"].(map[string]interface{})
	assert.EqualValues(t, 1, queries["total"])
	assert.EqualValues(t, 1, queries["no_results"])
}

func TestAskGeneratorErrorRecorded(t *testing.T) {
	searcher := &mockSearcher{
		documents: []store.SearchResult{
			{Level: string(store.LevelDocument), DocID: "BNS", Text: "penal code", Score: 0.9},
		},
		sections: []store.SearchResult{
			{Level: string(store.LevelSection), DocID: "BNS", SectionNo: "64", Text: rapeSectionText, Score: 0.8},
		},
	}
	chat := &mockChat{err: assert.AnError}
	svc, m := newTestService(searcher, chat)

	_, err := svc.Ask(context.Background(), "punishment for rape")
	require.Error(t, err)

	stats := m.Stats()
	queries := stats["queries"].(map[string]interface{})
	assert.EqualValues(t, 1, queries["errors"])
	llmStats := stats["llm"].(map[string]interface{})
	assert.EqualValues(t, 1, llmStats["errors"])
}

func TestAttributeDowngradesUnverifiableVerbatim(t *testing.T) {
	svc, m := newTestService(&mockSearcher{}, &mockChat{})

	chunks := []model.ChunkWithOffsets{
		{DocID: "BNS", SectionID: "BNS:64", Text: rapeSectionText, StartChar: 0, EndChar: len(rapeSectionText)},
	}
	units := []model.AnswerUnit{
		{ID: 0, Text: "quoted", Kind: model.UnitVerbatim, Quote: "rigorous imprisonment"},
		{ID: 1, Text: "fabricated", Kind: model.UnitVerbatim, Quote: "imprisonment for life without parole"},
		{ID: 2, Text: "paraphrase", Kind: model.UnitDerived},
	}

	resolved := svc.Attribute(units, chunks)
	require.Len(t, resolved, 3)

	assert.Equal(t, model.UnitVerbatim, resolved[0].Kind)
	assert.True(t, resolved[0].IsClickable())

	// The fabricated quote loses its verbatim claim along with the quote.
	assert.Equal(t, model.UnitDerived, resolved[1].Kind)
	assert.Empty(t, resolved[1].Quote)
	assert.Empty(t, resolved[1].SourceSpans)

	assert.Equal(t, model.UnitDerived, resolved[2].Kind)

	attr := m.Stats()["attribution"].(map[string]interface{})
	assert.EqualValues(t, 3, attr["units_total"])
	assert.EqualValues(t, 1, attr["units_verbatim"])
	assert.EqualValues(t, 2, attr["units_derived"])
	assert.EqualValues(t, 1, attr["downgrades"])
}

func TestRetrieveRecordsExactLookup(t *testing.T) {
	searcher := &mockSearcher{
		lookupSections: []store.SearchResult{
			{Level: string(store.LevelSection), DocID: "BNS", SectionNo: "64", Text: rapeSectionText, Score: 1.0},
		},
	}
	svc, m := newTestService(searcher, &mockChat{})

	result, err := svc.Retrieve(context.Background(), "What does Section 64 of the BNS say?")
	require.NoError(t, err)
	assert.True(t, result.ExactLookup)

	retrieval := m.Stats()["retrieval"].(map[string]interface{})
	assert.EqualValues(t, 1, retrieval["total"])
	assert.EqualValues(t, 1, retrieval["exact_lookups"])
}

func TestGetStats(t *testing.T) {
	svc, _ := newTestService(&mockSearcher{}, &mockChat{})

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats["embedding_dim"])
	assert.Equal(t, "mock-embed", stats["embed_provider"])
	assert.Equal(t, "mock-chat", stats["chat_provider"])
	assert.Contains(t, stats, "metrics")
	// No cache was wired, so no cache block appears.
	assert.NotContains(t, stats, "cache")
}
