package model

// UnitKind classifies one answer unit by how its text relates to the
// retrieved sources.
type UnitKind string

const (
	// UnitVerbatim marks a unit whose quote is traceable to an exact span
	// in a source chunk.
	UnitVerbatim UnitKind = "verbatim"
	// UnitDerived marks a unit paraphrased or synthesized from sources.
	UnitDerived UnitKind = "derived"
)

// SourceSpan is an exact character range inside a source document. Offsets
// are byte offsets into the chunk text, end-exclusive.
type SourceSpan struct {
	DocID     string `json:"doc_id"`
	SectionID string `json:"section_id"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	Quote     string `json:"quote"`
}

// AnswerUnit is one sentence-level unit of a generated answer, carrying
// its attribution state.
type AnswerUnit struct {
	ID                int          `json:"id"`
	Text              string       `json:"text"`
	Kind              UnitKind     `json:"kind"`
	Quote             string       `json:"quote,omitempty"`
	SupportingSources []string     `json:"supporting_sources,omitempty"`
	SourceSpans       []SourceSpan `json:"source_spans,omitempty"`
}

// IsClickable reports whether a UI may render this unit as a link into the
// source text. Only verbatim units with at least one resolved span qualify.
func (u AnswerUnit) IsClickable() bool {
	return u.Kind == UnitVerbatim && len(u.SourceSpans) > 0
}

// ChunkWithOffsets is a retrieved source chunk positioned inside its parent
// document, the unit of span resolution.
type ChunkWithOffsets struct {
	DocID     string `json:"doc_id"`
	SectionID string `json:"section_id"`
	Text      string `json:"text"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// StructuredCitation is one deduplicated citation in an assembled context.
type StructuredCitation struct {
	SourceType string  `json:"source_type"`
	SourceID   string  `json:"source_id"`
	Display    string  `json:"display"`
	Snippet    string  `json:"snippet,omitempty"`
	Score      float64 `json:"score"`
}

// AssembledContext is the budgeted, ordered context handed to the answer
// generator, plus everything the caller needs to attribute the answer.
type AssembledContext struct {
	ContextText string               `json:"context_text"`
	Citations   []StructuredCitation `json:"citations"`
	Chunks      []ChunkWithOffsets   `json:"chunks"`
	TokenCount  int                  `json:"token_count"`
}

// QueryResult is the full response to a legal question.
type QueryResult struct {
	Answer    string               `json:"answer"`
	Units     []AnswerUnit         `json:"units"`
	Citations []StructuredCitation `json:"citations"`
	FromCache bool                 `json:"from_cache"`
	ElapsedMs int64                `json:"elapsed_ms"`
}
