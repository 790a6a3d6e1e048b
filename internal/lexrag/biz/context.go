package biz

import (
	"fmt"
	"strings"

	"github.com/kart-io/lexrag/internal/model"
	"github.com/kart-io/lexrag/internal/pkg/legal/textutil"
	"github.com/kart-io/lexrag/internal/lexrag/store"
)

// snippetLen bounds the citation snippet shown to callers.
const snippetLen = 200

// contextCategory is one budgeted block group of the assembled context.
type contextCategory struct {
	key        string
	sourceType string
	results    []store.SearchResult
}

// assembleContext builds the context text, the citations and the chunk set
// from the retrieval results. Categories are emitted in fixed priority
// order, each stopping once its share of the token budget is spent.
func (r *HierarchicalRetriever) assembleContext(result *RetrievalResult) {
	categories := []contextCategory{
		{categoryProcedure, "procedure", result.TierResults[store.TierProcedure]},
		{categoryGuidance, "guidance", result.TierResults[store.TierGuidance]},
		{categoryEvidence, "evidence", result.TierResults[store.TierEvidence]},
		{categoryCompensation, "compensation", result.TierResults[store.TierCompensation]},
		{categorySections, "section", dedupSections(result.Sections)},
		{categorySubsections, "subsection", result.Subsections},
	}

	var sb strings.Builder
	seenCitations := make(map[string]bool)
	totalTokens := 0

	for _, cat := range categories {
		fraction := r.config.BudgetFractions[cat.key]
		if fraction <= 0 || len(cat.results) == 0 {
			continue
		}
		catBudget := int(fraction * float64(r.config.TokenBudget))
		catUsed := 0

		for _, hit := range cat.results {
			display, sourceID := citationFor(cat.sourceType, hit)
			block := fmt.Sprintf("[%s]\n%s\n\n", display, hit.Text)
			cost := textutil.EstimateTokens(block)
			if catUsed+cost > catBudget {
				break
			}
			catUsed += cost
			totalTokens += cost
			sb.WriteString(block)

			result.Chunks = append(result.Chunks, model.ChunkWithOffsets{
				DocID:     hit.DocID,
				SectionID: sourceID,
				Text:      hit.Text,
				StartChar: 0,
				EndChar:   len(hit.Text),
			})

			// Citations with no id are silently skipped.
			if sourceID == "" {
				continue
			}
			dedupKey := cat.sourceType + "|" + sourceID
			if seenCitations[dedupKey] {
				continue
			}
			seenCitations[dedupKey] = true
			result.Citations = append(result.Citations, display)
			result.StructuredCitations = append(result.StructuredCitations, model.StructuredCitation{
				SourceType: cat.sourceType,
				SourceID:   sourceID,
				Display:    display,
				Snippet:    textutil.TruncateString(hit.Text, snippetLen),
				Score:      hit.Score,
			})
		}
	}

	result.ContextText = strings.TrimRight(sb.String(), "\n")
	result.TokenCount = totalTokens
}

// dedupSections keeps the first (highest scored) result per
// (doc_id, section_no) pair.
func dedupSections(sections []store.SearchResult) []store.SearchResult {
	seen := make(map[string]bool, len(sections))
	var out []store.SearchResult
	for _, sec := range sections {
		key := sec.DocID + "|" + sec.SectionNo
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sec)
	}
	return out
}

// citationFor formats the display string and canonical source id of one hit.
func citationFor(sourceType string, hit store.SearchResult) (display, sourceID string) {
	switch sourceType {
	case "section":
		if hit.SectionNo == "" {
			return hit.DocID, ""
		}
		return fmt.Sprintf("%s Section %s", hit.DocID, hit.SectionNo),
			fmt.Sprintf("%s:%s", hit.DocID, hit.SectionNo)
	case "subsection":
		if hit.SectionNo == "" || hit.SubsectionNo == "" {
			return hit.DocID, ""
		}
		return fmt.Sprintf("%s Section %s(%s)", hit.DocID, hit.SectionNo, hit.SubsectionNo),
			fmt.Sprintf("%s:%s(%s)", hit.DocID, hit.SectionNo, hit.SubsectionNo)
	default:
		// Specialized tier blocks cite by block id.
		if hit.Title != "" && hit.BlockID != "" {
			return fmt.Sprintf("%s: %s", hit.BlockID, hit.Title), hit.BlockID
		}
		if hit.BlockID != "" {
			return hit.BlockID, hit.BlockID
		}
		return hit.Title, ""
	}
}
