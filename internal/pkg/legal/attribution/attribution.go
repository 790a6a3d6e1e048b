// Package attribution resolves claimed quotes in generated answer units to
// exact character spans inside retrieved source chunks. A unit keeps its
// verbatim kind only when a deterministic match proves the quote; everything
// else is downgraded to derived.
package attribution

import (
	"strings"
	"unicode/utf8"

	"github.com/kart-io/lexrag/internal/model"
	"github.com/kart-io/lexrag/internal/pkg/legal/textutil"
)

// fuzzyThreshold is the minimum similarity ratio FuzzyLocate accepts. Fuzzy
// matches are for UI highlighting only and never produce verbatim spans.
const fuzzyThreshold = 0.8

// Resolver performs span resolution over a fixed chunk set.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver { return &Resolver{} }

// ResolveSpan locates quote inside the chunks, trying each chunk in order
// with an exact substring match first and a whitespace-normalized match
// second. The returned span carries absolute document offsets and the exact
// original text at the match. Returns nil when no chunk contains the quote;
// no other strategy may create a span.
func (r *Resolver) ResolveSpan(quote string, chunks []model.ChunkWithOffsets) *model.SourceSpan {
	if quote == "" {
		return nil
	}

	for _, chunk := range chunks {
		if idx := strings.Index(chunk.Text, quote); idx >= 0 {
			return &model.SourceSpan{
				DocID:     chunk.DocID,
				SectionID: chunk.SectionID,
				StartChar: chunk.StartChar + idx,
				EndChar:   chunk.StartChar + idx + len(quote),
				Quote:     quote,
			}
		}
	}

	normQuote := textutil.NormalizeWhitespace(quote)
	if normQuote == "" {
		return nil
	}
	for _, chunk := range chunks {
		norm, offsets := textutil.NormalizeWhitespaceMapped(chunk.Text)
		if idx := strings.Index(norm, normQuote); idx >= 0 {
			return spanFromNormalized(chunk, offsets, idx, idx+len(normQuote))
		}
	}
	return nil
}

// ResolveAll attributes every unit against the chunk set. Verbatim units
// whose quote resolves get exactly one SourceSpan attached; verbatim units
// whose quote does not resolve are unconditionally rewritten to derived with
// quote and spans cleared. Derived units pass through untouched. The
// rewrite never raises: an unresolvable quote is expected input, not an
// error. Calling ResolveAll on its own output is a no-op.
func (r *Resolver) ResolveAll(units []model.AnswerUnit, chunks []model.ChunkWithOffsets) []model.AnswerUnit {
	out := make([]model.AnswerUnit, len(units))
	for i, unit := range units {
		unit.SupportingSources = CleanSupportingSources(unit.SupportingSources)
		if unit.Kind != model.UnitVerbatim {
			out[i] = unit
			continue
		}
		span := r.ResolveSpan(unit.Quote, chunks)
		if span == nil {
			unit.Kind = model.UnitDerived
			unit.Quote = ""
			unit.SourceSpans = nil
			out[i] = unit
			continue
		}
		unit.SourceSpans = []model.SourceSpan{*span}
		out[i] = unit
	}
	return out
}

// FuzzyLocate finds the best approximate occurrence of quote across the
// chunks by sliding a quote-sized window over each chunk's normalized text
// and scoring it with an LCS similarity ratio. Matches below the threshold
// are discarded. The result is advisory: callers may highlight it but must
// not treat it as attribution.
func (r *Resolver) FuzzyLocate(quote string, chunks []model.ChunkWithOffsets) *model.SourceSpan {
	normQuote := textutil.NormalizeWhitespace(quote)
	qLen := utf8.RuneCountInString(normQuote)
	if qLen == 0 {
		return nil
	}

	var best *model.SourceSpan
	bestRatio := 0.0
	for _, chunk := range chunks {
		norm, offsets := textutil.NormalizeWhitespaceMapped(chunk.Text)
		starts := runeStarts(norm)
		n := len(starts) - 1
		if n < qLen {
			continue
		}
		step := qLen / 10
		if step < 1 {
			step = 1
		}
		for pos := 0; pos+qLen <= n; pos += step {
			window := norm[starts[pos]:starts[pos+qLen]]
			ratio := textutil.SimilarityRatio(normQuote, window)
			if ratio >= fuzzyThreshold && ratio > bestRatio {
				bestRatio = ratio
				best = spanFromNormalized(chunk, offsets, starts[pos], starts[pos+qLen])
			}
		}
	}
	return best
}

// spanFromNormalized maps a match in normalized text back to absolute
// offsets in the chunk's original text. normStart and normEnd are byte
// offsets into the normalized string, end-exclusive.
func spanFromNormalized(chunk model.ChunkWithOffsets, offsets []int, normStart, normEnd int) *model.SourceSpan {
	origStart := offsets[normStart]
	lastOff := offsets[normEnd-1]
	_, size := utf8.DecodeRuneInString(chunk.Text[lastOff:])
	origEnd := lastOff + size
	return &model.SourceSpan{
		DocID:     chunk.DocID,
		SectionID: chunk.SectionID,
		StartChar: chunk.StartChar + origStart,
		EndChar:   chunk.StartChar + origEnd,
		Quote:     chunk.Text[origStart:origEnd],
	}
}

// runeStarts returns the byte offset of every rune in s plus a final entry
// equal to len(s), so starts[i]:starts[j] slices runes i..j-1.
func runeStarts(s string) []int {
	starts := make([]int, 0, len(s)+1)
	for i := range s {
		starts = append(starts, i)
	}
	return append(starts, len(s))
}
