package biz

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kart-io/lexrag/internal/model"
)

// ParseError reports an answer whose unit list could not be extracted.
// Callers treat it the same as zero units; it is never fatal.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "failed to parse answer units: " + e.Reason
}

type rawUnit struct {
	ID                int      `json:"id"`
	Text              string   `json:"text"`
	Kind              string   `json:"kind"`
	Quote             string   `json:"quote"`
	SupportingSources []string `json:"supporting_sources"`
}

// ParseAnswerUnits extracts answer units from raw model output. Parsing is
// tolerant: markdown fences are stripped and the first JSON array found in
// the text is used. Unknown kinds parse as derived; a missing array or
// malformed JSON returns a ParseError.
func ParseAnswerUnits(raw string) ([]model.AnswerUnit, error) {
	payload := stripFences(raw)

	start := strings.Index(payload, "[")
	end := strings.LastIndex(payload, "]")
	if start < 0 || end <= start {
		return nil, &ParseError{Reason: "no JSON array in response"}
	}

	var rawUnits []rawUnit
	if err := json.Unmarshal([]byte(payload[start:end+1]), &rawUnits); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	units := make([]model.AnswerUnit, 0, len(rawUnits))
	for i, ru := range rawUnits {
		if strings.TrimSpace(ru.Text) == "" {
			continue
		}
		kind := model.UnitDerived
		if strings.EqualFold(strings.TrimSpace(ru.Kind), string(model.UnitVerbatim)) {
			kind = model.UnitVerbatim
		}
		unit := model.AnswerUnit{
			ID:                i,
			Text:              strings.TrimSpace(ru.Text),
			Kind:              kind,
			SupportingSources: ru.SupportingSources,
		}
		if kind == model.UnitVerbatim {
			unit.Quote = ru.Quote
		}
		units = append(units, unit)
	}
	return units, nil
}

// stripFences removes markdown code fences around the payload, with or
// without a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		first := strings.TrimSpace(s[:idx])
		if first == "" || !strings.ContainsAny(first, "[{") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
