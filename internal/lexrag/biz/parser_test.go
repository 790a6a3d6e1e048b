package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/lexrag/internal/model"
)

func TestParseAnswerUnits(t *testing.T) {
	raw := `[
		{"id": 0, "text": "Whoever commits rape shall be punished.", "kind": "verbatim", "quote": "shall be punished", "supporting_sources": ["BNS:64"]},
		{"id": 1, "text": "This means a minimum of ten years.", "kind": "derived"}
	]`

	units, err := ParseAnswerUnits(raw)
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, model.UnitVerbatim, units[0].Kind)
	assert.Equal(t, "shall be punished", units[0].Quote)
	assert.Equal(t, []string{"BNS:64"}, units[0].SupportingSources)

	assert.Equal(t, model.UnitDerived, units[1].Kind)
	assert.Empty(t, units[1].Quote)
}

func TestParseAnswerUnitsStripsFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"fenced with language tag", "```json\n[{\"text\": \"a\", \"kind\": \"derived\"}]\n```"},
		{"fenced without tag", "```\n[{\"text\": \"a\", \"kind\": \"derived\"}]\n```"},
		{"prose around the array", "Here is the answer:\n[{\"text\": \"a\", \"kind\": \"derived\"}]\nHope this helps."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, err := ParseAnswerUnits(tt.raw)
			require.NoError(t, err)
			require.Len(t, units, 1)
			assert.Equal(t, "a", units[0].Text)
		})
	}
}

func TestParseAnswerUnitsErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no array", "I cannot answer that."},
		{"malformed JSON", `[{"text": "a", "kind": }]`},
		{"empty input", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnswerUnits(tt.raw)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
		})
	}
}

func TestParseAnswerUnitsKindTolerance(t *testing.T) {
	raw := `[
		{"text": "a", "kind": "VERBATIM", "quote": "a"},
		{"text": "b", "kind": "Derived"},
		{"text": "c", "kind": "citation"},
		{"text": "d"}
	]`

	units, err := ParseAnswerUnits(raw)
	require.NoError(t, err)
	require.Len(t, units, 4)

	assert.Equal(t, model.UnitVerbatim, units[0].Kind)
	assert.Equal(t, model.UnitDerived, units[1].Kind)
	assert.Equal(t, model.UnitDerived, units[2].Kind)
	assert.Equal(t, model.UnitDerived, units[3].Kind)
}

func TestParseAnswerUnitsSkipsEmptyTextAndReassignsIDs(t *testing.T) {
	raw := `[
		{"id": 7, "text": "first", "kind": "derived"},
		{"id": 8, "text": "   ", "kind": "derived"},
		{"id": 9, "text": "second", "kind": "derived"}
	]`

	units, err := ParseAnswerUnits(raw)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, 0, units[0].ID)
	assert.Equal(t, "first", units[0].Text)
	assert.Equal(t, 2, units[1].ID)
	assert.Equal(t, "second", units[1].Text)
}

func TestParseAnswerUnitsQuoteClearedForDerived(t *testing.T) {
	raw := `[{"text": "a", "kind": "derived", "quote": "should not survive"}]`

	units, err := ParseAnswerUnits(raw)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Empty(t, units[0].Quote)
}

func TestParseErrorMessage(t *testing.T) {
	err := error(&ParseError{Reason: "no JSON array in response"})
	assert.Contains(t, err.Error(), "no JSON array")
}
