package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRouting(t *testing.T) {
	router := NewRouter()

	tests := []struct {
		name        string
		query       string
		wantRouting TierRouting
		wantCase    CaseType
	}{
		{
			name:        "sexual offence procedure",
			query:       "How do I file an FIR for rape?",
			wantRouting: RouteSexualOffenceProcedure,
			wantCase:    CaseTypeSexualOffence,
		},
		{
			name:        "child victim refines case type",
			query:       "What is the procedure when a minor reports sexual assault?",
			wantRouting: RouteSexualOffenceProcedure,
			wantCase:    CaseTypeChildSexualOffence,
		},
		{
			name:        "general procedural query",
			query:       "How do I apply for bail?",
			wantRouting: RouteGeneralGuidance,
			wantCase:    CaseTypeGeneral,
		},
		{
			name:        "evidence-only query routes to no procedural tier",
			query:       "What evidence is needed to prove theft?",
			wantRouting: RouteNone,
			wantCase:    CaseTypeGeneral,
		},
		{
			name:        "compensation-only procedural query routes to no procedural tier",
			query:       "What is the procedure for claiming victim compensation?",
			wantRouting: RouteNone,
			wantCase:    CaseTypeGeneral,
		},
		{
			name:        "definitional query",
			query:       "Define theft under Section 303",
			wantRouting: RouteNone,
			wantCase:    CaseTypeGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := router.Classify(tt.query)
			assert.Equal(t, tt.wantRouting, intent.Routing)
			assert.Equal(t, tt.wantCase, intent.CaseType)
		})
	}
}

func TestRoutingMutualExclusivity(t *testing.T) {
	router := NewRouter()

	queries := []string{
		"How do I file an FIR for rape?",
		"How do I apply for bail?",
		"What evidence is needed to prove theft?",
		"procedure for trial of a sexual harassment case",
		"how to claim compensation and what proof do i need",
		"random unrelated question",
	}

	for _, q := range queries {
		intent := router.Classify(q)
		assert.False(t, intent.NeedsProcedure() && intent.NeedsGeneralSOP(),
			"both procedural tiers active for %q", q)
	}
}

func TestClassifyFlags(t *testing.T) {
	router := NewRouter()

	intent := router.Classify("What forensic evidence and compensation can a rape victim get?")
	assert.True(t, intent.NeedsEvidence)
	assert.True(t, intent.NeedsCompensation)
	assert.Equal(t, CaseTypeSexualOffence, intent.CaseType)
}

func TestHintsExtraction(t *testing.T) {
	router := NewRouter()

	tests := []struct {
		name        string
		query       string
		wantDocID   string
		wantSection string
	}{
		{"full document name", "What does Section 64 of the Bharatiya Nyaya Sanhita say?", "BNS", "64"},
		{"short code", "under bnss section 173", "BNSS", "173"},
		{"sec abbreviation with suffix", "punishment under Sec. 354A", "", "354A"},
		{"s abbreviation", "see s. 376 ipc", "IPC", "376"},
		{"pocso act", "reporting duty under the pocso act", "POCSO", ""},
		{"no hints", "what happens after an arrest", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := router.Classify(tt.query)
			assert.Equal(t, tt.wantDocID, intent.Hints.DocID)
			assert.Equal(t, tt.wantSection, intent.Hints.SectionNo)
		})
	}
}

func TestDetectedStagesSortedAndDeterministic(t *testing.T) {
	router := NewRouter()

	first := router.Classify("arrest after the fir and the medical examination")
	second := router.Classify("arrest after the fir and the medical examination")

	require.Equal(t, first, second)
	assert.Equal(t, []string{"arrest", "fir", "medical"}, first.DetectedStages)
}

func TestEnhancedQuery(t *testing.T) {
	router := NewRouter()

	intent := router.Classify("How do I apply for bail?")
	assert.Equal(t, "How do I apply for bail? bail", intent.EnhancedQuery("How do I apply for bail?"))

	noHints := router.Classify("random unrelated question")
	assert.Equal(t, "random unrelated question", noHints.EnhancedQuery("random unrelated question"))
}
