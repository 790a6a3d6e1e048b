// Package intent classifies raw legal queries into retrieval intents. The
// router is a pure function of the query text: no index access, no
// randomness, keyword and regex tables only.
package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kart-io/lexrag/internal/pkg/legal/textutil"
)

// CaseType is the coarse case classification of a procedural query.
type CaseType string

const (
	CaseTypeGeneral            CaseType = "general"
	CaseTypeSexualOffence      CaseType = "sexual_offence"
	CaseTypeChildSexualOffence CaseType = "child_sexual_offence"
)

// TierRouting is the closed set of procedural-corpus routes. Tier-1
// (sexual-offence procedure) and tier-3 (general citizen guidance) are
// mutually exclusive by construction: a query maps to exactly one route.
type TierRouting string

const (
	// RouteNone routes to no procedural tier.
	RouteNone TierRouting = "none"
	// RouteSexualOffenceProcedure routes to the tier-1 procedure corpus.
	RouteSexualOffenceProcedure TierRouting = "sexual_offence_procedure"
	// RouteGeneralGuidance routes to the tier-3 general-guidance corpus.
	RouteGeneralGuidance TierRouting = "general_guidance"
)

// Hints are explicit citations extracted from the query: a named document,
// a "section N" reference, and topic keywords appended to the query text
// before keyword search.
type Hints struct {
	DocID         string
	SectionNo     string
	TopicKeywords []string
}

// Intent is the routing decision for one query.
type Intent struct {
	IsProcedural      bool
	CaseType          CaseType
	DetectedStages    []string
	NeedsEvidence     bool
	NeedsCompensation bool
	Routing           TierRouting
	Hints             Hints
}

// NeedsProcedure reports whether the tier-1 procedure corpus is active.
func (i Intent) NeedsProcedure() bool { return i.Routing == RouteSexualOffenceProcedure }

// NeedsGeneralSOP reports whether the tier-3 guidance corpus is active.
func (i Intent) NeedsGeneralSOP() bool { return i.Routing == RouteGeneralGuidance }

// EnhancedQuery returns the query text with the topic keywords appended,
// used for the keyword leg of hybrid search.
func (i Intent) EnhancedQuery(query string) string {
	if len(i.Hints.TopicKeywords) == 0 {
		return query
	}
	return query + " " + strings.Join(i.Hints.TopicKeywords, " ")
}

var sectionPattern = regexp.MustCompile(`(?i)\b(?:section|sec\.?|s\.)\s*(\d+[A-Za-z]?)\b`)

// Router classifies queries against the package tables.
type Router struct{}

// NewRouter creates a Router.
func NewRouter() *Router { return &Router{} }

// Classify maps the raw query text to its Intent. Deterministic: equal
// inputs always produce equal outputs.
func (r *Router) Classify(query string) Intent {
	lower := strings.ToLower(query)

	stages := detectStages(lower)
	isSexual := containsAny(lower, sexualOffenceMarkers)
	isChild := containsAny(lower, childVictimMarkers)
	needsEvidence := containsAny(lower, evidenceMarkers)
	needsCompensation := containsAny(lower, compensationMarkers)

	isProcedural := len(stages) > 0 || containsAny(lower, proceduralMarkers)

	caseType := CaseTypeGeneral
	if isSexual {
		caseType = CaseTypeSexualOffence
		if isChild {
			caseType = CaseTypeChildSexualOffence
		}
	}

	return Intent{
		IsProcedural:      isProcedural,
		CaseType:          caseType,
		DetectedStages:    stages,
		NeedsEvidence:     needsEvidence,
		NeedsCompensation: needsCompensation,
		Routing:           routeTier(isProcedural, isSexual, needsEvidence, needsCompensation, stages),
		Hints: Hints{
			DocID:         detectDocument(lower),
			SectionNo:     detectSectionNumber(query),
			TopicKeywords: topicKeywords(stages),
		},
	}
}

// routeTier decides the single procedural route. A procedural query about a
// sexual offence always takes tier-1. A non-sexual procedural query takes
// tier-3 unless evidence or compensation is its sole intent (no stage
// matched), in which case the tier-2 corpora alone serve it.
func routeTier(isProcedural, isSexual, needsEvidence, needsCompensation bool, stages []string) TierRouting {
	if !isProcedural {
		return RouteNone
	}
	if isSexual {
		return RouteSexualOffenceProcedure
	}
	if (needsEvidence || needsCompensation) && len(stages) == 0 {
		return RouteNone
	}
	return RouteGeneralGuidance
}

func detectStages(lower string) []string {
	var stages []string
	for stage, phrases := range stageTable {
		if containsAny(lower, phrases) {
			stages = append(stages, stage)
		}
	}
	sort.Strings(stages)
	return stages
}

func detectDocument(lower string) string {
	for _, entry := range docAliases {
		if strings.Contains(lower, entry.Alias) {
			return entry.DocID
		}
	}
	return ""
}

func detectSectionNumber(query string) string {
	m := sectionPattern.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return m[1]
}

func topicKeywords(stages []string) []string {
	var keywords []string
	for _, stage := range stages {
		for _, kw := range stageTopicExpansions[stage] {
			if !textutil.ContainsString(keywords, kw) {
				keywords = append(keywords, kw)
			}
		}
	}
	return keywords
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
