// Package store implements the multi-tier legal index: one hybrid
// vector+keyword index per statute hierarchy level plus one per specialized
// corpus tier, with score fusion, priority boosting and exact lookups.
//
// A store is built once by the offline indexer and is read-only while
// serving. Concurrent searches need no locking.
package store

import (
	"encoding/json"
	"fmt"
)

// Level identifies one level of the statute hierarchy.
type Level string

const (
	LevelDocument   Level = "document"
	LevelChapter    Level = "chapter"
	LevelSection    Level = "section"
	LevelSubsection Level = "subsection"
)

// Levels lists the hierarchy levels in cascade order.
var Levels = []Level{LevelDocument, LevelChapter, LevelSection, LevelSubsection}

// Tier identifies one specialized corpus searched alongside the hierarchy.
type Tier string

const (
	// TierProcedure holds step-by-step procedure blocks for
	// sexual-offence cases.
	TierProcedure Tier = "procedure"
	// TierEvidence holds evidentiary-requirement blocks.
	TierEvidence Tier = "evidence"
	// TierCompensation holds victim-compensation scheme blocks.
	TierCompensation Tier = "compensation"
	// TierGuidance holds general citizen-guidance SOP blocks.
	TierGuidance Tier = "guidance"
)

// Tiers lists all specialized tiers in context-assembly priority order.
var Tiers = []Tier{TierProcedure, TierGuidance, TierEvidence, TierCompensation}

// IndexEntry is the metadata of one hierarchy-level item. ID equals the
// entry's position in its level index and is stable for the index lifetime.
type IndexEntry struct {
	ID           int    `json:"id"`
	DocID        string `json:"doc_id"`
	ChapterNo    string `json:"chapter_no,omitempty"`
	SectionNo    string `json:"section_no,omitempty"`
	SubsectionNo string `json:"subsection_no,omitempty"`
	Text         string `json:"text"`
	Page         int    `json:"page,omitempty"`
	Type         string `json:"type,omitempty"`
}

// TierBlockEntry is the metadata of one specialized-tier block. Priority is
// assigned once at classification time and never changes after the build.
type TierBlockEntry struct {
	ID       int         `json:"id"`
	DocID    string      `json:"doc_id"`
	BlockID  string      `json:"block_id"`
	Title    string      `json:"title"`
	Text     string      `json:"text"`
	Page     int         `json:"page,omitempty"`
	Priority float64     `json:"priority"`
	Payload  TierPayload `json:"payload"`
}

// TierPayload is the tier-specific categorical payload of a block. Exactly
// one implementation exists per tier; tier-specific logic switches over the
// concrete types exhaustively.
type TierPayload interface {
	Tier() Tier
}

// ProcedurePayload describes a procedural block: which stage of a case it
// covers, who acts, and under what time limit.
type ProcedurePayload struct {
	Stage        string   `json:"stage"`
	Stakeholders []string `json:"stakeholders,omitempty"`
	ActionType   string   `json:"action_type,omitempty"`
	TimeLimit    string   `json:"time_limit,omitempty"`
}

// Tier implements TierPayload.
func (ProcedurePayload) Tier() Tier { return TierProcedure }

// EvidencePayload describes an evidentiary-requirement block.
type EvidencePayload struct {
	EvidenceTypes       []string `json:"evidence_types,omitempty"`
	InvestigativeAction string   `json:"investigative_action,omitempty"`
	FailureImpact       string   `json:"failure_impact,omitempty"`
	CaseTypes           []string `json:"case_types,omitempty"`
}

// Tier implements TierPayload.
func (EvidencePayload) Tier() Tier { return TierEvidence }

// CompensationPayload describes a victim-compensation scheme block.
type CompensationPayload struct {
	CompensationType   string   `json:"compensation_type,omitempty"`
	Authority          string   `json:"authority,omitempty"`
	CrimesCovered      []string `json:"crimes_covered,omitempty"`
	RequiresConviction bool     `json:"requires_conviction,omitempty"`
	AmountRange        string   `json:"amount_range,omitempty"`
}

// Tier implements TierPayload.
func (CompensationPayload) Tier() Tier { return TierCompensation }

// GuidancePayload describes a general citizen-guidance SOP block.
type GuidancePayload struct {
	SOPGroup        string   `json:"sop_group,omitempty"`
	AppliesTo       []string `json:"applies_to,omitempty"`
	LegalReferences []string `json:"legal_references,omitempty"`
}

// Tier implements TierPayload.
func (GuidancePayload) Tier() Tier { return TierGuidance }

// payloadEnvelope carries the discriminator for (un)marshalling the payload
// union in the persisted metadata files.
type payloadEnvelope struct {
	Tier Tier            `json:"tier"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON encodes the entry with a tier-tagged payload envelope.
func (e TierBlockEntry) MarshalJSON() ([]byte, error) {
	type alias TierBlockEntry
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		Payload payloadEnvelope `json:"payload"`
	}{
		alias:   alias(e),
		Payload: payloadEnvelope{Tier: e.Payload.Tier(), Data: data},
	})
}

// UnmarshalJSON decodes the tier-tagged payload envelope back into the
// matching concrete payload type.
func (e *TierBlockEntry) UnmarshalJSON(data []byte) error {
	type alias TierBlockEntry
	aux := struct {
		*alias
		Payload payloadEnvelope `json:"payload"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch aux.Payload.Tier {
	case TierProcedure:
		var p ProcedurePayload
		if err := json.Unmarshal(aux.Payload.Data, &p); err != nil {
			return err
		}
		e.Payload = p
	case TierEvidence:
		var p EvidencePayload
		if err := json.Unmarshal(aux.Payload.Data, &p); err != nil {
			return err
		}
		e.Payload = p
	case TierCompensation:
		var p CompensationPayload
		if err := json.Unmarshal(aux.Payload.Data, &p); err != nil {
			return err
		}
		e.Payload = p
	case TierGuidance:
		var p GuidancePayload
		if err := json.Unmarshal(aux.Payload.Data, &p); err != nil {
			return err
		}
		e.Payload = p
	default:
		return fmt.Errorf("unknown tier payload %q", aux.Payload.Tier)
	}
	return nil
}

// SearchResult is one scored hit from a level or tier search. Score is a
// fused, non-negative value; priority boosting can push it above 1.0, so
// only the ordering is meaningful, never the absolute magnitude.
type SearchResult struct {
	Level        string         `json:"level"`
	DocID        string         `json:"doc_id"`
	ChapterNo    string         `json:"chapter_no,omitempty"`
	SectionNo    string         `json:"section_no,omitempty"`
	SubsectionNo string         `json:"subsection_no,omitempty"`
	BlockID      string         `json:"block_id,omitempty"`
	Title        string         `json:"title,omitempty"`
	Text         string         `json:"text"`
	Score        float64        `json:"score"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Stats summarizes the store contents.
type Stats struct {
	EmbeddingDim int            `json:"embedding_dim"`
	LevelCounts  map[Level]int  `json:"level_counts"`
	TierCounts   map[Tier]int   `json:"tier_counts"`
}
