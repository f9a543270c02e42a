package common

import (
	"strings"
	"time"
)

// Label is the NER category of an entity. Only organizations and persons
// take part in the graph.
type Label string

const (
	LabelOrganization Label = "ORG"
	LabelPerson       Label = "PER"
)

// Valid reports whether the label is one the pipeline keeps.
func (l Label) Valid() bool {
	return l == LabelOrganization || l == LabelPerson
}

// DetectedEntity is a raw mention produced by the NER tagger.
// DocumentID is the source file name, e.g. "news_row_3_text.txt".
type DetectedEntity struct {
	Text       string  `json:"text"`
	Label      Label   `json:"label"`
	Score      float64 `json:"score"`
	DocumentID string  `json:"document_id"`
}

// Entity is a canonical entity that survived normalization. It has the same
// shape as DetectedEntity; the difference lies in the guarantees:
//
//   - Text is NFC-normalized, trimmed and at least two characters long
//   - PER entities contain at least one whitespace character
//   - within a document, no two entities share the same lowercase text and no
//     entity is a case-insensitive substring of another
type Entity struct {
	Text       string  `json:"text"`
	Label      Label   `json:"label"`
	Score      float64 `json:"score"`
	DocumentID string  `json:"document_id"`
}

// ThreatAssessment is the model's threat judgement for a relationship.
type ThreatAssessment struct {
	ThreatLevel       Level `json:"threat_level" validate:"min=1,max=10"`
	Type              Text  `json:"type"`
	Explanation       Text  `json:"explanation"`
	ImpactLevel       Level `json:"impact_level_on_singapore" validate:"min=0,max=10"`
	ImpactExplanation Text  `json:"impact_explanation"`
}

// RelationshipRecord is one extracted relationship between an unordered pair
// of entities found in the same document. Records are append-only.
type RelationshipRecord struct {
	Entity1             Text             `json:"entity_1" validate:"required"`
	Entity2             Text             `json:"entity_2" validate:"required"`
	RelationshipSummary Text             `json:"relationship_summary"`
	ConfidenceScore     Text             `json:"confidence_score"`
	RelevantContext     Text             `json:"relevant_context"`
	ThreatAssessment    ThreatAssessment `json:"threat_assessment"`
	OriginLocation1     Text             `json:"origin_location_1"`
	OriginLocation2     Text             `json:"origin_location_2"`
}

// PairKey identifies the unordered entity pair a record was extracted for.
type PairKey struct {
	DocumentID string
	Entity1    string
	Entity2    string
}

// NewPairKey builds a key that is equal for (a, b) and (b, a).
func NewPairKey(documentID, a, b string) PairKey {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return PairKey{DocumentID: documentID, Entity1: a, Entity2: b}
}

// QuarantineEntry records a pair whose model responses never passed
// validation. The pair stays incomplete so a later run retries it.
type QuarantineEntry struct {
	DocumentID string    `json:"document_id"`
	Entity1    string    `json:"entity_1"`
	Entity2    string    `json:"entity_2"`
	Reason     string    `json:"reason"`
	Response   string    `json:"response"`
	Attempts   int       `json:"attempts"`
	Time       time.Time `json:"time"`
}
